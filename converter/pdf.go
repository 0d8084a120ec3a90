package converter

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func convertPDF(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return Result{}, corrupt(path, "read pdf: %v", err)
	}

	var text, md []string
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, page)
		if err != nil {
			return Result{}, corrupt(path, "extract page %d: %v", page, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return Result{}, corrupt(path, "read page %d: %v", page, err)
		}
		pageText := strings.ToValidUTF8(strings.TrimSpace(extractContentText(content)), "�")
		if pageText == "" {
			continue
		}
		text = append(text, pageText)
		md = append(md, fmt.Sprintf("## Page %d\n\n%s", page, pageText))
	}

	return Result{
		Text:     strings.Join(text, "\n\n"),
		Markdown: strings.Join(md, "\n\n"),
		Metadata: map[string]interface{}{"pages": pdfCtx.PageCount},
	}, nil
}

// extractContentText pulls the string operands of the text-showing operators
// (Tj, TJ, ' and ") out of a decoded page content stream. Text positioning
// operators that move to a new line become newlines.
func extractContentText(content []byte) string {
	var (
		out     strings.Builder
		pending []string
	)
	flush := func() {
		for _, s := range pending {
			out.WriteString(s)
		}
		pending = pending[:0]
	}
	newline := func() {
		s := out.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			out.WriteByte('\n')
		}
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '(':
			s, next := readLiteralString(content, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(content) && content[i+1] != '<':
			end := bytes.IndexByte(content[i:], '>')
			if end < 0 {
				return out.String()
			}
			pending = append(pending, decodeHexString(content[i+1:i+end]))
			i += end + 1
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case isOperatorByte(c):
			start := i
			for i < len(content) && isOperatorByte(content[i]) {
				i++
			}
			switch string(content[start:i]) {
			case "Tj", "TJ":
				flush()
			case "'", "\"":
				newline()
				flush()
			case "Td", "TD", "T*", "ET":
				newline()
				pending = pending[:0]
			default:
				pending = pending[:0]
			}
		default:
			i++
		}
	}
	return out.String()
}

func isOperatorByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '*' || c == '\'' || c == '"'
}

// readLiteralString decodes a PDF literal string starting at content[start]
// == '(' and returns it with the index just past the closing parenthesis.
func readLiteralString(content []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		case '\\':
			i++
			if i >= len(content) {
				return b.String(), i
			}
			switch e := content[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for j < 3 && i < len(content) && content[i] >= '0' && content[i] <= '7' {
						v = v*8 + int(content[i]-'0')
						i++
						j++
					}
					i--
					b.WriteByte(byte(v))
				} else {
					b.WriteByte(e)
				}
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), i
}

func decodeHexString(h []byte) string {
	clean := make([]byte, 0, len(h)+1)
	for _, c := range h {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			clean = append(clean, c)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out, err := hex.DecodeString(string(clean))
	if err != nil {
		return ""
	}
	return string(out)
}

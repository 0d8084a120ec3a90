package converter

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New().Parser()

func convertText(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	s := strings.ToValidUTF8(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), "�")
	return Result{Text: s, Markdown: s}, nil
}

func convertMarkdown(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	src := []byte(strings.ToValidUTF8(string(data), "�"))
	return Result{Text: MarkdownToText(src), Markdown: string(src)}, nil
}

// MarkdownToText strips Markdown syntax, keeping the text of every inline
// and code block. Blocks are separated by newlines.
func MarkdownToText(src []byte) string {
	doc := markdownParser.Parse(text.NewReader(src))
	var b strings.Builder
	newline := func() {
		s := b.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock {
				newline()
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.HardLineBreak() {
				b.WriteByte('\n')
			} else if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimRight(b.String(), "\n")
}

package converter

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skippedElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Table: true, atom.Tr: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true,
	atom.Pre: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Br: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// htmlWriter builds the text and Markdown renderings side by side.
type htmlWriter struct {
	text strings.Builder
	md   strings.Builder
}

func (w *htmlWriter) write(s string) {
	w.text.WriteString(s)
	w.md.WriteString(s)
}

// cell separates table cells that share a row.
func (w *htmlWriter) cell() {
	s := w.text.String()
	if len(s) == 0 || s[len(s)-1] == '\n' {
		return
	}
	w.text.WriteByte('\t')
	w.md.WriteString(" | ")
}

func (w *htmlWriter) block() {
	for _, b := range []*strings.Builder{&w.text, &w.md} {
		s := b.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
}

func convertHTML(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Result{}, corrupt(path, "parse html: %v", err)
	}

	w := &htmlWriter{}
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			if skippedElements[node.DataAtom] {
				return
			}
			if blockElements[node.DataAtom] {
				w.block()
			}
			if level, ok := headingLevels[node.DataAtom]; ok {
				w.md.WriteString(strings.Repeat("#", level) + " ")
			}
			switch node.DataAtom {
			case atom.Li:
				w.md.WriteString("- ")
			case atom.Td, atom.Th:
				w.cell()
			}
		}
		if node.Type == html.TextNode {
			if s := strings.Join(strings.Fields(node.Data), " "); s != "" {
				w.write(s)
				if strings.HasSuffix(node.Data, " ") || strings.HasSuffix(node.Data, "\n") {
					w.write(" ")
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockElements[node.DataAtom] {
			w.block()
		}
	}
	walk(doc)

	meta := map[string]interface{}{}
	if title := findTitle(doc); title != "" {
		meta["title"] = title
	}
	return Result{
		Text:     trimLines(w.text.String()),
		Markdown: trimLines(w.md.String()),
		Metadata: meta,
	}, nil
}

func findTitle(node *html.Node) string {
	if node.Type == html.ElementNode && node.DataAtom == atom.Title && node.FirstChild != nil {
		return strings.TrimSpace(node.FirstChild.Data)
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// trimLines trims trailing blanks on every line and drops empty lines.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

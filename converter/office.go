package converter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	sheetPattern = regexp.MustCompile(`^xl/worksheets/sheet(\d+)\.xml$`)
)

type paragraph struct {
	style string
	text  string
}

func openPackage(path string, data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt(path, "open package: %v", err)
	}
	return zr, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// numberedParts returns the parts matching pattern ordered by their number.
func numberedParts(zr *zip.Reader, pattern *regexp.Regexp) []string {
	type part struct {
		name string
		n    int
	}
	var parts []part
	for _, f := range zr.File {
		m := pattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		parts = append(parts, part{name: f.Name, n: n})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}
	return names
}

// readParagraphs collects the text runs of every <p> element. It serves both
// WordprocessingML (w:p/w:t) and DrawingML (a:p/a:t).
func readParagraphs(data []byte) ([]paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		paragraphs []paragraph
		current    *paragraph
		buf        strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current = &paragraph{}
				buf.Reset()
			case "pStyle":
				if current != nil {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							current.style = attr.Value
						}
					}
				}
			case "t":
				inText = true
			case "tab":
				if current != nil {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if current != nil {
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current != nil {
					current.text = buf.String()
					paragraphs = append(paragraphs, *current)
					current = nil
				}
			}
		case xml.CharData:
			if inText && current != nil {
				buf.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func markdownPrefix(style string) string {
	s := strings.ToLower(style)
	switch {
	case s == "title":
		return "# "
	case strings.HasPrefix(s, "heading"):
		level, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
		if err != nil || level < 1 {
			return ""
		}
		return strings.Repeat("#", min(level, 6)) + " "
	case strings.Contains(s, "list"):
		return "- "
	}
	return ""
}

func convertDOCX(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	zr, err := openPackage(path, data)
	if err != nil {
		return Result{}, err
	}
	body, err := readPart(zr, "word/document.xml")
	if err != nil {
		return Result{}, corrupt(path, "missing word/document.xml: %v", err)
	}
	paragraphs, err := readParagraphs(body)
	if err != nil {
		return Result{}, corrupt(path, "parse document: %v", err)
	}

	var text, md []string
	for _, p := range paragraphs {
		if strings.TrimSpace(p.text) == "" {
			continue
		}
		text = append(text, p.text)
		md = append(md, markdownPrefix(p.style)+p.text)
	}
	return Result{
		Text:     strings.Join(text, "\n"),
		Markdown: strings.Join(md, "\n\n"),
		Metadata: map[string]interface{}{"paragraphs": len(text)},
	}, nil
}

func convertPPTX(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	zr, err := openPackage(path, data)
	if err != nil {
		return Result{}, err
	}
	slides := numberedParts(zr, slidePattern)
	if len(slides) == 0 {
		return Result{}, corrupt(path, "presentation has no slides")
	}

	var text, md []string
	for i, name := range slides {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		body, err := readPart(zr, name)
		if err != nil {
			return Result{}, corrupt(path, "read %s: %v", name, err)
		}
		paragraphs, err := readParagraphs(body)
		if err != nil {
			return Result{}, corrupt(path, "parse %s: %v", name, err)
		}
		md = append(md, fmt.Sprintf("## Slide %d", i+1))
		for _, p := range paragraphs {
			if strings.TrimSpace(p.text) == "" {
				continue
			}
			text = append(text, p.text)
			md = append(md, p.text)
		}
	}
	return Result{
		Text:     strings.Join(text, "\n"),
		Markdown: strings.Join(md, "\n\n"),
		Metadata: map[string]interface{}{"slides": len(slides)},
	}, nil
}

func convertXLSX(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	zr, err := openPackage(path, data)
	if err != nil {
		return Result{}, err
	}
	var shared []string
	if raw, err := readPart(zr, "xl/sharedStrings.xml"); err == nil {
		if shared, err = readSharedStrings(raw); err != nil {
			return Result{}, corrupt(path, "parse shared strings: %v", err)
		}
	}
	var names []string
	if raw, err := readPart(zr, "xl/workbook.xml"); err == nil {
		names = readSheetNames(raw)
	}

	sheets := numberedParts(zr, sheetPattern)
	if len(sheets) == 0 {
		return Result{}, corrupt(path, "workbook has no worksheets")
	}

	var text, md []string
	for i, part := range sheets {
		raw, err := readPart(zr, part)
		if err != nil {
			return Result{}, corrupt(path, "read %s: %v", part, err)
		}
		rows, err := readSheetRows(raw, shared)
		if err != nil {
			return Result{}, corrupt(path, "parse %s: %v", part, err)
		}
		name := fmt.Sprintf("Sheet%d", i+1)
		if i < len(names) {
			name = names[i]
		}
		md = append(md, "## "+name)
		if table := markdownTable(rows); table != "" {
			md = append(md, table)
		}
		for _, row := range rows {
			text = append(text, strings.Join(row, "\t"))
		}
	}
	return Result{
		Text:     strings.Join(text, "\n"),
		Markdown: strings.Join(md, "\n\n"),
		Metadata: map[string]interface{}{"sheets": len(sheets)},
	}, nil
}

func readSharedStrings(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		values []string
		buf    strings.Builder
		inSI   bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				buf.Reset()
			case "t":
				inText = inSI
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				values = append(values, buf.String())
				inSI = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
}

func readSheetNames(data []byte) []string {
	var wb struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil
	}
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	return names
}

func readSheetRows(data []byte, shared []string) ([][]string, error) {
	var ws struct {
		Rows []struct {
			Cells []struct {
				Ref    string `xml:"r,attr"`
				Type   string `xml:"t,attr"`
				Value  string `xml:"v"`
				Inline string `xml:"is>t"`
			} `xml:"c"`
		} `xml:"sheetData>row"`
	}
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(ws.Rows))
	for _, r := range ws.Rows {
		var row []string
		for i, c := range r.Cells {
			col := columnIndex(c.Ref)
			if col < 0 {
				col = i
			}
			for len(row) <= col {
				row = append(row, "")
			}
			value := c.Value
			switch c.Type {
			case "s":
				idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
				if err == nil && idx >= 0 && idx < len(shared) {
					value = shared[idx]
				}
			case "inlineStr":
				value = c.Inline
			}
			row[col] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnIndex converts the letters of a cell reference such as "AB12" to a
// zero-based column. It returns -1 when ref has no letters.
func columnIndex(ref string) int {
	col := 0
	letters := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
		letters++
	}
	if letters == 0 {
		return -1
	}
	return col - 1
}

// Package samples writes a small corpus of documents, one per supported
// format, for smoke-testing a conversion stack.
package samples

import (
	"bytes"
	"fmt"
	"path/filepath"

	"docprobe/logger"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/afero"
)

const sampleText = `Sample Text Document
====================

This is a sample text document for testing document conversion.

Features:
- Plain text content
- Multiple paragraphs
- Simple formatting

Testing the converter's ability to process basic text files.
`

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Sample HTML Document</title>
</head>
<body>
    <h1>Sample HTML Document</h1>
    <p>This is a sample HTML document for testing document conversion.</p>
    <ul>
        <li>HTML formatting</li>
        <li>Lists and tables</li>
        <li>Links and images</li>
    </ul>
    <table border="1">
        <tr><th>Column 1</th><th>Column 2</th></tr>
        <tr><td>Data 1</td><td>Data 2</td></tr>
    </table>
</body>
</html>
`

const sampleMarkdown = "# Sample Markdown Document\n\n" +
	"This is a sample markdown document for testing document conversion.\n\n" +
	"## Features\n\n" +
	"- **Bold text**\n- *Italic text*\n- `Code snippets`\n- Lists and tables\n\n" +
	"### Code Example\n\n" +
	"```go\nfunc helloWorld() {\n\tfmt.Println(\"Hello, World!\")\n}\n```\n\n" +
	"### Table\n\n" +
	"| Column 1 | Column 2 |\n|----------|----------|\n| Data 1   | Data 2   |\n| Data 3   | Data 4   |\n"

const sampleCSV = `Name,Age,City
John Doe,30,New York
Jane Smith,25,Los Angeles
`

var pdfLines = []string{
	"Sample PDF Document",
	"This is a sample PDF document for testing document conversion.",
	"Features:",
	"- PDF text extraction",
	"- Table recognition",
	"- Image processing",
}

var docxParagraphs = []Paragraph{
	{Style: "Title", Text: "Sample DOCX Document"},
	{Text: "This is a sample DOCX document for testing document conversion."},
	{Style: "Heading1", Text: "Features"},
	{Text: "Word documents carry several features:"},
	{Style: "ListBullet", Text: "Text formatting"},
	{Style: "ListBullet", Text: "Tables and images"},
	{Style: "ListBullet", Text: "Headers and footers"},
}

var pptxSlides = [][]string{
	{"Sample PPTX Presentation", "Generated for conversion testing"},
	{"Agenda", "Slides with text", "Multiple paragraphs"},
}

var xlsxRows = [][]string{
	{"Name", "Age", "City"},
	{"John Doe", "30", "New York"},
	{"Jane Smith", "25", "Los Angeles"},
}

type sample struct {
	name  string
	build func() ([]byte, error)
}

func static(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

func catalog() []sample {
	return []sample{
		{"sample.txt", static(sampleText)},
		{"sample.html", static(sampleHTML)},
		{"sample.md", static(sampleMarkdown)},
		{"sample.csv", static(sampleCSV)},
		{"sample.pdf", func() ([]byte, error) { return PDF("Sample PDF Document", pdfLines) }},
		{"sample.docx", func() ([]byte, error) { return DOCX("Sample DOCX Document", docxParagraphs) }},
		{"sample.pptx", func() ([]byte, error) { return PPTX("Sample PPTX Presentation", pptxSlides) }},
		{"sample.xlsx", func() ([]byte, error) { return XLSX("Sample Sheet", xlsxRows) }},
	}
}

// Generate writes every sample into dir, creating it if needed, and returns
// the written paths in catalogue order.
func Generate(fs afero.Fs, dir string) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	written := make([]string, 0, 8)
	for _, s := range catalog() {
		data, err := s.build()
		if err != nil {
			return written, fmt.Errorf("build %s: %w", s.name, err)
		}
		path := filepath.Join(dir, s.name)
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		logger.Infof("Created %s", path)
		written = append(written, path)
	}
	return written, nil
}

// PDF renders one line of Helvetica text per entry on a single A4 page.
func PDF(title string, lines []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("docprobe", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	for i, line := range lines {
		if i == 1 {
			pdf.SetFont("Helvetica", "", 12)
		}
		pdf.Cell(0, 10, line)
		pdf.Ln(10)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

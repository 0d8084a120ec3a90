package converter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docprobe/logger"
	"docprobe/samples"

	"github.com/spf13/afero"
)

func init() {
	logger.Init("error")
}

func newTestNative(t *testing.T, files map[string][]byte) *Native {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return NewNative(fs, nil, []string{"eng"})
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	return f.text, f.err
}

func TestConvertText(t *testing.T) {
	n := newTestNative(t, map[string][]byte{"/d/notes.txt": []byte("\xef\xbb\xbfhello world\n")})
	res, err := n.Convert(context.Background(), "/d/notes.txt")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "hello world\n" || res.Markdown != res.Text {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestConvertMarkdown(t *testing.T) {
	src := "# Title\n\nSome **bold** text.\n\n- a\n- b\n"
	n := newTestNative(t, map[string][]byte{"/d/readme.md": []byte(src)})
	res, err := n.Convert(context.Background(), "/d/readme.md")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Markdown != src {
		t.Fatalf("markdown should be the source")
	}
	if res.Text != "Title\nSome bold text.\na\nb" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestMarkdownToTextCodeBlock(t *testing.T) {
	got := MarkdownToText([]byte("Intro\n\n```go\nfmt.Println(1)\n```\n"))
	if got != "Intro\nfmt.Println(1)" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestConvertHTML(t *testing.T) {
	page := `<html><head><title>Doc</title><style>p{}</style></head><body>
<h1>Heading</h1><p>First <b>para</b>.</p><ul><li>one</li><li>two</li></ul>
<table><tr><th>A</th><th>B</th></tr></table><script>var x;</script></body></html>`
	n := newTestNative(t, map[string][]byte{"/d/page.html": []byte(page)})
	res, err := n.Convert(context.Background(), "/d/page.html")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "Heading\nFirst para.\none\ntwo\nA\tB" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if !strings.Contains(res.Markdown, "# Heading") || !strings.Contains(res.Markdown, "- one") {
		t.Fatalf("unexpected markdown: %q", res.Markdown)
	}
	if strings.Contains(res.Text, "var x") || strings.Contains(res.Text, "p{}") {
		t.Fatalf("script or style leaked: %q", res.Text)
	}
	if res.Metadata["title"] != "Doc" {
		t.Fatalf("unexpected title: %v", res.Metadata)
	}
}

func TestConvertCSV(t *testing.T) {
	n := newTestNative(t, map[string][]byte{"/d/data.csv": []byte("name,city\nAnn,Kochi\nBo\n")})
	res, err := n.Convert(context.Background(), "/d/data.csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "| name | city |\n| --- | --- |\n| Ann | Kochi |\n| Bo |  |"
	if res.Markdown != want {
		t.Fatalf("unexpected markdown:\n%s", res.Markdown)
	}
	if res.Text != "name\tcity\nAnn\tKochi\nBo" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestConvertEmptyCSV(t *testing.T) {
	n := newTestNative(t, map[string][]byte{"/d/empty.csv": nil})
	res, err := n.Convert(context.Background(), "/d/empty.csv")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "" || res.Markdown != "" {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestConvertOfficeSamples(t *testing.T) {
	docx, err := samples.DOCX("Report", []samples.Paragraph{
		{Style: "Title", Text: "Metro Report"},
		{Text: "Ridership grew."},
		{Style: "Heading2", Text: "Details"},
	})
	if err != nil {
		t.Fatalf("docx: %v", err)
	}
	pptx, err := samples.PPTX("Deck", [][]string{{"Intro", "Welcome"}, {"Close"}})
	if err != nil {
		t.Fatalf("pptx: %v", err)
	}
	xlsx, err := samples.XLSX("Fares", [][]string{{"Zone", "Fare"}, {"A", "20"}})
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	n := newTestNative(t, map[string][]byte{
		"/d/report.docx": docx,
		"/d/deck.pptx":   pptx,
		"/d/fares.xlsx":  xlsx,
	})

	res, err := n.Convert(context.Background(), "/d/report.docx")
	if err != nil {
		t.Fatalf("docx convert: %v", err)
	}
	if res.Text != "Metro Report\nRidership grew.\nDetails" {
		t.Fatalf("unexpected docx text: %q", res.Text)
	}
	if res.Markdown != "# Metro Report\n\nRidership grew.\n\n## Details" {
		t.Fatalf("unexpected docx markdown: %q", res.Markdown)
	}

	res, err = n.Convert(context.Background(), "/d/deck.pptx")
	if err != nil {
		t.Fatalf("pptx convert: %v", err)
	}
	if res.Text != "Intro\nWelcome\nClose" || !strings.Contains(res.Markdown, "## Slide 2") {
		t.Fatalf("unexpected pptx result: %+v", res)
	}

	res, err = n.Convert(context.Background(), "/d/fares.xlsx")
	if err != nil {
		t.Fatalf("xlsx convert: %v", err)
	}
	if res.Text != "Zone\tFare\nA\t20" {
		t.Fatalf("unexpected xlsx text: %q", res.Text)
	}
	if !strings.HasPrefix(res.Markdown, "## Fares\n\n| Zone | Fare |") {
		t.Fatalf("unexpected xlsx markdown: %q", res.Markdown)
	}
}

func TestConvertUnsupported(t *testing.T) {
	n := newTestNative(t, map[string][]byte{
		"/d/drawing.dwg": []byte("AC1032 binary"),
		"/d/blob.xyz":    []byte("no signature here"),
	})
	for _, path := range []string{"/d/drawing.dwg", "/d/blob.xyz"} {
		_, err := n.Convert(context.Background(), path)
		if KindOf(err) != KindUnsupportedFormat {
			t.Fatalf("%s: expected UnsupportedFormat, got %v", path, err)
		}
		if err.Error() != "unsupported format" {
			t.Fatalf("%s: unexpected message %q", path, err.Error())
		}
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: expected ErrUnsupportedFormat", path)
		}
	}
}

func TestConvertCorrupt(t *testing.T) {
	n := newTestNative(t, map[string][]byte{
		"/d/broken.docx": []byte("not a zip"),
		"/d/broken.pdf":  []byte("%PDF-1.4\nthis is not a pdf"),
	})
	for _, path := range []string{"/d/broken.docx", "/d/broken.pdf"} {
		if _, err := n.Convert(context.Background(), path); KindOf(err) != KindCorruptContent {
			t.Fatalf("%s: expected CorruptContent, got %v", path, err)
		}
	}
}

func TestConvertMissingFile(t *testing.T) {
	n := newTestNative(t, nil)
	if _, err := n.Convert(context.Background(), "/d/missing.txt"); KindOf(err) != KindConversionError {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestConvertImage(t *testing.T) {
	n := newTestNative(t, map[string][]byte{"/d/scan.png": []byte("\x89PNG\r\n\x1a\n")})
	if _, err := n.Convert(context.Background(), "/d/scan.png"); KindOf(err) != KindOCRUnavailable {
		t.Fatalf("expected OCRUnavailable, got %v", err)
	}

	n.OCR = fakeOCR{text: "  recognised text \n"}
	res, err := n.Convert(context.Background(), "/d/scan.png")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "recognised text" {
		t.Fatalf("unexpected text: %q", res.Text)
	}

	n.OCR = fakeOCR{err: errors.New("tesseract failed")}
	if _, err := n.Convert(context.Background(), "/d/scan.png"); KindOf(err) != KindConversionError {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestConvertRecoversPanics(t *testing.T) {
	extensionHandlers[".boom"] = func(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
		panic("index out of range")
	}
	defer delete(extensionHandlers, ".boom")

	n := newTestNative(t, map[string][]byte{"/d/x.boom": []byte("x")})
	_, err := n.Convert(context.Background(), "/d/x.boom")
	if KindOf(err) != KindParserFault {
		t.Fatalf("expected ParserFault, got %v", err)
	}
}

func TestSniffedFormatDispatch(t *testing.T) {
	n := newTestNative(t, map[string][]byte{"/d/upload.bin": []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")})
	n.OCR = fakeOCR{text: "sniffed"}
	res, err := n.Convert(context.Background(), "/d/upload.bin")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "sniffed" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestExtractContentText(t *testing.T) {
	stream := []byte("BT /F1 12 Tf 72 712 Td (Hello) Tj ET\nBT 72 700 Td [(Wor) -20 (ld)] TJ ET\nBT (a\\(b\\)c \\101) Tj ET")
	got := strings.TrimSpace(extractContentText(stream))
	if got != "Hello\nWorld\na(b)c A" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := decodeHexString([]byte("48 65 6C6C6F")); got != "Hello" {
		t.Fatalf("unexpected hex decode: %q", got)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatal("nil error has no kind")
	}
	if KindOf(errors.New("x")) != KindConversionError {
		t.Fatal("plain errors default to ConversionError")
	}
	if KindOf(context.DeadlineExceeded) != KindTimeout {
		t.Fatal("deadline exceeded is a timeout")
	}
	wrapped := &ConversionError{Kind: KindCommandFailed, Err: errors.New("exit 1")}
	if KindOf(wrapped) != KindCommandFailed || wrapped.Error() != "exit 1" {
		t.Fatalf("unexpected kind or message: %v", wrapped)
	}
}

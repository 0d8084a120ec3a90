package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"docprobe/converter"

	"github.com/spf13/afero"
)

var ExportFormats = []string{"txt", "md", "json"}

// ExportPath is where a single-file export of source lands.
func ExportPath(resultsDir, source, format string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(resultsDir, stem+"."+format)
}

// WriteExport persists one conversion result in format and returns the
// written path.
func WriteExport(fs afero.Fs, resultsDir, source, format string, res converter.Result) (string, error) {
	path := ExportPath(resultsDir, source, format)

	var data []byte
	switch format {
	case "txt":
		data = []byte(res.Text)
	case "md":
		data = []byte(res.Markdown)
	case "json":
		var err error
		data, err = encodeExport(source, res)
		if err != nil {
			return "", &ReportWriteError{Path: path, Err: err}
		}
	default:
		return "", &ReportWriteError{Path: path, Err: fmt.Errorf("unsupported export format %q", format)}
	}

	if err := writeAtomic(fs, path, data); err != nil {
		return "", &ReportWriteError{Path: path, Err: err}
	}
	return path, nil
}

func encodeExport(source string, res converter.Result) ([]byte, error) {
	var buf bytes.Buffer
	obj := openObject(&buf, "")
	obj.field("file", filepath.Base(source))
	obj.field("text", res.Text)
	obj.field("markdown", res.Markdown)
	if len(res.Metadata) > 0 {
		obj.field("metadata", res.Metadata)
	}
	if err := obj.close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

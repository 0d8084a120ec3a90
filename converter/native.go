package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"

	"docprobe/logger"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

type handler func(ctx context.Context, n *Native, path string, data []byte) (Result, error)

var extensionHandlers = map[string]handler{
	".txt":  convertText,
	".text": convertText,
	".log":  convertText,
	".md":   convertMarkdown,
	".html": convertHTML,
	".htm":  convertHTML,
	".csv":  convertCSV,
	".docx": convertDOCX,
	".pptx": convertPPTX,
	".xlsx": convertXLSX,
	".pdf":  convertPDF,
	".jpg":  convertImage,
	".jpeg": convertImage,
	".png":  convertImage,
	".gif":  convertImage,
	".bmp":  convertImage,
	".tif":  convertImage,
	".tiff": convertImage,
	".webp": convertImage,
}

var mimeHandlers = map[string]handler{
	"application/pdf": convertPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   convertDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": convertPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         convertXLSX,
	"image/jpeg": convertImage,
	"image/png":  convertImage,
	"image/gif":  convertImage,
	"image/bmp":  convertImage,
	"image/tiff": convertImage,
	"image/webp": convertImage,
}

// Native converts documents in-process. Formats are chosen by extension and,
// for unknown extensions, by the sniffed file signature.
type Native struct {
	Fs           afero.Fs
	OCR          OCREngine
	OCRLanguages []string
}

func NewNative(fs afero.Fs, ocr OCREngine, languages []string) *Native {
	return &Native{Fs: fs, OCR: ocr, OCRLanguages: languages}
}

func (n *Native) Convert(ctx context.Context, path string) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("Parser panic for %s: %v\n%s", path, r, debug.Stack())
			result = Result{}
			err = newError(KindParserFault, path, fmt.Errorf("parser fault: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := afero.ReadFile(n.Fs, path)
	if err != nil {
		return Result{}, newError(KindConversionError, path, fmt.Errorf("read: %w", err))
	}

	h := n.lookup(path, data)
	if h == nil {
		return Result{}, newError(KindUnsupportedFormat, path, ErrUnsupportedFormat)
	}
	return h(ctx, n, path, data)
}

func (n *Native) lookup(path string, data []byte) handler {
	ext := strings.ToLower(filepath.Ext(path))
	if h, ok := extensionHandlers[ext]; ok {
		return h
	}
	if ext == ".dwg" || len(data) == 0 {
		return nil
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	return mimeHandlers[kind.MIME.Value]
}

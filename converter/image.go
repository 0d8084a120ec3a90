package converter

import (
	"context"
	"fmt"
	"strings"

	"docprobe/metadata"
)

// OCREngine recognises the text of an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}

func convertImage(ctx context.Context, n *Native, path string, data []byte) (Result, error) {
	if n.OCR == nil {
		return Result{}, newError(KindOCRUnavailable, path, ErrOCRUnavailable)
	}
	text, err := n.OCR.Recognize(ctx, data, n.OCRLanguages)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, newError(KindConversionError, path, fmt.Errorf("ocr: %w", err))
	}
	text = strings.TrimSpace(text)
	return Result{
		Text:     text,
		Markdown: text,
		Metadata: metadata.AnalyzeImage(n.Fs, path),
	}, nil
}

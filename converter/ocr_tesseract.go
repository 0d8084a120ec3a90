//go:build ocr

package converter

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

type tesseractEngine struct{}

// NewOCREngine returns a Tesseract-backed engine. A fresh client is used per
// call because gosseract clients are not safe for concurrent use.
func NewOCREngine() OCREngine {
	return tesseractEngine{}
}

func (tesseractEngine) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			return "", err
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	return client.Text()
}

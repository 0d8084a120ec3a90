//go:build !ocr

package converter

// NewOCREngine returns nil when built without the ocr tag; image conversions
// then fail with KindOCRUnavailable.
func NewOCREngine() OCREngine {
	return nil
}

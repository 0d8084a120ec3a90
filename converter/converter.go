// Package converter turns documents into plain text and Markdown renderings.
package converter

import (
	"context"
	"errors"
	"fmt"
)

// Result is what a successful conversion produces.
type Result struct {
	Text     string
	Markdown string
	Metadata map[string]interface{}
}

// Converter converts the document at path. Implementations must return a
// *ConversionError (or an error wrapping context.DeadlineExceeded) on failure.
type Converter interface {
	Convert(ctx context.Context, path string) (Result, error)
}

// Func adapts a plain function to the Converter interface.
type Func func(ctx context.Context, path string) (Result, error)

func (f Func) Convert(ctx context.Context, path string) (Result, error) {
	return f(ctx, path)
}

type Kind string

const (
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindCorruptContent    Kind = "CorruptContent"
	KindOCRUnavailable    Kind = "OCRUnavailable"
	KindCommandFailed     Kind = "CommandFailed"
	KindParserFault       Kind = "ParserFault"
	KindTimeout           Kind = "Timeout"
	KindConversionError   Kind = "ConversionError"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrOCRUnavailable    = errors.New("ocr engine not available")
)

// ConversionError is a per-file failure. Its message is the underlying
// cause only; callers already know the path.
type ConversionError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

func newError(kind Kind, path string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Path: path, Err: err}
}

func corrupt(path string, format string, args ...interface{}) *ConversionError {
	return newError(KindCorruptContent, path, fmt.Errorf(format, args...))
}

// KindOf classifies any error returned by a Converter.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var convErr *ConversionError
	if errors.As(err, &convErr) && convErr.Kind != "" {
		return convErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindConversionError
}

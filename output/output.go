// Package output persists run reports and single-file exports and renders
// the console summary.
package output

import (
	"fmt"
	"path/filepath"
	"sync"

	"docprobe/config"
	"docprobe/logger"
	"docprobe/report"

	"github.com/spf13/afero"
)

// ReportWriteError means a report or export could not be persisted. The
// destination is left untouched when it is returned.
type ReportWriteError struct {
	Path string
	Err  error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }

type Writer struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
	otel *otelLogger
}

func New(fs afero.Fs, cfg *config.Config) *Writer {
	w := &Writer{fs: fs, path: cfg.OutputFileName}
	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}
	return w
}

func (w *Writer) Path() string { return w.path }

// EmitOutcome forwards one outcome to the OTLP exporter, when configured.
// It is safe for concurrent use.
func (w *Writer) EmitOutcome(o report.FileOutcome) {
	if w.otel == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.otel.emit(outcomeEvent(o))
}

// WriteReport persists r as JSON. The target is replaced atomically.
func (w *Writer) WriteReport(r *report.RunReport) error {
	data, err := encodeReport(r)
	if err != nil {
		return &ReportWriteError{Path: w.path, Err: err}
	}
	if err := writeAtomic(w.fs, w.path, data); err != nil {
		return &ReportWriteError{Path: w.path, Err: err}
	}
	if w.otel != nil {
		w.mu.Lock()
		w.otel.emit(summaryEvent(r))
		w.mu.Unlock()
	}
	return nil
}

func (w *Writer) Close() {
	if w.otel != nil {
		w.otel.Shutdown()
	}
}

// writeAtomic writes data to a temporary file next to path and renames it
// over path.
func writeAtomic(fs afero.Fs, path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = fs.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return fs.Rename(tmp.Name(), path)
}

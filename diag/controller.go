// Package diag watches a running batch and dumps diagnostics when no
// conversion completes within a threshold.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"docprobe/logger"

	"github.com/spf13/afero"
)

const filePrefix = "docprobe"

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	Fs             afero.Fs
	StallThreshold time.Duration
	Dir            string
	// CompletedFn reports how many files have finished converting.
	CompletedFn     func() int64
	CurrentFileFn   func() string
	NowFn           func() time.Time
	ProfileLookupFn func(name string) profileWriter
}

// Controller is a stall watchdog. A nil Controller is valid and does
// nothing.
type Controller struct {
	fs              afero.Fs
	stallThreshold  time.Duration
	dir             string
	completedFn     func() int64
	currentFileFn   func() string
	nowFn           func() time.Time
	profileLookupFn func(name string) profileWriter

	mu              sync.Mutex
	lastCompletedAt time.Time
	lastCompleted   int64
	lastDumpAt      time.Time
	dumps           int

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewController(opts Options) *Controller {
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	profileLookup := opts.ProfileLookupFn
	if profileLookup == nil {
		profileLookup = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	return &Controller{
		fs:              fs,
		stallThreshold:  opts.StallThreshold,
		dir:             dir,
		completedFn:     opts.CompletedFn,
		currentFileFn:   opts.CurrentFileFn,
		nowFn:           nowFn,
		profileLookupFn: profileLookup,
	}
}

func (c *Controller) Start(ctx context.Context) {
	if c == nil || c.stallThreshold <= 0 || c.completedFn == nil || c.stopCh != nil {
		return
	}

	c.mu.Lock()
	c.lastCompleted = c.completedFn()
	c.lastCompletedAt = c.nowFn()
	c.lastDumpAt = time.Time{}
	c.mu.Unlock()

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	interval := min(max(c.stallThreshold/2, 250*time.Millisecond), 2*time.Second)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(c.doneCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.runProbe(c.nowFn())
			}
		}
	}()
}

func (c *Controller) Close() {
	if c == nil || c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
	c.stopCh = nil
	c.doneCh = nil
}

// Dumps reports how many stall events were written.
func (c *Controller) Dumps() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dumps
}

func (c *Controller) runProbe(now time.Time) {
	if c == nil || c.completedFn == nil || c.stallThreshold <= 0 {
		return
	}

	completed := c.completedFn()

	c.mu.Lock()
	if completed != c.lastCompleted || c.lastCompletedAt.IsZero() {
		c.lastCompleted = completed
		c.lastCompletedAt = now
		c.mu.Unlock()
		return
	}
	stalledFor := now.Sub(c.lastCompletedAt)
	shouldDump := stalledFor >= c.stallThreshold &&
		(c.lastDumpAt.IsZero() || now.Sub(c.lastDumpAt) >= c.stallThreshold)
	if shouldDump {
		c.lastDumpAt = now
		c.dumps++
	}
	c.mu.Unlock()

	if shouldDump {
		if err := c.dumpStall(now, completed, stalledFor); err != nil {
			logger.Warnf("Diagnostics stall dump failed: %v", err)
		}
	}
}

func (c *Controller) dumpStall(now time.Time, completed int64, stalledFor time.Duration) error {
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")
	event := map[string]interface{}{
		"event":               "conversion_stalled",
		"timestamp":           now.UTC().Format(time.RFC3339Nano),
		"completed_count":     completed,
		"threshold_ms":        c.stallThreshold.Milliseconds(),
		"observed_stalled_ms": stalledFor.Milliseconds(),
	}
	if c.currentFileFn != nil {
		event["current_file"] = c.currentFileFn()
	}
	b, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	eventPath := filepath.Join(c.dir, fmt.Sprintf("%s-stall-%s.json", filePrefix, ts))
	if err := afero.WriteFile(c.fs, eventPath, b, 0600); err != nil {
		return err
	}
	logger.Warnf("No conversion completed for %s; diagnostics written to %s", stalledFor.Round(time.Millisecond), eventPath)

	if _, err := c.writeProfile("goroutine", 2); err != nil {
		logger.Warnf("Diagnostics goroutine profile dump failed: %v", err)
	}
	return nil
}

func (c *Controller) writeProfile(name string, debug int) (string, error) {
	profile := c.profileLookupFn(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return "", err
	}
	ts := c.nowFn().UTC().Format("20060102-150405.000")
	path := filepath.Join(c.dir, fmt.Sprintf("%s-%s-profile-%s.pprof", filePrefix, name, ts))
	f, err := c.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}

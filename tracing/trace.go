//go:build trace

// Package tracing records runtime/trace tasks for each conversion when built
// with the trace tag.
package tracing

import (
	"context"
	"os"
	"runtime/trace"
)

var traceFile *os.File

// Start enables runtime tracing and writes trace data to path.
func Start(path string) error {
	var err error
	traceFile, err = os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Start(traceFile); err != nil {
		traceFile.Close()
		traceFile = nil
		return err
	}
	return nil
}

func Stop() {
	trace.Stop()
	if traceFile != nil {
		traceFile.Close()
		traceFile = nil
	}
}

// StartTask begins a trace task and returns the derived context and a
// function that ends it.
func StartTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

func StartRegion(ctx context.Context, name string) func() {
	return trace.StartRegion(ctx, name).End
}

func Log(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}

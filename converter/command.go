package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// FilePlaceholder in a command template is replaced by the input path. A
// template without it gets the path appended as the last argument.
const FilePlaceholder = "{file}"

// Command converts a document by running an external converter CLI. Its
// standard output is taken as the Markdown rendering.
type Command struct {
	Template string
	Timeout  time.Duration
}

func NewCommand(template string, timeout time.Duration) *Command {
	return &Command{Template: template, Timeout: timeout}
}

// Args expands the template for path without running anything.
func (c *Command) Args(path string) ([]string, error) {
	fields, err := shell.Fields(c.Template, nil)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", c.Template, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	substituted := false
	for i, f := range fields {
		if strings.Contains(f, FilePlaceholder) {
			fields[i] = strings.ReplaceAll(f, FilePlaceholder, path)
			substituted = true
		}
	}
	if !substituted {
		fields = append(fields, path)
	}
	return fields, nil
}

func (c *Command) Convert(ctx context.Context, path string) (Result, error) {
	args, err := c.Args(path)
	if err != nil {
		return Result{}, newError(KindCommandFailed, path, err)
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{}, newError(KindTimeout, path, fmt.Errorf("timed out after %s", c.Timeout))
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return Result{}, newError(KindCommandFailed, path, fmt.Errorf("%s", msg))
	}

	markdown := strings.ToValidUTF8(stdout.String(), "�")
	return Result{
		Text:     MarkdownToText([]byte(markdown)),
		Markdown: markdown,
	}, nil
}

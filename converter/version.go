package converter

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// ProbeVersion runs the first word of template with --version and returns
// the first non-empty line of its output.
func ProbeVersion(ctx context.Context, template string, timeout time.Duration) (string, error) {
	fields, err := shell.Fields(template, nil)
	if err != nil {
		return "", fmt.Errorf("parse command %q: %w", template, err)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, fields[0], "--version")
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", fields[0], err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s --version: no output", fields[0])
}

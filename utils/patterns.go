// Package utils holds small helpers shared by the scanner and configuration.
package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const regexPrefix = "re:"

// NameFilter decides which file names take part in a run. Glob patterns are
// matched case-insensitively against the base name; patterns prefixed with
// "re:" are regular expressions matched against the base name as is.
type NameFilter struct {
	include []namePattern
	exclude []namePattern
}

type namePattern struct {
	glob string
	re   *regexp.Regexp
}

func (p namePattern) match(name string) bool {
	if p.re != nil {
		return p.re.MatchString(name)
	}
	ok, _ := filepath.Match(p.glob, strings.ToLower(name))
	return ok
}

// NewNameFilter compiles the include and exclude patterns. An empty include
// list admits every name.
func NewNameFilter(include, exclude []string) (*NameFilter, error) {
	inc, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	exc, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return &NameFilter{include: inc, exclude: exc}, nil
}

// Allows reports whether name passes the filter. Exclusion wins over
// inclusion.
func (f *NameFilter) Allows(name string) bool {
	if f == nil {
		return true
	}
	name = filepath.Base(name)
	if len(f.include) > 0 && !anyMatch(f.include, name) {
		return false
	}
	return !anyMatch(f.exclude, name)
}

func anyMatch(patterns []namePattern, name string) bool {
	for _, p := range patterns {
		if p.match(name) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]namePattern, error) {
	compiled := make([]namePattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if expr, ok := strings.CutPrefix(raw, regexPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", raw, err)
			}
			compiled = append(compiled, namePattern{re: re})
			continue
		}
		glob := strings.ToLower(raw)
		if _, err := filepath.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("%q: %w", raw, err)
		}
		compiled = append(compiled, namePattern{glob: glob})
	}
	return compiled, nil
}

package converter

import (
	"bytes"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// SearchCounter counts case-insensitive occurrences of a fixed term set. The
// automaton finds which terms occur; only those are then counted.
type SearchCounter struct {
	terms     []string
	termBytes [][]byte
	matcher   *ahocorasick.Matcher
}

func NewSearchCounter(terms []string) *SearchCounter {
	seen := make(map[string]bool, len(terms))
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		normalized = append(normalized, term)
	}
	if len(normalized) == 0 {
		return nil
	}
	termBytes := make([][]byte, len(normalized))
	for i, term := range normalized {
		termBytes[i] = []byte(term)
	}
	return &SearchCounter{
		terms:     normalized,
		termBytes: termBytes,
		matcher:   ahocorasick.NewStringMatcher(normalized),
	}
}

// Count returns hits per term, or nil when nothing matched.
func (c *SearchCounter) Count(text string) map[string]int {
	if c == nil || text == "" {
		return nil
	}
	content := []byte(strings.ToLower(text))
	matches := c.matcher.MatchThreadSafe(content)
	if len(matches) == 0 {
		return nil
	}
	var hits map[string]int
	for _, idx := range matches {
		if idx < 0 || idx >= len(c.terms) {
			continue
		}
		if hits == nil {
			hits = make(map[string]int)
		}
		if _, done := hits[c.terms[idx]]; done {
			continue
		}
		hits[c.terms[idx]] = bytes.Count(content, c.termBytes[idx])
	}
	return hits
}

package suspend

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a call to the named callee may suspend
type Matcher interface {
	Match(callee string) bool
}

// PatternMatcher matches callee names against glob patterns
type PatternMatcher struct {
	exact    map[string]bool // dotted names
	names    map[string]bool // bare names, matched against the last segment
	globs    []string
	matchAll bool
}

// NewPatternMatcher creates a matcher from a list of patterns. Invalid glob
// patterns never match.
func NewPatternMatcher(patterns []string) *PatternMatcher {
	m := &PatternMatcher{
		exact: make(map[string]bool),
		names: make(map[string]bool),
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "*" || p == "**":
			m.matchAll = true
		case strings.ContainsAny(p, "*?[{"):
			if doublestar.ValidatePattern(p) {
				m.globs = append(m.globs, p)
			}
		case strings.Contains(p, "."):
			m.exact[p] = true
		default:
			m.names[p] = true
		}
	}
	return m
}

// Match returns true if the callee matches any pattern
func (m *PatternMatcher) Match(callee string) bool {
	if callee == "" {
		return false
	}
	if m.matchAll || m.exact[callee] {
		return true
	}
	if m.names[lastSegment(callee)] {
		return true
	}
	for _, g := range m.globs {
		if matched, _ := doublestar.Match(g, callee); matched {
			return true
		}
	}
	return false
}

// Empty reports whether no pattern was configured
func (m *PatternMatcher) Empty() bool {
	return !m.matchAll && len(m.exact) == 0 && len(m.names) == 0 && len(m.globs) == 0
}

func lastSegment(callee string) string {
	if i := strings.LastIndex(callee, "."); i >= 0 {
		return callee[i+1:]
	}
	return callee
}

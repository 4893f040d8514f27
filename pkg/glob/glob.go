// Package glob compiles the restricted glob syntax used by the glob
// streaming endpoint.
//
//	*    any run of characters except '/'
//	**   any number of path segments, including none
//
// Every other character is literal. Compilation never fails.
package glob

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// literal holds the doublestar meta characters that stay literal here.
const literal = `\[]{}?`

type Matcher struct {
	raw     string
	pattern string
	valid   bool
}

func Compile(pattern string) *Matcher {
	m := &Matcher{raw: pattern}
	if pattern == "" {
		return m
	}

	m.pattern = escape(trimStars(strings.TrimLeft(strings.TrimPrefix(pattern, "./"), "/")))
	m.valid = doublestar.ValidatePattern(m.pattern)
	return m
}

// Match reports whether name is matched by the pattern, or is a literal
// substring of the raw pattern text.
func (m *Matcher) Match(name string) bool {
	if m.raw == "" || name == "" {
		return false
	}
	if strings.Contains(m.raw, name) {
		return true
	}
	if !m.valid {
		return m.raw == name
	}
	ok, err := doublestar.Match(m.pattern, name)
	return err == nil && ok
}

func (m *Matcher) String() string {
	return m.raw
}

func escape(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if strings.IndexByte(literal, pattern[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// trimStars collapses runs of three or more stars to "**".
func trimStars(pattern string) string {
	for strings.Contains(pattern, "***") {
		pattern = strings.ReplaceAll(pattern, "***", "**")
	}
	return pattern
}

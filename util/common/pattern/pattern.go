package pattern

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

/* Patterns support * and ** wildcards:
- * matches names in the current directory only (single level)
- ** matches names in all subdirectories recursively (multi-level)
*/

// Matcher decides whether a slash separated relative path is selected by a
// set of include and exclude patterns. A nil Matcher selects everything.
type Matcher struct {
	includes []glob.Glob
	excludes []glob.Glob
}

// NewMatcher compiles include and exclude patterns. It returns nil when both
// lists are empty so callers can skip matching entirely.
func NewMatcher(includes, excludes []string) (*Matcher, error) {
	if len(includes) == 0 && len(excludes) == 0 {
		return nil, nil
	}

	m := &Matcher{}
	var err error
	if m.includes, err = compile(includes); err != nil {
		return nil, err
	}
	if m.excludes, err = compile(excludes); err != nil {
		return nil, err
	}
	return m, nil
}

// Match reports whether path is selected. Include patterns are applied first
// (no includes means everything is included), then exclude patterns remove
// from that selection.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return true
	}

	normalizedPath := strings.TrimPrefix(path, "/")

	if len(m.includes) > 0 && !matchAny(m.includes, normalizedPath) {
		return false
	}
	return !matchAny(m.excludes, normalizedPath)
}

// MatchesPattern reports whether filePath matches any of the patterns. An
// empty pattern list matches everything.
func MatchesPattern(filePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	globs, err := compile(patterns)
	if err != nil {
		return false
	}
	return matchAny(globs, strings.TrimPrefix(filePath, "/"))
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		normalizedPattern := strings.TrimPrefix(p, "/")

		// Validate pattern - only * and ** wildcards are supported
		if containsUnsupportedWildcards(normalizedPattern) {
			return nil, fmt.Errorf("pattern %q contains unsupported wildcard characters, only * and ** are supported", p)
		}

		g, err := glob.Compile(normalizedPattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)

		// A leading **/ also matches at the top level.
		if rest := strings.TrimPrefix(normalizedPattern, "**/"); rest != normalizedPattern && rest != "" {
			top, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
			globs = append(globs, top)
		}
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// containsUnsupportedWildcards checks if pattern contains unsupported wildcard characters
// Only * and ** are supported. Characters like ?, [, ], {, } are not supported.
func containsUnsupportedWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "?[]{}")
}

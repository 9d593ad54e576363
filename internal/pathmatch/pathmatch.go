// Package pathmatch implements shell-style glob matching over slash paths.
//
// Unlike path.Match, '*' also matches '/' so "generated/*.py" covers every
// file below generated/. A leading "**/" additionally matches zero
// directories, so "**/*.js" covers "app.js" as well as "src/app.js".
package pathmatch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Pattern is a compiled glob
type Pattern struct {
	raw  string
	full glob.Glob
	// rest matches the pattern without a leading "**/"
	rest glob.Glob
}

// Compile parses pattern. Globs are compiled without separators so
// wildcards cross directory boundaries.
func Compile(pattern string) (*Pattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty glob")
	}
	full, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	p := &Pattern{raw: pattern, full: full}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && rest != "" {
		if p.rest, err = glob.Compile(rest); err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
	}
	return p, nil
}

// String returns the source pattern
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether name matches
func (p *Pattern) Match(name string) bool {
	name = ToSlash(name)
	return p.full.Match(name) || (p.rest != nil && p.rest.Match(name))
}

type compiled struct {
	p   *Pattern
	err error
}

var cache sync.Map // pattern -> compiled

func lookup(pattern string) (*Pattern, error) {
	if c, ok := cache.Load(pattern); ok {
		c := c.(compiled)
		return c.p, c.err
	}
	p, err := Compile(pattern)
	cache.Store(pattern, compiled{p, err})
	return p, err
}

// Validate reports whether pattern compiles. The result is cached for Match.
func Validate(pattern string) error {
	_, err := lookup(pattern)
	return err
}

// Match reports whether name matches the glob pattern. Empty and invalid
// patterns match nothing.
func Match(pattern, name string) bool {
	p, err := lookup(pattern)
	if err != nil {
		return false
	}
	return p.Match(name)
}

// MatchAny reports whether name matches at least one pattern
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if Match(p, name) {
			return true
		}
	}
	return false
}

// ToSlash converts Windows separators to forward slashes
func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

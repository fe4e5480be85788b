package notestore

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns are the recognized note file patterns.
var DefaultPatterns = Patterns{"*.md", "*.txt"}

// Patterns is a set of glob patterns matched against plain file names.
type Patterns []string

// Validate checks that every pattern is well formed.
func (p Patterns) Validate() error {
	for _, pat := range p {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("notestore: invalid pattern %q", pat)
		}
	}
	return nil
}

// Match reports whether name matches any pattern.
func (p Patterns) Match(name string) bool {
	for _, pat := range p {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

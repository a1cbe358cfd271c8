package inject

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker decides whether a fragment, or an equivalent manual edit, is already
// in a document. A marker found inside a comment or unrelated markup still
// counts as present, so markers should be specific (a unique id rather than a
// shared class name).
type Marker interface {
	Present(doc string) bool
	// Count reports how many times the marker occurs in doc.
	Count(doc string) int
	String() string
}

// Literal is a substring marker.
type Literal string

func (l Literal) Present(doc string) bool { return strings.Contains(doc, string(l)) }
func (l Literal) Count(doc string) int    { return strings.Count(doc, string(l)) }
func (l Literal) String() string          { return fmt.Sprintf("literal %q", string(l)) }

// Pattern is a regular expression marker with first-match semantics.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles expr into a Pattern marker.
func NewPattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile marker pattern %q: %w", expr, err)
	}
	return Pattern{re: re}, nil
}

// MustPattern is like NewPattern but panics on a bad expression.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Present(doc string) bool { return p.re != nil && p.re.MatchString(doc) }

func (p Pattern) Count(doc string) int {
	if p.re == nil {
		return 0
	}
	return len(p.re.FindAllStringIndex(doc, -1))
}

func (p Pattern) String() string {
	if p.re == nil {
		return "pattern <nil>"
	}
	return fmt.Sprintf("pattern %q", p.re.String())
}

// AnyOf is present when any of its members is present.
type AnyOf []Marker

func (a AnyOf) Present(doc string) bool {
	for _, m := range a {
		if m.Present(doc) {
			return true
		}
	}
	return false
}

// Count sums the member counts.
func (a AnyOf) Count(doc string) int {
	n := 0
	for _, m := range a {
		n += m.Count(doc)
	}
	return n
}

func (a AnyOf) String() string {
	parts := make([]string, len(a))
	for i, m := range a {
		parts[i] = m.String()
	}
	return "any of [" + strings.Join(parts, ", ") + "]"
}

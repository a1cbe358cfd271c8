package inject

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrAnchorNotFound is returned when an anchor does not resolve in a
	// document. It is never fatal: the fragment is skipped for that document.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrAlreadyApplied marks a fragment whose marker (or replacement text) is
	// already in the document.
	ErrAlreadyApplied = errors.New("fragment already applied")
)

// Occurrence selects which match of an anchor is used.
type Occurrence int

const (
	First Occurrence = iota
	Last
	// All is only meaningful for replacing anchors: every match is rewritten.
	All
)

func (o Occurrence) String() string {
	switch o {
	case Last:
		return "last"
	case All:
		return "all"
	}
	return "first"
}

// ParseOccurrence maps "", "first", "last" and "all" to an Occurrence.
func ParseOccurrence(s string) (Occurrence, error) {
	switch strings.ToLower(s) {
	case "", "first":
		return First, nil
	case "last":
		return Last, nil
	case "all":
		return All, nil
	default:
		return First, fmt.Errorf("unknown occurrence %q: must be first, last or all", s)
	}
}

// Span is a resolved byte range in a document. Start == End is a pure
// insertion point; otherwise the range is replaced by the fragment content.
type Span struct {
	Start, End int
}

// Empty reports whether the span is an insertion point.
func (s Span) Empty() bool { return s.Start == s.End }

// Anchor locates the splice position of a fragment in a document.
type Anchor interface {
	Locate(doc string) (Span, error)
	// Replaces reports whether the anchor yields a span to substitute rather
	// than an insertion point.
	Replaces() bool
	String() string
}

// MultiAnchor is a replacing anchor that can resolve to several
// non-overlapping spans, in document order.
type MultiAnchor interface {
	Anchor
	LocateAll(doc string) ([]Span, error)
}

// Locate resolves a against doc.
func Locate(doc string, a Anchor) (Span, error) {
	if a == nil {
		return Span{}, fmt.Errorf("nil anchor: %w", ErrAnchorNotFound)
	}
	return a.Locate(doc)
}

func indexOf(doc, text string, occ Occurrence) int {
	if text == "" {
		return -1
	}
	if occ == Last {
		return strings.LastIndex(doc, text)
	}
	return strings.Index(doc, text)
}

// BeforeLiteral inserts immediately before Text.
type BeforeLiteral struct {
	Text       string
	Occurrence Occurrence
}

func (a BeforeLiteral) Locate(doc string) (Span, error) {
	i := indexOf(doc, a.Text, a.Occurrence)
	if i < 0 {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return Span{Start: i, End: i}, nil
}

func (a BeforeLiteral) Replaces() bool { return false }
func (a BeforeLiteral) String() string {
	return fmt.Sprintf("before %s %q", a.Occurrence, a.Text)
}

// AfterLiteral inserts immediately after Text.
type AfterLiteral struct {
	Text       string
	Occurrence Occurrence
}

func (a AfterLiteral) Locate(doc string) (Span, error) {
	i := indexOf(doc, a.Text, a.Occurrence)
	if i < 0 {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	end := i + len(a.Text)
	return Span{Start: end, End: end}, nil
}

func (a AfterLiteral) Replaces() bool { return false }
func (a AfterLiteral) String() string {
	return fmt.Sprintf("after %s %q", a.Occurrence, a.Text)
}

// AfterRegexGroup inserts at the end of capture group Group of the first
// match of Pattern. Group 0 is the whole match.
type AfterRegexGroup struct {
	Pattern *regexp.Regexp
	Group   int
}

func (a AfterRegexGroup) Locate(doc string) (Span, error) {
	s, err := groupSpan(doc, a.Pattern, a.Group)
	if err != nil {
		return Span{}, fmt.Errorf("%s: %w", a, err)
	}
	return Span{Start: s.End, End: s.End}, nil
}

func (a AfterRegexGroup) Replaces() bool { return false }
func (a AfterRegexGroup) String() string {
	return fmt.Sprintf("after group %d of /%s/", a.Group, a.Pattern)
}

// ReplaceLiteral substitutes the first (or last, or every) occurrence of
// Text.
type ReplaceLiteral struct {
	Text       string
	Occurrence Occurrence
}

func (a ReplaceLiteral) Locate(doc string) (Span, error) {
	i := indexOf(doc, a.Text, a.Occurrence)
	if i < 0 {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return Span{Start: i, End: i + len(a.Text)}, nil
}

func (a ReplaceLiteral) LocateAll(doc string) ([]Span, error) {
	if a.Occurrence != All {
		s, err := a.Locate(doc)
		if err != nil {
			return nil, err
		}
		return []Span{s}, nil
	}
	var spans []Span
	for off := 0; a.Text != ""; {
		i := strings.Index(doc[off:], a.Text)
		if i < 0 {
			break
		}
		start := off + i
		spans = append(spans, Span{Start: start, End: start + len(a.Text)})
		off = start + len(a.Text)
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return spans, nil
}

func (a ReplaceLiteral) Replaces() bool { return true }
func (a ReplaceLiteral) String() string {
	if a.Occurrence == First {
		return fmt.Sprintf("replace %q", a.Text)
	}
	return fmt.Sprintf("replace %s %q", a.Occurrence, a.Text)
}

// ReplaceRegexGroup substitutes capture group Group of the first match of
// Pattern, or of every match with Occurrence All. It is used to rewrite
// values inside an existing rule, such as a z-index in a CSS block.
type ReplaceRegexGroup struct {
	Pattern    *regexp.Regexp
	Group      int
	Occurrence Occurrence
}

func (a ReplaceRegexGroup) Locate(doc string) (Span, error) {
	s, err := groupSpan(doc, a.Pattern, a.Group)
	if err != nil {
		return Span{}, fmt.Errorf("%s: %w", a, err)
	}
	return s, nil
}

func (a ReplaceRegexGroup) LocateAll(doc string) ([]Span, error) {
	if a.Occurrence != All {
		s, err := a.Locate(doc)
		if err != nil {
			return nil, err
		}
		return []Span{s}, nil
	}
	if a.Pattern == nil || a.Group < 0 || a.Group > a.Pattern.NumSubexp() {
		return nil, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	var spans []Span
	for _, m := range a.Pattern.FindAllStringSubmatchIndex(doc, -1) {
		if m[2*a.Group] >= 0 {
			spans = append(spans, Span{Start: m[2*a.Group], End: m[2*a.Group+1]})
		}
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return spans, nil
}

func (a ReplaceRegexGroup) Replaces() bool { return true }
func (a ReplaceRegexGroup) String() string {
	if a.Occurrence == All {
		return fmt.Sprintf("replace group %d of every /%s/", a.Group, a.Pattern)
	}
	return fmt.Sprintf("replace group %d of /%s/", a.Group, a.Pattern)
}

func groupSpan(doc string, re *regexp.Regexp, group int) (Span, error) {
	if re == nil {
		return Span{}, ErrAnchorNotFound
	}
	if group < 0 || group > re.NumSubexp() {
		return Span{}, fmt.Errorf("group %d out of range: %w", group, ErrAnchorNotFound)
	}
	m := re.FindStringSubmatchIndex(doc)
	if m == nil || m[2*group] < 0 {
		return Span{}, ErrAnchorNotFound
	}
	return Span{Start: m[2*group], End: m[2*group+1]}, nil
}

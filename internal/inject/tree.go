package inject

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Tree anchors resolve against the tag structure of a document instead of its
// raw text. The document is tokenized, not parsed into a tree, so every
// reported offset maps to the original bytes and untouched regions are kept
// exactly as they were. Tag-like text inside comments or <script>/<style>
// bodies never matches.

// voidElements never have an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type element struct {
	tag, id         string
	start, startEnd int
	end, endEnd     int // -1 while the element is unclosed
	void            bool
}

type tagSpan struct {
	tag        string
	start, end int
}

type scan struct {
	elements []*element
	endTags  []tagSpan
}

func scanDocument(doc string) scan {
	var (
		s     scan
		stack []*element
		pos   int
	)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return s
		}
		start := pos
		pos += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			el := &element{tag: string(name), start: start, startEnd: pos, end: -1, endEnd: -1}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "id" {
					el.id = string(val)
				}
			}
			el.void = tt == html.SelfClosingTagToken || voidElements[el.tag]
			s.elements = append(s.elements, el)
			if !el.void {
				stack = append(stack, el)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			s.endTags = append(s.endTags, tagSpan{tag: tag, start: start, end: pos})
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag == tag {
					stack[i].end, stack[i].endEnd = start, pos
					stack = stack[:i]
					break
				}
			}
		}
	}
}

// Selector matches elements by tag name, id, or both: "header", "#particlesContainer",
// "div#bg-robot-container".
type Selector struct {
	Tag string
	ID  string
}

// ParseSelector parses "tag", "#id" or "tag#id".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	tag, id, _ := strings.Cut(s, "#")
	sel := Selector{Tag: strings.ToLower(tag), ID: id}
	if sel.Tag == "" && sel.ID == "" {
		return Selector{}, fmt.Errorf("empty selector %q", s)
	}
	return sel, nil
}

func (sel Selector) matches(el *element) bool {
	if sel.Tag != "" && sel.Tag != el.tag {
		return false
	}
	if sel.ID != "" && sel.ID != el.id {
		return false
	}
	return true
}

func (sel Selector) String() string {
	if sel.ID == "" {
		return sel.Tag
	}
	return sel.Tag + "#" + sel.ID
}

func pick[T any](items []T, occ Occurrence) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	if occ == Last {
		return items[len(items)-1], true
	}
	return items[0], true
}

func (sel Selector) find(doc string, occ Occurrence) (*element, bool) {
	var found []*element
	for _, el := range scanDocument(doc).elements {
		if sel.matches(el) {
			found = append(found, el)
		}
	}
	return pick(found, occ)
}

// BeforeEndTag inserts immediately before </Tag>.
type BeforeEndTag struct {
	Tag        string
	Occurrence Occurrence
}

func (a BeforeEndTag) Locate(doc string) (Span, error) {
	var found []tagSpan
	for _, t := range scanDocument(doc).endTags {
		if t.tag == a.Tag {
			found = append(found, t)
		}
	}
	t, ok := pick(found, a.Occurrence)
	if !ok {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return Span{Start: t.start, End: t.start}, nil
}

func (a BeforeEndTag) Replaces() bool { return false }
func (a BeforeEndTag) String() string {
	return fmt.Sprintf("before %s </%s>", a.Occurrence, a.Tag)
}

// AfterStartTag inserts immediately after <Tag ...>.
type AfterStartTag struct {
	Tag        string
	Occurrence Occurrence
}

func (a AfterStartTag) Locate(doc string) (Span, error) {
	el, ok := Selector{Tag: a.Tag}.find(doc, a.Occurrence)
	if !ok {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return Span{Start: el.startEnd, End: el.startEnd}, nil
}

func (a AfterStartTag) Replaces() bool { return false }
func (a AfterStartTag) String() string {
	return fmt.Sprintf("after %s <%s>", a.Occurrence, a.Tag)
}

// BeforeElement inserts immediately before the start tag of the selected element.
type BeforeElement struct {
	Selector   Selector
	Occurrence Occurrence
}

func (a BeforeElement) Locate(doc string) (Span, error) {
	el, ok := a.Selector.find(doc, a.Occurrence)
	if !ok {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	return Span{Start: el.start, End: el.start}, nil
}

func (a BeforeElement) Replaces() bool { return false }
func (a BeforeElement) String() string {
	return fmt.Sprintf("before %s element %s", a.Occurrence, a.Selector)
}

// AfterElement inserts immediately after the end tag of the selected element,
// or after its start tag when the element is void. An element that is never
// closed does not resolve.
type AfterElement struct {
	Selector   Selector
	Occurrence Occurrence
}

func (a AfterElement) Locate(doc string) (Span, error) {
	el, ok := a.Selector.find(doc, a.Occurrence)
	if !ok {
		return Span{}, fmt.Errorf("%s: %w", a, ErrAnchorNotFound)
	}
	switch {
	case el.void:
		return Span{Start: el.startEnd, End: el.startEnd}, nil
	case el.endEnd >= 0:
		return Span{Start: el.endEnd, End: el.endEnd}, nil
	default:
		return Span{}, fmt.Errorf("%s: element not closed: %w", a, ErrAnchorNotFound)
	}
}

func (a AfterElement) Replaces() bool { return false }
func (a AfterElement) String() string {
	return fmt.Sprintf("after %s element %s", a.Occurrence, a.Selector)
}

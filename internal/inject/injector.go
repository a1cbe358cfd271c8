// Package inject applies named fragments to a document at most once each.
//
// A fragment carries the text to insert, a marker that proves it is already
// in the document, and an anchor that says where it goes. Apply walks the
// fragments in declared order against the document as mutated so far, so a
// later fragment may anchor on text an earlier one inserted. Running Apply
// again on its own output changes nothing.
package inject

import (
	"errors"
	"fmt"
	"strings"
)

// Fragment is a named unit of content plus the rules for placing it.
type Fragment struct {
	ID      string
	Content string
	// Marker may be nil only for replacing anchors, which then count as
	// applied when every located span already equals Content.
	Marker Marker
	Anchor Anchor
	// Requires lists fragment ids that must already be present in the
	// document before this one is inserted.
	Requires []string
}

// Outcome is what Apply did with one fragment.
type Outcome string

const (
	Applied        Outcome = "applied"
	Skipped        Outcome = "skipped"
	AnchorNotFound Outcome = "anchor-not-found"
	Blocked        Outcome = "blocked"
)

// Report is the change report for one document.
type Report struct {
	Path           string
	Applied        []string
	Skipped        []string
	AnchorNotFound []string
	Blocked        []string
}

// Changed reports whether any fragment was applied.
func (r *Report) Changed() bool { return len(r.Applied) > 0 }

func (r *Report) record(id string, o Outcome) {
	switch o {
	case Applied:
		r.Applied = append(r.Applied, id)
	case Skipped:
		r.Skipped = append(r.Skipped, id)
	case AnchorNotFound:
		r.AnchorNotFound = append(r.AnchorNotFound, id)
	case Blocked:
		r.Blocked = append(r.Blocked, id)
	}
}

// Merge appends the outcomes of other to r.
func (r *Report) Merge(other Report) {
	r.Applied = append(r.Applied, other.Applied...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.AnchorNotFound = append(r.AnchorNotFound, other.AnchorNotFound...)
	r.Blocked = append(r.Blocked, other.Blocked...)
}

// Outcomes returns every fragment id keyed by its outcome.
func (r *Report) Outcomes() map[Outcome][]string {
	return map[Outcome][]string{
		Applied:        r.Applied,
		Skipped:        r.Skipped,
		AnchorNotFound: r.AnchorNotFound,
		Blocked:        r.Blocked,
	}
}

// IsPresent reports whether f's marker occurs in doc.
func IsPresent(doc string, f Fragment) bool {
	return f.Marker != nil && f.Marker.Present(doc)
}

// Apply inserts every missing fragment at its anchor and returns the new
// document with a report. It never fails: unresolved anchors and missing
// predecessors are reported and leave the document untouched.
func Apply(doc string, fragments []Fragment) (string, Report) {
	var rep Report
	byID := make(map[string]Fragment, len(fragments))
	for _, f := range fragments {
		byID[f.ID] = f
	}
	for _, f := range fragments {
		out, o := applyOne(doc, f, byID)
		doc = out
		rep.record(f.ID, o)
	}
	return doc, rep
}

func applyOne(doc string, f Fragment, byID map[string]Fragment) (string, Outcome) {
	if IsPresent(doc, f) {
		return doc, Skipped
	}
	for _, id := range f.Requires {
		req, ok := byID[id]
		if !ok || !IsPresent(doc, req) {
			return doc, Blocked
		}
	}
	spans, err := pending(doc, f)
	switch {
	case errors.Is(err, ErrAlreadyApplied):
		return doc, Skipped
	case err != nil:
		return doc, AnchorNotFound
	}
	for i := len(spans) - 1; i >= 0; i-- {
		doc = splice(doc, spans[i], f.Content)
	}
	return doc, Applied
}

// Check resolves where f would be spliced into doc. It returns
// ErrAlreadyApplied when f is present or its replacement is already in place,
// and an error wrapping ErrAnchorNotFound when the anchor does not resolve.
// For an anchor replacing every match, the first span still to rewrite is
// returned.
func Check(doc string, f Fragment) (Span, error) {
	spans, err := pending(doc, f)
	if err != nil {
		return Span{}, err
	}
	return spans[0], nil
}

// pending returns the spans of doc that f still has to rewrite, in document
// order. Replaced spans that already equal Content are dropped; when none is
// left the fragment is already applied.
func pending(doc string, f Fragment) ([]Span, error) {
	if IsPresent(doc, f) {
		return nil, fmt.Errorf("%s: %w", f.ID, ErrAlreadyApplied)
	}
	var spans []Span
	if ma, ok := f.Anchor.(MultiAnchor); ok {
		all, err := ma.LocateAll(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.ID, err)
		}
		spans = all
	} else {
		span, err := Locate(doc, f.Anchor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.ID, err)
		}
		spans = []Span{span}
	}

	var todo []Span
	for _, span := range spans {
		if !span.Empty() && doc[span.Start:span.End] == f.Content {
			continue
		}
		todo = append(todo, span)
	}
	if len(todo) == 0 {
		return nil, fmt.Errorf("%s: %w", f.ID, ErrAlreadyApplied)
	}
	return todo, nil
}

func splice(doc string, span Span, content string) string {
	var b strings.Builder
	b.Grow(len(doc) - (span.End - span.Start) + len(content))
	b.WriteString(doc[:span.Start])
	b.WriteString(content)
	b.WriteString(doc[span.End:])
	return b.String()
}

package catalog

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joestump/sitepatch/internal/expand"
	"github.com/joestump/sitepatch/internal/inject"
)

// Anchor kinds accepted in catalog.yaml.
const (
	KindBeforeLiteral     = "before-literal"
	KindAfterLiteral      = "after-literal"
	KindAfterRegexGroup   = "after-regex-group"
	KindReplaceLiteral    = "replace-literal"
	KindReplaceRegexGroup = "replace-regex-group"
	KindBeforeEndTag      = "before-end-tag"
	KindAfterStartTag     = "after-start-tag"
	KindBeforeElement     = "before-element"
	KindAfterElement      = "after-element"
)

var (
	// ErrNoDepartment is returned when a set that needs the page's department
	// is bound for a page outside interview/<dept>/.
	ErrNoDepartment = errors.New("page has no department")

	// ErrUnknownDepartment is returned for a department code not in the table.
	ErrUnknownDepartment = errors.New("unknown department")

	// ErrBadOccurrence is returned when occurrence "all" is set on an
	// inserting anchor.
	ErrBadOccurrence = errors.New("occurrence all needs a replace anchor")
)

func isKnownKind(kind string) bool {
	switch kind {
	case KindBeforeLiteral, KindAfterLiteral, KindAfterRegexGroup,
		KindReplaceLiteral, KindReplaceRegexGroup,
		KindBeforeEndTag, KindAfterStartTag, KindBeforeElement, KindAfterElement:
		return true
	}
	return false
}

func replaces(kind string) bool {
	return kind == KindReplaceLiteral || kind == KindReplaceRegexGroup
}

// Page identifies the document a set is bound for.
type Page struct {
	// Rel is the slash-separated path relative to the site root.
	Rel string
	// Department is the department code of the page, or "".
	Department string
}

// Matches reports whether rel is one of the set's targets.
func (s *Set) Matches(rel string) bool {
	for _, t := range s.Targets {
		if ok, _ := doublestar.Match(t, rel); ok {
			return true
		}
	}
	return false
}

// Bind resolves the placeholders of s for page and returns the fragments
// ready for inject.Apply.
func (c *Catalog) Bind(s *Set, page Page) ([]inject.Fragment, error) {
	vars := map[string]string{
		"asset_prefix":   strings.Repeat("../", strings.Count(page.Rel, "/")),
		"dept_nav_links": c.navLinks(),
	}
	if s.PageDepartment {
		if page.Department == "" {
			return nil, fmt.Errorf("set %s on %s: %w", s.Name, page.Rel, ErrNoDepartment)
		}
		d, ok := c.Department(page.Department)
		if !ok {
			return nil, fmt.Errorf("set %s on %s: %w: %q", s.Name, page.Rel, ErrUnknownDepartment, page.Department)
		}
		maps.Copy(vars, d.Vars())
	}

	var out []inject.Fragment
	for _, spec := range s.Fragments {
		if !spec.EachDepartment {
			f, err := build(spec, spec.ID, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
			continue
		}
		for _, d := range c.Departments {
			dv := maps.Clone(vars)
			maps.Copy(dv, d.Vars())
			f, err := build(spec, spec.ID+"-"+d.Code, dv)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// binder substitutes {{key}} placeholders. Values spliced into regular
// expressions are quoted.
type binder struct {
	text  []expand.Pair
	regex []expand.Pair
}

func newBinder(vars map[string]string) binder {
	keys := slices.Sorted(maps.Keys(vars))
	quoted := make(map[string]string, len(vars))
	for k, v := range vars {
		quoted[k] = regexp.QuoteMeta(v)
	}
	return binder{
		text:  expand.Vars(keys, vars),
		regex: expand.Vars(keys, quoted),
	}
}

func (b binder) str(s string) string { return expand.Expand(s, b.text) }

func (b binder) compile(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(expand.Expand(expr, b.regex))
}

func build(spec FragmentSpec, id string, vars map[string]string) (inject.Fragment, error) {
	b := newBinder(vars)
	f := inject.Fragment{
		ID:       id,
		Content:  b.str(spec.Content),
		Requires: spec.Requires,
	}

	if spec.Marker != nil {
		m, err := buildMarker(*spec.Marker, b)
		if err != nil {
			return inject.Fragment{}, fmt.Errorf("fragment %s: %w", id, err)
		}
		f.Marker = m
	}

	a, err := buildAnchor(spec.Anchor, b)
	if err != nil {
		return inject.Fragment{}, fmt.Errorf("fragment %s: %w", id, err)
	}
	f.Anchor = a
	return f, nil
}

func buildMarker(m MarkerSpec, b binder) (inject.Marker, error) {
	switch {
	case m.Literal != "":
		return inject.Literal(b.str(m.Literal)), nil
	case m.Pattern != "":
		return inject.NewPattern(expand.Expand(m.Pattern, b.regex))
	case len(m.AnyOf) > 0:
		members := make(inject.AnyOf, 0, len(m.AnyOf))
		for _, sub := range m.AnyOf {
			mk, err := buildMarker(sub, b)
			if err != nil {
				return nil, err
			}
			members = append(members, mk)
		}
		return members, nil
	}
	return nil, errors.New("marker needs one of literal, pattern or any_of")
}

func buildAnchor(a AnchorSpec, b binder) (inject.Anchor, error) {
	occ, err := inject.ParseOccurrence(a.Occurrence)
	if err != nil {
		return nil, err
	}
	if occ == inject.All && !replaces(a.Kind) {
		return nil, fmt.Errorf("%s anchor: %w", a.Kind, ErrBadOccurrence)
	}

	switch a.Kind {
	case KindBeforeLiteral, KindAfterLiteral, KindReplaceLiteral:
		text := b.str(a.Text)
		if text == "" {
			return nil, fmt.Errorf("%s anchor needs text", a.Kind)
		}
		switch a.Kind {
		case KindBeforeLiteral:
			return inject.BeforeLiteral{Text: text, Occurrence: occ}, nil
		case KindAfterLiteral:
			return inject.AfterLiteral{Text: text, Occurrence: occ}, nil
		}
		return inject.ReplaceLiteral{Text: text, Occurrence: occ}, nil

	case KindAfterRegexGroup, KindReplaceRegexGroup:
		if a.Pattern == "" {
			return nil, fmt.Errorf("%s anchor needs a pattern", a.Kind)
		}
		re, err := b.compile(a.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile anchor pattern: %w", err)
		}
		if a.Group < 0 || a.Group > re.NumSubexp() {
			return nil, fmt.Errorf("anchor group %d out of range for /%s/", a.Group, re)
		}
		if a.Kind == KindAfterRegexGroup {
			return inject.AfterRegexGroup{Pattern: re, Group: a.Group}, nil
		}
		return inject.ReplaceRegexGroup{Pattern: re, Group: a.Group, Occurrence: occ}, nil

	case KindBeforeEndTag, KindAfterStartTag:
		tag := strings.ToLower(strings.TrimSpace(a.Tag))
		if tag == "" {
			return nil, fmt.Errorf("%s anchor needs a tag", a.Kind)
		}
		if a.Kind == KindBeforeEndTag {
			return inject.BeforeEndTag{Tag: tag, Occurrence: occ}, nil
		}
		return inject.AfterStartTag{Tag: tag, Occurrence: occ}, nil

	case KindBeforeElement, KindAfterElement:
		sel, err := inject.ParseSelector(b.str(a.Selector))
		if err != nil {
			return nil, err
		}
		if a.Kind == KindBeforeElement {
			return inject.BeforeElement{Selector: sel, Occurrence: occ}, nil
		}
		return inject.AfterElement{Selector: sel, Occurrence: occ}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAnchor, a.Kind)
}

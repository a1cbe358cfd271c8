// Package catalog loads the canonical fragment table, the department table
// and the page generator recipes.
//
// The catalog is data: catalog.yaml declares fragment sets, each fragment's
// content lives inline or in a file under fragments/, departments.yaml holds
// the per-department values substituted into placeholders, and
// generators.yaml holds the recipes for derived department pages. The
// built-in copy is embedded in the binary; a directory with the same layout
// can replace it.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/joestump/sitepatch/internal/expand"
	"github.com/joestump/sitepatch/internal/inject"
)

const (
	catalogFile     = "catalog.yaml"
	departmentsFile = "departments.yaml"
	generatorsFile  = "generators.yaml"
)

var (
	// ErrDuplicateID is returned when two fragments or sets share an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownAnchor is returned for an anchor kind the injector does not know.
	ErrUnknownAnchor = errors.New("unknown anchor kind")

	// ErrContent is returned when a fragment has neither or both of content and file.
	ErrContent = errors.New("fragment needs exactly one of content or file")

	// ErrMissingMarker is returned when a fragment other than a regex group
	// rewrite has no marker.
	ErrMissingMarker = errors.New("fragment needs a marker")

	// ErrBadRequires is returned when a fragment requires something other
	// than an earlier, marked fragment of the same set.
	ErrBadRequires = errors.New("requires must name an earlier fragment with a marker in the same set")

	// ErrMarkerCount is returned when inserting a fragment would not add
	// exactly one occurrence of its own marker.
	ErrMarkerCount = errors.New("fragment content must contain its marker exactly once")

	// ErrMarkerCollision is returned when a fragment's content would make
	// another fragment of the same set look present.
	ErrMarkerCollision = errors.New("fragment content contains another fragment's marker")

	// ErrBadTarget is returned for an invalid target glob.
	ErrBadTarget = errors.New("invalid target pattern")

	// ErrUnknownSet is returned when a set name is not in the catalog.
	ErrUnknownSet = errors.New("unknown fragment set")
)

// MarkerSpec declares a presence marker. Exactly one field is set.
type MarkerSpec struct {
	Literal string       `yaml:"literal,omitempty"`
	Pattern string       `yaml:"pattern,omitempty"`
	AnyOf   []MarkerSpec `yaml:"any_of,omitempty"`
}

func (m *MarkerSpec) String() string {
	switch {
	case m == nil:
		return "-"
	case m.Literal != "":
		return fmt.Sprintf("%q", m.Literal)
	case m.Pattern != "":
		return "/" + m.Pattern + "/"
	}
	parts := make([]string, len(m.AnyOf))
	for i := range m.AnyOf {
		parts[i] = m.AnyOf[i].String()
	}
	return strings.Join(parts, " | ")
}

// AnchorSpec declares where a fragment goes.
type AnchorSpec struct {
	Kind       string `yaml:"kind"`
	Text       string `yaml:"text,omitempty"`
	Pattern    string `yaml:"pattern,omitempty"`
	Group      int    `yaml:"group,omitempty"`
	Tag        string `yaml:"tag,omitempty"`
	Selector   string `yaml:"selector,omitempty"`
	Occurrence string `yaml:"occurrence,omitempty"`
}

func (a AnchorSpec) String() string {
	var arg string
	switch {
	case a.Text != "":
		arg = fmt.Sprintf("%q", a.Text)
	case a.Pattern != "":
		arg = fmt.Sprintf("/%s/ group %d", a.Pattern, a.Group)
	case a.Tag != "":
		arg = a.Tag
	default:
		arg = a.Selector
	}
	if a.Occurrence != "" {
		arg += " (" + a.Occurrence + ")"
	}
	return a.Kind + " " + arg
}

// FragmentSpec is one fragment as declared in catalog.yaml.
type FragmentSpec struct {
	ID       string      `yaml:"id"`
	Content  string      `yaml:"content,omitempty"`
	File     string      `yaml:"file,omitempty"`
	Marker   *MarkerSpec `yaml:"marker,omitempty"`
	Anchor   AnchorSpec  `yaml:"anchor"`
	Requires []string    `yaml:"requires,omitempty"`
	// EachDepartment repeats the fragment once per department, with ids
	// suffixed by the department code.
	EachDepartment bool `yaml:"each_department,omitempty"`
}

// Set is a named group of fragments applied to the files matching Targets.
type Set struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Targets     []string `yaml:"targets"`
	// PageDepartment binds the department of the page being patched.
	PageDepartment bool           `yaml:"page_department,omitempty"`
	Fragments      []FragmentSpec `yaml:"fragments"`
}

// Catalog is the loaded, validated catalog.
type Catalog struct {
	Sets          []Set
	Departments   []Department
	RequiredPages []string
	Recipes       []Recipe
}

type catalogDoc struct {
	Sets []Set `yaml:"sets"`
}

type departmentsDoc struct {
	RequiredPages []string     `yaml:"required_pages"`
	Departments   []Department `yaml:"departments"`
}

type generatorsDoc struct {
	Recipes []Recipe `yaml:"recipes"`
}

// Open loads the catalog from dir, or the embedded catalog when dir is empty.
func Open(dir string) (*Catalog, error) {
	if dir == "" {
		return Load(Embedded())
	}
	return Load(os.DirFS(dir))
}

// Load reads and validates a catalog from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	var (
		cd catalogDoc
		dd departmentsDoc
		gd generatorsDoc
	)
	if err := decode(fsys, catalogFile, &cd); err != nil {
		return nil, err
	}
	if err := decode(fsys, departmentsFile, &dd); err != nil {
		return nil, err
	}
	if err := decode(fsys, generatorsFile, &gd); err != nil {
		return nil, err
	}

	c := &Catalog{
		Sets:          cd.Sets,
		Departments:   dd.Departments,
		RequiredPages: dd.RequiredPages,
		Recipes:       gd.Recipes,
	}

	for si := range c.Sets {
		for fi := range c.Sets[si].Fragments {
			f := &c.Sets[si].Fragments[fi]
			if f.File == "" {
				continue
			}
			if f.Content != "" {
				return nil, fmt.Errorf("fragment %s: %w", f.ID, ErrContent)
			}
			b, err := fs.ReadFile(fsys, f.File)
			if err != nil {
				return nil, fmt.Errorf("fragment %s: read %s: %w", f.ID, f.File, err)
			}
			f.Content = string(b)
		}
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

func decode(fsys fs.FS, name string, v any) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Set returns the set called name.
func (c *Catalog) Set(name string) (*Set, bool) {
	for i := range c.Sets {
		if c.Sets[i].Name == name {
			return &c.Sets[i], true
		}
	}
	return nil, false
}

// Select returns the named sets in catalog order, or every set when names
// is empty or contains "all".
func (c *Catalog) Select(names []string) ([]*Set, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "all" {
			clear(want)
			break
		}
		if _, ok := c.Set(n); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSet, n)
		}
		want[n] = true
	}
	var out []*Set
	for i := range c.Sets {
		if len(want) == 0 || want[c.Sets[i].Name] {
			out = append(out, &c.Sets[i])
		}
	}
	return out, nil
}

func (c *Catalog) validate() error {
	var errs []error

	codes := make(map[string]bool, len(c.Departments))
	for _, d := range c.Departments {
		if err := ValidateID(d.Code); err != nil {
			errs = append(errs, fmt.Errorf("department %q: %w", d.Code, err))
		}
		if codes[d.Code] {
			errs = append(errs, fmt.Errorf("department %q: %w", d.Code, ErrDuplicateID))
		}
		codes[d.Code] = true
	}

	setNames := make(map[string]bool, len(c.Sets))
	ids := make(map[string]string)
	for i := range c.Sets {
		s := &c.Sets[i]
		if err := ValidateID(s.Name); err != nil {
			errs = append(errs, fmt.Errorf("set %q: %w", s.Name, err))
		}
		if setNames[s.Name] {
			errs = append(errs, fmt.Errorf("set %q: %w", s.Name, ErrDuplicateID))
		}
		setNames[s.Name] = true

		for _, t := range s.Targets {
			if !doublestar.ValidatePattern(t) {
				errs = append(errs, fmt.Errorf("set %s: %w: %q", s.Name, ErrBadTarget, t))
			}
		}

		for _, id := range c.fragmentIDs(s) {
			if other, dup := ids[id]; dup {
				errs = append(errs, fmt.Errorf("fragment %q in set %s (also in %s): %w", id, s.Name, other, ErrDuplicateID))
				continue
			}
			ids[id] = s.Name
		}

		errs = append(errs, c.validateSet(s)...)
	}

	for _, r := range c.Recipes {
		if err := c.validateRecipe(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) fragmentIDs(s *Set) []string {
	var ids []string
	for _, f := range s.Fragments {
		if !f.EachDepartment {
			ids = append(ids, f.ID)
			continue
		}
		for _, d := range c.Departments {
			ids = append(ids, f.ID+"-"+d.Code)
		}
	}
	return ids
}

func (c *Catalog) validateSet(s *Set) []error {
	var errs []error
	seen := make(map[string]*FragmentSpec, len(s.Fragments))
	for i := range s.Fragments {
		f := &s.Fragments[i]
		if err := ValidateID(f.ID); err != nil {
			errs = append(errs, fmt.Errorf("set %s: fragment %q: %w", s.Name, f.ID, err))
		}
		if f.Content == "" {
			errs = append(errs, fmt.Errorf("fragment %s: %w", f.ID, ErrContent))
		}
		if !isKnownKind(f.Anchor.Kind) {
			errs = append(errs, fmt.Errorf("fragment %s: %w: %q", f.ID, ErrUnknownAnchor, f.Anchor.Kind))
		} else if f.Marker == nil && f.Anchor.Kind != KindReplaceRegexGroup {
			errs = append(errs, fmt.Errorf("fragment %s: %w", f.ID, ErrMissingMarker))
		}
		for _, req := range f.Requires {
			prev, ok := seen[req]
			if !ok || prev.Marker == nil || prev.EachDepartment || f.EachDepartment {
				errs = append(errs, fmt.Errorf("fragment %s requires %q: %w", f.ID, req, ErrBadRequires))
			}
		}
		seen[f.ID] = f
	}
	if len(errs) > 0 {
		return errs
	}

	// Bind against every page shape the set can see so patterns compile
	// and markers hold with real values substituted.
	pages := []Page{{Rel: "index.html"}}
	if s.PageDepartment {
		pages = pages[:0]
		for _, d := range c.Departments {
			pages = append(pages, Page{Rel: "interview/" + d.Code + "/index.html", Department: d.Code})
		}
	}
	for _, p := range pages {
		frags, err := c.Bind(s, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", s.Name, err))
			continue
		}
		errs = append(errs, checkMarkers(frags)...)
	}
	return errs
}

// checkMarkers enforces that applying a fragment adds exactly one
// occurrence of its own marker and does not make a sibling look present.
// Regex group rewrites are exempt: they converge on their own span.
func checkMarkers(frags []inject.Fragment) []error {
	var errs []error
	for _, f := range frags {
		if _, ok := f.Anchor.(inject.ReplaceRegexGroup); ok {
			continue
		}
		switch m := f.Marker.(type) {
		case inject.Literal:
			if n := m.Count(f.Content); n != 1 {
				errs = append(errs, fmt.Errorf("fragment %s: %w (found %d)", f.ID, ErrMarkerCount, n))
			}
		default:
			if !m.Present(f.Content) {
				errs = append(errs, fmt.Errorf("fragment %s: %w (found 0)", f.ID, ErrMarkerCount))
			}
		}
		for _, other := range frags {
			if other.ID != f.ID && other.Marker != nil && other.Marker.Present(f.Content) {
				errs = append(errs, fmt.Errorf("fragment %s contains marker of %s: %w", f.ID, other.ID, ErrMarkerCollision))
			}
		}
	}
	return errs
}

func (c *Catalog) validateRecipe(r Recipe) error {
	if err := ValidateID(r.Name); err != nil {
		return fmt.Errorf("recipe %q: %w", r.Name, err)
	}
	if r.Template == "" || r.Output == "" {
		return fmt.Errorf("recipe %s: template and output are required", r.Name)
	}
	for _, p := range r.Pairs {
		if p.Find == "" {
			return fmt.Errorf("recipe %s: %w", r.Name, expand.ErrEmptyFind)
		}
	}
	for _, code := range r.Departments {
		if _, ok := c.Department(code); !ok {
			return fmt.Errorf("recipe %s: %w: %q", r.Name, ErrUnknownDepartment, code)
		}
	}
	return nil
}

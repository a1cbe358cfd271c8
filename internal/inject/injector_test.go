package inject_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/joestump/sitepatch/internal/inject"
)

func navFragment() inject.Fragment {
	return inject.Fragment{
		ID:      "nav",
		Content: `<nav class="dept-navigation">...</nav>`,
		Marker:  inject.Literal("dept-navigation"),
		Anchor:  inject.AfterLiteral{Text: "</header>"},
	}
}

func TestApply_InsertsAfterHeaderThenSkips(t *testing.T) {
	doc := `<head>...</head><body><header>X</header></body>`
	want := `<head>...</head><body><header>X</header><nav class="dept-navigation">...</nav></body>`

	got, rep := inject.Apply(doc, []inject.Fragment{navFragment()})
	if got != want {
		t.Fatalf("first run:\n got %q\nwant %q", got, want)
	}
	if diff := cmp.Diff([]string{"nav"}, rep.Applied); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}

	again, rep2 := inject.Apply(got, []inject.Fragment{navFragment()})
	if again != got {
		t.Errorf("second run changed the document:\n got %q\nwant %q", again, got)
	}
	if diff := cmp.Diff([]string{"nav"}, rep2.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if rep2.Changed() {
		t.Error("second run reported a change")
	}
}

func TestApply_AnchorNotFoundLeavesDocument(t *testing.T) {
	doc := `<head>...</head><body></body>`

	got, rep := inject.Apply(doc, []inject.Fragment{navFragment()})
	if got != doc {
		t.Errorf("document changed: %q", got)
	}
	if diff := cmp.Diff([]string{"nav"}, rep.AnchorNotFound); diff != "" {
		t.Errorf("anchorNotFound mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Applied) != 0 || len(rep.Skipped) != 0 {
		t.Errorf("unexpected outcomes: %+v", rep)
	}
}

func TestApply_RequiresPredecessor(t *testing.T) {
	script := inject.Fragment{
		ID:       "particles-script",
		Content:  `<script id="particles-script"></script>`,
		Marker:   inject.Literal(`id="particles-script"`),
		Anchor:   inject.BeforeLiteral{Text: "</body>", Occurrence: inject.Last},
		Requires: []string{"particles-container"},
	}
	container := inject.Fragment{
		ID:      "particles-container",
		Content: `<div id="particlesContainer"></div>`,
		Marker:  inject.Literal(`id="particlesContainer"`),
		Anchor:  inject.AfterStartTag{Tag: "body"},
	}

	t.Run("blocked when predecessor missing", func(t *testing.T) {
		doc := `<body><p>x</p></body>`
		got, rep := inject.Apply(doc, []inject.Fragment{script})
		if got != doc {
			t.Errorf("document changed: %q", got)
		}
		if diff := cmp.Diff([]string{"particles-script"}, rep.Blocked); diff != "" {
			t.Errorf("blocked mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("applied after predecessor in same pass", func(t *testing.T) {
		doc := `<body><p>x</p></body>`
		want := `<body><div id="particlesContainer"></div><p>x</p><script id="particles-script"></script></body>`
		got, rep := inject.Apply(doc, []inject.Fragment{container, script})
		if got != want {
			t.Errorf("got %q\nwant %q", got, want)
		}
		if diff := cmp.Diff([]string{"particles-container", "particles-script"}, rep.Applied); diff != "" {
			t.Errorf("applied mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestApply_ReplaceRegexGroupConverges(t *testing.T) {
	zindex := inject.Fragment{
		ID:      "robot-z-index",
		Content: "-1",
		Anchor: inject.ReplaceRegexGroup{
			Pattern: regexp.MustCompile(`#bg-robot-container\s*\{[^}]*?z-index:\s*(-?\d+)`),
			Group:   1,
		},
	}
	doc := `<style>#bg-robot-container { position: fixed; z-index: 1; }</style>`
	want := `<style>#bg-robot-container { position: fixed; z-index: -1; }</style>`

	got, rep := inject.Apply(doc, []inject.Fragment{zindex})
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	if len(rep.Applied) != 1 {
		t.Errorf("applied = %v, want [robot-z-index]", rep.Applied)
	}

	again, rep2 := inject.Apply(got, []inject.Fragment{zindex})
	if again != got {
		t.Errorf("second run changed the document: %q", again)
	}
	if diff := cmp.Diff([]string{"robot-z-index"}, rep2.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_ReplaceEveryMatch(t *testing.T) {
	zindex := inject.Fragment{
		ID:      "robot-z-index",
		Content: "-1",
		Anchor: inject.ReplaceRegexGroup{
			Pattern:    regexp.MustCompile(`#bg-robot-container\s*\{[^}]*?z-index:\s*(-?\d+)`),
			Group:      1,
			Occurrence: inject.All,
		},
	}
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "two stale blocks",
			doc:  "<style>#bg-robot-container { z-index: 1; }</style>\n<style>#bg-robot-container { z-index: 1; }</style>",
			want: "<style>#bg-robot-container { z-index: -1; }</style>\n<style>#bg-robot-container { z-index: -1; }</style>",
		},
		{
			name: "first block already pinned",
			doc:  "<style>#bg-robot-container { z-index: -1; }</style>\n<style>#bg-robot-container { z-index: 1; }</style>",
			want: "<style>#bg-robot-container { z-index: -1; }</style>\n<style>#bg-robot-container { z-index: -1; }</style>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rep := inject.Apply(tt.doc, []inject.Fragment{zindex})
			if got != tt.want {
				t.Fatalf("got %q\nwant %q", got, tt.want)
			}
			if diff := cmp.Diff([]string{"robot-z-index"}, rep.Applied); diff != "" {
				t.Errorf("applied mismatch (-want +got):\n%s", diff)
			}

			again, rep2 := inject.Apply(got, []inject.Fragment{zindex})
			if again != got {
				t.Errorf("second run changed the document: %q", again)
			}
			if diff := cmp.Diff([]string{"robot-z-index"}, rep2.Skipped); diff != "" {
				t.Errorf("skipped mismatch (-want +got):\n%s", diff)
			}
		})
	}

	literal := inject.Fragment{
		ID:      "left",
		Content: "left: 0;",
		Anchor:  inject.ReplaceLiteral{Text: "right: 0;", Occurrence: inject.All},
	}
	got, _ := inject.Apply(".a { right: 0; } .b { right: 0; }", []inject.Fragment{literal})
	if want := ".a { left: 0; } .b { left: 0; }"; got != want {
		t.Errorf("replace literal all = %q, want %q", got, want)
	}
}

func TestApply_ReplaceLiteralWithMarker(t *testing.T) {
	options := inject.Fragment{
		ID:      "topic-options",
		Content: `<select id="topic-select"><option value="circuits">Circuits</option></select>`,
		Marker:  inject.Literal(`value="circuits"`),
		Anchor:  inject.ReplaceLiteral{Text: `<select id="topic-select"><option value="javascript">JavaScript</option></select>`},
	}
	doc := `<form><select id="topic-select"><option value="javascript">JavaScript</option></select></form>`
	want := `<form><select id="topic-select"><option value="circuits">Circuits</option></select></form>`

	got, _ := inject.Apply(doc, []inject.Fragment{options})
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	_, rep := inject.Apply(got, []inject.Fragment{options})
	if diff := cmp.Diff([]string{"topic-options"}, rep.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck(t *testing.T) {
	f := navFragment()

	if _, err := inject.Check(`<header></header><nav class="dept-navigation"></nav>`, f); !errors.Is(err, inject.ErrAlreadyApplied) {
		t.Errorf("present: err = %v, want ErrAlreadyApplied", err)
	}
	if _, err := inject.Check(`<body></body>`, f); !errors.Is(err, inject.ErrAnchorNotFound) {
		t.Errorf("no anchor: err = %v, want ErrAnchorNotFound", err)
	}
	span, err := inject.Check(`<header></header>`, f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if span != (inject.Span{Start: 17, End: 17}) {
		t.Errorf("span = %+v, want {17 17}", span)
	}
}

// propertyFragments is a mixed set used to exercise the injector invariants.
func propertyFragments() []inject.Fragment {
	return []inject.Fragment{
		{
			ID:      "theme-css",
			Content: "<style id=\"theme-css\">body{background:#000}</style>\n",
			Marker:  inject.Literal(`id="theme-css"`),
			Anchor:  inject.BeforeEndTag{Tag: "head"},
		},
		{
			ID:      "nav",
			Content: `<nav class="dept-navigation"></nav>`,
			Marker:  inject.Literal("dept-navigation"),
			Anchor:  inject.AfterElement{Selector: inject.Selector{Tag: "header"}},
		},
		{
			ID:       "nav-script",
			Content:  `<script id="nav-script"></script>`,
			Marker:   inject.AnyOf{inject.Literal(`id="nav-script"`), inject.Literal("navScriptLoaded")},
			Anchor:   inject.BeforeEndTag{Tag: "body", Occurrence: inject.Last},
			Requires: []string{"nav"},
		},
		{
			ID:      "bg-z-index",
			Content: "-1",
			Anchor: inject.ReplaceRegexGroup{
				Pattern: regexp.MustCompile(`#bg\s*\{[^}]*?z-index:\s*(-?\d+)`),
				Group:   1,
			},
		},
	}
}

var propertyDocs = map[string]string{
	"full page": `<!doctype html><html><head><title>t</title><style>#bg { position: fixed; z-index: 1; }</style></head>` +
		`<body><header>X</header><main><p>m</p></main></body></html>`,
	"no header": `<html><head></head><body><main>m</main></body></html>`,
	"manually patched": `<html><head></head><body><header>X</header><nav class="dept-navigation">old</nav>` +
		`<script>window.navScriptLoaded = true;</script></body></html>`,
	"body text in script": `<html><head></head><body><header>X</header><script>var s = "</body>";</script></body></html>`,
	"empty":               ``,
}

func TestApply_Idempotent(t *testing.T) {
	frags := propertyFragments()
	for name, doc := range propertyDocs {
		t.Run(name, func(t *testing.T) {
			once, _ := inject.Apply(doc, frags)
			twice, rep := inject.Apply(once, frags)
			if twice != once {
				t.Errorf("not idempotent:\n once %q\ntwice %q", once, twice)
			}
			if rep.Changed() {
				t.Errorf("second run applied %v", rep.Applied)
			}
		})
	}
}

func TestApply_PresenceImpliesSkip(t *testing.T) {
	frags := propertyFragments()
	for name, doc := range propertyDocs {
		t.Run(name, func(t *testing.T) {
			_, rep := inject.Apply(doc, frags)
			for _, f := range frags {
				if !inject.IsPresent(doc, f) {
					continue
				}
				if !contains(rep.Skipped, f.ID) {
					t.Errorf("%s present but not skipped: %+v", f.ID, rep)
				}
				if contains(rep.Applied, f.ID) {
					t.Errorf("%s present but applied", f.ID)
				}
			}
		})
	}
}

func TestApply_InsertionCountAndOrder(t *testing.T) {
	for name, doc := range propertyDocs {
		for _, f := range propertyFragments() {
			lit, ok := f.Marker.(inject.Literal)
			if !ok || f.Anchor.Replaces() || len(f.Requires) > 0 {
				continue
			}
			t.Run(name+"/"+f.ID, func(t *testing.T) {
				span, err := inject.Check(doc, f)
				out, rep := inject.Apply(doc, []inject.Fragment{f})
				if err != nil {
					if out != doc {
						t.Errorf("unapplied fragment changed document: %q", out)
					}
					return
				}
				if !contains(rep.Applied, f.ID) {
					t.Fatalf("expected %s applied, report %+v", f.ID, rep)
				}
				if got, want := lit.Count(out), lit.Count(doc)+1; got != want {
					t.Errorf("marker count = %d, want %d", got, want)
				}
				end := span.Start + len(f.Content)
				if out[:span.Start] != doc[:span.Start] {
					t.Errorf("prefix changed")
				}
				if out[end:] != doc[span.Start:] {
					t.Errorf("suffix changed")
				}
				if out[span.Start:end] != f.Content {
					t.Errorf("inserted %q, want %q", out[span.Start:end], f.Content)
				}
			})
		}
	}
}

func TestApply_ScriptAnchorsOnRealBodyTag(t *testing.T) {
	doc := propertyDocs["body text in script"]
	out, rep := inject.Apply(doc, propertyFragments())
	if !contains(rep.Applied, "nav-script") {
		t.Fatalf("nav-script not applied: %+v", rep)
	}
	if !strings.HasSuffix(out, `<script id="nav-script"></script></body></html>`) {
		t.Errorf("script not placed before the closing body tag: %q", out)
	}
	if !strings.Contains(out, `var s = "</body>";`) {
		t.Errorf("script body was modified: %q", out)
	}
}

func TestReport_Merge(t *testing.T) {
	a := inject.Report{Applied: []string{"a"}, Skipped: []string{"b"}}
	a.Merge(inject.Report{Applied: []string{"c"}, AnchorNotFound: []string{"d"}, Blocked: []string{"e"}})
	want := inject.Report{
		Applied:        []string{"a", "c"},
		Skipped:        []string{"b"},
		AnchorNotFound: []string{"d"},
		Blocked:        []string{"e"},
	}
	if diff := cmp.Diff(want, a, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

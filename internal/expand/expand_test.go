package expand_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joestump/sitepatch/internal/expand"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		pairs    []expand.Pair
		want     string
	}{
		{
			name:     "replaces every occurrence",
			template: "department: 'CS' and department: 'CS'",
			pairs:    []expand.Pair{{Find: "'CS'", Replace: "'EE'"}},
			want:     "department: 'EE' and department: 'EE'",
		},
		{
			name:     "later pairs see earlier output",
			template: "<h2>AI Interview</h2>",
			pairs: []expand.Pair{
				{Find: "AI Interview", Replace: "{{name}} AI Interview"},
				{Find: "{{name}}", Replace: "Civil Engineering"},
			},
			want: "<h2>Civil Engineering AI Interview</h2>",
		},
		{
			name:     "disjoint pairs are order independent",
			template: "javascript: { python: {",
			pairs: []expand.Pair{
				{Find: "python: {", Replace: "hydraulics: {"},
				{Find: "javascript: {", Replace: "structures: {"},
			},
			want: "structures: { hydraulics: {",
		},
		{
			name:     "empty find is ignored",
			template: "abc",
			pairs:    []expand.Pair{{Find: "", Replace: "x"}},
			want:     "abc",
		},
		{name: "no pairs", template: "abc", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expand.Expand(tt.template, tt.pairs); got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVars(t *testing.T) {
	pairs := expand.Vars([]string{"dept", "name"}, map[string]string{"dept": "me", "name": "Mechanical"})
	got := expand.Expand("{{dept}}: {{name}} {{missing}}", pairs)
	if want := "me: Mechanical {{missing}}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestGenerator_Run(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "interview/cs/ai-interview.html", "<title>SmartMock – AI Interview</title> department: 'cs'")

	jobs := []expand.Job{
		{
			Name:     "ai-interview",
			Template: "interview/cs/ai-interview.html",
			Output:   "interview/me/ai-interview.html",
			Pairs: []expand.Pair{
				{Find: "SmartMock – AI Interview", Replace: "SmartMock – ME AI Interview"},
				{Find: "department: 'cs'", Replace: "department: 'ME'"},
			},
		},
		{
			Name:     "missing template",
			Template: "interview/cs/nope.html",
			Output:   "interview/me/nope.html",
		},
		{
			Name:     "bad pair",
			Template: "interview/cs/ai-interview.html",
			Output:   "interview/ce/ai-interview.html",
			Pairs:    []expand.Pair{{Find: "", Replace: "x"}},
		},
	}

	g := &expand.Generator{Root: root}
	results := g.Run(context.Background(), jobs)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || !results[0].Written {
		t.Errorf("first job = %+v, want written", results[0])
	}
	if got, want := readFile(t, root, "interview/me/ai-interview.html"), "<title>SmartMock – ME AI Interview</title> department: 'ME'"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if results[1].Err == nil {
		t.Error("missing template did not fail")
	}
	if !errors.Is(results[2].Err, expand.ErrEmptyFind) {
		t.Errorf("bad pair err = %v, want ErrEmptyFind", results[2].Err)
	}

	again := g.Run(context.Background(), jobs[:1])
	if again[0].Written || again[0].Changed {
		t.Errorf("rerun = %+v, want unchanged", again[0])
	}
}

func TestGenerator_DryRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "interview/ee/interview.html", "Electrical Engineering quiz")

	g := &expand.Generator{Root: root, DryRun: true}
	res := g.Run(context.Background(), []expand.Job{{
		Name:     "mcq-interview",
		Template: "interview/ee/interview.html",
		Output:   "interview/ce/interview.html",
		Pairs:    []expand.Pair{{Find: "Electrical Engineering", Replace: "Civil Engineering"}},
	}})
	if !res[0].Changed || res[0].Written {
		t.Errorf("dry run = %+v, want changed but not written", res[0])
	}
	if _, err := os.Stat(filepath.Join(root, "interview", "ce", "interview.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run wrote output: %v", err)
	}
}

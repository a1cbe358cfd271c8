// Package expand derives pages from a template page by ordered literal
// substitution.
package expand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/joestump/sitepatch/internal/metrics"
)

// ErrEmptyFind is returned when a substitution pair has nothing to find.
var ErrEmptyFind = errors.New("substitution with empty find text")

// Pair is one literal find-and-replace step.
type Pair struct {
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

// Expand applies pairs to template in order, each over the whole document.
// A later pair sees the output of earlier ones. Pairs with an empty Find are
// ignored.
func Expand(template string, pairs []Pair) string {
	for _, p := range pairs {
		if p.Find == "" {
			continue
		}
		template = strings.ReplaceAll(template, p.Find, p.Replace)
	}
	return template
}

// Vars turns a placeholder table into pairs. Keys are wrapped as {{key}} and
// emitted in the order given by keys.
func Vars(keys []string, values map[string]string) []Pair {
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Find: "{{" + k + "}}", Replace: values[k]})
	}
	return pairs
}

// Job renders one output page from one template page.
type Job struct {
	Name       string
	Department string
	Template   string // relative to the site root
	Output     string // relative to the site root
	Pairs      []Pair
}

// Result is the outcome of one Job.
type Result struct {
	Job     Job
	Written bool
	Changed bool
	Err     error
}

// Generator runs jobs against a site root.
type Generator struct {
	Root   string
	DryRun bool
	Logger *zap.Logger
}

// Run executes jobs in order. A failing job is logged and reported; it never
// stops the remaining jobs.
func (g *Generator) Run(ctx context.Context, jobs []Job) []Result {
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Job: job, Err: err})
			continue
		}
		res := g.runOne(job)
		switch {
		case res.Err != nil:
			metrics.GeneratedPagesTotal.WithLabelValues("errored").Inc()
			log.Error("generate page",
				zap.String("job", job.Name),
				zap.String("output", job.Output),
				zap.Error(res.Err))
		case res.Written:
			metrics.GeneratedPagesTotal.WithLabelValues("written").Inc()
			log.Info("generated page", zap.String("job", job.Name), zap.String("output", job.Output))
		default:
			metrics.GeneratedPagesTotal.WithLabelValues("unchanged").Inc()
			log.Debug("page unchanged", zap.String("job", job.Name), zap.String("output", job.Output))
		}
		results = append(results, res)
	}
	return results
}

func (g *Generator) runOne(job Job) Result {
	res := Result{Job: job}
	for _, p := range job.Pairs {
		if p.Find == "" {
			res.Err = fmt.Errorf("job %s: %w", job.Name, ErrEmptyFind)
			return res
		}
	}

	src, err := os.ReadFile(filepath.Join(g.Root, filepath.FromSlash(job.Template)))
	if err != nil {
		res.Err = fmt.Errorf("read template %s: %w", job.Template, err)
		return res
	}
	out := Expand(string(src), job.Pairs)

	dst := filepath.Join(g.Root, filepath.FromSlash(job.Output))
	prev, err := os.ReadFile(dst)
	switch {
	case err == nil:
		res.Changed = string(prev) != out
	case errors.Is(err, os.ErrNotExist):
		res.Changed = true
	default:
		res.Err = fmt.Errorf("read output %s: %w", job.Output, err)
		return res
	}
	if !res.Changed || g.DryRun {
		return res
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		res.Err = fmt.Errorf("create output dir for %s: %w", job.Output, err)
		return res
	}
	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		res.Err = fmt.Errorf("write output %s: %w", job.Output, err)
		return res
	}
	res.Written = true
	return res
}

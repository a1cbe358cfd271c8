// Package runner applies the fragment catalog to every discovered page of a
// site. Each file is read whole, patched in memory and written back whole
// only when it changed. A failure on one file is logged and counted; it never
// stops the batch.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/sitepatch/internal/catalog"
	"github.com/joestump/sitepatch/internal/inject"
	"github.com/joestump/sitepatch/internal/metrics"
	"github.com/joestump/sitepatch/internal/preview"
	"github.com/joestump/sitepatch/internal/site"
	"github.com/joestump/sitepatch/internal/store"
)

// Recorder persists per-file results of a run.
type Recorder interface {
	RecordFile(ctx context.Context, runID string, f store.FileReport) error
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string
	Status string // store.StatusUpdated, StatusUnchanged or StatusErrored
	Report inject.Report
	// Unplaced lists inserting fragments whose anchor is missing from the
	// file. Replace anchors that find nothing to rewrite are not listed.
	Unplaced []string
	Err      error
	// Diff is set in dry-run mode when diffs were requested.
	Diff string
}

// Summary aggregates a run.
type Summary struct {
	Files []FileResult

	Updated   int
	Unchanged int
	Errored   int

	Applied        int
	Skipped        int
	AnchorNotFound int
	Blocked        int
}

func (s *Summary) add(r FileResult) {
	s.Files = append(s.Files, r)
	switch r.Status {
	case store.StatusUpdated:
		s.Updated++
	case store.StatusUnchanged:
		s.Unchanged++
	default:
		s.Errored++
	}
	s.Applied += len(r.Report.Applied)
	s.Skipped += len(r.Report.Skipped)
	s.AnchorNotFound += len(r.Report.AnchorNotFound)
	s.Blocked += len(r.Report.Blocked)
}

// Runner applies sets of a catalog to files under Root.
type Runner struct {
	Root    string
	Catalog *catalog.Catalog
	// Sets to apply, in order. Empty means every set in the catalog.
	Sets   []*catalog.Set
	Jobs   int
	DryRun bool
	Diff   bool
	Logger *zap.Logger

	// Recorder and RunID are optional; when set every file result is stored.
	Recorder Recorder
	RunID    string
}

// Run processes files, given as slash paths relative to Root. Results keep
// the order of files regardless of Jobs. The returned error is non-nil only
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, files []string) (*Summary, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sets := r.Sets
	if len(sets) == 0 {
		for i := range r.Catalog.Sets {
			sets = append(sets, &r.Catalog.Sets[i])
		}
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Jobs, 1))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{Path: rel, Status: store.StatusErrored, Err: err}
				return nil
			}
			results[i] = r.processFile(log, sets, rel)
			return nil
		})
	}
	_ = g.Wait()

	sum := &Summary{}
	for _, res := range results {
		sum.add(res)
		metrics.FilesTotal.WithLabelValues(res.Status).Inc()
		for outcome, ids := range res.Report.Outcomes() {
			metrics.FragmentsTotal.WithLabelValues(string(outcome)).Add(float64(len(ids)))
		}
		if r.Recorder != nil && r.RunID != "" {
			if err := r.Recorder.RecordFile(ctx, r.RunID, fileReport(res)); err != nil {
				log.Warn("record file result", zap.String("path", res.Path), zap.Error(err))
			}
		}
	}
	return sum, ctx.Err()
}

func (r *Runner) processFile(log *zap.Logger, sets []*catalog.Set, rel string) FileResult {
	res := FileResult{Path: rel, Report: inject.Report{Path: rel}}
	doc, rep, changed, err := r.patch(sets, rel)
	if err != nil {
		res.Status = store.StatusErrored
		res.Err = err
		log.Error("patch file", zap.String("path", rel), zap.Error(err))
		return res
	}
	res.Report = rep
	res.Unplaced = doc.unplaced

	for outcome, ids := range rep.Outcomes() {
		for _, id := range ids {
			log.Debug("fragment", zap.String("path", rel), zap.String("fragment", id), zap.String("outcome", string(outcome)))
		}
	}

	if !changed {
		res.Status = store.StatusUnchanged
		return res
	}
	res.Status = store.StatusUpdated
	if r.DryRun {
		if r.Diff {
			res.Diff = doc.diff(rel)
		}
		log.Info("would update file", zap.String("path", rel), zap.Strings("applied", rep.Applied))
		return res
	}
	if err := os.WriteFile(doc.path, []byte(doc.after), doc.mode); err != nil {
		res.Status = store.StatusErrored
		res.Err = fmt.Errorf("write %s: %w", rel, err)
		log.Error("write file", zap.String("path", rel), zap.Error(err))
		return res
	}
	log.Info("updated file", zap.String("path", rel), zap.Strings("applied", rep.Applied))
	return res
}

type document struct {
	path     string
	mode     os.FileMode
	before   string
	after    string
	unplaced []string
}

func (d document) diff(rel string) string { return preview.Unified(rel, d.before, d.after) }

// patch applies every set targeting rel. Nothing is written; a binding error
// on any set leaves the whole file untouched.
func (r *Runner) patch(sets []*catalog.Set, rel string) (document, inject.Report, bool, error) {
	doc := document{path: filepath.Join(r.Root, filepath.FromSlash(rel))}
	rep := inject.Report{Path: rel}

	info, err := os.Stat(doc.path)
	if err != nil {
		return doc, rep, false, fmt.Errorf("stat %s: %w", rel, err)
	}
	doc.mode = info.Mode().Perm()
	data, err := os.ReadFile(doc.path)
	if err != nil {
		return doc, rep, false, fmt.Errorf("read %s: %w", rel, err)
	}
	doc.before = string(data)
	doc.after = doc.before

	page := catalog.Page{Rel: rel, Department: site.DepartmentOf(rel)}
	for _, s := range sets {
		if !s.Matches(rel) {
			continue
		}
		frags, err := r.Catalog.Bind(s, page)
		if err != nil {
			return doc, rep, false, err
		}
		var setRep inject.Report
		doc.after, setRep = inject.Apply(doc.after, frags)
		rep.Merge(setRep)
		for _, f := range frags {
			if !f.Anchor.Replaces() && slices.Contains(setRep.AnchorNotFound, f.ID) {
				doc.unplaced = append(doc.unplaced, f.ID)
			}
		}
	}
	return doc, rep, doc.after != doc.before, nil
}

func fileReport(res FileResult) store.FileReport {
	f := store.FileReport{Path: res.Path, Status: res.Status}
	if res.Err != nil {
		f.Message = res.Err.Error()
	}
	for outcome, ids := range res.Report.Outcomes() {
		for _, id := range ids {
			f.Outcomes = append(f.Outcomes, store.FragmentOutcome{FragmentID: id, Outcome: string(outcome)})
		}
	}
	return f
}

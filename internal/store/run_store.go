package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Run is one recorded invocation of apply or generate.
type Run struct {
	ID         string     `db:"id"`
	Command    string     `db:"command"`
	DryRun     bool       `db:"dry_run"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Updated    int        `db:"updated"`
	Unchanged  int        `db:"unchanged"`
	Errored    int        `db:"errored"`
}

// Counts are the per-status file totals of a finished run.
type Counts struct {
	Updated   int
	Unchanged int
	Errored   int
}

// FileReport is the outcome of one file within a run.
type FileReport struct {
	ID       string            `db:"id"`
	RunID    string            `db:"run_id"`
	Path     string            `db:"path"`
	Status   string            `db:"status"`
	Message  string            `db:"message"`
	Outcomes []FragmentOutcome `db:"-"`
}

// FragmentOutcome is what the injector did with one fragment in one file.
type FragmentOutcome struct {
	FileReportID string `db:"file_report_id"`
	FragmentID   string `db:"fragment_id"`
	Outcome      string `db:"outcome"`
}

// RunStore is the sqlx-backed run history store.
type RunStore struct {
	db *sqlx.DB
}

var _ RunStoreIface = (*RunStore)(nil)

// NewRunStore creates a new RunStore.
func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// q rebinds ? placeholders to the driver's native format.
func (s *RunStore) q(query string) string { return s.db.Rebind(query) }

// Start inserts a new, unfinished run.
func (s *RunStore) Start(ctx context.Context, command string, dryRun bool) (*Run, error) {
	r := &Run{
		ID:        uuid.New().String(),
		Command:   command,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO runs (id, command, dry_run, started_at)
		VALUES (?, ?, ?, ?)
	`), r.ID, r.Command, r.DryRun, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// RecordFile stores one file report and its fragment outcomes.
func (s *RunStore) RecordFile(ctx context.Context, runID string, f FileReport) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO file_reports (id, run_id, path, status, message)
		VALUES (?, ?, ?, ?, ?)
	`), id, runID, f.Path, f.Status, f.Message); err != nil {
		return fmt.Errorf("insert file report %s: %w", f.Path, err)
	}

	for _, o := range f.Outcomes {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO fragment_outcomes (file_report_id, fragment_id, outcome)
			VALUES (?, ?, ?)
		`), id, o.FragmentID, o.Outcome); err != nil {
			return fmt.Errorf("insert outcome %s for %s: %w", o.FragmentID, f.Path, err)
		}
	}
	return tx.Commit()
}

// Finish stamps the run's end time and file totals.
func (s *RunStore) Finish(ctx context.Context, runID string, c Counts) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE runs SET finished_at = ?, updated = ?, unchanged = ?, errored = ?
		WHERE id = ?
	`), time.Now().UTC(), c.Updated, c.Unchanged, c.Errored, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.SelectContext(ctx, &runs, s.q(`
		SELECT id, command, dry_run, started_at, finished_at, updated, unchanged, errored
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Get returns the run with id.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, s.q(`
		SELECT id, command, dry_run, started_at, finished_at, updated, unchanged, errored
		FROM runs WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Files returns the file reports of a run ordered by path, each with its
// fragment outcomes.
func (s *RunStore) Files(ctx context.Context, runID string) ([]*FileReport, error) {
	var files []*FileReport
	if err := s.db.SelectContext(ctx, &files, s.q(`
		SELECT id, run_id, path, status, message
		FROM file_reports
		WHERE run_id = ?
		ORDER BY path
	`), runID); err != nil {
		return nil, err
	}

	var outcomes []FragmentOutcome
	if err := s.db.SelectContext(ctx, &outcomes, s.q(`
		SELECT o.file_report_id, o.fragment_id, o.outcome
		FROM fragment_outcomes o
		JOIN file_reports f ON f.id = o.file_report_id
		WHERE f.run_id = ?
		ORDER BY o.fragment_id
	`), runID); err != nil {
		return nil, err
	}

	byID := make(map[string]*FileReport, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	for _, o := range outcomes {
		if f, ok := byID[o.FileReportID]; ok {
			f.Outcomes = append(f.Outcomes, o)
		}
	}
	return files, nil
}

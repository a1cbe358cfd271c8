// Package store records what each apply or generate run did to the site.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// File statuses recorded per file report.
const (
	StatusUpdated   = "updated"
	StatusUnchanged = "unchanged"
	StatusErrored   = "errored"
)

// RunStoreIface exposes all run history operations.
type RunStoreIface interface {
	Start(ctx context.Context, command string, dryRun bool) (*Run, error)
	RecordFile(ctx context.Context, runID string, f FileReport) error
	Finish(ctx context.Context, runID string, counts Counts) error
	List(ctx context.Context, limit int) ([]*Run, error)
	Get(ctx context.Context, id string) (*Run, error)
	Files(ctx context.Context, runID string) ([]*FileReport, error)
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/joestump/sitepatch/internal/catalog"
	"github.com/joestump/sitepatch/internal/config"
	"github.com/joestump/sitepatch/internal/db"
	"github.com/joestump/sitepatch/internal/logging"
	"github.com/joestump/sitepatch/internal/metrics"
	"github.com/joestump/sitepatch/internal/store"
)

var errHistoryDisabled = errors.New("run history is disabled (SITEPATCH_HISTORY_ENABLED=false)")

type globalOptions struct {
	root       string
	catalogDir string
	debug      bool
}

// appEnv is what every subcommand starts from.
type appEnv struct {
	cfg *config.Config
	log *zap.Logger
}

func setup(opts *globalOptions) (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.root != "" {
		cfg.Root = opts.root
	}
	if opts.catalogDir != "" {
		cfg.CatalogDir = opts.catalogDir
	}
	if opts.debug {
		cfg.Log.Debug = true
	}

	logger, err := logging.New(cfg.Log.Debug)
	if err != nil {
		return nil, err
	}
	return &appEnv{cfg: cfg, log: logger}, nil
}

func (e *appEnv) close() { _ = e.log.Sync() }

func (e *appEnv) catalog() (*catalog.Catalog, error) {
	return catalog.Open(e.cfg.CatalogDir)
}

// observe records the command duration and flushes the metrics textfile.
func (e *appEnv) observe(command string, start time.Time) {
	metrics.RunDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err := metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
		e.log.Warn("metrics textfile", zap.Error(err))
	}
}

// history is an open run history database.
type history struct {
	db   *sqlx.DB
	runs *store.RunStore
}

// openHistory opens and migrates the history database. It returns nil, nil
// when history is disabled.
func (e *appEnv) openHistory() (*history, error) {
	if !e.cfg.History.Enabled {
		return nil, nil
	}
	database, err := db.New(e.cfg.DB.Driver, e.cfg.HistoryDSN())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, e.cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, err
	}
	return &history{db: database, runs: store.NewRunStore(database)}, nil
}

func (h *history) close() {
	if h != nil {
		_ = h.db.Close()
	}
}

// start opens a run record. A nil history yields an empty run id.
func (h *history) start(ctx context.Context, log *zap.Logger, command string, dryRun bool) string {
	if h == nil {
		return ""
	}
	run, err := h.runs.Start(ctx, command, dryRun)
	if err != nil {
		log.Warn("start run record", zap.Error(err))
		return ""
	}
	return run.ID
}

func (h *history) finish(ctx context.Context, log *zap.Logger, runID string, c store.Counts) {
	if h == nil || runID == "" {
		return
	}
	if err := h.runs.Finish(ctx, runID, c); err != nil {
		log.Warn("finish run record", zap.String("run_id", runID), zap.Error(err))
	}
}

package migrations

// The runs table is created from Go because timestamp and boolean column
// types differ by driver: DATETIME/INTEGER for SQLite, TIMESTAMPTZ/BOOLEAN
// for PostgreSQL, TIMESTAMP(6)/BOOLEAN for MySQL.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateRuns, downCreateRuns)
}

func upCreateRuns(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    command     TEXT NOT NULL,
    dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NULL,
    updated     INTEGER NOT NULL DEFAULT 0,
    unchanged   INTEGER NOT NULL DEFAULT 0,
    errored     INTEGER NOT NULL DEFAULT 0
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS runs (
    id          VARCHAR(36) PRIMARY KEY,
    command     VARCHAR(32) NOT NULL,
    dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
    started_at  TIMESTAMP(6) NOT NULL,
    finished_at TIMESTAMP(6) NULL,
    updated     INTEGER NOT NULL DEFAULT 0,
    unchanged   INTEGER NOT NULL DEFAULT 0,
    errored     INTEGER NOT NULL DEFAULT 0
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    command     TEXT NOT NULL,
    dry_run     INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NULL,
    updated     INTEGER NOT NULL DEFAULT 0,
    unchanged   INTEGER NOT NULL DEFAULT 0,
    errored     INTEGER NOT NULL DEFAULT 0
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	_, err := tx.ExecContext(ctx, `CREATE INDEX runs_started_at_idx ON runs (started_at)`)
	return err
}

func downCreateRuns(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS runs`)
	return err
}

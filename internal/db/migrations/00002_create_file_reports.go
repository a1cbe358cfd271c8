package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateFileReports, downCreateFileReports)
}

func upCreateFileReports(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range fileReportsUpStmts() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create file report tables: %w", err)
		}
	}
	return nil
}

func downCreateFileReports(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS fragment_outcomes`,
		`DROP TABLE IF EXISTS file_reports`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func fileReportsUpStmts() []string {
	// MySQL cannot index TEXT columns without a prefix length.
	id, path := "TEXT", "TEXT"
	if dialect == "mysql" {
		id, path = "VARCHAR(36)", "VARCHAR(512)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS file_reports (
    id      %[1]s PRIMARY KEY,
    run_id  %[1]s NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    path    %[2]s NOT NULL,
    status  VARCHAR(16) NOT NULL,
    message TEXT NOT NULL
)`, id, path),
		`CREATE INDEX file_reports_run_id_idx ON file_reports (run_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fragment_outcomes (
    file_report_id %[1]s NOT NULL REFERENCES file_reports(id) ON DELETE CASCADE,
    fragment_id    VARCHAR(128) NOT NULL,
    outcome        VARCHAR(32) NOT NULL,
    PRIMARY KEY (file_report_id, fragment_id)
)`, id),
	}
}

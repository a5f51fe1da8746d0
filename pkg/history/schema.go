package history

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current history database schema version.
const SchemaVersion = 1

// CreateSchema creates the history schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}
	if err := createRunsTable(db); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}
	if err := createIssuesTable(db); err != nil {
		return fmt.Errorf("creating issues table: %w", err)
	}
	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
	}
	return err
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			files INTEGER NOT NULL,
			issues INTEGER NOT NULL,
			applied INTEGER NOT NULL
		)
	`)
	return err
}

func createIssuesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			issue_id TEXT NOT NULL,
			path TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			start_column INTEGER NOT NULL,
			message TEXT NOT NULL,
			applied INTEGER NOT NULL,
			UNIQUE(run_id, path, issue_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_issues_run_id ON issues(run_id)
	`)
	return err
}

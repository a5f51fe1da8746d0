// Package history persists analysis runs and their findings in a SQLite
// database, so `pipefix history` can show what was found and fixed over time.
// The driver is pure Go; ":memory:" gives an ephemeral store for tests.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pipefix/pipefix/pkg/types"
)

// Run is one recorded invocation.
type Run struct {
	ID        int64
	StartedAt time.Time
	Mode      string
	Files     int
	Issues    int
	Applied   int
}

// Record is one issue observed during a run.
type Record struct {
	Path    string
	Issue   types.Issue
	Applied bool
}

// Store is a SQLite-backed history database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// AddRun records one invocation and returns its row ID.
func (s *Store) AddRun(startedAt time.Time, mode string, files, issues, applied int) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO runs (started_at, mode, files, issues, applied)
		VALUES (?, ?, ?, ?, ?)
	`, startedAt.UTC().Format(time.RFC3339), mode, files, issues, applied)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// AddIssue records one issue under a run. Duplicate (run, path, issue)
// triples are ignored.
func (s *Store) AddIssue(runID int64, path string, is types.Issue, applied bool) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO issues (run_id, issue_id, path, severity, category, start_line, start_column, message, applied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		is.ID,
		path,
		string(is.Severity),
		string(is.Category),
		is.Span.Source.Start.Line,
		is.Span.Source.Start.Column,
		is.Message,
		applied,
	)
	if err != nil {
		return fmt.Errorf("inserting issue: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, mode, files, issues, applied
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Mode, &r.Files, &r.Issues, &r.Applied); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parsing run timestamp: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// RunIssues returns the issues recorded for a run in insertion order.
func (s *Store) RunIssues(runID int64) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT issue_id, path, severity, category, start_line, start_column, message, applied
		FROM issues
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var severity, category string
		err := rows.Scan(
			&rec.Issue.ID,
			&rec.Path,
			&severity,
			&category,
			&rec.Issue.Span.Source.Start.Line,
			&rec.Issue.Span.Source.Start.Column,
			&rec.Issue.Message,
			&rec.Applied,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		rec.Issue.Severity = types.Severity(severity)
		rec.Issue.Category = types.Category(category)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issues: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipefix/pipefix/pkg/config"
	"github.com/pipefix/pipefix/pkg/history"
	"github.com/pipefix/pipefix/pkg/types"
)

func seedHistory(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := history.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	runID, err := s.AddRun(time.Now(), "suggest", 1, 1, 0)
	require.NoError(t, err)
	require.NoError(t, s.AddIssue(runID, "ci.yml", types.Issue{
		ID:       "issue-1",
		Severity: types.SeverityWarning,
		Category: types.CategoryCaching,
		Message:  "cache key has no restore-keys fallback",
	}, false))
	return dbPath
}

func TestRunHistoryListsRuns(t *testing.T) {
	setupWorkspace(t, cleanWorkflow)
	historyDB = seedHistory(t)
	defer func() { historyDB = "" }()
	historyLimit = 20

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runHistory(cmd, nil))
	output := buf.String()
	assert.Contains(t, output, "suggest")
	assert.Contains(t, output, "1 issue(s)")
}

func TestRunHistoryShowsRunIssues(t *testing.T) {
	setupWorkspace(t, cleanWorkflow)
	historyDB = seedHistory(t)
	defer func() { historyDB = "" }()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runHistory(cmd, []string{"1"}))
	output := buf.String()
	assert.Contains(t, output, "ci.yml")
	assert.Contains(t, output, "restore-keys")
}

func TestRunHistoryBadRunID(t *testing.T) {
	setupWorkspace(t, cleanWorkflow)
	historyDB = seedHistory(t)
	defer func() { historyDB = "" }()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runHistory(cmd, []string{"not-a-number"})
	assert.ErrorContains(t, err, "invalid run id")
}

func TestRunHistoryUnconfigured(t *testing.T) {
	setupWorkspace(t, cleanWorkflow)
	historyDB = ""

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runHistory(cmd, nil)
	assert.ErrorContains(t, err, "no history database configured")
}

func TestRecordHistorySkippedWithoutDB(t *testing.T) {
	// A config without a history path must be a silent no-op.
	require.NoError(t, recordHistory(config.Default(), "suggest", nil, nil))
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipefix/pipefix/pkg/config"
	"github.com/pipefix/pipefix/pkg/history"
	"github.com/pipefix/pipefix/pkg/report"
)

var (
	historyLimit int
	historyDB    string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past analysis runs",
	Long: `List recorded analysis runs, or show the issues found in one run.
Runs are recorded only when a history database is configured (the "history"
key in .pipefix.yml or PIPEFIX_HISTORY).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyDB, "db", "", "History database path (overrides configuration)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	path := historyDB
	if path == "" {
		path = cfg.History
	}
	if path == "" {
		return fmt.Errorf("no history database configured: set %q in %s or pass --db", "history", config.FileName)
	}

	s, err := history.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		records, err := s.RunIssues(runID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			status := " "
			if rec.Applied {
				status = "fixed"
			}
			fmt.Fprintf(out, "%s:%d:%d [%s] %s %s\n",
				rec.Path,
				rec.Issue.Span.Source.Start.Line, rec.Issue.Span.Source.Start.Column,
				rec.Issue.Category, rec.Issue.Message, status)
		}
		return nil
	}

	runs, err := s.Runs(historyLimit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%-6d %s %-8s %d file(s), %d issue(s), %d applied\n",
			r.ID, r.StartedAt.Local().Format(time.RFC3339), r.Mode, r.Files, r.Issues, r.Applied)
	}
	return nil
}

// recordHistory persists a run and its issues when a history database is
// configured. appliedByFile maps path to the issue IDs whose fixes were
// written; nil means nothing was applied.
func recordHistory(cfg config.Config, mode string, reports []report.FileReport, appliedByFile map[string]map[string]bool) error {
	if cfg.History == "" {
		return nil
	}

	s, err := history.Open(cfg.History)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer s.Close()

	issues, applied := 0, 0
	for _, fr := range reports {
		issues += len(fr.Issues)
		applied += fr.Applied
	}

	runID, err := s.AddRun(time.Now(), mode, len(reports), issues, applied)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	for _, fr := range reports {
		for _, is := range fr.Issues {
			if err := s.AddIssue(runID, fr.Path, is, appliedByFile[fr.Path][is.ID]); err != nil {
				return fmt.Errorf("recording issue: %w", err)
			}
		}
	}
	return nil
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pipefix/pipefix"
	"github.com/pipefix/pipefix/pkg/config"
	"github.com/pipefix/pipefix/pkg/report"
)

var (
	fixFormat string
	fixDryRun bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [file...]",
	Short: "Apply safe fixes to pipeline files",
	Long: `Analyze CI pipeline files and rewrite them with the accepted fixes.
Conflicting edits are resolved by severity: when two fixes touch the same
text, the higher-priority one wins and the other is reported for manual
attention. A .bak copy of each modified file is kept unless backups are
disabled in the configuration.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixFormat, "format", "human", "Output format: json, human")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Report what would change without writing files")
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	var (
		reports  []report.FileReport
		applied  = make(map[string]map[string]bool)
		writeErr error
	)
	err = analyzeRepo(cfg, args, func(path string, content []byte, res *pipefix.Result, err error) {
		fr := newFileReport(path, res, err, cfg.Redact)
		if err == nil && len(res.Plan.Accepted) > 0 {
			if !fixDryRun {
				if werr := writeFixed(path, content, res.Fixed, cfg.Backup); werr != nil {
					writeErr = werr
					fr.Error = werr.Error()
					reports = append(reports, fr)
					return
				}
			}
			fr.Applied = len(res.Plan.Accepted)
			ids := make(map[string]bool, len(res.Plan.Accepted))
			for _, is := range res.Plan.Accepted {
				ids[is.ID] = true
			}
			applied[path] = ids
		}
		reports = append(reports, fr)
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	if err := report.New(cmd.OutOrStdout(), fixFormat).Write(reports); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := recordHistory(cfg, config.ModeAutofix, reports, applied); err != nil {
		return err
	}

	setExitCode(reports)
	return nil
}

// writeFixed replaces path with the fixed text, preserving the file mode and
// optionally keeping the original as path.bak.
func writeFixed(path string, original, fixed []byte, backup bool) error {
	if bytes.Equal(original, fixed) {
		return nil
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	if backup {
		if err := os.WriteFile(path+".bak", original, mode); err != nil {
			return fmt.Errorf("writing backup for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, fixed, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

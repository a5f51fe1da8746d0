package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipefix/pipefix"
	"github.com/pipefix/pipefix/pkg/config"
	"github.com/pipefix/pipefix/pkg/loader"
	"github.com/pipefix/pipefix/pkg/redact"
	"github.com/pipefix/pipefix/pkg/report"
)

var (
	checkFormat     string
	checkCategories string
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Analyze pipeline files and report issues",
	Long: `Analyze CI pipeline files and report every detected issue without
modifying anything. With no arguments, pipeline files are discovered under
the repository root (.github/workflows and .gitlab-ci.yml).`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format: json, human")
	checkCmd.Flags().StringVar(&checkCategories, "categories", "", "Analyzer categories to run (comma-separated)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if checkCategories != "" {
		cfg.Categories = splitList(checkCategories)
	}

	var reports []report.FileReport
	err = analyzeRepo(cfg, args, func(path string, content []byte, res *pipefix.Result, err error) {
		reports = append(reports, newFileReport(path, res, err, cfg.Redact))
	})
	if err != nil {
		return err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	if err := report.New(cmd.OutOrStdout(), checkFormat).Write(reports); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := recordHistory(cfg, config.ModeSuggest, reports, nil); err != nil {
		return err
	}

	setExitCode(reports)
	return nil
}

// analyzeRepo discovers pipeline files per the configuration (or takes the
// explicit paths) and runs the engine over each, invoking visit under a lock.
func analyzeRepo(cfg config.Config, paths []string, visit func(path string, content []byte, res *pipefix.Result, err error)) error {
	l := loader.New(loader.Config{
		Root:        rootDir,
		Paths:       paths,
		Excludes:    cfg.Excludes,
		MaxFileSize: cfg.MaxFileSize,
		Workers:     cfg.Workers,
	}, loaderLogger())

	opts := engineOptions(cfg)
	var mu sync.Mutex
	return l.Enumerate(context.Background(), func(path string, content []byte, err error) error {
		var res *pipefix.Result
		if err == nil {
			res, err = analyzeTimed(content, cfg.Timeout, opts)
		}
		mu.Lock()
		defer mu.Unlock()
		visit(path, content, res, err)
		return nil
	})
}

// analyzeTimed runs the engine with a deadline. Analysis is CPU-bound and has
// no cancellation points, so on timeout the goroutine is abandoned and the
// file is reported as failed.
func analyzeTimed(content []byte, timeout time.Duration, opts []pipefix.Option) (*pipefix.Result, error) {
	if timeout <= 0 {
		return pipefix.Run(content, opts...)
	}

	type outcome struct {
		res *pipefix.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := pipefix.Run(content, opts...)
		done <- outcome{res, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.res, o.err
	case <-timer.C:
		return nil, fmt.Errorf("analysis timed out after %s", timeout)
	}
}

func engineOptions(cfg config.Config) []pipefix.Option {
	if len(cfg.Categories) == 0 {
		return nil
	}
	cats := make([]pipefix.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cats = append(cats, pipefix.Category(c))
	}
	return []pipefix.Option{pipefix.WithCategories(cats...)}
}

func newFileReport(path string, res *pipefix.Result, err error, redactOutput bool) report.FileReport {
	fr := report.FileReport{Path: path}
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Issues = append([]pipefix.Issue(nil), res.Issues...)
	fr.Rejected = res.Plan.Rejected
	if redactOutput {
		for i := range fr.Issues {
			masked, _ := redact.Redact([]byte(fr.Issues[i].Message))
			fr.Issues[i].Message = string(masked)
		}
	}
	return fr
}

// setExitCode marks the run as dirty when any file produced issues or failed.
func setExitCode(reports []report.FileReport) {
	for _, fr := range reports {
		if fr.Error != "" || len(fr.Issues) > 0 {
			exitCode = 1
			return
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type stderrLogger struct{}

func (stderrLogger) Log(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func loaderLogger() loader.DebugLogger {
	if verbose {
		return stderrLogger{}
	}
	return loader.NoopLogger{}
}

// Package loader discovers CI pipeline files and feeds their contents to a
// callback. Discovery is sequential and cheap; file reads run on a parallel
// worker pool. Read failures are handed to the callback so one unreadable
// file never aborts a batch.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// Config controls discovery and the read pool.
type Config struct {
	// Root is the repository root searched for pipeline files. Ignored when
	// Paths is set.
	Root string
	// Paths lists explicit files to load instead of discovering.
	Paths []string
	// Excludes are glob patterns matched against root-relative paths.
	Excludes []string
	// MaxFileSize skips files larger than this many bytes; 0 means no cap.
	MaxFileSize int64
	// Workers bounds the read pool; 0 means one per CPU.
	Workers int
}

// DebugLogger receives progress lines when the caller wants them.
type DebugLogger interface {
	Log(format string, args ...interface{})
}

// NoopLogger drops all log lines.
type NoopLogger struct{}

func (NoopLogger) Log(format string, args ...interface{}) {}

// Loader enumerates pipeline files under one root.
type Loader struct {
	config Config
	logger DebugLogger
}

// New creates a loader. A nil logger is replaced with NoopLogger.
func New(config Config, logger DebugLogger) *Loader {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Loader{config: config, logger: logger}
}

// Discover returns the pipeline files the loader would read, sorted:
// .github/workflows/*.yml and *.yaml plus a root .gitlab-ci.yml, minus
// gitignored and excluded paths.
func (l *Loader) Discover() ([]string, error) {
	if len(l.config.Paths) > 0 {
		var files []string
		for _, p := range l.config.Paths {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("pipeline file %s: %w", p, err)
			}
			files = append(files, p)
		}
		return files, nil
	}

	root := l.config.Root
	if root == "" {
		root = "."
	}

	var ignore *gitignore.GitIgnore
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); err == nil {
		ignore, _ = gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	}

	var candidates []string
	workflows := filepath.Join(root, ".github", "workflows")
	if entries, err := os.ReadDir(workflows); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext == ".yml" || ext == ".yaml" {
				candidates = append(candidates, filepath.Join(workflows, entry.Name()))
			}
		}
	}
	if _, err := os.Stat(filepath.Join(root, ".gitlab-ci.yml")); err == nil {
		candidates = append(candidates, filepath.Join(root, ".gitlab-ci.yml"))
	}

	var files []string
	for _, path := range candidates {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		if l.excluded(rel) {
			l.logger.Log("skipping excluded file %s", rel)
			continue
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			l.logger.Log("skipping gitignored file %s", rel)
			continue
		}
		if l.config.MaxFileSize > 0 {
			if info, err := os.Stat(path); err == nil && info.Size() > l.config.MaxFileSize {
				l.logger.Log("skipping oversized file %s (%d bytes)", rel, info.Size())
				continue
			}
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range l.config.Excludes {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
		if strings.HasPrefix(rel, strings.TrimSuffix(pattern, "/*")+"/") {
			return true
		}
	}
	return false
}

// Enumerate discovers pipeline files and invokes callback for each.
// Phase 1 walks and collects paths sequentially; phase 2 reads files on a
// bounded worker pool. A failed read is reported through the callback's err
// argument and the batch continues; a non-nil callback return aborts the run.
func (l *Loader) Enumerate(ctx context.Context, callback func(path string, content []byte, err error) error) error {
	files, err := l.Discover()
	if err != nil {
		return err
	}

	workers := l.config.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	paths := make(chan string, workers*2)

	g.Go(func() error {
		defer close(paths)
		for _, f := range files {
			select {
			case paths <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range paths {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				content, readErr := os.ReadFile(path)
				if err := callback(path, content, readErr); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if origCtx.Err() != nil {
		return origCtx.Err()
	}
	return nil
}

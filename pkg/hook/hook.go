// Package hook installs a git pre-commit hook that runs pipeline analysis
// before each commit. The repository is located through go-git so the hook
// lands in the right place even when invoked from a subdirectory.
package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

const marker = "# installed by pipefix"

const script = `#!/bin/sh
` + marker + `
# Analyzes CI pipeline files and blocks the commit on errors.
exec pipefix check --color never
`

// repoRoot finds the worktree root containing path.
func repoRoot(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("locating repository from %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("resolving worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

func hookPath(path string) (string, error) {
	root, err := repoRoot(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".git", "hooks", "pre-commit"), nil
}

// Install writes the pre-commit hook and returns its path. An existing hook
// not written by this tool is left alone and reported as an error.
func Install(path string) (string, error) {
	target, err := hookPath(path)
	if err != nil {
		return "", err
	}

	if existing, err := os.ReadFile(target); err == nil {
		if !strings.Contains(string(existing), marker) {
			return "", fmt.Errorf("refusing to overwrite existing hook %s", target)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading existing hook: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("writing hook: %w", err)
	}
	return target, nil
}

// Uninstall removes the hook if this tool installed it.
func Uninstall(path string) error {
	target, err := hookPath(path)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading hook: %w", err)
	}
	if !strings.Contains(string(existing), marker) {
		return fmt.Errorf("refusing to remove foreign hook %s", target)
	}
	return os.Remove(target)
}

// Installed reports whether this tool's hook is present.
func Installed(path string) (bool, error) {
	target, err := hookPath(path)
	if err != nil {
		return false, err
	}
	existing, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.Contains(string(existing), marker), nil
}

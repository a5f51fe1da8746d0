package main

import (
	"bytes"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGitWorkspace(t *testing.T) string {
	t.Helper()
	dir := setupWorkspace(t, cleanWorkflow)
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestHookInstallAndStatus(t *testing.T) {
	setupGitWorkspace(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, hookInstallCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "Installed pre-commit hook")

	buf.Reset()
	require.NoError(t, hookStatusCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "is installed")
}

func TestHookUninstall(t *testing.T) {
	setupGitWorkspace(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, hookInstallCmd.RunE(cmd, nil))
	require.NoError(t, hookUninstallCmd.RunE(cmd, nil))

	buf.Reset()
	require.NoError(t, hookStatusCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "not installed")
}

func TestHookStatusOutsideRepository(t *testing.T) {
	setupWorkspace(t, cleanWorkflow)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	assert.Error(t, hookStatusCmd.RunE(cmd, nil))
}

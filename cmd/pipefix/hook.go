package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipefix/pipefix/pkg/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
	Long:  "Install, remove, or inspect the pre-commit hook that runs pipefix check before each commit",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := hook.Install(rootDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", target)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hook.Uninstall(rootDir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed pre-commit hook")
		return nil
	},
}

var hookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the pre-commit hook is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := hook.Installed(rootDir)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintln(cmd.OutOrStdout(), "pre-commit hook is installed")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "pre-commit hook is not installed")
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.AddCommand(hookStatusCmd)
}

package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/spf13/cobra"
)

// Execute builds and runs the command tree, returning a process exit code
// (spec.md §6: 0 success, 1 error, 2 check-condition-negative via
// shipwrighterr.ExitCode).
func Execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var swErr *shipwrighterr.Error
	if errors.As(err, &swErr) {
		slog.Error("command failed", "kind", swErr.Kind, "component", swErr.Component, "error", swErr.Error())
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return shipwrighterr.ExitCode(err)
}

// newRootCmd constructs the cobra command tree. Grounded on the
// cobra-based CLIs in the example pack (e.g. kubectl-style
// command-per-file registration): one exported constructor per verb
// group, each wired under root here.
func newRootCmd() *cobra.Command {
	gf := &globalFlags{}

	root := &cobra.Command{
		Use:           "shipwright",
		Short:         "Shipwright autonomous software-delivery orchestration daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&gf.configDir, "config-dir", defaultConfigDir(), "directory containing shipwright.yaml and templates")
	root.PersistentFlags().StringVar(&gf.homeDir, "home", "", "daemon home directory (state, learning tables, logs); defaults to system.home_dir or ~/.shipwright")

	root.AddCommand(
		newDaemonCmd(gf),
		newPipelineCmd(gf),
		newTriageCmd(gf),
		newRegressionCmd(gf),
		newHygieneCmd(gf),
		newRunJobCmd(gf),
	)

	return root
}

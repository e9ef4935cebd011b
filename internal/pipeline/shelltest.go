package pipeline

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// ShellTestRunner runs a configured shell command as the TestRunner
// collaborator (spec.md §1: "content of individual build/test/deploy
// steps ... are shell commands named in config"). Grounded on
// internal/vcs.GitClient's os/exec-in-a-fixed-dir shape.
type ShellTestRunner struct {
	Command string
	Shell   string // defaults to "sh"
}

// NewShellTestRunner constructs a ShellTestRunner invoking command via the
// system shell.
func NewShellTestRunner(command string) *ShellTestRunner {
	return &ShellTestRunner{Command: command, Shell: "sh"}
}

// RunTests implements TestRunner.
func (r *ShellTestRunner) RunTests(ctx context.Context, worktree string) (bool, string, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", r.Command)
	cmd.Dir = worktree

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	log := strings.TrimSpace(out.String())

	if err == nil {
		return true, log, nil
	}
	if _, isExit := err.(*exec.ExitError); isExit {
		return false, log, nil
	}
	return false, log, err
}

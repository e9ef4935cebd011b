// Package executor wraps the opaque LLM-driven coding subprocess
// (spec.md §6: "Executor interface"). Adapted from the teacher's
// pkg/llm/client.go Client shape (config from environment, model/
// temperature knobs) translated from a gRPC streaming service to a plain
// os/exec subprocess, since the executor here is explicitly opaque with no
// RPC boundary of its own.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// Invocation is one call to the executor.
type Invocation struct {
	Prompt      string
	Model       string
	TurnBudget  int // 0 = unlimited
	WorkingDir  string
	Timeout     time.Duration
}

// Result is the executor's output (spec.md §6: "text on stdout, side
// effects on the working tree, token usage on a parseable stderr log").
type Result struct {
	Stdout     string
	TokensUsed int
	Duration   time.Duration
}

// Executor is the opaque subprocess collaborator interface.
type Executor interface {
	Invoke(ctx context.Context, inv Invocation) (Result, error)
	Probe(ctx context.Context) error
}

// authErrorMarkers are provider auth/rate-limit error strings the Runner
// must detect and reject even on a zero exit code (spec.md §6).
var authErrorMarkers = []string{
	"authentication_error",
	"invalid api key",
	"rate_limit_error",
	"insufficient_quota",
	"permission denied",
	"401 unauthorized",
	"403 forbidden",
}

// tokenUsagePattern extracts a token-usage figure from the executor's
// stderr log, e.g. "tokens_used=1234" or "total_tokens: 1234".
var tokenUsagePattern = regexp.MustCompile(`(?i)(?:tokens_used|total_tokens)[=: ]+(\d+)`)

// SubprocessExecutor drives the configured binary via os/exec, feeding the
// prompt on stdin and enforcing the spec's output-validation contract.
type SubprocessExecutor struct {
	Binary string
	Args   []string // extra fixed args, e.g. ["--ci-mode"]
}

// NewSubprocessExecutor constructs an Executor invoking binary.
func NewSubprocessExecutor(binary string, args ...string) *SubprocessExecutor {
	return &SubprocessExecutor{Binary: binary, Args: args}
}

// Invoke implements Executor.
func (s *SubprocessExecutor) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	start := time.Now()

	args := append([]string{}, s.Args...)
	if inv.Model != "" {
		args = append(args, "--model", inv.Model)
	}
	if inv.TurnBudget > 0 {
		args = append(args, "--max-turns", strconv.Itoa(inv.TurnBudget))
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.Binary, args...)
	cmd.Dir = inv.WorkingDir
	cmd.Stdin = strings.NewReader(inv.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		return Result{Duration: duration}, shipwrighterr.New(shipwrighterr.KindExecutorOutput, "executor",
			fmt.Sprintf("executor exited non-zero: %v (stderr: %s)", err, truncate(stderr.String(), 500)), err)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return Result{Duration: duration}, shipwrighterr.New(shipwrighterr.KindExecutorOutput, "executor",
			"executor produced empty stdout on zero exit", nil)
	}
	if marker, found := findAuthErrorMarker(out + "\n" + stderr.String()); found {
		return Result{Duration: duration}, shipwrighterr.New(shipwrighterr.KindAuth, "executor",
			fmt.Sprintf("executor output contains provider error marker %q", marker), nil)
	}

	return Result{
		Stdout:     out,
		TokensUsed: parseTokenUsage(stderr.String()),
		Duration:   duration,
	}, nil
}

// Probe runs a minimal no-op invocation to verify the executor binary is
// reachable and authorized (spec.md §4.5 step 1: bounded 15s timeout at
// the call site).
func (s *SubprocessExecutor) Probe(ctx context.Context) error {
	_, err := s.Invoke(ctx, Invocation{Prompt: "ping", Timeout: 15 * time.Second})
	return err
}

func findAuthErrorMarker(output string) (string, bool) {
	lower := strings.ToLower(output)
	for _, marker := range authErrorMarkers {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

func parseTokenUsage(stderr string) int {
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	total := 0
	for scanner.Scan() {
		if m := tokenUsagePattern.FindStringSubmatch(scanner.Text()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				total += n
			}
		}
	}
	return total
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

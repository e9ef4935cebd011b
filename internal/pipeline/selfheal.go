package pipeline

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// TestRunner runs the configured test command in a job's worktree and
// reports whether it passed, plus the captured log on failure.
type TestRunner interface {
	RunTests(ctx context.Context, worktree string) (passed bool, log string, err error)
}

// SelfHeal drives the build→test retry loop: run tests, and on failure
// feed the failure log back into the executor with a fix-and-retry
// instruction, up to maxIterations times (spec.md §4.3, run again after
// compound-quality rebuilds). Grounded on
// pkg/agent/orchestrator/runner.go's retry-with-backoff vocabulary,
// translated from goroutine retries to sequential executor re-invocations
// since each cycle must observe the previous cycle's artifacts.
func SelfHeal(ctx context.Context, exec executor.Executor, tests TestRunner, worktree, buildPrompt string, maxIterations int) (iterations int, err error) {
	prompt := buildPrompt

	for i := 0; i < maxIterations; i++ {
		iterations = i + 1

		if _, invokeErr := exec.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: worktree}); invokeErr != nil {
			return iterations, fmt.Errorf("self-heal cycle %d: executor invoke: %w", iterations, invokeErr)
		}

		passed, log, testErr := tests.RunTests(ctx, worktree)
		if testErr != nil {
			return iterations, fmt.Errorf("self-heal cycle %d: run tests: %w", iterations, testErr)
		}
		if passed {
			return iterations, nil
		}

		prompt = fmt.Sprintf("The previous change failed tests. Fix the failure and retry.\n\nTest output:\n%s", log)
	}

	return iterations, shipwrighterr.New(shipwrighterr.KindNoProgress, "pipeline.selfheal",
		fmt.Sprintf("tests still failing after %d iterations", maxIterations), nil)
}

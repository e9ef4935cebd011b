package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// fakeScript writes a shell script (on unix) that the test drives as the
// executor binary, so no real LLM CLI is required.
func fakeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake script executor requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-executor.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestSubprocessExecutor_Success(t *testing.T) {
	bin := fakeScript(t, `cat >/dev/null; echo "did the work"; echo "tokens_used=42" >&2`)
	e := NewSubprocessExecutor(bin)

	res, err := e.Invoke(context.Background(), Invocation{Prompt: "do the thing"})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "did the work")
	assert.Equal(t, 42, res.TokensUsed)
}

func TestSubprocessExecutor_NonZeroExit(t *testing.T) {
	bin := fakeScript(t, `echo "boom" >&2; exit 1`)
	e := NewSubprocessExecutor(bin)

	_, err := e.Invoke(context.Background(), Invocation{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, shipwrighterr.KindExecutorOutput, shipwrighterr.KindOf(err))
}

func TestSubprocessExecutor_EmptyStdoutZeroExit(t *testing.T) {
	bin := fakeScript(t, `exit 0`)
	e := NewSubprocessExecutor(bin)

	_, err := e.Invoke(context.Background(), Invocation{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, shipwrighterr.KindExecutorOutput, shipwrighterr.KindOf(err))
}

func TestSubprocessExecutor_AuthErrorMarkerRejectedDespiteZeroExit(t *testing.T) {
	bin := fakeScript(t, `echo "request failed: authentication_error: invalid api key"; exit 0`)
	e := NewSubprocessExecutor(bin)

	_, err := e.Invoke(context.Background(), Invocation{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, shipwrighterr.KindAuth, shipwrighterr.KindOf(err))
}

func TestSubprocessExecutor_ModelAndTurnBudgetFlagsPassed(t *testing.T) {
	bin := fakeScript(t, `echo "args: $@"`)
	e := NewSubprocessExecutor(bin)

	res, err := e.Invoke(context.Background(), Invocation{
		Prompt:     "x",
		Model:      "claude-test",
		TurnBudget: 5,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "--model claude-test")
	assert.Contains(t, res.Stdout, "--max-turns 5")
}

func TestFindAuthErrorMarker(t *testing.T) {
	marker, found := findAuthErrorMarker("some text\nRate_Limit_Error occurred\n")
	assert.True(t, found)
	assert.Equal(t, "rate_limit_error", marker)

	_, found = findAuthErrorMarker("all good, no issues here")
	assert.False(t, found)
}

func TestParseTokenUsage(t *testing.T) {
	assert.Equal(t, 100, parseTokenUsage("total_tokens: 100\n"))
	assert.Equal(t, 0, parseTokenUsage("nothing relevant here\n"))
}

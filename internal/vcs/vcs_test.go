package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\n"), 0o644))
	run("add", "a.txt")
	run("commit", "-q", "-m", "init")
	return dir
}

func TestWorkingTreeStats_TracksUncommittedAndUntracked(t *testing.T) {
	dir := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\nthree\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("new file\n"), 0o644))

	c := NewGitClient(dir)
	stats, err := c.WorkingTreeStats(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, stats.FilesChanged)
	require.Equal(t, 1, stats.Insertions)
	require.Equal(t, 1, stats.Untracked)
	require.Equal(t, 1, stats.Total())
}

func TestWorkingTreeStats_CleanTree(t *testing.T) {
	dir := initRepo(t)
	c := NewGitClient(dir)
	stats, err := c.WorkingTreeStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesChanged)
	require.Equal(t, 0, stats.Untracked)
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSweepFiles_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "internal", "foo.go"))
	writeFile(t, filepath.Join(root, "internal", "foo_test.go"))
	writeFile(t, filepath.Join(root, "vendor", "bar.go"))
	writeFile(t, filepath.Join(root, "README.md"))

	matches, err := sweepFiles(root, []string{"**/*.go"}, []string{"**/vendor/**"})
	require.NoError(t, err)

	assert.Contains(t, matches, "internal/foo.go")
	assert.Contains(t, matches, "internal/foo_test.go")
	assert.NotContains(t, matches, "vendor/bar.go")
	assert.NotContains(t, matches, "README.md")
}

func TestSweepFiles_NoIncludeMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"))

	matches, err := sweepFiles(root, []string{"**/*.go"}, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny([]string{"**/*.go"}, "internal/foo.go"))
	assert.False(t, matchesAny([]string{"**/*.go"}, "README.md"))
	assert.True(t, matchesAny([]string{"a/**", "b/**"}, "b/c.txt"))
}

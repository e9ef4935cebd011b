package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	require.NoError(t, writePIDFile(path, 4242))

	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestReadPIDFile_Missing(t *testing.T) {
	_, err := readPIDFile(filepath.Join(t.TempDir(), "nope.pid"))
	assert.Error(t, err)
}

func TestProcessAlive_CurrentProcess(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
}

func TestProcessAlive_ImplausiblePID(t *testing.T) {
	assert.False(t, processAlive(1<<30))
}

package cli

import (
	"os"
	"testing"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/tracker"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("CONFIG_DIR", "/srv/shipwright/config")
	assert.Equal(t, "/srv/shipwright/config", defaultConfigDir())
}

func TestDefaultConfigDir_Fallback(t *testing.T) {
	os.Unsetenv("CONFIG_DIR")
	assert.Equal(t, "./config", defaultConfigDir())
}

func TestDefaultHomeDir_EnvOverride(t *testing.T) {
	t.Setenv("SHIPWRIGHT_HOME", "/srv/shipwright/home")
	assert.Equal(t, "/srv/shipwright/home", defaultHomeDir())
}

func TestBuildTracker_NoGithubForcesOffline(t *testing.T) {
	cfg := &config.Config{System: &config.SystemConfig{NoGitHub: true}}
	tr := buildTracker(cfg)
	_, ok := tr.(*tracker.OfflineTracker)
	assert.True(t, ok)
}

func TestBuildTracker_NoSystemConfigFallsBackOffline(t *testing.T) {
	tr := buildTracker(&config.Config{})
	_, ok := tr.(*tracker.OfflineTracker)
	assert.True(t, ok)
}

func TestBuildExecutor_DefaultBinary(t *testing.T) {
	os.Unsetenv("SHIPWRIGHT_EXECUTOR_BIN")
	exec := buildExecutor()
	assert.NotNil(t, exec)
}

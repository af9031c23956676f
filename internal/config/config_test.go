package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.EngineDir)
	assert.Equal(t, "backend", cfg.BackendDir)
	assert.Equal(t, "smile_log", cfg.LogBase)
	assert.Equal(t, "config.json", cfg.ConfigFile)
	assert.Equal(t, "out.csv", cfg.OutputFile)
	assert.Equal(t, "model.xdsl", cfg.ModelFile)
	assert.Equal(t, 600*time.Second, cfg.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.GracePeriod)
	assert.True(t, cfg.PurgeFailureLogs)
	assert.Zero(t, cfg.MaxMemoryMiB)
	assert.Zero(t, cfg.MinDiskMiB)
}

func TestLoadMissingPathFallsBackToDefaults(t *testing.T) {
	// An empty path with no default file present yields the defaults.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	// Durations are plain nanosecond integers in the YAML.
	content := `engine_dir: /opt/smile
backend_dir: bin
work_dir: /var/run/smile
log_base: engine_log
timeout: 30000000000
purge_failure_logs: false
history_file: runs.jsonl
max_memory_mib: 2048
verbose: true
`
	path := filepath.Join(t.TempDir(), "runner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/smile", cfg.EngineDir)
	assert.Equal(t, "bin", cfg.BackendDir)
	assert.Equal(t, "/var/run/smile", cfg.WorkDir)
	assert.Equal(t, "engine_log", cfg.LogBase)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.PurgeFailureLogs)
	assert.Equal(t, "runs.jsonl", cfg.HistoryFile)
	assert.Equal(t, float64(2048), cfg.MaxMemoryMiB)
	assert.True(t, cfg.Verbose)

	// Untouched fields keep their defaults.
	assert.Equal(t, "config.json", cfg.ConfigFile)
	assert.Equal(t, 200*time.Millisecond, cfg.PollInterval)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not, a, duration"), 0644))

	cfg, err := Load(path)
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

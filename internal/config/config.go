/*
PURPOSE:
  Defines the configuration structure and loading logic for Smile Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Configure backend location, default file names, timeout, paths.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Per-invocation overrides come from CLI flags, not from mutating the
    loaded config.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing config file falls back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (600s timeout, 200ms poll).

USAGE:
  cfg, err := config.Load("smile_runner.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update Load() defaults.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for Smile Runner.
type Config struct {
	// EngineDir is the directory the engine is invoked from; the backend
	// executables are resolved relative to it.
	EngineDir string `yaml:"engine_dir"`
	// BackendDir holds the fit/predict executables, relative to EngineDir.
	BackendDir string `yaml:"backend_dir"`
	// WorkDir is where configs, logs and results live. Empty means the
	// current working directory.
	WorkDir string `yaml:"work_dir"`

	// Default file names, resolved against WorkDir per invocation.
	LogBase    string `yaml:"log_base"`
	ConfigFile string `yaml:"config_file"`
	OutputFile string `yaml:"output_file"`
	ModelFile  string `yaml:"model_file"`

	// Run supervision.
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	GracePeriod  time.Duration `yaml:"grace_period"`

	// PurgeFailureLogs also clears *failure* logs before each run, so they
	// do not accumulate forever alongside the success markers.
	PurgeFailureLogs bool `yaml:"purge_failure_logs"`

	// HistoryFile, when set, receives one JSON line per run.
	HistoryFile string `yaml:"history_file"`

	// Optional resource guards (0 disables each).
	MaxMemoryMiB float64 `yaml:"max_memory_mib"`
	MinDiskMiB   float64 `yaml:"min_disk_mib"`

	// Verbose echoes engine output through the logger at debug level.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EngineDir:        ".",
		BackendDir:       "backend",
		WorkDir:          "",
		LogBase:          "smile_log",
		ConfigFile:       "config.json",
		OutputFile:       "out.csv",
		ModelFile:        "model.xdsl",
		Timeout:          600 * time.Second,
		PollInterval:     200 * time.Millisecond,
		GracePeriod:      3 * time.Second,
		PurgeFailureLogs: true,
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		// Search for defaults
		defaults := []string{"smile_runner.yaml", "runner.yaml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				found = true
				break
			}
		}
		if !found {
			// No config file found, return default
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

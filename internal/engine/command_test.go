package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name         string
		script       string
		config       string
		scriptPrefix string
		configFlag   string
		wantArgs     []string
	}{
		{
			name:       "no prefix no flag",
			script:     "backend/fit",
			config:     "/tmp/config.json",
			wantArgs:   []string{"backend/fit", "/tmp/config.json"},
		},
		{
			name:       "config flag only",
			script:     "backend/fit",
			config:     "/tmp/config.json",
			configFlag: "-c",
			wantArgs:   []string{"backend/fit", "-c", "/tmp/config.json"},
		},
		{
			name:         "prefix and flag",
			script:       "scripts/run.py",
			config:       "cfg.json",
			scriptPrefix: "python",
			configFlag:   "-c",
			wantArgs:     []string{"python", "scripts/run.py", "-c", "cfg.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := BuildCommand(tt.script, tt.config, tt.scriptPrefix, tt.configFlag)
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, cmd.Args())
			assert.Equal(t, strings.Join(tt.wantArgs, " "), cmd.String())
		})
	}
}

func TestBuildCommandContainsPathsUnmodified(t *testing.T) {
	script := "/opt/engine/backend/predict"
	config := "/data/run 1/config.json"

	cmd, err := BuildCommand(script, config, "", "-c")
	require.NoError(t, err)

	s := cmd.String()
	assert.Contains(t, s, script)
	assert.Contains(t, s, config)
	// The config flag immediately precedes the config path.
	args := cmd.Args()
	require.Len(t, args, 3)
	assert.Equal(t, "-c", args[1])
	assert.Equal(t, config, args[2])
}

func TestBuildCommandValidation(t *testing.T) {
	_, err := BuildCommand("", "cfg.json", "", "-c")
	assert.Error(t, err)

	_, err = BuildCommand("backend/fit", "", "", "-c")
	assert.Error(t, err)
}

func TestCommandArgsIsACopy(t *testing.T) {
	cmd, err := BuildCommand("backend/fit", "cfg.json", "", "-c")
	require.NoError(t, err)

	args := cmd.Args()
	args[0] = "tampered"
	assert.Equal(t, "backend/fit", cmd.Args()[0])
}

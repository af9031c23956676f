package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/smile-runner/internal/config"
	"github.com/daryltucker/smile-runner/internal/model"
	"github.com/daryltucker/smile-runner/internal/output"
)

// newTestEstimator wires an Estimator against a fake backend directory.
// Callers fill in the fit/predict scripts they need.
func newTestEstimator(t *testing.T) (*Estimator, *config.Config, string, string) {
	t.Helper()

	engineDir := t.TempDir()
	workDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(engineDir, "backend"), 0755))

	cfg := config.DefaultConfig()
	cfg.EngineDir = engineDir
	cfg.WorkDir = workDir
	cfg.PollInterval = 50 * time.Millisecond

	return NewEstimator(cfg), cfg, engineDir, workDir
}

func writeBackend(t *testing.T, engineDir, phase, body string) {
	t.Helper()
	path := filepath.Join(engineDir, "backend", phase)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func TestFitSuccess(t *testing.T) {
	est, _, engineDir, workDir := newTestEstimator(t)

	// The backend checks it got `-c <existing config>` and exits cleanly
	// well under the deadline.
	writeBackend(t, engineDir, "fit", `test "$1" = "-c" || exit 3
test -f "$2" || exit 4
exit 0`)

	code, err := est.Fit(context.Background(), FitOptions{
		TrainFname: "train.csv",
		Timeout:    600 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, model.StateSucceeded, est.RunState())
	assert.False(t, est.LastRun.TimedOut)

	// Engine config is removed after a clean run; the success log remains.
	assert.NoFileExists(t, filepath.Join(workDir, "config.json"))
	assert.FileExists(t, filepath.Join(workDir, "smile_log_fit.success.log"))

	// Induction time is recorded for the caller.
	data, ok := est.State[StateKeyModelData]
	require.True(t, ok)
	assert.Greater(t, data.IndTime, time.Duration(0))
	assert.Equal(t, 0, data.ReturnCode)
}

func TestFitTimeout(t *testing.T) {
	est, _, engineDir, workDir := newTestEstimator(t)
	writeBackend(t, engineDir, "fit", `sleep 5`)

	code, err := est.Fit(context.Background(), FitOptions{
		TrainFname: "train.csv",
		Timeout:    300 * time.Millisecond,
	})

	var toErr *TimeoutError
	require.ErrorAs(t, err, &toErr)
	assert.Equal(t, StopCode, code)
	assert.Equal(t, model.StateTimedOut, est.RunState())

	// The run failed, but elapsed time is still recorded.
	data, ok := est.State[StateKeyModelData]
	require.True(t, ok)
	assert.Greater(t, data.IndTime, time.Duration(0))

	// An incomplete run leaves a failure log, never a success marker.
	assert.NoFileExists(t, filepath.Join(workDir, "smile_log_fit.success.log"))
	assert.FileExists(t, filepath.Join(workDir, "smile_log_fit.failure.log"))
}

func TestFitClearsStaleSuccessLog(t *testing.T) {
	est, _, engineDir, workDir := newTestEstimator(t)
	writeBackend(t, engineDir, "fit", `exit 0`)

	// A marker from a previous run must not vouch for (or veto) this one.
	stale := filepath.Join(workDir, "smile_log_fit.success.log")
	require.NoError(t, os.WriteFile(stale, []byte("old run"), 0644))

	code, err := est.Fit(context.Background(), FitOptions{TrainFname: "train.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old run")
}

func TestPredictSuccess(t *testing.T) {
	est, _, engineDir, workDir := newTestEstimator(t)
	outPath := filepath.Join(workDir, "out.csv")
	writeBackend(t, engineDir, "predict", `printf '1.0,2.0\n3.5,4.5\n0.25,100\n' > `+outPath+`
exit 0`)

	table, err := est.Predict(context.Background(), PredictOptions{
		TestFname: "test.csv",
		TargIdx:   4,
		MissIdx:   2,
		QIdx:      -1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Rows())
	assert.Equal(t, 2, table.Cols())
	assert.Equal(t, model.StateParsed, est.RunState())

	data, ok := est.State[StateKeyModelData]
	require.True(t, ok)
	assert.Greater(t, data.InfTime, time.Duration(0))
}

func TestPredictNonZeroExit(t *testing.T) {
	est, _, engineDir, _ := newTestEstimator(t)
	writeBackend(t, engineDir, "predict", `echo "bad model" >&2
exit 2`)

	table, err := est.Predict(context.Background(), PredictOptions{
		TestFname: "test.csv",
		TargIdx:   4,
		MissIdx:   2,
		QIdx:      3,
	})
	require.Error(t, err)
	assert.Nil(t, table)

	var exitErr *NonZeroExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, model.StateFailed, est.RunState())
}

func TestPredictResultFileMissing(t *testing.T) {
	est, _, engineDir, _ := newTestEstimator(t)

	// The engine claims success but never writes the result file.
	writeBackend(t, engineDir, "predict", `exit 0`)

	table, err := est.Predict(context.Background(), PredictOptions{
		TestFname: "test.csv",
		TargIdx:   4,
		MissIdx:   2,
		QIdx:      -1,
	})
	require.Error(t, err)
	assert.Nil(t, table)

	var missErr *output.ResultMissingError
	require.ErrorAs(t, err, &missErr)
	assert.Equal(t, model.StateFailed, est.RunState())
}

func TestFitExecutableNotFound(t *testing.T) {
	est, _, _, _ := newTestEstimator(t)
	// No backend/fit written.

	_, err := est.Fit(context.Background(), FitOptions{TrainFname: "train.csv"})
	require.Error(t, err)

	var nfErr *ExecutableNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Contains(t, nfErr.Command, "backend/fit")
}

func TestFitWritesHistory(t *testing.T) {
	est, cfg, engineDir, workDir := newTestEstimator(t)
	writeBackend(t, engineDir, "fit", `exit 0`)
	cfg.HistoryFile = filepath.Join(workDir, "runs.jsonl")

	_, err := est.Fit(context.Background(), FitOptions{TrainFname: "train.csv"})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.HistoryFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"fit"`)
	assert.Contains(t, string(data), `"return_code":0`)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	est, _, _, workDir := newTestEstimator(t)

	engCfg := est.GenPredictConfig("/data/test.csv", 4, 2, "/data/out.csv", "/data/model.xdsl", 3)
	path := filepath.Join(workDir, "config.json")
	require.NoError(t, est.SaveConfig(engCfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Pretty-printed with a two-space indent.
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""), "config should be pretty-printed")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	want := map[string]any{
		"test_fname":  "/data/test.csv",
		"out_fname":   "/data/out.csv",
		"model_fname": "/data/model.xdsl",
		"miss_idx":    float64(2),
		"targ_idx":    float64(4),
		"q_idx":       float64(3),
	}
	if diff := cmp.Diff(want, parsed); diff != "" {
		t.Errorf("config round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGenPredictConfigOmitsNegativeQIdx(t *testing.T) {
	est, _, _, _ := newTestEstimator(t)

	engCfg := est.GenPredictConfig("/t.csv", 1, 0, "/o.csv", "/m.xdsl", -1)
	_, ok := engCfg["q_idx"]
	assert.False(t, ok)
}

/*
PURPOSE:
  Scikit-learn style front-end to the SMILE engine executables.
  fit() and predict() assemble a JSON config, clear stale logs, run the
  backend under monitors, and parse the result table.

REQUIREMENTS:
  User-specified:
  - fit(train, model, cfg, log, timeout, cwd) -> return code.
  - predict(test, targ_idx, miss_idx, out, model, cfg, log, q_idx,
    timeout, cwd) -> result table.
  - Default names: config.json, out.csv, model.xdsl, smile_log, 600s.

  Implementation-discovered:
  - No baked-in global working directory: every invocation takes explicit
    options, so concurrent invocations are safe as long as callers pass
    distinct paths. Colliding paths are the caller's problem.
  - All path values in the engine config must be absolute before the
    config hits the disk; the engine runs from its own directory.
  - Stale success logs are cleared BEFORE the run, so a marker from a
    previous run can never vouch for the current one.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: command builder, monitors, process runner, log lifecycle,
    internal/output (parser, history), internal/config.

ERROR HANDLING:
  - Everything surfaces to the caller: ExecutableNotFound, Timeout,
    NonZeroExit, MonitorStop, ResultMissing. Nothing is retried.
  - Timings land in the state mapping even when the run failed.

IMPLEMENTATION RULES:
  - One in-flight invocation per Estimator; the state machine
    (idle -> config_written -> logs_cleared -> running -> terminal)
    tracks exactly one run at a time.
  - Remove the engine config file after a clean run (engine input is
    transient; logs and results are not).

USAGE:
  est := engine.NewEstimator(cfg)
  code, err := est.Fit(ctx, engine.FitOptions{TrainFname: "train.csv"})
  table, err := est.Predict(ctx, engine.PredictOptions{TestFname: "test.csv", TargIdx: 4, MissIdx: 2, QIdx: -1})

SELF-HEALING INSTRUCTIONS:
  - If the backend layout changes, fix scriptPath() and the check command
    together.

RELATED FILES:
  - internal/engine/process.go
  - internal/output/csv.go

MAINTENANCE:
  - Keep engine config keys in sync with the backend's expectations.
*/

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/daryltucker/smile-runner/internal/config"
	"github.com/daryltucker/smile-runner/internal/model"
	"github.com/daryltucker/smile-runner/internal/output"
)

// StateKeyModelData is the key under which per-phase timings are kept in
// the estimator state mapping.
const StateKeyModelData = "model_data"

// configFlag is the fixed flag the backend expects before the config path.
const configFlag = "-c"

// Estimator drives the engine's fit and predict executables.
type Estimator struct {
	cfg *config.Config

	mu    sync.Mutex
	state model.RunState

	// State holds transient per-run data for the caller, keyed by
	// StateKeyModelData.
	State map[string]*model.ModelData

	// LastRun is the most recent run's terminal result.
	LastRun model.RunResult
}

// NewEstimator creates an Estimator on top of the runner configuration.
func NewEstimator(cfg *config.Config) *Estimator {
	return &Estimator{
		cfg:   cfg,
		state: model.StateIdle,
		State: map[string]*model.ModelData{},
	}
}

// FitOptions are the per-invocation inputs for Fit. Empty fields fall back
// to the runner configuration defaults.
type FitOptions struct {
	TrainFname string
	ModelFname string
	CfgFname   string
	LogFname   string
	Timeout    time.Duration
	WorkDir    string
}

// PredictOptions are the per-invocation inputs for Predict. QIdx is
// optional; pass a negative value to leave it out of the engine config.
type PredictOptions struct {
	TestFname  string
	TargIdx    int
	MissIdx    int
	QIdx       int
	OutFname   string
	ModelFname string
	CfgFname   string
	LogFname   string
	Timeout    time.Duration
	WorkDir    string
}

// GenFitConfig builds the engine config for a fit run. Paths must already
// be absolute.
func (e *Estimator) GenFitConfig(trainFname, modelFname string) model.EngineConfig {
	return model.EngineConfig{
		"train_fname": trainFname,
		"model_fname": modelFname,
	}
}

// GenPredictConfig builds the engine config for a predict run. Paths must
// already be absolute. A negative qIdx is omitted.
func (e *Estimator) GenPredictConfig(testFname string, targIdx, missIdx int, outFname, modelFname string, qIdx int) model.EngineConfig {
	cfg := model.EngineConfig{
		"test_fname":  testFname,
		"out_fname":   outFname,
		"model_fname": modelFname,
		"miss_idx":    missIdx,
		"targ_idx":    targIdx,
	}
	if qIdx >= 0 {
		cfg["q_idx"] = qIdx
	}
	return cfg
}

// SaveConfig writes the engine config as pretty-printed JSON (two-space
// indent). The config is never read back by this side.
func (e *Estimator) SaveConfig(cfg model.EngineConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize engine config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write engine config %s: %w", path, err)
	}
	return nil
}

// RunState reports where the current (or last) invocation is in its
// lifecycle.
func (e *Estimator) RunState() model.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Estimator) setState(s model.RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Fit trains a model on the given training file and returns the engine's
// return code.
func (e *Estimator) Fit(ctx context.Context, opts FitOptions) (int, error) {
	e.setState(model.StateIdle)

	workDir, err := e.resolveWorkDir(opts.WorkDir)
	if err != nil {
		return -1, err
	}

	cfgPath := absJoin(workDir, fallback(opts.CfgFname, e.cfg.ConfigFile))
	logPath := absJoin(workDir, fallback(opts.LogFname, e.cfg.LogBase+"_fit"))
	trainPath := absJoin(workDir, opts.TrainFname)
	modelPath := absJoin(workDir, fallback(opts.ModelFname, e.cfg.ModelFile))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	engCfg := e.GenFitConfig(trainPath, modelPath)
	if err := e.SaveConfig(engCfg, cfgPath); err != nil {
		return -1, err
	}
	e.setState(model.StateConfigWritten)

	if err := e.clearLogs(workDir, filepath.Base(logPath)); err != nil {
		return -1, err
	}
	e.setState(model.StateLogsCleared)

	res, err := e.runEngine(ctx, "fit", cfgPath, logPath, timeout, workDir)
	e.recordModelData("fit", res)

	if err != nil {
		return res.ReturnCode, err
	}

	e.setState(model.StateSucceeded)
	if rmErr := os.Remove(cfgPath); rmErr != nil {
		output.Logger.Warn("Failed to remove engine config after run", "path", cfgPath, "error", rmErr)
	}
	return res.ReturnCode, nil
}

// Predict evaluates the test file against a fitted model and returns the
// parsed result table.
func (e *Estimator) Predict(ctx context.Context, opts PredictOptions) (model.ResultTable, error) {
	e.setState(model.StateIdle)

	workDir, err := e.resolveWorkDir(opts.WorkDir)
	if err != nil {
		return nil, err
	}

	cfgPath := absJoin(workDir, fallback(opts.CfgFname, e.cfg.ConfigFile))
	logPath := absJoin(workDir, fallback(opts.LogFname, e.cfg.LogBase+"_predict"))
	testPath := absJoin(workDir, opts.TestFname)
	outPath := absJoin(workDir, fallback(opts.OutFname, e.cfg.OutputFile))
	modelPath := absJoin(workDir, fallback(opts.ModelFname, e.cfg.ModelFile))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	engCfg := e.GenPredictConfig(testPath, opts.TargIdx, opts.MissIdx, outPath, modelPath, opts.QIdx)
	if err := e.SaveConfig(engCfg, cfgPath); err != nil {
		return nil, err
	}
	e.setState(model.StateConfigWritten)

	if err := e.clearLogs(workDir, filepath.Base(logPath)); err != nil {
		return nil, err
	}
	e.setState(model.StateLogsCleared)

	res, err := e.runEngine(ctx, "predict", cfgPath, logPath, timeout, workDir)
	e.recordModelData("predict", res)

	if err != nil {
		return nil, err
	}

	e.setState(model.StateSucceeded)
	if rmErr := os.Remove(cfgPath); rmErr != nil {
		output.Logger.Warn("Failed to remove engine config after run", "path", cfgPath, "error", rmErr)
	}

	table, err := output.ReadResultTable(outPath)
	if err != nil {
		e.setState(model.StateFailed)
		return nil, err
	}
	e.setState(model.StateParsed)

	output.Logger.Info("Result table parsed", "rows", table.Rows(), "cols", table.Cols())
	return table, nil
}

// runEngine executes one backend script under the standard monitor set and
// records the run in the history file, if configured.
func (e *Estimator) runEngine(ctx context.Context, phase, cfgPath, logPath string, timeout time.Duration, workDir string) (model.RunResult, error) {
	cmd, err := BuildCommand(e.scriptPath(phase), cfgPath, "", configFlag)
	if err != nil {
		return model.RunResult{}, err
	}

	LogRunCharacteristics()
	output.Logger.Info("Running engine", "phase", phase, "command", cmd.String(), "dir", e.cfg.EngineDir, "timeout", timeout)

	runner := NewRunner(e.cfg.EngineDir, e.generateMonitors(logPath, timeout, workDir)...)
	if e.cfg.PollInterval > 0 {
		runner.PollInterval = e.cfg.PollInterval
	}
	if e.cfg.GracePeriod > 0 {
		runner.GracePeriod = e.cfg.GracePeriod
	}

	e.setState(model.StateRunning)
	res, runErr := runner.Run(ctx, cmd)
	res.Phase = phase

	e.mu.Lock()
	e.LastRun = res
	e.mu.Unlock()

	e.appendHistory(res)

	switch {
	case res.TimedOut:
		e.setState(model.StateTimedOut)
		output.Logger.Error("Engine run timed out", "phase", phase, "elapsed", res.Elapsed.Round(time.Millisecond))
	case runErr != nil:
		e.setState(model.StateFailed)
		output.Logger.Error("Engine run failed", "phase", phase, "return_code", res.ReturnCode, "error", runErr)
	default:
		output.Logger.Info("Engine run finished", "phase", phase, "return_code", res.ReturnCode, "elapsed", res.Elapsed.Round(time.Millisecond))
	}

	return res, runErr
}

// generateMonitors assembles the monitor set for one run: logfile capture
// plus the wall-clock limit, and whatever optional guards are configured.
func (e *Estimator) generateMonitors(logPath string, timeout time.Duration, workDir string) []Monitor {
	monitors := []Monitor{
		NewLogfile(logPath),
		NewTimeLimit(timeout),
	}
	if e.cfg.MaxMemoryMiB > 0 {
		monitors = append(monitors, &MemoryLimit{MaxRSS: e.cfg.MaxMemoryMiB})
	}
	if e.cfg.MinDiskMiB > 0 {
		monitors = append(monitors, &DiskSpaceLimit{Path: workDir, MinAvailable: e.cfg.MinDiskMiB})
	}
	if e.cfg.Verbose {
		monitors = append(monitors, Echo{})
	}
	return monitors
}

func (e *Estimator) clearLogs(workDir, logBase string) error {
	n, err := DropStaleLogs(workDir, logBase)
	if err != nil {
		return fmt.Errorf("failed to clear stale logs in %s: %w", workDir, err)
	}
	if n > 0 {
		output.Logger.Info("Cleared stale success logs", "dir", workDir, "count", n)
	}
	if e.cfg.PurgeFailureLogs {
		n, err = DropFailureLogs(workDir, logBase)
		if err != nil {
			return fmt.Errorf("failed to clear failure logs in %s: %w", workDir, err)
		}
		if n > 0 {
			output.Logger.Info("Cleared failure logs", "dir", workDir, "count", n)
		}
	}
	return nil
}

// recordModelData stores timings in the state mapping. This happens even
// when the run failed; the caller still gets to see elapsed time.
func (e *Estimator) recordModelData(phase string, res model.RunResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, ok := e.State[StateKeyModelData]
	if !ok {
		data = &model.ModelData{}
		e.State[StateKeyModelData] = data
	}
	if phase == "fit" {
		data.IndTime = res.Elapsed
	} else {
		data.InfTime = res.Elapsed
	}
	data.ReturnCode = res.ReturnCode
}

func (e *Estimator) appendHistory(res model.RunResult) {
	if e.cfg.HistoryFile == "" {
		return
	}
	hw, err := output.NewHistoryWriter(e.cfg.HistoryFile)
	if err != nil {
		output.Logger.Warn("Failed to open run history file", "path", e.cfg.HistoryFile, "error", err)
		return
	}
	defer hw.Close()
	if err := hw.Write(res); err != nil {
		output.Logger.Warn("Failed to append run history", "path", e.cfg.HistoryFile, "error", err)
	}
}

// scriptPath returns the backend executable path for a phase, relative to
// the engine directory ("backend/fit", "backend/predict").
func (e *Estimator) scriptPath(phase string) string {
	return filepath.Join(e.cfg.BackendDir, phase)
}

func (e *Estimator) resolveWorkDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = e.cfg.WorkDir
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory %s: %w", dir, err)
	}
	return abs, nil
}

// absJoin resolves name against dir unless it is already absolute.
func absJoin(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

/*
PURPOSE:
  Defines the core data structures used throughout Smile Runner.
  These models represent engine configurations, run outcomes, and
  parsed result tables.

REQUIREMENTS:
  User-specified:
  - Record return code, elapsed time, and timeout status per run.
  - Hold induction (fit) and inference (predict) timings for the caller.

  Implementation-discovered:
  - Need JSON tags so runs can be appended to a history file.
  - RunState makes the invocation lifecycle inspectable (and testable).

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time and time.Duration for high precision.

USAGE:
  res := model.RunResult{...}

SELF-HEALING INSTRUCTIONS:
  - If new run metadata is needed, add field and update the history writer.

RELATED FILES:
  - internal/engine/process.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new run metadata to capture.
*/

package model

import (
	"time"
)

// EngineConfig is the key/value mapping serialized to JSON and consumed by
// the engine executables. Values are scalars or file paths; all path values
// must be absolute before the config is written to disk.
type EngineConfig map[string]any

// RunState tracks where a single fit-or-predict invocation is in its
// lifecycle. TimedOut and Failed are terminal; Succeeded moves to Parsed
// only when the expected result file exists.
type RunState int

const (
	StateIdle RunState = iota
	StateConfigWritten
	StateLogsCleared
	StateRunning
	StateSucceeded
	StateParsed
	StateFailed
	StateTimedOut
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigWritten:
		return "config_written"
	case StateLogsCleared:
		return "logs_cleared"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateParsed:
		return "parsed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// RunResult is the terminal state of one subprocess execution.
// It is created at process exit and never mutated afterwards.
type RunResult struct {
	Phase      string        `json:"phase"` // "fit" or "predict"
	Command    string        `json:"command"`
	ReturnCode int           `json:"return_code"`
	Elapsed    time.Duration `json:"elapsed"`
	TimedOut   bool          `json:"timed_out"`
	StopReason string        `json:"stop_reason,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Success reports whether the engine exited cleanly.
func (r RunResult) Success() bool {
	return r.ReturnCode == 0
}

// ModelData holds the per-phase timings the estimator keeps for its caller.
// It lives in the estimator state mapping under the "model_data" key and is
// updated even when a run fails.
type ModelData struct {
	IndTime    time.Duration `json:"ind_time"`
	InfTime    time.Duration `json:"inf_time"`
	ReturnCode int           `json:"return_code"`
}

// ResultTable is the tabular numeric output parsed from the engine's result
// file. One row per evaluated instance; no header row in the source file.
type ResultTable [][]float64

// Rows returns the number of instances in the table.
func (t ResultTable) Rows() int {
	return len(t)
}

// Cols returns the width of the first row, or 0 for an empty table.
func (t ResultTable) Cols() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

/*
PURPOSE:
  Typed errors for the run failure taxonomy.
  Callers distinguish failure modes with errors.As, never by string match.

REQUIREMENTS:
  User-specified:
  - Missing binary, timeout, and non-zero exit must be distinguishable.
  - Messages include the return code and underlying OS error.

  Implementation-discovered:
  - NonZeroExit should carry a stderr tail for context; the engine is
    otherwise a black box.

ARCHITECTURE INTEGRATION:
  - Produced by: internal/engine/process.go, internal/engine/estimator.go
  - Inspected by: internal/cli, callers of the estimator.

ERROR HANDLING:
  - These ARE the error handling. None are retried here; retry policy is
    the caller's responsibility.

IMPLEMENTATION RULES:
  - Pointer receivers, Unwrap where an underlying error exists.

USAGE:
  var exitErr *engine.NonZeroExitError
  if errors.As(err, &exitErr) { ... exitErr.Code ... }

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/process.go
  - internal/output/csv.go (ResultMissingError lives with the parser)

MAINTENANCE:
  - Extend when new terminal failure modes appear.
*/

package engine

import (
	"fmt"
	"time"
)

// ExecutableNotFoundError reports that the engine binary could not be
// located or executed. It carries the attempted command line.
type ExecutableNotFoundError struct {
	Command string
	Err     error
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("engine executable not found (command: %s): %v", e.Command, e.Err)
}

func (e *ExecutableNotFoundError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the wall-clock deadline was exceeded and the
// engine was forcibly terminated. The run is incomplete; no result parsing
// is attempted.
type TimeoutError struct {
	Limit   time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine run timed out after %s (limit %s)", e.Elapsed.Round(time.Millisecond), e.Limit)
}

// NonZeroExitError reports that the engine ran to completion but returned a
// failure code. Stderr holds the tail of the engine's stderr output, if any.
type NonZeroExitError struct {
	Code   int
	Stderr string
}

func (e *NonZeroExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("engine exited with return code %d", e.Code)
	}
	return fmt.Sprintf("engine exited with return code %d: %s", e.Code, e.Stderr)
}

// MonitorStopError reports that a monitor other than the time limit forced
// the run to stop (memory limit, disk space, cached log, ...).
type MonitorStopError struct {
	Code   int
	Reason string
}

func (e *MonitorStopError) Error() string {
	return fmt.Sprintf("engine run stopped by monitor (%s, return code %d)", e.Reason, e.Code)
}

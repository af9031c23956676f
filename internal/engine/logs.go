/*
PURPOSE:
  Clears stale engine logs before a run starts.
  A success log left behind by a previous run must never be mistaken for
  evidence that the current run succeeded.

REQUIREMENTS:
  User-specified:
  - Delete files whose name contains both the log base name and "success".
  - Idempotent; a second pass with nothing new deletes nothing.

  Implementation-discovered:
  - Failure logs accumulate forever if only success logs are purged, so a
    sibling DropFailureLogs exists; the estimator calls it when
    purge_failure_logs is enabled.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/estimator.go (before every invocation)

ERROR HANDLING:
  - Returns the first removal error; files already removed stay removed.
    Deletion is irreversible, callers must not rely on prior logs
    surviving a new invocation.

IMPLEMENTATION RULES:
  - Match on the bare file name, not the full path.
  - Only plain files are candidates.

USAGE:
  n, err := engine.DropStaleLogs(workDir, "smile_log_fit")

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/monitor.go (Logfile writes the logs dropped here)

MAINTENANCE:
  - Keep the marker substrings in sync with the Logfile monitor suffixes.
*/

package engine

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// SuccessMarker is the substring identifying a completed-run log.
	SuccessMarker = "success"

	// FailureMarker is the substring identifying a failed-run log.
	FailureMarker = "failure"
)

// DropStaleLogs removes every file in dir whose name contains both base and
// the success marker. Returns the number of files removed.
func DropStaleLogs(dir, base string) (int, error) {
	return dropLogs(dir, base, SuccessMarker)
}

// DropFailureLogs removes every file in dir whose name contains both base
// and the failure marker.
func DropFailureLogs(dir, base string) (int, error) {
	return dropLogs(dir, base, FailureMarker)
}

func dropLogs(dir, base, marker string) (int, error) {
	if base == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.Contains(name, base) || !strings.Contains(name, marker) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

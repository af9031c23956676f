/*
PURPOSE:
  Appends run records to a JSON Lines history file (NDJSON).
  One line per fit/predict invocation, machine-parseable.

REQUIREMENTS:
  User-specified:
  - Keep a durable trail of runs: command, return code, elapsed, timeout.

  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array
    (append-friendly); history must survive across invocations, so the
    file is opened in append mode, not truncated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (estimator, after every run)
  - Consumes: internal/model.RunResult

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, err := output.NewHistoryWriter("runs.jsonl")
  w.Write(result)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if we switch to plain JSON array (not recommended for streaming).
*/

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/daryltucker/smile-runner/internal/model"
)

// HistoryWriter appends run records to a JSON Lines file.
type HistoryWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewHistoryWriter opens (or creates) the history file for appending.
func NewHistoryWriter(path string) (*HistoryWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &HistoryWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Write appends a single run record as a JSON line.
func (hw *HistoryWriter) Write(r model.RunResult) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	return hw.encoder.Encode(r)
}

// Close closes the underlying file.
func (hw *HistoryWriter) Close() error {
	return hw.file.Close()
}

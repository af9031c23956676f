/*
PURPOSE:
  Pluggable monitors observing a running engine process.
  One narrow capability (Tick) plus optional lifecycle and output hooks;
  the time limit is just one variant among several.

REQUIREMENTS:
  User-specified:
  - A timeout monitor that gets the process killed past a deadline.
  - Monitors invoked in registration order on every poll tick.

  Implementation-discovered:
  - The PxS experimenter shipped more guards worth keeping: memory,
    file size, disk space, and the running/success/failure logfile
    protocol. Ported here on the same interface.
  - Monitors must not kill the process themselves; they return a Stop
    verdict and the runner enforces it. Keeps the race handling in one
    place.

ARCHITECTURE INTEGRATION:
  - Driven by: internal/engine/process.go
  - Built by: internal/engine/estimator.go (Logfile + TimeLimit per run)

ERROR HANDLING:
  - A monitor that cannot take its measurement stays silent (returns nil)
    rather than failing the run. Guards are advisory until they trip.

IMPLEMENTATION RULES:
  - Embed NullMonitor for default no-op behavior, override what you need.
  - Stop verdicts use return code 999, matching the engine-side convention
    for externally forced termination.
  - No monitor may assume another monitor already ran this tick.

USAGE:
  mons := []engine.Monitor{engine.NewLogfile(logPath), engine.NewTimeLimit(10 * time.Minute)}

SELF-HEALING INSTRUCTIONS:
  - New guard? Embed NullMonitor, override Tick, return a Stop with a
    short snake_case reason.

RELATED FILES:
  - internal/engine/process.go
  - internal/engine/logs.go

MAINTENANCE:
  - Keep reasons stable; they end up in run history files.
*/

package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/daryltucker/smile-runner/internal/output"
)

// StopCode is the distinguished return code reported when a monitor, not
// the engine itself, ends the run.
const StopCode = 999

const mib = 1024 * 1024

// Stop is a monitor's verdict that the run must end.
type Stop struct {
	Code   int
	Reason string
}

// Stream identifies which engine output stream a line came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// RunInfo is handed to monitors before the process is spawned.
type RunInfo struct {
	Command string
	Dir     string
	Started time.Time
}

// Monitor observes one engine run. Setup may veto the run before it starts;
// Tick is invoked on every poll tick while the process is alive and may
// return a Stop verdict; Teardown always runs once with the final return
// code.
type Monitor interface {
	Setup(info RunInfo) *Stop
	Tick(elapsed time.Duration, proc *os.Process) *Stop
	Teardown(returnCode int)
}

// OutputListener is implemented by monitors that want the engine's
// stdout/stderr line stream.
type OutputListener interface {
	OnLine(stream Stream, line string)
}

// NullMonitor is the do-nothing default. Embed it to implement Monitor
// piecemeal.
type NullMonitor struct{}

func (NullMonitor) Setup(RunInfo) *Stop { return nil }

func (NullMonitor) Tick(time.Duration, *os.Process) *Stop { return nil }

func (NullMonitor) Teardown(int) {}

// TimeLimit ends the run once elapsed wall-clock time exceeds the limit.
// A zero limit disables the monitor.
type TimeLimit struct {
	NullMonitor
	Limit time.Duration
}

// NewTimeLimit creates a TimeLimit monitor with the given deadline.
func NewTimeLimit(limit time.Duration) *TimeLimit {
	return &TimeLimit{Limit: limit}
}

func (m *TimeLimit) Tick(elapsed time.Duration, _ *os.Process) *Stop {
	if m.Limit > 0 && elapsed > m.Limit {
		return &Stop{Code: StopCode, Reason: "time_limit"}
	}
	return nil
}

// MemoryLimit guards the memory consumption of the engine process tree.
// MaxRSS is the ceiling (MiB) on the summed RSS of the engine and its
// children; MinAvailable is the floor (MiB) on system-wide available
// memory. Either can be zero to disable that check.
type MemoryLimit struct {
	NullMonitor
	MaxRSS       float64
	MinAvailable float64
}

func (m *MemoryLimit) Tick(_ time.Duration, proc *os.Process) *Stop {
	if m.MinAvailable > 0 {
		if vm, err := mem.VirtualMemory(); err == nil {
			if float64(vm.Available)/mib < m.MinAvailable {
				return &Stop{Code: StopCode, Reason: "memory_low"}
			}
		}
	}
	if m.MaxRSS > 0 && proc != nil {
		if rss, ok := treeRSS(proc.Pid); ok && rss/mib > m.MaxRSS {
			return &Stop{Code: StopCode, Reason: "memory_limit"}
		}
	}
	return nil
}

// treeRSS sums the resident set size of a process and its children in bytes.
func treeRSS(pid int) (float64, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, false
	}
	total := 0.0
	if info, err := p.MemoryInfo(); err == nil {
		total += float64(info.RSS)
	}
	children, err := p.Children()
	if err == nil {
		for _, child := range children {
			if info, err := child.MemoryInfo(); err == nil {
				total += float64(info.RSS)
			}
		}
	}
	return total, total > 0
}

// FileSizeLimit ends the run when a watched file grows past MaxSize (MiB).
// The file not existing yet is fine; the engine may not have created it.
type FileSizeLimit struct {
	NullMonitor
	Path    string
	MaxSize float64
}

func (m *FileSizeLimit) Tick(time.Duration, *os.Process) *Stop {
	if m.MaxSize <= 0 {
		return nil
	}
	fi, err := os.Stat(m.Path)
	if err != nil {
		return nil
	}
	if float64(fi.Size())/mib > m.MaxSize {
		return &Stop{Code: StopCode, Reason: "filesize_limit"}
	}
	return nil
}

// DiskSpaceLimit ends the run when free space on Path's filesystem falls
// below MinAvailable (MiB).
type DiskSpaceLimit struct {
	NullMonitor
	Path         string
	MinAvailable float64
}

func (m *DiskSpaceLimit) Tick(time.Duration, *os.Process) *Stop {
	if m.MinAvailable <= 0 {
		return nil
	}
	usage, err := disk.Usage(m.Path)
	if err != nil {
		return nil
	}
	if float64(usage.Free)/mib < m.MinAvailable {
		return &Stop{Code: StopCode, Reason: "diskspace_low"}
	}
	return nil
}

// Logfile captures the engine's output into <base>.running.log and renames
// it to <base>.success.log or <base>.failure.log at teardown, keyed on the
// return code. The success log doubles as a completed-run marker: Setup
// refuses to rerun a cached success unless Force is set.
type Logfile struct {
	NullMonitor
	Force bool

	base string
	mu   sync.Mutex
	file *os.File
}

// NewLogfile creates a Logfile monitor rooted at the given base path
// (no extension; the .running/.success/.failure suffixes are appended).
func NewLogfile(base string) *Logfile {
	return &Logfile{base: base}
}

// RunningPath is the log written while the engine is alive.
func (m *Logfile) RunningPath() string { return m.base + ".running.log" }

// SuccessPath is the marker log left behind by a clean run.
func (m *Logfile) SuccessPath() string { return m.base + ".success.log" }

// FailurePath is the log left behind by a failed run.
func (m *Logfile) FailurePath() string { return m.base + ".failure.log" }

func (m *Logfile) Setup(info RunInfo) *Stop {
	if m.base == "" {
		return nil
	}
	if _, err := os.Stat(m.RunningPath()); err == nil {
		output.Logger.Warn("Running logfile exists, refusing to start (remove manually)", "path", m.RunningPath())
		return &Stop{Code: StopCode, Reason: "already_running"}
	}
	if _, err := os.Stat(m.SuccessPath()); err == nil {
		if !m.Force {
			output.Logger.Warn("Successful logfile exists, skipping run", "path", m.SuccessPath())
			return &Stop{Code: StopCode, Reason: "cached_version"}
		}
		output.Logger.Info("Rerunning despite existing success log (force)", "path", m.SuccessPath())
	}

	f, err := os.Create(m.RunningPath())
	if err != nil {
		output.Logger.Error("Failed to open running logfile", "path", m.RunningPath(), "error", err)
		return nil
	}
	m.mu.Lock()
	m.file = f
	m.mu.Unlock()

	fmt.Fprintf(f, "[CMD] %s\n", info.Command)
	fmt.Fprintf(f, "[DIR] %s\n", info.Dir)
	fmt.Fprintf(f, "[START] %s\n", info.Started.Format(time.RFC3339))
	return nil
}

// OnLine appends one engine output line to the running log.
func (m *Logfile) OnLine(stream Stream, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return
	}
	prefix := "[OUT] "
	if stream == StreamStderr {
		prefix = "[ERR] "
	}
	fmt.Fprintln(m.file, prefix+line)
}

func (m *Logfile) Teardown(returnCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return
	}
	fmt.Fprintf(m.file, "[EXIT] return code %d\n", returnCode)
	m.file.Close()
	m.file = nil

	target := m.FailurePath()
	if returnCode == 0 {
		target = m.SuccessPath()
	}
	if err := os.Rename(m.RunningPath(), target); err != nil {
		output.Logger.Error("Failed to rename logfile", "from", m.RunningPath(), "to", target, "error", err)
		return
	}
	output.Logger.Debug("Renamed logfile", "path", target)
}

// Echo relays engine output lines through the structured logger. Handy when
// debugging a misbehaving backend.
type Echo struct {
	NullMonitor
}

func (Echo) OnLine(stream Stream, line string) {
	output.Logger.Debug("Engine output", "stream", stream.String(), "line", line)
}

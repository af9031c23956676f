/*
PURPOSE:
  Executes one engine command under monitor supervision.
  Non-blocking spawn, explicit poll loop, deadline enforcement, and a
  guaranteed-terminal RunResult.

REQUIREMENTS:
  User-specified:
  - Poll loop (not event callbacks): each tick computes elapsed time,
    invokes every monitor, and checks process liveness.
  - A monitor verdict must actually terminate the subprocess.
  - Elapsed time is recorded even when the run fails.

  Implementation-discovered:
  - Tie-break: when the engine exits in the same tick a monitor trips,
    the natural exit wins. The wait channel is drained before monitors
    are ticked, so a finished run is never reported as timed out.
  - cmd.Wait must only run after the output scanners drain the pipes
    (os/exec contract), hence the WaitGroup ordering.
  - Engines can fork; kill the process group plus the psutil-style child
    tree, SIGTERM first, SIGKILL after a grace period.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/estimator.go
  - Uses: internal/engine/monitor.go, internal/engine/command.go
  - Error types: internal/engine/errors.go

ERROR HANDLING:
  - Start failure -> ExecutableNotFoundError with the attempted command.
  - time_limit verdict -> TimeoutError, RunResult{ReturnCode: 999, TimedOut: true}.
  - Other verdicts -> MonitorStopError.
  - Non-zero exit -> NonZeroExitError with a stderr tail.
  - Nothing is retried here.

IMPLEMENTATION RULES:
  - One Runner per invocation; do not share across goroutines.
  - Monitors tick in registration order; first verdict wins.
  - Setpgid so the whole engine tree can be signalled at once.

USAGE:
  r := engine.NewRunner(dir, engine.NewTimeLimit(10*time.Minute))
  res, err := r.Run(ctx, cmd)

SELF-HEALING INSTRUCTIONS:
  - If runs hang after a kill, check that the grace-period SIGKILL path
    still signals the process group, not just the direct child.

RELATED FILES:
  - internal/engine/monitor.go
  - internal/engine/estimator.go

MAINTENANCE:
  - Keep the tie-break documented above intact; tests depend on it.
*/

package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/daryltucker/smile-runner/internal/model"
	"github.com/daryltucker/smile-runner/internal/output"
)

const (
	// DefaultPollInterval matches the 200ms cadence of the PxS poll loop.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultGracePeriod is how long a SIGTERM'd engine gets before SIGKILL.
	DefaultGracePeriod = 3 * time.Second

	// stderrTailLines is how many trailing stderr lines are kept for
	// error context on a non-zero exit.
	stderrTailLines = 20
)

// Runner executes a single engine command with monitors attached.
type Runner struct {
	Dir          string
	Env          []string
	Monitors     []Monitor
	PollInterval time.Duration
	GracePeriod  time.Duration
}

// NewRunner creates a Runner executing in dir with the given monitors.
func NewRunner(dir string, monitors ...Monitor) *Runner {
	return &Runner{
		Dir:          dir,
		Monitors:     monitors,
		PollInterval: DefaultPollInterval,
		GracePeriod:  DefaultGracePeriod,
	}
}

// Run spawns the command and supervises it until it exits or a monitor
// stops it. The returned RunResult is always populated, including on error.
func (r *Runner) Run(ctx context.Context, cmd Command) (model.RunResult, error) {
	res := model.RunResult{
		Command:   cmd.String(),
		Timestamp: time.Now(),
	}

	info := RunInfo{Command: cmd.String(), Dir: r.Dir, Started: res.Timestamp}

	// Setup phase: any monitor may veto the run before the engine starts.
	var active []Monitor
	for _, m := range r.Monitors {
		if stop := m.Setup(info); stop != nil {
			res.ReturnCode = stop.Code
			res.StopReason = stop.Reason
			for _, am := range active {
				am.Teardown(stop.Code)
			}
			return res, &MonitorStopError{Code: stop.Code, Reason: stop.Reason}
		}
		active = append(active, m)
	}

	var listeners []OutputListener
	for _, m := range r.Monitors {
		if l, ok := m.(OutputListener); ok {
			listeners = append(listeners, l)
		}
	}

	args := cmd.Args()
	c := exec.Command(args[0], args[1:]...)
	c.Dir = r.Dir
	if len(r.Env) > 0 {
		c.Env = append(os.Environ(), r.Env...)
	}
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := c.StdoutPipe()
	if err != nil {
		r.teardown(active, -1)
		return res, err
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		r.teardown(active, -1)
		return res, err
	}

	tail := &tailBuffer{max: stderrTailLines}

	start := time.Now()
	if err := c.Start(); err != nil {
		res.ReturnCode = -1
		res.Elapsed = time.Since(start)
		r.teardown(active, res.ReturnCode)
		return res, &ExecutableNotFoundError{Command: cmd.String(), Err: err}
	}

	var scanWg sync.WaitGroup
	scanWg.Add(2)
	go r.scanStream(StreamStdout, stdout, listeners, nil, &scanWg)
	go r.scanStream(StreamStderr, stderr, listeners, tail, &scanWg)

	// Wait only once the scanners have drained the pipes.
	waitCh := make(chan error, 1)
	go func() {
		scanWg.Wait()
		waitCh <- c.Wait()
	}()

	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case werr := <-waitCh:
			return r.finish(res, active, start, werr, tail)

		case <-ctx.Done():
			werr := r.kill(c, waitCh)
			res.ReturnCode = extractExitCode(werr)
			res.Elapsed = time.Since(start)
			res.StopReason = "cancelled"
			r.teardown(active, res.ReturnCode)
			return res, ctx.Err()

		case <-ticker.C:
			elapsed := time.Since(start)

			// Natural exit wins a same-tick race against any monitor verdict.
			select {
			case werr := <-waitCh:
				return r.finish(res, active, start, werr, tail)
			default:
			}

			var stop *Stop
			for _, m := range r.Monitors {
				if s := m.Tick(elapsed, c.Process); s != nil {
					stop = s
					break
				}
			}
			if stop == nil {
				continue
			}

			output.Logger.Warn("Monitor stopped the run", "reason", stop.Reason, "elapsed", elapsed.Round(time.Millisecond))
			r.kill(c, waitCh)
			res.ReturnCode = stop.Code
			res.StopReason = stop.Reason
			res.Elapsed = time.Since(start)
			res.TimedOut = stop.Reason == "time_limit"
			r.teardown(active, res.ReturnCode)

			if res.TimedOut {
				var limit time.Duration
				for _, m := range r.Monitors {
					if tl, ok := m.(*TimeLimit); ok {
						limit = tl.Limit
					}
				}
				return res, &TimeoutError{Limit: limit, Elapsed: res.Elapsed}
			}
			return res, &MonitorStopError{Code: stop.Code, Reason: stop.Reason}
		}
	}
}

// finish handles a natural process exit.
func (r *Runner) finish(res model.RunResult, active []Monitor, start time.Time, werr error, tail *tailBuffer) (model.RunResult, error) {
	res.ReturnCode = extractExitCode(werr)
	res.Elapsed = time.Since(start)
	r.teardown(active, res.ReturnCode)

	if res.ReturnCode != 0 {
		return res, &NonZeroExitError{Code: res.ReturnCode, Stderr: tail.String()}
	}
	return res, nil
}

func (r *Runner) teardown(monitors []Monitor, returnCode int) {
	for _, m := range monitors {
		m.Teardown(returnCode)
	}
}

// scanStream feeds one output pipe to the listeners line by line.
func (r *Runner) scanStream(stream Stream, pipe io.Reader, listeners []OutputListener, tail *tailBuffer, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if tail != nil {
			tail.add(line)
		}
		for _, l := range listeners {
			l.OnLine(stream, line)
		}
	}
}

// kill terminates the engine process tree: children first (the engine may
// fork workers), then SIGTERM to the process group, escalating to SIGKILL
// after the grace period. Returns the Wait error once the process is gone.
func (r *Runner) kill(c *exec.Cmd, waitCh chan error) error {
	if c.Process == nil {
		return <-waitCh
	}
	pid := c.Process.Pid

	if p, err := process.NewProcess(int32(pid)); err == nil {
		if children, err := p.Children(); err == nil {
			for _, child := range children {
				child.Terminate()
			}
		}
	}

	pgid, pgErr := syscall.Getpgid(pid)
	if pgErr == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		c.Process.Signal(syscall.SIGTERM)
	}

	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	select {
	case werr := <-waitCh:
		return werr
	case <-time.After(grace):
		output.Logger.Warn("Engine ignored SIGTERM, sending SIGKILL", "pid", pid)
		if pgErr == nil {
			syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			c.Process.Kill()
		}
		return <-waitCh
	}
}

// extractExitCode maps a Wait() error to a return code. Signal deaths map
// to 128+signal, the usual shell convention.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}
	return 1
}

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

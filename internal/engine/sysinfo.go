/*
PURPOSE:
  Captures a snapshot of the host at run start.
  Engine runs are benchmark-adjacent; knowing what machine they ran on
  matters when comparing timings.

REQUIREMENTS:
  User-specified:
  - None directly; carried over from the PxS experimenter's
    run-characteristics capture.

  Implementation-discovered:
  - Must never fail a run. Any probe error degrades to a warning.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/estimator.go
  - Uses: gopsutil (host, cpu, mem)

ERROR HANDLING:
  - Partial snapshots are fine; missing probes are simply absent keys.

IMPLEMENTATION RULES:
  - No blocking probes (no interval-based CPU sampling).

USAGE:
  engine.LogRunCharacteristics()

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/estimator.go

MAINTENANCE:
  - Extend if more host context turns out to be useful.
*/

package engine

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/daryltucker/smile-runner/internal/output"
)

// RunCharacteristics collects a best-effort host snapshot.
func RunCharacteristics() map[string]any {
	chars := map[string]any{}

	if info, err := host.Info(); err == nil {
		chars["hostname"] = info.Hostname
		chars["os"] = info.OS
		chars["platform"] = info.Platform
		chars["platform_version"] = info.PlatformVersion
		chars["kernel_arch"] = info.KernelArch
	}
	if n, err := cpu.Counts(true); err == nil {
		chars["cpu_count"] = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		chars["mem_total_mib"] = vm.Total / mib
		chars["mem_available_mib"] = vm.Available / mib
	}

	return chars
}

// LogRunCharacteristics logs the host snapshot at debug level.
func LogRunCharacteristics() {
	chars := RunCharacteristics()
	if len(chars) == 0 {
		output.Logger.Warn("Collecting host characteristics failed, none included")
		return
	}
	args := make([]any, 0, len(chars)*2)
	for k, v := range chars {
		args = append(args, k, v)
	}
	output.Logger.Debug("Run characteristics", args...)
}

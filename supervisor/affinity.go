package supervisor

import (
	"golang.org/x/sys/unix"

	"taskwatch/log"
)

// pinAffinity restricts pid's runnable CPU set to [firstCPU, firstCPU+nCPUs).
// Affinity pinning is best-effort: a failure (insufficient privilege, a CPU
// index beyond what's online, the process having already exited) never
// fails the task, but is worth a warning through logger since a silently
// unpinned task can skew throughput expectations under --threads-per-process.
func pinAffinity(pid, firstCPU, nCPUs int, logger log.LibraryLogger) {
	if nCPUs <= 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < nCPUs; i++ {
		set.Set(firstCPU + i)
	}
	if err := unix.SchedSetaffinity(pid, &set); err != nil {
		logger.Warn("pid %d: set CPU affinity [%d,%d): %v", pid, firstCPU, firstCPU+nCPUs, err)
	}
}

package supervisor

// TaskRecord is one finalized task's outcome, handed to a Recorder
// immediately after finalization so a crash mid-run still leaves partial
// history queryable.
type TaskRecord struct {
	InstanceID    int
	Outcome       Outcome
	RawWaitStatus int
	RuntimeSecs   float64
	PeakRSSKiB    int64
}

// Recorder persists TaskRecords. Implementations must be best-effort: a
// Recorder error is logged by the scheduler and never changes a task's
// outcome or aborts the run. The rundb package implements this against
// bbolt; tests may use a simple in-memory stub.
type Recorder interface {
	RecordTask(rec TaskRecord) error
}

// NoopRecorder discards every record. Used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordTask(TaskRecord) error { return nil }

// Throttler computes the effective worker cap for the current tick given
// the statically configured ceiling. It is consulted on every dispatch
// pass of the scheduler loop (about every 50ms while not draining) so
// system load and swap pressure can shrink effective parallelism without
// ever killing an already-running child. The stats package implements this against
// /proc/loadavg and /proc/meminfo.
type Throttler interface {
	Cap(maxWorkers int) int
}

// FixedThrottler always returns the configured ceiling. Used when dynamic
// throttling is disabled.
type FixedThrottler struct{}

func (FixedThrottler) Cap(maxWorkers int) int { return maxWorkers }

// Reporter receives every externally-visible event of a run: per-task
// begin/result/end lines and log-file errors. The cmd package wires this
// to a plain stdout reporter or the tview dashboard depending on --tui.
type Reporter interface {
	Begin(instanceID int)
	Result(instanceID int, outcome Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64)
	End(instanceID, done, total int)
	Errorf(format string, args ...any)
}

// NoopReporter discards every event. Run uses it when Options.Reporter is
// nil, and cmd uses it as the operator-facing reporter of a --quiet run
// (its run-log wrapper still records every event).
type NoopReporter struct{}

func (NoopReporter) Begin(int)                                               {}
func (NoopReporter) Result(int, Outcome, int, float64, int64)                {}
func (NoopReporter) End(int, int, int)                                       {}
func (NoopReporter) Errorf(string, ...any)                                   {}

package supervisor

import "sync"

// Outcome is the supervisor's classification of how a task ended. It is
// distinct from the child's own exit status: a task that exits zero but
// was already flagged Timeout still reports Timeout.
type Outcome int

const (
	// Running means the slot's child has not yet been reaped.
	Running Outcome = iota
	// NaturalExit means the child exited (any status) without the
	// supervisor having intervened.
	NaturalExit
	// Timeout means the supervisor classified the task as over its wall
	// clock limit before the child exited.
	Timeout
	// Memout means the supervisor classified the task as over its
	// resident memory limit before the child exited.
	Memout
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "RUNNING"
	case NaturalExit:
		return "EXIT"
	case Timeout:
		return "TIMEOUT"
	case Memout:
		return "MEMOUT"
	default:
		return "UNKNOWN"
	}
}

const noPID = -1

// slot holds one unit of parallelism's worth of child-process bookkeeping.
//
// Field ownership is partitioned rather than protected field-by-field:
// the scheduler goroutine owns task, pid, startTime, outcome, koCounter
// and peakRSSKiB; the reaper goroutine owns rawWaitStatus and runtimeSecs,
// and writes them before clearing running as the last step of a reap (the
// release). The scheduler only reads the reaper-owned fields after it has
// observed running == false. A mutex stands in for the idealized
// single-writer discipline since Go has no lighter release/acquire
// primitive at field granularity that is still easy to reason about.
type slot struct {
	mu sync.Mutex

	task    Task
	present bool

	pid              int
	startTime        float64
	lastLimitCheck   float64
	outcome          Outcome
	koCounter        int
	rawWaitStatus    int
	runtimeSecs      float64
	peakRSSKiB       int64
	running          bool
}

func newSlot() *slot {
	return &slot{pid: noPID}
}

// empty reports whether the slot holds no task.
func (s *slot) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.present
}

// reset clears the slot back to Empty. Called by the scheduler after
// finalization.
func (s *slot) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = slot{pid: noPID}
}

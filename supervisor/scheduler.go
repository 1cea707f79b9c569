// Package supervisor implements the bounded-parallel batch process
// supervisor: a scheduler loop that dispatches queued tasks into a fixed
// slot table, enforces per-task wall-clock and memory limits by polling
// /proc, and a reaper goroutine that collects child exit statuses
// concurrently with the scheduler.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"taskwatch/log"
)

// SpawnFailedFormat is the Errorf format string used to report a spawn
// failure. Exported so a Reporter wrapper (see cmd's logReporter) can
// recognize this specific error and route it to a dedicated log, without
// the scheduler needing a distinct Reporter method just for this one case.
const SpawnFailedFormat = "instance %d: spawn failed: %v"

// koKillThreshold is the number of escalating soft-interrupt attempts
// after which the supervisor gives up and sends an uncatchable kill.
const koKillThreshold = 5

// limitCheckInterval is how often a running slot's wall-clock and memory
// limits are re-evaluated. Matches the teacher's own 1 Hz stats cadence
// (stats.StatsCollector ticks at 1 Hz) so the two subsystems share a
// rhythm even though they poll independently.
const limitCheckInterval = 1.0 // seconds, measured against the shared Clock

// loopInterval paces each full pass over the slot table. It is
// deliberately much shorter than limitCheckInterval: enforcement is only
// as prompt as this pacing allows, but a busy loop would burn CPU for no
// benefit once every slot is either idle or well inside its limits.
const loopInterval = 50 * time.Millisecond

// Options configures one supervisor run. Run replaces a nil Throttler,
// Recorder, Reporter or SetupLogger with a no-op implementation; the
// remaining fields are used as given, except that a ThreadsPerProcess
// below 1 is treated as 1.
type Options struct {
	Processes         int
	ThreadsPerProcess int
	TimeLimitSecs     int64
	MemLimitKiB       int64
	RecurseChildren   bool
	Quiet             bool
	OutputDir         string

	Throttler Throttler
	Recorder  Recorder
	Reporter  Reporter

	// SetupLogger receives warnings about non-fatal per-task setup steps
	// (currently just CPU affinity pinning). Defaults to a no-op.
	SetupLogger log.LibraryLogger
}

// Stats summarizes one completed run for the caller (used to populate
// the Run record and the run log summary).
type Stats struct {
	Dispatched int
	Exited     int
	TimedOut   int
	MemedOut   int
}

// Run drains queue under opts, blocking until every dispatched task has
// been finalized (or, on a termination signal, until every already-
// running task has been finalized — no new tasks are dispatched once
// draining begins). It never returns before the reaper goroutine has
// joined, so no in-flight exit event is lost.
func Run(queue *TaskQueue, opts Options) Stats {
	if opts.Throttler == nil {
		opts.Throttler = FixedThrottler{}
	}
	if opts.Recorder == nil {
		opts.Recorder = NoopRecorder{}
	}
	if opts.Reporter == nil {
		opts.Reporter = NoopReporter{}
	}
	if opts.SetupLogger == nil {
		opts.SetupLogger = log.NoOpLogger{}
	}

	clk := NewClock()
	tbl := newTable(opts.Processes)
	trap := newSignalTrap()
	defer trap.stop()

	rp := newReaper(tbl)
	ctx, cancel := context.WithCancel(context.Background())
	rp.start(ctx, clk)

	sched := &scheduler{
		opts:  opts,
		clk:   clk,
		tbl:   tbl,
		trap:  trap,
		total: queue.Total(),
	}
	sched.loop(queue)

	cancel()
	rp.join()

	return sched.stats
}

// scheduler is the cooperative single-threaded loop described in
// SPEC_FULL.md §4.8. It is unexported: callers only ever see the Run
// entry point and the Stats it returns.
type scheduler struct {
	opts  Options
	clk   *Clock
	tbl   *table
	trap  *signalTrap
	total int
	done  int
	stats Stats
}

func (s *scheduler) loop(queue *TaskQueue) {
	for {
		s.finalizePass()
		s.enforcePass()
		s.dispatchPass(queue)

		queueDone := queue.Len() == 0 || s.trap.Draining()
		if queueDone && !s.tbl.anyOccupied() {
			s.trap.setDraining()
			return
		}

		time.Sleep(loopInterval)
	}
}

// finalizePass handles every slot whose child has been reaped but not
// yet reported.
func (s *scheduler) finalizePass() {
	for i := 0; i < s.tbl.len(); i++ {
		sl := s.tbl.at(i)
		sl.mu.Lock()
		if !sl.present || sl.running {
			sl.mu.Unlock()
			continue
		}

		outcome := sl.outcome
		if outcome == Running {
			outcome = NaturalExit
		}
		instanceID := sl.task.InstanceID
		pid := sl.pid
		rawStatus := sl.rawWaitStatus
		runtime := sl.runtimeSecs
		peakRSS := sl.peakRSSKiB
		sl.mu.Unlock()

		s.finalize(sl, instanceID, pid, outcome, rawStatus, runtime, peakRSS)
	}
}

func (s *scheduler) finalize(sl *slot, instanceID, pid int, outcome Outcome, rawStatus int, runtime float64, peakRSS int64) {
	if !s.opts.Quiet {
		s.opts.Reporter.Result(instanceID, outcome, rawStatus, runtime, peakRSS)
	}

	if logFile, err := openTaskLog(s.opts.OutputDir, instanceID); err == nil {
		fmt.Fprintln(logFile, ResultLineForLog(outcome, rawStatus, runtime, peakRSS))
		logFile.Close()
	}

	if err := s.opts.Recorder.RecordTask(TaskRecord{
		InstanceID:    instanceID,
		Outcome:       outcome,
		RawWaitStatus: rawStatus,
		RuntimeSecs:   runtime,
		PeakRSSKiB:    peakRSS,
	}); err != nil {
		s.opts.Reporter.Errorf("instance %d: record outcome: %v", instanceID, err)
	}

	if pid != noPID {
		s.tbl.unregisterPID(pid)
	}

	s.done++
	switch outcome {
	case Timeout:
		s.stats.TimedOut++
	case Memout:
		s.stats.MemedOut++
	default:
		s.stats.Exited++
	}

	if !s.opts.Quiet {
		s.opts.Reporter.End(instanceID, s.done, s.total)
	}

	sl.reset()
}

// enforcePass checks wall-clock and memory limits on every running slot,
// forwards the draining signal, and escalates termination attempts.
func (s *scheduler) enforcePass() {
	draining := s.trap.Draining()
	now := s.clk.Elapsed()

	for i := 0; i < s.tbl.len(); i++ {
		sl := s.tbl.at(i)
		sl.mu.Lock()
		if !sl.present || !sl.running {
			sl.mu.Unlock()
			continue
		}

		if draining {
			pid := sl.pid
			sl.mu.Unlock()
			interrupt(pid)
			continue
		}

		if now-sl.lastLimitCheck < limitCheckInterval {
			sl.mu.Unlock()
			continue
		}
		sl.lastLimitCheck = now

		overTime := s.opts.TimeLimitSecs > 0 && now-sl.startTime > float64(s.opts.TimeLimitSecs)
		var overMem bool
		if !overTime {
			rss := sampleRSSTree(sl.pid, s.opts.RecurseChildren)
			if rss > sl.peakRSSKiB {
				sl.peakRSSKiB = rss
			}
			overMem = s.opts.MemLimitKiB > 0 && sl.peakRSSKiB > s.opts.MemLimitKiB
		}

		var escalate bool
		if overTime {
			sl.outcome = Timeout
			escalate = true
		} else if overMem {
			sl.outcome = Memout
			escalate = true
		}

		pid := sl.pid
		if escalate {
			sl.koCounter++
		}
		koCounter := sl.koCounter
		sl.mu.Unlock()

		if escalate {
			if koCounter >= koKillThreshold {
				kill(pid)
			} else {
				interrupt(pid)
			}
		}
	}
}

// dispatchPass fills empty slots below the throttled worker cap from the
// front of the queue, unless the run is draining.
func (s *scheduler) dispatchPass(queue *TaskQueue) {
	if s.trap.Draining() {
		return
	}

	workerCap := s.opts.Throttler.Cap(s.opts.Processes)
	if workerCap > s.tbl.len() {
		workerCap = s.tbl.len()
	}

	for i := 0; i < workerCap; i++ {
		sl := s.tbl.at(i)
		if !sl.empty() {
			continue
		}
		if queue.Len() == 0 {
			return
		}
		task, ok := queue.Pop()
		if !ok {
			return
		}
		s.dispatch(i, sl, task)
	}
}

func (s *scheduler) dispatch(slotIndex int, sl *slot, task Task) {
	if !s.opts.Quiet {
		s.opts.Reporter.Begin(task.InstanceID)
	}

	logFile, err := openTaskLog(s.opts.OutputDir, task.InstanceID)
	if err != nil {
		s.opts.Reporter.Errorf("instance %d: create log directory: %v", task.InstanceID, err)
		s.done++
		return
	}
	defer logFile.Close()

	result := spawn(task, logFile)
	now := s.clk.Elapsed()

	sl.mu.Lock()
	sl.task = task
	sl.present = true
	sl.startTime = now
	sl.lastLimitCheck = now
	sl.koCounter = 0
	sl.peakRSSKiB = 0

	if result.failed {
		sl.pid = noPID
		sl.running = false
		sl.outcome = NaturalExit
		sl.rawWaitStatus = 127 << 8
		sl.runtimeSecs = 0
		sl.mu.Unlock()
		s.opts.Reporter.Errorf(SpawnFailedFormat, task.InstanceID, result.exitErr)
		return
	}

	sl.pid = result.pid
	sl.running = true
	sl.outcome = Running
	sl.mu.Unlock()

	s.tbl.registerPID(result.pid, sl)
	s.stats.Dispatched++

	threads := s.opts.ThreadsPerProcess
	if threads < 1 {
		threads = 1
	}
	pinAffinity(result.pid, threads*slotIndex, threads, s.opts.SetupLogger)
}

func interrupt(pid int) {
	if pid <= 0 {
		return
	}
	_ = signalPID(pid, sigint)
}

func kill(pid int) {
	if pid <= 0 {
		return
	}
	_ = signalPID(pid, sigkill)
}

package supervisor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// reapPollInterval is how long the reaper sleeps after an attempt that
// found nothing to reap, to avoid spinning the CPU on an idle wait loop.
// Grounded in the same non-blocking Wait4 idiom the teacher's dragonfly
// process-reaper (environment/bsd/procctl_dragonfly.go) uses, adapted
// from a procctl-driven reap-all to a plain syscall.Wait4 poll since
// taskwatch has no reaper-acquire primitive to lean on.
const reapPollInterval = 20 * time.Millisecond

// reaper runs as a background goroutine collecting exited children
// non-blockingly and recording their outcome into the owning slot. It
// never blocks the scheduler loop and never treats "no children right
// now" as an error.
type reaper struct {
	tbl *table
	wg  sync.WaitGroup
}

func newReaper(tbl *table) *reaper {
	return &reaper{tbl: tbl}
}

// start launches the reap loop. It returns once ctx is cancelled and one
// final drain pass has been made, to catch a child that exited in the
// narrow window between the scheduler's last dispatch and cancellation.
func (r *reaper) start(ctx context.Context, clk *Clock) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				r.drainOnce(clk)
				return
			default:
			}
			if !r.reapOne(clk) {
				select {
				case <-ctx.Done():
					r.drainOnce(clk)
					return
				case <-time.After(reapPollInterval):
				}
			}
		}
	}()
}

// join blocks until the reap goroutine has returned. The scheduler loop
// must not report run completion before this returns, so that no
// in-flight exit event is lost.
func (r *reaper) join() {
	r.wg.Wait()
}

// drainOnce reaps every immediately-available child without waiting,
// for use right before the reaper goroutine exits.
func (r *reaper) drainOnce(clk *Clock) {
	for r.reapOne(clk) {
	}
}

// reapOne performs a single non-blocking wait4(-1, ...). It returns true
// if a child was reaped (whether or not its slot could be located), so
// the caller knows whether to retry immediately.
func (r *reaper) reapOne(clk *Clock) bool {
	var status unix.WaitStatus
	pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
	if err != nil {
		// ECHILD: no children at all right now. Not an error condition.
		return false
	}
	if pid <= 0 {
		return false
	}

	now := clk.Elapsed()
	if s, ok := r.tbl.lookupPID(pid); ok {
		s.mu.Lock()
		s.runtimeSecs = now - s.startTime
		s.rawWaitStatus = int(status)
		s.running = false
		s.mu.Unlock()
	}
	return true
}

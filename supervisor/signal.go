package supervisor

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// signalTrap watches for SIGINT and SIGTERM and flips a single
// process-wide flag. The notification goroutine does nothing else; all
// draining behavior lives in the scheduler loop, which polls the flag on
// its own schedule.
type signalTrap struct {
	draining atomic.Bool
	ch       chan os.Signal
}

func newSignalTrap() *signalTrap {
	t := &signalTrap{ch: make(chan os.Signal, 2)}
	signal.Notify(t.ch, os.Interrupt, syscall.SIGTERM)
	go t.watch()
	return t
}

func (t *signalTrap) watch() {
	for range t.ch {
		t.draining.Store(true)
	}
}

// Draining reports whether a termination signal has been received.
func (t *signalTrap) Draining() bool {
	return t.draining.Load()
}

// setDraining is used internally by the scheduler to enter the draining
// state once the task queue is exhausted, without waiting for a signal.
func (t *signalTrap) setDraining() {
	t.draining.Store(true)
}

func (t *signalTrap) stop() {
	signal.Stop(t.ch)
	close(t.ch)
}

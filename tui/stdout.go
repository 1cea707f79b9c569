// Package tui provides supervisor.Reporter implementations: a quiet
// stdout reporter for plain terminals and logs, and a tview/tcell live
// dashboard for interactive sessions.
package tui

import (
	"fmt"
	"sync"
	"time"

	"taskwatch/stats"
	"taskwatch/supervisor"
)

// StdoutReporter implements supervisor.Reporter using plain stdout lines,
// matching the result-line format a human tails in a log file.
type StdoutReporter struct {
	mu        sync.Mutex
	lastPrint time.Time
}

// NewStdoutReporter creates a new stdout-based reporter.
func NewStdoutReporter() *StdoutReporter {
	return &StdoutReporter{}
}

func (r *StdoutReporter) Begin(instanceID int) {
	fmt.Println(supervisor.BeginLine(instanceID))
}

func (r *StdoutReporter) Result(instanceID int, outcome supervisor.Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) {
	fmt.Println(supervisor.ResultLine(instanceID, outcome, rawWaitStatus, runtimeSecs, peakRSSKiB))
}

func (r *StdoutReporter) End(instanceID, done, total int) {
	fmt.Println(supervisor.EndLine(instanceID, done, total))
}

func (r *StdoutReporter) Errorf(format string, args ...any) {
	fmt.Printf("ERROR: "+format+"\n", args...)
}

// OnStatsUpdate implements stats.StatsConsumer, printing a condensed
// status line throttled to once every 5 seconds so a busy run doesn't
// spam the log with per-tick noise.
func (r *StdoutReporter) OnStatsUpdate(info stats.TopInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastPrint) < 5*time.Second {
		return
	}
	r.lastPrint = now

	line := fmt.Sprintf("[%s] Load %.2f Swap %d%% Rate %s/hr Exited %d Timeout %d Memout %d",
		stats.FormatDuration(info.Elapsed), info.Load, info.SwapPct,
		stats.FormatRate(info.Rate), info.Exited, info.TimedOut, info.MemedOut)

	if info.DynMaxWorkers < info.MaxWorkers {
		line += fmt.Sprintf(" [THROTTLED: %s]", stats.ThrottleReason(info))
	}

	fmt.Println(line)
}

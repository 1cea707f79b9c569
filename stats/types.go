// Package stats provides real-time run statistics collection and dynamic
// worker throttling for taskwatch. It tracks metrics like active worker
// counts, system load, swap usage, task completion rates, and outcome
// totals.
//
// The stats system uses a 1 Hz sampling loop to collect metrics and notify
// registered consumers (the live dashboard or the stdout reporter).
package stats

import (
	"fmt"
	"time"
)

// TopInfo is the unified statistics payload shared across all consumers
// (dashboard, stdout reporter).
type TopInfo struct {
	// Worker Metrics
	ActiveWorkers int // Currently dispatched
	MaxWorkers    int // Configured max (-p)
	DynMaxWorkers int // Dynamic max (throttled by load/swap)

	// System Metrics
	Load    float64 // 1-minute load average
	SwapPct int     // Swap usage percentage (0-100)
	NoSwap  bool    // True if no swap configured

	// Completion Rate Metrics
	Rate    float64 // Tasks/hour (60s sliding window)
	Impulse float64 // Instant completions/sec (last 1s bucket)

	// Timing
	Elapsed   time.Duration // Time since run start
	StartTime time.Time     // Run start timestamp

	// Task Totals
	Queued    int // Total tasks to run
	Exited    int // Natural exits
	TimedOut  int // Killed for exceeding the time limit
	MemedOut  int // Killed for exceeding the memory limit
	Remaining int // Calculated: Queued - (Exited + TimedOut + MemedOut)
}

// TaskOutcome mirrors supervisor.Outcome for rate bookkeeping without
// importing the supervisor package, keeping stats consumable standalone.
type TaskOutcome int

const (
	TaskExited TaskOutcome = iota
	TaskTimedOut
	TaskMemedOut
)

// String returns the string representation of TaskOutcome.
func (o TaskOutcome) String() string {
	switch o {
	case TaskExited:
		return "exited"
	case TaskTimedOut:
		return "timed out"
	case TaskMemedOut:
		return "memed out"
	default:
		return "unknown"
	}
}

// StatsConsumer receives a fresh TopInfo snapshot on every sampling tick.
type StatsConsumer interface {
	OnStatsUpdate(info TopInfo)
}

// FormatDuration formats a duration as HH:MM:SS for display.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatRate formats a rate (tasks/hour) for display.
func FormatRate(rate float64) string {
	if rate < 0.1 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", rate)
}

// ThrottleReason returns a human-readable reason for worker throttling
// based on current system metrics. Returns empty string if not throttled.
func ThrottleReason(info TopInfo) string {
	if info.DynMaxWorkers >= info.MaxWorkers {
		return ""
	}

	estimatedNCPUs := info.MaxWorkers
	if info.Load > float64(estimatedNCPUs)*2.0 {
		return "high load"
	}
	if info.SwapPct > 10 {
		return "high swap"
	}
	return "system resources"
}

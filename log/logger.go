package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taskwatch/config"
)

// Logger manages taskwatch's run-level summary log files, distinct from
// the per-task output captured under <directory>/<instance_id>/rw.
type Logger struct {
	cfg          *config.Config
	resultsFile  *os.File
	exitFile     *os.File
	timeoutFile  *os.File
	memoutFile   *os.File
	abnormalFile *os.File
	debugFile    *os.File
	mu           sync.Mutex
}

// logsDir returns the directory holding the run-level summary logs.
func logsDir(cfg *config.Config) string {
	return filepath.Join(cfg.Directory, "logs")
}

// NewLogger creates a new Logger, opening all of its files under
// <directory>/logs.
func NewLogger(cfg *config.Config) (*Logger, error) {
	dir := logsDir(cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	l := &Logger{cfg: cfg}
	var err error

	if l.resultsFile, err = os.Create(filepath.Join(dir, "00_last_results.log")); err != nil {
		return nil, err
	}
	if l.exitFile, err = os.Create(filepath.Join(dir, "01_exit_list.log")); err != nil {
		return nil, err
	}
	if l.timeoutFile, err = os.Create(filepath.Join(dir, "02_timeout_list.log")); err != nil {
		return nil, err
	}
	if l.memoutFile, err = os.Create(filepath.Join(dir, "03_memout_list.log")); err != nil {
		return nil, err
	}
	if l.abnormalFile, err = os.Create(filepath.Join(dir, "04_spawn_errors.log")); err != nil {
		return nil, err
	}
	if l.debugFile, err = os.Create(filepath.Join(dir, "05_debug.log")); err != nil {
		return nil, err
	}

	l.writeHeaders()
	return l, nil
}

// Close closes all log files.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range []*os.File{l.resultsFile, l.exitFile, l.timeoutFile, l.memoutFile, l.abnormalFile, l.debugFile} {
		if f != nil {
			f.Close()
		}
	}
}

func (l *Logger) writeHeaders() {
	timestamp := time.Now().Format(time.RFC3339)

	fmt.Fprintf(l.resultsFile, "taskwatch run log - %s\n", timestamp)
	fmt.Fprintf(l.resultsFile, "%s\n\n", strings.Repeat("=", 70))

	fmt.Fprintf(l.exitFile, "# Natural exits - %s\n\n", timestamp)
	fmt.Fprintf(l.timeoutFile, "# Timeouts - %s\n\n", timestamp)
	fmt.Fprintf(l.memoutFile, "# Memory limit kills - %s\n\n", timestamp)
	fmt.Fprintf(l.abnormalFile, "Spawn failures - %s\n\n", timestamp)
	fmt.Fprintf(l.debugFile, "Debug log - %s\n\n", timestamp)
}

// Exited logs a task that exited on its own.
func (l *Logger) Exited(instanceID int, rawWaitStatus int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf("[%s] EXIT: instance %d (retval %d)\n", timestamp, instanceID, rawWaitStatus)

	l.resultsFile.WriteString(msg)
	fmt.Fprintf(l.exitFile, "%d %d\n", instanceID, rawWaitStatus)

	l.resultsFile.Sync()
	l.exitFile.Sync()
}

// TimedOut logs a task killed for exceeding the time limit.
func (l *Logger) TimedOut(instanceID int, runtimeSecs float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf("[%s] TIMEOUT: instance %d (%.2fs)\n", timestamp, instanceID, runtimeSecs)

	l.resultsFile.WriteString(msg)
	fmt.Fprintf(l.timeoutFile, "%d %.2f\n", instanceID, runtimeSecs)

	l.resultsFile.Sync()
	l.timeoutFile.Sync()
}

// MemedOut logs a task killed for exceeding the memory limit.
func (l *Logger) MemedOut(instanceID int, peakRSSKiB int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf("[%s] MEMOUT: instance %d (%d KiB)\n", timestamp, instanceID, peakRSSKiB)

	l.resultsFile.WriteString(msg)
	fmt.Fprintf(l.memoutFile, "%d %d\n", instanceID, peakRSSKiB)

	l.resultsFile.Sync()
	l.memoutFile.Sync()
}

// SpawnFailed logs a task that could not be started at all.
func (l *Logger) SpawnFailed(instanceID int, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf("[%s] SPAWN FAILED: instance %d: %s\n", timestamp, instanceID, reason)

	l.resultsFile.WriteString(msg)
	l.abnormalFile.WriteString(msg)

	l.resultsFile.Sync()
	l.abnormalFile.Sync()
}

// Debug logs debug information.
func (l *Logger) Debug(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.debugFile.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
	l.debugFile.Sync()
}

// Error logs an error message to both the results log and the debug log.
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	errMsg := fmt.Sprintf("[%s] ERROR: %s\n", timestamp, msg)

	l.resultsFile.WriteString(errMsg)
	l.debugFile.WriteString(errMsg)

	l.resultsFile.Sync()
	l.debugFile.Sync()
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.resultsFile.WriteString(fmt.Sprintf("[%s] INFO: %s\n", timestamp, msg))
	l.resultsFile.Sync()
}

// WriteSummary writes a final summary to the results log.
func (l *Logger) WriteSummary(total, exited, timedOut, memedOut int, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.resultsFile, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(l.resultsFile, "RUN SUMMARY\n")
	fmt.Fprintf(l.resultsFile, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(l.resultsFile, "Total tasks:       %d\n", total)
	fmt.Fprintf(l.resultsFile, "Exited:            %d\n", exited)
	fmt.Fprintf(l.resultsFile, "Timed out:         %d\n", timedOut)
	fmt.Fprintf(l.resultsFile, "Memed out:         %d\n", memedOut)
	fmt.Fprintf(l.resultsFile, "Duration:          %s\n", duration)
	fmt.Fprintf(l.resultsFile, "%s\n", strings.Repeat("=", 70))

	l.resultsFile.Sync()
}

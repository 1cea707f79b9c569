package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingReporter struct {
	mu      sync.Mutex
	results []string
}

func (r *recordingReporter) Begin(int) {}
func (r *recordingReporter) Result(instanceID int, outcome Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, fmt.Sprintf("%d:%s", instanceID, outcome))
}
func (r *recordingReporter) End(int, int, int)       {}
func (r *recordingReporter) Errorf(string, ...any) {}

func (r *recordingReporter) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.results))
	copy(out, r.results)
	return out
}

func requireBin(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available in test environment", name)
	}
	return path
}

func TestRunAllTasksExitNaturally(t *testing.T) {
	trueBin := requireBin(t, "true")
	dir := t.TempDir()

	q := &TaskQueue{}
	for i := 1; i <= 3; i++ {
		q.tasks = append(q.tasks, Task{InstanceID: i, Argv: []string{trueBin}})
	}

	reporter := &recordingReporter{}
	stats := Run(q, Options{
		Processes:         2,
		ThreadsPerProcess: 1,
		OutputDir:         dir,
		Reporter:          reporter,
	})

	if stats.Exited != 3 {
		t.Fatalf("Exited = %d, want 3", stats.Exited)
	}
	if stats.TimedOut != 0 || stats.MemedOut != 0 {
		t.Errorf("unexpected timeouts/memouts: %+v", stats)
	}

	results := reporter.snapshot()
	if len(results) != 3 {
		t.Fatalf("got %d result lines, want 3", len(results))
	}
	for _, r := range results {
		if !strings.HasSuffix(r, ":EXIT") {
			t.Errorf("result %q is not EXIT", r)
		}
	}

	for i := 1; i <= 3; i++ {
		_, file := taskLogPath(dir, i)
		if _, err := os.Stat(file); err != nil {
			t.Errorf("expected log file for instance %d: %v", i, err)
		}
	}
}

func TestRunEnforcesTimeout(t *testing.T) {
	sleepBin := requireBin(t, "sleep")
	dir := t.TempDir()

	q := &TaskQueue{tasks: []Task{{InstanceID: 1, Argv: []string{sleepBin, "30"}}}}
	reporter := &recordingReporter{}

	done := make(chan Stats, 1)
	go func() {
		done <- Run(q, Options{
			Processes:         1,
			ThreadsPerProcess: 1,
			TimeLimitSecs:     1,
			OutputDir:         dir,
			Reporter:          reporter,
		})
	}()

	select {
	case stats := <-done:
		if stats.TimedOut != 1 {
			t.Fatalf("TimedOut = %d, want 1", stats.TimedOut)
		}
		results := reporter.snapshot()
		if len(results) != 1 || !strings.HasSuffix(results[0], ":TIMEOUT") {
			t.Fatalf("results = %v, want one TIMEOUT", results)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not complete within 15s of a 1s timeout limit")
	}
}

func TestRunRespectsProcessesCeiling(t *testing.T) {
	sleepBin := requireBin(t, "sleep")
	dir := t.TempDir()

	q := &TaskQueue{}
	for i := 1; i <= 6; i++ {
		q.tasks = append(q.tasks, Task{InstanceID: i, Argv: []string{sleepBin, "1"}})
	}

	stats := Run(q, Options{
		Processes:         2,
		ThreadsPerProcess: 1,
		OutputDir:         dir,
	})
	if stats.Exited != 6 {
		t.Fatalf("Exited = %d, want 6", stats.Exited)
	}
}

func TestRunReportsExecFailureAsExit(t *testing.T) {
	dir := t.TempDir()
	q := &TaskQueue{tasks: []Task{{InstanceID: 1, Argv: []string{"/no/such/binary-xyz"}}}}
	reporter := &recordingReporter{}

	stats := Run(q, Options{
		Processes:         1,
		ThreadsPerProcess: 1,
		OutputDir:         dir,
		Reporter:          reporter,
	})

	if stats.Exited != 1 {
		t.Fatalf("Exited = %d, want 1", stats.Exited)
	}
	results := reporter.snapshot()
	if len(results) != 1 || !strings.HasSuffix(results[0], ":EXIT") {
		t.Fatalf("results = %v, want one EXIT", results)
	}
}

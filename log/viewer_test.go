package log

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"taskwatch/config"
)

func TestGetLogSummaryCountsOutcomeLines(t *testing.T) {
	cfg := config.Defaults()
	cfg.Directory = t.TempDir()

	l, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Exited(1, 0)
	l.Exited(2, 0)
	l.TimedOut(3, 5.0)
	l.Close()

	summary := GetLogSummary(cfg)
	if summary["exited"] != 2 {
		t.Errorf("exited = %d, want 2", summary["exited"])
	}
	if summary["timed_out"] != 1 {
		t.Errorf("timed_out = %d, want 1", summary["timed_out"])
	}
}

func TestGrepLogFindsPattern(t *testing.T) {
	cfg := config.Defaults()
	cfg.Directory = t.TempDir()

	if err := os.MkdirAll(logsDir(cfg), 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(logsDir(cfg), "05_debug.log")
	if err := os.WriteFile(path, []byte("line one\nneedle here\nline three\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	GrepLog(cfg, "05_debug.log", "needle")
	w.Close()
	os.Stdout = origStdout

	var out strings.Builder
	buf := make([]byte, 1024)
	n, _ := r.Read(buf)
	out.Write(buf[:n])

	if !strings.Contains(out.String(), "2: needle here") {
		t.Errorf("GrepLog output = %q, want line 2 match", out.String())
	}
}

func TestListLogsFindsTaskInstanceDirs(t *testing.T) {
	cfg := config.Defaults()
	cfg.Directory = t.TempDir()

	instanceDir := filepath.Join(cfg.Directory, "42")
	if err := os.MkdirAll(instanceDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(instanceDir, "rw"), []byte("output\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// Sanity check the instance directory naming convention ListLogs scans for.
	if _, err := strconv.Atoi(filepath.Base(instanceDir)); err != nil {
		t.Fatalf("instance dir name %q is not numeric", instanceDir)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	ListLogs(cfg)
	w.Close()
	os.Stdout = origStdout

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	if !strings.Contains(string(buf[:n]), "  42\n") {
		t.Errorf("ListLogs output = %q, want instance 42 listed", string(buf[:n]))
	}
}

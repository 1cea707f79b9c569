package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskwatch/config"
	"taskwatch/log"
)

func seedLogs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Directory = dir

	logger, err := log.NewLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	logger.Exited(1, 0)
	logger.TimedOut(2, 3.5)
	logger.Close()

	taskDir := filepath.Join(dir, "1")
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "rw"), []byte("hello from instance 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunLogsListsSummaryAndInstances(t *testing.T) {
	dir := seedLogs(t)
	logsDirectory = dir
	logsTail = 0
	logsGrep = ""

	out := captureStdout(t, func() {
		if err := runLogs(logsCmd, nil); err != nil {
			t.Fatal(err)
		}
	})
	if !strings.Contains(out, "Available log files") {
		t.Errorf("missing log listing: %q", out)
	}
	if !strings.Contains(out, "exited 1") {
		t.Errorf("missing summary counts: %q", out)
	}
}

func TestRunLogsViewsTaskInstance(t *testing.T) {
	// Force a non-interactive pager so this doesn't block on a real
	// terminal pager if one happens to be on PATH.
	t.Setenv("PAGER", "cat")
	dir := seedLogs(t)
	logsDirectory = dir
	logsTail = 0
	logsGrep = ""

	out := captureStdout(t, func() {
		if err := runLogs(logsCmd, []string{"1"}); err != nil {
			t.Fatal(err)
		}
	})
	if !strings.Contains(out, "hello from instance 1") {
		t.Errorf("missing task output: %q", out)
	}
}

func TestRunLogsViewsNamedSummaryLog(t *testing.T) {
	t.Setenv("PAGER", "cat")
	dir := seedLogs(t)
	logsDirectory = dir
	logsTail = 0
	logsGrep = ""

	out := captureStdout(t, func() {
		if err := runLogs(logsCmd, []string{"exit"}); err != nil {
			t.Fatal(err)
		}
	})
	if !strings.Contains(out, "1 0") {
		t.Errorf("missing exit entry: %q", out)
	}
}

func TestRunLogsRejectsUnknownName(t *testing.T) {
	dir := seedLogs(t)
	logsDirectory = dir
	logsTail = 0
	logsGrep = ""

	if err := runLogs(logsCmd, []string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unknown log name")
	}
}

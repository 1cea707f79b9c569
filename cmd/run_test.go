package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"taskwatch/config"
	"taskwatch/rundb"
)

// newTestRunCmd builds a standalone command with the same flags as
// rootCmd, so flag-parsing tests don't share state with other tests.
func newTestRunCmd() *cobra.Command {
	c := &cobra.Command{Use: "run"}
	registerRunFlags(c)
	return c
}

func TestRunTaskFileExecutesAndRecordsOutcomes(t *testing.T) {
	dir := t.TempDir()
	taskFile := filepath.Join(dir, "tasks.txt")
	if err := os.WriteFile(taskFile, []byte("1 true\n2 false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "run.db")
	cmd := newTestRunCmd()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runTaskFile(cmd, args[0])
	}
	cmd.Args = cobra.ExactArgs(1)
	cmd.SetArgs([]string{
		"--processes", "2",
		"--directory", dir,
		"--quiet",
		"--no-throttle",
		"--db", dbPath,
		taskFile,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	db, err := rundb.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Total != 2 {
		t.Errorf("Total = %d, want 2", runs[0].Total)
	}
	if runs[0].Status != rundb.RunStatusDone {
		t.Errorf("Status = %v, want done", runs[0].Status)
	}

	tasks, err := db.TasksForRun(runs[0].UUID)
	if err != nil {
		t.Fatalf("tasks for run: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}

	if _, err := os.Stat(filepath.Join(dir, "1", "rw")); err != nil {
		t.Errorf("expected instance 1 log: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs", "00_last_results.log")); err != nil {
		t.Errorf("expected run log: %v", err)
	}

	// Both tasks exit naturally ("true" and "false" both run to
	// completion), so the exit classification log must carry one line
	// per instance, not just the header written at startup.
	exitLog, err := os.ReadFile(filepath.Join(dir, "logs", "01_exit_list.log"))
	if err != nil {
		t.Fatalf("read exit list log: %v", err)
	}
	if !strings.Contains(string(exitLog), "1 ") || !strings.Contains(string(exitLog), "2 ") {
		t.Errorf("01_exit_list.log missing per-instance entries, got: %q", exitLog)
	}
}

func TestApplyFlagOverridesOnlyCopiesChangedFlags(t *testing.T) {
	cmd := newTestRunCmd()
	if err := cmd.ParseFlags([]string{"--processes", "4"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Directory = "/somewhere/else"
	applyFlagOverrides(cmd, cfg)

	if cfg.Processes != 4 {
		t.Errorf("Processes = %d, want 4", cfg.Processes)
	}
	if cfg.Directory != "/somewhere/else" {
		t.Errorf("Directory was clobbered despite --directory not being set: %q", cfg.Directory)
	}
}

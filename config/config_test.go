package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadINIMissingFileIsNotError(t *testing.T) {
	cfg := Defaults()
	if err := cfg.LoadINI(filepath.Join(t.TempDir(), "absent.ini")); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Processes != 1 {
		t.Fatalf("defaults should be untouched, got Processes=%d", cfg.Processes)
	}
}

func TestLoadINIOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskwatch.ini")
	contents := "[Global]\nprocesses = 8\ntimelim = 120\nmemlim = 524288\nquiet = true\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := cfg.LoadINI(path); err != nil {
		t.Fatalf("LoadINI: %v", err)
	}

	if cfg.Processes != 8 {
		t.Errorf("Processes = %d, want 8", cfg.Processes)
	}
	if cfg.TimeLimitSecs != 120 {
		t.Errorf("TimeLimitSecs = %d, want 120", cfg.TimeLimitSecs)
	}
	if cfg.MemLimitKiB != 524288 {
		t.Errorf("MemLimitKiB = %d, want 524288", cfg.MemLimitKiB)
	}
	if !cfg.Quiet {
		t.Errorf("Quiet = false, want true")
	}
}

func TestLoadINIUnknownProfileFallsBackToDefaultSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskwatch.ini")
	contents := "processes = 3\n\n[ci]\nprocesses = 16\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	cfg.Profile = "nonexistent"
	if err := cfg.LoadINI(path); err != nil {
		t.Fatalf("LoadINI: %v", err)
	}
	if cfg.Processes != 3 {
		t.Errorf("Processes = %d, want 3 (DEFAULT section)", cfg.Processes)
	}
}

func TestResolveDBPathDerivesFromDirectory(t *testing.T) {
	cfg := Defaults()
	cfg.Directory = "/tmp/out"
	cfg.ResolveDBPath()
	want := filepath.Join("/tmp/out", ".taskwatch.db")
	if cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
}

func TestValidateCreatesMissingDirectory(t *testing.T) {
	cfg := Defaults()
	cfg.Directory = filepath.Join(t.TempDir(), "nested", "out")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if info, err := os.Stat(cfg.Directory); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created: %v", err)
	}
}

func TestValidateRejectsBadProcesses(t *testing.T) {
	cfg := Defaults()
	cfg.Directory = t.TempDir()
	cfg.Processes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero processes")
	}
}

func TestSystemInfoReportsCPUCount(t *testing.T) {
	_, _, _, ncpus := SystemInfo()
	if ncpus < 1 {
		t.Errorf("ncpus = %d, want >= 1", ncpus)
	}
}

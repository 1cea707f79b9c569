// Package config resolves taskwatch's run parameters from command-line
// flags layered over an optional INI file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
	"gopkg.in/ini.v1"
)

// Config holds the resolved parameters for one supervisor run.
type Config struct {
	// Positional
	TaskFile string

	// Parallelism and resource limits
	Processes         int
	ThreadsPerProcess int
	TimeLimitSecs      int64
	MemLimitKiB        int64
	RecurseChildren    bool

	// Output
	Directory string
	Quiet     bool

	// Dynamic throttling
	NoThrottle bool

	// Dashboard
	TUI bool

	// Persistence
	DBPath string

	// Profile selects an [section] in the INI file to layer over [Global].
	Profile string

	// ConfigPath is the INI file actually loaded, or empty if none was found.
	ConfigPath string
}

// Defaults returns a Config populated with the same defaults the CLI flags fall back to.
func Defaults() *Config {
	return &Config{
		Processes:         1,
		ThreadsPerProcess: 1,
		TimeLimitSecs:     0,
		MemLimitKiB:       0,
		Directory:         ".",
		Profile:           "Global",
	}
}

// LoadINI layers values from an INI file onto cfg. Missing file is not an
// error: taskwatch runs fine from flags alone. A malformed file is.
//
// Sections are matched case-insensitively; cfg.Profile (default "Global")
// selects which section's keys apply, mirroring the teacher's profile
// convention but through a real INI parser instead of a hand-rolled one.
func (cfg *Config) LoadINI(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}

	f, err := ini.LoadSources(ini.LoadOptions{AllowPythonMultilineValues: true}, path)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ConfigPath = path

	profile := cfg.Profile
	if profile == "" {
		profile = "Global"
	}

	var sec *ini.Section
	for _, candidate := range f.Sections() {
		if strings.EqualFold(candidate.Name(), profile) {
			sec = candidate
			break
		}
	}
	if sec == nil {
		sec = f.Section("") // DEFAULT section
	}

	if k := sec.Key("processes"); k.String() != "" {
		if n, err := k.Int(); err == nil && n > 0 {
			cfg.Processes = n
		}
	}
	if k := sec.Key("threads_per_process"); k.String() != "" {
		if n, err := k.Int(); err == nil && n > 0 {
			cfg.ThreadsPerProcess = n
		}
	}
	if k := sec.Key("timelim"); k.String() != "" {
		if n, err := k.Int64(); err == nil {
			cfg.TimeLimitSecs = n
		}
	}
	if k := sec.Key("memlim"); k.String() != "" {
		if n, err := k.Int64(); err == nil {
			cfg.MemLimitKiB = n
		}
	}
	if k := sec.Key("directory"); k.String() != "" {
		cfg.Directory = k.String()
	}
	if k := sec.Key("recurse_children"); k.String() != "" {
		cfg.RecurseChildren = k.MustBool(cfg.RecurseChildren)
	}
	if k := sec.Key("quiet"); k.String() != "" {
		cfg.Quiet = k.MustBool(cfg.Quiet)
	}
	if k := sec.Key("no_throttle"); k.String() != "" {
		cfg.NoThrottle = k.MustBool(cfg.NoThrottle)
	}
	if k := sec.Key("tui"); k.String() != "" {
		cfg.TUI = k.MustBool(cfg.TUI)
	}
	if k := sec.Key("db"); k.String() != "" {
		cfg.DBPath = k.String()
	}

	return nil
}

// ResolveDBPath fills in DBPath from Directory when the flag/INI left it empty.
func (cfg *Config) ResolveDBPath() {
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.Directory, ".taskwatch.db")
	}
}

// Validate rejects configurations that cannot produce a usable run.
func (cfg *Config) Validate() error {
	if cfg.Processes < 1 {
		return fmt.Errorf("processes must be at least 1")
	}
	if cfg.Processes > 4096 {
		return fmt.Errorf("processes is too large (max 4096)")
	}
	if cfg.ThreadsPerProcess < 1 {
		return fmt.Errorf("threads-per-process must be at least 1")
	}
	if cfg.Directory == "" {
		return fmt.Errorf("directory must not be empty")
	}
	info, err := os.Stat(cfg.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
				return fmt.Errorf("output directory %s cannot be created: %w", cfg.Directory, err)
			}
		} else {
			return fmt.Errorf("output directory %s: %w", cfg.Directory, err)
		}
	} else if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", cfg.Directory)
	}
	return nil
}

// WriteDefault writes a template INI file an operator can edit.
func WriteDefault(filename string, cfg *Config) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "; taskwatch configuration file")
	fmt.Fprintln(file, "; keys mirror the taskwatch command-line flags")
	fmt.Fprintln(file, "")
	fmt.Fprintln(file, "[Global]")
	fmt.Fprintf(file, "processes = %d\n", cfg.Processes)
	fmt.Fprintf(file, "threads_per_process = %d\n", cfg.ThreadsPerProcess)
	fmt.Fprintf(file, "timelim = %d\n", cfg.TimeLimitSecs)
	fmt.Fprintf(file, "memlim = %d\n", cfg.MemLimitKiB)
	fmt.Fprintf(file, "directory = %s\n", cfg.Directory)
	fmt.Fprintf(file, "recurse_children = %v\n", cfg.RecurseChildren)
	fmt.Fprintf(file, "quiet = %v\n", cfg.Quiet)
	fmt.Fprintf(file, "no_throttle = %v\n", cfg.NoThrottle)
	fmt.Fprintf(file, "tui = %v\n", cfg.TUI)

	return nil
}

// SystemInfo reports the host kernel name, release, architecture, and CPU
// count, stamped into run records for later diagnosis.
func SystemInfo() (osname, osversion, arch string, ncpus int) {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err == nil {
		osname = trimZero(utsname.Sysname[:])
		osversion = trimZero(utsname.Release[:])
		arch = trimZero(utsname.Machine[:])
	}
	ncpus = runtime.NumCPU()
	return
}

func trimZero(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

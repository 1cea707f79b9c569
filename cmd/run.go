package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"taskwatch/config"
	"taskwatch/log"
	"taskwatch/rundb"
	"taskwatch/stats"
	"taskwatch/supervisor"
	"taskwatch/tui"
)

// runFlags mirrors config.Config field-for-field; cobra populates these
// directly and they are layered over an INI file (if any) in runTaskFile.
type runFlags struct {
	processes         int
	threadsPerProcess int
	timeLimitSecs     int64
	memLimitKiB       int64
	directory         string
	recurseChildren   bool
	quiet             bool
	noThrottle        bool
	tui               bool
	configPath        string
	dbPath            string
}

var flags runFlags

func registerRunFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&flags.processes, "processes", "p", 1, "number of tasks to run in parallel")
	fs.IntVar(&flags.processes, "np", 1, "alias for --processes")
	fs.IntVarP(&flags.threadsPerProcess, "threads-per-process", "t", 1, "CPUs to pin per running task")
	fs.Int64VarP(&flags.timeLimitSecs, "timelim", "T", 0, "per-task wall-clock limit in seconds (<= 0 disables)")
	fs.Int64VarP(&flags.memLimitKiB, "memlim", "M", 0, "per-task RSS limit in KiB (<= 0 disables)")
	fs.StringVarP(&flags.directory, "directory", "d", ".", "base output directory")
	fs.BoolVarP(&flags.recurseChildren, "recurse-children", "r", false, "include descendant processes' RSS toward the memory limit")
	fs.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress stdout begin/result/end reports")
	fs.BoolVar(&flags.noThrottle, "no-throttle", false, "disable the dynamic worker throttler")
	fs.BoolVar(&flags.tui, "tui", false, "run the live terminal dashboard instead of plain stdout reporting")
	fs.StringVar(&flags.configPath, "config", "", "path to an optional INI file supplying flag defaults")
	fs.StringVar(&flags.dbPath, "db", "", "path to the run database file (default <directory>/.taskwatch.db)")
}

// runTaskFile loads configuration, opens the task file, and drives one
// supervised run to completion.
func runTaskFile(cmd *cobra.Command, taskFile string) error {
	cfg := config.Defaults()
	if err := cfg.LoadINI(flags.configPath); err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	cfg.TaskFile = taskFile
	cfg.ResolveDBPath()

	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.Open(cfg.TaskFile)
	if err != nil {
		return fmt.Errorf("open task file: %w", err)
	}
	defer f.Close()

	queue, err := supervisor.ParseTaskFile(f)
	if err != nil {
		return fmt.Errorf("parse task file: %w", err)
	}

	logger, err := log.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer logger.Close()
	logger.Info(fmt.Sprintf("starting run: %d tasks, %d processes", queue.Total(), cfg.Processes))

	db, err := rundb.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	defer db.Close()

	recorder, err := rundb.NewRun(db, cfg.TaskFile, int64(cfg.Processes), queue.Total())
	if err != nil {
		return fmt.Errorf("create run record: %w", err)
	}
	fmt.Printf("run %s\n", recorder.RunID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := stats.NewStatsCollector(ctx, cfg.Processes)
	defer collector.Close()

	var reporter supervisor.Reporter
	var dash *tui.Dashboard
	if cfg.TUI {
		dash = tui.NewDashboard(queue.Total())
		dash.SetInterruptHandler(func() {
			cancel()
			// The dashboard swallows the terminal's Ctrl+C, so forward it to
			// the supervisor's signal trap to start the same drain as SIGINT.
			_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
		})
		if err := dash.Start(); err != nil {
			return fmt.Errorf("start dashboard: %w", err)
		}
		defer dash.Stop()
		reporter = dash
		collector.AddConsumer(dash)
	} else if cfg.Quiet {
		// --quiet silences stdout only: the scheduler still reports every
		// event, so the wrappers below keep the run log and the collector
		// up to date.
		reporter = supervisor.NoopReporter{}
	} else {
		stdoutReporter := tui.NewStdoutReporter()
		reporter = stdoutReporter
		collector.AddConsumer(stdoutReporter)
	}

	throttler := supervisor.Throttler(supervisor.FixedThrottler{})
	if !cfg.NoThrottle {
		throttler = stats.NewSampler(cfg.Processes, false, collector)
	}

	opts := supervisor.Options{
		Processes:         cfg.Processes,
		ThreadsPerProcess: cfg.ThreadsPerProcess,
		TimeLimitSecs:     cfg.TimeLimitSecs,
		MemLimitKiB:       cfg.MemLimitKiB,
		RecurseChildren:   cfg.RecurseChildren,
		OutputDir:         cfg.Directory,
		Throttler:         throttler,
		Recorder:          recorder,
		Reporter:          &logReporter{inner: &statsReporter{inner: reporter, collector: collector}, logger: logger},
		SetupLogger:       logger.AsLibraryLogger(),
	}

	runStats := supervisor.Run(queue, opts)

	if err := recorder.Finish(runStats); err != nil {
		logger.Error(fmt.Sprintf("finish run record: %v", err))
	}
	logger.WriteSummary(queue.Total(), runStats.Exited, runStats.TimedOut, runStats.MemedOut, collector.GetSnapshot().Elapsed)

	return nil
}

// applyFlagOverrides copies flag values onto cfg, but only for flags the
// operator actually set — an INI value should not be clobbered by a flag
// default the user never touched.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("processes") || fs.Changed("np") {
		cfg.Processes = flags.processes
	}
	if fs.Changed("threads-per-process") {
		cfg.ThreadsPerProcess = flags.threadsPerProcess
	}
	if fs.Changed("timelim") {
		cfg.TimeLimitSecs = flags.timeLimitSecs
	}
	if fs.Changed("memlim") {
		cfg.MemLimitKiB = flags.memLimitKiB
	}
	if fs.Changed("directory") {
		cfg.Directory = flags.directory
	}
	if fs.Changed("recurse-children") {
		cfg.RecurseChildren = flags.recurseChildren
	}
	if fs.Changed("quiet") {
		cfg.Quiet = flags.quiet
	}
	if fs.Changed("no-throttle") {
		cfg.NoThrottle = flags.noThrottle
	}
	if fs.Changed("tui") {
		cfg.TUI = flags.tui
	}
	if fs.Changed("db") {
		cfg.DBPath = flags.dbPath
	}
}

// statsReporter wraps the operator-facing Reporter (stdout or dashboard)
// so every finalized task also feeds the stats collector's completion
// counters, without the scheduler needing to know the stats package exists.
type statsReporter struct {
	inner     supervisor.Reporter
	collector *stats.StatsCollector
}

func (r *statsReporter) Begin(instanceID int) {
	r.inner.Begin(instanceID)
}

func (r *statsReporter) Result(instanceID int, outcome supervisor.Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) {
	r.inner.Result(instanceID, outcome, rawWaitStatus, runtimeSecs, peakRSSKiB)
	r.collector.RecordCompletion(toTaskOutcome(outcome))
}

func (r *statsReporter) End(instanceID, done, total int) {
	r.collector.UpdateQueuedCount(total)
	r.inner.End(instanceID, done, total)
}

func (r *statsReporter) Errorf(format string, args ...any) {
	r.inner.Errorf(format, args...)
}

func toTaskOutcome(o supervisor.Outcome) stats.TaskOutcome {
	switch o {
	case supervisor.Timeout:
		return stats.TaskTimedOut
	case supervisor.Memout:
		return stats.TaskMemedOut
	default:
		return stats.TaskExited
	}
}

// logReporter wraps another Reporter so every finalized task and every
// scheduler-level error also lands in the run's classification files
// (see log.Logger), not just on stdout/the dashboard and in the Run
// Database.
type logReporter struct {
	inner  supervisor.Reporter
	logger *log.Logger
}

func (r *logReporter) Begin(instanceID int) {
	r.inner.Begin(instanceID)
}

func (r *logReporter) Result(instanceID int, outcome supervisor.Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) {
	switch outcome {
	case supervisor.Timeout:
		r.logger.TimedOut(instanceID, runtimeSecs)
	case supervisor.Memout:
		r.logger.MemedOut(instanceID, peakRSSKiB)
	default:
		r.logger.Exited(instanceID, rawWaitStatus)
	}
	r.inner.Result(instanceID, outcome, rawWaitStatus, runtimeSecs, peakRSSKiB)
}

func (r *logReporter) End(instanceID, done, total int) {
	r.inner.End(instanceID, done, total)
}

// Errorf logs every scheduler error to the debug log; a spawn failure is
// additionally broken out into its own classification file, recognized by
// the shared format string the scheduler reports it with.
func (r *logReporter) Errorf(format string, args ...any) {
	if format == supervisor.SpawnFailedFormat && len(args) == 2 {
		if instanceID, ok := args[0].(int); ok {
			r.logger.SpawnFailed(instanceID, fmt.Sprint(args[1]))
		}
	}
	r.logger.Debug(fmt.Sprintf(format, args...))
	r.inner.Errorf(format, args...)
}

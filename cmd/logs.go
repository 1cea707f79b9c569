package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskwatch/config"
	"taskwatch/log"
)

var logsDirectory string

var logsCmd = &cobra.Command{
	Use:   "logs [instance-id|log-name]",
	Short: "Inspect the run's summary and per-task logs",
	Long: `With no argument, lists the summary logs and task instances that have
captured output under --directory.

With a numeric argument, shows the captured stdout/stderr for that task
instance. With a summary log name (results, exit, timeout, memout, spawn,
debug, or its 00-05 file number), shows that log.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLogs,
}

var logsTail int
var logsGrep string

func init() {
	logsCmd.Flags().StringVarP(&logsDirectory, "directory", "d", ".", "base output directory")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "show only the last N lines of a summary log")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "show only lines of a summary log matching this substring")
}

// logFileNames maps the short names operators type against the actual
// files under <directory>/logs, mirroring the numbering ListLogs prints.
var logFileNames = map[string]string{
	"00": "00_last_results.log", "results": "00_last_results.log",
	"01": "01_exit_list.log", "exit": "01_exit_list.log",
	"02": "02_timeout_list.log", "timeout": "02_timeout_list.log",
	"03": "03_memout_list.log", "memout": "03_memout_list.log",
	"04": "04_spawn_errors.log", "spawn": "04_spawn_errors.log",
	"05": "05_debug.log", "debug": "05_debug.log",
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()
	cfg.Directory = logsDirectory

	if len(args) == 0 {
		log.ListLogs(cfg)
		summary := log.GetLogSummary(cfg)
		fmt.Printf("\nexited %d  timed_out %d  memed_out %d\n",
			summary["exited"], summary["timed_out"], summary["memed_out"])
		return nil
	}

	if instanceID, err := strconv.Atoi(args[0]); err == nil {
		log.ViewTaskLog(cfg, instanceID)
		return nil
	}

	logName, ok := logFileNames[args[0]]
	if !ok {
		return fmt.Errorf("unknown log %q (want an instance id or one of: results, exit, timeout, memout, spawn, debug)", args[0])
	}

	switch {
	case logsGrep != "":
		log.GrepLog(cfg, logName, logsGrep)
	case logsTail > 0:
		log.TailLog(cfg, logName, logsTail)
	default:
		log.ViewLog(cfg, logName)
	}
	return nil
}

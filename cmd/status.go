package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskwatch/rundb"
)

var statusDBPath string

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Inspect the run database",
	Long: `With no run id, lists recent runs (start time, counts, status).
With a run id, lists every task outcome recorded for that run.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDBPath, "db", ".taskwatch.db", "path to the run database file")
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := rundb.OpenDB(statusDBPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		return listRuns(db)
	}
	return showRun(db, args[0])
}

func listRuns(db *rundb.DB) error {
	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	fmt.Printf("%-36s  %-19s  %-8s  %5s  %6s  %7s  %7s\n",
		"RUN ID", "STARTED", "STATUS", "TOTAL", "EXITED", "TIMEOUT", "MEMOUT")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %-8s  %5d  %6d  %7d  %7d\n",
			r.UUID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.Total, r.Exited, r.TimedOut, r.MemedOut)
	}
	return nil
}

func showRun(db *rundb.DB, runID string) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Printf("run %s (%s)\n", run.UUID, run.Status)
	fmt.Printf("  task file:  %s\n", run.TaskFile)
	fmt.Printf("  started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("  finished:   %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  total:      %d  exited %d  timeout %d  memout %d\n",
		run.Total, run.Exited, run.TimedOut, run.MemedOut)

	tasks, err := db.TasksForRun(runID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	fmt.Println()
	fmt.Printf("%8s  %-9s  %7s  %10s  %9s\n", "INSTANCE", "OUTCOME", "RETVAL", "TIME_SECS", "PEAK_KIB")
	for _, t := range tasks {
		fmt.Printf("%8d  %-9s  %7d  %10.2f  %9d\n",
			t.InstanceID, t.Outcome, t.RawWaitStatus, t.RuntimeSecs, t.PeakRSSKiB)
	}
	return nil
}

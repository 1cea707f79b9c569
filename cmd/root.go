// Package cmd implements the taskwatch command-line surface: the run
// command that drives one supervised batch, the status command that
// inspects the Run Database afterward, and the logs command that reads
// back a run's summary and per-task log files.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the taskwatch entry point. Running it with no subcommand
// and no task file prints usage and exits 0, matching a batch tool that
// is harmless to invoke by accident.
var rootCmd = &cobra.Command{
	Use:   "taskwatch [flags] <task-file>",
	Short: "Run user-supplied commands under bounded parallelism and resource limits",
	Long: `taskwatch executes the commands listed in a task file as child
processes, bounding how many run at once and how much wall-clock time and
memory each may consume, and records a structured outcome for every task.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the taskwatch CLI. Called directly from main.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "taskwatch: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	registerRunFlags(rootCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}
	return runTaskFile(cmd, args[0])
}

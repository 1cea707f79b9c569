package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// taskLogPath returns the per-task log directory and the single log file
// inside it, matching the external layout "<output_dir>/<instance_id>/rw".
func taskLogPath(outputDir string, instanceID int) (dir, file string) {
	dir = filepath.Join(outputDir, fmt.Sprintf("%d", instanceID))
	file = filepath.Join(dir, "rw")
	return
}

// openTaskLog creates the per-task log directory and opens its log file
// for append, creating it if necessary.
func openTaskLog(outputDir string, instanceID int) (*os.File, error) {
	dir, file := taskLogPath(outputDir, instanceID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// spawnResult carries back either a live pid to track, or a synthetic
// immediate-failure outcome when the process could never be started.
type spawnResult struct {
	cmd     *exec.Cmd
	pid     int
	failed  bool // true if the process never started (argv empty, exec lookup failure)
	exitErr error
}

// spawn forks and execs task.Argv with stdout/stderr redirected into the
// task's log file. It never blocks on the child's completion: the caller
// registers the returned pid with the reaper and moves on.
//
// Go's os/exec performs fork+exec as a single Start() call; unlike a raw
// fork/dup2/execvp sequence there is no window where the parent observes
// a live pid whose exec is still pending. An exec lookup or permission
// failure is therefore reported synchronously as a failed spawn rather
// than surfacing later through the reaper with a non-zero wait status;
// the scheduler treats both cases identically (see dispatch in
// scheduler.go), so the external report.STATUS=EXIT contract is
// preserved either way.
func spawn(task Task, logFile *os.File) spawnResult {
	if len(task.Argv) == 0 {
		return spawnResult{failed: true, exitErr: fmt.Errorf("empty argv")}
	}

	cmd := exec.Command(task.Argv[0], task.Argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return spawnResult{failed: true, exitErr: err}
	}
	return spawnResult{cmd: cmd, pid: cmd.Process.Pid}
}

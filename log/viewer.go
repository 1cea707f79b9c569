package log

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"taskwatch/config"
)

// ListLogs lists all available log files.
func ListLogs(cfg *config.Config) {
	fmt.Println("Available log files:")
	fmt.Println()
	fmt.Println("Summary logs:")
	fmt.Println("  00 or results - 00_last_results.log")
	fmt.Println("  01 or exit    - 01_exit_list.log")
	fmt.Println("  02 or timeout - 02_timeout_list.log")
	fmt.Println("  03 or memout  - 03_memout_list.log")
	fmt.Println("  04 or spawn   - 04_spawn_errors.log")
	fmt.Println("  05 or debug   - 05_debug.log")
	fmt.Println()
	fmt.Println("Per-task logs:")
	fmt.Println("  Use an instance id to view that task's captured output")
	fmt.Println()

	dir := cfg.Directory
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	fmt.Println("Task instances with logs:")
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), "rw")); err == nil {
			fmt.Printf("  %s\n", e.Name())
		}
	}
}

// ViewLog views a named summary log under <directory>/logs.
func ViewLog(cfg *config.Config, logName string) {
	viewFile(filepath.Join(logsDir(cfg), logName))
}

// ViewTaskLog views the captured stdout/stderr of one task instance.
func ViewTaskLog(cfg *config.Config, instanceID int) {
	path := filepath.Join(cfg.Directory, strconv.Itoa(instanceID), "rw")
	viewFile(path)
}

func viewFile(path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return
	}

	if usePager() {
		viewWithPager(path)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
}

// usePager checks if a pager is available.
func usePager() bool {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	_, err := exec.LookPath(pager)
	return err == nil
}

// viewWithPager views a file using a pager.
func viewWithPager(path string) {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}

	cmd := exec.Command(pager, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Run()
}

// TailLog shows the last N lines of a named summary log.
func TailLog(cfg *config.Config, logName string, lines int) {
	path := filepath.Join(logsDir(cfg), logName)

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	var allLines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}

	start := len(allLines) - lines
	if start < 0 {
		start = 0
	}
	for i := start; i < len(allLines); i++ {
		fmt.Println(allLines[i])
	}
}

// GrepLog searches for a pattern in a named summary log.
func GrepLog(cfg *config.Config, logName, pattern string) {
	path := filepath.Join(logsDir(cfg), logName)

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.Contains(line, pattern) {
			fmt.Printf("%d: %s\n", lineNum, line)
		}
	}
}

// GetLogSummary returns a count of outcomes from the summary logs.
func GetLogSummary(cfg *config.Config) map[string]int {
	summary := make(map[string]int)
	dir := logsDir(cfg)

	if n, err := countLines(filepath.Join(dir, "01_exit_list.log")); err == nil {
		summary["exited"] = n
	}
	if n, err := countLines(filepath.Join(dir, "02_timeout_list.log")); err == nil {
		summary["timed_out"] = n
	}
	if n, err := countLines(filepath.Join(dir, "03_memout_list.log")); err == nil {
		summary["memed_out"] = n
	}

	return summary
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			count++
		}
	}
	return count, scanner.Err()
}

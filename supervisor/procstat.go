package supervisor

import (
	"os"
	"strconv"
	"strings"
)

// pageSizeKiB is sampled once; os.Getpagesize never changes within a process.
var pageSizeKiB = int64(os.Getpagesize()) / 1024

// sampleRSS reads /proc/<pid>/stat and returns the process's resident set
// size in KiB. Any failure (the process has already exited, the kernel
// doesn't expose /proc, the line is malformed) collapses to zero rather
// than an error: RSS sampling races constantly against process exit and
// must never fail a task.
func sampleRSS(pid int) int64 {
	data, err := os.ReadFile(statPath(pid))
	if err != nil {
		return 0
	}
	return parseStatRSS(data)
}

// parseStatRSS extracts the rss field (in pages) from the contents of
// /proc/<pid>/stat and converts it to KiB. The comm field (2nd column) is
// parenthesized and may itself contain spaces or closing parens, so
// fields are located by finding the last ')' and tokenizing everything
// after it, rather than by splitting the whole line on whitespace.
func parseStatRSS(data []byte) int64 {
	line := string(data)
	closeParen := strings.LastIndexByte(line, ')')
	if closeParen < 0 || closeParen+2 > len(line) {
		return 0
	}
	fields := strings.Fields(line[closeParen+2:])
	// After comm, fields[0] is state; rss is field 22 counting from state,
	// i.e. index 21 in this zero-based slice (pid and comm already consumed).
	const rssIndex = 21
	if len(fields) <= rssIndex {
		return 0
	}
	pages, err := strconv.ParseInt(fields[rssIndex], 10, 64)
	if err != nil || pages < 0 {
		return 0
	}
	return pages * pageSizeKiB
}

// sampleRSSTree returns the RSS of pid, and if recurse is true, adds the
// RSS of every descendant reachable through /proc/<pid>/task/<pid>/children.
// A descendant that disappears mid-walk contributes zero, never an error.
func sampleRSSTree(pid int, recurse bool) int64 {
	total := sampleRSS(pid)
	if !recurse {
		return total
	}
	for _, child := range childPIDs(pid) {
		total += sampleRSSTree(child, true)
	}
	return total
}

func childPIDs(pid int) []int {
	data, err := os.ReadFile(childrenPath(pid))
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(data))
	children := make([]int, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			children = append(children, n)
		}
	}
	return children
}

func statPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid) + "/stat"
}

func childrenPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid) + "/task/" + strconv.Itoa(pid) + "/children"
}

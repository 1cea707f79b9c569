package supervisor

import "golang.org/x/sys/unix"

const (
	sigint  = unix.SIGINT
	sigkill = unix.SIGKILL
)

// signalPID sends sig to pid. A failure (the process has already exited
// between the caller's decision and this call) is not escalated; the
// next enforcement tick will simply find the slot already reaped.
func signalPID(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

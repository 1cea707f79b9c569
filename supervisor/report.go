package supervisor

import "fmt"

// statusWord maps a finalized Outcome to the wire vocabulary used in
// report lines. Running never reaches here; finalize always resolves it
// to one of the other three first.
func statusWord(o Outcome) string {
	switch o {
	case Timeout:
		return "TIMEOUT"
	case Memout:
		return "MEMOUT"
	default:
		return "EXIT"
	}
}

// ResultLine formats the report line emitted to stdout. The log-file
// variant omits the leading instance id since it already lives inside
// that instance's own log directory.
func ResultLine(instanceID int, outcome Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) string {
	return fmt.Sprintf("%d %s", instanceID, resultBody(outcome, rawWaitStatus, runtimeSecs, peakRSSKiB))
}

// ResultLineForLog formats the same line without the leading instance id.
func ResultLineForLog(outcome Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) string {
	return resultBody(outcome, rawWaitStatus, runtimeSecs, peakRSSKiB)
}

func resultBody(outcome Outcome, rawWaitStatus int, runtimeSecs float64, peakRSSKiB int64) string {
	return fmt.Sprintf("RUNWATCH_RESULT %s RETVAL %d TIME_SECS %.2f MEMPEAK_KBS %d",
		statusWord(outcome), rawWaitStatus, runtimeSecs, peakRSSKiB)
}

// BeginLine formats the dispatch announcement emitted when not quiet.
func BeginLine(instanceID int) string {
	return fmt.Sprintf("%d BEGIN", instanceID)
}

// EndLine formats the completion announcement emitted when not quiet.
func EndLine(instanceID, done, total int) string {
	return fmt.Sprintf("%d END (%d/%d done)", instanceID, done, total)
}

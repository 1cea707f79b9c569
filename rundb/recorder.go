package rundb

import (
	"time"

	"github.com/google/uuid"

	"taskwatch/supervisor"
)

// RunRecorder adapts a DB to the supervisor.Recorder interface, tagging
// every task outcome with the UUID of the run that produced it.
type RunRecorder struct {
	db    *DB
	runID string
}

// NewRun starts a new run record and returns a RunRecorder bound to it.
// Call Finish once the supervisor loop returns.
func NewRun(db *DB, taskFile string, processes int64, total int) (*RunRecorder, error) {
	rec := &RunRecord{
		UUID:      uuid.NewString(),
		TaskFile:  taskFile,
		Processes: processes,
		Status:    RunStatusActive,
		StartedAt: time.Now(),
		Total:     total,
	}
	if err := db.SaveRun(rec); err != nil {
		return nil, err
	}
	return &RunRecorder{db: db, runID: rec.UUID}, nil
}

// RunID returns the UUID of the underlying run record.
func (r *RunRecorder) RunID() string { return r.runID }

// RecordTask implements supervisor.Recorder.
func (r *RunRecorder) RecordTask(rec supervisor.TaskRecord) error {
	return r.db.SaveTask(&TaskRecord{
		RunID:         r.runID,
		InstanceID:    rec.InstanceID,
		Outcome:       rec.Outcome.String(),
		RawWaitStatus: rec.RawWaitStatus,
		RuntimeSecs:   rec.RuntimeSecs,
		PeakRSSKiB:    rec.PeakRSSKiB,
		RecordedAt:    time.Now(),
	})
}

// Finish marks the run as done and stores final aggregate stats.
func (r *RunRecorder) Finish(stats supervisor.Stats) error {
	run, err := r.db.GetRun(r.runID)
	if err != nil {
		return err
	}
	run.Status = RunStatusDone
	run.FinishedAt = time.Now()
	run.Dispatched = stats.Dispatched
	run.Exited = stats.Exited
	run.TimedOut = stats.TimedOut
	run.MemedOut = stats.MemedOut
	return r.db.SaveRun(run)
}

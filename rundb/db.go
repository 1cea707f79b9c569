package rundb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for the bbolt database.
const (
	BucketRuns  = "runs"
	BucketTasks = "tasks"
	// BucketIndex maps a start-time-ordered key to a run UUID, so
	// ListRuns can walk runs most-recent-first with a plain cursor scan
	// instead of decoding and sorting every record in BucketRuns. Mirrors
	// the teacher's crc_index bucket: a secondary index keyed for the
	// lookup pattern callers actually need, alongside the primary bucket
	// keyed by UUID.
	BucketIndex = "index"
)

// DB wraps a bbolt database holding run and task history.
type DB struct {
	db   *bolt.DB
	path string
}

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusActive RunStatus = "active"
	RunStatusDone   RunStatus = "done"
)

// RunRecord summarizes one invocation of the supervisor.
type RunRecord struct {
	UUID       string    `json:"uuid"`
	TaskFile   string    `json:"task_file"`
	Processes  int64     `json:"processes"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Dispatched int       `json:"dispatched"`
	Exited     int       `json:"exited"`
	TimedOut   int       `json:"timed_out"`
	MemedOut   int       `json:"memed_out"`
}

// TaskRecord is the persisted outcome of a single task instance.
type TaskRecord struct {
	RunID         string    `json:"run_id"`
	InstanceID    int       `json:"instance_id"`
	Outcome       string    `json:"outcome"`
	RawWaitStatus int       `json:"raw_wait_status"`
	RuntimeSecs   float64   `json:"runtime_secs"`
	PeakRSSKiB    int64     `json:"peak_rss_kib"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// OpenDB opens or creates a bbolt database at path, initializing the runs,
// tasks, and index buckets if they don't already exist.
func OpenDB(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketRuns)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketRuns, Err: err}
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketTasks)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketTasks, Err: err}
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketIndex)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketIndex, Err: err}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	return &DB{db: bdb, path: path}, nil
}

// Close closes the database connection. Safe to call more than once.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SaveRun stores or overwrites a RunRecord keyed by its UUID.
func (db *DB) SaveRun(rec *RunRecord) error {
	if rec.UUID == "" {
		return &RunError{Op: "save", Err: ErrEmptyRunID}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &RunError{Op: "marshal", RunID: rec.UUID, Err: err}
	}

	err = db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketRuns))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}
		if err := bucket.Put([]byte(rec.UUID), data); err != nil {
			return err
		}

		index := tx.Bucket([]byte(BucketIndex))
		if index == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketIndex, Err: ErrBucketNotFound}
		}
		// StartedAt never changes after the run is created, so this key is
		// stable across the create-then-finish Save sequence: no stale
		// duplicate index entries accumulate.
		return index.Put(indexKey(rec.StartedAt, rec.UUID), []byte(rec.UUID))
	})
	if err != nil {
		return &RunError{Op: "save", RunID: rec.UUID, Err: err}
	}
	return nil
}

// indexKey builds a lexicographically time-ordered key for BucketIndex.
// UnixNano zero-padded to a fixed width sorts identically to chronological
// order; the UUID suffix disambiguates same-nanosecond collisions.
func indexKey(startedAt time.Time, uuid string) []byte {
	return []byte(fmt.Sprintf("%020d/%s", startedAt.UnixNano(), uuid))
}

// GetRun retrieves a RunRecord by UUID.
func (db *DB) GetRun(uuid string) (*RunRecord, error) {
	if uuid == "" {
		return nil, &RunError{Op: "get", Err: ErrEmptyRunID}
	}

	var rec RunRecord
	err := db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketRuns))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}
		data := bucket.Get([]byte(uuid))
		if data == nil {
			return &RunError{Op: "get", RunID: uuid, Err: ErrRunNotFound}
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRuns returns every stored RunRecord, most recently started first, by
// walking BucketIndex backward and fetching each run by the UUID it points
// to — no decode-everything-then-sort pass over BucketRuns.
func (db *DB) ListRuns() ([]*RunRecord, error) {
	var runs []*RunRecord
	err := db.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket([]byte(BucketIndex))
		if index == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketIndex, Err: ErrBucketNotFound}
		}
		runsBucket := tx.Bucket([]byte(BucketRuns))
		if runsBucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}

		c := index.Cursor()
		for k, uuid := c.Last(); k != nil; k, uuid = c.Prev() {
			data := runsBucket.Get(uuid)
			if data == nil {
				continue // run record deleted out from under a stale index entry
			}
			var rec RunRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return &DatabaseError{Op: "unmarshal", Bucket: BucketRuns, Err: err}
			}
			runs = append(runs, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// taskKey builds the composite bbolt key for a task record.
func taskKey(runID string, instanceID int) []byte {
	return []byte(fmt.Sprintf("%s/%08d", runID, instanceID))
}

// SaveTask stores a TaskRecord under its run and instance id.
func (db *DB) SaveTask(rec *TaskRecord) error {
	if rec.RunID == "" {
		return &TaskError{Op: "save", InstanceID: rec.InstanceID, Err: ErrEmptyRunID}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &TaskError{Op: "marshal", RunID: rec.RunID, InstanceID: rec.InstanceID, Err: err}
	}

	err = db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketTasks))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketTasks, Err: ErrBucketNotFound}
		}
		return bucket.Put(taskKey(rec.RunID, rec.InstanceID), data)
	})
	if err != nil {
		return &TaskError{Op: "save", RunID: rec.RunID, InstanceID: rec.InstanceID, Err: err}
	}
	return nil
}

// TasksForRun returns every TaskRecord belonging to runID, ordered by
// instance id.
func (db *DB) TasksForRun(runID string) ([]*TaskRecord, error) {
	if runID == "" {
		return nil, &TaskError{Op: "list", Err: ErrEmptyRunID}
	}

	prefix := []byte(runID + "/")
	var tasks []*TaskRecord
	err := db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketTasks))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketTasks, Err: ErrBucketNotFound}
		}
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var rec TaskRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return &DatabaseError{Op: "unmarshal", Bucket: BucketTasks, Err: err}
			}
			tasks = append(tasks, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].InstanceID < tasks[j].InstanceID })
	return tasks, nil
}

// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package dsim

// EventKind labels the terminal outcome of a dispatched task.
type EventKind string

const (
	// KindCompleted marks a task its worker finished successfully.
	KindCompleted EventKind = "task_completed"

	// KindFailed marks a task its worker traveled to and worked on but did
	// not complete successfully.
	KindFailed EventKind = "task_failed"

	// KindUnaccepted marks a task every offered candidate declined.
	KindUnaccepted EventKind = "task_unaccepted"

	// KindNoCandidates marks a task for which no worker had the required
	// skill within the search radius.
	KindNoCandidates EventKind = "task_failed_no_candidates"
)

// Matched reports whether records of this kind carry worker, distance,
// travel, work, and wait data.
func (k EventKind) Matched() bool {
	return k == KindCompleted || k == KindFailed
}

// UnmatchedWorkerID is the WorkerID recorded when no worker was assigned.
const UnmatchedWorkerID = -1

// EventRecord is one entry of a run's event log: the terminal outcome of a
// single task. Exactly one record is emitted per task that reaches a
// terminal state before the horizon.
//
// Numeric fields are stored unrounded so that record-level relationships,
// such as WithinSLA being exactly equivalent to WaitMinutes <= the task
// type's SLA, hold without tolerance. Rounding is left to presentation
// layers. On records whose Kind is not [EventKind.Matched], WorkerID is
// [UnmatchedWorkerID] and the distance, travel, work, and wait fields are
// zero.
type EventRecord struct {
	// Time is the virtual minute at which the outcome was recorded.
	Time float64 `json:"time"`

	Kind       EventKind `json:"event"`
	TaskID     string    `json:"task_id"`
	Property   string    `json:"property"`
	PropertyID int       `json:"property_id"`
	TaskType   string    `json:"type"`
	WorkerID   int       `json:"worker_id"`

	DistanceKm    float64 `json:"distance_km"`
	TravelMinutes float64 `json:"travel_minutes"`
	WorkMinutes   float64 `json:"work_minutes"`

	// WaitMinutes is the span from task arrival to the terminal outcome.
	WaitMinutes float64 `json:"wait_minutes"`
	WithinSLA   bool    `json:"within_sla"`

	// Payout is zero unless Kind is [KindCompleted].
	Payout float64 `json:"payout"`
}

// Log is an append-only, in-memory event log. The single-threaded engine
// guarantees one writer, so Log needs no locking.
type Log struct {
	records []EventRecord
}

// Append adds a record to the end of the log.
func (l *Log) Append(rec EventRecord) {
	l.records = append(l.records, rec)
}

// Len returns the number of records appended so far.
func (l *Log) Len() int {
	return len(l.records)
}

// Records returns the log entries in append order. The slice is the log's
// backing store and must not be modified.
func (l *Log) Records() []EventRecord {
	return l.records
}

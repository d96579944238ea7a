package recorder

import "time"

// CycleEvent is the audit record of one scheduler cycle. No quote values are stored.
type CycleEvent struct {
	At              time.Time
	Outcome         string // e.g. "posted", "skipped_closed", "failed"
	IntervalMinutes int
	Requested       int
	Posted          int
	Duration        time.Duration
	Error           string
}

// Recorder persists scheduler history for later inspection.
type Recorder interface {
	RecordCycle(evt *CycleEvent) error
	// RecentCycles returns up to limit events, newest first.
	RecentCycles(limit int) ([]CycleEvent, error)
	// Prune deletes events older than before and reports how many were removed.
	Prune(before time.Time) (int64, error)
	Close() error
}

package domain

import "time"

// BatchStats summarizes one committed batch.
type BatchStats struct {
	Collection string `json:"collection"`
	Batch      int    `json:"batch"`
	Fetched    int    `json:"fetched"`
	Processed  int    `json:"processed"`
	Rotated    int    `json:"rotated"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	Cursor     string `json:"cursor"`
}

// RunStats summarizes a rotation run over one collection.
//
// Processed counts records handled without error, Rotated counts fields
// re-encrypted, Skipped counts fields already on the current key version and
// Errors counts records left untouched because of a failure.
type RunStats struct {
	RunID       string        `json:"runId"`
	Collection  string        `json:"collection"`
	ResumedFrom string        `json:"resumedFrom,omitempty"`
	Batches     int           `json:"batches"`
	Processed   int           `json:"processed"`
	Rotated     int           `json:"rotated"`
	Skipped     int           `json:"skipped"`
	Errors      int           `json:"errors"`
	Cursor      string        `json:"cursor,omitempty"`
	Completed   bool          `json:"completed"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// Add folds a batch into the run totals.
func (s *RunStats) Add(b BatchStats) {
	s.Batches++
	s.Processed += b.Processed
	s.Rotated += b.Rotated
	s.Skipped += b.Skipped
	s.Errors += b.Errors
	if b.Cursor != "" {
		s.Cursor = b.Cursor
	}
}

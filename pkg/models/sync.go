package models

import "time"

// SourceReport summarizes one federation's portion of a sync run.
// Error is set when the fetch failed; the other counters then reflect
// whatever was processed before the failure (normally zero).
type SourceReport struct {
	Org        Org           `json:"org"`
	Fetched    int           `json:"fetched"`
	Saved      int           `json:"saved"`
	Skipped    int           `json:"skipped"`
	AutoLinked int           `json:"auto_linked"`
	Pending    int           `json:"pending"`
	Created    int           `json:"created"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// SyncReport aggregates the per-source reports of one complete run.
// Sources sync independently; a failed source never aborts the others.
type SyncReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceReport `json:"sources"`
}

// HasErrors reports whether any source failed during the run.
func (r *SyncReport) HasErrors() bool {
	for _, s := range r.Sources {
		if s.Error != "" {
			return true
		}
	}
	return false
}

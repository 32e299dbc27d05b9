// Package progress maps long-running runs to a throttled sequence of
// progress snapshots: every report is cached with a short TTL, but only
// significant changes are forwarded to the broadcast collaborator so the
// real-time transport is not flooded during long training epochs.
package progress

import (
	"time"
)

// SnapshotTTL is how long a cached snapshot outlives the report that
// wrote it. A stale run's snapshots disappear on their own.
const SnapshotTTL = 10 * time.Minute

// Metrics carries the optional training metrics of a snapshot.
type Metrics struct {
	CurrentEpoch int     `json:"current_epoch"`
	TotalEpochs  int     `json:"total_epochs"`
	Loss         float64 `json:"loss"`
	Accuracy     float64 `json:"accuracy"`
}

// Snapshot is the latest known fractional-completion state of one run
// stage. It is overwritten by the next report and superseded entirely by
// run completion.
type Snapshot struct {
	EntityID  string    `json:"entity_id"`
	Stage     string    `json:"stage"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Metrics   *Metrics  `json:"metrics,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Func is the progress callback handed to Trainer and Evaluator. Calls
// are synchronous and best-effort from the caller's perspective.
type Func func(percent float64, message string, metrics *Metrics)

// Discard is a Func that drops every report.
func Discard(float64, string, *Metrics) {}

package progress

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/urbanrisk/crimeml/metrics"
	"github.com/urbanrisk/crimeml/pkg/log"
)

// forwardDelta is the minimum percent change that triggers a broadcast
// between the first and the final report of a key.
const forwardDelta = 5.0

// Tracker throttles progress reports per (entity, stage) key. Every
// report is cached; a report is forwarded to the broadcaster only on the
// first report for its key, on a change of at least forwardDelta since
// the last forwarded value, or at completion.
//
// The last-forwarded baseline lives in a per-key map owned by the
// tracker instance. Concurrent runs therefore never interfere with each
// other's throttling.
type Tracker struct {
	cache       Cache
	broadcaster Broadcaster

	mu            sync.Mutex
	lastForwarded map[string]float64
}

// NewTracker creates a Tracker over the given collaborators.
func NewTracker(cache Cache, broadcaster Broadcaster) *Tracker {
	return &Tracker{
		cache:         cache,
		broadcaster:   broadcaster,
		lastForwarded: make(map[string]float64),
	}
}

func key(entityID, stage string) string {
	return entityID + ":" + stage
}

// clampPercent forces percent into [0, 100], mapping NaN and -Inf to 0
// and +Inf to 100, then rounds to two decimals.
func clampPercent(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return metrics.Round2(percent)
}

// Report records one progress checkpoint for a run stage. Cache writes
// and broadcasts are best-effort: failures are logged and swallowed so
// they never abort the run.
func (t *Tracker) Report(ctx context.Context, entityID, stage string, percent float64, message string, m *Metrics) {
	snap := Snapshot{
		EntityID:  entityID,
		Stage:     stage,
		Percent:   clampPercent(percent),
		Message:   message,
		Metrics:   m,
		UpdatedAt: time.Now().UTC(),
	}

	if err := t.cache.Put(ctx, key(entityID, stage), snap, SnapshotTTL); err != nil {
		slog.Warn("progress cache write failed",
			log.RunIDKey, entityID,
			log.StageKey, stage,
			log.ErrAttr(err),
		)
	}

	if !t.shouldForward(entityID, stage, snap.Percent) {
		return
	}
	if err := t.broadcaster.Publish(ctx, snap); err != nil {
		slog.Warn("progress broadcast failed",
			log.RunIDKey, entityID,
			log.StageKey, stage,
			log.ErrAttr(err),
		)
	}
}

// shouldForward applies the throttling rule and advances the per-key
// baseline when it fires.
func (t *Tracker) shouldForward(entityID, stage string, percent float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(entityID, stage)
	last, seen := t.lastForwarded[k]
	if seen && percent < 100 && math.Abs(percent-last) < forwardDelta {
		return false
	}
	t.lastForwarded[k] = percent
	return true
}

// Func binds the tracker to one run stage as a progress callback for the
// trainer or evaluator.
func (t *Tracker) Func(ctx context.Context, entityID, stage string) Func {
	return func(percent float64, message string, m *Metrics) {
		t.Report(ctx, entityID, stage, percent, message, m)
	}
}

// Forget drops the throttling baseline and cached state reference for a
// finished run stage. The cache entry itself expires on its TTL.
func (t *Tracker) Forget(entityID, stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastForwarded, key(entityID, stage))
}

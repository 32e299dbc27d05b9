package progress

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// recordingBroadcaster captures every forwarded snapshot.
type recordingBroadcaster struct {
	snaps []Snapshot
}

func (b *recordingBroadcaster) Publish(_ context.Context, snap Snapshot) error {
	b.snaps = append(b.snaps, snap)
	return nil
}

func (b *recordingBroadcaster) percents() []float64 {
	out := make([]float64, len(b.snaps))
	for i, s := range b.snaps {
		out[i] = s.Percent
	}
	return out
}

type failingBroadcaster struct{}

func (failingBroadcaster) Publish(context.Context, Snapshot) error {
	return errors.New("transport down")
}

func TestTrackerThrottling(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	tracker := NewTracker(NewMemoryCache(), b)

	// Sub-delta chatter is suppressed; the first report, >= 5 point
	// jumps, and completion always forward.
	for _, percent := range []float64{0, 1, 2, 3, 4, 5, 5, 10, 100} {
		tracker.Report(ctx, "model-a", "training", percent, "", nil)
	}

	if diff := cmp.Diff([]float64{0, 5, 10, 100}, b.percents()); diff != "" {
		t.Errorf("forwarded percents mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerCompletionAlwaysForwards(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	tracker := NewTracker(NewMemoryCache(), b)

	tracker.Report(ctx, "m", "training", 99, "", nil)
	tracker.Report(ctx, "m", "training", 100, "done", nil)

	if diff := cmp.Diff([]float64{99, 100}, b.percents()); diff != "" {
		t.Errorf("forwarded percents mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerIndependentKeys(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	tracker := NewTracker(NewMemoryCache(), b)

	// Interleaved runs keep separate baselines: entity B's reports must
	// not consume entity A's delta budget.
	tracker.Report(ctx, "a", "training", 0, "", nil)
	tracker.Report(ctx, "b", "training", 0, "", nil)
	tracker.Report(ctx, "a", "training", 3, "", nil) // suppressed
	tracker.Report(ctx, "b", "training", 5, "", nil) // forwarded
	tracker.Report(ctx, "a", "training", 5, "", nil) // forwarded

	want := []Snapshot{
		{EntityID: "a", Percent: 0},
		{EntityID: "b", Percent: 0},
		{EntityID: "b", Percent: 5},
		{EntityID: "a", Percent: 5},
	}
	if len(b.snaps) != len(want) {
		t.Fatalf("forwarded %d snapshots, want %d: %+v", len(b.snaps), len(want), b.snaps)
	}
	for i, snap := range b.snaps {
		if snap.EntityID != want[i].EntityID || snap.Percent != want[i].Percent {
			t.Errorf("snap[%d] = %s/%v, want %s/%v",
				i, snap.EntityID, snap.Percent, want[i].EntityID, want[i].Percent)
		}
	}

	// Stages of one entity are separate keys too.
	before := len(b.snaps)
	tracker.Report(ctx, "a", "evaluation", 6, "", nil)
	if len(b.snaps) != before+1 {
		t.Error("new stage of a known entity must forward its first report")
	}
}

func TestTrackerClamping(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -10, 0},
		{"nan", math.NaN(), 0},
		{"above range", 150, 100},
		{"rounded to two decimals", 33.33333, 33.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPercent(tt.in); got != tt.want {
				t.Errorf("clampPercent(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrackerCachesEveryReport(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	tracker := NewTracker(cache, &recordingBroadcaster{})

	tracker.Report(ctx, "m", "training", 0, "start", nil)
	tracker.Report(ctx, "m", "training", 2, "still going", &Metrics{CurrentEpoch: 3, TotalEpochs: 50, Loss: 0.4})

	snap, err := cache.Get(ctx, "m:training")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap == nil {
		t.Fatal("no cached snapshot")
	}
	// The suppressed report still lands in the cache.
	if snap.Percent != 2 || snap.Message != "still going" {
		t.Errorf("cached snapshot = %+v, want the latest report", snap)
	}
	if snap.Metrics == nil || snap.Metrics.CurrentEpoch != 3 {
		t.Errorf("cached metrics = %+v", snap.Metrics)
	}
}

func TestTrackerBroadcastFailureIsSwallowed(t *testing.T) {
	tracker := NewTracker(NewMemoryCache(), failingBroadcaster{})
	// Must not panic or error out.
	tracker.Report(context.Background(), "m", "training", 0, "", nil)
	tracker.Report(context.Background(), "m", "training", 100, "", nil)
}

func TestTrackerFunc(t *testing.T) {
	b := &recordingBroadcaster{}
	tracker := NewTracker(NewMemoryCache(), b)

	fn := tracker.Func(context.Background(), "m", "training")
	fn(0, "start", nil)
	fn(50, "half", nil)

	if diff := cmp.Diff([]float64{0, 50}, b.percents()); diff != "" {
		t.Errorf("forwarded percents mismatch (-want +got):\n%s", diff)
	}
	if b.snaps[0].Stage != "training" {
		t.Errorf("Stage = %q, want training", b.snaps[0].Stage)
	}
}

func TestTrackerForget(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	tracker := NewTracker(NewMemoryCache(), b)

	tracker.Report(ctx, "m", "training", 50, "", nil)
	tracker.Forget("m", "training")
	tracker.Report(ctx, "m", "training", 51, "", nil)

	// After Forget the next report counts as a first report again.
	if diff := cmp.Diff([]float64{50, 51}, b.percents()); diff != "" {
		t.Errorf("forwarded percents mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	if err := cache.Put(ctx, "k", Snapshot{Percent: 10}, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	snap, err := cache.Get(ctx, "k")
	if err != nil || snap == nil {
		t.Fatalf("Get() = %v, %v; want live entry", snap, err)
	}

	time.Sleep(20 * time.Millisecond)
	snap, err = cache.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Errorf("Get() after TTL = %+v, want nil", snap)
	}
}

func TestMemoryCacheMissingKey(t *testing.T) {
	snap, err := NewMemoryCache().Get(context.Background(), "missing")
	if err != nil || snap != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", snap, err)
	}
}

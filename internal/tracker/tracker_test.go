package tracker

import (
	"testing"
	"time"

	"github.com/dooh-labs/attentiond/internal/detect"
)

// obs builds an observation with a size-px square box centered at (cx, cy).
func obs(cx, cy, size int, frontal bool) Observation {
	half := size / 2
	return Observation{
		Detection: detect.Detection{
			Box: detect.Box{X1: cx - half, Y1: cy - half, X2: cx + half, Y2: cy + half},
		},
		Frontal: frontal,
	}
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const frameDt = 100 * time.Millisecond

func TestUpdate_RetainsTrackIDForSteadyStream(t *testing.T) {
	tr := New(DefaultConfig())

	now := t0
	first := tr.Update([]Observation{obs(100, 100, 80, true)}, now, 0)
	if first[0].TrackID != 1 {
		t.Fatalf("expected first track id 1, got %d", first[0].TrackID)
	}

	// Constant centroid and size keeps the same id frame after frame
	for i := 0; i < 20; i++ {
		now = now.Add(frameDt)
		out := tr.Update([]Observation{obs(100, 100, 80, true)}, now, frameDt)
		if out[0].TrackID != 1 {
			t.Fatalf("frame %d: expected track id 1, got %d", i, out[0].TrackID)
		}
	}

	if tr.ActiveCount() != 1 {
		t.Errorf("expected 1 active entity, got %d", tr.ActiveCount())
	}
}

func TestUpdate_AttentionNeverExceedsTotal(t *testing.T) {
	tr := New(DefaultConfig())

	frontal := []bool{true, false, true, true, false, false, true}
	now := t0
	for i, f := range frontal {
		now = now.Add(frameDt)
		tr.Update([]Observation{obs(100, 100, 80, f)}, now, frameDt)

		for id, times := range tr.ActiveSummary() {
			if times.AttentionTime > times.TotalTime {
				t.Fatalf("frame %d: entity %d attention %v exceeds total %v",
					i, id, times.AttentionTime, times.TotalTime)
			}
		}
	}

	summary := tr.ActiveSummary()[1]
	if summary.TotalTime != 7*frameDt {
		t.Errorf("expected total %v, got %v", 7*frameDt, summary.TotalTime)
	}
	if summary.AttentionTime != 4*frameDt {
		t.Errorf("expected attention %v, got %v", 4*frameDt, summary.AttentionTime)
	}
}

func TestUpdate_AssignmentIsOneToOne(t *testing.T) {
	tr := New(DefaultConfig())

	// Establish two entities
	tr.Update([]Observation{obs(100, 100, 80, false), obs(300, 100, 80, false)}, t0, 0)

	// Both detections near both entities; ids must not repeat
	out := tr.Update([]Observation{
		obs(110, 100, 80, false),
		obs(290, 100, 80, false),
	}, t0.Add(frameDt), frameDt)

	seen := make(map[int]bool)
	for _, d := range out {
		if seen[d.TrackID] {
			t.Fatalf("track id %d assigned twice in one update", d.TrackID)
		}
		seen[d.TrackID] = true
	}
}

func TestUpdate_StaleEvictionBoundary(t *testing.T) {
	cfg := DefaultConfig()
	tr := New(cfg)

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)

	// Just inside the timeout: entity survives
	eps := 10 * time.Millisecond
	tr.Update(nil, t0.Add(cfg.StaleTimeout-eps), frameDt)
	if tr.ActiveCount() != 1 {
		t.Fatalf("expected entity to survive at timeout-eps, active=%d", tr.ActiveCount())
	}

	// Just past the timeout: moved intact into history
	tr.Update(nil, t0.Add(cfg.StaleTimeout+eps), frameDt)
	if tr.ActiveCount() != 0 {
		t.Fatalf("expected eviction at timeout+eps, active=%d", tr.ActiveCount())
	}

	all := tr.AllTimeSummary()
	if _, ok := all[1]; !ok {
		t.Error("expected evicted entity in all-time summary")
	}
}

func TestUpdate_AdaptiveGateScenario(t *testing.T) {
	tr := New(DefaultConfig())

	// Two entities 500px apart
	tr.Update([]Observation{obs(100, 100, 100, false), obs(600, 100, 100, false)}, t0, 0)

	// Two detections 10px apart; box size 100 yields gate max(50, 60) = 60px.
	// Only the close pair matches; the far detection mints a new id.
	out := tr.Update([]Observation{
		obs(100, 100, 100, false),
		obs(110, 100, 100, false),
	}, t0.Add(frameDt), frameDt)

	if out[0].TrackID != 1 {
		t.Errorf("expected close detection to keep track 1, got %d", out[0].TrackID)
	}
	if out[1].TrackID != 3 {
		t.Errorf("expected far detection to mint track 3, got %d", out[1].TrackID)
	}
}

func TestUpdate_UnseenEntitiesAgeUnmutated(t *testing.T) {
	tr := New(DefaultConfig())

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)
	tr.Update([]Observation{obs(100, 100, 80, true)}, t0.Add(frameDt), frameDt)

	before := tr.ActiveSummary()[1]

	// Two empty frames: counters must not move
	tr.Update(nil, t0.Add(2*frameDt), frameDt)
	tr.Update(nil, t0.Add(3*frameDt), frameDt)

	after := tr.ActiveSummary()[1]
	if before != after {
		t.Errorf("expected unseen entity unchanged, before=%+v after=%+v", before, after)
	}
}

func TestUpdate_TrackIDsNeverReused(t *testing.T) {
	cfg := DefaultConfig()
	tr := New(cfg)

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)

	// Let it go stale, then show a face at the same spot
	tr.Update(nil, t0.Add(cfg.StaleTimeout+time.Second), frameDt)
	out := tr.Update([]Observation{obs(100, 100, 80, true)}, t0.Add(cfg.StaleTimeout+2*time.Second), frameDt)

	if out[0].TrackID != 2 {
		t.Errorf("expected fresh track id 2 after eviction, got %d", out[0].TrackID)
	}

	all := tr.AllTimeSummary()
	if len(all) != 2 {
		t.Errorf("expected 2 entities ever seen, got %d", len(all))
	}
}

func TestUpdate_StartEndTimesAreSessionRelative(t *testing.T) {
	tr := New(DefaultConfig())

	tr.Update(nil, t0, 0) // session starts here

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0.Add(2*time.Second), frameDt)
	tr.Update([]Observation{obs(100, 100, 80, true)}, t0.Add(5*time.Second), frameDt)

	times := tr.ActiveSummary()[1]
	if times.StartTime != 2*time.Second {
		t.Errorf("expected start 2s, got %v", times.StartTime)
	}
	if times.EndTime != 5*time.Second {
		t.Errorf("expected end 5s, got %v", times.EndTime)
	}
}

func TestSetIdentity_RetainedAcrossFrames(t *testing.T) {
	tr := New(DefaultConfig())

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)
	tr.SetIdentity(1, 7)

	// Identity sticks between re-identification cadences
	tr.Update([]Observation{obs(105, 100, 80, true)}, t0.Add(frameDt), frameDt)
	if got := tr.Identity(1); got != 7 {
		t.Errorf("expected identity 7 retained, got %d", got)
	}

	if tr.ActiveSummary()[1].IdentityID != 7 {
		t.Error("expected identity in active summary")
	}
}

func TestSetIdentity_HistoryIsImmutable(t *testing.T) {
	cfg := DefaultConfig()
	tr := New(cfg)

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)
	tr.SetIdentity(1, 3)
	tr.Update(nil, t0.Add(cfg.StaleTimeout+time.Second), frameDt)

	// Evicted: SetIdentity must be a no-op
	tr.SetIdentity(1, 99)

	if got := tr.AllTimeSummary()[1].IdentityID; got != 3 {
		t.Errorf("expected evicted entity to keep identity 3, got %d", got)
	}
}

func TestSummaries_ActiveAndHistoryDisjoint(t *testing.T) {
	cfg := DefaultConfig()
	tr := New(cfg)

	tr.Update([]Observation{obs(100, 100, 80, true)}, t0, 0)
	tr.Update([]Observation{obs(500, 100, 80, true)}, t0.Add(frameDt), frameDt)

	// First entity goes stale while the second stays fresh
	tr.Update([]Observation{obs(500, 100, 80, true)}, t0.Add(cfg.StaleTimeout+time.Second), frameDt)

	active := tr.ActiveSummary()
	if len(active) != 1 {
		t.Fatalf("expected 1 active entity, got %d", len(active))
	}
	if _, ok := active[2]; !ok {
		t.Error("expected entity 2 active")
	}

	all := tr.AllTimeSummary()
	if len(all) != 2 {
		t.Errorf("expected union of 2 entities, got %d", len(all))
	}
}

// Package tracker maintains face identity across frames with greedy
// centroid matching and accumulates per-entity attention and presence
// durations.
package tracker

import (
	"sort"
	"time"

	"github.com/dooh-labs/attentiond/internal/detect"
)

// Config bounds the frame-to-frame matching and the eviction policy.
type Config struct {
	StaleTimeout            time.Duration // unseen-for-longer entities move to history (default 3s)
	MatchDistanceFloor      float64       // minimum match gate in pixels (default 50)
	MatchDistanceSizeFactor float64       // gate as a fraction of the face size (default 0.6)
}

// DefaultConfig returns the tuned production values.
func DefaultConfig() Config {
	return Config{
		StaleTimeout:            3 * time.Second,
		MatchDistanceFloor:      50,
		MatchDistanceSizeFactor: 0.6,
	}
}

// Entity is a face being tracked across frames. While active it is owned
// exclusively by the Tracker; on eviction it moves into history and is
// never mutated again.
type Entity struct {
	TrackID       int
	Centroid      detect.Point
	LastSeen      time.Time
	TotalTime     time.Duration
	AttentionTime time.Duration
	IdentityID    int           // 0 until re-identification confirms one
	StartTime     time.Duration // session-relative first sighting
	EndTime       time.Duration // session-relative last sighting
}

// Observation is one frame detection plus its pose classification.
type Observation struct {
	Detection detect.Detection
	Frontal   bool
}

// TrackedDetection is an observation annotated with its resolved track id.
type TrackedDetection struct {
	Observation
	TrackID int
}

// Times is the per-entity bookkeeping exposed by the summaries.
type Times struct {
	AttentionTime time.Duration
	TotalTime     time.Duration
	StartTime     time.Duration
	EndTime       time.Duration
	IdentityID    int
}

// Tracker owns the active entity set and the immutable history of
// everything evicted. Track ids are monotonic from 1 and never reused.
type Tracker struct {
	cfg          Config
	active       map[int]*Entity
	history      map[int]*Entity
	nextTrackID  int
	sessionStart time.Time
}

// New creates an empty tracker.
func New(cfg Config) *Tracker {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 3 * time.Second
	}
	if cfg.MatchDistanceFloor <= 0 {
		cfg.MatchDistanceFloor = 50
	}
	if cfg.MatchDistanceSizeFactor <= 0 {
		cfg.MatchDistanceSizeFactor = 0.6
	}
	return &Tracker{
		cfg:         cfg,
		active:      make(map[int]*Entity),
		history:     make(map[int]*Entity),
		nextTrackID: 1,
	}
}

// candidate is one (distance, detection, entity) pairing considered by
// the greedy matcher. Candidates live in one flat slice sorted once per
// frame, so matching allocates nothing per pair beyond the slice itself.
type candidate struct {
	dist    float64
	det     int
	trackID int
}

// Update matches the frame's detections against active entities, mints
// entities for the unmatched, folds dt into the time counters and evicts
// anything unseen past the stale timeout. Returns the detections
// annotated with their resolved track ids.
//
// Matching is a greedy approximation of optimal bipartite assignment:
// candidate pairs are taken closest-first, each side claimed at most
// once. Inter-frame motion is small relative to the gate at the target
// frame rate, so the approximation holds up in practice.
func (t *Tracker) Update(obs []Observation, now time.Time, dt time.Duration) []TrackedDetection {
	if t.sessionStart.IsZero() {
		t.sessionStart = now
	}
	elapsed := now.Sub(t.sessionStart)

	cands := make([]candidate, 0, len(obs)*len(t.active))
	for i, o := range obs {
		c := o.Detection.Centroid()
		for id, e := range t.active {
			cands = append(cands, candidate{dist: c.Distance(e.Centroid), det: i, trackID: id})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].det != cands[j].det {
			return cands[i].det < cands[j].det
		}
		return cands[i].trackID < cands[j].trackID
	})

	claimedDet := make([]bool, len(obs))
	claimedTrack := make(map[int]bool, len(t.active))
	assigned := make([]int, len(obs))

	for _, c := range cands {
		if claimedDet[c.det] || claimedTrack[c.trackID] {
			continue
		}
		if c.dist <= t.matchGate(obs[c.det].Detection.Box) {
			assigned[c.det] = c.trackID
			claimedDet[c.det] = true
			claimedTrack[c.trackID] = true
		}
	}

	out := make([]TrackedDetection, len(obs))
	for i, o := range obs {
		id := assigned[i]
		if id == 0 {
			id = t.mint(elapsed)
		}

		e := t.active[id]
		e.Centroid = o.Detection.Centroid()
		e.LastSeen = now
		e.EndTime = elapsed
		e.TotalTime += dt
		if o.Frontal {
			e.AttentionTime += dt
		}

		out[i] = TrackedDetection{Observation: o, TrackID: id}
	}

	t.evictStale(now)

	return out
}

// matchGate is the adaptive assignment gate: it scales with apparent face
// size and has a floor so small faces still tolerate jitter.
func (t *Tracker) matchGate(box detect.Box) float64 {
	size := float64(max(box.Width(), box.Height()))
	return max(t.cfg.MatchDistanceFloor, t.cfg.MatchDistanceSizeFactor*size)
}

// mint creates a fresh entity with zeroed counters.
func (t *Tracker) mint(elapsed time.Duration) int {
	id := t.nextTrackID
	t.nextTrackID++
	t.active[id] = &Entity{
		TrackID:   id,
		StartTime: elapsed,
		EndTime:   elapsed,
	}
	return id
}

// evictStale moves entities unseen past the timeout into history.
func (t *Tracker) evictStale(now time.Time) {
	for id, e := range t.active {
		if now.Sub(e.LastSeen) > t.cfg.StaleTimeout {
			t.history[id] = e
			delete(t.active, id)
		}
	}
}

// SetIdentity records the identity confirmed for an active track. Evicted
// tracks are left alone; history is immutable.
func (t *Tracker) SetIdentity(trackID, identityID int) {
	if e, ok := t.active[trackID]; ok {
		e.IdentityID = identityID
	}
}

// Identity returns the last-confirmed identity id for an active track,
// or 0 when none has been resolved yet.
func (t *Tracker) Identity(trackID int) int {
	if e, ok := t.active[trackID]; ok {
		return e.IdentityID
	}
	return 0
}

// ActiveCount returns the number of currently tracked entities.
func (t *Tracker) ActiveCount() int {
	return len(t.active)
}

// ActiveSummary returns the time bookkeeping for currently active
// entities.
func (t *Tracker) ActiveSummary() map[int]Times {
	out := make(map[int]Times, len(t.active))
	for id, e := range t.active {
		out[id] = entityTimes(e)
	}
	return out
}

// AllTimeSummary returns the union of active entities and history: every
// entity ever seen in the session.
func (t *Tracker) AllTimeSummary() map[int]Times {
	out := make(map[int]Times, len(t.active)+len(t.history))
	for id, e := range t.history {
		out[id] = entityTimes(e)
	}
	for id, e := range t.active {
		out[id] = entityTimes(e)
	}
	return out
}

func entityTimes(e *Entity) Times {
	return Times{
		AttentionTime: e.AttentionTime,
		TotalTime:     e.TotalTime,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		IdentityID:    e.IdentityID,
	}
}

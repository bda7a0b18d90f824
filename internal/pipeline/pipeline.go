// Package pipeline runs the per-frame loop: acquire, decode, classify,
// track, accumulate, actuate. All core state mutation happens
// synchronously inside one iteration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dooh-labs/attentiond/internal/detect"
	"github.com/dooh-labs/attentiond/internal/identity"
	"github.com/dooh-labs/attentiond/internal/playback"
	"github.com/dooh-labs/attentiond/internal/pose"
	"github.com/dooh-labs/attentiond/internal/report"
	"github.com/dooh-labs/attentiond/internal/tracker"
)

// ErrInputExhausted signals that the frame source ended. It is fatal to
// the loop but leaves tracking and identity state intact for reporting.
var ErrInputExhausted = errors.New("frame source exhausted")

// Frame is one acquired video frame.
type Frame struct {
	Index     int
	Data      []byte // JPEG
	Timestamp time.Time
}

// FrameSource supplies frames at whatever cadence the caller manages.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// Config tunes the pipeline around the component defaults.
type Config struct {
	Campaign    string
	ReIDCadence int // run re-identification every Nth frame (default 10)
	Pose        pose.Thresholds
	OnFrame     func(index int) // optional per-frame callback (progress reporting)
}

// Snapshot is a read-only view of the pipeline state, published once per
// iteration for the status API.
type Snapshot struct {
	Elapsed     time.Duration
	ActiveCount int
	Active      map[int]tracker.Times
	AllTime     map[int]tracker.Times
	Timeline    []report.TimelinePoint
}

// Pipeline owns the collaborators and the loop state.
type Pipeline struct {
	source   FrameSource
	detector detect.Detector
	decoder  *detect.Decoder
	embedder identity.Embedder // nil disables re-identification
	memory   *identity.Memory
	tracker  *tracker.Tracker
	actuator *playback.Actuator
	cfg      Config

	frameCount  int
	start       time.Time
	prev        time.Time
	lastElapsed time.Duration
	timeline    []report.TimelinePoint

	mu       sync.RWMutex
	snapshot Snapshot
}

// New assembles a pipeline from its collaborators.
func New(source FrameSource, detector detect.Detector, decoder *detect.Decoder,
	embedder identity.Embedder, memory *identity.Memory,
	trk *tracker.Tracker, actuator *playback.Actuator, cfg Config) *Pipeline {

	if cfg.ReIDCadence <= 0 {
		cfg.ReIDCadence = 10
	}
	if cfg.Pose == (pose.Thresholds{}) {
		cfg.Pose = pose.DefaultThresholds()
	}

	return &Pipeline{
		source:   source,
		detector: detector,
		decoder:  decoder,
		embedder: embedder,
		memory:   memory,
		tracker:  trk,
		actuator: actuator,
		cfg:      cfg,
	}
}

// Run executes the loop until the context is cancelled, the source is
// exhausted or a collaborator faults. Teardown always happens: the
// returned summary covers everything seen up to the exit, on every exit
// path.
func (p *Pipeline) Run(ctx context.Context) (summary report.Summary, err error) {
	defer func() {
		p.actuator.Shutdown()
		summary = report.BuildSummary(p.cfg.Campaign, p.tracker.AllTimeSummary(), p.lastElapsed, p.timeline)
	}()

	for {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		frame, ferr := p.source.Next(ctx)
		if ferr != nil {
			if errors.Is(ferr, ErrInputExhausted) {
				return summary, nil
			}
			return summary, fmt.Errorf("acquiring frame: %w", ferr)
		}

		if perr := p.processFrame(ctx, frame); perr != nil {
			return summary, perr
		}
	}
}

// processFrame runs one full iteration. Collaborator faults abort before
// any tracker mutation, so a failed frame never leaves entities half
// updated.
func (p *Pipeline) processFrame(ctx context.Context, frame Frame) error {
	now := frame.Timestamp
	if p.start.IsZero() {
		p.start = now
	}

	var dt time.Duration
	if !p.prev.IsZero() {
		dt = now.Sub(p.prev)
	}
	p.prev = now
	elapsed := now.Sub(p.start)

	raw, err := p.detector.Detect(ctx, frame.Data)
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame.Index, err)
	}

	dets := p.decoder.Decode(raw)
	obs := make([]tracker.Observation, len(dets))
	for i, d := range dets {
		obs[i] = tracker.Observation{
			Detection: d,
			Frontal:   pose.IsFrontal(d.Landmarks, p.cfg.Pose),
		}
	}

	tracked := p.tracker.Update(obs, now, dt)

	if p.embedder != nil && p.frameCount%p.cfg.ReIDCadence == 0 {
		if err := p.reidentify(ctx, frame, tracked); err != nil {
			return fmt.Errorf("frame %d: %w", frame.Index, err)
		}
	}

	p.actuator.Manage(p.tracker.ActiveCount())

	p.lastElapsed = elapsed
	p.timeline = append(p.timeline, report.TimelinePoint{
		Elapsed:     elapsed,
		ActiveCount: p.tracker.ActiveCount(),
	})
	p.publish(elapsed)

	p.frameCount++
	if p.cfg.OnFrame != nil {
		p.cfg.OnFrame(frame.Index)
	}

	return nil
}

// reidentify resolves identities for this frame's frontal detections.
// All embeddings are computed before any identity is applied, so an
// embedder fault leaves every entity's identity untouched.
func (p *Pipeline) reidentify(ctx context.Context, frame Frame, tracked []tracker.TrackedDetection) error {
	type resolved struct {
		trackID    int
		identityID int
	}
	var results []resolved

	for _, td := range tracked {
		if !td.Frontal {
			continue
		}

		crop, err := identity.CropFace(frame.Data, td.Detection.Box)
		if err != nil {
			if errors.Is(err, identity.ErrEmptyCrop) {
				continue
			}
			log.Printf("pipeline: skipping crop for track %d: %v", td.TrackID, err)
			continue
		}

		emb, err := p.embedder.Embed(ctx, crop)
		if err != nil {
			return err
		}

		results = append(results, resolved{trackID: td.TrackID, identityID: p.memory.GetID(emb)})
	}

	for _, r := range results {
		p.tracker.SetIdentity(r.trackID, r.identityID)
	}

	return nil
}

// publish refreshes the snapshot read by the status API.
func (p *Pipeline) publish(elapsed time.Duration) {
	timeline := make([]report.TimelinePoint, len(p.timeline))
	copy(timeline, p.timeline)

	p.mu.Lock()
	p.snapshot = Snapshot{
		Elapsed:     elapsed,
		ActiveCount: p.tracker.ActiveCount(),
		Active:      p.tracker.ActiveSummary(),
		AllTime:     p.tracker.AllTimeSummary(),
		Timeline:    timeline,
	}
	p.mu.Unlock()
}

// Snapshot returns the last published state. Safe to call from other
// goroutines while the loop runs.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Identities exposes the identity memory for persistence at teardown.
func (p *Pipeline) Identities() []identity.Record {
	if p.memory == nil {
		return nil
	}
	return p.memory.Records()
}

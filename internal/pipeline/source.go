package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays JPEG frames from a directory in filename order,
// synthesizing timestamps at a fixed frame rate.
type DirSource struct {
	paths []string
	fps   float64
	pos   int
	start time.Time
}

// NewDirSource scans dir for JPEG files. fps controls the synthetic
// timestamp spacing; zero defaults to 10 frames per second.
func NewDirSource(dir string, fps float64) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no jpeg frames in %s", dir)
	}
	if fps <= 0 {
		fps = 10
	}

	return &DirSource{paths: paths, fps: fps, start: time.Now()}, nil
}

// Count returns the total number of frames, for progress reporting.
func (s *DirSource) Count() int {
	return len(s.paths)
}

// WatchSource tails a directory for newly appearing JPEG frames, the
// hand-off format of the capture sidecar. Frames are timestamped on
// arrival and consumed in filename order.
type WatchSource struct {
	dir   string
	poll  time.Duration
	seen  map[string]bool
	index int
}

// NewWatchSource watches dir, polling at interval (zero defaults to
// 100ms). Frames already present at startup are consumed first.
func NewWatchSource(dir string, interval time.Duration) (*WatchSource, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("watching frame dir: %w", err)
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &WatchSource{dir: dir, poll: interval, seen: make(map[string]bool)}, nil
}

// Next blocks until a new frame appears or the context ends. A deleted
// watch directory reads as exhaustion, not a fault.
func (s *WatchSource) Next(ctx context.Context) (Frame, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return Frame{}, ErrInputExhausted
			}
			return Frame{}, fmt.Errorf("watching frame dir: %w", err)
		}

		var fresh []string
		for _, e := range entries {
			if e.IsDir() || s.seen[e.Name()] {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".jpg", ".jpeg":
				fresh = append(fresh, e.Name())
			}
		}

		if len(fresh) > 0 {
			sort.Strings(fresh)
			name := fresh[0]
			s.seen[name] = true

			data, err := os.ReadFile(filepath.Join(s.dir, name))
			if err != nil {
				return Frame{}, fmt.Errorf("reading frame %s: %w", name, err)
			}

			frame := Frame{Index: s.index, Data: data, Timestamp: time.Now()}
			s.index++
			return frame, nil
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Next returns the next frame or ErrInputExhausted at the end.
func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.paths) {
		return Frame{}, ErrInputExhausted
	}

	path := s.paths[s.pos]
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("reading frame %s: %w", path, err)
	}

	frame := Frame{
		Index:     s.pos,
		Data:      data,
		Timestamp: s.start.Add(time.Duration(float64(s.pos) * float64(time.Second) / s.fps)),
	}
	s.pos++
	return frame, nil
}

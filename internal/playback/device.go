package playback

import (
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// NullDevice is the device used when no campaign audio is configured.
// Every operation is a no-op and it never reports playing.
type NullDevice struct{}

func (NullDevice) Play() error                  { return nil }
func (NullDevice) Stop() error                  { return nil }
func (NullDevice) IsPlaying() bool              { return false }
func (NullDevice) RemainingTime() time.Duration { return 0 }

// ExecDevice plays an audio file by spawning a player binary (ffplay by
// default). Playback state is derived from the child process lifetime.
type ExecDevice struct {
	binary      string
	path        string
	trackLength time.Duration

	mu        sync.Mutex
	cmd       *exec.Cmd
	startedAt time.Time
	playing   bool
}

// NewExecDevice creates a device for the given audio file. trackLength
// may be zero when unknown; RemainingTime then reports zero.
func NewExecDevice(binary, path string, trackLength time.Duration) *ExecDevice {
	if binary == "" {
		binary = "ffplay"
	}
	return &ExecDevice{
		binary:      binary,
		path:        path,
		trackLength: trackLength,
	}
}

// Play starts the track from the beginning. Calling Play while already
// playing is a no-op; the actuator never interrupts a running track.
func (d *ExecDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing {
		return nil
	}

	cmd := exec.Command(d.binary, "-nodisp", "-autoexit", "-loglevel", "quiet", d.path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", d.binary, err)
	}

	d.cmd = cmd
	d.startedAt = time.Now()
	d.playing = true

	go func() {
		_ = cmd.Wait()
		d.mu.Lock()
		if d.cmd == cmd {
			d.playing = false
			d.cmd = nil
		}
		d.mu.Unlock()
	}()

	return nil
}

// Stop kills the player process if one is running.
func (d *ExecDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil || d.cmd.Process == nil {
		return nil
	}

	if err := d.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop player: %w", err)
	}

	d.playing = false
	d.cmd = nil
	return nil
}

// IsPlaying reports whether the player process is still alive.
func (d *ExecDevice) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// RemainingTime returns the remaining track time, or zero when the track
// length is unknown or nothing is playing.
func (d *ExecDevice) RemainingTime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing || d.trackLength <= 0 {
		return 0
	}

	remaining := d.trackLength - time.Since(d.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

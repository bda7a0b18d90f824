// Package playback drives the campaign audio device from the number of
// tracked people in front of the camera.
package playback

import (
	"log"
	"time"
)

// Device is the physical playback collaborator.
type Device interface {
	Play() error
	Stop() error
	IsPlaying() bool
	RemainingTime() time.Duration
}

// State of the actuator.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// Actuator starts playback whenever people are present and loops the
// track for as long as they stay. It never cuts a track short: when
// presence drops mid-track the device is left to finish naturally, and
// the next Manage call decides whether to start again.
type Actuator struct {
	device Device
	state  State

	// restartThreshold is accepted from configuration for the pre-emptive
	// restart path; the Manage decision path does not consult it.
	restartThreshold time.Duration
}

// NewActuator wires the actuator to a device.
func NewActuator(device Device, restartThreshold time.Duration) *Actuator {
	return &Actuator{
		device:           device,
		restartThreshold: restartThreshold,
	}
}

// Manage reconciles playback with the current tracked count. Called once
// per pipeline iteration.
func (a *Actuator) Manage(activeCount int) {
	playing := a.device.IsPlaying()
	if !playing {
		a.state = Stopped
	}

	// People present and nothing playing: start. This same clause restarts
	// the track after it finishes naturally while people are still there.
	if activeCount > 0 && !playing {
		if err := a.device.Play(); err != nil {
			log.Printf("playback: failed to start: %v", err)
			return
		}
		a.state = Playing
	}
}

// State returns the actuator's last observed state.
func (a *Actuator) State() State {
	return a.state
}

// Shutdown stops the device. Only teardown calls this; presence changes
// never do.
func (a *Actuator) Shutdown() {
	if err := a.device.Stop(); err != nil {
		log.Printf("playback: failed to stop: %v", err)
	}
	a.state = Stopped
}

// Package task provides the single-flight background operation slot used by
// the TUI orchestrator. One Slot exists per operation kind; starting a second
// operation of the same kind while one is live is rejected, never queued.
package task

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Start while the slot owns a live
// operation. Callers surface it as a status message and retry after the slot
// drains back to idle.
var ErrAlreadyRunning = errors.New("operation already running")

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Outcome carries the terminal result of one background operation: either a
// value or an error, never both meaningfully.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Slot holds at most one in-flight background operation. All methods must be
// called from the same goroutine (the UI loop); the spawned operation is the
// only other party and it touches nothing but the result channel.
//
// State machine: idle --Start--> running --(operation completes)--> outcome
// buffered --Poll--> idle. The slot is reusable indefinitely.
type Slot[R any] struct {
	running bool
	frame   int
	done    chan Outcome[R]
}

func NewSlot[R any]() *Slot[R] {
	return &Slot[R]{done: make(chan Outcome[R], 1)}
}

// Start spawns op on its own goroutine and arranges for its outcome to be
// delivered through the slot. A panic inside op is downgraded to an error
// outcome so it can never reach the render loop.
func (s *Slot[R]) Start(op func() (R, error)) error {
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	done := s.done
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				done <- Outcome[R]{Value: zero, Err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		value, err := op()
		done <- Outcome[R]{Value: value, Err: err}
	}()
	return nil
}

// Poll drains a completed outcome without blocking. It reports false when no
// outcome is available, and returns each outcome exactly once; draining one
// transitions the slot back to idle whether the operation succeeded or not.
func (s *Slot[R]) Poll() (Outcome[R], bool) {
	select {
	case out := <-s.done:
		s.running = false
		return out, true
	default:
		var zero Outcome[R]
		return zero, false
	}
}

// TickSpinner advances the animation frame. It has no effect on the slot's
// status.
func (s *Slot[R]) TickSpinner() {
	s.frame = (s.frame + 1) % len(spinnerFrames)
}

// Frame returns the spinner glyph for the current animation frame.
func (s *Slot[R]) Frame() string {
	return spinnerFrames[s.frame]
}

func (s *Slot[R]) IsRunning() bool {
	return s.running
}

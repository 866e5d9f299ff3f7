// Package animation decides which frame of a sequence is current.
package animation

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/matjam/livepaper/internal/types"
)

const DefaultInterval = 100 * time.Millisecond

// Scheduler advances a frame index on a fixed interval. A sequence of one
// frame is static and never arms a timer. Scheduler is not safe for
// concurrent use; the render loop owns it.
type Scheduler struct {
	frames   int
	interval time.Duration
	index    int

	ticker   clockwork.Ticker
	disarmed bool
}

// New returns a scheduler for a sequence of frames. An interval of zero
// selects DefaultInterval.
func New(frames int, interval time.Duration) (*Scheduler, error) {
	if frames < 1 {
		return nil, fmt.Errorf("animation needs at least one frame, got %d", frames)
	}
	if interval < 0 {
		return nil, fmt.Errorf("negative frame interval %v", interval)
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Scheduler{frames: frames, interval: interval}, nil
}

func (s *Scheduler) State() types.AnimationState {
	if s.frames > 1 {
		return types.StatePlaying
	}
	return types.StateStatic
}

func (s *Scheduler) Frames() int { return s.frames }

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Index returns the current frame index, always in [0, Frames).
func (s *Scheduler) Index() int { return s.index }

// Arm starts the frame timer on clock and returns its channel. A static
// scheduler, or one that has been disarmed, returns nil, which never fires
// in a select.
func (s *Scheduler) Arm(clock clockwork.Clock) <-chan time.Time {
	if s.State() == types.StateStatic || s.disarmed {
		return nil
	}
	if s.ticker == nil {
		s.ticker = clock.NewTicker(s.interval)
		log.Debugf("frame timer armed at %v for %d frames", s.interval, s.frames)
	}
	return s.ticker.Chan()
}

// Armed reports whether a timer is running.
func (s *Scheduler) Armed() bool {
	return s.ticker != nil && !s.disarmed
}

// Tick advances to the next frame, wrapping after the last, and reports
// whether a redraw is needed. Missed ticks are not caught up.
func (s *Scheduler) Tick() bool {
	if s.State() == types.StateStatic {
		return false
	}
	s.index = (s.index + 1) % s.frames
	return true
}

// Disarm stops the timer. Only the first call has an effect.
func (s *Scheduler) Disarm() {
	if s.disarmed {
		return
	}
	s.disarmed = true
	if s.ticker != nil {
		s.ticker.Stop()
		log.Debug("frame timer disarmed")
	}
}

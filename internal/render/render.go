// Package render draws the current frame of an animation and presents it.
package render

import (
	"errors"
	"fmt"

	"github.com/matjam/livepaper/internal/gpu"
	"go.uber.org/multierr"
)

// PresentInterval waits for one vertical blank per present.
const PresentInterval = 1

// ErrPresent marks a failure to acquire or present the surface. The
// surface is assumed lost.
var ErrPresent = errors.New("surface lost")

// Sequence is an ordered set of textures.
type Sequence interface {
	Len() int
	At(i int) gpu.Handle
}

// State supplies the index of the frame to draw.
type State interface {
	Index() int
}

// Pipeline draws a bound texture into a target.
type Pipeline interface {
	Bind(tex gpu.Handle)
	Draw(target gpu.Handle) error
}

type Renderer struct {
	dev      gpu.Device
	pipeline Pipeline
	seq      Sequence
	state    State
	presents int
}

func New(dev gpu.Device, pipeline Pipeline, seq Sequence, state State) *Renderer {
	return &Renderer{dev: dev, pipeline: pipeline, seq: seq, state: state}
}

// Redraw clears the surface to opaque black, draws the current frame if
// there is one and presents. The target acquired for the frame is always
// released. Errors from acquiring or presenting wrap ErrPresent.
func (r *Renderer) Redraw() (err error) {
	target, err := r.dev.AcquireTarget()
	if err != nil {
		return fmt.Errorf("%w: acquire target: %w", ErrPresent, err)
	}
	defer func() {
		err = multierr.Append(err, r.dev.Destroy(target))
	}()

	if err := r.dev.Clear(target, gpu.Black); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if r.seq != nil {
		if i := r.state.Index(); i >= 0 && i < r.seq.Len() {
			r.pipeline.Bind(r.seq.At(i))
			if err := r.pipeline.Draw(target); err != nil {
				return fmt.Errorf("draw frame %d: %w", i, err)
			}
		}
	}
	if err := r.dev.Present(target, PresentInterval); err != nil {
		return fmt.Errorf("%w: %w", ErrPresent, err)
	}
	r.presents++
	return nil
}

// Presents returns the number of successful presents.
func (r *Renderer) Presents() int { return r.presents }

// Package texpool uploads decoded frames to device textures.
package texpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/imageseq"
	"go.uber.org/multierr"
)

var errNoFrames = errors.New("no frames to upload")

// Sequence is the ordered set of textures for one animation. Its length
// is fixed once uploaded.
type Sequence struct {
	dev     gpu.Device
	handles []gpu.Handle
	sizes   [][2]int

	once sync.Once
	err  error
}

// Upload creates one texture per frame, in frame order. Either every frame
// is uploaded or none is: on failure the textures already created are
// destroyed before the error is returned. After a successful upload the
// frames' pixel buffers are dropped.
func Upload(dev gpu.Device, frames []imageseq.Frame) (*Sequence, error) {
	if len(frames) == 0 {
		return nil, &gpu.GPUResourceError{Op: "upload", Kind: gpu.KindTexture, Err: errNoFrames}
	}

	seq := &Sequence{
		dev:     dev,
		handles: make([]gpu.Handle, 0, len(frames)),
		sizes:   make([][2]int, 0, len(frames)),
	}
	for i, f := range frames {
		h, err := dev.CreateTexture(f.Width, f.Height, f.Pix)
		if err != nil {
			if rerr := seq.Release(); rerr != nil {
				err = multierr.Append(err, rerr)
			}
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		seq.handles = append(seq.handles, h)
		seq.sizes = append(seq.sizes, [2]int{f.Width, f.Height})
	}

	for i := range frames {
		frames[i].Pix = nil
	}
	log.Debugf("uploaded %d textures", len(seq.handles))
	return seq, nil
}

// Len returns the number of textures in the sequence.
func (s *Sequence) Len() int { return len(s.handles) }

// At returns the texture for index i, taken modulo Len.
func (s *Sequence) At(i int) gpu.Handle {
	n := len(s.handles)
	if n == 0 {
		return gpu.Handle{}
	}
	i %= n
	if i < 0 {
		i += n
	}
	return s.handles[i]
}

// Size returns the pixel size of the texture at index i, taken modulo Len.
func (s *Sequence) Size(i int) (width, height int) {
	n := len(s.sizes)
	if n == 0 {
		return 0, 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return s.sizes[i][0], s.sizes[i][1]
}

// Release destroys every texture in the sequence. Only the first call
// has an effect.
func (s *Sequence) Release() error {
	s.once.Do(func() {
		for _, h := range s.handles {
			s.err = multierr.Append(s.err, s.dev.Destroy(h))
		}
		s.handles = nil
		s.sizes = nil
	})
	return s.err
}

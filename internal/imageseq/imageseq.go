// Package imageseq decodes raster images into sequences of RGBA frames.
//
// Animated GIFs are composited frame by frame onto the logical screen so
// that every returned frame is a complete picture. Every other registered
// format decodes to a single frame.
package imageseq

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// ErrNoFrames is returned for images that decode without any frames.
var ErrNoFrames = errors.New("image contains no frames")

// Frame is one decoded picture of a sequence. Pix holds non-premultiplied
// RGBA samples, 8 bits per channel, row 0 at the top, with a stride of
// 4*Width.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
	Delay  time.Duration
}

// DecodeError reports a file that could not be turned into frames.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads every frame of the image at path. On failure no frames are
// returned and the error is a *DecodeError.
func Decode(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	frames, err := decode(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return frames, nil
}

// DecodeReader is like Decode but reads the image from r.
func DecodeReader(r io.Reader) ([]Frame, error) {
	frames, err := decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return frames, nil
}

func decode(r io.Reader) ([]Frame, error) {
	rp := asReadPeeker(r)
	if isGIF(rp) {
		g, err := gif.DecodeAll(rp)
		if err != nil {
			return nil, err
		}
		return gifFrames(g)
	}
	img, _, err := image.Decode(rp)
	if err != nil {
		return nil, err
	}
	return []Frame{newFrame(img, 0)}, nil
}

type readPeeker interface {
	io.Reader
	Peek(n int) ([]byte, error)
}

func asReadPeeker(r io.Reader) readPeeker {
	if r, ok := r.(readPeeker); ok {
		return r
	}
	return bufio.NewReader(r)
}

func isGIF(r readPeeker) bool {
	const magic = "GIF8?a"
	b, err := r.Peek(len(magic))
	if err != nil || len(b) != len(magic) {
		return false
	}
	for i, c := range b {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

// gifFrames composites the frames of g onto its logical screen, honouring
// each frame's disposal method.
func gifFrames(g *gif.GIF) ([]Frame, error) {
	if len(g.Image) == 0 {
		return nil, ErrNoFrames
	}
	if g.Delay != nil && len(g.Image) != len(g.Delay) {
		return nil, fmt.Errorf("mismatched image count and delay count: %d != %d", len(g.Image), len(g.Delay))
	}
	if g.Disposal != nil && len(g.Image) != len(g.Disposal) {
		return nil, fmt.Errorf("mismatched image count and disposal count: %d != %d", len(g.Image), len(g.Disposal))
	}
	// A stream without a global colour table decodes to an empty palette.
	pal, ok := g.Config.ColorModel.(color.Palette)
	ok = ok && len(pal) > 0
	if idx := int(g.BackgroundIndex); ok && idx >= len(pal) {
		return nil, fmt.Errorf("global background colour index not in palette: %d", idx)
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		for _, frame := range g.Image {
			screen = screen.Union(frame.Bounds())
		}
	}

	// Disposal to background clears to transparent unless the stream
	// carries a global colour table.
	background := image.Image(image.Transparent)
	if ok {
		background = &image.Uniform{C: pal[g.BackgroundIndex]}
	}

	const (
		restoreBackground = 2
		restorePrevious   = 3
	)
	canvas := image.NewNRGBA(screen)
	frames := make([]Frame, 0, len(g.Image))
	for i, frame := range g.Image {
		var restore *image.NRGBA
		if g.Disposal != nil && g.Disposal[i] == restorePrevious {
			restore = image.NewNRGBA(frame.Bounds())
			draw.Copy(restore, restore.Bounds().Min, canvas, frame.Bounds(), draw.Src, nil)
		}
		draw.Copy(canvas, frame.Bounds().Min, frame, frame.Bounds(), draw.Over, nil)

		var delay time.Duration
		if g.Delay != nil {
			delay = 10 * time.Duration(g.Delay[i]) * time.Millisecond
		}
		frames = append(frames, newFrame(canvas, delay))

		if g.Disposal == nil {
			continue
		}
		switch g.Disposal[i] {
		case restoreBackground:
			draw.Copy(canvas, frame.Bounds().Min, background, frame.Bounds(), draw.Src, nil)
		case restorePrevious:
			draw.Copy(canvas, frame.Bounds().Min, restore, restore.Bounds(), draw.Src, nil)
		}
	}
	return frames, nil
}

// newFrame copies img into a tightly packed non-premultiplied buffer.
func newFrame(img image.Image, delay time.Duration) Frame {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    dst.Pix,
		Delay:  delay,
	}
}

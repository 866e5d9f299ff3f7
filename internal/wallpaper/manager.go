// Package wallpaper owns a loaded animation and the loop that plays it.
package wallpaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/matjam/livepaper/internal/animation"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/imageseq"
	"github.com/matjam/livepaper/internal/ipc"
	"github.com/matjam/livepaper/internal/quad"
	"github.com/matjam/livepaper/internal/render"
	"github.com/matjam/livepaper/internal/texpool"
	"github.com/matjam/livepaper/internal/types"
	"go.uber.org/multierr"
)

const DefaultPollInterval = 16 * time.Millisecond

// EventSource is a window that reports close and damage events.
type EventSource interface {
	PollEvents() types.WindowEvents
}

type Options struct {
	Path         string
	Interval     time.Duration
	ScaleMode    types.ScalingMode
	PollInterval time.Duration
	Clock        clockwork.Clock

	// Events is polled every PollInterval when set.
	Events EventSource
}

// Manager is the application context: it owns the device and everything
// created on it, in one scope that releases in reverse acquisition order.
type Manager struct {
	opts  Options
	dev   gpu.Device
	scope gpu.Scope

	seq       *texpool.Sequence
	pipeline  *quad.Pipeline
	scheduler *animation.Scheduler
	renderer  *render.Renderer

	cmds chan ipc.Command

	mu     sync.Mutex
	status ipc.WallpaperStatus
}

// DeviceFunc creates the device a wallpaper is drawn on, and the window
// events to poll if it has a window.
type DeviceFunc func() (gpu.Device, EventSource, error)

// Start decodes the image at opts.Path and only then calls open for a
// device, so an unreadable file never creates a window. The returned
// Manager owns the device.
func Start(opts Options, open DeviceFunc) (*Manager, error) {
	frames, err := imageseq.Decode(opts.Path)
	if err != nil {
		return nil, err
	}
	dev, events, err := open()
	if err != nil {
		return nil, err
	}
	if events != nil {
		opts.Events = events
	}
	return LoadFrames(dev, frames, opts)
}

// Load decodes the image at opts.Path and prepares it for display on dev.
// Load takes ownership of dev: on failure everything acquired so far,
// dev included, is released before the error is returned.
func Load(dev gpu.Device, opts Options) (*Manager, error) {
	frames, err := imageseq.Decode(opts.Path)
	if err != nil {
		return nil, multierr.Append(err, dev.Close())
	}
	return LoadFrames(dev, frames, opts)
}

// LoadFrames prepares already decoded frames for display on dev, with
// the same ownership rules as Load.
func LoadFrames(dev gpu.Device, frames []imageseq.Frame, opts Options) (*Manager, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	m := &Manager{
		opts: opts,
		dev:  dev,
		cmds: make(chan ipc.Command, 8),
	}
	if err := m.scope.Push("device", dev.Close); err != nil {
		return nil, err
	}

	if err := m.load(frames); err != nil {
		return nil, multierr.Append(err, m.scope.Close())
	}
	return m, nil
}

func (m *Manager) load(frames []imageseq.Frame) error {
	if len(frames) == 0 {
		return imageseq.ErrNoFrames
	}
	log.Infof("loading %s: %d frames of %dx%d", m.opts.Path, len(frames), frames[0].Width, frames[0].Height)

	seq, err := texpool.Upload(m.dev, frames)
	if err != nil {
		return fmt.Errorf("failed to upload frames: %w", err)
	}
	m.seq = seq
	if err := m.scope.Push("textures", seq.Release); err != nil {
		return err
	}

	sw, sh := m.dev.Size()
	tw, th := seq.Size(0)
	pipeline, err := quad.New(m.dev, quad.Fit(m.opts.ScaleMode, sw, sh, tw, th))
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	m.pipeline = pipeline
	if err := m.scope.Push("pipeline", pipeline.Release); err != nil {
		return err
	}

	scheduler, err := animation.New(seq.Len(), m.opts.Interval)
	if err != nil {
		return err
	}
	m.scheduler = scheduler
	if err := m.scope.Push("timer", func() error {
		scheduler.Disarm()
		return nil
	}); err != nil {
		return err
	}

	m.renderer = render.New(m.dev, pipeline, seq, scheduler)

	m.status = ipc.WallpaperStatus{
		Path:       m.opts.Path,
		Frames:     seq.Len(),
		State:      scheduler.State(),
		IntervalMS: scheduler.Interval().Milliseconds(),
		Width:      sw,
		Height:     sh,
		Started:    m.opts.Clock.Now(),
	}
	return nil
}

// Run plays the animation until ctx is done, a stop command arrives, the
// window is closed or presenting fails. Run must be called from the
// thread that owns the device.
func (m *Manager) Run(ctx context.Context) error {
	log.Infof("playing %d frames (%s)", m.seq.Len(), m.scheduler.State())

	ticks := m.scheduler.Arm(m.opts.Clock)

	var pump <-chan time.Time
	if m.opts.Events != nil {
		t := m.opts.Clock.NewTicker(m.opts.PollInterval)
		defer t.Stop()
		pump = t.Chan()
	}

	// Redraw requests are coalesced: however many arrive in one
	// iteration, one frame is drawn.
	dirty := true
	for {
		if dirty {
			if err := m.redraw(); err != nil {
				return err
			}
			dirty = false
		}

		select {
		case <-ctx.Done():
			log.Info("context done, stopping")
			return nil

		case <-ticks:
			dirty = m.scheduler.Tick()

		case cmd := <-m.cmds:
			stop, redraw := m.handleCommand(cmd)
			if stop {
				return nil
			}
			dirty = redraw

		case <-pump:
			ev := m.opts.Events.PollEvents()
			if ev.Closed {
				log.Info("window closed, stopping")
				return nil
			}
			dirty = ev.Damaged
		}
	}
}

func (m *Manager) redraw() error {
	if err := m.renderer.Redraw(); err != nil {
		return fmt.Errorf("redraw frame %d: %w", m.scheduler.Index(), err)
	}
	m.mu.Lock()
	m.status.Index = m.scheduler.Index()
	m.status.Presents = m.renderer.Presents()
	m.mu.Unlock()
	return nil
}

// Status returns a snapshot of the playing animation. It is safe to call
// from any goroutine.
func (m *Manager) Status() ipc.WallpaperStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Close disarms the frame timer, then releases the pipeline, the
// textures and finally the device. Only the first call has an effect.
func (m *Manager) Close() error {
	return m.scope.Close()
}

type fixedIndex int

func (i fixedIndex) Index() int { return int(i) }

// RenderFrame draws frame index, taken modulo the frame count, and
// presents it. It is meant for one-off renders while Run is not active.
func (m *Manager) RenderFrame(index int) error {
	n := m.seq.Len()
	index %= n
	if index < 0 {
		index += n
	}
	return render.New(m.dev, m.pipeline, m.seq, fixedIndex(index)).Redraw()
}

package wallpaper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/gpu/software"
	"github.com/matjam/livepaper/internal/imageseq"
	"github.com/matjam/livepaper/internal/ipc"
	"github.com/matjam/livepaper/internal/render"
	"github.com/matjam/livepaper/internal/types"
)

var frameColors = []color.RGBA{
	{R: 0xff, A: 0xff},
	{G: 0xff, A: 0xff},
	{B: 0xff, A: 0xff},
}

func writeAnimation(t *testing.T, colors []color.RGBA) string {
	t.Helper()
	pal := color.Palette{color.Black}
	for _, c := range colors {
		pal = append(pal, c)
	}
	g := &gif.GIF{}
	for i := range colors {
		img := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
		for p := range img.Pix {
			img.Pix[p] = uint8(i + 1)
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("unexpected error encoding gif: %v", err)
	}
	path := filepath.Join(t.TempDir(), "anim.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeStill(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for p := 0; p < len(img.Pix); p += 4 {
		copy(img.Pix[p:], []byte{0x80, 0x40, 0x20, 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "still.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type runResult struct {
	err error
}

func start(t *testing.T, m *Manager) (cancel func(), done <-chan runResult) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan runResult, 1)
	go func() {
		c <- runResult{m.Run(ctx)}
	}()
	return cancel, c
}

func wait(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case r := <-done:
		return r.err
	case <-time.After(time.Second):
		t.Fatal("render loop did not return")
		return nil
	}
}

func TestPlaybackTiming(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := gpu.NewTracker(dev)
	clock := clockwork.NewFakeClock()

	m, err := Load(tr, Options{
		Path:      writeAnimation(t, frameColors),
		Interval:  100 * time.Millisecond,
		ScaleMode: types.ScalingModeStretch,
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel, done := start(t, m)
	defer cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), time.Second)
	defer ctxCancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("frame timer never armed: %v", err)
	}
	waitFor(t, "first present", func() bool { return m.Status().Presents == 1 })

	checkFrame := func(index int) {
		t.Helper()
		if got := m.Status().Index; got != index {
			t.Errorf("unexpected index at %v: got:%d want:%d", clock.Since(m.Status().Started), got, index)
		}
		if got := dev.Frontbuffer().RGBAAt(1, 1); got != frameColors[index] {
			t.Errorf("unexpected frame on screen: got:%v want:%v", got, frameColors[index])
		}
	}
	checkFrame(0)

	// Ticks at 100ms and 200ms; 250ms shows the third frame.
	for i := 1; i <= 2; i++ {
		clock.Advance(100 * time.Millisecond)
		waitFor(t, fmt.Sprintf("present %d", i+1), func() bool { return m.Status().Presents == i+1 })
	}
	clock.Advance(50 * time.Millisecond)
	checkFrame(2)

	// The tick at 300ms wraps to the first frame.
	clock.Advance(100 * time.Millisecond)
	waitFor(t, "present 4", func() bool { return m.Status().Presents == 4 })
	checkFrame(0)

	want := ipc.WallpaperStatus{
		Frames:     3,
		Index:      0,
		State:      types.StatePlaying,
		IntervalMS: 100,
		Width:      4,
		Height:     4,
		Presents:   4,
	}
	got := m.Status()
	got.Path = ""
	got.Started = time.Time{}
	if !cmp.Equal(want, got) {
		t.Errorf("unexpected status:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Live() != 0 || !tr.Closed() {
		t.Errorf("resources left after close: %v closed=%t", tr.Outstanding(), tr.Closed())
	}
}

func TestStaticImage(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := Load(dev, Options{Path: writeStill(t), Clock: clockwork.NewFakeClock()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	_, done := start(t, m)
	waitFor(t, "first present", func() bool { return m.Status().Presents == 1 })
	if m.scheduler.Armed() {
		t.Error("static image armed a frame timer")
	}
	if got := m.Status().State; got != types.StateStatic {
		t.Errorf("unexpected state: %v", got)
	}

	if err := m.EnqueueCommand(ipc.Command{Type: ipc.CommandRedraw}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "redraw", func() bool { return m.Status().Presents == 2 })
	if got := dev.Frontbuffer().RGBAAt(0, 0); got != (color.RGBA{R: 0x80, G: 0x40, B: 0x20, A: 0xff}) {
		t.Errorf("unexpected pixel: %v", got)
	}

	m.Stop()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status().Index != 0 {
		t.Errorf("static index moved: %d", m.Status().Index)
	}
}

// countingDevice counts texture creations.
type countingDevice struct {
	gpu.Device
	textures int
}

func (d *countingDevice) CreateTexture(width, height int, pix []byte) (gpu.Handle, error) {
	d.textures++
	return d.Device.CreateTexture(width, height, pix)
}

func TestDecodeFailureAllocatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gif")
	if err := os.WriteFile(path, []byte("GIF89a garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	counter := &countingDevice{Device: dev}
	tr := gpu.NewTracker(counter)

	m, err := Load(tr, Options{Path: path})
	if m != nil {
		t.Error("unexpected manager returned with error")
	}
	var decErr *imageseq.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter.textures != 0 {
		t.Errorf("textures created for an undecodable file: %d", counter.textures)
	}
	if tr.Live() != 0 || !tr.Closed() {
		t.Errorf("resources left after failed load: %v closed=%t", tr.Outstanding(), tr.Closed())
	}
}

// recordingDevice records the kind of every destroyed handle and the
// device close, calling onDestroy before the first destroy.
type recordingDevice struct {
	gpu.Device

	mu        sync.Mutex
	events    []string
	onDestroy func()
}

func (d *recordingDevice) Destroy(h gpu.Handle) error {
	d.mu.Lock()
	if h.Kind != gpu.KindTarget {
		if d.onDestroy != nil {
			d.onDestroy()
			d.onDestroy = nil
		}
		d.events = append(d.events, h.Kind.String())
	}
	d.mu.Unlock()
	return d.Device.Destroy(h)
}

func (d *recordingDevice) Close() error {
	d.mu.Lock()
	d.events = append(d.events, "close")
	d.mu.Unlock()
	return d.Device.Close()
}

func TestTeardownOrder(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := &recordingDevice{Device: dev}
	tr := gpu.NewTracker(rec)
	clock := clockwork.NewFakeClock()

	m, err := Load(tr, Options{Path: writeAnimation(t, frameColors), Clock: clock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel, done := start(t, m)
	waitFor(t, "first present", func() bool { return m.Status().Presents == 1 })
	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	armedAtRelease := true
	rec.onDestroy = func() { armedAtRelease = m.scheduler.Armed() }
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if armedAtRelease {
		t.Error("frame timer still armed when GPU objects were released")
	}

	want := []string{
		"sampler", "vertex buffer", "shader", "shader",
		"texture", "texture", "texture",
		"close",
	}
	if !cmp.Equal(want, rec.events) {
		t.Errorf("unexpected teardown order:\n--- want:\n+++ got:\n%s", cmp.Diff(want, rec.events))
	}
	if tr.Live() != 0 {
		t.Errorf("handles leaked: %v", tr.Outstanding())
	}
}

type lostSurface struct {
	gpu.Device
	presents int
}

var errLost = errors.New("surface gone")

func (d *lostSurface) Present(target gpu.Handle, interval int) error {
	d.presents++
	if d.presents > 1 {
		return errLost
	}
	return d.Device.Present(target, interval)
}

func TestPresentFailureStopsLoop(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := gpu.NewTracker(&lostSurface{Device: dev})
	clock := clockwork.NewFakeClock()

	m, err := Load(tr, Options{Path: writeAnimation(t, frameColors), Clock: clock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel, done := start(t, m)
	defer cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), time.Second)
	defer ctxCancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("frame timer never armed: %v", err)
	}
	waitFor(t, "first present", func() bool { return m.Status().Presents == 1 })
	clock.Advance(100 * time.Millisecond)

	err = wait(t, done)
	if !errors.Is(err, render.ErrPresent) || !errors.Is(err, errLost) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Live() != 0 {
		t.Errorf("handles leaked: %v", tr.Outstanding())
	}
}

type closingWindow struct {
	mu    sync.Mutex
	polls int
}

func (w *closingWindow) PollEvents() types.WindowEvents {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	return types.WindowEvents{Damaged: w.polls == 1, Closed: w.polls > 1}
}

func TestWindowEvents(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock := clockwork.NewFakeClock()
	m, err := Load(dev, Options{
		Path:         writeStill(t),
		Clock:        clock,
		PollInterval: 10 * time.Millisecond,
		Events:       &closingWindow{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	_, done := start(t, m)
	ctx, ctxCancel := context.WithTimeout(context.Background(), time.Second)
	defer ctxCancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("event pump never armed: %v", err)
	}
	waitFor(t, "first present", func() bool { return m.Status().Presents == 1 })

	// The first poll reports damage and causes a redraw.
	clock.Advance(10 * time.Millisecond)
	waitFor(t, "damage redraw", func() bool { return m.Status().Presents == 2 })

	// The second reports the window closed.
	clock.Advance(10 * time.Millisecond)
	if err := wait(t, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderFrame(t *testing.T) {
	dev, err := software.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := Load(dev, Options{Path: writeAnimation(t, frameColors), Clock: clockwork.NewFakeClock()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Close()

	for _, index := range []int{2, 4, -1} {
		if err := m.RenderFrame(index); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := frameColors[(index%3+3)%3]
		if got := dev.Frontbuffer().RGBAAt(0, 0); got != want {
			t.Errorf("unexpected colour for frame %d: got:%v want:%v", index, got, want)
		}
	}
}

func TestStartDecodesBeforeOpeningDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	opened := 0
	m, err := Start(Options{Path: path}, func() (gpu.Device, EventSource, error) {
		opened++
		dev, err := software.New(4, 4)
		return dev, nil, err
	})
	if m != nil {
		t.Error("unexpected manager returned with error")
	}
	var decErr *imageseq.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != 0 {
		t.Errorf("device opened for an undecodable file: %d times", opened)
	}
}

func TestStartOpensDeviceAfterDecode(t *testing.T) {
	var tr *gpu.Tracker
	window := &closingWindow{}
	clock := clockwork.NewFakeClock()
	m, err := Start(Options{Path: writeStill(t), Clock: clock}, func() (gpu.Device, EventSource, error) {
		dev, err := software.New(4, 4)
		if err != nil {
			return nil, nil, err
		}
		tr = gpu.NewTracker(dev)
		return tr, window, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.opts.Events != window {
		t.Error("window events not wired into the manager")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Live() != 0 || !tr.Closed() {
		t.Errorf("resources left after close: %v closed=%t", tr.Outstanding(), tr.Closed())
	}

	errOpen := errors.New("no display")
	_, err = Start(Options{Path: writeStill(t)}, func() (gpu.Device, EventSource, error) {
		return nil, nil, errOpen
	})
	if !errors.Is(err, errOpen) {
		t.Errorf("unexpected error: %v", err)
	}
}

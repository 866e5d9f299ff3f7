package gpu

import (
	"fmt"
	"sync"
)

// Tracker wraps a Device and counts the handles it has handed out that
// have not yet been destroyed. It rejects destroying a handle twice.
type Tracker struct {
	Device

	mu     sync.Mutex
	live   map[Handle]struct{}
	closed bool
}

func NewTracker(dev Device) *Tracker {
	return &Tracker{Device: dev, live: make(map[Handle]struct{})}
}

func (t *Tracker) track(h Handle, err error) (Handle, error) {
	if err != nil {
		return h, err
	}
	t.mu.Lock()
	t.live[h] = struct{}{}
	t.mu.Unlock()
	return h, nil
}

func (t *Tracker) CreateTexture(width, height int, pix []byte) (Handle, error) {
	return t.track(t.Device.CreateTexture(width, height, pix))
}

func (t *Tracker) CreateShader(stage Stage, source string) (Handle, error) {
	return t.track(t.Device.CreateShader(stage, source))
}

func (t *Tracker) CreateVertexBuffer(vertices []Vertex) (Handle, error) {
	return t.track(t.Device.CreateVertexBuffer(vertices))
}

func (t *Tracker) CreateSampler(desc SamplerDesc) (Handle, error) {
	return t.track(t.Device.CreateSampler(desc))
}

func (t *Tracker) AcquireTarget() (Handle, error) {
	return t.track(t.Device.AcquireTarget())
}

func (t *Tracker) Destroy(h Handle) error {
	t.mu.Lock()
	_, ok := t.live[h]
	delete(t.live, h)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s is not live", ErrInvalidHandle, h)
	}
	return t.Device.Destroy(h)
}

func (t *Tracker) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.Device.Close()
}

// Closed reports whether Close has been called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Live returns the number of outstanding handles.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Outstanding returns the number of outstanding handles of each kind.
func (t *Tracker) Outstanding() map[Kind]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := make(map[Kind]int)
	for h := range t.live {
		n[h.Kind]++
	}
	return n
}

// Package software is a CPU implementation of gpu.Device. It rasterises
// textured triangles into a gg.Pixmap back buffer and copies it to a front
// buffer on Present. It backs headless rendering and snapshots.
package software

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/matjam/livepaper/internal/gpu"
)

var ErrCompile = errors.New("shader has no entry point")

type texture struct {
	width  int
	height int
	pix    []byte
}

// Device renders into an off-screen surface of a fixed size.
type Device struct {
	mu sync.Mutex

	width  int
	height int
	next   uint32
	closed bool

	textures map[uint32]*texture
	shaders  map[uint32]gpu.Stage
	buffers  map[uint32][]gpu.Vertex
	samplers map[uint32]gpu.SamplerDesc
	targets  map[uint32]struct{}

	back     *gg.Pixmap
	front    *gg.Pixmap
	presents int
	interval int
}

var _ gpu.Device = (*Device)(nil)

// New returns a device presenting to a width x height surface.
func New(width, height int) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	return &Device{
		width:    width,
		height:   height,
		textures: make(map[uint32]*texture),
		shaders:  make(map[uint32]gpu.Stage),
		buffers:  make(map[uint32][]gpu.Vertex),
		samplers: make(map[uint32]gpu.SamplerDesc),
		targets:  make(map[uint32]struct{}),
		back:     gg.NewPixmap(width, height),
		front:    gg.NewPixmap(width, height),
	}, nil
}

func (d *Device) Size() (int, int) {
	return d.width, d.height
}

func (d *Device) handle(k gpu.Kind) gpu.Handle {
	d.next++
	return gpu.Handle{Kind: k, ID: d.next}
}

func (d *Device) CreateTexture(width, height int, pix []byte) (gpu.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindTexture, Err: gpu.ErrClosed}
	}
	if width <= 0 || height <= 0 || len(pix) != 4*width*height {
		return gpu.Handle{}, &gpu.GPUResourceError{
			Op:   "create",
			Kind: gpu.KindTexture,
			Err:  fmt.Errorf("%d bytes of pixel data for %dx%d", len(pix), width, height),
		}
	}
	h := d.handle(gpu.KindTexture)
	d.textures[h.ID] = &texture{width: width, height: height, pix: append([]byte(nil), pix...)}
	return h, nil
}

// CreateShader records a shader stage. The rasteriser always runs a
// textured pass-through program, so the source is only checked for an
// entry point.
func (d *Device) CreateShader(stage gpu.Stage, source string) (gpu.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: gpu.ErrClosed}
	}
	if stage != gpu.StageVertex && stage != gpu.StageFragment {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: fmt.Errorf("unknown stage %d", stage)}
	}
	if !strings.Contains(source, "main") {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: fmt.Errorf("%s: %w", stage, ErrCompile)}
	}
	h := d.handle(gpu.KindShader)
	d.shaders[h.ID] = stage
	return h, nil
}

// LinkProgram checks the pair's stages; the rasteriser has nothing to link.
func (d *Device) LinkProgram(vs, fs gpu.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: gpu.ErrClosed}
	}
	if stage, ok := d.shaders[vs.ID]; !ok || vs.Kind != gpu.KindShader || stage != gpu.StageVertex {
		return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: fmt.Errorf("%w: vertex shader %s", gpu.ErrInvalidHandle, vs)}
	}
	if stage, ok := d.shaders[fs.ID]; !ok || fs.Kind != gpu.KindShader || stage != gpu.StageFragment {
		return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: fmt.Errorf("%w: fragment shader %s", gpu.ErrInvalidHandle, fs)}
	}
	return nil
}

func (d *Device) CreateVertexBuffer(vertices []gpu.Vertex) (gpu.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindVertexBuffer, Err: gpu.ErrClosed}
	}
	if len(vertices) == 0 {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindVertexBuffer, Err: errors.New("no vertices")}
	}
	h := d.handle(gpu.KindVertexBuffer)
	d.buffers[h.ID] = append([]gpu.Vertex(nil), vertices...)
	return h, nil
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindSampler, Err: gpu.ErrClosed}
	}
	h := d.handle(gpu.KindSampler)
	d.samplers[h.ID] = desc
	return h, nil
}

func (d *Device) Destroy(h gpu.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ok bool
	switch h.Kind {
	case gpu.KindTexture:
		_, ok = d.textures[h.ID]
		delete(d.textures, h.ID)
	case gpu.KindShader:
		_, ok = d.shaders[h.ID]
		delete(d.shaders, h.ID)
	case gpu.KindVertexBuffer:
		_, ok = d.buffers[h.ID]
		delete(d.buffers, h.ID)
	case gpu.KindSampler:
		_, ok = d.samplers[h.ID]
		delete(d.samplers, h.ID)
	case gpu.KindTarget:
		_, ok = d.targets[h.ID]
		delete(d.targets, h.ID)
	}
	if !ok {
		return fmt.Errorf("destroy: %w: %s", gpu.ErrInvalidHandle, h)
	}
	return nil
}

func (d *Device) AcquireTarget() (gpu.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.Handle{}, gpu.ErrClosed
	}
	h := d.handle(gpu.KindTarget)
	d.targets[h.ID] = struct{}{}
	return h, nil
}

func (d *Device) checkTarget(target gpu.Handle) error {
	if d.closed {
		return gpu.ErrClosed
	}
	if err := gpu.CheckHandle(target, gpu.KindTarget); err != nil {
		return err
	}
	if _, ok := d.targets[target.ID]; !ok {
		return fmt.Errorf("%w: %s", gpu.ErrInvalidHandle, target)
	}
	return nil
}

func (d *Device) Clear(target gpu.Handle, c gpu.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkTarget(target); err != nil {
		return err
	}
	d.back.Clear(gg.RGBA{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)})
	return nil
}

func (d *Device) Draw(target gpu.Handle, call gpu.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkTarget(target); err != nil {
		return err
	}
	if stage, ok := d.shaders[call.VertexShader.ID]; !ok || call.VertexShader.Kind != gpu.KindShader || stage != gpu.StageVertex {
		return fmt.Errorf("draw: %w: vertex shader %s", gpu.ErrInvalidHandle, call.VertexShader)
	}
	if stage, ok := d.shaders[call.FragmentShader.ID]; !ok || call.FragmentShader.Kind != gpu.KindShader || stage != gpu.StageFragment {
		return fmt.Errorf("draw: %w: fragment shader %s", gpu.ErrInvalidHandle, call.FragmentShader)
	}
	vertices, ok := d.buffers[call.VertexBuffer.ID]
	if !ok || call.VertexBuffer.Kind != gpu.KindVertexBuffer {
		return fmt.Errorf("draw: %w: vertex buffer %s", gpu.ErrInvalidHandle, call.VertexBuffer)
	}
	sampler, ok := d.samplers[call.Sampler.ID]
	if !ok || call.Sampler.Kind != gpu.KindSampler {
		return fmt.Errorf("draw: %w: sampler %s", gpu.ErrInvalidHandle, call.Sampler)
	}
	tex, ok := d.textures[call.Texture.ID]
	if !ok || call.Texture.Kind != gpu.KindTexture {
		return fmt.Errorf("draw: %w: texture %s", gpu.ErrInvalidHandle, call.Texture)
	}
	if call.VertexCount > len(vertices) {
		return fmt.Errorf("draw: %d vertices requested from a buffer of %d", call.VertexCount, len(vertices))
	}

	v := vertices[:call.VertexCount]
	switch call.Topology {
	case gpu.TriangleStrip:
		for i := 0; i+2 < len(v); i++ {
			d.rasterize(v[i], v[i+1], v[i+2], tex, sampler)
		}
	case gpu.TriangleList:
		for i := 0; i+2 < len(v); i += 3 {
			d.rasterize(v[i], v[i+1], v[i+2], tex, sampler)
		}
	default:
		return fmt.Errorf("draw: unknown topology %d", call.Topology)
	}
	d.back.NotifyPixelsChanged()
	return nil
}

func (d *Device) Present(target gpu.Handle, interval int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkTarget(target); err != nil {
		return err
	}
	if interval < 0 {
		return fmt.Errorf("present: negative interval %d", interval)
	}
	copy(d.front.Data(), d.back.Data())
	d.front.NotifyPixelsChanged()
	d.presents++
	d.interval = interval
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.ErrClosed
	}
	d.closed = true
	clear(d.textures)
	clear(d.shaders)
	clear(d.buffers)
	clear(d.samplers)
	clear(d.targets)
	return nil
}

// Presents returns how many frames have been presented and the interval
// used by the most recent one.
func (d *Device) Presents() (count, interval int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents, d.interval
}

// Frontbuffer returns a copy of the last presented frame.
func (d *Device) Frontbuffer() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front.ToImage()
}

// EncodePNG writes the last presented frame to w.
func (d *Device) EncodePNG(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front.EncodePNG(w)
}

// rasterize fills the triangle abc, sampling tex at the interpolated
// texture coordinate of each covered pixel centre.
func (d *Device) rasterize(a, b, c gpu.Vertex, tex *texture, s gpu.SamplerDesc) {
	ax, ay := d.toPixel(a)
	bx, by := d.toPixel(b)
	cx, cy := d.toPixel(c)
	area := edge(ax, ay, bx, by, cx, cy)
	if area == 0 {
		return
	}

	minX := max(0, int(math.Floor(min(ax, bx, cx))))
	maxX := min(d.width-1, int(math.Ceil(max(ax, bx, cx))))
	minY := max(0, int(math.Floor(min(ay, by, cy))))
	maxY := min(d.height-1, int(math.Ceil(max(ay, by, cy))))

	const eps = 1e-9
	pix := d.back.Data()
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			x, y := float64(px)+0.5, float64(py)+0.5
			w0 := edge(bx, by, cx, cy, x, y) / area
			w1 := edge(cx, cy, ax, ay, x, y) / area
			w2 := 1 - w0 - w1
			if w0 < -eps || w1 < -eps || w2 < -eps {
				continue
			}
			u := w0*float64(a.U) + w1*float64(b.U) + w2*float64(c.U)
			v := w0*float64(a.V) + w1*float64(b.V) + w2*float64(c.V)
			r, g, bl, al := sample(tex, s, u, v)

			// The back buffer holds premultiplied samples.
			i := (py*d.width + px) * 4
			pix[i+0] = to8(r * al)
			pix[i+1] = to8(g * al)
			pix[i+2] = to8(bl * al)
			pix[i+3] = to8(al)
		}
	}
}

// toPixel maps normalized device coordinates to pixel space with the
// origin at the top left.
func (d *Device) toPixel(v gpu.Vertex) (float64, float64) {
	x := (float64(v.X) + 1) / 2 * float64(d.width)
	y := (1 - float64(v.Y)) / 2 * float64(d.height)
	return x, y
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// sample returns the straight alpha color of tex at (u, v), each
// component in [0, 1].
func sample(tex *texture, s gpu.SamplerDesc, u, v float64) (r, g, b, a float64) {
	if s.Filter == gpu.FilterNearest {
		x := address(int(math.Floor(u*float64(tex.width))), tex.width, s.Address)
		y := address(int(math.Floor(v*float64(tex.height))), tex.height, s.Address)
		return texel(tex, x, y)
	}

	fx := u*float64(tex.width) - 0.5
	fy := v*float64(tex.height) - 0.5
	x0f, y0f := math.Floor(fx), math.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0 := address(int(x0f), tex.width, s.Address)
	x1 := address(int(x0f)+1, tex.width, s.Address)
	y0 := address(int(y0f), tex.height, s.Address)
	y1 := address(int(y0f)+1, tex.height, s.Address)

	r00, g00, b00, a00 := texel(tex, x0, y0)
	r10, g10, b10, a10 := texel(tex, x1, y0)
	r01, g01, b01, a01 := texel(tex, x0, y1)
	r11, g11, b11, a11 := texel(tex, x1, y1)

	lerp2 := func(c00, c10, c01, c11 float64) float64 {
		top := c00 + (c10-c00)*tx
		bottom := c01 + (c11-c01)*tx
		return top + (bottom-top)*ty
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11), lerp2(b00, b10, b01, b11), lerp2(a00, a10, a01, a11)
}

func address(i, n int, mode gpu.AddressMode) int {
	if mode == gpu.AddressClamp {
		return min(max(i, 0), n-1)
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func texel(tex *texture, x, y int) (r, g, b, a float64) {
	i := (y*tex.width + x) * 4
	p := tex.pix[i : i+4 : i+4]
	return float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255, float64(p[3]) / 255
}

func to8(f float64) uint8 {
	return uint8(min(max(f*255+0.5, 0), 255))
}

// Package glrender implements gpu.Device with OpenGL 3.3 core on the
// context of a window surface.
package glrender

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/matjam/livepaper/internal/gpu"
)

// Surface is a window with a current OpenGL context.
type Surface interface {
	Size() (int, int)
	MakeContextCurrent()
	SwapInterval(n int)
	SwapBuffers()
	Close() error
}

type Device struct {
	surface Surface
	width   int
	height  int

	textures map[uint32]struct{}
	shaders  map[uint32]gpu.Stage
	vaos     map[uint32]vertexArray // vao name to buffer
	samplers map[uint32]struct{}
	programs map[[2]uint32]program
	targets  map[uint32]struct{}

	nextTarget uint32
	interval   int
	closed     bool
}

type vertexArray struct {
	vbo   uint32
	count int
}

type program struct {
	id      uint32
	texture int32 // u_texture location
}

var _ gpu.Device = (*Device)(nil)

// New loads the OpenGL entry points for the surface's context. The device
// takes ownership of the surface and closes it on Close.
func New(s Surface) (*Device, error) {
	s.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init failed: %w", err)
	}
	log.Infof("OpenGL %s on %s",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.RENDERER)))

	width, height := s.Size()
	gl.Viewport(0, 0, int32(width), int32(height))

	return &Device{
		surface:  s,
		width:    width,
		height:   height,
		textures: make(map[uint32]struct{}),
		shaders:  make(map[uint32]gpu.Stage),
		vaos:     make(map[uint32]vertexArray),
		samplers: make(map[uint32]struct{}),
		programs: make(map[[2]uint32]program),
		targets:  make(map[uint32]struct{}),
		interval: -1,
	}, nil
}

func (d *Device) Size() (int, int) {
	return d.width, d.height
}

func (d *Device) CreateTexture(width, height int, pix []byte) (gpu.Handle, error) {
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

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, 0)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
		int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := glError(); err != nil {
		gl.DeleteTextures(1, &tex)
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindTexture, Err: err}
	}
	d.textures[tex] = struct{}{}
	return gpu.Handle{Kind: gpu.KindTexture, ID: tex}, nil
}

func (d *Device) CreateShader(stage gpu.Stage, source string) (gpu.Handle, error) {
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: gpu.ErrClosed}
	}
	var shaderType uint32
	switch stage {
	case gpu.StageVertex:
		shaderType = gl.VERTEX_SHADER
	case gpu.StageFragment:
		shaderType = gl.FRAGMENT_SHADER
	default:
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: fmt.Errorf("unknown stage %d", stage)}
	}
	shader, err := compileShader(source, shaderType)
	if err != nil {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: fmt.Errorf("%s: %w", stage, err)}
	}
	d.shaders[shader] = stage
	return gpu.Handle{Kind: gpu.KindShader, ID: shader}, nil
}

func (d *Device) CreateVertexBuffer(vertices []gpu.Vertex) (gpu.Handle, error) {
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindVertexBuffer, Err: gpu.ErrClosed}
	}
	if len(vertices) == 0 {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindVertexBuffer, Err: errors.New("no vertices")}
	}

	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*gpu.VertexStride, gl.Ptr(vertices), gl.STATIC_DRAW)

	// location 0: position xyz, location 1: texcoord uv
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, gpu.VertexStride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, gpu.VertexStride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := glError(); err != nil {
		gl.DeleteBuffers(1, &vbo)
		gl.DeleteVertexArrays(1, &vao)
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindVertexBuffer, Err: err}
	}
	d.vaos[vao] = vertexArray{vbo: vbo, count: len(vertices)}
	return gpu.Handle{Kind: gpu.KindVertexBuffer, ID: vao}, nil
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Handle, error) {
	if d.closed {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindSampler, Err: gpu.ErrClosed}
	}
	filter := int32(gl.LINEAR)
	if desc.Filter == gpu.FilterNearest {
		filter = gl.NEAREST
	}
	wrap := int32(gl.REPEAT)
	if desc.Address == gpu.AddressClamp {
		wrap = gl.CLAMP_TO_EDGE
	}

	var sampler uint32
	gl.GenSamplers(1, &sampler)
	gl.SamplerParameteri(sampler, gl.TEXTURE_MIN_FILTER, filter)
	gl.SamplerParameteri(sampler, gl.TEXTURE_MAG_FILTER, filter)
	gl.SamplerParameteri(sampler, gl.TEXTURE_WRAP_S, wrap)
	gl.SamplerParameteri(sampler, gl.TEXTURE_WRAP_T, wrap)

	if err := glError(); err != nil {
		gl.DeleteSamplers(1, &sampler)
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "create", Kind: gpu.KindSampler, Err: err}
	}
	d.samplers[sampler] = struct{}{}
	return gpu.Handle{Kind: gpu.KindSampler, ID: sampler}, nil
}

func (d *Device) Destroy(h gpu.Handle) error {
	id := h.ID
	switch h.Kind {
	case gpu.KindTexture:
		if _, ok := d.textures[id]; ok {
			delete(d.textures, id)
			gl.DeleteTextures(1, &id)
			return nil
		}
	case gpu.KindShader:
		if _, ok := d.shaders[id]; ok {
			delete(d.shaders, id)
			d.deletePrograms(id)
			gl.DeleteShader(id)
			return nil
		}
	case gpu.KindVertexBuffer:
		if va, ok := d.vaos[id]; ok {
			delete(d.vaos, id)
			gl.DeleteBuffers(1, &va.vbo)
			gl.DeleteVertexArrays(1, &id)
			return nil
		}
	case gpu.KindSampler:
		if _, ok := d.samplers[id]; ok {
			delete(d.samplers, id)
			gl.DeleteSamplers(1, &id)
			return nil
		}
	case gpu.KindTarget:
		if _, ok := d.targets[id]; ok {
			delete(d.targets, id)
			return nil
		}
	}
	return fmt.Errorf("destroy: %w: %s", gpu.ErrInvalidHandle, h)
}

// AcquireTarget selects the window's back buffer.
func (d *Device) AcquireTarget() (gpu.Handle, error) {
	if d.closed {
		return gpu.Handle{}, gpu.ErrClosed
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	if err := glError(); err != nil {
		return gpu.Handle{}, err
	}
	d.nextTarget++
	d.targets[d.nextTarget] = struct{}{}
	return gpu.Handle{Kind: gpu.KindTarget, ID: d.nextTarget}, nil
}

func (d *Device) checkTarget(target gpu.Handle) error {
	if d.closed {
		return gpu.ErrClosed
	}
	if _, ok := d.targets[target.ID]; !ok || target.Kind != gpu.KindTarget {
		return fmt.Errorf("%w: %s", gpu.ErrInvalidHandle, target)
	}
	return nil
}

func (d *Device) Clear(target gpu.Handle, c gpu.Color) error {
	if err := d.checkTarget(target); err != nil {
		return err
	}
	gl.ClearColor(c.R, c.G, c.B, c.A)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	return glError()
}

func (d *Device) Draw(target gpu.Handle, call gpu.DrawCall) error {
	if err := d.checkTarget(target); err != nil {
		return err
	}
	if _, ok := d.textures[call.Texture.ID]; !ok || call.Texture.Kind != gpu.KindTexture {
		return fmt.Errorf("draw: %w: texture %s", gpu.ErrInvalidHandle, call.Texture)
	}
	if _, ok := d.samplers[call.Sampler.ID]; !ok || call.Sampler.Kind != gpu.KindSampler {
		return fmt.Errorf("draw: %w: sampler %s", gpu.ErrInvalidHandle, call.Sampler)
	}
	va, ok := d.vaos[call.VertexBuffer.ID]
	if !ok || call.VertexBuffer.Kind != gpu.KindVertexBuffer {
		return fmt.Errorf("draw: %w: vertex buffer %s", gpu.ErrInvalidHandle, call.VertexBuffer)
	}
	if call.VertexCount > va.count {
		return fmt.Errorf("draw: %d vertices requested from a buffer of %d", call.VertexCount, va.count)
	}
	prog, err := d.program(call.VertexShader, call.FragmentShader)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	mode := uint32(gl.TRIANGLE_STRIP)
	if call.Topology == gpu.TriangleList {
		mode = gl.TRIANGLES
	}

	gl.UseProgram(prog.id)
	gl.Uniform1i(prog.texture, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, call.Texture.ID)
	gl.BindSampler(0, call.Sampler.ID)
	gl.BindVertexArray(call.VertexBuffer.ID)
	gl.DrawArrays(mode, 0, int32(call.VertexCount))
	gl.BindVertexArray(0)
	gl.BindSampler(0, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
	return glError()
}

// Present swaps the window buffers. The swap interval is only changed
// when it differs from the previous present.
func (d *Device) Present(target gpu.Handle, interval int) error {
	if err := d.checkTarget(target); err != nil {
		return err
	}
	if interval != d.interval {
		d.surface.SwapInterval(interval)
		d.interval = interval
	}
	d.surface.SwapBuffers()
	return glError()
}

// Close deletes every object still alive and closes the surface.
func (d *Device) Close() error {
	if d.closed {
		return gpu.ErrClosed
	}
	for _, p := range d.programs {
		gl.DeleteProgram(p.id)
	}
	for id := range d.shaders {
		gl.DeleteShader(id)
	}
	for id, va := range d.vaos {
		gl.DeleteBuffers(1, &va.vbo)
		gl.DeleteVertexArrays(1, &id)
	}
	for id := range d.samplers {
		gl.DeleteSamplers(1, &id)
	}
	for id := range d.textures {
		gl.DeleteTextures(1, &id)
	}
	d.closed = true
	return d.surface.Close()
}

func (d *Device) LinkProgram(vs, fs gpu.Handle) error {
	if d.closed {
		return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: gpu.ErrClosed}
	}
	if _, err := d.program(vs, fs); err != nil {
		return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: err}
	}
	return nil
}

// program returns the linked program for a vertex and fragment shader
// pair, linking it on first use.
func (d *Device) program(vs, fs gpu.Handle) (program, error) {
	if stage, ok := d.shaders[vs.ID]; !ok || vs.Kind != gpu.KindShader || stage != gpu.StageVertex {
		return program{}, fmt.Errorf("%w: vertex shader %s", gpu.ErrInvalidHandle, vs)
	}
	if stage, ok := d.shaders[fs.ID]; !ok || fs.Kind != gpu.KindShader || stage != gpu.StageFragment {
		return program{}, fmt.Errorf("%w: fragment shader %s", gpu.ErrInvalidHandle, fs)
	}
	key := [2]uint32{vs.ID, fs.ID}
	if p, ok := d.programs[key]; ok {
		return p, nil
	}
	id, err := linkProgram(vs.ID, fs.ID)
	if err != nil {
		return program{}, err
	}
	p := program{id: id, texture: gl.GetUniformLocation(id, gl.Str("u_texture\x00"))}
	d.programs[key] = p
	return p, nil
}

func (d *Device) deletePrograms(shader uint32) {
	for key, p := range d.programs {
		if key[0] == shader || key[1] == shader {
			gl.DeleteProgram(p.id)
			delete(d.programs, key)
		}
	}
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("shader compile error: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}

func linkProgram(vs, fs uint32) (uint32, error) {
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(infoLog))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("program link error: %s", strings.TrimRight(infoLog, "\x00"))
	}
	gl.DetachShader(prog, vs)
	gl.DetachShader(prog, fs)
	return prog, nil
}

// glError drains the GL error queue.
func glError() error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("0x%04x", code))
		if len(codes) > 8 {
			break
		}
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("gl error %s", strings.Join(codes, ", "))
}

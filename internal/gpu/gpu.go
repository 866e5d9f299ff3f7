// Package gpu defines the small device model the wallpaper renders through.
//
// A Device hands out opaque Handles for textures, shaders, vertex buffers,
// samplers and per-frame render targets. Every handle is released exactly
// once with Destroy. Backends live in sub packages (software) and in
// internal/glrender.
package gpu

import (
	"errors"
	"fmt"
)

// Kind identifies the type of object a Handle refers to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindTexture
	KindShader
	KindVertexBuffer
	KindSampler
	KindTarget
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindShader:
		return "shader"
	case KindVertexBuffer:
		return "vertex buffer"
	case KindSampler:
		return "sampler"
	case KindTarget:
		return "target"
	}
	return "invalid"
}

// Handle refers to a device object. The zero Handle is invalid.
type Handle struct {
	Kind Kind
	ID   uint32
}

func (h Handle) Valid() bool { return h.Kind != KindInvalid }

func (h Handle) String() string { return fmt.Sprintf("%s#%d", h.Kind, h.ID) }

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota + 1
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}

// Vertex is a position in normalized device coordinates and a texture
// coordinate. Laid out as five float32 values, 20 bytes.
type Vertex struct {
	X, Y, Z float32
	U, V    float32
}

// VertexStride is the size in bytes of a Vertex in a vertex buffer.
const VertexStride = 20

type Filter uint8

const (
	FilterLinear Filter = iota
	FilterNearest
)

type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressClamp
)

type SamplerDesc struct {
	Filter  Filter
	Address AddressMode
}

type Topology uint8

const (
	TriangleStrip Topology = iota
	TriangleList
)

// Color is a straight alpha color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

var Black = Color{A: 1}

// DrawCall is everything needed to issue one draw into a target.
type DrawCall struct {
	VertexShader   Handle
	FragmentShader Handle
	VertexBuffer   Handle
	Sampler        Handle
	Texture        Handle
	Topology       Topology
	VertexCount    int
}

// Device is a rendering device bound to one presentation surface.
type Device interface {
	// Size returns the size of the presentation surface in pixels.
	Size() (width, height int)

	// CreateTexture uploads a width x height RGBA8 image. pix has a stride
	// of 4*width.
	CreateTexture(width, height int, pix []byte) (Handle, error)
	CreateShader(stage Stage, source string) (Handle, error)
	CreateVertexBuffer(vertices []Vertex) (Handle, error)
	CreateSampler(desc SamplerDesc) (Handle, error)

	// LinkProgram checks that a vertex and fragment shader link into a
	// program, and links it ahead of the first Draw that uses the pair.
	LinkProgram(vs, fs Handle) error

	// Destroy releases the object behind h.
	Destroy(h Handle) error

	// AcquireTarget returns a view of the back buffer to render into. The
	// target must be destroyed after Present.
	AcquireTarget() (Handle, error)
	Clear(target Handle, c Color) error
	Draw(target Handle, call DrawCall) error

	// Present shows the back buffer, waiting for interval vertical blanks.
	Present(target Handle, interval int) error

	// Close releases the device and its surface.
	Close() error
}

// GPUResourceError reports a failure to create a device object.
type GPUResourceError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *GPUResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GPUResourceError) Unwrap() error { return e.Err }

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrClosed        = errors.New("device closed")
)

// CheckHandle returns ErrInvalidHandle wrapped with context when h is not
// of kind k.
func CheckHandle(h Handle, k Kind) error {
	if h.Kind != k {
		return fmt.Errorf("%w: %s is not a %s", ErrInvalidHandle, h, k)
	}
	return nil
}

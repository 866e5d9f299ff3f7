// Package quad builds the fixed pipeline that draws one texture as a
// screen-aligned quad.
package quad

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/gpu"
	"go.uber.org/multierr"
)

var ErrNoTexture = errors.New("no texture bound")

// Sampler is linear filtering with wrap addressing.
var Sampler = gpu.SamplerDesc{Filter: gpu.FilterLinear, Address: gpu.AddressWrap}

// Pipeline holds the shaders, vertex buffer and sampler of the quad. It is
// immutable once built apart from the bound texture.
type Pipeline struct {
	dev   gpu.Device
	scope gpu.Scope

	vs      gpu.Handle
	fs      gpu.Handle
	vb      gpu.Handle
	sampler gpu.Handle
	texture gpu.Handle
}

// New compiles the shaders and creates the geometry for layout. If any
// step fails, whatever was already created is released.
func New(dev gpu.Device, layout Layout) (*Pipeline, error) {
	p := &Pipeline{dev: dev}

	steps := []struct {
		name   string
		dst    *gpu.Handle
		create func() (gpu.Handle, error)
	}{
		{"vertex shader", &p.vs, func() (gpu.Handle, error) { return dev.CreateShader(gpu.StageVertex, VertexShader) }},
		{"fragment shader", &p.fs, func() (gpu.Handle, error) { return dev.CreateShader(gpu.StageFragment, FragmentShader) }},
		{"vertex buffer", &p.vb, func() (gpu.Handle, error) { return dev.CreateVertexBuffer(layout.Vertices()) }},
		{"sampler", &p.sampler, func() (gpu.Handle, error) { return dev.CreateSampler(Sampler) }},
	}
	for _, step := range steps {
		h, err := step.create()
		if err != nil {
			err = fmt.Errorf("failed to create %s: %w", step.name, err)
			return nil, multierr.Append(err, p.scope.Close())
		}
		*step.dst = h
		if err := p.scope.Own(dev, h); err != nil {
			return nil, multierr.Append(err, p.scope.Close())
		}
	}
	if err := dev.LinkProgram(p.vs, p.fs); err != nil {
		err = fmt.Errorf("failed to link shaders: %w", err)
		return nil, multierr.Append(err, p.scope.Close())
	}

	log.Debugf("quad pipeline built: %+v", layout)
	return p, nil
}

// Bind selects the texture drawn by the next Draw.
func (p *Pipeline) Bind(tex gpu.Handle) {
	p.texture = tex
}

// Draw issues the 4-vertex triangle strip into target.
func (p *Pipeline) Draw(target gpu.Handle) error {
	if !p.texture.Valid() {
		return ErrNoTexture
	}
	return p.dev.Draw(target, gpu.DrawCall{
		VertexShader:   p.vs,
		FragmentShader: p.fs,
		VertexBuffer:   p.vb,
		Sampler:        p.sampler,
		Texture:        p.texture,
		Topology:       gpu.TriangleStrip,
		VertexCount:    4,
	})
}

// Release destroys the pipeline objects. Only the first call has an
// effect.
func (p *Pipeline) Release() error {
	p.texture = gpu.Handle{}
	return p.scope.Close()
}

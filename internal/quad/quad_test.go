package quad

import (
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/gpu/software"
	"github.com/matjam/livepaper/internal/types"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name   string
		mode   types.ScalingMode
		sw, sh int
		tw, th int
		want   Layout
	}{
		{name: "stretch", mode: types.ScalingModeStretch, sw: 200, sh: 100, tw: 100, th: 100, want: FullScreen},
		{name: "center_tall", mode: types.ScalingModeCenter, sw: 200, sh: 100, tw: 100, th: 100, want: Layout{Left: -0.5, Top: 1, Right: 0.5, Bottom: -1}},
		{name: "center_wide", mode: types.ScalingModeCenter, sw: 100, sh: 100, tw: 200, th: 100, want: Layout{Left: -1, Top: 0.5, Right: 1, Bottom: -0.5}},
		{name: "horizontal", mode: types.ScalingModeFitHorizontal, sw: 200, sh: 100, tw: 100, th: 100, want: Layout{Left: -1, Top: 2, Right: 1, Bottom: -2}},
		{name: "vertical", mode: types.ScalingModeFitVertical, sw: 200, sh: 100, tw: 100, th: 100, want: Layout{Left: -0.5, Top: 1, Right: 0.5, Bottom: -1}},
		{name: "cover_tall", mode: types.ScalingModeCover, sw: 200, sh: 100, tw: 100, th: 100, want: Layout{Left: -1, Top: 2, Right: 1, Bottom: -2}},
		{name: "cover_wide", mode: types.ScalingModeCover, sw: 100, sh: 100, tw: 200, th: 100, want: Layout{Left: -2, Top: 1, Right: 2, Bottom: -1}},
		{name: "degenerate", mode: types.ScalingModeCenter, sw: 0, sh: 100, tw: 100, th: 100, want: FullScreen},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Fit(test.mode, test.sw, test.sh, test.tw, test.th)
			if !cmp.Equal(test.want, got) {
				t.Errorf("unexpected layout:\n--- want:\n+++ got:\n%s", cmp.Diff(test.want, got))
			}
		})
	}
}

func TestFullScreenVertices(t *testing.T) {
	want := []gpu.Vertex{
		{X: -1, Y: 1, Z: 0, U: 0, V: 0},
		{X: 1, Y: 1, Z: 0, U: 1, V: 0},
		{X: -1, Y: -1, Z: 0, U: 0, V: 1},
		{X: 1, Y: -1, Z: 0, U: 1, V: 1},
	}
	if got := FullScreen.Vertices(); !cmp.Equal(want, got) {
		t.Errorf("unexpected vertices:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}

func TestPipelineLifecycle(t *testing.T) {
	dev, err := software.New(4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := gpu.NewTracker(dev)

	p, err := New(tr, Fit(types.ScalingModeCenter, 4, 2, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[gpu.Kind]int{gpu.KindShader: 2, gpu.KindVertexBuffer: 1, gpu.KindSampler: 1}
	if got := tr.Outstanding(); !cmp.Equal(want, got) {
		t.Errorf("unexpected pipeline objects:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}

	target, err := tr.AcquireTarget()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Draw(target); !errors.Is(err, ErrNoTexture) {
		t.Errorf("unexpected error drawing without a texture: %v", err)
	}

	white, err := tr.CreateTexture(1, 1, []byte{0xff, 0xff, 0xff, 0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Bind(white)
	if err := tr.Clear(target, gpu.Black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Draw(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Present(target, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A square image centred on a 4x2 surface leaves one black column
	// either side.
	img := dev.Frontbuffer()
	var got []color.RGBA
	for x := 0; x < 4; x++ {
		got = append(got, img.RGBAAt(x, 0))
	}
	black := color.RGBA{A: 0xff}
	whiteC := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if wantRow := []color.RGBA{black, whiteC, whiteC, black}; !cmp.Equal(wantRow, got) {
		t.Errorf("unexpected row:\n--- want:\n+++ got:\n%s", cmp.Diff(wantRow, got))
	}

	for _, h := range []gpu.Handle{white, target} {
		if err := tr.Destroy(h); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := p.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Release(); err != nil {
		t.Fatalf("unexpected error on second release: %v", err)
	}
	if tr.Live() != 0 {
		t.Errorf("unexpected live handles: %v", tr.Outstanding())
	}
}

type badFragmentDevice struct {
	gpu.Device
}

var errCompile = errors.New("0:3(1): error: syntax error")

func (d badFragmentDevice) CreateShader(stage gpu.Stage, source string) (gpu.Handle, error) {
	if stage == gpu.StageFragment {
		return gpu.Handle{}, &gpu.GPUResourceError{Op: "compile", Kind: gpu.KindShader, Err: errCompile}
	}
	return d.Device.CreateShader(stage, source)
}

type unlinkableDevice struct {
	gpu.Device
	linked int
}

var errLink = errors.New("error: vertex shader output v_uv not read by fragment shader")

func (d *unlinkableDevice) LinkProgram(vs, fs gpu.Handle) error {
	d.linked++
	return &gpu.GPUResourceError{Op: "link", Kind: gpu.KindShader, Err: errLink}
}

func TestPipelineLinksWhenBuilt(t *testing.T) {
	dev, err := software.New(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := &unlinkableDevice{Device: dev}
	tr := gpu.NewTracker(bad)

	p, err := New(tr, FullScreen)
	if p != nil {
		t.Error("unexpected pipeline returned with error")
	}
	if !errors.Is(err, errLink) {
		t.Fatalf("unexpected error: %v", err)
	}
	if bad.linked != 1 {
		t.Errorf("unexpected link attempts: got:%d want:1", bad.linked)
	}
	if tr.Live() != 0 {
		t.Errorf("objects leaked after failed link: %v", tr.Outstanding())
	}
}

func TestPipelineBuildFailure(t *testing.T) {
	dev, err := software.New(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := gpu.NewTracker(badFragmentDevice{dev})

	p, err := New(tr, FullScreen)
	if err == nil {
		t.Fatal("expected error")
	}
	if p != nil {
		t.Error("unexpected pipeline returned with error")
	}
	if !errors.Is(err, errCompile) {
		t.Errorf("unexpected error: %v", err)
	}
	if tr.Live() != 0 {
		t.Errorf("objects leaked after failed build: %v", tr.Outstanding())
	}
}

package gpu_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/gpu/software"
)

func TestTrackerCountsHandles(t *testing.T) {
	dev, err := software.New(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := gpu.NewTracker(dev)

	tex, err := tr.CreateTexture(1, 1, []byte{0, 0, 0, 0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sampler, err := tr.CreateSampler(gpu.SamplerDesc{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tr.CreateShader(gpu.StageVertex, ""); err == nil {
		t.Fatal("expected compile error")
	}

	want := map[gpu.Kind]int{gpu.KindTexture: 1, gpu.KindSampler: 1}
	if got := tr.Outstanding(); !cmp.Equal(want, got) {
		t.Errorf("unexpected outstanding handles:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}

	for _, h := range []gpu.Handle{tex, sampler} {
		if err := tr.Destroy(h); err != nil {
			t.Fatalf("unexpected error destroying %s: %v", h, err)
		}
	}
	if tr.Live() != 0 {
		t.Errorf("unexpected live handles: %d", tr.Live())
	}
	if err := tr.Destroy(tex); !errors.Is(err, gpu.ErrInvalidHandle) {
		t.Errorf("unexpected double destroy error: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.Closed() {
		t.Error("tracker not marked closed")
	}
}

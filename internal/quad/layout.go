package quad

import (
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/types"
)

// Layout is the rectangle the quad covers, in normalized device
// coordinates. Parts outside [-1, 1] are clipped.
type Layout struct {
	Left, Top, Right, Bottom float32
}

// FullScreen covers the whole surface.
var FullScreen = Layout{Left: -1, Top: 1, Right: 1, Bottom: -1}

// Fit returns the layout that places a texW x texH image on a
// screenW x screenH surface according to mode.
func Fit(mode types.ScalingMode, screenW, screenH, texW, texH int) Layout {
	if screenW <= 0 || screenH <= 0 || texW <= 0 || texH <= 0 {
		return FullScreen
	}
	screenAspect := float32(screenW) / float32(screenH)
	textureAspect := float32(texW) / float32(texH)

	l := FullScreen
	switch mode {
	case types.ScalingModeStretch:

	case types.ScalingModeFitHorizontal:
		// Keep width at 100%, adjust height to the texture aspect ratio
		h := screenAspect / textureAspect
		l.Top, l.Bottom = h, -h

	case types.ScalingModeFitVertical:
		// Keep height at 100%, adjust width to the texture aspect ratio
		w := textureAspect / screenAspect
		l.Left, l.Right = -w, w

	case types.ScalingModeCover:
		// Scale by the larger factor so the whole surface is covered
		if textureAspect > screenAspect {
			w := textureAspect / screenAspect
			l.Left, l.Right = -w, w
		} else {
			h := screenAspect / textureAspect
			l.Top, l.Bottom = h, -h
		}

	case types.ScalingModeCenter:
		fallthrough
	default:
		// Scale by the smaller factor so nothing is cropped
		if textureAspect > screenAspect {
			h := screenAspect / textureAspect
			l.Top, l.Bottom = h, -h
		} else {
			w := textureAspect / screenAspect
			l.Left, l.Right = -w, w
		}
	}
	return l
}

// Vertices returns the four triangle strip vertices of l: top left, top
// right, bottom left, bottom right. Texture coordinates run from (0, 0)
// at the top left to (1, 1) at the bottom right.
func (l Layout) Vertices() []gpu.Vertex {
	return []gpu.Vertex{
		{X: l.Left, Y: l.Top, U: 0, V: 0},
		{X: l.Right, Y: l.Top, U: 1, V: 0},
		{X: l.Left, Y: l.Bottom, U: 0, V: 1},
		{X: l.Right, Y: l.Bottom, U: 1, V: 1},
	}
}

package types

import "fmt"

type ScalingMode string

const (
	ScalingModeCenter        ScalingMode = "center"
	ScalingModeStretch       ScalingMode = "stretched"
	ScalingModeFitHorizontal ScalingMode = "horizontal"
	ScalingModeFitVertical   ScalingMode = "vertical"
	ScalingModeCover         ScalingMode = "cover"
)

// ParseScalingMode returns the mode named by s. An empty string selects
// ScalingModeStretch.
func ParseScalingMode(s string) (ScalingMode, error) {
	switch m := ScalingMode(s); m {
	case "":
		return ScalingModeStretch, nil
	case ScalingModeCenter, ScalingModeStretch, ScalingModeFitHorizontal, ScalingModeFitVertical, ScalingModeCover:
		return m, nil
	}
	return "", fmt.Errorf("unknown scale mode %q", s)
}

type Backend string

const (
	BackendGL       Backend = "gl"
	BackendSoftware Backend = "software"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendGL, nil
	case BackendGL, BackendSoftware:
		return b, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// WindowEvents are the window events seen since the last poll.
type WindowEvents struct {
	Closed  bool
	Damaged bool
}

// AnimationState is whether a loaded sequence advances over time.
type AnimationState string

const (
	StateStatic  AnimationState = "static"
	StatePlaying AnimationState = "playing"
)

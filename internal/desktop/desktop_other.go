//go:build !linux

package desktop

import (
	"errors"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func placeOnDesktop(*glfw.Window) error {
	return errors.New("desktop placement is only supported on X11")
}

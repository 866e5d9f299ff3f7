// Package desktop opens a full-screen window that sits in the desktop
// layer, below icons and every other window.
package desktop

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/matjam/livepaper/internal/types"
)

type Window struct {
	win    *glfw.Window
	width  int
	height int

	shown   bool
	closed  bool
	damaged bool
}

// Open creates the wallpaper window on the primary monitor with an
// OpenGL 3.3 core context current on the calling thread. The window stays
// unmapped until Show.
func Open(title string) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init failed: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Focused, glfw.False)
	glfw.WindowHint(glfw.Floating, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False) // mapped by Show

	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		glfw.Terminate()
		return nil, fmt.Errorf("no monitor found")
	}
	vidMode := monitor.GetVideoMode()
	win, err := glfw.CreateWindow(vidMode.Width, vidMode.Height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window failed: %w", err)
	}

	win.MakeContextCurrent()

	w := &Window{win: win, width: vidMode.Width, height: vidMode.Height}
	win.SetRefreshCallback(func(*glfw.Window) { w.damaged = true })
	win.SetCloseCallback(func(*glfw.Window) { w.closed = true })

	log.Infof("desktop window %dx%d", w.width, w.height)
	return w, nil
}

// Show maps the window into the desktop layer, below the icons. Where
// that is not possible it is shown as an ordinary window.
func (w *Window) Show() {
	if w.shown {
		return
	}
	w.shown = true
	if err := placeOnDesktop(w.win); err != nil {
		log.Warnf("could not move window to the desktop layer: %v", err)
		w.win.Show()
	}
}

func (w *Window) Size() (int, int) {
	return w.width, w.height
}

func (w *Window) MakeContextCurrent() {
	w.win.MakeContextCurrent()
}

func (w *Window) SwapInterval(n int) {
	glfw.SwapInterval(n)
}

func (w *Window) SwapBuffers() {
	w.win.SwapBuffers()
}

// PollEvents processes pending window system events and reports what
// happened since the previous call.
func (w *Window) PollEvents() types.WindowEvents {
	glfw.PollEvents()
	ev := types.WindowEvents{Closed: w.closed || w.win.ShouldClose(), Damaged: w.damaged}
	w.damaged = false
	return ev
}

// Close destroys the window and shuts glfw down.
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	w.win.Destroy()
	w.win = nil
	glfw.Terminate()
	return nil
}

//go:build linux

package desktop

/*
#cgo LDFLAGS: -lX11
#include <X11/Xlib.h>
#include <X11/Xatom.h>

void set_window_override_redirect(Display* display, Window win) {
    XSetWindowAttributes attrs;
    attrs.override_redirect = True;
    XChangeWindowAttributes(display, win, CWOverrideRedirect, &attrs);
}

void set_net_wm_window_type_desktop(Display* display, Window win) {
    Atom net_wm_window_type = XInternAtom(display, "_NET_WM_WINDOW_TYPE", False);
    Atom net_wm_window_type_desktop = XInternAtom(display, "_NET_WM_WINDOW_TYPE_DESKTOP", False);
    XChangeProperty(display, win, net_wm_window_type, XA_ATOM, 32, PropModeReplace, (unsigned char *)&net_wm_window_type_desktop, 1);
}
*/
import "C"

import (
	"errors"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// placeOnDesktop marks the window as the desktop, keeps the window manager
// from decorating it, then maps it below all of its siblings.
func placeOnDesktop(win *glfw.Window) error {
	display := C.XOpenDisplay(nil)
	if display == nil {
		return errors.New("unable to open X11 display")
	}
	defer C.XCloseDisplay(display)

	xwin := C.Window(win.GetX11Window())
	C.set_window_override_redirect(display, xwin)
	C.set_net_wm_window_type_desktop(display, xwin)
	C.XMapWindow(display, xwin)
	C.XLowerWindow(display, xwin)
	C.XFlush(display)
	return nil
}

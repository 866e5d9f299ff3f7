package ipc

import (
	"errors"
	"time"

	"github.com/matjam/livepaper/internal/types"
)

type CommandType string

const (
	CommandStop   CommandType = "stop"
	CommandRedraw CommandType = "redraw"
	CommandStatus CommandType = "status"
)

type Command struct {
	Type CommandType `json:"type"`
	Args []string    `json:"args,omitempty"`
}

// ErrBusy is returned when the command queue is full.
var ErrBusy = errors.New("command queue full")

// WallpaperStatus is a snapshot of the running wallpaper.
type WallpaperStatus struct {
	Path       string               `json:"path"`
	Frames     int                  `json:"frames"`
	Index      int                  `json:"index"`
	State      types.AnimationState `json:"state"`
	IntervalMS int64                `json:"interval_ms"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Presents   int                  `json:"presents"`
	Started    time.Time            `json:"started"`
}

type ManagerInterface interface {
	Status() WallpaperStatus
	EnqueueCommand(Command) error
}

type StatusResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Version   string          `json:"version"`
	PID       int             `json:"pid"`
	Socket    string          `json:"socket"`
	Config    string          `json:"config"`
	Uptime    string          `json:"uptime"`
	Wallpaper WallpaperStatus `json:"wallpaper"`
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

package ipc

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/matjam/livepaper"
	"github.com/spf13/viper"
)

// GET /status
func statusHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := m.Status()
		return c.JSONPretty(http.StatusOK, StatusResponse{
			Status:    "ok",
			Message:   "livepaper is running",
			Version:   strings.Trim(livepaper.Version, "\n\r "),
			PID:       os.Getpid(),
			Socket:    SocketPath(),
			Config:    viper.ConfigFileUsed(),
			Uptime:    time.Since(status.Started).Truncate(time.Second).String(),
			Wallpaper: status,
		}, "  ")
	}
}

// POST /stop, POST /redraw
func commandHandler(m ManagerInterface, t CommandType) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.EnqueueCommand(Command{Type: t}); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Error: err.Error()})
		}
		return c.JSON(http.StatusOK, Response{Status: "ok", Message: string(t) + " queued"})
	}
}

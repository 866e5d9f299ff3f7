package ipc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/matjam/livepaper/internal/middleware"
)

type Server struct {
	echo *echo.Echo
	path string
}

// NewEcho returns the echo instance serving the control API for manager.
func NewEcho(manager ManagerInterface) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CharmLog())

	RegisterRoutes(e, manager)
	return e
}

// Listen binds the control socket at path, replacing a stale socket file.
func Listen(manager ManagerInterface, path string) (*Server, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	e := NewEcho(manager)
	e.Listener = listener
	return &Server{echo: e, path: path}, nil
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	log.Infof("control socket listening on %s", s.path)
	// Shutdown stops echo's own server, so that is the one to start.
	if err := s.echo.StartServer(s.echo.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	_ = os.Remove(s.path)
	return err
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/matjam/livepaper/internal/cli/cmd/utils"
	"github.com/matjam/livepaper/internal/desktop"
	"github.com/matjam/livepaper/internal/dialog"
	"github.com/matjam/livepaper/internal/glrender"
	"github.com/matjam/livepaper/internal/gpu"
	"github.com/matjam/livepaper/internal/gpu/software"
	"github.com/matjam/livepaper/internal/ipc"
	"github.com/matjam/livepaper/internal/types"
	"github.com/matjam/livepaper/internal/wallpaper"
	"github.com/spf13/viper"
)

const (
	ExitOK    = 0
	ExitFatal = -1
)

const title = "livepaper"

// StartWallpaper shows the image at path, or one picked with the file
// chooser when path is empty, until stopped. It returns the process exit
// code.
func StartWallpaper(path string) int {
	log.Infof("StartWallpaper() started in PID: %d", os.Getpid())

	if os.Getenv("BACKGROUND_PROCESS") == "1" {
		setupRotatingLogger()
	}

	if _, err := ipc.SendStatus(); err == nil {
		log.Infof("livepaper is already running, exiting")
		return ExitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path == "" {
		chosen, err := dialog.Choose(ctx, "Select an image")
		if errors.Is(err, dialog.ErrCancelled) {
			log.Info("no file selected, exiting")
			return ExitOK
		}
		if err != nil {
			return fatal(fmt.Errorf("file selection failed: %w", err))
		}
		path = chosen
	}
	path = utils.CanonicalPath(path)

	opts, err := optionsFromConfig(path)
	if err != nil {
		return fatal(err)
	}

	// The window is only mapped once the image has decoded and everything
	// needed to draw it exists.
	var window *desktop.Window
	manager, err := wallpaper.Start(opts, func() (gpu.Device, wallpaper.EventSource, error) {
		dev, win, err := openDevice()
		if err != nil || win == nil {
			return dev, nil, err
		}
		window = win
		return dev, win, nil
	})
	if err != nil {
		return fatal(err)
	}
	if window != nil {
		window.Show()
	}

	server, err := ipc.Listen(manager, ipc.SocketPath())
	if err != nil {
		// The wallpaper still works without remote control.
		log.Warnf("control socket unavailable: %v", err)
	} else {
		go func() {
			log.Infof("Starting socket server")
			if err := server.Serve(); err != nil {
				log.Errorf("socket server: %v", err)
			}
		}()
	}

	runErr := manager.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("socket shutdown: %v", err)
		}
		cancel()
	}

	closeErr := manager.Close()
	if runErr != nil {
		return fatal(runErr)
	}
	if closeErr != nil {
		log.Warnf("teardown: %v", closeErr)
	}

	log.Infof("livepaper exited")
	return ExitOK
}

func optionsFromConfig(path string) (wallpaper.Options, error) {
	mode, err := types.ParseScalingMode(viper.GetString("scale_mode"))
	if err != nil {
		return wallpaper.Options{}, err
	}
	interval := viper.GetInt("interval")
	if interval < 0 {
		return wallpaper.Options{}, fmt.Errorf("interval must not be negative, got %d", interval)
	}
	return wallpaper.Options{
		Path:         path,
		Interval:     time.Duration(interval) * time.Millisecond,
		ScaleMode:    mode,
		PollInterval: time.Duration(viper.GetInt("poll_interval")) * time.Millisecond,
	}, nil
}

// openDevice creates the device for the configured backend. The window
// is nil for devices without one.
func openDevice() (gpu.Device, *desktop.Window, error) {
	backend, err := types.ParseBackend(viper.GetString("backend"))
	if err != nil {
		return nil, nil, err
	}

	switch backend {
	case types.BackendSoftware:
		dev, err := software.New(viper.GetInt("width"), viper.GetInt("height"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create software device: %w", err)
		}
		return dev, nil, nil

	default:
		win, err := desktop.Open(title)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create window: %w", err)
		}
		dev, err := glrender.New(win)
		if err != nil {
			win.Close()
			return nil, nil, fmt.Errorf("failed to create device: %w", err)
		}
		return dev, win, nil
	}
}

// fatal logs err, shows it to the user when notifications are enabled and
// returns ExitFatal.
func fatal(err error) int {
	log.Errorf("%v", err)
	if viper.GetBool("notify") {
		if nerr := dialog.Notify(title, err.Error()); nerr != nil {
			log.Debugf("could not show error dialog: %v", nerr)
		}
	}
	return ExitFatal
}

func setupRotatingLogger() {
	home := os.Getenv("HOME")
	logDir := filepath.Join(home, ".local", "share", "livepaper")
	logPath := filepath.Join(logDir, "livepaper.log")

	writer, err := rotatelogs.New(
		logPath+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationSize(10*1024*1024),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("failed to configure log rotation: %v", err)
	}

	log.SetOutput(writer)
	if !viper.GetBool("debug") {
		log.SetLevel(log.InfoLevel)
	}
}

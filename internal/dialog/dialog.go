// Package dialog asks the user for an image file and shows fatal error
// messages, using whichever of zenity or kdialog is installed.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/execabs"
)

var (
	ErrCancelled = errors.New("file selection cancelled")
	ErrNoHelper  = errors.New("neither zenity nor kdialog is installed")
)

// Patterns offered by the file chooser.
var Patterns = []string{"*.gif", "*.png", "*.jpg", "*.jpeg", "*.webp", "*.bmp", "*.tif", "*.tiff"}

type helper struct {
	name   string
	choose func(title string) []string
	notify func(title, message string) []string
}

var helpers = []helper{
	{
		name: "zenity",
		choose: func(title string) []string {
			return []string{
				"--file-selection",
				"--title=" + title,
				"--file-filter=Images | " + strings.Join(Patterns, " "),
				"--file-filter=GIF Files | *.gif",
			}
		},
		notify: func(title, message string) []string {
			return []string{"--error", "--title=" + title, "--text=" + message}
		},
	},
	{
		name: "kdialog",
		choose: func(title string) []string {
			return []string{"--title", title, "--getopenfilename", ".", "Images (" + strings.Join(Patterns, " ") + ")"}
		},
		notify: func(title, message string) []string {
			return []string{"--title", title, "--error", message}
		},
	},
}

func lookup() (helper, string, error) {
	for _, h := range helpers {
		path, err := execabs.LookPath(h.name)
		if err == nil {
			return h, path, nil
		}
	}
	return helper{}, "", ErrNoHelper
}

// Choose shows a file chooser and returns the selected path. Dismissing
// the chooser returns ErrCancelled.
func Choose(ctx context.Context, title string) (string, error) {
	h, path, err := lookup()
	if err != nil {
		return "", err
	}
	log.Debugf("asking for a file with %s", h.name)

	out, err := execabs.CommandContext(ctx, path, h.choose(title)...).Output()
	if err != nil {
		var exitErr *execabs.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("%s: %w", h.name, err)
	}

	selected := strings.TrimSpace(string(out))
	if selected == "" {
		return "", ErrCancelled
	}
	return selected, nil
}

// Notify shows message in a modal error box and waits for it to be
// dismissed.
func Notify(title, message string) error {
	h, path, err := lookup()
	if err != nil {
		return err
	}
	err = execabs.Command(path, h.notify(title, message)...).Run()
	var exitErr *execabs.ExitError
	if errors.As(err, &exitErr) {
		// Closing the box instead of pressing OK is not a failure.
		return nil
	}
	return err
}

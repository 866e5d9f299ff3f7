package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/cli/cmd/utils"
	"github.com/matjam/livepaper/internal/gpu/software"
	"github.com/matjam/livepaper/internal/types"
	"github.com/matjam/livepaper/internal/wallpaper"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type snapshotOptions struct {
	output    string
	frame     int
	width     int
	height    int
	scaleMode string
}

// snapshot renders one frame of the image at path with the software
// device and writes it to opts.output as a PNG.
func snapshot(path string, opts snapshotOptions) (err error) {
	mode, err := types.ParseScalingMode(opts.scaleMode)
	if err != nil {
		return err
	}
	dev, err := software.New(opts.width, opts.height)
	if err != nil {
		return err
	}
	manager, err := wallpaper.Load(dev, wallpaper.Options{Path: path, ScaleMode: mode})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, manager.Close()) }()

	if err := manager.RenderFrame(opts.frame); err != nil {
		return err
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := dev.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}
	return f.Close()
}

func NewSnapshotCmd() *cobra.Command {
	opts := snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot [image]",
		Short: "Render one frame to a PNG file",
		Long: `Renders a frame of the image exactly as the wallpaper would draw it,
without opening a window, and saves the result as a PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := snapshot(utils.CanonicalPath(args[0]), opts); err != nil {
				return err
			}
			log.Infof("wrote %s", opts.output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "snapshot.png", "PNG file to write")
	cmd.Flags().IntVar(&opts.frame, "frame", 0, "Frame index, taken modulo the frame count")
	cmd.Flags().IntVar(&opts.width, "width", 1920, "Screen width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 1080, "Screen height in pixels")
	cmd.Flags().StringVar(&opts.scaleMode, "scale-mode", "stretched", "How the image is fitted to the screen")
	return cmd
}

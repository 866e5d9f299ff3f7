package cmd

import (
	"github.com/matjam/livepaper/internal/cli/cmd/utils"
	"github.com/matjam/livepaper/internal/imageseq"
	"github.com/matjam/livepaper/internal/types"
	"github.com/spf13/cobra"
)

type frameInfo struct {
	Index   int   `json:"index"`
	Width   int   `json:"width"`
	Height  int   `json:"height"`
	DelayMS int64 `json:"delay_ms"`
}

type imageInfo struct {
	Path   string               `json:"path"`
	State  types.AnimationState `json:"state"`
	Frames []frameInfo          `json:"frames"`
}

func describe(path string, frames []imageseq.Frame) imageInfo {
	info := imageInfo{Path: path, State: types.StateStatic}
	if len(frames) > 1 {
		info.State = types.StatePlaying
	}
	for i, f := range frames {
		info.Frames = append(info.Frames, frameInfo{
			Index:   i,
			Width:   f.Width,
			Height:  f.Height,
			DelayMS: f.Delay.Milliseconds(),
		})
	}
	return info
}

func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [image]",
		Short: "Describe the frames of an image",
		Long:  `Decodes an image the way the wallpaper would and prints its frames.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := utils.CanonicalPath(args[0])
			frames, err := imageseq.Decode(path)
			if err != nil {
				return err
			}
			utils.PrintJSONColored(describe(path, frames))
			return nil
		},
	}
}

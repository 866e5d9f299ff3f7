package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/ipc"
	"github.com/spf13/cobra"
)

func NewRedrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redraw",
		Short: "Redraw the current frame",
		Long:  `Asks the running livepaper to draw and present its current frame again.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := ipc.SendRedraw(); err != nil {
				log.Errorf("Error sending command: %v", err)
			}
		},
	}
}

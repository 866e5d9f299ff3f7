package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/ipc"
	"github.com/spf13/cobra"
)

func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running livepaper",
		Run: func(cmd *cobra.Command, args []string) {
			if err := ipc.SendStop(); err != nil {
				log.Errorf("Error sending command: %v", err)
				return
			}
			log.Info("livepaper stopping")
		},
	}
}

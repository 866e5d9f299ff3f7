package wallpaper

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/livepaper/internal/ipc"
)

// EnqueueCommand queues cmd for the render loop. It never blocks; a full
// queue returns ipc.ErrBusy.
func (m *Manager) EnqueueCommand(cmd ipc.Command) error {
	select {
	case m.cmds <- cmd:
		return nil
	default:
		return ipc.ErrBusy
	}
}

// Stop asks the render loop to return.
func (m *Manager) Stop() {
	if err := m.EnqueueCommand(ipc.Command{Type: ipc.CommandStop}); err != nil {
		log.Warnf("stop not queued: %v", err)
	}
}

func (m *Manager) handleCommand(cmd ipc.Command) (stop, redraw bool) {
	switch cmd.Type {
	case ipc.CommandStop:
		log.Info("received stop command")
		return true, false
	case ipc.CommandRedraw:
		log.Debug("received redraw command")
		return false, true
	default:
		log.Errorf("unknown command: %v", cmd.Type)
		return false, false
	}
}

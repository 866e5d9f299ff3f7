package ipc

import (
	"os"
	"path/filepath"
)

// SocketPath returns the control socket path under $XDG_RUNTIME_DIR, or
// the temporary directory when that is unset.
func SocketPath() string {
	sockDir := os.Getenv("XDG_RUNTIME_DIR")
	if sockDir == "" {
		sockDir = os.TempDir()
	}
	return filepath.Join(sockDir, "livepaper.sock")
}

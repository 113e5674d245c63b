package events

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSocketPath returns the per-user unix datagram socket path.
func DefaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir != "" {
		return filepath.Join(runtimeDir, "pane-conductor", "events.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("pane-conductor-%d", os.Getuid()), "events.sock")
}

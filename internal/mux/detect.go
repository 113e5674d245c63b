package mux

import (
	"fmt"
	"os"
	"os/exec"
)

// Detect auto-detects the active terminal multiplexer.
// It checks environment variables first, then falls back to checking
// if the multiplexer binary exists and has a running server.
func Detect() (SessionController, error) {
	// Check environment variables first.
	if os.Getenv("TMUX") != "" {
		return NewTmux(), nil
	}
	if os.Getenv("ZELLIJ") != "" {
		return nil, fmt.Errorf("zellij support is not yet implemented")
	}

	// Fall back to checking for a running tmux server.
	if tmuxPath, err := exec.LookPath("tmux"); err == nil && tmuxPath != "" {
		cmd := exec.Command("tmux", "list-sessions")
		if err := cmd.Run(); err == nil {
			return NewTmux(), nil
		}
	}

	return nil, fmt.Errorf("no supported terminal multiplexer detected (set $TMUX or install tmux)")
}

// FromName creates a SessionController by name.
func FromName(name string) (SessionController, error) {
	switch name {
	case "tmux":
		return NewTmux(), nil
	case "zellij":
		return nil, fmt.Errorf("zellij support is not yet implemented")
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}

// Package sockpath provides the default Unix socket path for the bridged daemon.
// bridged and bridgectl both use this to agree on the default.
package sockpath

import (
	"os"
	"path/filepath"
)

// DefaultSocketPath returns the default path for the bridged control socket.
// It prefers $XDG_RUNTIME_DIR/nativebridge/bridged.sock and falls back to
// ~/.config/nativebridge/bridged.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "nativebridge", "bridged.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nativebridge", "bridged.sock")
}

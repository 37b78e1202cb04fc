package state

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveDefaultPath returns the default store location for driver under
// the XDG state directory.
func ResolveDefaultPath(driver string) string {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			base = filepath.Join(home, ".local", "state")
		}
	}
	if base == "" {
		if dir, err := os.UserCacheDir(); err == nil && strings.TrimSpace(dir) != "" {
			base = dir
		}
	}
	if base == "" {
		base = "."
	}
	name := "state.db"
	if driver == DriverSQLite {
		name = "state.sqlite"
	}
	return filepath.Join(base, "clihub", name)
}

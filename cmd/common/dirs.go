package common

import (
	"os"
	"path/filepath"
)

// DataDir returns the directory holding all persisted jukebox state.
// JUKEBOX_HOME wins, then $XDG_DATA_HOME/jukebox, then ~/.jukebox.
func DataDir() string {
	if dir := os.Getenv("JUKEBOX_HOME"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "jukebox")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jukebox")
}

// LogPath returns the path of the append-only jukebox log file.
func LogPath() string {
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "jukebox.log")
}

package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// SetupLogging configures the default slog logger. Long-running commands pass
// toFile to also append to LogPath, since their stderr is usually a TUI.
func SetupLogging(verbose bool, toFile bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if toFile {
		if f := openLogFile(); f != nil {
			w = f
			if verbose {
				w = io.MultiWriter(os.Stderr, f)
			}
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func openLogFile() *os.File {
	logPath := LogPath()
	if logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}

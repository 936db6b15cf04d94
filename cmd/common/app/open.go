package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/store"
)

// Open builds an App over the on-disk data directory. An empty catalogDir
// selects the embedded catalog.
func Open(catalogDir string, audio jukebox.Audio) (*App, error) {
	dir := common.DataDir()
	if dir == "" {
		return nil, fmt.Errorf("could not determine data directory, set JUKEBOX_HOME")
	}
	s, err := store.NewDir(dir)
	if err != nil {
		return nil, err
	}

	opts := Options{Store: s, Audio: audio}
	if catalogDir != "" {
		c, err := catalog.LoadDir(catalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog from %s: %w", catalogDir, err)
		}
		opts.Catalog = c
	}
	return New(opts)
}

// externalKeys are the documents other jukebox processes edit that a running
// player should pick up.
var externalKeys = map[string]bool{
	store.KeyFavorites:     true,
	store.KeyUserPlaylists: true,
}

type watcher interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

// watchStore reloads the library when another process changes favorites or
// playlists. Stores that cannot be watched are ignored.
func (a *App) watchStore(ctx context.Context) {
	w, ok := a.Store.(watcher)
	if !ok {
		return
	}
	err := w.Watch(ctx, func(key string) {
		if !externalKeys[key] {
			return
		}
		slog.Debug("store changed, reloading library", "key", key)
		a.Library.Reload()
		if err := a.refreshOrReset(); err != nil {
			slog.Warn("failed to refresh after store change", "err", err)
		}
	})
	if err != nil {
		slog.Warn("store watch stopped", "err", err)
	}
}

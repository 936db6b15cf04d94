package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/gigurra/jukebox/cmd/common/backupfile"
)

// Export writes favorites, user playlists and settings to w.
func (a *App) Export(ctx context.Context, w io.Writer, opts backupfile.Options) error {
	data := backupfile.Data{
		Favorites:     a.Library.Favorites(),
		UserPlaylists: a.Library.Playlists(),
		Settings:      a.Jukebox.Settings(),
	}
	if opts.ModTime.IsZero() {
		opts.ModTime = a.now()
	}
	if err := backupfile.Write(ctx, w, data, opts); err != nil {
		return err
	}
	a.toast("User data exported!")
	return nil
}

// Import applies every well-formed field of a backup independently.
func (a *App) Import(ctx context.Context, r io.Reader, passphrase string) error {
	imported, err := backupfile.Read(ctx, r, passphrase)
	if err != nil {
		slog.Error("failed to import data", "err", err)
		a.toast("Error: Invalid backup file.")
		return err
	}

	if imported.Favorites != nil {
		a.Library.ReplaceFavorites(imported.Favorites)
	}
	if imported.Playlists != nil {
		a.Library.ReplacePlaylists(imported.Playlists)
	}
	if imported.Settings != nil {
		a.Jukebox.UpdateSettings(*imported.Settings)
	}
	a.toast("Data imported successfully!")
	return a.refreshOrReset()
}

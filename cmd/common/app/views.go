package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/samber/lo"
)

// DefaultView is the first static tab, or favorites for an empty catalog.
func (a *App) DefaultView() string {
	for _, c := range a.Catalog.Categories() {
		if len(c.Playlists) > 0 {
			return catalog.StaticViewID(c.Name, c.Playlists[0].Name)
		}
	}
	return catalog.ViewFavorites
}

// Views lists built-in views, static tabs and user playlists.
func (a *App) Views() []catalog.ViewInfo {
	playlists := lo.Map(a.Library.Playlists(), func(p library.Playlist, _ int) catalog.ViewInfo {
		return catalog.ViewInfo{ID: p.ID, Name: p.Name, Kind: "playlist"}
	})
	return a.Resolver.Views(playlists)
}

// FindView resolves a view by id or case-insensitive name.
func (a *App) FindView(ref string) (string, error) {
	views := a.Views()
	if v, ok := lo.Find(views, func(v catalog.ViewInfo) bool { return v.ID == ref }); ok {
		return v.ID, nil
	}
	if v, ok := lo.Find(views, func(v catalog.ViewInfo) bool { return strings.EqualFold(v.Name, ref) }); ok {
		return v.ID, nil
	}
	return "", fmt.Errorf("%w: %s", catalog.ErrUnknownView, ref)
}

// ViewName is the display name of view, resolving user playlist ids.
func (a *App) ViewName(view string) string {
	if p, ok := a.Library.Playlist(view); ok {
		return p.Name
	}
	return catalog.ViewName(view)
}

// Query returns the active view, window, filter and sort.
func (a *App) Query() catalog.Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// SelectView activates view with its initial sort. Shuffle is turned off
// unless the view keeps it.
func (a *App) SelectView(view string) error {
	if _, err := a.Resolver.Source(view, a.Query().Window); err != nil {
		return err
	}
	a.mu.Lock()
	a.query.View = view
	a.query.Sort = catalog.InitialSort(view)
	a.mu.Unlock()

	if !catalog.KeepsShuffle(view) {
		a.Jukebox.SetShuffle(false)
	}
	return a.Refresh()
}

// SetSort changes the sort mode and turns shuffle off.
func (a *App) SetSort(mode catalog.SortMode) error {
	a.mu.Lock()
	a.query.Sort = mode
	a.mu.Unlock()

	a.Jukebox.SetShuffle(false)
	return a.Refresh()
}

func (a *App) SetFilter(f catalog.Filter) error {
	a.mu.Lock()
	a.query.Filter = f
	a.mu.Unlock()
	return a.Refresh()
}

// SetWindow changes the time window of the Highest Rated view.
func (a *App) SetWindow(w social.Window) error {
	a.mu.Lock()
	a.query.Window = w
	a.mu.Unlock()
	return a.Refresh()
}

// Playlist resolves the active query.
func (a *App) Playlist() ([]catalog.Song, error) {
	return a.Resolver.Playlist(a.Query())
}

// Refresh recomputes the active playlist and hands it to the controller.
func (a *App) Refresh() error {
	songs, err := a.Playlist()
	if err != nil {
		return err
	}
	a.Jukebox.SetPlaylist(songs)
	return nil
}

// refreshOrReset refreshes, falling back to the default view when the active
// one no longer exists.
func (a *App) refreshOrReset() error {
	err := a.Refresh()
	if errors.Is(err, catalog.ErrUnknownView) {
		return a.SelectView(a.DefaultView())
	}
	return err
}

// PlayView plays every song of the active playlist from the top.
func (a *App) PlayView() error {
	songs, err := a.Playlist()
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return catalog.ErrNoSongs
	}
	a.Jukebox.PlayAll(songs)
	return nil
}

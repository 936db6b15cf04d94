package app

import (
	"fmt"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/social"
)

const (
	blingToast = "✨ New Theme Unlocked: 𝔅ling! ✨"
	youUser    = "You"
)

// ToggleFavorite flips the favorite flag of url and reports the new state.
func (a *App) ToggleFavorite(url string) bool {
	added := a.Library.ToggleFavorite(url)
	if added {
		a.Events.Log(social.EventSaveFavorite, url)
		a.toast("Added to Favorites")
	} else {
		a.toast("Removed from Favorites")
	}
	a.refreshIf(catalog.ViewFavorites)
	return added
}

// AddFavorites favorites every url and returns how many were new.
func (a *App) AddFavorites(urls []string) int {
	added := a.Library.AddFavorites(urls)
	for _, u := range added {
		a.Events.Log(social.EventSaveFavorite, u)
	}
	switch n := len(added); {
	case n == 1:
		a.toast("1 song added to Favorites")
	case n > 1:
		a.toast(fmt.Sprintf("%d songs added to Favorites", n))
	}
	a.refreshIf(catalog.ViewFavorites)
	return len(added)
}

// Vote toggles the listener's vote on url.
func (a *App) Vote(url string, dir social.Direction) social.VoteData {
	v := a.Votes.Toggle(url, dir)
	a.refreshIf(catalog.ViewHighestRated)
	return v
}

// AddComment posts text on url as the local listener, optionally pinned to
// a position in the song.
func (a *App) AddComment(url, text string, at *float64) (social.Comment, error) {
	return a.Comments.Add(url, social.Comment{User: youUser, Text: text, SongTimestamp: at})
}

// ReportComment hides a comment.
func (a *App) ReportComment(id string) {
	a.Comments.Report(id)
	a.toast("Comment reported and hidden.")
}

// MarkMoment records a crowd marker and reports whether it was kept.
func (a *App) MarkMoment(url string, t float64) bool {
	return a.Markers.Add(url, t)
}

// ResetPlayCounts clears every play count.
func (a *App) ResetPlayCounts() {
	a.Library.ResetPlayCounts()
	a.toast("All song play counts have been reset.")
	a.refreshIf(catalog.ViewTopPlayed)
}

// Spin counts record spins and announces the bling theme when unlocked.
func (a *App) Spin(n int) int {
	count, unlocked := a.Library.AddSpins(n)
	if unlocked {
		a.toast(blingToast)
	}
	return count
}

// CreatePlaylist creates a user playlist from urls.
func (a *App) CreatePlaylist(name, description string, urls []string) (library.Playlist, error) {
	p, err := a.Library.CreatePlaylist(name, description, urls)
	if err != nil {
		return library.Playlist{}, err
	}
	for _, u := range p.SongURLs {
		a.Events.Log(social.EventSavePlaylist, u)
	}
	a.toast(fmt.Sprintf("Playlist \"%s\" created", p.Name))
	return p, nil
}

// AddToPlaylist appends the urls missing from playlist id.
func (a *App) AddToPlaylist(id string, urls []string) ([]string, error) {
	p, ok := a.Library.Playlist(id)
	if !ok {
		return nil, library.ErrPlaylistNotFound
	}
	added, err := a.Library.AddToPlaylist(id, urls)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		a.toast(fmt.Sprintf("All selected songs already in \"%s\"", p.Name))
		return nil, nil
	}
	for _, u := range added {
		a.Events.Log(social.EventSavePlaylist, u)
	}
	a.toast(fmt.Sprintf("%d songs added to \"%s\"", len(added), p.Name))
	a.refreshIf(id)
	return added, nil
}

// RemoveFromPlaylist drops url from playlist id.
func (a *App) RemoveFromPlaylist(id, url string) error {
	p, ok := a.Library.Playlist(id)
	if !ok {
		return library.ErrPlaylistNotFound
	}
	if err := a.Library.RemoveFromPlaylist(id, url); err != nil {
		return err
	}
	a.toast(fmt.Sprintf("Song removed from \"%s\"", p.Name))
	a.refreshIf(id)
	return nil
}

// UpdatePlaylist renames and re-describes playlist id.
func (a *App) UpdatePlaylist(id, name, description string) error {
	if err := a.Library.UpdatePlaylistDetails(id, name, description); err != nil {
		return err
	}
	p, _ := a.Library.Playlist(id)
	a.toast(fmt.Sprintf("Playlist \"%s\" updated", p.Name))
	return nil
}

// DeletePlaylist removes playlist id, falling back to the default view when
// it was active.
func (a *App) DeletePlaylist(id string) error {
	p, ok := a.Library.Playlist(id)
	if !ok {
		return library.ErrPlaylistNotFound
	}
	if err := a.Library.DeletePlaylist(id); err != nil {
		return err
	}
	a.toast(fmt.Sprintf("Playlist \"%s\" deleted", p.Name))
	if a.Query().View == id {
		return a.SelectView(a.DefaultView())
	}
	return nil
}

// refreshIf refreshes the controller playlist when view is active.
func (a *App) refreshIf(view string) {
	if a.Query().View != view {
		return
	}
	if err := a.Refresh(); err != nil {
		a.toast(err.Error())
	}
}

package library

import (
	"errors"
	"slices"
	"strings"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrEmptyName        = errors.New("playlist name must not be empty")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// PlaylistIDPrefix marks user playlist ids so they can be told apart from
// built-in view ids.
const PlaylistIDPrefix = "user-playlist-"

// Playlist is a user-defined ordered list of song urls.
type Playlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SongURLs    []string `json:"songUrls"`
	Description string   `json:"description,omitempty"`
}

func clonePlaylist(p Playlist) Playlist {
	p.SongURLs = slices.Clone(p.SongURLs)
	return p
}

func (l *Library) Playlists() []Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.playlists, func(p Playlist, _ int) Playlist { return clonePlaylist(p) })
}

func (l *Library) Playlist(id string) (Playlist, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := lo.Find(l.playlists, func(p Playlist) bool { return p.ID == id })
	return clonePlaylist(p), ok
}

// FindPlaylist resolves a playlist by id, or by case-insensitive name.
func (l *Library) FindPlaylist(ref string) (Playlist, bool) {
	if p, ok := l.Playlist(ref); ok {
		return p, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := lo.Find(l.playlists, func(p Playlist) bool { return strings.EqualFold(p.Name, ref) })
	return clonePlaylist(p), ok
}

// CreatePlaylist stores a new playlist holding urls (deduplicated, in order).
func (l *Library) CreatePlaylist(name, description string, urls []string) (Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, ErrEmptyName
	}
	p := Playlist{
		ID:          PlaylistIDPrefix + uuid.NewString(),
		Name:        name,
		SongURLs:    lo.Uniq(urls),
		Description: strings.TrimSpace(description),
	}
	l.mutatePlaylists(func(all []Playlist) []Playlist { return append(all, p) })
	return clonePlaylist(p), nil
}

// AddToPlaylist appends the urls not already present and returns them.
func (l *Library) AddToPlaylist(id string, urls []string) ([]string, error) {
	var added []string
	err := l.updatePlaylist(id, func(p *Playlist) error {
		for _, u := range lo.Uniq(urls) {
			if !slices.Contains(p.SongURLs, u) {
				p.SongURLs = append(p.SongURLs, u)
				added = append(added, u)
			}
		}
		return nil
	})
	return added, err
}

func (l *Library) RemoveFromPlaylist(id, url string) error {
	return l.updatePlaylist(id, func(p *Playlist) error {
		p.SongURLs = lo.Without(p.SongURLs, url)
		return nil
	})
}

// ReorderPlaylistSongs moves the song at from to position to.
func (l *Library) ReorderPlaylistSongs(id string, from, to int) error {
	return l.updatePlaylist(id, func(p *Playlist) error {
		moved, err := move(p.SongURLs, from, to)
		if err != nil {
			return err
		}
		p.SongURLs = moved
		return nil
	})
}

// UpdatePlaylistDetails renames and re-describes a playlist.
func (l *Library) UpdatePlaylistDetails(id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return l.updatePlaylist(id, func(p *Playlist) error {
		p.Name = name
		p.Description = strings.TrimSpace(description)
		return nil
	})
}

func (l *Library) DeletePlaylist(id string) error {
	l.mu.Lock()
	idx := slices.IndexFunc(l.playlists, func(p Playlist) bool { return p.ID == id })
	if idx < 0 {
		l.mu.Unlock()
		return ErrPlaylistNotFound
	}
	l.playlists = slices.Delete(slices.Clone(l.playlists), idx, idx+1)
	all := l.playlists
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyUserPlaylists, all)
	return nil
}

// ReorderPlaylists moves the playlist at from to position to.
func (l *Library) ReorderPlaylists(from, to int) error {
	l.mu.Lock()
	moved, err := move(l.playlists, from, to)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.playlists = moved
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyUserPlaylists, moved)
	return nil
}

// ReplacePlaylists swaps in a whole new playlist set.
func (l *Library) ReplacePlaylists(all []Playlist) {
	l.mutatePlaylists(func([]Playlist) []Playlist {
		return lo.Map(all, func(p Playlist, _ int) Playlist {
			p = clonePlaylist(p)
			if p.SongURLs == nil {
				p.SongURLs = []string{}
			}
			return p
		})
	})
}

func (l *Library) mutatePlaylists(f func([]Playlist) []Playlist) {
	l.mu.Lock()
	l.playlists = f(slices.Clone(l.playlists))
	all := l.playlists
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyUserPlaylists, all)
}

func (l *Library) updatePlaylist(id string, f func(*Playlist) error) error {
	l.mu.Lock()
	idx := slices.IndexFunc(l.playlists, func(p Playlist) bool { return p.ID == id })
	if idx < 0 {
		l.mu.Unlock()
		return ErrPlaylistNotFound
	}
	p := clonePlaylist(l.playlists[idx])
	if err := f(&p); err != nil {
		l.mu.Unlock()
		return err
	}
	all := slices.Clone(l.playlists)
	all[idx] = p
	l.playlists = all
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyUserPlaylists, all)
	return nil
}

// move returns a copy of s with the element at from relocated to to.
func move[T any](s []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) {
		return nil, ErrIndexOutOfRange
	}
	out := slices.Clone(s)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item), nil
}

// PlaylistURLs returns the ordered song urls of a playlist.
func (l *Library) PlaylistURLs(id string) ([]string, bool) {
	p, ok := l.Playlist(id)
	return p.SongURLs, ok
}

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/samber/lo"
)

// Built-in dynamic view ids. Static tabs use "<category>/<playlist>" and user
// playlists use their own id.
const (
	ViewFavorites      = "favorites"
	ViewRecentlyPlayed = "recently-played"
	ViewTopPlayed      = "top-played"
	ViewHighestRated   = "highest-rated"
	ViewMostPopular    = "most-popular"
	ViewNowPlaying     = "now-playing"

	topPlayedLimit  = 25
	minRatedVotes   = 3
	minPopularScore = 0.1
	staticSeparator = "/"
)

var ErrUnknownView = errors.New("unknown view")

var builtinNames = map[string]string{
	ViewFavorites:      "Favorites",
	ViewRecentlyPlayed: "Recently Played",
	ViewTopPlayed:      "Top 25 Played",
	ViewHighestRated:   "Highest Rated",
	ViewMostPopular:    "Most Popular",
	ViewNowPlaying:     "Now Playing",
}

var builtinOrder = []string{
	ViewFavorites, ViewRecentlyPlayed, ViewTopPlayed, ViewHighestRated, ViewMostPopular, ViewNowPlaying,
}

// ViewInfo describes a selectable view.
type ViewInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"` // builtin, static or playlist
	ReadOnly bool   `json:"readOnly"`
}

// ReadOnly reports whether songs in the view derive from other data and so
// cannot be reordered or removed directly.
func ReadOnly(view string) bool {
	switch view {
	case ViewNowPlaying, ViewTopPlayed, ViewRecentlyPlayed, ViewHighestRated, ViewMostPopular:
		return true
	}
	return false
}

// InitialSort is the sort mode a view starts with when it is activated.
func InitialSort(view string) SortMode {
	switch view {
	case ViewHighestRated:
		return SortRatingDesc
	case ViewTopPlayed:
		return SortPlayCountDesc
	default:
		return SortDefault
	}
}

// KeepsShuffle reports whether switching to view leaves shuffle enabled.
func KeepsShuffle(view string) bool {
	return view == ViewTopPlayed || view == ViewRecentlyPlayed
}

// StaticViewID builds the id of a static playlist tab.
func StaticViewID(category, playlist string) string {
	return category + staticSeparator + playlist
}

// Library is the personal data a Resolver reads.
type Library interface {
	Favorites() []string
	RecentlyPlayed() []string
	TopPlayed(n int) []string
	PlayCounts() map[string]int
	Durations() map[string]float64
	PlaylistURLs(id string) ([]string, bool)
}

// Votes exposes every song's vote timestamps.
type Votes interface {
	All() map[string]social.VoteData
}

// Scorer produces popularity scores.
type Scorer interface {
	Scores() map[string]float64
}

// Listeners exposes simulated live listener counts.
type Listeners interface {
	Counts() map[string]int
}

// Resolver turns a view id into its source playlist.
type Resolver struct {
	Catalog   *Catalog
	Library   Library
	Votes     Votes
	Scorer    Scorer
	Listeners Listeners
	Now       func() time.Time
}

// Query selects a view and the filter and sort applied downstream.
type Query struct {
	View   string
	Window social.Window
	Filter Filter
	Sort   SortMode
}

// Views lists every selectable view: built-ins, static tabs, then user playlists.
func (r *Resolver) Views(playlists []ViewInfo) []ViewInfo {
	out := lo.Map(builtinOrder, func(id string, _ int) ViewInfo {
		return ViewInfo{ID: id, Name: builtinNames[id], Kind: "builtin", ReadOnly: ReadOnly(id)}
	})
	for _, cat := range r.Catalog.Categories() {
		for _, pl := range cat.Playlists {
			id := StaticViewID(cat.Name, pl.Name)
			out = append(out, ViewInfo{ID: id, Name: id, Kind: "static"})
		}
	}
	return append(out, playlists...)
}

// ViewName is the display name of a built-in or static view id.
func ViewName(view string) string {
	if name, ok := builtinNames[view]; ok {
		return name
	}
	return view
}

// Source resolves the unfiltered, unsorted song list of a view with its view
// fields joined.
func (r *Resolver) Source(view string, window social.Window) ([]Song, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var songs []Song
	switch view {
	case ViewFavorites:
		favs := lo.SliceToMap(r.Library.Favorites(), func(u string) (string, bool) { return u, true })
		songs = lo.Filter(r.Catalog.All(), func(s Song, _ int) bool { return favs[s.URL] })

	case ViewRecentlyPlayed:
		songs = r.Catalog.Songs(r.Library.RecentlyPlayed())

	case ViewTopPlayed:
		songs = r.Catalog.Songs(r.Library.TopPlayed(topPlayedLimit))

	case ViewHighestRated:
		since := window.Since(now())
		votes := r.Votes.All()
		songs = lo.FilterMap(r.Catalog.All(), func(s Song, _ int) (Song, bool) {
			s.Score, s.VoteCount = 0, 0
			if v, ok := votes[s.URL]; ok {
				score, count := v.Tally(since)
				s.Score, s.VoteCount = float64(score), count
			}
			return s, s.VoteCount >= minRatedVotes
		})
		sort.SliceStable(songs, func(i, j int) bool { return songs[i].Score > songs[j].Score })

	case ViewMostPopular:
		scores := r.Scorer.Scores()
		songs = lo.FilterMap(r.Catalog.All(), func(s Song, _ int) (Song, bool) {
			s.Score = scores[s.URL]
			return s, s.Score > minPopularScore
		})
		sort.SliceStable(songs, func(i, j int) bool { return songs[i].Score > songs[j].Score })

	case ViewNowPlaying:
		counts := r.Listeners.Counts()
		songs = lo.FilterMap(r.Catalog.All(), func(s Song, _ int) (Song, bool) {
			s.Listeners = counts[s.URL]
			return s, s.Listeners > 0
		})
		sort.SliceStable(songs, func(i, j int) bool { return songs[i].Listeners > songs[j].Listeners })

	default:
		var err error
		songs, err = r.fromPlaylistOrStatic(view)
		if err != nil {
			return nil, err
		}
	}

	return r.join(songs), nil
}

func (r *Resolver) fromPlaylistOrStatic(view string) ([]Song, error) {
	if urls, ok := r.Library.PlaylistURLs(view); ok {
		return r.Catalog.Songs(urls), nil
	}
	category, playlist, ok := strings.Cut(view, staticSeparator)
	if ok {
		for _, cat := range r.Catalog.Categories() {
			if cat.Name != category {
				continue
			}
			for _, pl := range cat.Playlists {
				if pl.Name == playlist {
					return append([]Song(nil), pl.Songs...), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

// Join fills in favorite flag, cached duration and play count.
func (r *Resolver) Join(songs []Song) []Song {
	return r.join(songs)
}

func (r *Resolver) join(songs []Song) []Song {
	favs := lo.SliceToMap(r.Library.Favorites(), func(u string) (string, bool) { return u, true })
	durations := r.Library.Durations()
	counts := r.Library.PlayCounts()
	return lo.Map(songs, func(s Song, _ int) Song {
		s.IsFavorite = favs[s.URL]
		s.Duration = durations[s.URL]
		s.PlayCount = counts[s.URL]
		return s
	})
}

// Playlist resolves the source playlist of q.View and applies the filter and
// sort mode.
func (r *Resolver) Playlist(q Query) ([]Song, error) {
	songs, err := r.Source(q.View, q.Window)
	if err != nil {
		return nil, err
	}
	songs = q.Filter.Apply(songs)

	var ratings map[string]int
	if q.Sort == SortRatingDesc {
		ratings = lo.MapValues(r.Votes.All(), func(v social.VoteData, _ string) int {
			score, _ := v.Tally(0)
			return score
		})
	}
	return q.Sort.Apply(songs, ratings), nil
}

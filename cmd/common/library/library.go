// Package library holds the listener's personal data: favorites, play counts,
// history, listening stats, cached durations and user playlists.
//
// Every mutation updates the in-memory copy first and then writes through to
// the store. Write failures are logged and the in-memory copy stays ahead of
// the persisted one until the next successful write.
package library

import (
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

const (
	MaxRecentlyPlayed = 50
	MaxPlayHistory    = 1000
	UnknownDuration   = -1
	blingThreshold    = 100
)

// PlayRecord is one entry of the play history.
type PlayRecord struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// PlaybackStat accumulates listening time and completions for a song.
type PlaybackStat struct {
	TotalTimePlayed float64 `json:"totalTimePlayed"` // seconds
	Completions     int     `json:"completions"`
}

// Unlocks are feature flags earned by using the player.
type Unlocks struct {
	Bling bool `json:"bling"`
}

type Library struct {
	mu    sync.RWMutex
	store store.Store
	now   func() time.Time

	favorites      map[string]bool
	playCounts     map[string]int
	history        []PlayRecord
	recentlyPlayed []string
	stats          map[string]PlaybackStat
	durations      map[string]float64
	playlists      []Playlist
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// New loads all personal data from s.
func New(s store.Store, opts ...Option) *Library {
	l := &Library{store: s, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	l.Reload()
	return l
}

// Reload re-reads everything from the store, discarding in-memory state.
func (l *Library) Reload() {
	favs := store.Load(l.store, store.KeyFavorites, []string{})
	counts := store.Load(l.store, store.KeyPlayCounts, map[string]int{})
	history := store.Load(l.store, store.KeyPlayHistory, []PlayRecord{})
	recent := store.Load(l.store, store.KeyRecentlyPlayed, []string{})
	stats := store.Load(l.store, store.KeyPlaybackStats, map[string]PlaybackStat{})
	durations := store.Load(l.store, store.KeyDurations, map[string]float64{})
	playlists := store.Load(l.store, store.KeyUserPlaylists, []Playlist{})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.favorites = lo.SliceToMap(favs, func(u string) (string, bool) { return u, true })
	l.playCounts = nonNilMap(counts)
	l.history = history
	l.recentlyPlayed = recent
	l.stats = nonNilMap(stats)
	l.durations = nonNilMap(durations)
	l.playlists = lo.Map(playlists, func(p Playlist, _ int) Playlist {
		if p.SongURLs == nil {
			p.SongURLs = []string{}
		}
		return p
	})
}

func nonNilMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}

// IsFavorite reports whether url is in the favorites set.
func (l *Library) IsFavorite(url string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.favorites[url]
}

// Favorites returns the favorite urls in no particular order.
func (l *Library) Favorites() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Keys(l.favorites)
}

// ToggleFavorite flips membership and reports whether url is now a favorite.
func (l *Library) ToggleFavorite(url string) bool {
	l.mu.Lock()
	added := !l.favorites[url]
	if added {
		l.favorites[url] = true
	} else {
		delete(l.favorites, url)
	}
	favs := lo.Keys(l.favorites)
	l.mu.Unlock()

	store.SaveOrLog(l.store, store.KeyFavorites, favs)
	return added
}

// AddFavorites adds every url and returns the ones that were not already favorites.
func (l *Library) AddFavorites(urls []string) []string {
	l.mu.Lock()
	var added []string
	for _, u := range urls {
		if !l.favorites[u] {
			l.favorites[u] = true
			added = append(added, u)
		}
	}
	favs := lo.Keys(l.favorites)
	l.mu.Unlock()

	if len(added) > 0 {
		store.SaveOrLog(l.store, store.KeyFavorites, favs)
	}
	return added
}

// ReplaceFavorites swaps in a whole new favorites set.
func (l *Library) ReplaceFavorites(urls []string) {
	l.mu.Lock()
	l.favorites = lo.SliceToMap(urls, func(u string) (string, bool) { return u, true })
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyFavorites, lo.Uniq(urls))
}

// Duration returns the cached duration for url. The -1 sentinel means a
// previous probe failed.
func (l *Library) Duration(url string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.durations[url]
	return d, ok
}

// Durations returns a copy of the whole duration cache.
func (l *Library) Durations() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Assign(l.durations)
}

// MergeDurations adds probed durations to the cache.
func (l *Library) MergeDurations(d map[string]float64) {
	if len(d) == 0 {
		return
	}
	l.mu.Lock()
	for k, v := range d {
		l.durations[k] = v
	}
	all := lo.Assign(l.durations)
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyDurations, all)
}

// TutorialSeen reports whether the one-time tutorial was dismissed.
func (l *Library) TutorialSeen() bool {
	return store.Load(l.store, store.KeyTutorialSeen, false)
}

func (l *Library) MarkTutorialSeen() {
	store.SaveOrLog(l.store, store.KeyTutorialSeen, true)
}

func (l *Library) Unlocks() Unlocks {
	return store.Load(l.store, store.KeyUnlocks, Unlocks{})
}

func (l *Library) SpinCount() int {
	return store.Load(l.store, store.KeySpinCount, 0)
}

// AddSpins bumps the spin counter and reports whether this crossed the bling
// unlock threshold.
func (l *Library) AddSpins(n int) (count int, unlocked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count = store.Load(l.store, store.KeySpinCount, 0) + n
	store.SaveOrLog(l.store, store.KeySpinCount, count)

	u := store.Load(l.store, store.KeyUnlocks, Unlocks{})
	if !u.Bling && count >= blingThreshold {
		u.Bling = true
		store.SaveOrLog(l.store, store.KeyUnlocks, u)
		return count, true
	}
	return count, false
}

// Package app wires the catalog, personal library, social data and the
// playback controller into one application used by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/durations"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/listeners"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

var ErrNoPendingShare = errors.New("no shared song pending")

// Options configures New. Nil fields get working defaults.
type Options struct {
	Store   store.Store
	Catalog *catalog.Catalog
	Audio   jukebox.Audio
	Prober  *durations.Prober
	Now     func() time.Time
	Rand    *rand.Rand
}

// Shared is a song opened from a deep link, waiting for confirmation.
type Shared struct {
	Song  catalog.Song `json:"song"`
	Start int          `json:"start"`
}

type App struct {
	Store     store.Store
	Catalog   *catalog.Catalog
	Library   *library.Library
	Events    *social.EventLog
	Votes     *social.Votes
	Comments  *social.Comments
	Markers   *social.Markers
	Listeners *listeners.Simulator
	Resolver  *catalog.Resolver
	Jukebox   *jukebox.Jukebox
	Prober    *durations.Prober

	now func() time.Time

	mu     sync.Mutex
	query  catalog.Query
	shared *Shared
}

func New(opts Options) (*App, error) {
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		opts.Catalog = c
	}
	if opts.Prober == nil {
		opts.Prober = durations.NewProber()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := &App{
		Store:     opts.Store,
		Catalog:   opts.Catalog,
		Library:   library.New(opts.Store, library.WithClock(opts.Now)),
		Events:    social.NewEventLog(opts.Store, opts.Now),
		Votes:     social.NewVotes(opts.Store, opts.Now),
		Comments:  social.NewComments(opts.Store, opts.Now),
		Markers:   social.NewMarkers(opts.Store),
		Listeners: listeners.New(rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))),
		Prober:    opts.Prober,
		now:       opts.Now,
	}
	a.Resolver = &catalog.Resolver{
		Catalog:   a.Catalog,
		Library:   a.Library,
		Votes:     a.Votes,
		Scorer:    a.Events,
		Listeners: a.Listeners,
		Now:       opts.Now,
	}
	a.Jukebox = jukebox.New(jukebox.Config{
		Audio:  opts.Audio,
		Store:  opts.Store,
		Stats:  a.Library,
		Events: a.Events,
		Now:    opts.Now,
		Rand:   rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64())),
	})

	view := a.DefaultView()
	a.query = catalog.Query{View: view, Window: social.AllTime, Sort: catalog.InitialSort(view)}
	if err := a.Refresh(); err != nil {
		return nil, err
	}
	return a, nil
}

// Start runs the playback clock and the live listener simulation until ctx
// is done.
func (a *App) Start(ctx context.Context) {
	go a.Jukebox.RunClock(ctx)
	go a.watchStore(ctx)

	go a.Listeners.Run(ctx, a.allURLs(), listeners.UpdateInterval, func() {
		if a.Query().View == catalog.ViewNowPlaying {
			if err := a.Refresh(); err != nil {
				slog.Warn("failed to refresh now playing view", "err", err)
			}
		}
	})
}

// SimulateListeners advances the live listener simulation by one step, for
// one-shot commands that do not Start.
func (a *App) SimulateListeners() {
	a.Listeners.Update(a.allURLs())
}

func (a *App) allURLs() []string {
	return lo.Map(a.Catalog.All(), func(s catalog.Song, _ int) string { return s.URL })
}

// Close flushes listening stats and stops playback.
func (a *App) Close() {
	a.Jukebox.Close()
}

func (a *App) toast(msg string) {
	a.Jukebox.Notify(msg)
}

// Song looks up a catalog song by url with its view fields joined.
func (a *App) Song(url string) (catalog.Song, error) {
	s, ok := a.Catalog.Song(url)
	if !ok {
		return catalog.Song{}, fmt.Errorf("%w: %s", catalog.ErrSongNotFound, url)
	}
	return a.Resolver.Join([]catalog.Song{s})[0], nil
}

// Resolve finds a song by url, exact title or unique title substring.
func (a *App) Resolve(ref string) (catalog.Song, error) {
	s, err := a.Catalog.Resolve(ref)
	if err != nil {
		return catalog.Song{}, err
	}
	return a.Resolver.Join([]catalog.Song{s})[0], nil
}

// ProbeDurations fills in unknown durations of the current view's songs.
func (a *App) ProbeDurations(ctx context.Context) (int, error) {
	q := a.Query()
	songs, err := a.Resolver.Source(q.View, q.Window)
	if err != nil {
		return 0, err
	}
	urls := lo.Map(songs, func(s catalog.Song, _ int) string { return s.URL })
	probed := a.Prober.ProbeMissing(ctx, urls, a.Library)
	if len(probed) > 0 {
		return len(probed), a.Refresh()
	}
	return 0, nil
}

// OpenLink parses a shared deep link and holds the song until confirmed.
func (a *App) OpenLink(raw string) (*Shared, error) {
	target, err := share.Parse(raw)
	if err != nil {
		return nil, err
	}
	song, err := a.Song(target.URL)
	if err != nil {
		return nil, err
	}
	shared := &Shared{Song: song, Start: target.Start}

	a.mu.Lock()
	a.shared = shared
	a.mu.Unlock()
	return shared, nil
}

// PendingShared returns the song awaiting confirmation, if any.
func (a *App) PendingShared() *Shared {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shared
}

// ConfirmShared plays the pending shared song, starting at its offset when
// that lies inside the song.
func (a *App) ConfirmShared() error {
	a.mu.Lock()
	shared := a.shared
	a.shared = nil
	a.mu.Unlock()

	if shared == nil {
		return ErrNoPendingShare
	}
	song := shared.Song
	a.Jukebox.PlaySong(&song, false)
	if shared.Start > 0 {
		d, known := a.Library.Duration(song.URL)
		if !known || d <= 0 || float64(shared.Start) < d {
			a.Jukebox.Seek(float64(shared.Start))
		}
	}
	return nil
}

// DismissShared drops the pending shared song.
func (a *App) DismissShared() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shared = nil
}

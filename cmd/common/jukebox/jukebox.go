// Package jukebox is the playback session controller: it owns the audio
// output, the main playlist, the up-next queue and the listening-time
// tracker, and publishes snapshots and notifications to its subscribers.
package jukebox

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/common/store"
)

const (
	// ReplayWindow is how soon after finishing a song replaying it counts as a replay.
	ReplayWindow = 120 * time.Second
	// ClockInterval approximates the media element's timeupdate cadence.
	ClockInterval = 250 * time.Millisecond
	// VolumeRampDuration applies to manual volume and mute changes.
	VolumeRampDuration = 200 * time.Millisecond
	rampTick           = 50 * time.Millisecond
	maxAccrualStep     = 2.0
)

// State is the controller's playback state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// PlayStats receives per-song listening statistics.
type PlayStats interface {
	RecordPlay(url string)
	AddListeningTime(url string, seconds float64)
	AddCompletion(url string)
}

// EventLogger receives social events.
type EventLogger interface {
	Log(t social.EventType, url string)
}

// Config holds the Jukebox dependencies. Nil fields get working defaults.
type Config struct {
	Audio  Audio
	Store  store.Store
	Stats  PlayStats
	Events EventLogger
	Now    func() time.Time
	Rand   *rand.Rand
}

// EventKind identifies what a subscriber is being told.
type EventKind int

const (
	// EventSnapshot means the snapshot changed.
	EventSnapshot EventKind = iota
	// EventToast carries a short user-facing notification in Message.
	EventToast
	// EventVotePrompt asks the listener to rate Song.
	EventVotePrompt
)

type Event struct {
	Kind    EventKind
	Message string
	Song    *catalog.Song
}

// Snapshot is a consistent read-only view of the session.
type Snapshot struct {
	Song              *catalog.Song       `json:"song,omitempty"`
	State             State               `json:"state"`
	IsPlaying         bool                `json:"isPlaying"`
	Position          float64             `json:"position"`
	Duration          float64             `json:"duration"`
	Volume            float64             `json:"volume"`
	Muted             bool                `json:"isMuted"`
	RepeatMode        settings.RepeatMode `json:"repeatMode"`
	Shuffled          bool                `json:"isShuffled"`
	Autoplay          bool                `json:"isAutoplayEnabled"`
	CrossfadeEnabled  bool                `json:"crossfadeEnabled"`
	CrossfadeDuration float64             `json:"crossfadeDuration"`
	Queue             []catalog.Song      `json:"queue"`
	Playlist          []catalog.Song      `json:"playlist"`
	VotePrompt        *catalog.Song       `json:"votePrompt,omitempty"`
}

type finishRecord struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// sessionStats tracks listening time for the current song until flushed.
type sessionStats struct {
	url        string
	timePlayed float64
	lastTime   float64
}

// Jukebox is safe for concurrent use. Subscribers are invoked after the
// internal lock is released and may call back into the Jukebox.
type Jukebox struct {
	mu sync.Mutex

	audio  Audio
	store  store.Store
	stats  PlayStats
	events EventLogger
	now    func() time.Time
	rng    *rand.Rand

	settings     settings.Settings
	current      *catalog.Song
	isPlaying    bool
	sorted       []catalog.Song // filtered and sorted source of the main playlist
	mainPlaylist []catalog.Song
	queue        []catalog.Song
	lastFinished *finishRecord
	session      sessionStats
	votePrompt   *catalog.Song

	playbackID uint64 // Incremented each time a new song starts, used to ignore stale callbacks
	rampStop   chan struct{}

	subscribers []func(Event)
	pending     []Event
	closed      bool
}

// New creates a Jukebox, restoring settings, the up-next queue and the last
// finished song from the store.
func New(cfg Config) *Jukebox {
	if cfg.Store == nil {
		cfg.Store = store.NewMemory()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Audio == nil {
		cfg.Audio = NewSilent()
	}
	if cfg.Stats == nil {
		cfg.Stats = library.New(cfg.Store, library.WithClock(cfg.Now))
	}
	if cfg.Events == nil {
		cfg.Events = social.NewEventLog(cfg.Store, cfg.Now)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	j := &Jukebox{
		audio:        cfg.Audio,
		store:        cfg.Store,
		stats:        cfg.Stats,
		events:       cfg.Events,
		now:          cfg.Now,
		rng:          cfg.Rand,
		settings:     settings.Load(cfg.Store),
		queue:        store.Load(cfg.Store, store.KeyUpNext, []catalog.Song{}),
		lastFinished: store.Load[*finishRecord](cfg.Store, store.KeyLastFinished, nil),
	}
	j.audio.SetVolume(j.settings.EffectiveVolume())
	j.audio.SetEffects(j.settings.Equalizer, j.settings.PlaybackRate)
	return j
}

// Subscribe registers fn for all future events.
func (j *Jukebox) Subscribe(fn func(Event)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subscribers = append(j.subscribers, fn)
}

// update runs f under the lock and then dispatches the events it emitted.
func (j *Jukebox) update(f func()) {
	j.mu.Lock()
	f()
	events := j.pending
	j.pending = nil
	subscribers := j.subscribers
	j.mu.Unlock()

	for _, e := range events {
		for _, fn := range subscribers {
			fn(e)
		}
	}
}

// emit must be called with lock held.
func (j *Jukebox) emit(e Event) {
	j.pending = append(j.pending, e)
}

func (j *Jukebox) changed() {
	j.emit(Event{Kind: EventSnapshot})
}

func (j *Jukebox) toast(msg string) {
	j.emit(Event{Kind: EventToast, Message: msg})
}

// Notify publishes a toast to subscribers.
func (j *Jukebox) Notify(msg string) {
	j.update(func() { j.toast(msg) })
}

// Snapshot returns the current session state.
func (j *Jukebox) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{
		State:             j.stateLocked(),
		IsPlaying:         j.isPlaying,
		Volume:            j.settings.Volume,
		Muted:             j.settings.Muted,
		RepeatMode:        j.settings.RepeatMode,
		Shuffled:          j.settings.Shuffled,
		Autoplay:          j.settings.Autoplay,
		CrossfadeEnabled:  j.settings.CrossfadeEnabled,
		CrossfadeDuration: j.settings.CrossfadeDuration,
		Queue:             cloneSongs(j.queue),
		Playlist:          cloneSongs(j.mainPlaylist),
	}
	if j.current != nil {
		song := *j.current
		snap.Song = &song
		snap.Position = j.audio.Position()
		snap.Duration = j.audio.Duration()
	}
	if j.votePrompt != nil {
		song := *j.votePrompt
		snap.VotePrompt = &song
	}
	return snap
}

func (j *Jukebox) stateLocked() State {
	switch {
	case j.current == nil:
		return StateIdle
	case !j.isPlaying:
		return StatePaused
	case !j.audio.Ready():
		return StateLoading
	default:
		return StatePlaying
	}
}

// Current returns the current song, or nil when idle.
func (j *Jukebox) Current() *catalog.Song {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current == nil {
		return nil
	}
	song := *j.current
	return &song
}

// Settings returns the player settings.
func (j *Jukebox) Settings() settings.Settings {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.settings
}

// UpdateSettings merges p over the current settings, persists them and
// applies the playback-relevant changes.
func (j *Jukebox) UpdateSettings(p settings.Patch) settings.Settings {
	var out settings.Settings
	j.update(func() {
		j.applySettingsLocked(p)
		out = j.settings
	})
	return out
}

// applySettingsLocked must be called with lock held.
func (j *Jukebox) applySettingsLocked(p settings.Patch) {
	prev := j.settings
	j.settings = prev.Apply(p)
	if err := settings.Save(j.store, j.settings); err != nil {
		slog.Error("failed to save settings", "err", err)
	}
	if j.settings.EffectiveVolume() != prev.EffectiveVolume() {
		j.startRampLocked(j.audio.Volume(), j.settings.EffectiveVolume(), VolumeRampDuration)
	}
	if effectsChanged(prev, j.settings) {
		j.audio.SetEffects(j.settings.Equalizer, j.settings.PlaybackRate)
	}
	if j.settings.Shuffled != prev.Shuffled {
		j.recomputeLocked()
	}
	j.changed()
}

// Close flushes session stats, cancels ramps and stops audio.
func (j *Jukebox) Close() {
	j.update(func() {
		if j.closed {
			return
		}
		j.closed = true
		j.flushLocked()
		j.cancelRampLocked()
		j.audio.Stop()
		j.isPlaying = false
	})
}

func effectsChanged(a, b settings.Settings) bool {
	return a.PlaybackRate != b.PlaybackRate ||
		a.Equalizer.Enabled != b.Equalizer.Enabled ||
		a.Equalizer.Preamp != b.Equalizer.Preamp ||
		!slices.Equal(a.Equalizer.Bands, b.Equalizer.Bands)
}

func cloneSongs(songs []catalog.Song) []catalog.Song {
	out := make([]catalog.Song, len(songs))
	copy(out, songs)
	return out
}

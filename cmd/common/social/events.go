// Package social implements the locally simulated social layer: the event log
// behind popularity scores, votes, comments and crowd markers.
package social

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/store"
)

// MaxEvents caps the event log; the oldest events are evicted first.
const MaxEvents = 2000

// decayRate gives a half-life of roughly 14 days.
const decayRate = 0.05

type EventType string

const (
	EventPlay         EventType = "play"
	EventFinish       EventType = "finish"
	EventReplay       EventType = "replay"
	EventSaveFavorite EventType = "save_favorite"
	EventSavePlaylist EventType = "save_playlist"
)

// Weight is the score contribution of a fresh event of this type.
func (t EventType) Weight() float64 {
	switch t {
	case EventPlay:
		return 1
	case EventFinish:
		return 3
	case EventReplay:
		return 5
	case EventSaveFavorite:
		return 10
	case EventSavePlaylist:
		return 8
	default:
		return 0
	}
}

type Event struct {
	Type      EventType `json:"type"`
	URL       string    `json:"url"`
	Timestamp int64     `json:"timestamp"` // unix millis
}

// EventLog is the append-only, capped social event log.
type EventLog struct {
	mu     sync.Mutex
	store  store.Store
	now    func() time.Time
	events []Event
}

func NewEventLog(s store.Store, now func() time.Time) *EventLog {
	if now == nil {
		now = time.Now
	}
	return &EventLog{
		store:  s,
		now:    now,
		events: store.Load(s, store.KeySocialEvents, []Event{}),
	}
}

// Log appends an event stamped with the current time.
func (l *EventLog) Log(t EventType, url string) {
	l.mu.Lock()
	l.events = append(l.events, Event{Type: t, URL: url, Timestamp: l.now().UnixMilli()})
	if len(l.events) > MaxEvents {
		l.events = slices.Clone(l.events[len(l.events)-MaxEvents:])
	}
	snapshot := slices.Clone(l.events)
	l.mu.Unlock()

	store.SaveOrLog(l.store, store.KeySocialEvents, snapshot)
}

func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

// Scores computes the current popularity score of every song with events.
func (l *EventLog) Scores() map[string]float64 {
	return Scores(l.Events(), l.now())
}

// Scores sums weight * e^(-0.05 * ageDays) per url.
func Scores(events []Event, now time.Time) map[string]float64 {
	scores := make(map[string]float64)
	nowMs := now.UnixMilli()
	for _, e := range events {
		ageDays := float64(nowMs-e.Timestamp) / float64(24*time.Hour/time.Millisecond)
		scores[e.URL] += e.Type.Weight() * math.Exp(-decayRate*ageDays)
	}
	return scores
}

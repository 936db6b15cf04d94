// Package store is the key/value persistence service behind every piece of
// jukebox state. Values are JSON documents addressed by a flat key.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Keys for every persisted item.
const (
	KeyFavorites      = "favorites"
	KeyDurations      = "durations"
	KeyUpNext         = "up-next"
	KeyPlayCounts     = "play-counts"
	KeyRecentlyPlayed = "recently-played"
	KeySettings       = "settings"
	KeyUserPlaylists  = "user-playlists"
	KeyVotes          = "votes"
	KeyComments       = "comments"
	KeyReported       = "reported-comments"
	KeyCrowdMarkers   = "crowd-markers"
	KeyPlaybackStats  = "playback-stats"
	KeyPlayHistory    = "play-history"
	KeySocialEvents   = "social-events"
	KeyTutorialSeen   = "tutorial-seen"
	KeyUnlocks        = "unlocks"
	KeySpinCount      = "spin-count"
	KeyLastFinished   = "last-finished"
)

var ErrInvalidKey = errors.New("invalid key")

// Store reads and writes raw values by key.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Load decodes the value stored under key. A missing, unreadable or corrupt
// value yields def; the latter two are logged.
func Load[T any](s Store, key string, def T) T {
	data, ok, err := s.Get(key)
	if err != nil {
		slog.Error("failed to read persisted value", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Error("corrupt persisted value, using default", "key", key, "error", err)
		return def
	}
	return v
}

// Save encodes v and stores it under key.
func Save[T any](s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// SaveOrLog is Save for callers whose in-memory state stays authoritative when
// the write fails.
func SaveOrLog[T any](s Store, key string, v T) {
	if err := Save(s, key, v); err != nil {
		slog.Error("failed to persist value", "key", key, "error", err)
	}
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

package library

import (
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

// RecordPlay bumps the play count, appends to the play history and moves url
// to the front of the recently played list.
func (l *Library) RecordPlay(url string) {
	now := l.now().UnixMilli()

	l.mu.Lock()
	l.playCounts[url]++
	l.history = append(l.history, PlayRecord{URL: url, Timestamp: now})
	if len(l.history) > MaxPlayHistory {
		l.history = slices.Clone(l.history[len(l.history)-MaxPlayHistory:])
	}
	l.recentlyPlayed = pushRecent(l.recentlyPlayed, url)
	counts := lo.Assign(l.playCounts)
	history := slices.Clone(l.history)
	recent := slices.Clone(l.recentlyPlayed)
	l.mu.Unlock()

	store.SaveOrLog(l.store, store.KeyPlayCounts, counts)
	store.SaveOrLog(l.store, store.KeyPlayHistory, history)
	store.SaveOrLog(l.store, store.KeyRecentlyPlayed, recent)
}

func pushRecent(list []string, url string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, url)
	for _, u := range list {
		if u != url {
			out = append(out, u)
		}
	}
	if len(out) > MaxRecentlyPlayed {
		out = out[:MaxRecentlyPlayed]
	}
	return out
}

func (l *Library) PlayCount(url string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playCounts[url]
}

func (l *Library) PlayCounts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Assign(l.playCounts)
}

// ResetPlayCounts forgets every play count. History and recently played are kept.
func (l *Library) ResetPlayCounts() {
	l.mu.Lock()
	l.playCounts = map[string]int{}
	l.mu.Unlock()
	if err := l.store.Delete(store.KeyPlayCounts); err != nil {
		slog.Error("failed to reset play counts", "error", err)
	}
}

// TopPlayed returns up to n urls ordered by play count, highest first.
// Ties keep url order so the result is stable.
func (l *Library) TopPlayed(n int) []string {
	l.mu.RLock()
	entries := lo.Entries(l.playCounts)
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return lo.Map(entries, func(e lo.Entry[string, int], _ int) string { return e.Key })
}

// RecentlyPlayed returns urls most recent first.
func (l *Library) RecentlyPlayed() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.recentlyPlayed)
}

func (l *Library) History() []PlayRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.history)
}

// DailyPlays counts plays of url per calendar day over the last seven days.
// Index 6 is today.
func (l *Library) DailyPlays(url string) [7]int {
	now := l.now()
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location())

	var days [7]int
	for _, rec := range l.History() {
		if rec.URL != url {
			continue
		}
		ts := time.UnixMilli(rec.Timestamp).In(now.Location())
		if ts.After(endOfToday) {
			continue
		}
		diff := int(endOfToday.Sub(ts) / (24 * time.Hour))
		if diff < 7 {
			days[6-diff]++
		}
	}
	return days
}

// AddListeningTime adds seconds to the persisted total for url.
func (l *Library) AddListeningTime(url string, seconds float64) {
	if url == "" || seconds <= 0 {
		return
	}
	l.mu.Lock()
	st := l.stats[url]
	st.TotalTimePlayed += seconds
	l.stats[url] = st
	all := lo.Assign(l.stats)
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyPlaybackStats, all)
}

func (l *Library) AddCompletion(url string) {
	l.mu.Lock()
	st := l.stats[url]
	st.Completions++
	l.stats[url] = st
	all := lo.Assign(l.stats)
	l.mu.Unlock()
	store.SaveOrLog(l.store, store.KeyPlaybackStats, all)
}

func (l *Library) Stat(url string) PlaybackStat {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats[url]
}

package social

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// VoteData holds vote timestamps (unix millis) per direction. The local
// listener's own vote is the last timestamp pushed in UserVote's direction.
type VoteData struct {
	Up       []int64    `json:"up"`
	Down     []int64    `json:"down"`
	UserVote *Direction `json:"userVote"`
}

// UnmarshalJSON tolerates older documents where up/down were plain counts or
// missing; those become empty lists.
func (v *VoteData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Up       json.RawMessage `json:"up"`
		Down     json.RawMessage `json:"down"`
		UserVote *Direction      `json:"userVote"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Up = timestampList(raw.Up)
	v.Down = timestampList(raw.Down)
	v.UserVote = raw.UserVote
	return nil
}

func timestampList(raw json.RawMessage) []int64 {
	var out []int64
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil || out == nil {
		return []int64{}
	}
	return out
}

func (v VoteData) clone() VoteData {
	out := VoteData{Up: slices.Clone(v.Up), Down: slices.Clone(v.Down)}
	if out.Up == nil {
		out.Up = []int64{}
	}
	if out.Down == nil {
		out.Down = []int64{}
	}
	if v.UserVote != nil {
		d := *v.UserVote
		out.UserVote = &d
	}
	return out
}

// Mine returns the local listener's vote, or "" when neutral.
func (v VoteData) Mine() Direction {
	if v.UserVote == nil {
		return ""
	}
	return *v.UserVote
}

// Tally counts votes cast at or after since (unix millis).
func (v VoteData) Tally(since int64) (score, count int) {
	up := lo.CountBy(v.Up, func(ts int64) bool { return ts >= since })
	down := lo.CountBy(v.Down, func(ts int64) bool { return ts >= since })
	return up - down, up + down
}

// Votes is the persisted url -> VoteData map.
type Votes struct {
	mu    sync.Mutex
	store store.Store
	now   func() time.Time
	votes map[string]VoteData
}

func NewVotes(s store.Store, now func() time.Time) *Votes {
	if now == nil {
		now = time.Now
	}
	v := store.Load(s, store.KeyVotes, map[string]VoteData{})
	if v == nil {
		v = map[string]VoteData{}
	}
	return &Votes{store: s, now: now, votes: v}
}

// Toggle applies a vote click. Clicking the active direction again clears the
// vote; clicking the other direction moves it.
func (v *Votes) Toggle(url string, dir Direction) VoteData {
	v.mu.Lock()
	data := v.votes[url].clone()
	prev := data.Mine()

	if prev != "" {
		data.pop(prev)
	}
	if prev == dir {
		data.UserVote = nil
	} else {
		ts := v.now().UnixMilli()
		if dir == Up {
			data.Up = append(data.Up, ts)
		} else {
			data.Down = append(data.Down, ts)
		}
		d := dir
		data.UserVote = &d
	}

	v.votes[url] = data
	all := lo.MapValues(v.votes, func(d VoteData, _ string) VoteData { return d.clone() })
	v.mu.Unlock()

	store.SaveOrLog(v.store, store.KeyVotes, all)
	return data.clone()
}

func (d *VoteData) pop(dir Direction) {
	switch dir {
	case Up:
		if n := len(d.Up); n > 0 {
			d.Up = d.Up[:n-1]
		}
	case Down:
		if n := len(d.Down); n > 0 {
			d.Down = d.Down[:n-1]
		}
	}
}

func (v *Votes) Get(url string) VoteData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.votes[url].clone()
}

// All returns a copy of every song's votes.
func (v *Votes) All() map[string]VoteData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return lo.MapValues(v.votes, func(d VoteData, _ string) VoteData { return d.clone() })
}

// Rating is the all-time up minus down count.
func (v *Votes) Rating(url string) int {
	score, _ := v.Get(url).Tally(0)
	return score
}

// Window is the Highest Rated time filter.
type Window string

const (
	AllTime  Window = "All-Time"
	ThisWeek Window = "This Week"
	Today    Window = "Today"
)

// Since returns the window start in unix millis.
func (w Window) Since(now time.Time) int64 {
	switch w {
	case ThisWeek:
		return now.Add(-7 * 24 * time.Hour).UnixMilli()
	case Today:
		return now.Add(-24 * time.Hour).UnixMilli()
	default:
		return 0
	}
}

func ParseWindow(s string) (Window, bool) {
	for _, w := range []Window{AllTime, ThisWeek, Today} {
		if string(w) == s {
			return w, true
		}
	}
	switch s {
	case "all", "all-time", "":
		return AllTime, true
	case "week":
		return ThisWeek, true
	case "today", "day":
		return Today, true
	}
	return "", false
}

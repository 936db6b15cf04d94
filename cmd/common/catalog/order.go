package catalog

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	DefaultMinBPM = 0
	DefaultMaxBPM = 250
)

// Filter narrows a source playlist. The zero value matches everything.
type Filter struct {
	Search string
	Styles []string
	MinBPM int
	MaxBPM int
}

// Apply keeps songs whose title contains Search (case-insensitive), whose
// style is one of Styles when any are given, and whose BPM is within range.
// Songs without a BPM always pass the range check.
func (f Filter) Apply(songs []Song) []Song {
	q := strings.ToLower(f.Search)
	maxBPM := f.MaxBPM
	if maxBPM <= 0 {
		maxBPM = DefaultMaxBPM
	}
	return lo.Filter(songs, func(s Song, _ int) bool {
		if !strings.Contains(strings.ToLower(s.Title), q) {
			return false
		}
		if len(f.Styles) > 0 && (s.Style == "" || !slices.Contains(f.Styles, s.Style)) {
			return false
		}
		if s.BPM > 0 && (s.BPM < f.MinBPM || s.BPM > maxBPM) {
			return false
		}
		return true
	})
}

// SortMode orders a filtered playlist.
type SortMode string

const (
	SortDefault       SortMode = "default"
	SortTitleAsc      SortMode = "title-asc"
	SortTitleDesc     SortMode = "title-desc"
	SortDurationAsc   SortMode = "duration-asc"
	SortDurationDesc  SortMode = "duration-desc"
	SortBPMAsc        SortMode = "bpm-asc"
	SortBPMDesc       SortMode = "bpm-desc"
	SortStyleAsc      SortMode = "style-asc"
	SortStyleDesc     SortMode = "style-desc"
	SortPlayCountAsc  SortMode = "play-count-asc"
	SortPlayCountDesc SortMode = "play-count-desc"
	SortRatingDesc    SortMode = "rating-desc"
)

var SortModes = []SortMode{
	SortDefault, SortTitleAsc, SortTitleDesc, SortDurationAsc, SortDurationDesc,
	SortBPMAsc, SortBPMDesc, SortStyleAsc, SortStyleDesc,
	SortPlayCountAsc, SortPlayCountDesc, SortRatingDesc,
}

func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortDefault, nil
	}
	if m := SortMode(s); slices.Contains(SortModes, m) {
		return m, nil
	}
	return "", fmt.Errorf("invalid sort mode %q", s)
}

// Apply returns a sorted copy of songs. Songs missing the sort key go last.
// ratings is only consulted for SortRatingDesc.
func (m SortMode) Apply(songs []Song, ratings map[string]int) []Song {
	out := slices.Clone(songs)

	var less func(a, b Song) bool
	switch m {
	case SortTitleAsc:
		less = func(a, b Song) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortTitleDesc:
		less = func(a, b Song) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	case SortDurationAsc:
		less = func(a, b Song) bool { return durationKey(a, 1) < durationKey(b, 1) }
	case SortDurationDesc:
		less = func(a, b Song) bool { return durationKey(a, -1) > durationKey(b, -1) }
	case SortBPMAsc:
		less = func(a, b Song) bool { return bpmKey(a, 1) < bpmKey(b, 1) }
	case SortBPMDesc:
		less = func(a, b Song) bool { return bpmKey(a, -1) > bpmKey(b, -1) }
	case SortStyleAsc:
		less = func(a, b Song) bool { return styleKey(a) < styleKey(b) }
	case SortStyleDesc:
		less = func(a, b Song) bool { return styleDescKey(a) > styleDescKey(b) }
	case SortPlayCountAsc:
		less = func(a, b Song) bool { return a.PlayCount < b.PlayCount }
	case SortPlayCountDesc:
		less = func(a, b Song) bool { return a.PlayCount > b.PlayCount }
	case SortRatingDesc:
		less = func(a, b Song) bool { return ratings[a.URL] > ratings[b.URL] }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// durationKey maps unknown durations past the end in the given direction.
func durationKey(s Song, dir float64) float64 {
	if !s.HasDuration() {
		return dir * math.Inf(1)
	}
	return s.Duration
}

func bpmKey(s Song, dir float64) float64 {
	if s.BPM <= 0 {
		return dir * math.Inf(1)
	}
	return float64(s.BPM)
}

func styleKey(s Song) string {
	if s.Style == "" {
		return "\uffff"
	}
	return strings.ToLower(s.Style)
}

func styleDescKey(s Song) string {
	if s.Style == "" {
		return ""
	}
	return strings.ToLower(s.Style)
}

// Shuffle returns a Fisher-Yates permutation of songs.
func Shuffle(songs []Song, r *rand.Rand) []Song {
	out := slices.Clone(songs)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

package social

import (
	"slices"
	"sort"
	"sync"

	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

const (
	// MarkerSpacing is the minimum distance in seconds from the latest marker.
	MarkerSpacing = 3.0
	maxMoments    = 5
	minMarkers    = 3
)

// Marker is a listener-flagged position in a song, in seconds.
type Marker struct {
	Timestamp float64 `json:"timestamp"`
}

// Moment is a cluster of markers.
type Moment struct {
	Time  float64 `json:"time"`
	Count int     `json:"count"`
}

// Markers stores crowd markers per song, sorted ascending.
type Markers struct {
	mu      sync.Mutex
	store   store.Store
	markers map[string][]Marker
}

func NewMarkers(s store.Store) *Markers {
	m := store.Load(s, store.KeyCrowdMarkers, map[string][]Marker{})
	if m == nil {
		m = map[string][]Marker{}
	}
	return &Markers{store: s, markers: m}
}

// Add stores a marker at t unless it is less than MarkerSpacing seconds after
// the latest marker for the song. Reports whether it was stored.
func (m *Markers) Add(url string, t float64) bool {
	m.mu.Lock()
	list := m.markers[url]
	if n := len(list); n > 0 && t-list[n-1].Timestamp < MarkerSpacing {
		m.mu.Unlock()
		return false
	}
	list = append(slices.Clone(list), Marker{Timestamp: t})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp < list[j].Timestamp })
	m.markers[url] = list
	all := lo.MapValues(m.markers, func(ms []Marker, _ string) []Marker { return slices.Clone(ms) })
	m.mu.Unlock()

	store.SaveOrLog(m.store, store.KeyCrowdMarkers, all)
	return true
}

func (m *Markers) Get(url string) []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.markers[url])
}

// TopMoments clusters sorted markers greedily: a marker joins the current
// cluster while it is within max(5s, 5% of duration) of the cluster's first
// marker. Clusters of two or more become moments at their mean time. At most
// five are returned, by count descending then time ascending.
func TopMoments(markers []Marker, duration float64) []Moment {
	if len(markers) < minMarkers || duration <= 0 {
		return nil
	}
	window := max(5, duration*0.05)

	var moments []Moment
	var cluster []Marker
	flush := func() {
		if len(cluster) > 1 {
			sum := lo.SumBy(cluster, func(mk Marker) float64 { return mk.Timestamp })
			moments = append(moments, Moment{Time: sum / float64(len(cluster)), Count: len(cluster)})
		}
	}
	for _, mk := range markers {
		if len(cluster) == 0 || mk.Timestamp-cluster[0].Timestamp <= window {
			cluster = append(cluster, mk)
			continue
		}
		flush()
		cluster = []Marker{mk}
	}
	flush()

	sort.SliceStable(moments, func(i, j int) bool {
		if moments[i].Count != moments[j].Count {
			return moments[i].Count > moments[j].Count
		}
		return moments[i].Time < moments[j].Time
	})
	if len(moments) > maxMoments {
		moments = moments[:maxMoments]
	}
	return moments
}

// Heatmap buckets markers into the given number of equal slices of the song and
// returns each slice's intensity relative to the busiest one (0..1).
func Heatmap(markers []Marker, duration float64, segments int) []float64 {
	if len(markers) == 0 || duration <= 0 || segments <= 0 {
		return nil
	}
	counts := make([]int, segments)
	segDur := duration / float64(segments)
	for _, mk := range markers {
		idx := int(mk.Timestamp / segDur)
		if mk.Timestamp >= 0 && idx < segments {
			counts[idx]++
		}
	}
	peak := max(lo.Max(counts), 1)
	return lo.Map(counts, func(c int, _ int) float64 { return float64(c) / float64(peak) })
}

package catalog

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gigurra/jukebox/cmd/common/social"
)

const testIndex = `{
  "categories": [
    {"name": "Rock", "playlists": [{"name": "Loud", "file": "loud.txt"}, {"name": "Louder", "file": "louder.txt"}]},
    {"name": "Ðeffy Sings~", "playlists": [{"name": "Classics", "file": "classics.txt"}]}
  ]
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.json": {Data: []byte(testIndex)},
		"loud.txt": {Data: []byte(`
  Alpha
https://x/a.mp3

Bravo
https://x/b.mp3
Dangling title
`)},
		"louder.txt":    {Data: []byte("Alpha Again\nhttps://x/a.mp3\nCharlie\nhttps://x/c.mp3\n")},
		"classics.txt":  {Data: []byte("Delta\nhttps://x/d.mp3\n")},
		"metadata.json": {Data: []byte(`{"https://x/a.mp3": {"bpm": 140, "style": "Rock"}, "https://x/b.mp3": {"bpm": 80, "style": "Jazz"}}`)},
		"lyrics.json":   {Data: []byte(`{"https://x/b.mp3": "la la"}`)},
	}
}

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(testFS())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func titles(songs []Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.Title
	}
	return out
}

func TestParse(t *testing.T) {
	songs := Parse("\n  T1 \nu1\n\n\nT2\nu2\norphan\n", true, map[string]Metadata{"u2": {BPM: 99}}, map[string]string{"u1": "words"})
	if len(songs) != 2 {
		t.Fatalf("len = %d, want 2", len(songs))
	}
	if songs[0].Title != "T1" || songs[0].URL != "u1" || songs[0].Lyrics != "words" || !songs[0].DisableAlbumArtGeneration {
		t.Errorf("first song = %+v", songs[0])
	}
	if songs[1].BPM != 99 {
		t.Errorf("metadata not joined: %+v", songs[1])
	}
}

func TestLoad_DeduplicatesFirstWins(t *testing.T) {
	c := mustLoad(t)
	if got := titles(c.All()); !slices.Equal(got, []string{"Alpha", "Bravo", "Charlie", "Delta"}) {
		t.Errorf("All = %v", got)
	}
	if s, _ := c.Song("https://x/d.mp3"); !s.DisableAlbumArtGeneration {
		t.Error("Classics songs should disable album art generation")
	}
	if s, _ := c.Song("https://x/a.mp3"); s.DisableAlbumArtGeneration || s.BPM != 140 {
		t.Errorf("Alpha = %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(fstest.MapFS{}); err == nil {
		t.Error("expected error without index")
	}
	empty := fstest.MapFS{"index.json": {Data: []byte(`{"categories":[]}`)}}
	if _, err := Load(empty); !errors.Is(err, ErrNoSongs) {
		t.Errorf("expected ErrNoSongs, got %v", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if len(c.All()) == 0 || len(c.Categories()) == 0 {
		t.Error("embedded catalog is empty")
	}
}

func TestResolve(t *testing.T) {
	c := mustLoad(t)
	if s, err := c.Resolve("https://x/b.mp3"); err != nil || s.Title != "Bravo" {
		t.Errorf("by url: %v %v", s.Title, err)
	}
	if s, err := c.Resolve("charlie"); err != nil || s.Title != "Charlie" {
		t.Errorf("by title: %v %v", s.Title, err)
	}
	if _, err := c.Resolve("zulu"); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}
	if _, err := c.Resolve("x/"); !errors.Is(err, ErrAmbiguousSong) {
		t.Errorf("expected ErrAmbiguousSong, got %v", err)
	}
}

type fakeLibrary struct {
	favorites []string
	recent    []string
	counts    map[string]int
	durations map[string]float64
	playlists map[string][]string
}

func (f *fakeLibrary) Favorites() []string      { return f.favorites }
func (f *fakeLibrary) RecentlyPlayed() []string { return f.recent }
func (f *fakeLibrary) TopPlayed(n int) []string {
	urls := make([]string, 0, len(f.counts))
	for u := range f.counts {
		urls = append(urls, u)
	}
	slices.SortFunc(urls, func(a, b string) int { return f.counts[b] - f.counts[a] })
	if len(urls) > n {
		urls = urls[:n]
	}
	return urls
}
func (f *fakeLibrary) PlayCounts() map[string]int    { return f.counts }
func (f *fakeLibrary) Durations() map[string]float64 { return f.durations }
func (f *fakeLibrary) PlaylistURLs(id string) ([]string, bool) {
	urls, ok := f.playlists[id]
	return urls, ok
}

type fakeVotes map[string]social.VoteData

func (f fakeVotes) All() map[string]social.VoteData { return f }

type fakeScores map[string]float64

func (f fakeScores) Scores() map[string]float64 { return f }

type fakeListeners map[string]int

func (f fakeListeners) Counts() map[string]int { return f }

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newResolver(t *testing.T) (*Resolver, *fakeLibrary) {
	lib := &fakeLibrary{
		favorites: []string{"https://x/c.mp3", "https://x/a.mp3"},
		recent:    []string{"https://x/b.mp3", "https://gone/z.mp3", "https://x/a.mp3"},
		counts:    map[string]int{"https://x/a.mp3": 2, "https://x/c.mp3": 7},
		durations: map[string]float64{"https://x/a.mp3": 200, "https://x/b.mp3": -1, "https://x/c.mp3": 100},
		playlists: map[string][]string{"user-playlist-1": {"https://x/d.mp3", "https://x/a.mp3"}},
	}
	ms := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }
	votes := fakeVotes{
		// two votes: below the floor
		"https://x/a.mp3": {Up: []int64{ms(time.Hour), ms(time.Hour)}},
		// three votes this week, net +1
		"https://x/b.mp3": {Up: []int64{ms(time.Hour), ms(48 * time.Hour)}, Down: []int64{ms(72 * time.Hour)}},
		// four old votes, net +4
		"https://x/c.mp3": {Up: []int64{ms(30 * 24 * time.Hour), ms(30 * 24 * time.Hour), ms(30 * 24 * time.Hour), ms(30 * 24 * time.Hour)}},
	}
	return &Resolver{
		Catalog:   mustLoad(t),
		Library:   lib,
		Votes:     votes,
		Scorer:    fakeScores{"https://x/a.mp3": 0.05, "https://x/b.mp3": 3, "https://x/d.mp3": 9},
		Listeners: fakeListeners{"https://x/c.mp3": 2, "https://x/d.mp3": 5},
		Now:       func() time.Time { return now },
	}, lib
}

func TestResolver_Source(t *testing.T) {
	r, _ := newResolver(t)

	tests := []struct {
		view   string
		window social.Window
		want   []string
	}{
		{ViewFavorites, social.AllTime, []string{"Alpha", "Charlie"}},
		{ViewRecentlyPlayed, social.AllTime, []string{"Bravo", "Alpha"}},
		{ViewTopPlayed, social.AllTime, []string{"Charlie", "Alpha"}},
		{ViewHighestRated, social.AllTime, []string{"Charlie", "Bravo"}},
		{ViewHighestRated, social.ThisWeek, []string{"Bravo"}},
		{ViewHighestRated, social.Today, nil},
		{ViewMostPopular, social.AllTime, []string{"Delta", "Bravo"}},
		{ViewNowPlaying, social.AllTime, []string{"Delta", "Charlie"}},
		{"user-playlist-1", social.AllTime, []string{"Delta", "Alpha"}},
		{"Rock/Louder", social.AllTime, []string{"Alpha Again", "Charlie"}},
	}
	for _, tt := range tests {
		t.Run(tt.view+"/"+string(tt.window), func(t *testing.T) {
			songs, err := r.Source(tt.view, tt.window)
			if err != nil {
				t.Fatal(err)
			}
			if got := titles(songs); !slices.Equal(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("Source(%s) = %v, want %v", tt.view, got, tt.want)
			}
		})
	}

	if _, err := r.Source("Rock/Missing", social.AllTime); !errors.Is(err, ErrUnknownView) {
		t.Errorf("expected ErrUnknownView, got %v", err)
	}
}

func TestResolver_JoinsViewFields(t *testing.T) {
	r, _ := newResolver(t)
	songs, err := r.Source("Rock/Loud", social.AllTime)
	if err != nil {
		t.Fatal(err)
	}
	a := songs[0]
	if !a.IsFavorite || a.Duration != 200 || a.PlayCount != 2 {
		t.Errorf("Alpha view fields = %+v", a)
	}

	rated, _ := r.Source(ViewHighestRated, social.AllTime)
	if rated[0].Score != 4 || rated[0].VoteCount != 4 {
		t.Errorf("Charlie rating fields = %+v", rated[0])
	}
}

func TestHighestRated_VoteFloor(t *testing.T) {
	r, _ := newResolver(t)
	votes := r.Votes.(fakeVotes)
	votes["https://x/d.mp3"] = social.VoteData{Up: []int64{1, 2}}

	songs, _ := r.Source(ViewHighestRated, social.AllTime)
	if slices.Contains(titles(songs), "Delta") {
		t.Error("song with two votes must not appear")
	}

	votes["https://x/d.mp3"] = social.VoteData{Up: []int64{1, 2, 3}}
	songs, _ = r.Source(ViewHighestRated, social.AllTime)
	if !slices.Contains(titles(songs), "Delta") {
		t.Error("song with three positive votes should appear")
	}
}

func TestFilter(t *testing.T) {
	songs := []Song{
		{Title: "Fast Rock", Style: "Rock", BPM: 160},
		{Title: "Slow Jazz", Style: "Jazz", BPM: 70},
		{Title: "Mystery", BPM: 0},
		{Title: "Rock Ballad", Style: "Rock", BPM: 90},
	}
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero value", Filter{}, []string{"Fast Rock", "Slow Jazz", "Mystery", "Rock Ballad"}},
		{"search", Filter{Search: "ROCK"}, []string{"Fast Rock", "Rock Ballad"}},
		{"styles", Filter{Styles: []string{"Jazz"}}, []string{"Slow Jazz"}},
		{"bpm range keeps unknown", Filter{MinBPM: 80, MaxBPM: 120}, []string{"Mystery", "Rock Ballad"}},
		{"combined", Filter{Search: "r", Styles: []string{"Rock"}, MinBPM: 100}, []string{"Fast Rock"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titles(tt.filter.Apply(songs)); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortMode_Apply(t *testing.T) {
	songs := []Song{
		{Title: "b", URL: "b", Duration: 0, BPM: 120, Style: "Rock", PlayCount: 1},
		{Title: "A", URL: "a", Duration: 300, BPM: 0, Style: "", PlayCount: 5},
		{Title: "c", URL: "c", Duration: 100, BPM: 90, Style: "jazz", PlayCount: 3},
	}
	ratings := map[string]int{"a": -1, "b": 4, "c": 2}

	tests := []struct {
		mode SortMode
		want []string
	}{
		{SortDefault, []string{"b", "A", "c"}},
		{SortTitleAsc, []string{"A", "b", "c"}},
		{SortTitleDesc, []string{"c", "b", "A"}},
		{SortDurationAsc, []string{"c", "A", "b"}},
		{SortDurationDesc, []string{"A", "c", "b"}},
		{SortBPMAsc, []string{"c", "b", "A"}},
		{SortBPMDesc, []string{"b", "c", "A"}},
		{SortStyleAsc, []string{"c", "b", "A"}},
		{SortStyleDesc, []string{"b", "c", "A"}},
		{SortPlayCountAsc, []string{"b", "c", "A"}},
		{SortPlayCountDesc, []string{"A", "c", "b"}},
		{SortRatingDesc, []string{"b", "c", "A"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := titles(tt.mode.Apply(songs, ratings)); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if songs[0].Title != "b" {
		t.Error("Apply must not reorder its input")
	}
}

func TestParseSortMode(t *testing.T) {
	if m, err := ParseSortMode(""); err != nil || m != SortDefault {
		t.Errorf("empty = %v, %v", m, err)
	}
	if _, err := ParseSortMode("random"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestShuffle_IsPermutation(t *testing.T) {
	var songs []Song
	for _, u := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		songs = append(songs, Song{URL: u, Title: u})
	}
	r := rand.New(rand.NewPCG(1, 2))

	differs := false
	for range 20 {
		got := Shuffle(songs, r)
		if len(got) != len(songs) {
			t.Fatalf("len = %d", len(got))
		}
		a, b := titles(got), titles(songs)
		if !slices.Equal(a, b) {
			differs = true
		}
		slices.Sort(a)
		if !slices.Equal(a, b) {
			t.Fatalf("not a permutation: %v", a)
		}
	}
	if !differs {
		t.Error("20 shuffles of 8 songs all kept the original order")
	}
}

func TestViewPolicies(t *testing.T) {
	if InitialSort(ViewHighestRated) != SortRatingDesc || InitialSort(ViewTopPlayed) != SortPlayCountDesc || InitialSort("Rock/Loud") != SortDefault {
		t.Error("unexpected initial sort modes")
	}
	if !ReadOnly(ViewNowPlaying) || ReadOnly(ViewFavorites) || ReadOnly("user-playlist-1") {
		t.Error("unexpected read-only flags")
	}
	if !KeepsShuffle(ViewRecentlyPlayed) || KeepsShuffle(ViewFavorites) {
		t.Error("unexpected shuffle policy")
	}
}

func TestResolver_Playlist(t *testing.T) {
	r, _ := newResolver(t)
	songs, err := r.Playlist(Query{View: "Rock/Louder", Sort: SortTitleAsc, Filter: Filter{Search: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(songs); !slices.Equal(got, []string{"Alpha Again", "Charlie"}) {
		t.Errorf("got %v", got)
	}

	rated, _ := r.Playlist(Query{View: "Rock/Louder", Sort: SortRatingDesc})
	if got := titles(rated); !slices.Equal(got, []string{"Charlie", "Alpha Again"}) {
		t.Errorf("rating sort = %v", got)
	}
}

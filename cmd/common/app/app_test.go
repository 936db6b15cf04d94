package app

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gigurra/jukebox/cmd/common/backupfile"
	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/jukebox"
	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/common/store"
)

const testIndex = `{
  "categories": [
    {"name": "Rock", "playlists": [{"name": "Loud", "file": "loud.txt"}, {"name": "Louder", "file": "louder.txt"}]}
  ]
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(fstest.MapFS{
		"index.json":    {Data: []byte(testIndex)},
		"loud.txt":      {Data: []byte("Alpha\nhttps://x/a.mp3\nBravo\nhttps://x/b.mp3\n")},
		"louder.txt":    {Data: []byte("Charlie\nhttps://x/c.mp3\nDelta\nhttps://x/d.mp3\n")},
		"metadata.json": {Data: []byte(`{}`)},
		"lyrics.json":   {Data: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return c
}

type testApp struct {
	*App
	audio  *jukebox.Silent
	toasts *[]string
}

func newTestApp(t *testing.T, s store.Store) testApp {
	t.Helper()
	if s == nil {
		s = store.NewMemory()
	}
	audio := jukebox.NewSilent()
	a, err := New(Options{
		Store:   s,
		Catalog: testCatalog(t),
		Audio:   audio,
		Now:     func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
		Rand:    rand.New(rand.NewPCG(7, 8)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	toasts := &[]string{}
	a.Jukebox.Subscribe(func(e jukebox.Event) {
		if e.Kind == jukebox.EventToast {
			*toasts = append(*toasts, e.Message)
		}
	})
	return testApp{App: a, audio: audio, toasts: toasts}
}

func (a testApp) lastToast() string {
	if len(*a.toasts) == 0 {
		return ""
	}
	return (*a.toasts)[len(*a.toasts)-1]
}

func playlistTitles(a testApp) []string {
	var out []string
	for _, s := range a.Jukebox.Snapshot().Playlist {
		out = append(out, s.Title)
	}
	return out
}

func TestNew_StartsOnFirstStaticView(t *testing.T) {
	a := newTestApp(t, nil)
	if got := a.Query().View; got != "Rock/Loud" {
		t.Errorf("view = %q, want Rock/Loud", got)
	}
	if got := playlistTitles(a); !slices.Equal(got, []string{"Alpha", "Bravo"}) {
		t.Errorf("playlist = %v", got)
	}
}

func TestSelectView_ShuffleAndSortPolicy(t *testing.T) {
	a := newTestApp(t, nil)

	a.Jukebox.ToggleShuffle()
	if err := a.SelectView(catalog.ViewRecentlyPlayed); err != nil {
		t.Fatalf("SelectView: %v", err)
	}
	if !a.Jukebox.Settings().Shuffled {
		t.Errorf("recently played should keep shuffle")
	}

	if err := a.SelectView(catalog.ViewHighestRated); err != nil {
		t.Fatalf("SelectView: %v", err)
	}
	if a.Jukebox.Settings().Shuffled {
		t.Errorf("highest rated should turn shuffle off")
	}
	if got := a.Query().Sort; got != catalog.SortRatingDesc {
		t.Errorf("sort = %q, want %q", got, catalog.SortRatingDesc)
	}

	if err := a.SelectView("Rock/Louder"); err != nil {
		t.Fatalf("SelectView: %v", err)
	}
	if got := a.Query().Sort; got != catalog.SortDefault {
		t.Errorf("sort = %q, want default", got)
	}

	a.Jukebox.ToggleShuffle()
	if err := a.SetSort(catalog.SortTitleDesc); err != nil {
		t.Fatalf("SetSort: %v", err)
	}
	if a.Jukebox.Settings().Shuffled {
		t.Errorf("changing sort should turn shuffle off")
	}
	if got := playlistTitles(a); !slices.Equal(got, []string{"Delta", "Charlie"}) {
		t.Errorf("playlist = %v", got)
	}

	if err := a.SelectView("Nope/Nope"); !errors.Is(err, catalog.ErrUnknownView) {
		t.Errorf("unknown view err = %v", err)
	}
}

func TestFavorites(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.SelectView(catalog.ViewFavorites); err != nil {
		t.Fatalf("SelectView: %v", err)
	}

	if !a.ToggleFavorite("https://x/a.mp3") {
		t.Fatalf("ToggleFavorite returned false")
	}
	if a.lastToast() != "Added to Favorites" {
		t.Errorf("toast = %q", a.lastToast())
	}
	if got := playlistTitles(a); !slices.Equal(got, []string{"Alpha"}) {
		t.Errorf("favorites view = %v", got)
	}

	if n := a.AddFavorites([]string{"https://x/a.mp3", "https://x/b.mp3", "https://x/c.mp3"}); n != 2 {
		t.Errorf("AddFavorites = %d, want 2", n)
	}
	if a.lastToast() != "2 songs added to Favorites" {
		t.Errorf("toast = %q", a.lastToast())
	}

	saves := 0
	for _, e := range a.Events.Events() {
		if e.Type == social.EventSaveFavorite {
			saves++
		}
	}
	if saves != 3 {
		t.Errorf("save_favorite events = %d, want 3", saves)
	}

	if a.ToggleFavorite("https://x/a.mp3") {
		t.Errorf("second toggle should remove")
	}
	if a.lastToast() != "Removed from Favorites" {
		t.Errorf("toast = %q", a.lastToast())
	}
}

func TestPlaylists(t *testing.T) {
	a := newTestApp(t, nil)

	p, err := a.CreatePlaylist("Mix", "", []string{"https://x/a.mp3"})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if a.lastToast() != `Playlist "Mix" created` {
		t.Errorf("toast = %q", a.lastToast())
	}
	if err := a.SelectView(p.ID); err != nil {
		t.Fatalf("SelectView: %v", err)
	}
	if a.ViewName(p.ID) != "Mix" {
		t.Errorf("ViewName = %q", a.ViewName(p.ID))
	}

	added, err := a.AddToPlaylist(p.ID, []string{"https://x/a.mp3", "https://x/c.mp3"})
	if err != nil || !slices.Equal(added, []string{"https://x/c.mp3"}) {
		t.Fatalf("AddToPlaylist = %v, %v", added, err)
	}
	if a.lastToast() != `1 songs added to "Mix"` {
		t.Errorf("toast = %q", a.lastToast())
	}
	if got := playlistTitles(a); !slices.Equal(got, []string{"Alpha", "Charlie"}) {
		t.Errorf("playlist view = %v", got)
	}

	if _, err := a.AddToPlaylist(p.ID, []string{"https://x/c.mp3"}); err != nil {
		t.Fatalf("AddToPlaylist: %v", err)
	}
	if a.lastToast() != `All selected songs already in "Mix"` {
		t.Errorf("toast = %q", a.lastToast())
	}

	if err := a.RemoveFromPlaylist(p.ID, "https://x/a.mp3"); err != nil {
		t.Fatalf("RemoveFromPlaylist: %v", err)
	}
	if a.lastToast() != `Song removed from "Mix"` {
		t.Errorf("toast = %q", a.lastToast())
	}

	if err := a.UpdatePlaylist(p.ID, "Road Mix", "long drives"); err != nil {
		t.Fatalf("UpdatePlaylist: %v", err)
	}
	if a.lastToast() != `Playlist "Road Mix" updated` {
		t.Errorf("toast = %q", a.lastToast())
	}

	if err := a.DeletePlaylist(p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if a.lastToast() != `Playlist "Road Mix" deleted` {
		t.Errorf("toast = %q", a.lastToast())
	}
	if a.Query().View != a.DefaultView() {
		t.Errorf("view after delete = %q, want default", a.Query().View)
	}

	playlistSaves := 0
	for _, e := range a.Events.Events() {
		if e.Type == social.EventSavePlaylist {
			playlistSaves++
		}
	}
	if playlistSaves != 2 {
		t.Errorf("save_playlist events = %d, want 2", playlistSaves)
	}

	if err := a.DeletePlaylist("missing"); !errors.Is(err, library.ErrPlaylistNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
}

func TestSharedLink(t *testing.T) {
	a := newTestApp(t, nil)
	link, err := share.Link(share.DefaultBase, "https://x/b.mp3", 30)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if err := a.ConfirmShared(); !errors.Is(err, ErrNoPendingShare) {
		t.Errorf("confirm without link err = %v", err)
	}

	shared, err := a.OpenLink(link)
	if err != nil {
		t.Fatalf("OpenLink: %v", err)
	}
	if shared.Song.Title != "Bravo" || shared.Start != 30 {
		t.Errorf("shared = %+v", shared)
	}
	if a.Jukebox.Current() != nil {
		t.Errorf("opening a link must not auto-play")
	}

	if err := a.ConfirmShared(); err != nil {
		t.Fatalf("ConfirmShared: %v", err)
	}
	if c := a.Jukebox.Current(); c == nil || c.Title != "Bravo" {
		t.Fatalf("current = %v, want Bravo", c)
	}
	if pos := a.audio.Position(); pos < 30 {
		t.Errorf("position = %v, want >= 30", pos)
	}
	if a.PendingShared() != nil {
		t.Errorf("pending share not cleared")
	}

	if _, err := a.OpenLink("?song=https://x/unknown.mp3"); !errors.Is(err, catalog.ErrSongNotFound) {
		t.Errorf("unknown song err = %v", err)
	}
}

func TestSharedLink_OffsetBeyondDuration(t *testing.T) {
	a := newTestApp(t, nil)
	a.Library.MergeDurations(map[string]float64{"https://x/a.mp3": 20})

	if _, err := a.OpenLink("?song=https%3A%2F%2Fx%2Fa.mp3&t=25"); err != nil {
		t.Fatalf("OpenLink: %v", err)
	}
	if err := a.ConfirmShared(); err != nil {
		t.Fatalf("ConfirmShared: %v", err)
	}
	if pos := a.audio.Position(); pos >= 25 {
		t.Errorf("seeked past the end: position = %v", pos)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestApp(t, nil)
	src.AddFavorites([]string{"https://x/a.mp3"})
	if _, err := src.CreatePlaylist("Mix", "desc", []string{"https://x/b.mp3"}); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	src.Jukebox.SetVolume(0.3)

	var buf bytes.Buffer
	if err := src.Export(ctx, &buf, backupfile.Options{Format: backupfile.FormatZip}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if src.lastToast() != "User data exported!" {
		t.Errorf("toast = %q", src.lastToast())
	}

	dst := newTestApp(t, nil)
	if err := dst.Import(ctx, &buf, ""); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if dst.lastToast() != "Data imported successfully!" {
		t.Errorf("toast = %q", dst.lastToast())
	}
	if !slices.Equal(dst.Library.Favorites(), []string{"https://x/a.mp3"}) {
		t.Errorf("favorites = %v", dst.Library.Favorites())
	}
	if pls := dst.Library.Playlists(); len(pls) != 1 || pls[0].Name != "Mix" {
		t.Errorf("playlists = %+v", pls)
	}
	if v := dst.Jukebox.Settings().Volume; v != 0.3 {
		t.Errorf("volume = %v, want 0.3", v)
	}

	err := dst.Import(ctx, strings.NewReader("not a backup"), "")
	if !errors.Is(err, backupfile.ErrInvalidBackup) {
		t.Errorf("invalid import err = %v", err)
	}
	if dst.lastToast() != "Error: Invalid backup file." {
		t.Errorf("toast = %q", dst.lastToast())
	}
}

func TestImport_DropsDeletedActivePlaylist(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	p, err := a.CreatePlaylist("Temp", "", []string{"https://x/a.mp3"})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if err := a.SelectView(p.ID); err != nil {
		t.Fatalf("SelectView: %v", err)
	}

	if err := a.Import(ctx, strings.NewReader(`{"userPlaylists":[]}`), ""); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if a.Query().View != a.DefaultView() {
		t.Errorf("view = %q, want default", a.Query().View)
	}
}

func TestSpinUnlocksBling(t *testing.T) {
	a := newTestApp(t, nil)
	a.Spin(99)
	if a.lastToast() == blingToast {
		t.Fatalf("unlocked too early")
	}
	a.Spin(1)
	if a.lastToast() != blingToast {
		t.Errorf("toast = %q, want bling unlock", a.lastToast())
	}
	if !a.Library.Unlocks().Bling {
		t.Errorf("bling not unlocked")
	}
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	s := store.NewMemory()
	first := newTestApp(t, s)
	song, err := first.Resolve("Bravo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	first.Jukebox.Select(song)
	first.Jukebox.AppendToQueue([]catalog.Song{song})
	first.Close()

	second := newTestApp(t, s)
	if got := second.Library.PlayCount("https://x/b.mp3"); got != 1 {
		t.Errorf("play count = %d, want 1", got)
	}
	if q := second.Jukebox.Queue(); len(q) != 1 || q[0].Title != "Bravo" {
		t.Errorf("queue = %+v", q)
	}
}

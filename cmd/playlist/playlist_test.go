package playlist

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/apptest"
	"github.com/gigurra/jukebox/cmd/common/library"
)

func TestPlaylistLifecycle(t *testing.T) {
	dir := apptest.Env(t)
	var out bytes.Buffer

	if err := RunCreate(&CreateParams{Catalog: dir, Name: "Road Trip", Songs: []string{"alpha", apptest.Charlie}}, &out); err != nil {
		t.Fatalf("RunCreate: %v", err)
	}
	if !strings.Contains(out.String(), `Playlist "Road Trip" created`) {
		t.Errorf("create output = %q", out.String())
	}

	out.Reset()
	if err := RunAdd(&AddParams{Catalog: dir, Playlist: "road trip", Songs: []string{"delta", "alpha"}}, &out); err != nil {
		t.Fatalf("RunAdd: %v", err)
	}
	if !strings.Contains(out.String(), `1 songs added to "Road Trip"`) {
		t.Errorf("add output = %q", out.String())
	}

	if err := RunMove(&MoveParams{Playlist: "Road Trip", From: 3, To: 1}, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunMove: %v", err)
	}
	if err := RunRemove(&RemoveParams{Catalog: dir, Playlist: "Road Trip", Song: "charlie"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunRemove: %v", err)
	}

	a := apptest.Open(t, dir)
	p, ok := a.Library.FindPlaylist("Road Trip")
	if !ok {
		t.Fatal("playlist not persisted")
	}
	if want := []string{apptest.Delta, apptest.Alpha}; !slices.Equal(p.SongURLs, want) {
		t.Errorf("songs = %v, want %v", p.SongURLs, want)
	}

	out.Reset()
	if err := RunList(&ListParams{Catalog: dir, Playlist: "Road Trip"}, &out); err != nil {
		t.Fatalf("RunList: %v", err)
	}
	if !strings.Contains(out.String(), "Road Trip (2 songs)") || !strings.Contains(out.String(), "Delta") {
		t.Errorf("list output:\n%s", out.String())
	}

	if err := RunRename(&RenameParams{Playlist: "Road Trip", Name: "Long Drive", Description: "windows down"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunRename: %v", err)
	}
	if err := RunDelete(&DeleteParams{Playlist: "long drive"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunDelete: %v", err)
	}
	a = apptest.Open(t, dir)
	if len(a.Library.Playlists()) != 0 {
		t.Errorf("playlists left after delete: %v", a.Library.Playlists())
	}
}

func TestPlaylist_Errors(t *testing.T) {
	dir := apptest.Env(t)
	err := RunAdd(&AddParams{Catalog: dir, Playlist: "nope", Songs: []string{"alpha"}}, &bytes.Buffer{})
	if !errors.Is(err, library.ErrPlaylistNotFound) {
		t.Errorf("add to missing playlist: %v", err)
	}
	if err := RunCreate(&CreateParams{Catalog: dir, Name: "  "}, &bytes.Buffer{}); !errors.Is(err, library.ErrEmptyName) {
		t.Errorf("create with blank name: %v", err)
	}
	if err := RunCreate(&CreateParams{Catalog: dir, Name: "Mix", Songs: []string{"zulu"}}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown song")
	}
}

func TestList_Empty(t *testing.T) {
	dir := apptest.Env(t)
	var out bytes.Buffer
	if err := RunList(&ListParams{Catalog: dir}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No playlists yet") {
		t.Errorf("output = %q", out.String())
	}
}

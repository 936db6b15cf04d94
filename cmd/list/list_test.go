package list

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/apptest"
	"github.com/gigurra/jukebox/cmd/common/catalog"
)

func listTitles(t *testing.T, params *Params) []string {
	t.Helper()
	params.JSON = true
	var out bytes.Buffer
	if err := Run(params, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var songs []catalog.Song
	if err := json.Unmarshal(out.Bytes(), &songs); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out.String())
	}
	titles := make([]string, len(songs))
	for i, s := range songs {
		titles[i] = s.Title
	}
	return titles
}

func TestList(t *testing.T) {
	dir := apptest.Env(t)

	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"default view", Params{}, "Alpha,Bravo"},
		{"by view id", Params{View: "Rock/Louder"}, "Charlie,Delta"},
		{"sorted", Params{View: "Rock/Louder", Sort: "title-desc"}, "Delta,Charlie"},
		{"search", Params{Search: "ALP"}, "Alpha"},
		{"limit", Params{View: "Rock/Louder", Limit: 1}, "Charlie"},
		{"empty favorites", Params{View: "Favorites"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.Catalog = dir
			got := strings.Join(listTitles(t, &tt.params), ",")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestList_Table(t *testing.T) {
	dir := apptest.Env(t)
	var out bytes.Buffer
	if err := Run(&Params{Catalog: dir, View: "Rock/Loud"}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"Rock/Loud (2 songs)", "Alpha", "Bravo", "Plays"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestList_Errors(t *testing.T) {
	dir := apptest.Env(t)
	if err := Run(&Params{Catalog: dir, View: "nope"}, &bytes.Buffer{}); !errors.Is(err, catalog.ErrUnknownView) {
		t.Errorf("unknown view: got %v", err)
	}
	if err := Run(&Params{Catalog: dir, Sort: "loudest"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an invalid sort mode")
	}
	if err := Run(&Params{Catalog: dir, Window: "decade"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an invalid window")
	}
}

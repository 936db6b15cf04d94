package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/apptest"
	"github.com/gigurra/jukebox/cmd/common/settings"
)

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch([]string{"volume=0.4", "muted=true", "repeat=one", "viewMode=grid", "crossfade-duration=20"})
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	got := settings.Default().Apply(p)
	if got.Volume != 0.4 || !got.Muted || got.RepeatMode != settings.RepeatOne || got.ViewMode != "grid" {
		t.Errorf("applied = %+v", got)
	}
	if got.CrossfadeDuration != 12 {
		t.Errorf("crossfade duration %v, want clamped to 12", got.CrossfadeDuration)
	}

	for _, bad := range [][]string{{"loudness=11"}, {"volume"}, {"repeat=sometimes"}, {"muted=maybe"}} {
		if _, err := ParsePatch(bad); err == nil {
			t.Errorf("ParsePatch(%v) should fail", bad)
		}
	}
}

func readSettings(t *testing.T, params *Params) settings.Settings {
	t.Helper()
	params.JSON = true
	var out bytes.Buffer
	if err := Run(params, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var s settings.Settings
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return s
}

func TestRun_SetPersistsAndResets(t *testing.T) {
	apptest.Env(t)

	s := readSettings(t, &Params{Set: []string{"shuffle=true", "autoplay=false"}})
	if !s.Shuffled || s.Autoplay {
		t.Fatalf("settings after set = %+v", s)
	}
	if s = readSettings(t, &Params{}); !s.Shuffled || s.Autoplay {
		t.Errorf("settings not persisted: %+v", s)
	}

	s = readSettings(t, &Params{Reset: true})
	if s.Shuffled || !s.Autoplay || s.RepeatMode != settings.RepeatAll {
		t.Errorf("settings after reset = %+v", s)
	}
}

func TestRun_Table(t *testing.T) {
	apptest.Env(t)
	var out bytes.Buffer
	if err := Run(&Params{}, &out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out.Bytes(), []byte("repeatMode")) || !bytes.Contains(out.Bytes(), []byte("all")) {
		t.Errorf("table output:\n%s", out.String())
	}
}

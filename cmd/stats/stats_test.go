package stats

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gigurra/jukebox/cmd/common/apptest"
	"github.com/gigurra/jukebox/cmd/common/social"
)

func TestStats_Song(t *testing.T) {
	dir := apptest.Env(t)
	a := apptest.Open(t, dir)
	a.Library.RecordPlay(apptest.Bravo)
	a.Library.RecordPlay(apptest.Bravo)
	a.Library.AddListeningTime(apptest.Bravo, 42)
	a.Library.AddCompletion(apptest.Bravo)
	a.Vote(apptest.Bravo, social.Up)

	var out bytes.Buffer
	if err := Run(&Params{Catalog: dir, Song: "bravo", JSON: true}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var st SongStats
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if st.PlayCount != 2 || st.TotalTimePlayed != 42 || st.Completions != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Rating != 1 || st.Votes != 1 {
		t.Errorf("rating %d votes %d, want 1 and 1", st.Rating, st.Votes)
	}
	if st.DailyPlays[6] != 2 {
		t.Errorf("today's plays = %d, want 2", st.DailyPlays[6])
	}
}

func TestStats_TopAndReset(t *testing.T) {
	dir := apptest.Env(t)
	a := apptest.Open(t, dir)
	a.Library.RecordPlay(apptest.Alpha)
	a.Library.RecordPlay(apptest.Charlie)
	a.Library.RecordPlay(apptest.Charlie)

	var out bytes.Buffer
	if err := Run(&Params{Catalog: dir, Top: 10}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	if strings.Index(text, "Charlie") > strings.Index(text, "Alpha") {
		t.Errorf("Charlie should be listed before Alpha:\n%s", text)
	}

	if err := Run(&Params{Catalog: dir, Reset: true}, &bytes.Buffer{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out.Reset()
	if err := Run(&Params{Catalog: dir, Top: 10}, &out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Charlie") {
		t.Errorf("counts not reset:\n%s", out.String())
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		counts []int
		want   string
	}{
		{[]int{0, 0, 0}, "   "},
		{[]int{0, 1, 2}, " ▄█"},
		{[]int{4, 8}, "▄█"},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.counts); got != tt.want {
			t.Errorf("Sparkline(%v) = %q, want %q", tt.counts, got, tt.want)
		}
	}
}

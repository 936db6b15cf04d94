package backupfile

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gigurra/jukebox/cmd/common/library"
	"github.com/gigurra/jukebox/cmd/common/settings"
)

func sampleData() Data {
	s := settings.Default()
	s.Volume = 0.4
	s.RepeatMode = settings.RepeatOne
	return Data{
		Favorites: []string{"https://cdn.example/a.mp3", "https://cdn.example/b.mp3"},
		UserPlaylists: []library.Playlist{{
			ID:       "user-playlist-1",
			Name:     "Road trip",
			SongURLs: []string{"https://cdn.example/a.mp3"},
		}},
		Settings: s,
	}
}

func TestWriteRead_AllFormats(t *testing.T) {
	ctx := context.Background()
	for _, format := range Formats {
		for _, passphrase := range []string{"", "correct horse"} {
			name := string(format)
			if passphrase != "" {
				name += "+age"
			}
			t.Run(name, func(t *testing.T) {
				var buf bytes.Buffer
				opts := Options{Format: format, Passphrase: passphrase}
				if err := Write(ctx, &buf, sampleData(), opts); err != nil {
					t.Fatalf("Write: %v", err)
				}

				got, err := Read(ctx, bytes.NewReader(buf.Bytes()), passphrase)
				if err != nil {
					t.Fatalf("Read: %v", err)
				}
				if !slices.Equal(got.Favorites, sampleData().Favorites) {
					t.Errorf("favorites = %v", got.Favorites)
				}
				if len(got.Playlists) != 1 || got.Playlists[0].Name != "Road trip" {
					t.Errorf("playlists = %+v", got.Playlists)
				}
				if got.Settings == nil || got.Settings.Volume == nil || *got.Settings.Volume != 0.4 {
					t.Fatalf("settings = %+v", got.Settings)
				}
				if *got.Settings.RepeatMode != settings.RepeatOne {
					t.Errorf("repeat = %v", *got.Settings.RepeatMode)
				}
			})
		}
	}
}

func TestRead_Encrypted(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	if err := Write(ctx, &buf, sampleData(), Options{Passphrase: "secret"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := Read(ctx, bytes.NewReader(buf.Bytes()), ""); !errors.Is(err, ErrPassphraseRequired) {
		t.Errorf("no passphrase: err = %v, want %v", err, ErrPassphraseRequired)
	}
	if _, err := Read(ctx, bytes.NewReader(buf.Bytes()), "wrong"); err == nil {
		t.Errorf("wrong passphrase: expected error")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		wantErr       bool
		wantFavorites []string
		wantPlaylists int
		wantSettings  bool
	}{
		{
			name:    "not json",
			payload: "this is not a backup",
			wantErr: true,
		},
		{
			name:    "json array",
			payload: `["a","b"]`,
			wantErr: true,
		},
		{
			name:    "empty object",
			payload: `{}`,
		},
		{
			name:          "favorites not an array is ignored",
			payload:       `{"favorites":"a.mp3","userPlaylists":[{"id":"p","name":"P","songUrls":[]}]}`,
			wantPlaylists: 1,
		},
		{
			name:          "settings only",
			payload:       `{"settings":{"volume":0.2}}`,
			wantSettings:  true,
			wantFavorites: nil,
		},
		{
			name:          "null settings ignored",
			payload:       `{"favorites":["x"],"settings":null}`,
			wantFavorites: []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBackup) {
					t.Fatalf("err = %v, want %v", err, ErrInvalidBackup)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got.Favorites, tt.wantFavorites) {
				t.Errorf("favorites = %v, want %v", got.Favorites, tt.wantFavorites)
			}
			if len(got.Playlists) != tt.wantPlaylists {
				t.Errorf("playlists = %d, want %d", len(got.Playlists), tt.wantPlaylists)
			}
			if (got.Settings != nil) != tt.wantSettings {
				t.Errorf("settings present = %v, want %v", got.Settings != nil, tt.wantSettings)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		opts Options
		want string
	}{
		{Options{}, "deffys-jukebox-backup-2026-03-09.json"},
		{Options{Format: FormatGz}, "deffys-jukebox-backup-2026-03-09.json.gz"},
		{Options{Format: FormatZip}, "deffys-jukebox-backup-2026-03-09.zip"},
		{Options{Format: FormatTarGz, Passphrase: "x"}, "deffys-jukebox-backup-2026-03-09.tar.gz.age"},
	}
	for _, tt := range tests {
		if got := FileName(day, tt.opts); got != tt.want {
			t.Errorf("FileName(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("tar.gz"); err != nil || f != FormatTarGz {
		t.Errorf("ParseFormat(tar.gz) = %q, %v", f, err)
	}
	if _, err := ParseFormat("rar"); err == nil || !strings.Contains(err.Error(), "rar") {
		t.Errorf("ParseFormat(rar) err = %v", err)
	}
}

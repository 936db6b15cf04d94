// Package settings holds the persisted player settings.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gigurra/jukebox/cmd/common/store"
)

// RepeatMode controls what happens when a song ends.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Next cycles all -> one -> off -> all.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatAll:
		return RepeatOne
	case RepeatOne:
		return RepeatOff
	default:
		return RepeatAll
	}
}

// Label is the user-facing name used in toasts.
func (m RepeatMode) Label() string {
	switch m {
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Off"
	}
}

func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatOff, RepeatAll, RepeatOne:
		return m, nil
	}
	return "", fmt.Errorf("invalid repeat mode %q (want off, all or one)", s)
}

// EQBands are the equalizer band center frequencies in Hz.
var EQBands = []int{60, 170, 310, 600, 1000, 3000, 6000, 12000, 14000, 16000}

type Equalizer struct {
	Enabled bool      `json:"enabled"`
	Preamp  float64   `json:"preamp"`
	Bands   []float64 `json:"bands"`
	Preset  string    `json:"preset"`
}

// Settings is an immutable value; use Apply to derive a changed copy.
type Settings struct {
	Volume             float64    `json:"volume"`
	Muted              bool       `json:"isMuted"`
	RepeatMode         RepeatMode `json:"repeatMode"`
	Shuffled           bool       `json:"isShuffled"`
	Autoplay           bool       `json:"isAutoplayEnabled"`
	ViewMode           string     `json:"viewMode"`
	CrossfadeEnabled   bool       `json:"crossfadeEnabled"`
	CrossfadeDuration  float64    `json:"crossfadeDuration"`
	VisualizerEnabled  bool       `json:"visualizerEnabled"`
	VisualizerStyle    string     `json:"defaultVisualizerStyle"`
	VolumeControlStyle string     `json:"volumeControlStyle"`
	ReduceMotion       bool       `json:"reduceMotion"`
	Equalizer          Equalizer  `json:"equalizer"`
	SidebarCompact     bool       `json:"isSidebarCompact"`
	PlaybackRate       float64    `json:"playbackRate"`
	PlaylistsCollapsed bool       `json:"isPlaylistsCollapsed"`
	LibraryCollapsed   bool       `json:"isLibraryCollapsed"`
}

func Default() Settings {
	return Settings{
		Volume:             1,
		RepeatMode:         RepeatAll,
		Autoplay:           true,
		ViewMode:           "list",
		CrossfadeDuration:  4,
		VisualizerEnabled:  true,
		VisualizerStyle:    "bars",
		VolumeControlStyle: "horizontal",
		Equalizer: Equalizer{
			Bands:  make([]float64, len(EQBands)),
			Preset: "flat",
		},
		PlaybackRate: 1,
	}
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	Volume             *float64    `json:"volume,omitempty"`
	Muted              *bool       `json:"isMuted,omitempty"`
	RepeatMode         *RepeatMode `json:"repeatMode,omitempty"`
	Shuffled           *bool       `json:"isShuffled,omitempty"`
	Autoplay           *bool       `json:"isAutoplayEnabled,omitempty"`
	ViewMode           *string     `json:"viewMode,omitempty"`
	CrossfadeEnabled   *bool       `json:"crossfadeEnabled,omitempty"`
	CrossfadeDuration  *float64    `json:"crossfadeDuration,omitempty"`
	VisualizerEnabled  *bool       `json:"visualizerEnabled,omitempty"`
	VisualizerStyle    *string     `json:"defaultVisualizerStyle,omitempty"`
	VolumeControlStyle *string     `json:"volumeControlStyle,omitempty"`
	ReduceMotion       *bool       `json:"reduceMotion,omitempty"`
	Equalizer          *Equalizer  `json:"equalizer,omitempty"`
	PlaybackRate       *float64    `json:"playbackRate,omitempty"`
}

// Apply returns a copy of s with p merged over it. Numeric values are clamped
// to their valid ranges.
func (s Settings) Apply(p Patch) Settings {
	out := s
	out.Equalizer.Bands = slices.Clone(s.Equalizer.Bands)

	if p.Volume != nil {
		out.Volume = clamp(*p.Volume, 0, 1)
	}
	if p.Muted != nil {
		out.Muted = *p.Muted
	}
	if p.RepeatMode != nil {
		if _, err := ParseRepeatMode(string(*p.RepeatMode)); err == nil {
			out.RepeatMode = *p.RepeatMode
		}
	}
	if p.Shuffled != nil {
		out.Shuffled = *p.Shuffled
	}
	if p.Autoplay != nil {
		out.Autoplay = *p.Autoplay
	}
	if p.ViewMode != nil {
		out.ViewMode = *p.ViewMode
	}
	if p.CrossfadeEnabled != nil {
		out.CrossfadeEnabled = *p.CrossfadeEnabled
	}
	if p.CrossfadeDuration != nil {
		out.CrossfadeDuration = clamp(*p.CrossfadeDuration, 1, 12)
	}
	if p.VisualizerEnabled != nil {
		out.VisualizerEnabled = *p.VisualizerEnabled
	}
	if p.VisualizerStyle != nil {
		out.VisualizerStyle = *p.VisualizerStyle
	}
	if p.VolumeControlStyle != nil {
		out.VolumeControlStyle = *p.VolumeControlStyle
	}
	if p.ReduceMotion != nil {
		out.ReduceMotion = *p.ReduceMotion
	}
	if p.Equalizer != nil {
		out.Equalizer = normalizeEqualizer(*p.Equalizer)
	}
	if p.PlaybackRate != nil {
		out.PlaybackRate = clamp(*p.PlaybackRate, 0.25, 4)
	}
	return out
}

// EffectiveVolume is the output volume after muting.
func (s Settings) EffectiveVolume() float64 {
	if s.Muted {
		return 0
	}
	return s.Volume
}

func normalizeEqualizer(eq Equalizer) Equalizer {
	bands := make([]float64, len(EQBands))
	for i := range bands {
		if i < len(eq.Bands) {
			bands[i] = clamp(eq.Bands[i], -12, 12)
		}
	}
	eq.Bands = bands
	eq.Preamp = clamp(eq.Preamp, -12, 12)
	if eq.Preset == "" {
		eq.Preset = "custom"
	}
	return eq
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// Load returns the stored settings merged over Default. Fields absent from the
// stored document keep their default values.
func Load(s store.Store) Settings {
	def := Default()
	data, ok, err := s.Get(store.KeySettings)
	if err != nil {
		slog.Error("failed to read settings", "error", err)
		return def
	}
	if !ok {
		return def
	}

	merged := Default()
	if err := json.Unmarshal(data, &merged); err != nil {
		slog.Error("corrupt settings, using defaults", "error", err)
		return def
	}
	if _, err := ParseRepeatMode(string(merged.RepeatMode)); err != nil {
		merged.RepeatMode = def.RepeatMode
	}
	merged.Equalizer = normalizeEqualizerKeepPreset(merged.Equalizer)
	return merged
}

func normalizeEqualizerKeepPreset(eq Equalizer) Equalizer {
	preset := eq.Preset
	eq = normalizeEqualizer(eq)
	if preset == "" {
		eq.Preset = "flat"
	}
	return eq
}

func Save(s store.Store, v Settings) error {
	return store.Save(s, store.KeySettings, v)
}

package jukebox

import (
	"math"

	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// eqQ is the quality factor of each peaking band.
const eqQ = 1.41

// eqSections builds one peaking filter per non-flat band. A disabled
// equalizer has no sections.
func eqSections(eq settings.Equalizer) effects.MonoEqualizerSections {
	if !eq.Enabled {
		return nil
	}
	var out effects.MonoEqualizerSections
	for i, f := range settings.EQBands {
		if i >= len(eq.Bands) || eq.Bands[i] == 0 {
			continue
		}
		g := eq.Bands[i]
		out = append(out, effects.MonoEqualizerSection{
			F0: float64(f),
			Bf: float64(f) / eqQ,
			GB: g / 2,
			G:  g,
		})
	}
	return out
}

// preampGain converts a preamp level in dB to the extra gain of effects.Gain,
// which scales samples by 1+Gain. The preamp applies even when the bands are
// disabled.
func preampGain(db float64) float64 {
	return math.Pow(10, db/20) - 1
}

// tone runs src through the preamp and the equalizer bands. set swaps the
// chain and must be called under the speaker lock once streaming.
type tone struct {
	src beep.Streamer
	sr  beep.SampleRate
	out beep.Streamer
}

func newTone(src beep.Streamer, sr beep.SampleRate, eq settings.Equalizer) *tone {
	t := &tone{src: src, sr: sr}
	t.set(eq)
	return t
}

func (t *tone) set(eq settings.Equalizer) {
	out := t.src
	if g := preampGain(eq.Preamp); g != 0 {
		out = &effects.Gain{Streamer: out, Gain: g}
	}
	if sections := eqSections(eq); len(sections) > 0 {
		out = effects.NewEqualizer(out, t.sr, sections)
	}
	t.out = out
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	return t.out.Stream(samples)
}

func (t *tone) Err() error {
	return t.out.Err()
}

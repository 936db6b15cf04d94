//go:build (linux && cgo) || windows || darwin

package jukebox

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gigurra/jukebox/cmd/common/durations"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// player streams songs to the speaker using beep. Sources are fetched and
// decoded in the background; commands issued before the decode finishes are
// applied once it does.
type player struct {
	mu sync.Mutex

	client      *http.Client
	initialized bool
	sampleRate  beep.SampleRate

	loadID      uint64 // Incremented per Load, used to drop stale fetches
	url         string
	wantPlay    bool
	volume      float64
	eq          settings.Equalizer
	rate        float64
	pendingSeek float64 // applied once the source is decoded
	onEnd       func()

	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	tone      *tone
	ctrl      *beep.Ctrl
	gain      *effects.Volume
	drained   *atomic.Bool // set once the queued chain has played out
}

// NewPlayer creates the speaker-backed Audio.
func NewPlayer() Audio {
	return &player{
		client:     &http.Client{Timeout: 2 * time.Minute},
		sampleRate: beep.SampleRate(44100),
		volume:     1,
		rate:       1,
	}
}

func (p *player) initSpeaker() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *player) Load(url string, onEnd func()) error {
	p.mu.Lock()
	p.stopLocked()
	p.loadID++
	id := p.loadID
	p.url = url
	p.onEnd = onEnd
	p.pendingSeek = 0
	p.mu.Unlock()

	go p.fetch(id, url)
	return nil
}

func (p *player) fetch(id uint64, url string) {
	data, err := durations.Open(context.Background(), p.client, url)
	if err != nil {
		slog.Error("failed to fetch song", "url", url, "err", err)
		return
	}
	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		slog.Error("failed to decode song", "url", url, "err", err)
		return
	}
	if err := p.initSpeaker(); err != nil {
		streamer.Close()
		slog.Error("failed to initialize speaker", "err", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if id != p.loadID {
		streamer.Close()
		return
	}

	p.streamer = streamer
	p.format = format
	if p.pendingSeek > 0 {
		if err := streamer.Seek(p.samplesAt(p.pendingSeek)); err != nil {
			slog.Warn("failed to seek", "url", url, "err", err)
		}
		p.pendingSeek = 0
	}
	p.queueLocked()
}

// queueLocked builds the effect chain over the decoded source and hands it to
// the speaker. The speaker drops a chain once it has played out, so a source
// that ended is queued again with a fresh chain. Must be called with lock held.
func (p *player) queueLocked() {
	p.resampler = beep.ResampleRatio(4, p.ratioLocked(), p.streamer)
	p.tone = newTone(p.resampler, p.sampleRate, p.eq)
	p.ctrl = &beep.Ctrl{Streamer: p.tone, Paused: !p.wantPlay}
	p.gain = &effects.Volume{Streamer: p.ctrl, Base: 2}
	applyGain(p.gain, p.volume)

	drained := &atomic.Bool{}
	p.drained = drained
	onEnd := p.onEnd
	speaker.Play(beep.Seq(p.gain, beep.Callback(func() {
		drained.Store(true)
		if onEnd != nil {
			// Run in a separate goroutine, the callback may start the next song.
			go onEnd()
		}
	})))
}

// ratioLocked is the resampling ratio for the output rate and playback speed.
func (p *player) ratioLocked() float64 {
	return float64(p.format.SampleRate) / float64(p.sampleRate) * p.rate
}

// requeueLocked restarts a source that played out at the given position.
// Must be called with lock held.
func (p *player) requeueLocked(seconds float64) error {
	if err := p.streamer.Seek(p.samplesAt(seconds)); err != nil {
		return err
	}
	p.queueLocked()
	return nil
}

// applyGain maps a linear 0..1 volume onto the exponential beep gain.
func applyGain(v *effects.Volume, volume float64) {
	if volume <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(min(volume, 1))
}

func (p *player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.wantPlay = true
	if p.ctrl == nil {
		return nil
	}
	if p.drained.Load() {
		return p.requeueLocked(0)
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (p *player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.wantPlay = false
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (p *player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.loadID++
	p.url = ""
	p.onEnd = nil
}

// stopLocked must be called with lock held.
func (p *player) stopLocked() {
	if p.initialized {
		speaker.Clear()
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	p.resampler = nil
	p.tone = nil
	p.ctrl = nil
	p.gain = nil
	p.drained = nil
	p.wantPlay = false
}

func (p *player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		p.pendingSeek = max(seconds, 0)
		return nil
	}
	if p.drained.Load() {
		return p.requeueLocked(seconds)
	}

	speaker.Lock()
	defer speaker.Unlock()
	return p.streamer.Seek(p.samplesAt(seconds))
}

// samplesAt converts seconds to a valid stream position. Must be called with lock held.
func (p *player) samplesAt(seconds float64) int {
	samples := p.format.SampleRate.N(time.Duration(max(seconds, 0) * float64(time.Second)))
	return min(samples, p.streamer.Len())
}

func (p *player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = v
	if p.gain != nil {
		speaker.Lock()
		applyGain(p.gain, v)
		speaker.Unlock()
	}
}

func (p *player) SetEffects(eq settings.Equalizer, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.eq = eq
	p.rate = validRate(rate)
	if p.resampler != nil {
		speaker.Lock()
		p.resampler.SetRatio(p.ratioLocked())
		p.tone.set(eq)
		speaker.Unlock()
	}
}

func (p *player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()

	return p.format.SampleRate.D(pos).Seconds()
}

func (p *player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len()).Seconds()
}

func (p *player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.wantPlay
}

func (p *player) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamer != nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

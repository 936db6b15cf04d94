package jukebox

import (
	"sync"
	"time"

	"github.com/gigurra/jukebox/cmd/common/settings"
)

// Audio is the single output device owned by the Jukebox. Media operations
// are fire-and-forget: Load and Play return quickly and report asynchronous
// failures through logging, never by rolling back controller state.
type Audio interface {
	// Load replaces the current source. onEnd fires each time the source plays
	// to completion. Play after the end restarts the source from the top.
	Load(url string, onEnd func()) error
	Play() error
	Pause()
	Stop()
	Seek(seconds float64) error
	SetVolume(v float64)
	Volume() float64
	Position() float64
	// Duration is 0 until the source is decoded.
	Duration() float64
	Paused() bool
	Ready() bool
	// SetEffects applies the equalizer and the playback rate to the current
	// and all later sources.
	SetEffects(eq settings.Equalizer, rate float64)
}

// durationSetter is implemented by outputs that cannot measure a source
// themselves.
type durationSetter interface {
	SetDuration(seconds float64)
}

// Silent is an Audio that produces no sound. Position advances with the wall
// clock, scaled by the playback rate, while playing. A source whose duration
// was given with SetDuration ends there and fires its end-of-song callback.
type Silent struct {
	mu        sync.Mutex
	url       string
	volume    float64
	playing   bool
	ended     bool
	offset    float64
	startedAt time.Time
	duration  float64
	rate      float64
	eq        settings.Equalizer
	onEnd     func()
}

func NewSilent() *Silent {
	return &Silent{volume: 1, rate: 1}
}

func (s *Silent) Load(url string, onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.onEnd = onEnd
	s.playing = false
	s.ended = false
	s.offset = 0
	s.duration = 0
	return nil
}

// SetDuration sets the length of the loaded source.
func (s *Silent) SetDuration(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = max(seconds, 0)
}

// Play starts the clock. A source that already ended restarts from the top.
func (s *Silent) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		s.ended = false
		s.offset = 0
	}
	if !s.playing {
		s.playing = true
		s.startedAt = time.Now()
	}
	return nil
}

func (s *Silent) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = s.positionLocked()
	s.playing = false
}

func (s *Silent) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = ""
	s.onEnd = nil
	s.playing = false
	s.ended = false
	s.offset = 0
	s.duration = 0
}

func (s *Silent) Seek(seconds float64) error {
	s.mu.Lock()
	s.offset = max(seconds, 0)
	s.startedAt = time.Now()
	s.ended = false
	end := s.reachedEndLocked()
	s.mu.Unlock()
	fire(end)
	return nil
}

func (s *Silent) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *Silent) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Position reports the clock and ends the source once it reaches the
// duration.
func (s *Silent) Position() float64 {
	s.mu.Lock()
	end := s.reachedEndLocked()
	pos := s.positionLocked()
	s.mu.Unlock()
	fire(end)
	return pos
}

func (s *Silent) positionLocked() float64 {
	pos := s.offset
	if s.playing {
		pos += time.Since(s.startedAt).Seconds() * s.rate
	}
	if s.duration > 0 {
		pos = min(pos, s.duration)
	}
	return pos
}

// reachedEndLocked stops the clock at the end of a source with a known
// duration and returns the callback to fire. Must be called with lock held.
func (s *Silent) reachedEndLocked() func() {
	if !s.playing || s.duration <= 0 || s.positionLocked() < s.duration {
		return nil
	}
	s.offset = s.duration
	s.playing = false
	s.ended = true
	return s.onEnd
}

// fire runs an end-of-song callback in its own goroutine, the callback may
// call back into the controller that is reading the clock.
func fire(onEnd func()) {
	if onEnd != nil {
		go onEnd()
	}
}

func (s *Silent) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Silent) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.playing
}

func (s *Silent) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url != ""
}

func (s *Silent) SetEffects(eq settings.Equalizer, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.offset = s.positionLocked()
		s.startedAt = time.Now()
	}
	s.eq = eq
	s.rate = validRate(rate)
}

// Effects returns the equalizer and playback rate last applied.
func (s *Silent) Effects() (settings.Equalizer, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eq, s.rate
}

// End fires the end-of-song callback as if the source had run out.
func (s *Silent) End() {
	s.mu.Lock()
	onEnd := s.onEnd
	s.playing = false
	s.ended = true
	s.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

func validRate(rate float64) float64 {
	if rate <= 0 {
		return 1
	}
	return rate
}

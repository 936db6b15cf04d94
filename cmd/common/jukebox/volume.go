package jukebox

import (
	"time"

	"github.com/gigurra/jukebox/cmd/common/settings"
)

// Ramp interpolates a volume towards a target in fixed steps.
type Ramp struct {
	current float64
	target  float64
	step    float64
}

// NewRamp prepares a ramp from start to target lasting d, one step per tick.
func NewRamp(start, target float64, d, tick time.Duration) *Ramp {
	steps := float64(d) / float64(tick)
	if steps < 1 {
		steps = 1
	}
	return &Ramp{current: start, target: target, step: (target - start) / steps}
}

// Step advances one tick and reports the new volume, clamping to the target
// once the next value would cross it.
func (r *Ramp) Step() (volume float64, done bool) {
	next := r.current + r.step
	if r.step == 0 || (r.step > 0 && next >= r.target) || (r.step < 0 && next <= r.target) {
		r.current = r.target
		return r.target, true
	}
	r.current = next
	return next, false
}

// SetVolume ramps to v and persists it.
func (j *Jukebox) SetVolume(v float64) {
	j.UpdateSettings(settings.Patch{Volume: &v})
}

// SetMuted ramps to silence or back and persists the flag.
func (j *Jukebox) SetMuted(muted bool) {
	j.UpdateSettings(settings.Patch{Muted: &muted})
}

// startRampLocked cancels any running ramp and starts a new one.
// Must be called with lock held.
func (j *Jukebox) startRampLocked(start, target float64, d time.Duration) {
	j.cancelRampLocked()
	j.audio.SetVolume(start)
	if start == target {
		return
	}

	stop := make(chan struct{})
	j.rampStop = stop
	go j.runRamp(NewRamp(start, target, d, rampTick), stop)
}

// cancelRampLocked must be called with lock held.
func (j *Jukebox) cancelRampLocked() {
	if j.rampStop != nil {
		close(j.rampStop)
		j.rampStop = nil
	}
}

func (j *Jukebox) runRamp(r *Ramp, stop chan struct{}) {
	ticker := time.NewTicker(rampTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		j.mu.Lock()
		select {
		case <-stop:
			j.mu.Unlock()
			return
		default:
		}
		v, done := r.Step()
		j.audio.SetVolume(v)
		if done && j.rampStop == stop {
			j.rampStop = nil
		}
		j.mu.Unlock()

		if done {
			return
		}
	}
}

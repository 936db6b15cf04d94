//go:build !((linux && cgo) || windows || darwin)

package jukebox

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// NewPlayer returns a silent Audio when cgo is disabled.
// Playback state and stats still work, just without sound.
func NewPlayer() Audio {
	return NewSilent()
}

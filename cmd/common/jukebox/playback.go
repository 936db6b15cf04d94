package jukebox

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gigurra/jukebox/cmd/common/social"
	"github.com/gigurra/jukebox/cmd/common/store"
)

// PlaySong makes song current and starts it. A nil song stops playback and
// returns to idle. autoplay marks automatic transitions, which crossfade in
// when crossfading is enabled.
func (j *Jukebox) PlaySong(song *catalog.Song, autoplay bool) {
	j.update(func() { j.playSongLocked(song, autoplay) })
}

// playSongLocked must be called with lock held.
func (j *Jukebox) playSongLocked(song *catalog.Song, autoplay bool) {
	j.flushLocked()
	j.votePrompt = nil
	j.changed()

	if song == nil {
		j.current = nil
		j.isPlaying = false
		j.playbackID++
		j.cancelRampLocked()
		j.audio.Stop()
		return
	}

	url := song.URL
	j.stats.RecordPlay(url)
	if j.isReplayLocked(url) {
		j.events.Log(social.EventReplay, url)
	} else {
		j.events.Log(social.EventPlay, url)
	}

	current := *song
	j.current = &current
	j.session = sessionStats{url: url}
	j.isPlaying = true

	j.playbackID++
	currentID := j.playbackID
	if err := j.audio.Load(url, func() { j.onSongFinished(currentID) }); err != nil {
		slog.Error("failed to load song", "url", url, "err", err)
	}
	if d, ok := j.audio.(durationSetter); ok && song.HasDuration() {
		d.SetDuration(song.Duration)
	}

	target := j.settings.EffectiveVolume()
	if autoplay && j.settings.CrossfadeEnabled {
		j.startRampLocked(0, target, secondsToDuration(j.settings.CrossfadeDuration))
	} else {
		j.cancelRampLocked()
		j.audio.SetVolume(target)
	}
	if err := j.audio.Play(); err != nil {
		// Intent wins: isPlaying stays true.
		slog.Error("playback failed", "url", url, "err", err)
	}
}

func (j *Jukebox) isReplayLocked(url string) bool {
	if j.lastFinished == nil || j.lastFinished.URL != url {
		return false
	}
	return j.now().UnixMilli()-j.lastFinished.Timestamp <= ReplayWindow.Milliseconds()
}

// TogglePlayPause starts the main playlist when idle, otherwise flips
// between playing and paused. Any pending vote prompt is dismissed.
func (j *Jukebox) TogglePlayPause() {
	j.update(func() {
		if j.votePrompt != nil {
			j.votePrompt = nil
			j.changed()
		}
		if j.current == nil {
			if len(j.mainPlaylist) > 0 {
				first := j.mainPlaylist[0]
				j.playSongLocked(&first, false)
			}
			return
		}
		if j.isPlaying {
			j.pauseLocked()
		} else {
			j.resumeLocked()
		}
	})
}

// Pause pauses the current song.
func (j *Jukebox) Pause() {
	j.update(func() {
		if j.current != nil && j.isPlaying {
			j.pauseLocked()
		}
	})
}

// Resume resumes the current song, or starts the main playlist when idle.
func (j *Jukebox) Resume() {
	j.update(func() {
		switch {
		case j.current == nil && len(j.mainPlaylist) > 0:
			first := j.mainPlaylist[0]
			j.playSongLocked(&first, false)
		case j.current != nil && !j.isPlaying:
			j.resumeLocked()
		}
	})
}

func (j *Jukebox) pauseLocked() {
	j.audio.Pause()
	j.isPlaying = false
	j.changed()
}

func (j *Jukebox) resumeLocked() {
	if err := j.audio.Play(); err != nil {
		slog.Error("playback failed", "url", j.current.URL, "err", err)
	}
	j.isPlaying = true
	j.changed()
}

// Next plays the following song of the main playlist, wrapping at the end
// regardless of repeat mode.
func (j *Jukebox) Next() {
	j.update(j.nextLocked)
}

func (j *Jukebox) nextLocked() {
	n := len(j.mainPlaylist)
	if n == 0 {
		return
	}
	next := 0
	if i := j.indexLocked(); i != -1 {
		next = (i + 1) % n
	}
	song := j.mainPlaylist[next]
	j.playSongLocked(&song, true)
}

// Prev plays the preceding song of the main playlist, wrapping at the start.
func (j *Jukebox) Prev() {
	j.update(func() {
		n := len(j.mainPlaylist)
		if n == 0 {
			return
		}
		prev := n - 1
		if i := j.indexLocked(); i != -1 {
			prev = (i - 1 + n) % n
		}
		song := j.mainPlaylist[prev]
		j.playSongLocked(&song, false)
	})
}

// indexLocked returns the index of the current song in the main playlist, or -1.
func (j *Jukebox) indexLocked() int {
	if j.current == nil {
		return -1
	}
	for i, s := range j.mainPlaylist {
		if s.URL == j.current.URL {
			return i
		}
	}
	return -1
}

// Seek moves the playback position of the current song.
func (j *Jukebox) Seek(seconds float64) {
	j.update(func() {
		if j.current == nil {
			return
		}
		if err := j.audio.Seek(max(seconds, 0)); err != nil {
			slog.Error("seek failed", "url", j.current.URL, "err", err)
		}
		j.changed()
	})
}

// onSongFinished is called when a song finishes playing.
// The id parameter is used to ignore stale callbacks from songs that were
// skipped or replaced by manual user actions.
func (j *Jukebox) onSongFinished(id uint64) {
	j.update(func() {
		if id != j.playbackID {
			return
		}
		j.songEndLocked()
	})
}

// OnSongEnd handles the current song running out.
func (j *Jukebox) OnSongEnd() {
	j.update(j.songEndLocked)
}

func (j *Jukebox) songEndLocked() {
	if j.closed {
		return
	}
	if j.current != nil {
		url := j.current.URL
		j.stats.AddCompletion(url)
		j.events.Log(social.EventFinish, url)
		j.lastFinished = &finishRecord{URL: url, Timestamp: j.now().UnixMilli()}
		store.SaveOrLog(j.store, store.KeyLastFinished, j.lastFinished)
	}

	if j.settings.RepeatMode == settings.RepeatOne && j.current != nil {
		song := *j.current
		j.playSongLocked(&song, false)
		return
	}

	// The prompt only lingers when playback stops, the next song clears it.
	if j.current != nil {
		prompt := *j.current
		j.votePrompt = &prompt
		j.emit(Event{Kind: EventVotePrompt, Song: &prompt})
	}

	if !j.settings.Autoplay {
		j.stopLocked()
		return
	}

	if len(j.queue) > 0 {
		head := j.queue[0]
		j.queue = j.queue[1:]
		j.saveQueueLocked()
		j.playSongLocked(&head, true)
		return
	}

	i := j.indexLocked()
	if j.settings.RepeatMode == settings.RepeatAll || (i != -1 && i < len(j.mainPlaylist)-1) {
		j.nextLocked()
		return
	}
	j.stopLocked()
}

// stopLocked ends playback but keeps the current song.
func (j *Jukebox) stopLocked() {
	j.isPlaying = false
	j.audio.Pause()
	j.changed()
}

// OnTimeUpdate accrues listening time and applies the crossfade-out for the
// given audio position in seconds.
func (j *Jukebox) OnTimeUpdate(position float64) {
	j.update(func() { j.timeUpdateLocked(position) })
}

func (j *Jukebox) timeUpdateLocked(position float64) {
	if j.current == nil || !j.isPlaying {
		return
	}
	if j.session.url == j.current.URL && !j.audio.Paused() {
		diff := position - j.session.lastTime
		if diff > 0 && diff < maxAccrualStep {
			j.session.timePlayed += diff
		}
		j.session.lastTime = position
	}

	if j.settings.CrossfadeEnabled {
		duration := j.audio.Duration()
		remaining := duration - position
		if duration > 0 && remaining <= j.settings.CrossfadeDuration {
			fade := max(remaining/j.settings.CrossfadeDuration, 0)
			j.audio.SetVolume(j.settings.EffectiveVolume() * fade)
		}
	}
}

// RunClock feeds the audio position into OnTimeUpdate until ctx is done.
func (j *Jukebox) RunClock(ctx context.Context) {
	ticker := time.NewTicker(ClockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.update(func() {
				if j.current != nil && !j.closed {
					j.timeUpdateLocked(j.audio.Position())
				}
			})
		}
	}
}

// flushLocked merges accrued listening time into the stats. Safe to call
// repeatedly.
func (j *Jukebox) flushLocked() {
	if j.session.url != "" && j.session.timePlayed > 0 {
		j.stats.AddListeningTime(j.session.url, j.session.timePlayed)
	}
	j.session.timePlayed = 0
}

// FlushStats persists the listening time accrued so far.
func (j *Jukebox) FlushStats() {
	j.update(j.flushLocked)
}

// DismissVotePrompt clears a pending vote prompt.
func (j *Jukebox) DismissVotePrompt() {
	j.update(func() {
		if j.votePrompt != nil {
			j.votePrompt = nil
			j.changed()
		}
	})
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

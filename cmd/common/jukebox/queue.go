package jukebox

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gigurra/jukebox/cmd/common/catalog"
	"github.com/gigurra/jukebox/cmd/common/settings"
	"github.com/gigurra/jukebox/cmd/common/store"
	"github.com/samber/lo"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// SetPlaylist installs the filtered and sorted song list backing the main
// playlist. The main playlist is a fresh shuffle of it while shuffle is on.
func (j *Jukebox) SetPlaylist(songs []catalog.Song) {
	j.update(func() {
		j.sorted = cloneSongs(songs)
		j.recomputeLocked()
		j.changed()
	})
}

// recomputeLocked must be called with lock held.
func (j *Jukebox) recomputeLocked() {
	if j.settings.Shuffled {
		j.mainPlaylist = catalog.Shuffle(j.sorted, j.rng)
	} else {
		j.mainPlaylist = cloneSongs(j.sorted)
	}
}

// PlayAll replaces the main playlist with songs, shuffled when shuffle is on,
// clears the queue and starts the first song.
func (j *Jukebox) PlayAll(songs []catalog.Song) {
	if len(songs) == 0 {
		return
	}
	j.update(func() {
		list := cloneSongs(songs)
		if j.settings.Shuffled {
			list = catalog.Shuffle(list, j.rng)
		}
		j.mainPlaylist = list
		j.queue = nil
		j.saveQueueLocked()
		first := list[0]
		j.playSongLocked(&first, false)
		j.toast(fmt.Sprintf("Now playing %d songs", len(list)))
	})
}

// Select plays song immediately, dropping it from the queue first.
func (j *Jukebox) Select(song catalog.Song) {
	j.update(func() {
		j.queue = lo.Filter(j.queue, func(s catalog.Song, _ int) bool { return s.URL != song.URL })
		j.saveQueueLocked()
		j.playSongLocked(&song, false)
	})
}

// ToggleShuffle flips shuffle and returns the new state.
func (j *Jukebox) ToggleShuffle() bool {
	var on bool
	j.update(func() {
		on = !j.settings.Shuffled
		j.applySettingsLocked(patchShuffled(on))
		if on {
			j.toast("Shuffle On")
		} else {
			j.toast("Shuffle Off")
		}
	})
	return on
}

// SetShuffle sets shuffle without a notification.
func (j *Jukebox) SetShuffle(on bool) {
	j.update(func() {
		if j.settings.Shuffled != on {
			j.applySettingsLocked(patchShuffled(on))
		}
	})
}

// CycleRepeatMode advances all, one, off and returns the new mode.
func (j *Jukebox) CycleRepeatMode() settings.RepeatMode {
	var mode settings.RepeatMode
	j.update(func() {
		mode = j.settings.RepeatMode.Next()
		j.applySettingsLocked(settings.Patch{RepeatMode: &mode})
		j.toast("Repeat: " + mode.Label())
	})
	return mode
}

// SetRepeatMode sets the repeat mode.
func (j *Jukebox) SetRepeatMode(mode settings.RepeatMode) {
	j.update(func() {
		j.applySettingsLocked(settings.Patch{RepeatMode: &mode})
	})
}

// SetAutoplay enables or disables advancing after a song ends.
func (j *Jukebox) SetAutoplay(on bool) {
	j.UpdateSettings(settings.Patch{Autoplay: &on})
}

// SetCrossfade configures crossfading between automatic transitions.
func (j *Jukebox) SetCrossfade(on bool, seconds float64) {
	j.UpdateSettings(settings.Patch{CrossfadeEnabled: &on, CrossfadeDuration: &seconds})
}

func patchShuffled(on bool) settings.Patch {
	return settings.Patch{Shuffled: &on}
}

// EnqueueNext puts songs at the head of the queue in the given order,
// moving any that were already queued.
func (j *Jukebox) EnqueueNext(songs []catalog.Song) {
	if len(songs) == 0 {
		return
	}
	j.update(func() {
		j.queue = append(cloneSongs(songs), withoutSongs(j.queue, songs)...)
		j.saveQueueLocked()
		if len(songs) > 1 {
			j.toast(fmt.Sprintf("%d songs will play next", len(songs)))
		} else {
			j.toast(fmt.Sprintf("\"%s\" will play next", songs[0].Title))
		}
		j.changed()
	})
}

// AppendToQueue moves songs to the tail of the queue.
func (j *Jukebox) AppendToQueue(songs []catalog.Song) {
	if len(songs) == 0 {
		return
	}
	j.update(func() {
		j.queue = append(withoutSongs(j.queue, songs), songs...)
		j.saveQueueLocked()
		if len(songs) > 1 {
			j.toast(fmt.Sprintf("%d songs added to queue", len(songs)))
		} else {
			j.toast(fmt.Sprintf("\"%s\" added to queue", songs[0].Title))
		}
		j.changed()
	})
}

// RemoveFromQueue drops every queued occurrence of url.
func (j *Jukebox) RemoveFromQueue(url string) {
	j.update(func() {
		j.queue = lo.Filter(j.queue, func(s catalog.Song, _ int) bool { return s.URL != url })
		j.saveQueueLocked()
		j.changed()
	})
}

// ReorderQueue moves the queued song at from to position to.
func (j *Jukebox) ReorderQueue(from, to int) error {
	var err error
	j.update(func() {
		if from < 0 || from >= len(j.queue) || to < 0 || to >= len(j.queue) {
			err = ErrIndexOutOfRange
			return
		}
		song := j.queue[from]
		j.queue = slices.Insert(slices.Delete(j.queue, from, from+1), to, song)
		j.saveQueueLocked()
		j.changed()
	})
	return err
}

// ClearQueue empties the queue.
func (j *Jukebox) ClearQueue() {
	j.update(func() {
		j.queue = nil
		j.saveQueueLocked()
		j.changed()
	})
}

// Queue returns a copy of the up-next queue.
func (j *Jukebox) Queue() []catalog.Song {
	j.mu.Lock()
	defer j.mu.Unlock()
	return cloneSongs(j.queue)
}

// saveQueueLocked must be called with lock held.
func (j *Jukebox) saveQueueLocked() {
	store.SaveOrLog(j.store, store.KeyUpNext, cloneSongs(j.queue))
}

func withoutSongs(queue, songs []catalog.Song) []catalog.Song {
	urls := lo.SliceToMap(songs, func(s catalog.Song) (string, bool) { return s.URL, true })
	return lo.Filter(queue, func(s catalog.Song, _ int) bool { return !urls[s.URL] })
}

// Package player provides the uniform start/stop/seek surface over a track's
// underlying audio-rendering mechanism, plus the concrete adapters for sample
// clips, instrument sequences and grain playback.
package player

import (
	"errors"
	"math"
)

var (
	// ErrNoSource is returned when a track's audio source is not available
	// yet (clip not decoded, engine without data).
	ErrNoSource = errors.New("player: no audio source")
	// ErrAlreadyStarted is returned when Start is called without an
	// intervening Stop. Start always implies a prior stop+unsync.
	ErrAlreadyStarted = errors.New("player: adapter already started")
)

// Adapter is the per-track playback surface. An adapter is "synced" when the
// transport is playing and its track's offset has elapsed; it renders audio
// only while both started and synced. Run state is written only by the
// scheduling side, never by the adapter itself.
type Adapter interface {
	// Start begins playback at host time at, fromOffset seconds into the
	// track's audible range. The adapter must be stopped and unsynced.
	Start(at, fromOffset float64) error
	Stop() error
	Sync()
	Unsync()
	// Seek repositions the internal pointer without changing run state.
	Seek(offset float64) error
	SetVolume(db float64)
	Started() bool
	// BufferDuration reports the underlying source duration in seconds.
	// ok is false when no source is attached.
	BufferDuration() (seconds float64, ok bool)
}

// AuxEngine is a specialized playback controller that mirrors transport
// transitions in lockstep with the adapters: instrument-sequence and
// grain-sample engines.
type AuxEngine interface {
	Play(fromSeconds, bpm float64) error
	Pause()
	Stop()
	Seek(pos, bpm float64)
	SetGlobalTempo(bpm float64)
}

// SilenceDB is the volume floor; GainFromDB maps it to zero gain.
const SilenceDB = -96.0

// VolumeToDB maps the editor's 0-100 track volume to decibels. Zero maps to
// the silence floor rather than negative infinity.
func VolumeToDB(volume int) float64 {
	if volume <= 0 {
		return SilenceDB
	}
	if volume > 100 {
		volume = 100
	}
	return 20 * math.Log10(float64(volume)/100)
}

// GainFromDB converts decibels to a linear gain factor.
func GainFromDB(db float64) float32 {
	if db <= SilenceDB {
		return 0
	}
	return float32(math.Pow(10, db/20))
}

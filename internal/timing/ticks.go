// Package timing converts tick-addressed timeline positions to transport
// seconds. Conversions are pure; callers must not cache a result across a
// tempo change.
package timing

// TicksPerBeat is the timeline resolution. A bar of 4/4 is 4*TicksPerBeat.
const TicksPerBeat = 480

// TicksToSeconds returns the transport offset in seconds for a position
// expressed in ticks at the given tempo.
func TicksToSeconds(ticks int, bpm float64) float64 {
	if ticks <= 0 || bpm <= 0 {
		return 0
	}
	return float64(ticks) / TicksPerBeat * 60.0 / bpm
}

// SecondsToTicks is the inverse of TicksToSeconds, rounded to the nearest
// tick.
func SecondsToTicks(seconds, bpm float64) int {
	if seconds <= 0 || bpm <= 0 {
		return 0
	}
	return int(seconds*bpm/60.0*TicksPerBeat + 0.5)
}

// BeatSeconds returns the duration of one beat at the given tempo.
func BeatSeconds(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return 60.0 / bpm
}

// Package transport holds the shared clock every track aligns to. The clock
// keeps two timelines: a host timeline that always advances with the render
// loop, and a transport timeline that advances only while playing. Fade and
// settle timers run on the host timeline; deferred track starts run on the
// transport timeline.
package transport

import "sort"

// Handle identifies a scheduled callback for cancellation.
type Handle int

// State is the transport run state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Tempo bounds. Out-of-range values are clamped, never rejected.
const (
	MinBPM = 1.0
	MaxBPM = 999.0
)

// ClampTempo clamps a tempo to the supported range.
func ClampTempo(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

type event struct {
	handle Handle
	at     float64
	host   bool // host timeline rather than transport timeline
	fn     func()
}

// Clock is the single source of truth for position, tempo and run state.
// It is not safe for concurrent use; the owning engine serializes access.
type Clock struct {
	host   float64
	pos    float64
	bpm    float64
	state  State
	nextID Handle
	events []event
}

func NewClock(bpm float64) *Clock {
	return &Clock{bpm: ClampTempo(bpm)}
}

// Now returns the host time in seconds. It advances even while paused.
func (c *Clock) Now() float64 { return c.host }

// Position returns the transport position in seconds.
func (c *Clock) Position() float64 { return c.pos }

func (c *Clock) SetPosition(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	c.pos = seconds
}

func (c *Clock) Tempo() float64 { return c.bpm }

// SetTempo clamps and applies a tempo, returning the value in effect.
func (c *Clock) SetTempo(bpm float64) float64 {
	c.bpm = ClampTempo(bpm)
	return c.bpm
}

func (c *Clock) State() State { return c.state }

func (c *Clock) Running() bool { return c.state == Playing }

func (c *Clock) Start() { c.state = Playing }

func (c *Clock) Pause() { c.state = Paused }

// Stop halts the transport and resets the position to zero.
func (c *Clock) Stop() {
	c.state = Stopped
	c.pos = 0
}

// ScheduleAt registers a callback against the transport timeline. It fires
// once the transport position reaches at while the clock is playing.
func (c *Clock) ScheduleAt(fn func(), at float64) Handle {
	return c.add(fn, at, false)
}

// ScheduleAfter registers a callback on the host timeline, delay seconds from
// now. It fires regardless of run state.
func (c *Clock) ScheduleAfter(fn func(), delay float64) Handle {
	return c.add(fn, c.host+delay, true)
}

func (c *Clock) add(fn func(), at float64, host bool) Handle {
	c.nextID++
	c.events = append(c.events, event{handle: c.nextID, at: at, host: host, fn: fn})
	return c.nextID
}

// Cancel removes a scheduled callback. Unknown handles are ignored.
func (c *Clock) Cancel(h Handle) {
	for i := range c.events {
		if c.events[i].handle == h {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return
		}
	}
}

// PendingCount reports how many callbacks are outstanding on both timelines.
func (c *Clock) PendingCount() int { return len(c.events) }

// Advance moves the host timeline (and the transport timeline, when playing)
// forward by dt seconds and fires every callback that became due. Due
// callbacks are detached from the queue before any of them runs, so a
// callback that schedules or cancels cannot disturb the rest of the batch.
func (c *Clock) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	c.host += dt
	if c.state == Playing {
		c.pos += dt
	}
	var due []event
	remaining := c.events[:0]
	for _, ev := range c.events {
		fires := ev.at <= c.host
		if !ev.host {
			fires = c.state == Playing && ev.at <= c.pos
		}
		if fires {
			due = append(due, ev)
		} else {
			remaining = append(remaining, ev)
		}
	}
	c.events = remaining
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, ev := range due {
		ev.fn()
	}
}

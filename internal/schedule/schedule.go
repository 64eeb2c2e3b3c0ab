// Package schedule decides, per track, whether playback starts immediately
// or is deferred to a future transport position. Deferred work is plain data
// (track id + fire time) dispatched through one dispatcher function, so
// cancellation is deterministic. The outstanding set is always drained before
// new events are created.
package schedule

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/cbegin/multitrack-go/internal/timing"
	"github.com/cbegin/multitrack-go/internal/transport"
)

// StartFunc starts one track's adapter at a local offset past its trim
// start. Failures are handled (logged, track silent) by the dispatcher.
type StartFunc func(trackID string, localOffset float64)

// Placement is one track's scheduling input for a cycle. Trim bounds arrive
// normalized: 0 <= TrimStart < TrimEnd.
type Placement struct {
	TrackID       string
	PositionTicks int
	TrimStart     float64
	TrimEnd       float64
}

// Decision reports how a placement was resolved.
type Decision int

const (
	// Immediate: the track's offset has already elapsed; it was started now.
	Immediate Decision = iota
	// Deferred: a start event was registered at the track's offset.
	Deferred
	// Skipped: the trim window excludes any audible content this cycle.
	Skipped
)

// Event is one outstanding deferred start. FireAt is the logical transport
// offset; the clock event carries a small safety buffer past it.
type Event struct {
	Handle  transport.Handle
	TrackID string
	FireAt  float64
}

type Scheduler struct {
	clock    *transport.Clock
	log      zerolog.Logger
	buffer   float64
	dispatch StartFunc
	pending  map[transport.Handle]Event
}

// New creates a scheduler. startBuffer pads deferred fire times to avoid a
// race against the clock's own start; the dispatched local offset is
// recomputed at fire time, so the pad never causes drift.
func New(clock *transport.Clock, log zerolog.Logger, startBuffer float64, dispatch StartFunc) *Scheduler {
	return &Scheduler{
		clock:    clock,
		log:      log,
		buffer:   startBuffer,
		dispatch: dispatch,
		pending:  make(map[transport.Handle]Event),
	}
}

// Place resolves one track against the current position and tempo: exactly
// one of start-now, defer, or skip.
func (s *Scheduler) Place(p Placement, position, bpm float64) Decision {
	offset := timing.TicksToSeconds(p.PositionTicks, bpm)
	length := p.TrimEnd - p.TrimStart
	if offset <= position {
		local := position - offset
		if local >= length {
			s.log.Debug().Str("track", p.TrackID).Float64("local", local).
				Msg("trim window already elapsed, skipping")
			return Skipped
		}
		s.dispatch(p.TrackID, local)
		return Immediate
	}
	if length <= 0 {
		// Trim excludes everything a future start could play; the event is
		// never registered.
		return Skipped
	}
	var h transport.Handle
	h = s.clock.ScheduleAt(func() { s.fire(h) }, offset+s.buffer)
	s.pending[h] = Event{Handle: h, TrackID: p.TrackID, FireAt: offset}
	s.log.Debug().Str("track", p.TrackID).Float64("fireAt", offset).
		Msg("deferred start registered")
	return Deferred
}

func (s *Scheduler) fire(h transport.Handle) {
	ev, ok := s.pending[h]
	if !ok {
		return
	}
	delete(s.pending, h)
	local := s.clock.Position() - ev.FireAt
	if local < 0 {
		local = 0
	}
	s.dispatch(ev.TrackID, local)
}

// CancelAll drains the outstanding set. Every transport transition calls
// this before creating new events; there is no partial cancel.
func (s *Scheduler) CancelAll() {
	for h := range s.pending {
		s.clock.Cancel(h)
		delete(s.pending, h)
	}
}

// CancelTrack removes any pending start for one track (track deletion).
func (s *Scheduler) CancelTrack(trackID string) {
	for h, ev := range s.pending {
		if ev.TrackID == trackID {
			s.clock.Cancel(h)
			delete(s.pending, h)
		}
	}
}

// Pending returns the outstanding deferred starts, ordered by fire time.
func (s *Scheduler) Pending() []Event {
	out := make([]Event, 0, len(s.pending))
	for _, ev := range s.pending {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt < out[j].FireAt })
	return out
}

func (s *Scheduler) PendingCount() int { return len(s.pending) }

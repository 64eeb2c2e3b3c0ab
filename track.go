package multitrack

import (
	"errors"
	"fmt"

	"github.com/cbegin/multitrack-go/internal/timing"
)

// TrackID is an opaque track identifier assigned by the host.
type TrackID string

// TrackKind selects the underlying audio-rendering mechanism.
type TrackKind int

const (
	KindSample TrackKind = iota
	KindSequence
	KindGrain
)

func (k TrackKind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindGrain:
		return "grain"
	default:
		return "sample"
	}
}

// Track is the scheduling view of one timeline track. The engine holds
// id-keyed, non-owning references; note and sample data live with the host.
type Track struct {
	ID            TrackID
	Kind          TrackKind
	PositionTicks int     // timeline position, >= 0
	Duration      float64 // source duration in seconds
	TrimStart     float64 // audible sub-range; 0 <= start < end <= Duration
	TrimEnd       float64 // zero means the full duration
	Volume        int     // 0-100
	Muted         bool
}

func (t *Track) Validate() error {
	if t.ID == "" {
		return errors.New("track: empty id")
	}
	if t.PositionTicks < 0 {
		return fmt.Errorf("track %s: negative position", t.ID)
	}
	start, end := t.TrimBounds()
	if start < 0 || start >= end || end > t.Duration {
		return fmt.Errorf("track %s: invalid trim bounds [%v, %v] for duration %v", t.ID, start, end, t.Duration)
	}
	return nil
}

// TrimBounds returns the audible sub-range, normalizing a zero TrimEnd to
// the full duration.
func (t *Track) TrimBounds() (start, end float64) {
	end = t.TrimEnd
	if end <= 0 {
		end = t.Duration
	}
	return t.TrimStart, end
}

// TrimmedLength is the audible length in seconds.
func (t *Track) TrimmedLength() float64 {
	start, end := t.TrimBounds()
	return end - start
}

// OffsetSeconds is the transport offset at which the track begins, at the
// given tempo. Recomputed on every call; never cached across a tempo change.
func (t *Track) OffsetSeconds(bpm float64) float64 {
	return timing.TicksToSeconds(t.PositionTicks, bpm)
}

// EndSeconds is the transport time at which the track's audible range ends.
func (t *Track) EndSeconds(bpm float64) float64 {
	return t.OffsetSeconds(bpm) + t.TrimmedLength()
}

// TrackRegistry is the read surface the engine schedules from. The track
// list is owned outside the core.
type TrackRegistry interface {
	Tracks() []*Track
	TrackByID(id TrackID) *Track
}

// TrackList is a minimal in-memory registry for hosts without their own
// store. Order is insertion order.
type TrackList struct {
	tracks []*Track
}

func NewTrackList() *TrackList { return &TrackList{} }

func (l *TrackList) Add(t *Track) {
	l.tracks = append(l.tracks, t)
}

func (l *TrackList) Remove(id TrackID) bool {
	for i, t := range l.tracks {
		if t.ID == id {
			l.tracks = append(l.tracks[:i], l.tracks[i+1:]...)
			return true
		}
	}
	return false
}

func (l *TrackList) Tracks() []*Track { return l.tracks }

func (l *TrackList) TrackByID(id TrackID) *Track {
	for _, t := range l.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

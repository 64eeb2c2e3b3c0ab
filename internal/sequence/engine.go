// Package sequence drives instrument-sequence playback: tick-addressed note
// events from an editor-owned source, voiced through a synth engine. The
// engine mirrors transport transitions (play/pause/stop/seek/tempo) and keeps
// its musical "now" consistent across tempo changes.
package sequence

import (
	"errors"
	"sort"

	"github.com/cbegin/multitrack-go/internal/timing"
)

// Note is one tick-addressed note event.
type Note struct {
	Tick          int
	DurationTicks int
	Key           int // MIDI-convention note number
	Velocity      int // 1-127
}

// NoteSource provides the track's note data. The note editor owns the data;
// the engine snapshots it on each Play.
type NoteSource interface {
	Notes() []Note
}

// NoteList is a NoteSource over a plain slice.
type NoteList []Note

func (l NoteList) Notes() []Note { return l }

// Voicer renders triggered notes. Implemented by the synth engine.
type Voicer interface {
	NoteOn(key, velocity int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	ReleaseAll()
	ActiveVoiceCount() int
}

var errNotReady = errors.New("sequence: no note source or voicer")

type pendingOff struct {
	offTick int
	voice   int
	fired   bool
}

type Engine struct {
	source     NoteSource
	voicer     Voicer
	sampleRate int
	step       float64

	playing bool
	pos     float64 // local seconds from sequence start
	bpm     float64
	notes   []Note // sorted snapshot
	next    int
	offs    []pendingOff
}

func New(source NoteSource, voicer Voicer, sampleRate int) *Engine {
	return &Engine{
		source:     source,
		voicer:     voicer,
		sampleRate: sampleRate,
		step:       1 / float64(sampleRate),
		bpm:        120,
	}
}

// Play snapshots the note source and begins voicing from the given local
// position. Notes whose onset lies before the position are skipped rather
// than retriggered mid-note.
func (e *Engine) Play(fromSeconds, bpm float64) error {
	if e.source == nil || e.voicer == nil {
		return errNotReady
	}
	src := e.source.Notes()
	e.notes = make([]Note, len(src))
	copy(e.notes, src)
	sort.SliceStable(e.notes, func(i, j int) bool { return e.notes[i].Tick < e.notes[j].Tick })
	e.bpm = bpm
	e.pos = fromSeconds
	e.next = e.firstNoteAt(fromSeconds)
	e.offs = e.offs[:0]
	e.playing = true
	return nil
}

func (e *Engine) Pause() {
	e.playing = false
	if e.voicer != nil {
		e.voicer.ReleaseAll()
	}
}

func (e *Engine) Stop() {
	e.playing = false
	e.pos = 0
	e.next = 0
	e.offs = e.offs[:0]
	if e.voicer != nil {
		e.voicer.ReleaseAll()
	}
}

// Seek repositions the local playhead. Sounding voices are released; pending
// note-offs are dropped with them.
func (e *Engine) Seek(pos, bpm float64) {
	if e.voicer != nil {
		e.voicer.ReleaseAll()
	}
	e.offs = e.offs[:0]
	e.bpm = bpm
	e.pos = pos
	e.next = e.firstNoteAt(pos)
}

// SetGlobalTempo rescales the local position so the current tick stays
// current under the new tempo.
func (e *Engine) SetGlobalTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	if e.playing && e.bpm > 0 {
		e.pos = e.pos * e.bpm / bpm
	}
	e.bpm = bpm
}

// Duration returns the sequence length in seconds at the given tempo.
func (e *Engine) Duration(bpm float64) float64 {
	last := 0
	for _, n := range e.sourceNotes() {
		if end := n.Tick + n.DurationTicks; end > last {
			last = end
		}
	}
	return timing.TicksToSeconds(last, bpm)
}

// RenderFrame advances the playhead by one sample, firing due note-ons and
// note-offs, and returns the voicer's stereo frame. Release tails keep
// rendering after Pause.
func (e *Engine) RenderFrame() (float32, float32) {
	if e.voicer == nil {
		return 0, 0
	}
	if e.playing {
		for e.next < len(e.notes) && timing.TicksToSeconds(e.notes[e.next].Tick, e.bpm) <= e.pos {
			n := e.notes[e.next]
			id := e.voicer.NoteOn(n.Key, n.Velocity)
			e.offs = append(e.offs, pendingOff{offTick: n.Tick + n.DurationTicks, voice: id})
			e.next++
		}
		for i := range e.offs {
			if !e.offs[i].fired && timing.TicksToSeconds(e.offs[i].offTick, e.bpm) <= e.pos {
				e.voicer.NoteOff(e.offs[i].voice)
				e.offs[i].fired = true
			}
		}
		e.compactOffs()
		e.pos += e.step
	}
	return e.voicer.RenderFrame()
}

func (e *Engine) firstNoteAt(pos float64) int {
	for i, n := range e.notes {
		if timing.TicksToSeconds(n.Tick, e.bpm) >= pos {
			return i
		}
	}
	return len(e.notes)
}

func (e *Engine) sourceNotes() []Note {
	if e.source == nil {
		return nil
	}
	return e.source.Notes()
}

func (e *Engine) compactOffs() {
	j := 0
	for i := range e.offs {
		if !e.offs[i].fired {
			e.offs[j] = e.offs[i]
			j++
		}
	}
	e.offs = e.offs[:j]
}

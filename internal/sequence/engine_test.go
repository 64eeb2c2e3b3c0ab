package sequence

import (
	"math"
	"testing"
)

type countingVoicer struct {
	noteOns  []Note
	noteOffs []int
	nextID   int
}

func (v *countingVoicer) NoteOn(key, velocity int) int {
	v.noteOns = append(v.noteOns, Note{Key: key, Velocity: velocity})
	v.nextID++
	return v.nextID
}
func (v *countingVoicer) NoteOff(id int)                  { v.noteOffs = append(v.noteOffs, id) }
func (v *countingVoicer) RenderFrame() (float32, float32) { return 0, 0 }
func (v *countingVoicer) ReleaseAll()                     {}
func (v *countingVoicer) ActiveVoiceCount() int           { return 0 }

func render(e *Engine, seconds float64) {
	frames := int(seconds * 48000)
	for i := 0; i < frames; i++ {
		e.RenderFrame()
	}
}

func TestNotesFireAtTickTimes(t *testing.T) {
	// Two notes: tick 0 and tick 480 (one beat). At 120 BPM the second
	// fires 0.5 s in.
	notes := NoteList{
		{Tick: 0, DurationTicks: 240, Key: 60, Velocity: 100},
		{Tick: 480, DurationTicks: 240, Key: 64, Velocity: 100},
	}
	v := &countingVoicer{}
	e := New(notes, v, 48000)
	if err := e.Play(0, 120); err != nil {
		t.Fatal(err)
	}
	render(e, 0.4)
	if len(v.noteOns) != 1 {
		t.Fatalf("note-ons at 0.4s = %d, want 1", len(v.noteOns))
	}
	render(e, 0.2)
	if len(v.noteOns) != 2 {
		t.Fatalf("note-ons at 0.6s = %d, want 2", len(v.noteOns))
	}
	// First note (240 ticks = 0.25 s) must have released by now.
	if len(v.noteOffs) != 1 {
		t.Fatalf("note-offs at 0.6s = %d, want 1", len(v.noteOffs))
	}
}

func TestPlayFromOffsetSkipsEarlierNotes(t *testing.T) {
	notes := NoteList{
		{Tick: 0, DurationTicks: 240, Key: 60, Velocity: 100},
		{Tick: 1920, DurationTicks: 240, Key: 64, Velocity: 100},
	}
	v := &countingVoicer{}
	e := New(notes, v, 48000)
	if err := e.Play(1.0, 120); err != nil {
		t.Fatal(err)
	}
	render(e, 1.2) // local position passes 2.0 s, where tick 1920 lives
	if len(v.noteOns) != 1 {
		t.Fatalf("note-ons = %d, want only the tick-1920 note", len(v.noteOns))
	}
	if v.noteOns[0].Key != 64 {
		t.Fatalf("fired key %d, want 64", v.noteOns[0].Key)
	}
}

func TestSetGlobalTempoKeepsTickNow(t *testing.T) {
	e := New(NoteList{}, &countingVoicer{}, 48000)
	if err := e.Play(0, 120); err != nil {
		t.Fatal(err)
	}
	render(e, 1.0) // tick "now" = 960 at 120 BPM
	e.SetGlobalTempo(60)
	// Same tick at 60 BPM lives at 2.0 s local.
	if math.Abs(e.pos-2.0) > 1e-3 {
		t.Fatalf("local position after tempo change = %v, want 2.0", e.pos)
	}
}

func TestSeekDropsPendingOffs(t *testing.T) {
	notes := NoteList{{Tick: 0, DurationTicks: 4800, Key: 60, Velocity: 100}}
	v := &countingVoicer{}
	e := New(notes, v, 48000)
	if err := e.Play(0, 120); err != nil {
		t.Fatal(err)
	}
	render(e, 0.1) // note is sounding, off pending far away
	e.Seek(20, 120)
	render(e, 0.5)
	if len(v.noteOffs) != 0 {
		t.Fatalf("stale note-off fired after seek: %v", v.noteOffs)
	}
}

func TestDuration(t *testing.T) {
	notes := NoteList{{Tick: 1440, DurationTicks: 480, Key: 60, Velocity: 100}}
	e := New(notes, &countingVoicer{}, 48000)
	if got := e.Duration(120); math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("Duration = %v, want 2.0", got)
	}
}

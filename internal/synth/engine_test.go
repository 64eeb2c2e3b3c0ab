package synth

import "testing"

func TestNoteOnProducesAudio(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(69, 100)
	var energy float64
	for i := 0; i < 4800; i++ {
		l, _ := e.RenderFrame()
		if l < 0 {
			energy -= float64(l)
		} else {
			energy += float64(l)
		}
	}
	if energy == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("active voices = %d, want 1", e.ActiveVoiceCount())
	}
}

func TestNoteOffReleasesVoice(t *testing.T) {
	e := New(48000, DefaultParams())
	id := e.NoteOn(60, 100)
	for i := 0; i < 480; i++ {
		e.RenderFrame()
	}
	e.NoteOff(id)
	// Render past the release tail.
	for i := 0; i < 48000; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voice still active after release tail")
	}
}

func TestVoiceStealingPrefersReleased(t *testing.T) {
	e := New(48000, DefaultParams())
	ids := make([]int, MaxVoices)
	for i := range ids {
		ids[i] = e.NoteOn(40+i, 100)
	}
	e.NoteOff(ids[3])
	for i := 0; i < 10; i++ {
		e.RenderFrame()
	}
	e.NoteOn(100, 100)
	if e.ActiveVoiceCount() != MaxVoices {
		t.Fatalf("active voices = %d, want %d", e.ActiveVoiceCount(), MaxVoices)
	}
}

func TestReleaseAll(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(60, 100)
	e.NoteOn(64, 100)
	e.NoteOn(67, 100)
	e.ReleaseAll()
	for i := 0; i < 48000; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voices survived ReleaseAll: %d", e.ActiveVoiceCount())
	}
}

package player

import (
	"math"
	"testing"
)

func rampClip(frames, rate int) *Clip {
	data := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = float32(i)
		data[i*2+1] = float32(i)
	}
	return &Clip{Data: data, SampleRate: rate}
}

func TestClipAdapterStartRequiresStop(t *testing.T) {
	a := NewClipAdapter(rampClip(100, 100))
	if err := a.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Start(0, 0); err != ErrAlreadyStarted {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := a.Start(0, 0); err != nil {
		t.Fatalf("Start after Stop = %v", err)
	}
}

func TestClipAdapterEmptySource(t *testing.T) {
	a := NewClipAdapter(&Clip{SampleRate: 48000})
	if err := a.Start(0, 0); err != ErrNoSource {
		t.Fatalf("Start on empty clip = %v, want ErrNoSource", err)
	}
	if _, ok := a.BufferDuration(); ok {
		t.Fatalf("BufferDuration ok on empty clip")
	}
}

func TestClipAdapterRendersFromOffset(t *testing.T) {
	// 1 second ramp at 100 Hz; starting 0.5 s in must read frame 50 first.
	a := NewClipAdapter(rampClip(100, 100))
	if err := a.Start(0, 0.5); err != nil {
		t.Fatal(err)
	}
	a.Sync()
	l, _ := a.RenderFrame()
	if l != 50 {
		t.Fatalf("first frame = %v, want 50", l)
	}
}

func TestClipAdapterTrimWindow(t *testing.T) {
	a := NewClipAdapter(rampClip(100, 100))
	a.SetTrim(0.2, 0.4) // audible frames 20..39
	if err := a.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	a.Sync()
	l, _ := a.RenderFrame()
	if l != 20 {
		t.Fatalf("first trimmed frame = %v, want 20", l)
	}
	for i := 0; i < 19; i++ {
		a.RenderFrame()
	}
	if l, _ = a.RenderFrame(); l != 0 {
		t.Fatalf("frame past trim end = %v, want silence", l)
	}
}

func TestClipAdapterSilentWhenUnsynced(t *testing.T) {
	a := NewClipAdapter(rampClip(100, 100))
	if err := a.Start(0, 0.3); err != nil {
		t.Fatal(err)
	}
	if l, r := a.RenderFrame(); l != 0 || r != 0 {
		t.Fatalf("unsynced adapter rendered %v,%v", l, r)
	}
}

func TestVolumeMapping(t *testing.T) {
	if db := VolumeToDB(100); math.Abs(db) > 1e-9 {
		t.Fatalf("VolumeToDB(100) = %v, want 0", db)
	}
	if db := VolumeToDB(0); db != SilenceDB {
		t.Fatalf("VolumeToDB(0) = %v, want %v", db, SilenceDB)
	}
	if g := GainFromDB(SilenceDB); g != 0 {
		t.Fatalf("GainFromDB(floor) = %v, want 0", g)
	}
	if g := GainFromDB(-6); math.Abs(float64(g)-0.5012) > 1e-3 {
		t.Fatalf("GainFromDB(-6) = %v, want ~0.501", g)
	}
}

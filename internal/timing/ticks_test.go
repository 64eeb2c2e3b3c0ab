package timing

import (
	"math"
	"testing"
)

func TestTicksToSeconds(t *testing.T) {
	cases := []struct {
		ticks int
		bpm   float64
		want  float64
	}{
		{0, 120, 0},
		{480, 120, 0.5},   // one beat at 2 beats/sec
		{1920, 120, 2.0},  // one bar of 4/4
		{1920, 60, 4.0},
		{240, 120, 0.25},
		{-480, 120, 0},
		{480, 0, 0},
	}
	for _, c := range cases {
		got := TicksToSeconds(c.ticks, c.bpm)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("TicksToSeconds(%d, %v) = %v, want %v", c.ticks, c.bpm, got, c.want)
		}
	}
}

func TestSecondsToTicksRoundTrip(t *testing.T) {
	for _, ticks := range []int{0, 1, 479, 480, 1920, 7680} {
		for _, bpm := range []float64{1, 60, 120, 178.3, 999} {
			sec := TicksToSeconds(ticks, bpm)
			if got := SecondsToTicks(sec, bpm); got != ticks {
				t.Errorf("round trip %d ticks @ %v BPM: got %d", ticks, bpm, got)
			}
		}
	}
}

func TestBeatSeconds(t *testing.T) {
	if got := BeatSeconds(120); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("BeatSeconds(120) = %v, want 0.5", got)
	}
	if got := BeatSeconds(0); got != 0 {
		t.Errorf("BeatSeconds(0) = %v, want 0", got)
	}
}

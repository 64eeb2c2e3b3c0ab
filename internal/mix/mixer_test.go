package mix

import (
	"math"
	"testing"
)

type constSource float32

func (s constSource) RenderFrame() (float32, float32) { return float32(s), float32(s) }

func TestProcessSumsSources(t *testing.T) {
	m := New(1000)
	m.SetSources([]Source{constSource(0.25), constSource(0.5)})
	dst := make([]float32, 8)
	m.Process(dst, nil)
	if math.Abs(float64(dst[0])-0.75) > 1e-6 {
		t.Fatalf("mixed frame = %v, want 0.75", dst[0])
	}
}

func TestProcessAdvancesClockPerFrame(t *testing.T) {
	m := New(1000)
	var elapsed float64
	dst := make([]float32, 20) // 10 frames at 1 kHz = 10 ms
	m.Process(dst, func(dt float64) { elapsed += dt })
	if math.Abs(elapsed-0.010) > 1e-9 {
		t.Fatalf("advanced %v, want 0.010", elapsed)
	}
}

func TestFadeOutReachesSilence(t *testing.T) {
	m := New(1000)
	m.SetSources([]Source{constSource(1)})
	m.Fader().FadeOut(0.010)
	dst := make([]float32, 30) // 15 ms, past the window
	m.Process(dst, nil)
	if dst[28] != 0 {
		t.Fatalf("gain after fade window = %v, want 0", dst[28])
	}
	if dst[0] >= 1 {
		t.Fatalf("fade did not begin ramping: %v", dst[0])
	}
	m.Fader().Reset()
	m.Process(dst, nil)
	if dst[0] != 1 {
		t.Fatalf("gain after reset = %v, want 1", dst[0])
	}
}

func TestFadeOutZeroWindowIsHardCut(t *testing.T) {
	f := NewFader()
	f.FadeOut(0)
	if g := f.Step(0.001); g != 0 {
		t.Fatalf("gain = %v, want 0", g)
	}
}

package multitrack

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cbegin/multitrack-go/internal/player"
)

func sineClip(sampleRate int, seconds, freq float64) *player.Clip {
	frames := int(float64(sampleRate) * seconds)
	data := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		s := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
		data[i*2] = s
		data[i*2+1] = s
	}
	return &player.Clip{Data: data, SampleRate: sampleRate}
}

func rmsOf(samples []float32, fromFrame, toFrame int) float64 {
	var sum float64
	n := 0
	for f := fromFrame; f < toFrame; f++ {
		l := float64(samples[f*2])
		sum += l * l
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func TestRenderSessionHonorsTrackOffsets(t *testing.T) {
	e, err := New(48000)
	if err != nil {
		t.Fatal(err)
	}
	// 960 ticks at 120 BPM puts the clip at 1.0s.
	tr := sampleTrack("sine", 960, 0)
	if err := e.AddSampleTrack(tr, sineClip(48000, 2.0, 440)); err != nil {
		t.Fatal(err)
	}

	out, err := e.RenderSession(3.0)
	if err != nil {
		t.Fatal(err)
	}
	if want := 3 * 48000 * 2; len(out) != want {
		t.Fatalf("buffer length = %d, want %d", len(out), want)
	}

	if rms := rmsOf(out, 0, int(0.9*48000)); rms != 0 {
		t.Fatalf("region before the track offset must be silent, rms=%v", rms)
	}
	if rms := rmsOf(out, int(1.1*48000), int(1.5*48000)); rms < 0.1 {
		t.Fatalf("region after the track offset must carry the sine, rms=%v", rms)
	}
	if e.IsPlaying() || e.Position() != 0 {
		t.Fatal("offline render must leave the engine stopped at zero")
	}
}

func TestRenderSessionDefaultsToSessionLength(t *testing.T) {
	e, err := New(48000)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.AddSampleTrack(sampleTrack("a", 0, 0), sineClip(48000, 0.5, 220)); err != nil {
		t.Fatal(err)
	}
	out, err := e.RenderSession(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := int(0.5*48000) * 2; len(out) != want {
		t.Fatalf("zero-length request must render the full session, got %d want %d", len(out), want)
	}
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	wav := EncodeWAVFloat32LE(samples, 48000, 2)

	if want := 44 + len(samples)*4; len(wav) != want {
		t.Fatalf("wav length = %d, want %d", len(wav), want)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("container tags missing")
	}
	if got := binary.LittleEndian.Uint16(wav[20:]); got != 3 {
		t.Fatalf("audio format = %d, want 3 (IEEE float)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:]); got != 2 {
		t.Fatalf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 48000 {
		t.Fatalf("sample rate = %d, want 48000", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(wav[44:])); got != 0.5 {
		t.Fatalf("first sample = %v, want 0.5", got)
	}
}

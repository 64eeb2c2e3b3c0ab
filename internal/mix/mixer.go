// Package mix sums the per-track renderers into stereo buffers and applies
// the transport's fade ramp. The mixer drives clock advancement: each
// rendered frame moves the engine's timelines forward by one sample.
package mix

// Source produces one stereo frame per call.
type Source interface {
	RenderFrame() (float32, float32)
}

// Fader is the pause/stop fade ramp: an explicit gain state stepped by the
// render loop rather than a wall-clock timer.
type Fader struct {
	gain   float64
	target float64
	rate   float64 // gain units per second
}

func NewFader() *Fader {
	return &Fader{gain: 1, target: 1}
}

// FadeOut ramps the gain to silence over the given window.
func (f *Fader) FadeOut(window float64) {
	f.target = 0
	if window <= 0 {
		f.gain = 0
		f.rate = 0
		return
	}
	f.rate = f.gain / window
}

// Reset restores unity gain for the next play cycle.
func (f *Fader) Reset() {
	f.gain = 1
	f.target = 1
	f.rate = 0
}

// Step advances the ramp by dt seconds and returns the gain now in effect.
func (f *Fader) Step(dt float64) float32 {
	if f.gain > f.target {
		f.gain -= f.rate * dt
		if f.gain < f.target {
			f.gain = f.target
		}
	}
	return float32(f.gain)
}

func (f *Fader) Gain() float64 { return f.gain }

type Mixer struct {
	sampleRate int
	step       float64
	fader      *Fader
	sources    []Source
}

func New(sampleRate int) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		step:       1 / float64(sampleRate),
		fader:      NewFader(),
	}
}

func (m *Mixer) Fader() *Fader { return m.fader }

// SetSources replaces the renderer set. Called when tracks are added or
// removed; deferred starts mid-buffer only flip flags on sources already in
// the set.
func (m *Mixer) SetSources(sources []Source) {
	m.sources = sources
}

// Process fills dst (stereo interleaved) one frame at a time, invoking
// onFrame with the per-frame time step before rendering each frame so the
// clock fires due events at sample resolution.
func (m *Mixer) Process(dst []float32, onFrame func(dt float64)) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if onFrame != nil {
			onFrame(m.step)
		}
		g := m.fader.Step(m.step)
		var l, r float32
		for _, src := range m.sources {
			sl, sr := src.RenderFrame()
			l += sl
			r += sr
		}
		dst[f*2] = l * g
		dst[f*2+1] = r * g
	}
}

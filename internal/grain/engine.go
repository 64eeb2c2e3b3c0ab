// Package grain plays a PCM clip as overlapping windowed grains spawned on a
// tempo-relative pulse, so the texture follows the transport's tempo while
// the source material keeps its pitch.
package grain

import (
	"errors"
	"math"
)

var errNoData = errors.New("grain: no source data")

// Defaults chosen for a dense pad-like texture.
const (
	defaultGrainSeconds = 0.090
	defaultSpawnBeats   = 0.25 // one grain every quarter beat
)

type grainVoice struct {
	cursor int // frame index into the source
	done   int // frames rendered so far
	total  int
}

type Engine struct {
	data       []float32 // interleaved stereo
	sampleRate int
	step       float64

	grainSeconds float64
	spawnBeats   float64

	playing    bool
	pos        float64 // local seconds into the source
	bpm        float64
	sinceSpawn float64
	grains     []grainVoice
}

func New(data []float32, sampleRate int) *Engine {
	return &Engine{
		data:         data,
		sampleRate:   sampleRate,
		step:         1 / float64(sampleRate),
		grainSeconds: defaultGrainSeconds,
		spawnBeats:   defaultSpawnBeats,
		bpm:          120,
	}
}

// SetGrain adjusts grain length in seconds and spawn rate in beats.
func (e *Engine) SetGrain(seconds, spawnBeats float64) {
	if seconds > 0 {
		e.grainSeconds = seconds
	}
	if spawnBeats > 0 {
		e.spawnBeats = spawnBeats
	}
}

func (e *Engine) Play(fromSeconds, bpm float64) error {
	if len(e.data) == 0 {
		return errNoData
	}
	e.bpm = bpm
	e.pos = fromSeconds
	e.sinceSpawn = math.Inf(1) // spawn immediately on the first frame
	e.grains = e.grains[:0]
	e.playing = true
	return nil
}

func (e *Engine) Pause() {
	e.playing = false
	e.grains = e.grains[:0]
}

func (e *Engine) Stop() {
	e.playing = false
	e.pos = 0
	e.sinceSpawn = 0
	e.grains = e.grains[:0]
}

func (e *Engine) Seek(pos, bpm float64) {
	e.bpm = bpm
	e.pos = pos
	e.grains = e.grains[:0]
	e.sinceSpawn = math.Inf(1)
}

// SetGlobalTempo adjusts the spawn pulse. The playhead position is in source
// seconds and needs no rescaling.
func (e *Engine) SetGlobalTempo(bpm float64) {
	if bpm > 0 {
		e.bpm = bpm
	}
}

// Duration returns the source length in seconds.
func (e *Engine) Duration() float64 {
	if e.sampleRate <= 0 {
		return 0
	}
	return float64(len(e.data)/2) / float64(e.sampleRate)
}

// RenderFrame spawns due grains, advances the playhead, and returns the
// Hann-windowed sum of all live grains.
func (e *Engine) RenderFrame() (float32, float32) {
	if e.playing {
		interval := 60 / e.bpm * e.spawnBeats
		e.sinceSpawn += e.step
		if e.sinceSpawn >= interval {
			e.spawn()
			e.sinceSpawn = 0
		}
		e.pos += e.step
		if e.pos >= e.Duration() {
			e.pos = 0 // wrap the source playhead
		}
	}
	var l, r float64
	j := 0
	for i := range e.grains {
		g := &e.grains[i]
		if g.done >= g.total || g.cursor >= len(e.data)/2 {
			continue
		}
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(g.done)/float64(g.total)))
		l += float64(e.data[g.cursor*2]) * w
		r += float64(e.data[g.cursor*2+1]) * w
		g.cursor++
		g.done++
		e.grains[j] = *g
		j++
	}
	e.grains = e.grains[:j]
	// Overlapping windows sum above unity; pull the mix back.
	return float32(l * 0.5), float32(r * 0.5)
}

func (e *Engine) spawn() {
	total := int(e.grainSeconds * float64(e.sampleRate))
	if total <= 0 {
		return
	}
	e.grains = append(e.grains, grainVoice{
		cursor: int(e.pos * float64(e.sampleRate)),
		total:  total,
	})
}

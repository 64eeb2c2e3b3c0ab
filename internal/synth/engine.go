// Package synth is the voice engine behind instrument-sequence tracks: a
// small polyphonic two-oscillator synth with ADSR envelopes.
package synth

import "math"

// MaxVoices is the polyphony limit per engine instance.
const MaxVoices = 16

const (
	stageIdle = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

type Params struct {
	Attack     float64 // seconds
	Decay      float64
	Sustain    float64 // level 0-1
	Release    float64
	MasterGain float64
}

func DefaultParams() Params {
	return Params{
		Attack:     0.005,
		Decay:      0.08,
		Sustain:    0.7,
		Release:    0.12,
		MasterGain: 0.5,
	}
}

type voice struct {
	id    int
	key   int
	vel   float64
	freq  float64
	phase float64
	env   float64
	stage int
	age   int // frames since last trigger or release
}

type Engine struct {
	sampleRate int
	params     Params
	gain       float64
	nextID     int
	voices     [MaxVoices]voice
}

func New(sampleRate int, params Params) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		params:     params,
		gain:       params.MasterGain,
	}
}

func (e *Engine) SetMasterGain(gain float64) { e.gain = gain }

// NoteOn triggers a voice and returns its id for the matching NoteOff.
// Released voices are preferred for stealing; among equals, the oldest wins.
func (e *Engine) NoteOn(key, velocity int) int {
	if velocity <= 0 {
		velocity = 1
	}
	best := 0
	bestReleased := e.voices[0].stage == stageIdle || e.voices[0].stage == stageRelease
	bestAge := e.voices[0].age
	for i := 1; i < MaxVoices; i++ {
		released := e.voices[i].stage == stageIdle || e.voices[i].stage == stageRelease
		if (released && !bestReleased) || (released == bestReleased && e.voices[i].age >= bestAge) {
			best = i
			bestReleased = released
			bestAge = e.voices[i].age
		}
	}
	e.nextID++
	e.voices[best] = voice{
		id:    e.nextID,
		key:   key,
		vel:   float64(clamp(velocity, 1, 127)) / 127,
		freq:  440 * math.Pow(2, float64(key-69)/12),
		stage: stageAttack,
	}
	return e.nextID
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		if e.voices[i].id == id && e.voices[i].stage != stageIdle && e.voices[i].stage != stageRelease {
			e.voices[i].stage = stageRelease
			e.voices[i].age = 0
			return
		}
	}
}

// ReleaseAll moves every sounding voice into release.
func (e *Engine) ReleaseAll() {
	for i := range e.voices {
		if e.voices[i].stage != stageIdle && e.voices[i].stage != stageRelease {
			e.voices[i].stage = stageRelease
			e.voices[i].age = 0
		}
	}
}

// ActiveVoiceCount reports voices still sounding, release tails included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].stage != stageIdle {
			n++
		}
	}
	return n
}

// RenderFrame advances all voices by one sample and returns the stereo mix.
func (e *Engine) RenderFrame() (float32, float32) {
	var sum float64
	sr := float64(e.sampleRate)
	for i := range e.voices {
		v := &e.voices[i]
		if v.stage == stageIdle {
			v.age++
			continue
		}
		switch v.stage {
		case stageAttack:
			v.env += 1 / math.Max(e.params.Attack*sr, 1)
			if v.env >= 1 {
				v.env = 1
				v.stage = stageDecay
			}
		case stageDecay:
			v.env -= (1 - e.params.Sustain) / math.Max(e.params.Decay*sr, 1)
			if v.env <= e.params.Sustain {
				v.env = e.params.Sustain
				v.stage = stageSustain
			}
		case stageRelease:
			v.env -= e.params.Sustain / math.Max(e.params.Release*sr, 1)
			if v.env <= 0 {
				v.env = 0
				v.stage = stageIdle
			}
		}
		v.phase += v.freq / sr
		if v.phase >= 1 {
			v.phase -= 1
		}
		// Fundamental plus a quieter octave partial.
		osc := math.Sin(2*math.Pi*v.phase) + 0.35*math.Sin(4*math.Pi*v.phase)
		sum += osc * v.env * v.vel
		v.age++
	}
	out := float32(sum * e.gain / 4)
	return out, out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package player

import (
	"github.com/cbegin/multitrack-go/internal/grain"
	"github.com/cbegin/multitrack-go/internal/transport"
)

// GrainAdapter adapts a grain-sample engine to the Adapter surface.
type GrainAdapter struct {
	eng       *grain.Engine
	clock     *transport.Clock
	trimStart float64
	trimEnd   float64
	gain      float32
	started   bool
	synced    bool
}

func NewGrainAdapter(eng *grain.Engine, clock *transport.Clock) *GrainAdapter {
	return &GrainAdapter{eng: eng, clock: clock, gain: 1}
}

func (a *GrainAdapter) SetTrim(start, end float64) {
	a.trimStart, a.trimEnd = start, end
}

func (a *GrainAdapter) Start(at, fromOffset float64) error {
	if a.started {
		return ErrAlreadyStarted
	}
	if err := a.eng.Play(a.trimStart+fromOffset, a.clock.Tempo()); err != nil {
		return err
	}
	a.started = true
	return nil
}

func (a *GrainAdapter) Stop() error {
	if a.started {
		a.eng.Stop()
	}
	a.started = false
	return nil
}

func (a *GrainAdapter) Sync()   { a.synced = true }
func (a *GrainAdapter) Unsync() { a.synced = false }

func (a *GrainAdapter) Seek(offset float64) error {
	a.eng.Seek(a.trimStart+offset, a.clock.Tempo())
	return nil
}

func (a *GrainAdapter) SetVolume(db float64) { a.gain = GainFromDB(db) }

func (a *GrainAdapter) Started() bool { return a.started }

func (a *GrainAdapter) BufferDuration() (float64, bool) {
	d := a.eng.Duration()
	if d == 0 {
		return 0, false
	}
	return d, true
}

func (a *GrainAdapter) RenderFrame() (float32, float32) {
	if !a.started || !a.synced {
		return 0, 0
	}
	l, r := a.eng.RenderFrame()
	return l * a.gain, r * a.gain
}

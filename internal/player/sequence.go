package player

import (
	"github.com/cbegin/multitrack-go/internal/sequence"
	"github.com/cbegin/multitrack-go/internal/transport"
)

// SequenceAdapter adapts an instrument-sequence engine to the Adapter
// surface. Offsets are local seconds past the trim start; the engine itself
// is also mirrored directly by the transport for pause/seek/tempo.
type SequenceAdapter struct {
	eng       *sequence.Engine
	clock     *transport.Clock
	trimStart float64
	trimEnd   float64
	gain      float32
	started   bool
	synced    bool
}

func NewSequenceAdapter(eng *sequence.Engine, clock *transport.Clock) *SequenceAdapter {
	return &SequenceAdapter{eng: eng, clock: clock, gain: 1}
}

func (a *SequenceAdapter) SetTrim(start, end float64) {
	a.trimStart, a.trimEnd = start, end
}

func (a *SequenceAdapter) Start(at, fromOffset float64) error {
	if a.started {
		return ErrAlreadyStarted
	}
	if err := a.eng.Play(a.trimStart+fromOffset, a.clock.Tempo()); err != nil {
		return err
	}
	a.started = true
	return nil
}

func (a *SequenceAdapter) Stop() error {
	if a.started {
		a.eng.Stop()
	}
	a.started = false
	return nil
}

func (a *SequenceAdapter) Sync()   { a.synced = true }
func (a *SequenceAdapter) Unsync() { a.synced = false }

func (a *SequenceAdapter) Seek(offset float64) error {
	a.eng.Seek(a.trimStart+offset, a.clock.Tempo())
	return nil
}

func (a *SequenceAdapter) SetVolume(db float64) { a.gain = GainFromDB(db) }

func (a *SequenceAdapter) Started() bool { return a.started }

func (a *SequenceAdapter) BufferDuration() (float64, bool) {
	return a.eng.Duration(a.clock.Tempo()), true
}

// RenderFrame always renders: the engine only advances its playhead while
// playing, and rendering through it lets release tails decay after a stop.
func (a *SequenceAdapter) RenderFrame() (float32, float32) {
	l, r := a.eng.RenderFrame()
	return l * a.gain, r * a.gain
}

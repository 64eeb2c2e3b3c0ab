package player

// Clip is a decoded PCM buffer, stereo interleaved.
type Clip struct {
	Data       []float32
	SampleRate int
}

// Frames returns the number of stereo frames in the clip.
func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	return len(c.Data) / 2
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// ClipAdapter plays a decoded sample clip. The audible range is the trim
// window; offsets passed to Start and Seek are relative to the trim start.
type ClipAdapter struct {
	clip      *Clip
	trimStart float64
	trimEnd   float64
	gain      float32
	started   bool
	synced    bool
	startedAt float64
	cursor    int // frame index into the clip
}

func NewClipAdapter(clip *Clip) *ClipAdapter {
	a := &ClipAdapter{clip: clip, gain: 1}
	a.trimEnd = clip.Duration()
	return a
}

// SetTrim sets the audible sub-range. An end of zero means the full clip.
func (a *ClipAdapter) SetTrim(start, end float64) {
	if end <= 0 {
		end = a.clip.Duration()
	}
	a.trimStart, a.trimEnd = start, end
}

func (a *ClipAdapter) Start(at, fromOffset float64) error {
	if a.clip.Frames() == 0 {
		return ErrNoSource
	}
	if a.started {
		return ErrAlreadyStarted
	}
	a.cursor = a.frameAt(fromOffset)
	a.startedAt = at
	a.started = true
	return nil
}

func (a *ClipAdapter) Stop() error {
	a.started = false
	return nil
}

func (a *ClipAdapter) Sync()   { a.synced = true }
func (a *ClipAdapter) Unsync() { a.synced = false }

func (a *ClipAdapter) Seek(offset float64) error {
	if a.clip.Frames() == 0 {
		return ErrNoSource
	}
	a.cursor = a.frameAt(offset)
	return nil
}

func (a *ClipAdapter) SetVolume(db float64) { a.gain = GainFromDB(db) }

func (a *ClipAdapter) Started() bool { return a.started }

func (a *ClipAdapter) BufferDuration() (float64, bool) {
	if a.clip.Frames() == 0 {
		return 0, false
	}
	return a.clip.Duration(), true
}

// RenderFrame produces the next stereo frame. Silent unless started and
// synced; silent past the trim end.
func (a *ClipAdapter) RenderFrame() (float32, float32) {
	if !a.started || !a.synced {
		return 0, 0
	}
	end := a.frameAt(a.trimEnd - a.trimStart)
	if a.cursor >= end || a.cursor >= a.clip.Frames() {
		return 0, 0
	}
	l := a.clip.Data[a.cursor*2] * a.gain
	r := a.clip.Data[a.cursor*2+1] * a.gain
	a.cursor++
	return l, r
}

func (a *ClipAdapter) frameAt(offset float64) int {
	f := int((a.trimStart + offset) * float64(a.clip.SampleRate))
	if f < 0 {
		f = 0
	}
	return f
}

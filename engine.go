// Package multitrack is the playback engine of a multi-track music editor:
// several independently positioned tracks (sample clips, instrument note
// sequences, grain-based playback) kept in sync against one shared transport
// clock, with immediate seeking, tempo changes and mid-session repositioning
// that never double-start or orphan an audio source.
package multitrack

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbegin/multitrack-go/internal/grain"
	"github.com/cbegin/multitrack-go/internal/mix"
	"github.com/cbegin/multitrack-go/internal/player"
	"github.com/cbegin/multitrack-go/internal/schedule"
	"github.com/cbegin/multitrack-go/internal/sequence"
	"github.com/cbegin/multitrack-go/internal/synth"
	"github.com/cbegin/multitrack-go/internal/transport"
)

type Option func(*config)

type config struct {
	log         zerolog.Logger
	tempo       float64
	fadeWindow  float64
	settleDelay float64
	startBuffer float64
}

func defaultConfig() config {
	return config{
		log:         zerolog.Nop(),
		tempo:       120,
		fadeWindow:  0.010,
		settleDelay: 0.050,
		startBuffer: 0.005,
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(cfg *config) { cfg.log = log }
}

// WithTempo sets the initial tempo in BPM, clamped to the supported range.
func WithTempo(bpm float64) Option {
	return func(cfg *config) { cfg.tempo = bpm }
}

// WithFadeWindow sets the pause/stop fade length. The hard stop runs
// unconditionally once the window elapses.
func WithFadeWindow(d time.Duration) Option {
	return func(cfg *config) { cfg.fadeWindow = d.Seconds() }
}

// WithSettleDelay sets how long a mid-playback reposition holds the
// transport before resuming.
func WithSettleDelay(d time.Duration) Option {
	return func(cfg *config) { cfg.settleDelay = d.Seconds() }
}

// WithStartBuffer pads deferred start times against a race with the clock's
// own start. Local offsets are recomputed at fire time, so the pad never
// causes drift.
func WithStartBuffer(d time.Duration) Option {
	return func(cfg *config) { cfg.startBuffer = d.Seconds() }
}

// Engine owns the transport clock and the playback scheduler for one
// session. All methods are safe to call from the host's event goroutine and
// the audio render goroutine; a single mutex serializes them, so every
// transition observes a settled state.
type Engine struct {
	mu  sync.Mutex
	log zerolog.Logger

	sampleRate int
	clock      *transport.Clock
	sched      *schedule.Scheduler
	mixer      *mix.Mixer

	registry TrackRegistry
	list     *TrackList
	adapters map[TrackID]player.Adapter
	aux      map[TrackID]player.AuxEngine

	fadeWindow  float64
	settleDelay float64

	// busy is the re-entrancy guard: set while a fade or settle cycle is in
	// flight. A transition arriving while busy is dropped, not queued.
	busy bool

	outputStart func() error
	outputReady bool
}

func New(sampleRate int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("multitrack: sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		log:         cfg.log,
		sampleRate:  sampleRate,
		clock:       transport.NewClock(cfg.tempo),
		mixer:       mix.New(sampleRate),
		list:        NewTrackList(),
		adapters:    make(map[TrackID]player.Adapter),
		aux:         make(map[TrackID]player.AuxEngine),
		fadeWindow:  cfg.fadeWindow,
		settleDelay: cfg.settleDelay,
	}
	e.registry = e.list
	e.sched = schedule.New(e.clock, cfg.log, cfg.startBuffer, e.startTrack)
	return e, nil
}

// SetOutput registers the audio-subsystem startup handshake, invoked once on
// the first Play.
func (e *Engine) SetOutput(start func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outputStart = start
	e.outputReady = false
}

// --- Track lifecycle ---

// AddSampleTrack registers a clip-backed track.
func (e *Engine) AddSampleTrack(t *Track, clip *player.Clip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.Duration == 0 {
		t.Duration = clip.Duration()
	}
	return e.addTrackLocked(t, player.NewClipAdapter(clip), nil)
}

// AddSequenceTrack registers an instrument-sequence track. The note source
// stays owned by the editor; the engine snapshots it on each play cycle.
func (e *Engine) AddSequenceTrack(t *Track, notes sequence.NoteSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	voicer := synth.New(e.sampleRate, synth.DefaultParams())
	eng := sequence.New(notes, voicer, e.sampleRate)
	if t.Duration == 0 {
		t.Duration = eng.Duration(e.clock.Tempo())
	}
	return e.addTrackLocked(t, player.NewSequenceAdapter(eng, e.clock), eng)
}

// AddGrainTrack registers a grain-sample track over a decoded clip.
func (e *Engine) AddGrainTrack(t *Track, clip *player.Clip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	eng := grain.New(clip.Data, e.sampleRate)
	if t.Duration == 0 {
		t.Duration = clip.Duration()
	}
	return e.addTrackLocked(t, player.NewGrainAdapter(eng, e.clock), eng)
}

func (e *Engine) addTrackLocked(t *Track, ad player.Adapter, aux player.AuxEngine) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if e.list.TrackByID(t.ID) != nil {
		return errors.New("multitrack: duplicate track id " + string(t.ID))
	}
	if trim, ok := ad.(interface{ SetTrim(start, end float64) }); ok {
		start, end := t.TrimBounds()
		trim.SetTrim(start, end)
	}
	e.list.Add(t)
	e.adapters[t.ID] = ad
	if aux != nil {
		e.aux[t.ID] = aux
	}
	e.rebuildSourcesLocked()
	// Joining mid-playback goes through the same stop→reschedule→resume
	// cycle as a track move, so no adapter is ever started twice.
	e.restartPlaybackLocked()
	return nil
}

// RemoveTrack cancels any pending start for the track and tears down its
// adapter. Reports whether the track existed.
func (e *Engine) RemoveTrack(id TrackID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.list.Remove(id) {
		return false
	}
	e.sched.CancelTrack(string(id))
	if ad := e.adapters[id]; ad != nil {
		if err := ad.Stop(); err != nil {
			e.log.Warn().Str("track", string(id)).Err(err).Msg("adapter stop failed during removal")
		}
		ad.Unsync()
	}
	if aux := e.aux[id]; aux != nil {
		aux.Stop()
	}
	delete(e.adapters, id)
	delete(e.aux, id)
	e.rebuildSourcesLocked()
	return true
}

// --- Transport operations ---

// Play starts or resumes playback from the current position. A Play while a
// previous transition is still settling is dropped as a no-op.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy || e.clock.State() == transport.Playing {
		return nil
	}
	if e.outputStart != nil && !e.outputReady {
		if err := e.outputStart(); err != nil {
			return err
		}
		e.outputReady = true
	}
	e.playLocked()
	return nil
}

// Pause fades to silence over the fade window, then halts the transport and
// resets every adapter. The hard stop is elapsed-time based: it runs when
// the window elapses whether or not the audio subsystem acknowledged the
// fade.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy || e.clock.State() != transport.Playing {
		return
	}
	e.sched.CancelAll()
	e.busy = true
	e.mixer.Fader().FadeOut(e.fadeWindow)
	e.clock.ScheduleAfter(func() {
		e.resetAdaptersLocked()
		for _, aux := range e.aux {
			aux.Pause()
		}
		e.clock.Pause()
		e.busy = false
	}, e.fadeWindow)
}

// Stop fades out if playing, then resets the position to zero and every
// adapter to a clean state. Stopping twice yields the same state as once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return nil
	}
	e.sched.CancelAll()
	if e.clock.State() != transport.Playing {
		e.finalizeStopLocked()
		return nil
	}
	e.busy = true
	e.mixer.Fader().FadeOut(e.fadeWindow)
	e.clock.ScheduleAfter(func() {
		e.finalizeStopLocked()
		e.busy = false
	}, e.fadeWindow)
	return nil
}

// Seek moves the transport to the given position, clamped to the session
// length. No fade: adapters are reset immediately and playback resumes from
// the new position if the transport was playing.
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if max := e.maxPositionLocked(); seconds > max {
		seconds = max
	}
	wasPlaying := e.clock.State() == transport.Playing
	e.clock.Pause()
	e.sched.CancelAll()
	e.resetAdaptersLocked()
	bpm := e.clock.Tempo()
	for _, t := range e.registry.Tracks() {
		local := seconds - t.OffsetSeconds(bpm)
		if local < 0 {
			local = 0
		}
		ad := e.adapters[t.ID]
		if ad == nil {
			continue
		}
		// Adapters own the trim translation and reach their aux engine
		// through Seek, so the mirror happens here too.
		if err := ad.Seek(local); err != nil {
			e.log.Warn().Str("track", string(t.ID)).Err(err).Msg("adapter seek failed")
		}
	}
	// The position is committed only after every adapter-level reset, so no
	// adapter observes an in-flight reconfiguration.
	e.clock.SetPosition(seconds)
	if wasPlaying {
		e.playLocked()
	}
}

// SetTempo clamps and applies a new tempo. Tick-addressed offsets recompute
// on the next scheduling pass; time-relative auxiliary engines are
// repositioned now so their internal "now" stays consistent.
func (e *Engine) SetTempo(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	applied := e.clock.SetTempo(bpm)
	if e.clock.State() == transport.Playing {
		for _, aux := range e.aux {
			aux.SetGlobalTempo(applied)
		}
	}
}

// HandleTrackPositionChanged records a track's new timeline position. While
// playing this is a full stop→reschedule→resume cycle: incremental
// adjustment of a moved track cannot be done safely against in-flight
// deferred starts.
func (e *Engine) HandleTrackPositionChanged(id TrackID, newPositionTicks int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.registry.TrackByID(id)
	if t == nil {
		return
	}
	if newPositionTicks < 0 {
		newPositionTicks = 0
	}
	t.PositionTicks = newPositionTicks
	e.restartPlaybackLocked()
}

// --- Track mutation entry points ---

func (e *Engine) SetTrackVolume(id TrackID, volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.registry.TrackByID(id)
	if t == nil {
		return
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	t.Volume = volume
	if ad := e.adapters[id]; ad != nil {
		ad.SetVolume(trackDB(t))
	}
}

func (e *Engine) SetTrackMuted(id TrackID, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.registry.TrackByID(id)
	if t == nil {
		return
	}
	t.Muted = muted
	if ad := e.adapters[id]; ad != nil {
		ad.SetVolume(trackDB(t))
	}
}

// SetTrackTrim changes the audible sub-range. Trim affects scheduling, so a
// change during playback restarts the cycle like a move does.
func (e *Engine) SetTrackTrim(id TrackID, start, end float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.registry.TrackByID(id)
	if t == nil {
		return
	}
	t.TrimStart, t.TrimEnd = start, end
	if trim, ok := e.adapters[id].(interface{ SetTrim(start, end float64) }); ok {
		s, en := t.TrimBounds()
		trim.SetTrim(s, en)
	}
	e.restartPlaybackLocked()
}

// --- Read surface ---

func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Position()
}

func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.State() == transport.Playing
}

func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Tempo()
}

// MaxPosition is the session length: the latest end time over all tracks at
// the current tempo.
func (e *Engine) MaxPosition() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxPositionLocked()
}

// Tracks exposes the engine-owned track list.
func (e *Engine) Tracks() *TrackList { return e.list }

// --- Render loop ---

// Process fills a stereo interleaved buffer, advancing the shared clock one
// sample at a time so deferred starts and fade settles fire at callback
// resolution. It is the engine's audio.Source implementation.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer.Process(dst, e.clock.Advance)
}

// Advance moves the clock without rendering. Test and offline harnesses use
// it to step virtual time deterministically.
func (e *Engine) Advance(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Advance(dt)
}

// --- Internals (callers hold e.mu) ---

// playLocked is the one scheduling pass: drain the deferred set, reset every
// adapter, then place each track as exactly one of start-now or deferred.
func (e *Engine) playLocked() {
	e.sched.CancelAll()
	e.resetAdaptersLocked()
	e.mixer.Fader().Reset()
	pos, bpm := e.clock.Position(), e.clock.Tempo()
	for _, t := range e.registry.Tracks() {
		ad := e.adapters[t.ID]
		if ad == nil {
			continue
		}
		ad.SetVolume(trackDB(t))
		start, end := t.TrimBounds()
		e.sched.Place(schedule.Placement{
			TrackID:       string(t.ID),
			PositionTicks: t.PositionTicks,
			TrimStart:     start,
			TrimEnd:       end,
		}, pos, bpm)
	}
	e.clock.Start()
}

// startTrack is the single dispatcher for immediate and deferred starts. An
// adapter failure leaves that track silent for the cycle; scheduling for
// every other track proceeds unaffected.
func (e *Engine) startTrack(id string, localOffset float64) {
	ad := e.adapters[TrackID(id)]
	if ad == nil {
		return
	}
	if err := ad.Start(e.clock.Now(), localOffset); err != nil {
		e.log.Warn().Str("track", id).Float64("local", localOffset).Err(err).
			Msg("adapter start failed, track silent this cycle")
		return
	}
	ad.Sync()
}

func (e *Engine) resetAdaptersLocked() {
	for id, ad := range e.adapters {
		if err := ad.Stop(); err != nil {
			e.log.Warn().Str("track", string(id)).Err(err).Msg("adapter stop failed")
		}
		ad.Unsync()
	}
}

func (e *Engine) finalizeStopLocked() {
	e.resetAdaptersLocked()
	for _, aux := range e.aux {
		aux.Stop()
	}
	e.clock.Stop()
}

func (e *Engine) restartPlaybackLocked() {
	if e.clock.State() != transport.Playing || e.busy {
		return
	}
	captured := e.clock.Position()
	e.sched.CancelAll()
	e.resetAdaptersLocked()
	e.clock.Pause()
	e.busy = true
	e.clock.ScheduleAfter(func() {
		e.clock.SetPosition(captured)
		e.busy = false
		e.playLocked()
	}, e.settleDelay)
}

func (e *Engine) maxPositionLocked() float64 {
	bpm := e.clock.Tempo()
	var max float64
	for _, t := range e.registry.Tracks() {
		if end := t.EndSeconds(bpm); end > max {
			max = end
		}
	}
	return max
}

func (e *Engine) rebuildSourcesLocked() {
	sources := make([]mix.Source, 0, len(e.adapters))
	for _, t := range e.registry.Tracks() {
		if src, ok := e.adapters[t.ID].(mix.Source); ok {
			sources = append(sources, src)
		}
	}
	e.mixer.SetSources(sources)
}

func trackDB(t *Track) float64 {
	if t.Muted {
		return player.SilenceDB
	}
	return player.VolumeToDB(t.Volume)
}

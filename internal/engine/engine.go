package engine

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"github.com/genricoloni/turntable/internal/durations"
	"github.com/genricoloni/turntable/internal/effects"
	"github.com/genricoloni/turntable/internal/playback"
	"github.com/genricoloni/turntable/internal/progress"
	"github.com/genricoloni/turntable/internal/tonearm"
	"go.uber.org/zap"
)

const updatesBuffer = 16

// Engine orchestrates the turntable.
// Every user intent, timer expiry, media callback and frame tick is applied on
// a single loop goroutine; the published snapshot is all other goroutines see.
type Engine struct {
	logger     *zap.Logger
	audio      domain.AudioElement
	effects    *effects.Sequencer
	aggregator *durations.Aggregator
	clock      domain.Clock

	msgs    chan envelope
	done    chan struct{}
	running atomic.Bool
	cancel  context.CancelFunc
	runCtx  context.Context
	wg      sync.WaitGroup // Duration resolvers

	// audioGen is the generation the audio element was last started under.
	// Read from the ended callback, which may run on any goroutine.
	audioGen atomic.Uint64

	// Owned by the loop goroutine
	settings      config.Settings
	machine       playback.Config
	bounds        tonearm.Bounds
	state         playback.State
	tracks        []domain.Track
	table         *durations.Table
	progress      *progress.Controller
	pending       []playback.Msg
	startTimer    domain.Timer
	resetTimer    domain.Timer
	frames        domain.Timer
	frameGen      uint64
	playlistGen   uint64
	resolveCancel context.CancelFunc

	lastDropWarning time.Time // Rate limiting for "channel full" warnings

	mu       sync.RWMutex
	snapshot domain.Snapshot
	updates  chan domain.Snapshot
}

// envelope carries a closure into the loop; done is closed once it and
// everything it triggered has been applied
type envelope struct {
	fn   func()
	done chan struct{}
}

// NewEngine creates the playback engine with an empty playlist
func NewEngine(
	logger *zap.Logger,
	audio domain.AudioElement,
	seq *effects.Sequencer,
	agg *durations.Aggregator,
	clock domain.Clock,
	settings config.Settings,
) *Engine {
	e := &Engine{
		logger:     logger,
		audio:      audio,
		effects:    seq,
		aggregator: agg,
		clock:      clock,
		msgs:       make(chan envelope),
		done:       make(chan struct{}),
		runCtx:     context.Background(),
		state:      playback.New(0),
		table:      durations.NewTable(0),
		progress:   progress.NewController(audio, settings.Scrub),
		updates:    make(chan domain.Snapshot, updatesBuffer),
	}
	// Until the element has decoded the track, the probed length stands in
	e.progress.SetFallbackDuration(func() float64 { return e.table.Get(e.state.Index) })
	e.applySettings(settings)
	e.snapshot = e.compute()

	audio.OnEnded(func() {
		gen := e.audioGen.Load()
		e.post(func() { e.dispatch(playback.TrackEnded{Gen: gen}) })
	})
	audio.OnFailed(func(err error) {
		gen := e.audioGen.Load()
		e.post(func() {
			e.logger.Error("Audio failed to start",
				zap.Int("index", e.state.Index),
				zap.Error(err))
			e.dispatch(playback.AudioFailed{Gen: gen, Err: err})
		})
	})

	return e
}

// Start launches the engine's event loop in a goroutine.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("Engine starting...")

	// The start context only bounds startup; the loop lives until Stop
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.runCtx = loopCtx
	e.cancel = cancel

	go e.runLoop(loopCtx)
	return nil
}

// Stop brings the player to rest and terminates the loop
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	e.logger.Info("Engine stopping...")

	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.wg.Wait()

	e.logger.Info("Engine stopped")
	return nil
}

// runLoop is the only goroutine that touches playback state
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			e.logger.Info("Engine loop stopped")
			return

		case env := <-e.msgs:
			env.fn()
			e.drain()
			e.publish()
			close(env.done)
		}
	}
}

// do runs fn on the loop and waits until it has been applied.
// It reports false if the engine is not running.
func (e *Engine) do(fn func()) bool {
	if !e.running.Load() {
		e.logger.Debug("Engine not running, ignoring request")
		return false
	}

	env := envelope{fn: fn, done: make(chan struct{})}
	select {
	case e.msgs <- env:
	case <-e.done:
		return false
	}

	select {
	case <-env.done:
		return true
	case <-e.done:
		return false
	}
}

// post delivers a callback from a timer, the audio element or a stinger.
// It must never be called from the loop goroutine itself; use enqueue there.
func (e *Engine) post(fn func()) {
	e.do(fn)
}

// enqueue schedules msg to run after the current message has been applied
func (e *Engine) enqueue(msg playback.Msg) {
	e.pending = append(e.pending, msg)
}

func (e *Engine) drain() {
	for len(e.pending) > 0 {
		msg := e.pending[0]
		e.pending = e.pending[1:]
		e.dispatch(msg)
	}
}

// dispatch runs msg through the state machine and executes the resulting effects
func (e *Engine) dispatch(msg playback.Msg) {
	prev := e.state
	next, effs := playback.Update(e.machine, e.state, msg)
	e.state = next

	if prev.Phase != next.Phase || prev.Index != next.Index {
		e.logger.Info("Playback transition",
			zap.Stringer("from", prev.Phase),
			zap.Stringer("to", next.Phase),
			zap.Int("index", next.Index))
	}

	for _, eff := range effs {
		if !e.execute(eff) {
			return
		}
	}
}

// execute carries out a single effect. It returns false when the remaining
// effects of the batch must be abandoned.
func (e *Engine) execute(eff playback.Effect) bool {
	switch eff := eff.(type) {
	case playback.LoadTrack:
		if eff.Index < 0 || eff.Index >= len(e.tracks) {
			return true
		}
		e.audio.Load(e.tracks[eff.Index])
		e.progress.Reset()

	case playback.StartAudio:
		e.audioGen.Store(eff.Gen)
		// A drag in progress owns the playhead; audio starts at release
		if e.progress.ResumeOnRelease() {
			return true
		}
		if err := e.audio.Play(); err != nil {
			e.logger.Error("Audio failed to start",
				zap.Int("index", e.state.Index),
				zap.Error(err))
			e.enqueue(playback.AudioFailed{Gen: eff.Gen, Err: err})
			return false
		}

	case playback.PauseAudio:
		e.audio.Pause()

	case playback.RewindAudio:
		e.audio.SetPosition(0)
		e.progress.Reset()

	case playback.SeekToEnd:
		e.audio.SetPosition(e.progress.Duration())
		e.progress.Tick()

	case playback.ScheduleStart:
		stopTimer(e.startTimer)
		gen := eff.Gen
		e.startTimer = e.clock.AfterFunc(eff.Delay, func() {
			e.post(func() { e.dispatch(playback.StartDue{Gen: gen}) })
		})

	case playback.ScheduleRunoutReset:
		stopTimer(e.resetTimer)
		gen := eff.Gen
		e.resetTimer = e.clock.AfterFunc(eff.Delay, func() {
			e.post(func() { e.dispatch(playback.RunoutResetDue{Gen: gen}) })
		})

	case playback.CancelTimers:
		stopTimer(e.startTimer)
		stopTimer(e.resetTimer)
		e.startTimer, e.resetTimer = nil, nil

	case playback.StartFrames:
		e.startFrames()

	case playback.StopFrames:
		e.stopFrames()

	case playback.FireStinger:
		e.fireStinger(eff)

	case playback.HaltStinger:
		e.effects.Halt(eff.Kind)
	}
	return true
}

func (e *Engine) fireStinger(eff playback.FireStinger) {
	if eff.Kind != domain.StingerRunout {
		e.effects.Fire(eff.Kind, nil)
		return
	}

	gen := eff.Gen
	ended := func() {
		e.post(func() { e.dispatch(playback.RunoutEnded{Gen: gen}) })
	}
	if !e.effects.Fire(domain.StingerRunout, ended) {
		// Nothing is sounding, so the runout is over already
		e.enqueue(playback.RunoutEnded{Gen: gen})
	}
}

func (e *Engine) startFrames() {
	if e.frames != nil {
		return
	}
	e.frameGen++
	gen := e.frameGen
	e.frames = e.clock.Every(e.settings.FrameInterval(), func() {
		e.post(func() { e.frame(gen) })
	})
}

func (e *Engine) stopFrames() {
	if e.frames == nil {
		return
	}
	e.frames.Stop()
	e.frames = nil
	e.frameGen++
	e.progress.Tick()
}

// frame is a progress poll; ticks from a stopped ticker are ignored
func (e *Engine) frame(gen uint64) {
	if gen != e.frameGen {
		return
	}
	e.progress.Tick()
}

func stopTimer(t domain.Timer) {
	if t != nil {
		t.Stop()
	}
}

// shutdown silences everything on the way out of the loop
func (e *Engine) shutdown() {
	stopTimer(e.startTimer)
	stopTimer(e.resetTimer)
	e.stopFrames()
	if e.resolveCancel != nil {
		e.resolveCancel()
	}
	e.audio.Pause()
	e.effects.Halt(domain.StingerDrop)
	e.effects.Halt(domain.StingerRunout)
}

func (e *Engine) applySettings(s config.Settings) {
	e.settings = s
	e.machine = playback.Config{
		TransitionDelay: s.TransitionDelay(),
		RunoutGrace:     s.RunoutGrace(),
	}
	e.bounds = tonearm.BoundsFromSettings(s)
	e.progress.SetOptions(s.Scrub)
	e.effects.SetOptions(s.Effects)

	// Pick up a changed frame rate
	if e.frames != nil {
		e.stopFrames()
		e.startFrames()
	}
}

// resolve probes the playlist durations in the background
func (e *Engine) resolve(gen uint64, tracks []domain.Track) {
	if e.resolveCancel != nil {
		e.resolveCancel()
	}
	ctx, cancel := context.WithCancel(e.runCtx)
	e.resolveCancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		err := e.aggregator.Resolve(ctx, tracks, func(index int, seconds float64) {
			e.post(func() {
				// A newer playlist has replaced this one
				if gen != e.playlistGen {
					return
				}
				e.table.Set(index, seconds)
			})
		})
		if err != nil {
			e.logger.Debug("Duration resolution abandoned", zap.Error(err))
			return
		}
		e.logger.Info("Playlist durations resolved", zap.Int("tracks", len(tracks)))
	}()
}

// compute builds the observable snapshot from the loop state
func (e *Engine) compute() domain.Snapshot {
	s := domain.Snapshot{
		Phase:          e.state.Phase,
		Playing:        e.state.Playing(),
		Index:          e.state.Index,
		Scrubbing:      e.progress.Scrubbing(),
		DurationsReady: e.table.Ready(),
	}

	if e.state.Index >= 0 && e.state.Index < len(e.tracks) {
		// Tracks are immutable for the lifetime of the playlist
		s.Track = &e.tracks[e.state.Index]
	}

	s.Elapsed = e.audio.Position()
	s.Duration = e.progress.Duration()

	s.Progress = e.progress.Tick()
	s.HoverSeconds, s.Hovering = e.progress.Hover()
	s.Angle = e.bounds.Angle(s.Phase, s.Index, s.Elapsed, s.Duration, e.table.Fractions())
	s.Presentation = domain.Presentation{
		RotationRPM:  e.settings.RotationRPM,
		Easing:       e.settings.Tonearm.Easing,
		Transition:   e.settings.TransitionDelay(),
		PivotX:       e.settings.Layout.PivotXPercent,
		PivotY:       e.settings.Layout.PivotYPercent,
		LabelPercent: e.settings.Layout.LabelPercent,
	}
	return s
}

// publish stores the snapshot and notifies subscribers if anything changed
func (e *Engine) publish() {
	snap := e.compute()

	e.mu.Lock()
	changed := snap != e.snapshot
	e.snapshot = snap
	e.mu.Unlock()

	if !changed {
		return
	}

	select {
	case e.updates <- snap:
	default:
		e.logChannelFullWarning()
	}
}

// logChannelFullWarning logs a warning about the updates channel being full,
// rate-limited to avoid log spam at frame rate
func (e *Engine) logChannelFullWarning() {
	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(e.lastDropWarning) >= warningInterval {
		e.logger.Warn("Updates channel full, dropping snapshot",
			zap.String("note", "Subscribers should read Snapshot() for the latest state."))
		e.lastDropWarning = now
	}
}

// Snapshot returns the latest published state
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Updates returns the channel snapshots are published on. Slow readers miss intermediate states.
func (e *Engine) Updates() <-chan domain.Snapshot {
	return e.updates
}

// Play places the needle on the current track
func (e *Engine) Play() {
	e.intent(playback.PlayIntent{})
}

// StopPlayback lifts the needle and rewinds
func (e *Engine) StopPlayback() {
	e.intent(playback.StopIntent{})
}

// Next selects the following track, wrapping to the first
func (e *Engine) Next() {
	e.intent(playback.NextIntent{})
}

// Previous selects the preceding track, staying on the first
func (e *Engine) Previous() {
	e.intent(playback.PreviousIntent{})
}

// SelectTrack jumps to the track at index; out of range indices are ignored
func (e *Engine) SelectTrack(index int) {
	e.intent(playback.SelectIntent{Index: index})
}

func (e *Engine) intent(msg playback.Msg) {
	e.do(func() {
		e.logger.Debug("Intent received", zap.String("intent", intentName(msg)))
		e.dispatch(msg)
	})
}

func intentName(msg playback.Msg) string {
	switch msg.(type) {
	case playback.PlayIntent:
		return "play"
	case playback.StopIntent:
		return "stop"
	case playback.NextIntent:
		return "next"
	case playback.PreviousIntent:
		return "previous"
	case playback.SelectIntent:
		return "select"
	default:
		return "unknown"
	}
}

// SetPlaylist replaces the track list. Playback stops and the first track is cued.
func (e *Engine) SetPlaylist(tracks []domain.Track) {
	tracks = slices.Clone(tracks)
	e.do(func() {
		e.playlistGen++
		e.tracks = tracks
		e.table = durations.NewTable(len(tracks))
		e.logger.Info("Playlist replaced", zap.Int("tracks", len(tracks)))

		e.dispatch(playback.PlaylistReplaced{Count: len(tracks)})
		e.resolve(e.playlistGen, tracks)
	})
}

// ApplySettings swaps the live settings
func (e *Engine) ApplySettings(s config.Settings) {
	e.do(func() {
		e.applySettings(s)
		e.logger.Info("Settings applied")
	})
}

// SetBar updates the progress bar geometry used by pointer interactions
func (e *Engine) SetBar(bar progress.Bar) {
	e.do(func() { e.progress.SetBar(bar) })
}

// ClickSeek seeks to the bar position under x
func (e *Engine) ClickSeek(x float64) {
	e.do(func() { e.progress.ClickSeek(x) })
}

// SeekRatio seeks to ratio of the current track
func (e *Engine) SeekRatio(ratio float64) {
	e.do(func() { e.progress.SeekRatio(ratio) })
}

// Skip moves the playhead by seconds, negative to go back
func (e *Engine) Skip(seconds float64) {
	e.do(func() { e.progress.Skip(seconds) })
}

// SkipForward moves the playhead ahead by the configured skip increment
func (e *Engine) SkipForward() {
	e.do(func() { e.progress.Skip(e.settings.Scrub.SkipSeconds) })
}

// SkipBackward moves the playhead back by the configured skip increment
func (e *Engine) SkipBackward() {
	e.do(func() { e.progress.Skip(-e.settings.Scrub.SkipSeconds) })
}

// DragStart begins a drag-seek at x. Audio pauses without a phase change.
func (e *Engine) DragStart(x float64) {
	e.do(func() {
		if !e.settings.Scrub.DragToSeek || e.progress.Scrubbing() {
			return
		}
		playing := e.state.Phase == domain.PhasePlaying
		if playing {
			e.audio.Pause()
		}
		e.progress.DragStart(x, playing)
	})
}

// DragMove follows the pointer during a drag-seek
func (e *Engine) DragMove(x float64) {
	e.do(func() { e.progress.DragMove(x) })
}

// DragEnd releases the drag at x, resuming audio if the player is still playing
func (e *Engine) DragEnd(x float64) {
	e.do(func() {
		if e.progress.DragEnd(x) && e.state.Phase == domain.PhasePlaying {
			e.resumeAudio()
		}
	})
}

func (e *Engine) resumeAudio() {
	if err := e.audio.Play(); err != nil {
		e.logger.Error("Audio failed to resume", zap.Error(err))
		e.enqueue(playback.AudioFailed{Gen: e.state.Gen, Err: err})
	}
}

// Hover shows the time under x as a preview
func (e *Engine) Hover(x float64) {
	e.do(func() { e.progress.HoverAt(x) })
}

// HoverEnd hides the preview
func (e *Engine) HoverEnd() {
	e.do(func() { e.progress.HoverEnd() })
}

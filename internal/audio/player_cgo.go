//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"sync"
	"time"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"
)

// Available indicates whether audio playback is supported in this build.
const Available = true

const (
	speakerRate  = beep.SampleRate(44100)
	fetchTimeout = 30 * time.Second
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker opens the output device once for the whole process
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// evict removes a stream from the speaker mixer; its trailing callback still fires
func evict(ctrl *beep.Ctrl) {
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = true
	ctrl.Streamer = nil
	speaker.Unlock()
}

// Element is the primary audio source. Load fetches and decodes the track on a
// background goroutine, so callers on the engine loop never wait on the network.
type Element struct {
	logger  *zap.Logger
	fetcher domain.Fetcher

	mu       sync.Mutex
	track    domain.Track
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	queued   bool
	pending  float64 // position requested before decoding
	gen      uint64  // bumped on every Load; callbacks of older loads are dropped
	loading  bool
	wantPlay bool // Play arrived while the track was still loading
	cancel   context.CancelFunc
	onEnded  func()
	onFailed func(error)
}

// NewElement creates the speaker-backed audio element
func NewElement(logger *zap.Logger, fetcher domain.Fetcher) *Element {
	return &Element{logger: logger, fetcher: fetcher}
}

func (e *Element) Load(track domain.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	e.track = track
	e.pending = 0
	e.wantPlay = false
	if track.URL != "" {
		e.prepareLocked()
	}
}

// releaseLocked drops the current stream (must be called with lock held)
func (e *Element) releaseLocked() {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.loading = false
	evict(e.ctrl)
	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil {
			e.logger.Debug("Failed to close stream", zap.Error(err))
		}
	}
	e.streamer = nil
	e.ctrl = nil
	e.queued = false
}

// prepareLocked starts fetching and decoding the loaded track
func (e *Element) prepareLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	e.cancel = cancel
	e.loading = true
	go e.prepare(ctx, cancel, e.gen, e.track)
}

func (e *Element) prepare(ctx context.Context, cancel context.CancelFunc, gen uint64, track domain.Track) {
	defer cancel()

	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
	)
	data, err := e.fetcher.Fetch(ctx, track.URL)
	if err == nil {
		streamer, f, err = decode(data, track.URL)
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		if streamer != nil {
			_ = streamer.Close()
		}
		return
	}
	e.loading = false
	e.cancel = nil
	want := e.wantPlay
	e.wantPlay = false
	fn := e.onFailed

	if err != nil {
		e.mu.Unlock()
		e.logger.Warn("Track could not be prepared",
			zap.String("title", track.Title),
			zap.String("url", track.URL),
			zap.Error(err))
		if want && fn != nil {
			fn(err)
		}
		return
	}

	e.streamer = streamer
	e.format = f
	if e.pending > 0 {
		e.pending = min(e.pending, e.durationLocked())
		e.seekLocked(e.pending)
	}
	e.logger.Debug("Track decoded",
		zap.String("title", track.Title),
		zap.Float64("duration", e.durationLocked()))

	if want {
		err = e.startLocked()
	}
	e.mu.Unlock()

	if err != nil && fn != nil {
		fn(err)
	}
}

func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer != nil {
		return e.startLocked()
	}
	if e.track.URL == "" {
		return ErrNoClip
	}

	e.wantPlay = true
	if !e.loading {
		// An earlier attempt failed; try again
		e.prepareLocked()
	}
	return nil
}

// startLocked unpauses the decoded stream, queueing it on the speaker first if needed
func (e *Element) startLocked() error {
	if err := initSpeaker(); err != nil {
		return err
	}

	if !e.queued {
		gen := e.gen
		resampled := beep.Resample(4, e.format.SampleRate, speakerRate, e.streamer)
		e.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
		speaker.Play(beep.Seq(e.ctrl, beep.Callback(func() {
			// The speaker holds its lock here
			go e.ended(gen)
		})))
		e.queued = true
	}

	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (e *Element) ended(gen uint64) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.queued = false
	e.ctrl = nil
	fn := e.onEnded
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wantPlay = false
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return e.pending
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

func (e *Element) durationLocked() float64 {
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// SetPosition seeks the decoded stream. Before decoding the position is kept
// and clamped to the track length once that is known.
func (e *Element) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	if e.streamer == nil {
		e.pending = seconds
		return
	}
	e.seekLocked(seconds)
}

func (e *Element) seekLocked(seconds float64) {
	samples := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	samples = min(samples, e.streamer.Len())

	speaker.Lock()
	err := e.streamer.Seek(samples)
	speaker.Unlock()
	if err != nil {
		e.logger.Warn("Seek failed", zap.Float64("seconds", seconds), zap.Error(err))
	}
}

func (e *Element) OnEnded(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

func (e *Element) OnFailed(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFailed = fn
}

// Stinger is a short clip that always plays from its beginning
type Stinger struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	locator string

	mu   sync.Mutex
	data []byte
	ctrl *beep.Ctrl
	gen  uint64
}

// NewStinger creates a stinger for the clip at locator; an empty locator disables it
func NewStinger(logger *zap.Logger, fetcher domain.Fetcher, locator string) *Stinger {
	return &Stinger{logger: logger, fetcher: fetcher, locator: locator}
}

// Preload fetches the clip ahead of its first Play
func (s *Stinger) Preload(ctx context.Context) error {
	if s.locator == "" {
		return nil
	}
	data, err := s.fetcher.Fetch(ctx, s.locator)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = data
	}
	return nil
}

func (s *Stinger) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locator == "" {
		return ErrNoClip
	}
	if s.data == nil {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		data, err := s.fetcher.Fetch(ctx, s.locator)
		if err != nil {
			return err
		}
		s.data = data
	}
	if err := initSpeaker(); err != nil {
		return err
	}

	// Restart: a clip still sounding is cut off
	s.gen++
	evict(s.ctrl)

	streamer, f, err := decode(s.data, s.locator)
	if err != nil {
		return err
	}

	gen := s.gen
	s.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, f.SampleRate, speakerRate, streamer)}
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		go s.ended(gen, streamer, onEnd)
	})))
	return nil
}

func (s *Stinger) ended(gen uint64, streamer beep.StreamSeekCloser, onEnd func()) {
	_ = streamer.Close()

	s.mu.Lock()
	current := gen == s.gen
	if current {
		s.ctrl = nil
	}
	s.mu.Unlock()

	if current && onEnd != nil {
		onEnd()
	}
}

func (s *Stinger) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	evict(s.ctrl)
	s.ctrl = nil
}

// Package audiotest provides in-memory audio elements and stingers for tests.
package audiotest

import (
	"context"
	"sync"

	"github.com/genricoloni/turntable/internal/domain"
)

// Element is a scriptable domain.AudioElement. Time only moves when Advance is called.
type Element struct {
	mu sync.Mutex

	// Durations maps track URLs to the duration reported after Load
	Durations map[string]float64
	// PlayErr, when set, is returned by every Play call
	PlayErr error
	// Lazy hides the duration until the first Play after Load, the way a
	// decoder that only opens media on demand behaves
	Lazy bool

	current  domain.Track
	loads    int
	decoded  bool
	position float64
	duration float64
	playing  bool
	plays    int
	pauses   int
	onEnded  func()
	onFailed func(error)
}

// NewElement creates an element reporting the given durations per URL
func NewElement(durations map[string]float64) *Element {
	return &Element{Durations: durations}
}

func (e *Element) Load(track domain.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = track
	e.loads++
	e.position = 0
	e.duration = e.Durations[track.URL]
	e.decoded = !e.Lazy
	e.playing = false
}

func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PlayErr != nil {
		return e.PlayErr
	}
	if !e.decoded {
		e.decoded = true
		e.position = min(e.position, e.duration)
	}
	e.playing = true
	e.plays++
	return nil
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	e.pauses++
}

func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.decoded {
		return 0
	}
	return e.duration
}

func (e *Element) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = seconds
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

// Fail reports a preparation failure for the loaded track, as a slow fetch
// or a corrupt file would after Play has already returned
func (e *Element) Fail(err error) {
	e.mu.Lock()
	e.playing = false
	fn := e.onFailed
	e.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// SetDuration overrides the duration of the loaded track
func (e *Element) SetDuration(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = seconds
}

// Advance moves the playhead forward if audio is playing
func (e *Element) Advance(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.position += seconds
	}
}

// Finish plays the loaded track to its end and fires the ended callback
func (e *Element) Finish() {
	e.mu.Lock()
	e.position = e.duration
	e.playing = false
	fn := e.onEnded
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Playing reports whether Play was called without a later Pause or Load
func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Current returns the loaded track
func (e *Element) Current() domain.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Plays returns the number of successful Play calls
func (e *Element) Plays() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays
}

// Pauses returns the number of Pause calls
func (e *Element) Pauses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauses
}

// Stinger is a scriptable domain.Stinger
type Stinger struct {
	mu sync.Mutex

	// PlayErr, when set, is returned by every Play call
	PlayErr error

	// PreloadErr, when set, is returned by every Preload call
	PreloadErr error

	plays    int
	stops    int
	preloads int
	playing  bool
	onEnd    func()
}

func (s *Stinger) Preload(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preloads++
	return s.PreloadErr
}

func (s *Stinger) Play(onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PlayErr != nil {
		return s.PlayErr
	}
	s.plays++
	s.playing = true
	s.onEnd = onEnd
	return nil
}

func (s *Stinger) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.playing = false
	s.onEnd = nil
}

// Finish ends the clip naturally, firing its completion callback
func (s *Stinger) Finish() {
	s.mu.Lock()
	fn := s.onEnd
	s.onEnd = nil
	s.playing = false
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Plays returns the number of times the clip started
func (s *Stinger) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// Preloads returns the number of Preload calls
func (s *Stinger) Preloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preloads
}

// Stops returns the number of Stop calls
func (s *Stinger) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Playing reports whether the clip is sounding
func (s *Stinger) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

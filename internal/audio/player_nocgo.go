//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"
	"sync"

	"github.com/genricoloni/turntable/internal/domain"
	"go.uber.org/zap"
)

// Available indicates whether audio playback is supported in this build.
// Audio requires cgo for native sound libraries.
const Available = false

// Element is a silent audio element for builds without cgo.
// Play always fails so the player falls back to Stopped.
type Element struct {
	logger *zap.Logger

	mu       sync.Mutex
	position float64
}

// NewElement creates a silent element
func NewElement(logger *zap.Logger, _ domain.Fetcher) *Element {
	return &Element{logger: logger}
}

func (e *Element) Load(domain.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = 0
}

func (e *Element) Play() error {
	return ErrUnavailable
}

func (e *Element) Pause() {}

func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Element) Duration() float64 {
	return 0
}

func (e *Element) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = max(seconds, 0)
}

func (e *Element) OnEnded(func()) {}

func (e *Element) OnFailed(func(error)) {}

// Stinger is a silent stinger for builds without cgo
type Stinger struct{}

// NewStinger creates a silent stinger
func NewStinger(_ *zap.Logger, _ domain.Fetcher, _ string) *Stinger {
	return &Stinger{}
}

// Preload has nothing to fetch without an output device
func (s *Stinger) Preload(context.Context) error {
	return nil
}

func (s *Stinger) Play(func()) error {
	return ErrUnavailable
}

func (s *Stinger) Stop() {}

package domain

import (
	"context"
	"time"
)

// AudioElement is the single audio source driven by the playback engine.
// All methods are called from the engine loop only.
type AudioElement interface {
	// Load selects the track to play and rewinds to its start. Preparing the
	// media may continue in the background; Load never starts playback.
	Load(track Track)

	// Play starts or resumes playback from the stored position. If the track
	// is still being prepared, Play returns at once and audio starts when it
	// is ready; a preparation failure is then reported through OnFailed.
	Play() error

	// Pause halts playback, keeping the position
	Pause()

	// Position returns the elapsed time in seconds
	Position() float64

	// Duration returns the current track duration in seconds, or 0 when unknown
	Duration() float64

	// SetPosition moves the playhead to the given time in seconds
	SetPosition(seconds float64)

	// OnEnded registers the callback invoked when the loaded track plays to its end.
	// The callback may be invoked from any goroutine.
	OnEnded(fn func())

	// OnFailed registers the callback invoked when a requested Play could not
	// be carried out after Play returned. The callback may be invoked from any goroutine.
	OnFailed(fn func(err error))
}

// Stinger is a short one-shot audio cue
type Stinger interface {
	// Play starts the clip from its beginning; onEnd runs once when it finishes naturally
	Play(onEnd func()) error

	// Stop halts the clip immediately; onEnd is not called
	Stop()
}

// Prober resolves media durations
//
//go:generate mockgen -destination=../durations/mocks/prober_mock.go -package=mocks github.com/genricoloni/turntable/internal/domain Prober
type Prober interface {
	// Probe returns the duration of the media at url in seconds
	Probe(ctx context.Context, url string) (float64, error)
}

// Fetcher retrieves raw bytes for media and images
type Fetcher interface {
	// Fetch downloads or reads data from a URL or local path
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Timer is a pending scheduled callback
type Timer interface {
	// Stop cancels the callback; it reports whether the call stopped it before it fired
	Stop() bool
}

// Clock schedules the engine's delayed and periodic work
type Clock interface {
	// AfterFunc runs f once after d
	AfterFunc(d time.Duration, f func()) Timer

	// Every runs f every d until the returned timer is stopped
	Every(d time.Duration, f func()) Timer
}

// Controller is the set of playback entry points exposed to the surrounding UI
type Controller interface {
	Play()
	StopPlayback()
	Next()
	Previous()
	SelectTrack(index int)
	SeekRatio(ratio float64)
	Skip(seconds float64)
	SkipForward()
	SkipBackward()
	Snapshot() Snapshot
	Updates() <-chan Snapshot
}

// Config defines the interface for process-level configuration
type Config interface {
	// GetSettingsPath returns the persisted settings file location
	GetSettingsPath() string

	// GetPlaylistPath returns the track list file location
	GetPlaylistPath() string

	// GetOutputDir returns the directory for rendered assets
	GetOutputDir() string

	// GetLabelURL returns the configured center-label locator, possibly empty
	GetLabelURL() string
}

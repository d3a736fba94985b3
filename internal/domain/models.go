package domain

import "time"

// Phase is the playback state machine's current named state
type Phase int

const (
	// PhaseStopped means no audio is meant to advance and the tonearm rests
	PhaseStopped Phase = iota
	// PhaseEnteringPlayback means the tonearm is travelling to the record; audio has not started yet
	PhaseEnteringPlayback
	// PhasePlaying means audio is advancing
	PhasePlaying
	// PhaseEndOfPlaylist means the last track ended and the runout stinger is sounding
	PhaseEndOfPlaylist
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "Stopped"
	case PhaseEnteringPlayback:
		return "EnteringPlayback"
	case PhasePlaying:
		return "Playing"
	case PhaseEndOfPlaylist:
		return "EndOfPlaylist"
	default:
		return "Unknown"
	}
}

// Track is a single playlist entry. It is immutable for the lifetime of a playlist.
type Track struct {
	// ID is a stable identity supplied by the track-list collaborator
	ID string `json:"id"`
	// Title of the track
	Title string `json:"title"`
	// Artist name
	Artist string `json:"artist"`
	// URL is the resolvable media locator (http(s), file:// or a local path)
	URL string `json:"url"`
}

// TrackFraction is a track's half-open share [Start, End) of the whole-playlist rotation timeline
type TrackFraction struct {
	Start float64
	End   float64
}

// StingerKind identifies one of the one-shot audio cues
type StingerKind int

const (
	// StingerDrop is the needle-drop sound played when audio first starts in a session
	StingerDrop StingerKind = iota
	// StingerRunout is the locked-groove sound played when the last track ends
	StingerRunout
)

// String returns the stinger name
func (k StingerKind) String() string {
	if k == StingerDrop {
		return "drop"
	}
	return "runout"
}

// Snapshot is the observable state published to the presentation layer
type Snapshot struct {
	Phase Phase
	// Playing is true while the tonearm is on the record (EnteringPlayback, Playing, EndOfPlaylist)
	Playing bool
	Index   int
	Track   *Track
	// Progress is elapsed/duration of the current track in [0,1]
	Progress float64
	// Angle is the tonearm rotation in degrees
	Angle    float64
	Elapsed  float64
	Duration float64
	// Scrubbing is true while a drag-seek is in progress
	Scrubbing bool
	// HoverSeconds is the time under the pointer, valid when Hovering is true
	HoverSeconds float64
	Hovering     bool
	// DurationsReady is true once every track duration has been resolved
	DurationsReady bool
	// Presentation carries the live settings the renderer animates with
	Presentation Presentation
}

// Presentation is the subset of the settings that drives rendering rather than playback
type Presentation struct {
	// RotationRPM is the platter speed while the tonearm is on the record
	RotationRPM float64
	// Easing names the timing curve of the tonearm travel
	Easing string
	// Transition is how long the tonearm travel takes
	Transition time.Duration
	// PivotX and PivotY place the tonearm pivot as fractions of the widget size
	PivotX float64
	PivotY float64
	// LabelPercent is the center label diameter as a fraction of the screen height
	LabelPercent float64
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}

package config

import (
	"time"
)

// SettingsVersion is the shape version of the persisted settings blob.
// Bump it whenever a field changes meaning; stored blobs with another version are discarded.
const SettingsVersion = 3

// StorageKey is the key the settings blob is stored under
const StorageKey = "turntable.player.settings"

// Layout holds spatial layout percentages consumed by the presentation layer
type Layout struct {
	// LabelPercent is the center label diameter as a fraction of screen height (0.0-1.0)
	LabelPercent float64 `json:"labelPercent"`
	// PivotXPercent and PivotYPercent place the tonearm pivot inside the widget
	PivotXPercent float64 `json:"pivotXPercent"`
	PivotYPercent float64 `json:"pivotYPercent"`
}

// Tonearm holds the tonearm rotation bounds and animation timing
type Tonearm struct {
	RestAngle  float64 `json:"restAngle"`
	StartAngle float64 `json:"startAngle"`
	EndAngle   float64 `json:"endAngle"`
	// TransitionMS is how long the arm takes to reach the record before audio starts
	TransitionMS int    `json:"transitionMs"`
	Easing       string `json:"easing"`
}

// Scrub toggles the seek interactions
type Scrub struct {
	ClickToSeek  bool    `json:"clickToSeek"`
	DragToSeek   bool    `json:"dragToSeek"`
	HoverPreview bool    `json:"hoverPreview"`
	SkipSeconds  float64 `json:"skipSeconds"`
}

// Effects configures the drop and runout stingers
type Effects struct {
	DropEnabled   bool   `json:"dropEnabled"`
	RunoutEnabled bool   `json:"runoutEnabled"`
	DropURL       string `json:"dropUrl"`
	RunoutURL     string `json:"runoutUrl"`
	// RunoutGraceMS is the pause after the runout clip ends before the player stops
	RunoutGraceMS int `json:"runoutGraceMs"`
}

// Settings is the persisted, versioned player configuration
type Settings struct {
	Version     int     `json:"version"`
	Layout      Layout  `json:"layout"`
	Tonearm     Tonearm `json:"tonearm"`
	RotationRPM float64 `json:"rotationRpm"`
	FrameRate   int     `json:"frameRate"`
	Scrub       Scrub   `json:"scrub"`
	Effects     Effects `json:"effects"`
}

// DefaultSettings returns the built-in settings
func DefaultSettings() Settings {
	return Settings{
		Version: SettingsVersion,
		Layout: Layout{
			LabelPercent:  0.30,
			PivotXPercent: 0.85,
			PivotYPercent: 0.15,
		},
		Tonearm: Tonearm{
			RestAngle:    0,
			StartAngle:   18,
			EndAngle:     42,
			TransitionMS: 1200,
			Easing:       "ease-in-out",
		},
		RotationRPM: 33.333,
		FrameRate:   60,
		Scrub: Scrub{
			ClickToSeek:  true,
			DragToSeek:   true,
			HoverPreview: true,
			SkipSeconds:  10,
		},
		Effects: Effects{
			DropEnabled:   true,
			RunoutEnabled: true,
			RunoutGraceMS: 500,
		},
	}
}

// TransitionDelay returns the tonearm travel time
func (s Settings) TransitionDelay() time.Duration {
	return time.Duration(s.Tonearm.TransitionMS) * time.Millisecond
}

// RunoutGrace returns the delay between the runout clip ending and the player stopping
func (s Settings) RunoutGrace() time.Duration {
	return time.Duration(s.Effects.RunoutGraceMS) * time.Millisecond
}

// FrameInterval returns the progress polling period
func (s Settings) FrameInterval() time.Duration {
	if s.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.FrameRate)
}

// sanitize replaces values that cannot drive the player with defaults
func (s Settings) sanitize() Settings {
	def := DefaultSettings()
	if s.Tonearm.TransitionMS < 0 {
		s.Tonearm.TransitionMS = def.Tonearm.TransitionMS
	}
	if s.Effects.RunoutGraceMS < 0 {
		s.Effects.RunoutGraceMS = def.Effects.RunoutGraceMS
	}
	if s.FrameRate <= 0 || s.FrameRate > 240 {
		s.FrameRate = def.FrameRate
	}
	if s.Scrub.SkipSeconds <= 0 {
		s.Scrub.SkipSeconds = def.Scrub.SkipSeconds
	}
	if s.Layout.LabelPercent <= 0 || s.Layout.LabelPercent > 1 {
		s.Layout.LabelPercent = def.Layout.LabelPercent
	}
	return s
}

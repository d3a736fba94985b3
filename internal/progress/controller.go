// Package progress bridges the audio playhead and the progress indicator,
// including click, drag and hover interactions on the progress bar.
package progress

import (
	"math"

	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"github.com/samber/lo"
)

// Bar is the horizontal bounding box of the progress track in screen coordinates
type Bar struct {
	Left  float64
	Width float64
}

// RatioAt converts a pointer x coordinate into a position ratio in [0,1]
func (b Bar) RatioAt(x float64) float64 {
	if !(b.Width > 0) || math.IsNaN(x) {
		return 0
	}
	return clampRatio((x - b.Left) / b.Width)
}

func clampRatio(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return lo.Clamp(r, 0, 1)
}

// Controller tracks the displayed progress and the scrub state.
// It is only ever driven from the engine loop, which hands it temporary
// write access to the audio position.
type Controller struct {
	audio    domain.AudioElement
	options  config.Scrub
	bar      Bar
	fallback func() float64

	ratio     float64
	scrubbing bool
	resume    bool
	hovering  bool
	hoverAt   float64
}

// NewController creates a controller bound to the audio element
func NewController(audio domain.AudioElement, options config.Scrub) *Controller {
	return &Controller{audio: audio, options: options}
}

// SetOptions replaces the interaction toggles
func (c *Controller) SetOptions(options config.Scrub) {
	c.options = options
}

// SetFallbackDuration supplies the length to use while the audio element
// has not decoded the loaded track yet
func (c *Controller) SetFallbackDuration(fn func() float64) {
	c.fallback = fn
}

// Duration is the length of the loaded track, or 0 when nothing knows it yet
func (c *Controller) Duration() float64 {
	if dur := c.audio.Duration(); dur > 0 && !math.IsInf(dur, 0) {
		return dur
	}
	if c.fallback == nil {
		return 0
	}
	if dur := c.fallback(); dur > 0 && !math.IsInf(dur, 0) {
		return dur
	}
	return 0
}

// SetBar updates the progress track geometry
func (c *Controller) SetBar(bar Bar) {
	c.bar = bar
}

// Ratio returns the last published progress ratio
func (c *Controller) Ratio() float64 {
	return c.ratio
}

// Scrubbing reports whether a drag-seek is in progress
func (c *Controller) Scrubbing() bool {
	return c.scrubbing
}

// Hover returns the time under the pointer, if the pointer is over the bar
func (c *Controller) Hover() (float64, bool) {
	return c.hoverAt, c.hovering
}

// Tick recomputes the progress ratio from the audio element.
// While scrubbing the drag owns the position and Tick leaves it alone.
func (c *Controller) Tick() float64 {
	if c.scrubbing {
		return c.ratio
	}
	c.ratio = c.read()
	return c.ratio
}

func (c *Controller) read() float64 {
	dur := c.Duration()
	if !(dur > 0) {
		return 0
	}
	return clampRatio(c.audio.Position() / dur)
}

// Reset forgets any drag in progress and re-reads the playhead
func (c *Controller) Reset() {
	c.scrubbing = false
	c.resume = false
	c.ratio = c.read()
}

// SeekRatio moves the playhead to ratio of the track duration.
// It reports false when the duration is not known yet.
func (c *Controller) SeekRatio(ratio float64) bool {
	dur := c.Duration()
	if !(dur > 0) {
		return false
	}
	ratio = clampRatio(ratio)
	c.audio.SetPosition(ratio * dur)
	c.ratio = ratio
	return true
}

// ClickSeek seeks to the bar position under x
func (c *Controller) ClickSeek(x float64) bool {
	if !c.options.ClickToSeek {
		return false
	}
	return c.SeekRatio(c.bar.RatioAt(x))
}

// DragStart enters the scrub state at x. wasPlaying records whether audio
// was running (and has been paused by the caller) so DragEnd can resume it.
func (c *Controller) DragStart(x float64, wasPlaying bool) bool {
	if !c.options.DragToSeek || c.scrubbing {
		return false
	}
	c.scrubbing = true
	c.resume = wasPlaying
	c.hovering = false
	c.SeekRatio(c.bar.RatioAt(x))
	return true
}

// DragMove follows the pointer while scrubbing
func (c *Controller) DragMove(x float64) {
	if !c.scrubbing {
		return
	}
	c.SeekRatio(c.bar.RatioAt(x))
}

// DragEnd leaves the scrub state at x and reports whether audio should resume
func (c *Controller) DragEnd(x float64) bool {
	if !c.scrubbing {
		return false
	}
	c.SeekRatio(c.bar.RatioAt(x))
	resume := c.resume
	c.scrubbing = false
	c.resume = false
	return resume
}

// ResumeOnRelease asks the drag in progress to resume audio at release.
// It reports false when no drag is in progress.
func (c *Controller) ResumeOnRelease() bool {
	if !c.scrubbing {
		return false
	}
	c.resume = true
	return true
}

// HoverAt records the time under the pointer for a tooltip. It never touches the audio.
func (c *Controller) HoverAt(x float64) (float64, bool) {
	if !c.options.HoverPreview || c.scrubbing {
		c.hovering = false
		return 0, false
	}
	dur := c.Duration()
	if !(dur > 0) {
		c.hovering = false
		return 0, false
	}
	c.hoverAt = c.bar.RatioAt(x) * dur
	c.hovering = true
	return c.hoverAt, true
}

// HoverEnd clears the tooltip
func (c *Controller) HoverEnd() {
	c.hovering = false
	c.hoverAt = 0
}

// Skip moves the playhead by delta seconds, clamped to [0, duration]
func (c *Controller) Skip(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	target := math.Max(c.audio.Position()+delta, 0)
	if dur := c.Duration(); dur > 0 {
		target = math.Min(target, dur)
	}
	c.audio.SetPosition(target)
	if !c.scrubbing {
		c.ratio = c.read()
	}
}

// Package tonearm maps playback position to the tonearm's rotation.
package tonearm

import (
	"math"

	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"github.com/samber/lo"
)

// StartEpsilon is the elapsed time below which a track counts as not started.
// It masks the race between a track starting and its metadata arriving.
const StartEpsilon = 0.05

// Bounds are the tonearm angles in degrees
type Bounds struct {
	// Rest is the parked position off the record
	Rest float64
	// Start is the lead-in groove of the first track
	Start float64
	// End is the end of the last track
	End float64
}

// BoundsFromSettings extracts the tonearm angles from the persisted settings
func BoundsFromSettings(s config.Settings) Bounds {
	return Bounds{
		Rest:  s.Tonearm.RestAngle,
		Start: s.Tonearm.StartAngle,
		End:   s.Tonearm.EndAngle,
	}
}

// Angle returns the tonearm rotation for the given playback situation.
// elapsed and duration are the current track's position and length in seconds.
func (b Bounds) Angle(phase domain.Phase, index int, elapsed, duration float64, table []domain.TrackFraction) float64 {
	if phase == domain.PhaseStopped {
		return b.Rest
	}

	validDuration := duration > 0 && !math.IsInf(duration, 0)
	if phase == domain.PhaseEnteringPlayback || !(elapsed >= StartEpsilon) || !validDuration {
		return b.trackStart(index, table)
	}

	if index < 0 || index >= len(table) {
		return b.Start
	}

	f := table[index]
	intra := lo.Clamp(elapsed/duration, 0, 1)
	return b.lerp(f.Start + intra*(f.End-f.Start))
}

// trackStart is the angle of the lead-in of track index
func (b Bounds) trackStart(index int, table []domain.TrackFraction) float64 {
	// The first drop always lands on exactly Start, whatever rounding the table carries
	if index <= 0 || index >= len(table) {
		return b.Start
	}
	return b.lerp(table[index].Start)
}

func (b Bounds) lerp(fraction float64) float64 {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	fraction = lo.Clamp(fraction, 0, 1)
	return b.Start + fraction*(b.End-b.Start)
}

package tonearm

import (
	"math"
	"testing"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/genricoloni/turntable/internal/durations"
)

var testBounds = Bounds{Rest: -5, Start: 20, End: 40}

func TestAngle(t *testing.T) {
	equal := durations.Fractions([]float64{0, 0, 0, 0})       // quarters
	weighted := durations.Fractions([]float64{100, 100, 200}) // 0.25, 0.25, 0.5
	rounded := []domain.TrackFraction{{Start: 1e-12, End: 0.5}, {Start: 0.5, End: 1}} // first start off by rounding

	tests := []struct {
		name     string
		phase    domain.Phase
		index    int
		elapsed  float64
		duration float64
		table    []domain.TrackFraction
		expected float64
	}{
		{"Stopped Rests Regardless Of Track", domain.PhaseStopped, 3, 99, 100, equal, -5},
		{"Stopped Rests With Empty Table", domain.PhaseStopped, 0, 0, 0, nil, -5},
		{"Entering First Track Is Exactly Start", domain.PhaseEnteringPlayback, 0, 0, 200, rounded, 20},
		{"Entering Later Track Uses Fraction Start", domain.PhaseEnteringPlayback, 2, 0, 200, equal, 30},
		{"Entering Ignores Elapsed", domain.PhaseEnteringPlayback, 1, 50, 100, equal, 25},
		{"Playing Below Epsilon Is Track Start", domain.PhasePlaying, 1, 0.01, 100, equal, 25},
		{"Playing First Track Start Is Exactly Start", domain.PhasePlaying, 0, 0, 100, rounded, 20},
		{"Playing Unknown Duration Is Track Start", domain.PhasePlaying, 2, 30, 0, equal, 30},
		{"Playing NaN Duration Is Track Start", domain.PhasePlaying, 2, 30, math.NaN(), equal, 30},
		{"Playing Infinite Duration Is Track Start", domain.PhasePlaying, 2, 30, math.Inf(1), equal, 30},
		{"Playing Midway Interpolates Globally", domain.PhasePlaying, 2, 100, 200, weighted, 35},
		{"Playing Halfway Through First Quarter", domain.PhasePlaying, 0, 50, 100, equal, 22.5},
		{"Elapsed Beyond Duration Clamps To Track End", domain.PhasePlaying, 3, 150, 100, equal, 40},
		{"End Of Playlist Holds End Position", domain.PhaseEndOfPlaylist, 2, 200, 200, weighted, 40},
		{"Index Outside Table Falls Back To Start", domain.PhasePlaying, 9, 10, 100, equal, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testBounds.Angle(tt.phase, tt.index, tt.elapsed, tt.duration, tt.table)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAngle_Monotonic(t *testing.T) {
	table := durations.Fractions([]float64{30, 240, 90})
	prev := math.Inf(-1)
	for i := range table {
		dur := 100.0
		for elapsed := StartEpsilon; elapsed <= dur; elapsed += 5 {
			got := testBounds.Angle(domain.PhasePlaying, i, elapsed, dur, table)
			if got < prev-1e-9 {
				t.Fatalf("angle went backwards at track %d elapsed %v: %v < %v", i, elapsed, got, prev)
			}
			if got < testBounds.Start || got > testBounds.End {
				t.Fatalf("angle %v outside [%v, %v]", got, testBounds.Start, testBounds.End)
			}
			prev = got
		}
	}
}

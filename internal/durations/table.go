package durations

import (
	"math"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/samber/lo"
)

// Table holds the resolved duration of every playlist index.
// A zero entry means the duration is unresolved or its probe failed.
type Table struct {
	seconds []float64
}

// NewTable creates a table for a playlist of n tracks, all unresolved
func NewTable(n int) *Table {
	if n < 0 {
		n = 0
	}
	return &Table{seconds: make([]float64, n)}
}

// Len returns the number of tracks the table covers
func (t *Table) Len() int {
	return len(t.seconds)
}

// Set records the duration for index i. Non-finite or negative values are
// stored as the unresolved sentinel; out-of-range indices are ignored.
func (t *Table) Set(i int, seconds float64) {
	if i < 0 || i >= len(t.seconds) {
		return
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	t.seconds[i] = seconds
}

// Get returns the duration for index i, or 0 when unknown
func (t *Table) Get(i int) float64 {
	if i < 0 || i >= len(t.seconds) {
		return 0
	}
	return t.seconds[i]
}

// Ready reports whether every track has a known, positive duration
func (t *Table) Ready() bool {
	return ready(t.seconds)
}

// Fractions derives the per-track rotation fractions from the table
func (t *Table) Fractions() []domain.TrackFraction {
	return Fractions(t.seconds)
}

func ready(seconds []float64) bool {
	return len(seconds) > 0 && lo.EveryBy(seconds, func(s float64) bool { return s > 0 })
}

// Fractions partitions [0,1) among the tracks. Until every duration is known
// each track gets an equal 1/N share; afterwards shares are proportional to
// duration. Adjacent fractions always share their boundary exactly, the first
// starts at 0 and the last ends at 1.
func Fractions(seconds []float64) []domain.TrackFraction {
	n := len(seconds)
	if n == 0 {
		return nil
	}

	out := make([]domain.TrackFraction, n)

	if !ready(seconds) {
		for i := range out {
			out[i] = domain.TrackFraction{
				Start: float64(i) / float64(n),
				End:   float64(i+1) / float64(n),
			}
		}
		out[n-1].End = 1
		return out
	}

	total := lo.Sum(seconds)
	cumulative := 0.0
	start := 0.0
	for i, s := range seconds {
		cumulative += s
		end := cumulative / total
		if i == n-1 {
			end = 1
		}
		out[i] = domain.TrackFraction{Start: start, End: end}
		start = end
	}
	return out
}

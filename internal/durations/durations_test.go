package durations

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/genricoloni/turntable/internal/domain"
	"github.com/genricoloni/turntable/internal/durations/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const tolerance = 1e-9

func TestFractions(t *testing.T) {
	tests := []struct {
		name     string
		seconds  []float64
		expected []domain.TrackFraction
	}{
		{
			name:     "Empty Playlist",
			seconds:  nil,
			expected: nil,
		},
		{
			name:     "All Unresolved Falls Back To Equal Partition",
			seconds:  []float64{0, 0, 0, 0},
			expected: []domain.TrackFraction{{Start: 0, End: 0.25}, {Start: 0.25, End: 0.5}, {Start: 0.5, End: 0.75}, {Start: 0.75, End: 1}},
		},
		{
			name:     "One Failed Probe Keeps Equal Partition",
			seconds:  []float64{100, 0, 300},
			expected: []domain.TrackFraction{{Start: 0, End: 1.0 / 3}, {Start: 1.0 / 3, End: 2.0 / 3}, {Start: 2.0 / 3, End: 1}},
		},
		{
			name:     "All Known Uses Cumulative Ratios",
			seconds:  []float64{100, 100, 200},
			expected: []domain.TrackFraction{{Start: 0, End: 0.25}, {Start: 0.25, End: 0.5}, {Start: 0.5, End: 1}},
		},
		{
			name:     "Single Track Spans Everything",
			seconds:  []float64{42},
			expected: []domain.TrackFraction{{Start: 0, End: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fractions(tt.seconds)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d fractions, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if math.Abs(got[i].Start-tt.expected[i].Start) > tolerance ||
					math.Abs(got[i].End-tt.expected[i].End) > tolerance {
					t.Errorf("fraction %d: expected %+v, got %+v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestFractions_ContiguousAndBounded(t *testing.T) {
	inputs := [][]float64{
		{3.3, 187.25, 0.4, 61, 245.9, 12.01, 7},
		{0, 5, 0},
		{1e-3, 1e6},
	}

	for _, seconds := range inputs {
		t.Run(fmt.Sprint(seconds), func(t *testing.T) {
			got := Fractions(seconds)
			if got[0].Start != 0 {
				t.Errorf("first fraction must start at 0, got %v", got[0].Start)
			}
			if got[len(got)-1].End != 1 {
				t.Errorf("last fraction must end at 1, got %v", got[len(got)-1].End)
			}
			for i, f := range got {
				if f.Start > f.End {
					t.Errorf("fraction %d inverted: %+v", i, f)
				}
				if i > 0 && got[i-1].End != f.Start {
					t.Errorf("fractions %d and %d not contiguous: %v != %v", i-1, i, got[i-1].End, f.Start)
				}
			}

			// Idempotent
			again := Fractions(seconds)
			for i := range got {
				if got[i] != again[i] {
					t.Errorf("recompute changed fraction %d: %+v vs %+v", i, got[i], again[i])
				}
			}
		})
	}
}

func TestTable(t *testing.T) {
	table := NewTable(3)
	if table.Ready() {
		t.Error("fresh table must not be ready")
	}

	table.Set(0, 120)
	table.Set(1, math.NaN())
	table.Set(2, 60)
	table.Set(7, 10) // Ignored
	if table.Ready() {
		t.Error("NaN duration must count as unresolved")
	}
	if table.Get(1) != 0 {
		t.Errorf("NaN should be stored as 0, got %v", table.Get(1))
	}

	table.Set(1, 120)
	if !table.Ready() {
		t.Error("table should be ready once every duration is positive")
	}
	if f := table.Fractions(); math.Abs(f[1].End-0.8) > tolerance {
		t.Errorf("expected second fraction to end at 0.8, got %v", f[1].End)
	}

	if NewTable(0).Ready() {
		t.Error("empty table must never be ready")
	}
}

func TestAggregator_Resolve(t *testing.T) {
	tracks := []domain.Track{
		{ID: "a", Title: "Side A", URL: "https://example.com/a.mp3"},
		{ID: "b", Title: "Broken", URL: "https://example.com/b.mp3"},
		{ID: "c", Title: "Side C", URL: "https://example.com/c.wav"},
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), "https://example.com/a.mp3").Return(180.0, nil)
	prober.EXPECT().Probe(gomock.Any(), "https://example.com/b.mp3").Return(0.0, fmt.Errorf("corrupt frame header"))
	prober.EXPECT().Probe(gomock.Any(), "https://example.com/c.wav").Return(95.5, nil)

	agg := NewAggregator(zap.NewNop(), prober)

	var mu sync.Mutex
	table := NewTable(len(tracks))
	delivered := 0

	err := agg.Resolve(context.Background(), tracks, func(i int, s float64) {
		mu.Lock()
		defer mu.Unlock()
		table.Set(i, s)
		delivered++
	})
	if err != nil {
		t.Fatalf("failed probes must not fail the aggregation: %v", err)
	}
	if delivered != len(tracks) {
		t.Errorf("expected %d deliveries, got %d", len(tracks), delivered)
	}
	if table.Get(0) != 180 || table.Get(1) != 0 || table.Get(2) != 95.5 {
		t.Errorf("unexpected durations: %v %v %v", table.Get(0), table.Get(1), table.Get(2))
	}
	if table.Ready() {
		t.Error("table with a failed probe must not be ready")
	}
}

func TestAggregator_ResolveCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), gomock.Any()).Return(10.0, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewAggregator(zap.NewNop(), prober)
	err := agg.Resolve(ctx, []domain.Track{{URL: "x"}, {URL: "y"}}, func(int, float64) {})
	if err == nil {
		t.Error("expected context error")
	}
}

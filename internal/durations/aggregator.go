package durations

import (
	"context"

	"github.com/genricoloni/turntable/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Aggregator resolves the durations of a whole playlist.
// Individual probe failures degrade to the 0 sentinel and never fail the aggregation.
type Aggregator struct {
	logger      *zap.Logger
	prober      domain.Prober
	concurrency int
}

// NewAggregator creates an aggregator that probes through p
func NewAggregator(logger *zap.Logger, p domain.Prober) *Aggregator {
	return &Aggregator{
		logger:      logger,
		prober:      p,
		concurrency: defaultConcurrency,
	}
}

// Resolve probes every track and reports each result through deliver as soon
// as it is known. deliver may be called concurrently from several goroutines.
// It returns only once all probes finished, or with ctx's error if cancelled.
func (a *Aggregator) Resolve(ctx context.Context, tracks []domain.Track, deliver func(index int, seconds float64)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, track := range tracks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			seconds, err := a.prober.Probe(gctx, track.URL)
			if err != nil || seconds <= 0 {
				// Corrupt files, network errors and unsupported formats all look the same to the player
				a.logger.Warn("Duration probe failed, falling back to equal partition",
					zap.Int("index", i),
					zap.String("title", track.Title),
					zap.String("url", track.URL),
					zap.Error(err))
				seconds = 0
			} else {
				a.logger.Debug("Duration resolved",
					zap.Int("index", i),
					zap.String("title", track.Title),
					zap.Float64("seconds", seconds))
			}

			deliver(i, seconds)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

package effects

import (
	"context"
	"sync"

	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sequencer fires the drop and runout stingers. Stinger failures are logged
// and swallowed; they never block primary playback.
type Sequencer struct {
	logger *zap.Logger
	drop   domain.Stinger
	runout domain.Stinger

	mu      sync.RWMutex
	options config.Effects
}

// NewSequencer creates a sequencer for the two stingers. Either may be nil,
// which behaves like a disabled stinger.
func NewSequencer(logger *zap.Logger, drop, runout domain.Stinger, options config.Effects) *Sequencer {
	return &Sequencer{
		logger:  logger,
		drop:    drop,
		runout:  runout,
		options: options,
	}
}

type preloader interface {
	Preload(ctx context.Context) error
}

// Preload fetches both clips so the first Fire does not wait on a download.
// Failures are logged; Fire retries the fetch.
func (s *Sequencer) Preload(ctx context.Context) {
	var g errgroup.Group
	for kind, st := range map[domain.StingerKind]domain.Stinger{
		domain.StingerDrop:   s.drop,
		domain.StingerRunout: s.runout,
	} {
		p, ok := st.(preloader)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := p.Preload(ctx); err != nil {
				s.logger.Warn("Stinger preload failed", zap.Stringer("stinger", kind), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// SetOptions replaces the enable toggles
func (s *Sequencer) SetOptions(options config.Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = options
}

func (s *Sequencer) stinger(kind domain.StingerKind) (domain.Stinger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case domain.StingerDrop:
		return s.drop, s.options.DropEnabled && s.drop != nil
	case domain.StingerRunout:
		return s.runout, s.options.RunoutEnabled && s.runout != nil
	}
	return nil, false
}

// Fire plays the stinger from its start. It reports whether the clip is
// actually sounding; when it returns false onEnd will never be called.
func (s *Sequencer) Fire(kind domain.StingerKind, onEnd func()) bool {
	st, enabled := s.stinger(kind)
	if !enabled {
		s.logger.Debug("Stinger disabled, skipping", zap.Stringer("stinger", kind))
		return false
	}

	if onEnd == nil {
		onEnd = func() {}
	}
	if err := st.Play(onEnd); err != nil {
		s.logger.Warn("Stinger playback failed", zap.Stringer("stinger", kind), zap.Error(err))
		return false
	}

	s.logger.Debug("Stinger fired", zap.Stringer("stinger", kind))
	return true
}

// Halt silences the stinger immediately
func (s *Sequencer) Halt(kind domain.StingerKind) {
	s.mu.RLock()
	st := s.drop
	if kind == domain.StingerRunout {
		st = s.runout
	}
	s.mu.RUnlock()

	if st != nil {
		st.Stop()
	}
}

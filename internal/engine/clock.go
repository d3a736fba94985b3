package engine

import (
	"sync"
	"time"

	"github.com/genricoloni/turntable/internal/domain"
)

// SystemClock schedules on the runtime timers
type SystemClock struct{}

// NewSystemClock returns the wall clock used outside of tests
func NewSystemClock() domain.Clock {
	return SystemClock{}
}

func (SystemClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return time.AfterFunc(d, f)
}

func (SystemClock) Every(d time.Duration, f func()) domain.Timer {
	t := &ticker{ticker: time.NewTicker(d), quit: make(chan struct{})}
	go t.run(f)
	return t
}

type ticker struct {
	ticker *time.Ticker
	quit   chan struct{}
	once   sync.Once
}

func (t *ticker) run(f func()) {
	for {
		select {
		case <-t.quit:
			return
		case <-t.ticker.C:
			f()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.quit)
		stopped = true
	})
	return stopped
}

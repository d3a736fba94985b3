package effects

import (
	"context"
	"errors"
	"testing"

	"github.com/genricoloni/turntable/internal/audio/audiotest"
	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"go.uber.org/zap"
)

func TestSequencer_Fire(t *testing.T) {
	tests := []struct {
		name        string
		options     config.Effects
		kind        domain.StingerKind
		playErr     error
		expectFired bool
		expectPlays int
	}{
		{
			name:        "Drop Enabled",
			options:     config.Effects{DropEnabled: true},
			kind:        domain.StingerDrop,
			expectFired: true,
			expectPlays: 1,
		},
		{
			name:        "Drop Disabled",
			options:     config.Effects{DropEnabled: false, RunoutEnabled: true},
			kind:        domain.StingerDrop,
			expectFired: false,
		},
		{
			name:        "Runout Enabled",
			options:     config.Effects{RunoutEnabled: true},
			kind:        domain.StingerRunout,
			expectFired: true,
			expectPlays: 1,
		},
		{
			name:        "Runout Playback Error Is Swallowed",
			options:     config.Effects{RunoutEnabled: true},
			kind:        domain.StingerRunout,
			playErr:     errors.New("device busy"),
			expectFired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drop := &audiotest.Stinger{PlayErr: tt.playErr}
			runout := &audiotest.Stinger{PlayErr: tt.playErr}
			seq := NewSequencer(zap.NewNop(), drop, runout, tt.options)

			fired := seq.Fire(tt.kind, nil)
			if fired != tt.expectFired {
				t.Errorf("fired: expected %v, got %v", tt.expectFired, fired)
			}

			target := drop
			if tt.kind == domain.StingerRunout {
				target = runout
			}
			if target.Plays() != tt.expectPlays {
				t.Errorf("plays: expected %d, got %d", tt.expectPlays, target.Plays())
			}
		})
	}
}

func TestSequencer_OnEndAndHalt(t *testing.T) {
	runout := &audiotest.Stinger{}
	seq := NewSequencer(zap.NewNop(), nil, runout, config.Effects{RunoutEnabled: true, DropEnabled: true})

	ended := 0
	if !seq.Fire(domain.StingerRunout, func() { ended++ }) {
		t.Fatal("runout should fire")
	}
	runout.Finish()
	if ended != 1 {
		t.Errorf("expected completion callback once, got %d", ended)
	}

	seq.Fire(domain.StingerRunout, func() { ended++ })
	seq.Halt(domain.StingerRunout)
	runout.Finish()
	if ended != 1 {
		t.Error("a halted stinger must not report completion")
	}
	if runout.Plays() != 2 {
		t.Errorf("each fire replays from the start, got %d plays", runout.Plays())
	}

	// Missing drop stinger behaves as disabled
	if seq.Fire(domain.StingerDrop, nil) {
		t.Error("nil stinger must not fire")
	}
	seq.Halt(domain.StingerDrop)
}

func TestSequencer_SetOptions(t *testing.T) {
	drop := &audiotest.Stinger{}
	seq := NewSequencer(zap.NewNop(), drop, nil, config.Effects{DropEnabled: true})
	seq.SetOptions(config.Effects{DropEnabled: false})
	if seq.Fire(domain.StingerDrop, nil) {
		t.Error("drop should be disabled after options change")
	}
}

func TestSequencer_Preload(t *testing.T) {
	drop := &audiotest.Stinger{PreloadErr: errors.New("offline")}
	runout := &audiotest.Stinger{}
	seq := NewSequencer(zap.NewNop(), drop, runout, config.Effects{DropEnabled: true, RunoutEnabled: true})

	seq.Preload(context.Background())
	if drop.Preloads() != 1 || runout.Preloads() != 1 {
		t.Errorf("expected one preload each, got drop=%d runout=%d", drop.Preloads(), runout.Preloads())
	}

	// A failed preload leaves the clip playable
	if !seq.Fire(domain.StingerDrop, nil) {
		t.Error("drop should still fire after a failed preload")
	}

	// Missing stingers are skipped
	NewSequencer(zap.NewNop(), nil, nil, config.Effects{}).Preload(context.Background())
}

package playback

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/genricoloni/turntable/internal/domain"
)

var testCfg = Config{TransitionDelay: 800 * time.Millisecond, RunoutGrace: 300 * time.Millisecond}

// run feeds msgs through Update and returns the final state plus every effect emitted
func run(s State, msgs ...Msg) (State, []Effect) {
	var all []Effect
	for _, m := range msgs {
		var effects []Effect
		s, effects = Update(testCfg, s, m)
		all = append(all, effects...)
	}
	return s, all
}

func count[T Effect](effects []Effect, match func(T) bool) int {
	n := 0
	for _, e := range effects {
		if v, ok := e.(T); ok && (match == nil || match(v)) {
			n++
		}
	}
	return n
}

func isDrop(f FireStinger) bool   { return f.Kind == domain.StingerDrop }
func isRunout(f FireStinger) bool { return f.Kind == domain.StingerRunout }

func TestPlayIntent_FromStopped(t *testing.T) {
	s, effects := Update(testCfg, New(3), PlayIntent{})

	if s.Phase != domain.PhaseEnteringPlayback {
		t.Fatalf("expected EnteringPlayback, got %v", s.Phase)
	}
	expected := []Effect{CancelTimers{}, ScheduleStart{Gen: s.Gen, Delay: testCfg.TransitionDelay}}
	if !reflect.DeepEqual(effects, expected) {
		t.Errorf("effects: expected %#v, got %#v", expected, effects)
	}
	if count[StartAudio](effects, nil) != 0 {
		t.Error("audio must not start before the transition delay")
	}
}

func TestStartDue_DropOnlyOnFirstStart(t *testing.T) {
	s, _ := Update(testCfg, New(3), PlayIntent{})
	s, effects := Update(testCfg, s, StartDue{Gen: s.Gen})

	if s.Phase != domain.PhasePlaying {
		t.Fatalf("expected Playing, got %v", s.Phase)
	}
	expected := []Effect{
		StartAudio{Gen: s.Gen},
		FireStinger{Kind: domain.StingerDrop, Gen: s.Gen},
		StartFrames{},
	}
	if !reflect.DeepEqual(effects, expected) {
		t.Errorf("effects: expected %#v, got %#v", expected, effects)
	}

	// Skip to next while playing: re-enters without a second drop
	s, effects = Update(testCfg, s, NextIntent{})
	if s.Phase != domain.PhaseEnteringPlayback || s.Index != 1 {
		t.Fatalf("expected EnteringPlayback on track 1, got %v on %d", s.Phase, s.Index)
	}
	s, more := Update(testCfg, s, StartDue{Gen: s.Gen})
	effects = append(effects, more...)
	if n := count(effects, isDrop); n != 0 {
		t.Errorf("skip must not replay the drop, got %d drops", n)
	}
	if s.DropArmed {
		t.Error("drop should stay disarmed while the session continues")
	}
}

func TestFullSession_DropAndRunoutOnce(t *testing.T) {
	s := New(3)
	var all []Effect

	step := func(m Msg) {
		var effects []Effect
		s, effects = Update(testCfg, s, m)
		all = append(all, effects...)
	}

	step(PlayIntent{})
	for i := 0; i < 3; i++ {
		step(StartDue{Gen: s.Gen})
		if s.Phase != domain.PhasePlaying || s.Index != i {
			t.Fatalf("track %d: expected Playing, got %v on %d", i, s.Phase, s.Index)
		}
		step(TrackEnded{Gen: s.Gen})
	}

	if s.Phase != domain.PhaseEndOfPlaylist {
		t.Fatalf("expected EndOfPlaylist after last track, got %v", s.Phase)
	}
	if count[SeekToEnd](all, nil) != 1 {
		t.Error("the tonearm should be pinned to the end of the last track")
	}
	step(RunoutEnded{Gen: s.Gen})
	if s.Phase != domain.PhaseEndOfPlaylist {
		t.Fatalf("phase must hold until the grace delay, got %v", s.Phase)
	}
	if count(all, func(e ScheduleRunoutReset) bool { return e.Delay == testCfg.RunoutGrace }) != 1 {
		t.Error("expected one grace timer")
	}
	step(RunoutResetDue{Gen: s.Gen})

	if s.Phase != domain.PhaseStopped {
		t.Errorf("expected Stopped after runout, got %v", s.Phase)
	}
	if n := count(all, isDrop); n != 1 {
		t.Errorf("expected exactly one drop, got %d", n)
	}
	if n := count(all, isRunout); n != 1 {
		t.Errorf("expected exactly one runout, got %d", n)
	}
	if s.Index != 0 || !s.DropArmed {
		t.Errorf("finished record should cue track 0 and re-arm the drop, got index %d armed %v", s.Index, s.DropArmed)
	}
}

func TestStopWhileEntering_CancelsStart(t *testing.T) {
	s, _ := Update(testCfg, New(2), PlayIntent{})
	pending := s.Gen

	s, effects := Update(testCfg, s, StopIntent{})
	if s.Phase != domain.PhaseStopped {
		t.Fatalf("expected Stopped, got %v", s.Phase)
	}
	if count[CancelTimers](effects, nil) == 0 {
		t.Error("stop must cancel the pending start")
	}

	// The timer fired anyway (already queued): it must be a no-op
	s, effects = Update(testCfg, s, StartDue{Gen: pending})
	if s.Phase != domain.PhaseStopped {
		t.Errorf("stale start moved phase to %v", s.Phase)
	}
	if len(effects) != 0 {
		t.Errorf("stale start must not produce effects, got %#v", effects)
	}
}

func TestStop_ResetsSessionAndPosition(t *testing.T) {
	s, _ := run(New(3), PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen}, NextIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})

	s, effects := Update(testCfg, s, StopIntent{})
	expected := []Effect{CancelTimers{}, StopFrames{}, PauseAudio{}, RewindAudio{}}
	if !reflect.DeepEqual(effects, expected) {
		t.Errorf("effects: expected %#v, got %#v", expected, effects)
	}
	if s.Index != 1 {
		t.Errorf("stop keeps the current track, got %d", s.Index)
	}
	if !s.DropArmed {
		t.Error("stop must re-arm the drop for the next play")
	}

	s, _ = run(s, PlayIntent{})
	_, effects = Update(testCfg, s, StartDue{Gen: s.Gen})
	if count(effects, isDrop) != 1 {
		t.Error("play after stop should drop again")
	}
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		msg       Msg
		expected  int
		unchanged bool
	}{
		{"Next Advances", 0, NextIntent{}, 1, false},
		{"Next Wraps At End", 2, NextIntent{}, 0, false},
		{"Previous Steps Back", 2, PreviousIntent{}, 1, false},
		{"Previous Clamps At Zero", 0, PreviousIntent{}, 0, false},
		{"Select Jumps", 0, SelectIntent{Index: 2}, 2, false},
		{"Select Out Of Range Ignored", 1, SelectIntent{Index: 3}, 1, true},
		{"Select Negative Ignored", 1, SelectIntent{Index: -1}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(3)
			s.Index = tt.start

			next, effects := Update(testCfg, s, tt.msg)
			if next.Index != tt.expected {
				t.Errorf("index: expected %d, got %d", tt.expected, next.Index)
			}
			if next.Phase != domain.PhaseStopped {
				t.Errorf("navigation while stopped must not change phase, got %v", next.Phase)
			}
			if tt.unchanged {
				if len(effects) != 0 {
					t.Errorf("expected no effects, got %#v", effects)
				}
				return
			}
			if !reflect.DeepEqual(effects, []Effect{LoadTrack{Index: tt.expected}}) {
				t.Errorf("expected a single LoadTrack, got %#v", effects)
			}
		})
	}
}

func TestNavigation_EmptyPlaylist(t *testing.T) {
	for _, m := range []Msg{PlayIntent{}, NextIntent{}, PreviousIntent{}, SelectIntent{Index: 0}} {
		s, effects := Update(testCfg, New(0), m)
		if s.Phase != domain.PhaseStopped || len(effects) != 0 {
			t.Errorf("%T on empty playlist should do nothing, got %v %#v", m, s.Phase, effects)
		}
	}
}

func TestSelectWhilePlaying_ReEnters(t *testing.T) {
	s, _ := run(New(4), PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})
	old := s.Gen

	s, effects := Update(testCfg, s, SelectIntent{Index: 3})
	if s.Phase != domain.PhaseEnteringPlayback || s.Index != 3 {
		t.Fatalf("expected EnteringPlayback on 3, got %v on %d", s.Phase, s.Index)
	}
	if count(effects, func(e ScheduleStart) bool { return e.Gen == s.Gen }) != 1 {
		t.Error("expected a start scheduled under the new generation")
	}

	// The previous track's end callback arrives late
	s2, effects := Update(testCfg, s, TrackEnded{Gen: old})
	if s2 != s || len(effects) != 0 {
		t.Error("stale track end must be ignored")
	}
}

func TestAudioFailed_FallsBackToStopped(t *testing.T) {
	s, _ := run(New(2), PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})

	s, effects := Update(testCfg, s, AudioFailed{Gen: s.Gen, Err: errors.New("decode error")})
	if s.Phase != domain.PhaseStopped {
		t.Fatalf("expected Stopped, got %v", s.Phase)
	}
	if count[StartAudio](effects, nil) != 0 || count[ScheduleStart](effects, nil) != 0 {
		t.Error("failed start must not be retried")
	}
}

func TestPlayDuringRunout_HaltsStinger(t *testing.T) {
	s, _ := run(New(1), PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})
	s, _ = run(s, TrackEnded{Gen: s.Gen})
	if !s.RunoutActive {
		t.Fatal("runout should be sounding")
	}
	runoutGen := s.Gen

	s, effects := Update(testCfg, s, PlayIntent{})
	if s.Phase != domain.PhaseEnteringPlayback {
		t.Fatalf("expected EnteringPlayback, got %v", s.Phase)
	}
	if count(effects, func(h HaltStinger) bool { return h.Kind == domain.StingerRunout }) != 1 {
		t.Error("play during runout must halt the stinger")
	}
	if s.RunoutActive {
		t.Error("runout flag should be cleared")
	}

	// The halted clip's completion (or its grace timer) must not stop the new session
	s2, effects := run(s, RunoutEnded{Gen: runoutGen}, RunoutResetDue{Gen: runoutGen})
	if s2 != s || len(effects) != 0 {
		t.Errorf("stale runout events changed state: %+v %#v", s2, effects)
	}
}

func TestStopDuringRunout(t *testing.T) {
	s, _ := run(New(2), SelectIntent{Index: 1}, PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})
	s, _ = run(s, TrackEnded{Gen: s.Gen})

	s, effects := Update(testCfg, s, StopIntent{})
	if s.Phase != domain.PhaseStopped || s.Index != 0 {
		t.Errorf("expected Stopped on track 0, got %v on %d", s.Phase, s.Index)
	}
	if count[HaltStinger](effects, nil) != 1 {
		t.Error("stop must silence the runout")
	}
}

func TestPlaylistReplaced(t *testing.T) {
	s, _ := run(New(2), PlayIntent{})
	s, _ = run(s, StartDue{Gen: s.Gen})
	before := s.Gen

	s, effects := Update(testCfg, s, PlaylistReplaced{Count: 5})
	if s.Phase != domain.PhaseStopped || s.Count != 5 || s.Index != 0 {
		t.Errorf("unexpected state after replace: %+v", s)
	}
	if s.Gen <= before {
		t.Error("generation must keep increasing across playlist swaps")
	}
	if count[LoadTrack](effects, nil) != 1 {
		t.Error("expected first track to be cued")
	}

	_, effects = Update(testCfg, New(3), PlaylistReplaced{Count: 0})
	if count[LoadTrack](effects, nil) != 0 {
		t.Error("empty playlist must not cue a track")
	}
}

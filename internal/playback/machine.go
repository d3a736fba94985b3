// Package playback implements the turntable's playback state machine as a
// pure transition function. It owns the single authoritative answer to
// "is audio meant to be advancing" and describes every side effect as data
// for the engine to execute.
package playback

import (
	"time"

	"github.com/genricoloni/turntable/internal/domain"
)

// Config holds the timing the state machine schedules with
type Config struct {
	// TransitionDelay is the time the tonearm takes to reach the record before audio starts
	TransitionDelay time.Duration
	// RunoutGrace is the pause between the runout stinger ending and the player stopping
	RunoutGrace time.Duration
}

// State is the complete playback state
type State struct {
	Phase domain.Phase
	// Index is the selected track
	Index int
	// Count is the playlist length
	Count int
	// Gen identifies the current phase entry; timers and callbacks from older generations are stale
	Gen uint64
	// DropArmed is true until the first needle drop of a play session has sounded
	DropArmed bool
	// RunoutActive is true while the runout stinger is sounding
	RunoutActive bool
}

// New returns the initial state for a playlist of count tracks
func New(count int) State {
	return State{
		Phase:     domain.PhaseStopped,
		Count:     count,
		DropArmed: true,
	}
}

// Playing reports whether the tonearm is on the record
func (s State) Playing() bool {
	return s.Phase != domain.PhaseStopped
}

// Update applies msg to s and returns the next state with the effects to run
func Update(cfg Config, s State, msg Msg) (State, []Effect) {
	switch m := msg.(type) {
	case PlayIntent:
		return play(cfg, s)
	case StopIntent:
		return stop(s)
	case NextIntent:
		if s.Count == 0 {
			return s, nil
		}
		return navigate(cfg, s, (s.Index+1)%s.Count)
	case PreviousIntent:
		if s.Count == 0 {
			return s, nil
		}
		return navigate(cfg, s, max(s.Index-1, 0))
	case SelectIntent:
		if m.Index < 0 || m.Index >= s.Count {
			return s, nil
		}
		return navigate(cfg, s, m.Index)
	case StartDue:
		return startDue(s, m)
	case AudioFailed:
		return audioFailed(s, m)
	case TrackEnded:
		return trackEnded(cfg, s, m)
	case RunoutEnded:
		return runoutEnded(cfg, s, m)
	case RunoutResetDue:
		if m.Gen != s.Gen || s.Phase != domain.PhaseEndOfPlaylist {
			return s, nil
		}
		return finishRecord(s, nil)
	case PlaylistReplaced:
		return replace(s, m)
	}
	return s, nil
}

func play(cfg Config, s State) (State, []Effect) {
	if s.Count == 0 {
		return s, nil
	}

	var effects []Effect
	switch s.Phase {
	case domain.PhaseEnteringPlayback, domain.PhasePlaying:
		return s, nil
	case domain.PhaseEndOfPlaylist:
		// Lifting the needle during the runout ends the record before the new drop
		s, effects = finishRecord(s, nil)
	}

	s = enter(s)
	effects = append(effects,
		CancelTimers{},
		ScheduleStart{Gen: s.Gen, Delay: cfg.TransitionDelay},
	)
	return s, effects
}

func stop(s State) (State, []Effect) {
	wasEnd := s.Phase == domain.PhaseEndOfPlaylist

	effects := []Effect{CancelTimers{}, StopFrames{}, PauseAudio{}}
	if s.RunoutActive {
		effects = append(effects, HaltStinger{Kind: domain.StingerRunout})
	}

	s.Gen++
	s.Phase = domain.PhaseStopped
	s.DropArmed = true
	s.RunoutActive = false

	if wasEnd {
		s.Index = 0
		return s, append(effects, LoadTrack{Index: 0})
	}
	return s, append(effects, RewindAudio{})
}

func navigate(cfg Config, s State, target int) (State, []Effect) {
	switch s.Phase {
	case domain.PhaseStopped:
		s.Index = target
		return s, []Effect{LoadTrack{Index: target}}

	case domain.PhaseEndOfPlaylist:
		effects := []Effect{CancelTimers{}}
		if s.RunoutActive {
			effects = append(effects, HaltStinger{Kind: domain.StingerRunout})
		}
		s.Gen++
		s.Phase = domain.PhaseStopped
		s.RunoutActive = false
		s.DropArmed = true
		s.Index = target
		return s, append(effects, LoadTrack{Index: target})

	default:
		// Re-cue while the arm is on the record: no second drop sound
		s.Index = target
		s = enter(s)
		return s, []Effect{
			CancelTimers{},
			StopFrames{},
			PauseAudio{},
			LoadTrack{Index: target},
			ScheduleStart{Gen: s.Gen, Delay: cfg.TransitionDelay},
		}
	}
}

func startDue(s State, m StartDue) (State, []Effect) {
	if m.Gen != s.Gen || s.Phase != domain.PhaseEnteringPlayback {
		return s, nil
	}

	s.Phase = domain.PhasePlaying
	effects := []Effect{StartAudio{Gen: s.Gen}}
	if s.DropArmed {
		effects = append(effects, FireStinger{Kind: domain.StingerDrop, Gen: s.Gen})
		s.DropArmed = false
	}
	return s, append(effects, StartFrames{})
}

func audioFailed(s State, m AudioFailed) (State, []Effect) {
	if m.Gen != s.Gen || s.Phase != domain.PhasePlaying {
		return s, nil
	}

	s.Gen++
	s.Phase = domain.PhaseStopped
	s.DropArmed = true
	return s, []Effect{CancelTimers{}, StopFrames{}, PauseAudio{}, RewindAudio{}}
}

func trackEnded(cfg Config, s State, m TrackEnded) (State, []Effect) {
	if m.Gen != s.Gen || s.Phase != domain.PhasePlaying {
		return s, nil
	}

	if s.Index < s.Count-1 {
		// Auto-advance: the arm glides to the next track's lead-in
		s.Index++
		s = enter(s)
		return s, []Effect{
			StopFrames{},
			LoadTrack{Index: s.Index},
			ScheduleStart{Gen: s.Gen, Delay: cfg.TransitionDelay},
		}
	}

	s.Gen++
	s.Phase = domain.PhaseEndOfPlaylist
	s.RunoutActive = true
	return s, []Effect{
		StopFrames{},
		PauseAudio{},
		SeekToEnd{},
		FireStinger{Kind: domain.StingerRunout, Gen: s.Gen},
	}
}

func runoutEnded(cfg Config, s State, m RunoutEnded) (State, []Effect) {
	if m.Gen != s.Gen || s.Phase != domain.PhaseEndOfPlaylist || !s.RunoutActive {
		return s, nil
	}

	s.RunoutActive = false
	return s, []Effect{ScheduleRunoutReset{Gen: s.Gen, Delay: cfg.RunoutGrace}}
}

// finishRecord leaves EndOfPlaylist for Stopped, cueing the first track
func finishRecord(s State, effects []Effect) (State, []Effect) {
	if s.RunoutActive {
		effects = append(effects, HaltStinger{Kind: domain.StingerRunout})
	}
	s.Gen++
	s.Phase = domain.PhaseStopped
	s.RunoutActive = false
	s.DropArmed = true
	s.Index = 0
	return s, append(effects, LoadTrack{Index: 0})
}

func replace(s State, m PlaylistReplaced) (State, []Effect) {
	effects := []Effect{CancelTimers{}, StopFrames{}, PauseAudio{}}
	if s.RunoutActive {
		effects = append(effects, HaltStinger{Kind: domain.StingerRunout})
	}

	gen := s.Gen + 1
	s = New(max(m.Count, 0))
	s.Gen = gen
	if s.Count > 0 {
		effects = append(effects, LoadTrack{Index: 0})
	}
	return s, effects
}

func enter(s State) State {
	s.Gen++
	s.Phase = domain.PhaseEnteringPlayback
	return s
}

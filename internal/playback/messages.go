package playback

import (
	"time"

	"github.com/genricoloni/turntable/internal/domain"
)

// Msg is an input to the state machine: a user intent or a media/timer event.
// Event messages carry the generation they were scheduled under; a message
// whose generation is no longer current is ignored.
type Msg interface {
	isMsg()
}

// PlayIntent asks the needle to be placed on the current track
type PlayIntent struct{}

// StopIntent halts playback and returns the tonearm to rest
type StopIntent struct{}

// NextIntent selects the following track, wrapping at the end
type NextIntent struct{}

// PreviousIntent selects the preceding track, clamping at the first
type PreviousIntent struct{}

// SelectIntent jumps to an arbitrary track
type SelectIntent struct {
	Index int
}

// StartDue fires when the tonearm transition delay has elapsed
type StartDue struct {
	Gen uint64
}

// AudioFailed reports that the audio element could not start
type AudioFailed struct {
	Gen uint64
	Err error
}

// TrackEnded reports that the current track played to its natural end
type TrackEnded struct {
	Gen uint64
}

// RunoutEnded reports that the runout stinger finished (or could not play)
type RunoutEnded struct {
	Gen uint64
}

// RunoutResetDue fires when the grace delay after the runout stinger has elapsed
type RunoutResetDue struct {
	Gen uint64
}

// PlaylistReplaced reports that the track list was swapped for a new one
type PlaylistReplaced struct {
	Count int
}

func (PlayIntent) isMsg()       {}
func (StopIntent) isMsg()       {}
func (NextIntent) isMsg()       {}
func (PreviousIntent) isMsg()   {}
func (SelectIntent) isMsg()     {}
func (StartDue) isMsg()         {}
func (AudioFailed) isMsg()      {}
func (TrackEnded) isMsg()       {}
func (RunoutEnded) isMsg()      {}
func (RunoutResetDue) isMsg()   {}
func (PlaylistReplaced) isMsg() {}

// Effect is a side effect the engine must carry out after a transition,
// in the order returned.
type Effect interface {
	isEffect()
}

// LoadTrack points the audio element at a track, rewound to its start
type LoadTrack struct {
	Index int
}

// StartAudio starts the audio element; failure must be reported as AudioFailed{Gen}
type StartAudio struct {
	Gen uint64
}

// PauseAudio halts the audio element, keeping its position
type PauseAudio struct{}

// RewindAudio moves the audio position back to the start of the track
type RewindAudio struct{}

// SeekToEnd pins the playhead to the end of the track so the tonearm holds its final position
type SeekToEnd struct{}

// ScheduleStart arms the transition timer that delivers StartDue{Gen}
type ScheduleStart struct {
	Gen   uint64
	Delay time.Duration
}

// ScheduleRunoutReset arms the grace timer that delivers RunoutResetDue{Gen}
type ScheduleRunoutReset struct {
	Gen   uint64
	Delay time.Duration
}

// CancelTimers invalidates every pending timer
type CancelTimers struct{}

// StartFrames begins per-frame progress polling
type StartFrames struct{}

// StopFrames ends per-frame progress polling
type StopFrames struct{}

// FireStinger plays a stinger; a runout that finishes or fails must be reported as RunoutEnded{Gen}
type FireStinger struct {
	Kind domain.StingerKind
	Gen  uint64
}

// HaltStinger silences a stinger immediately
type HaltStinger struct {
	Kind domain.StingerKind
}

func (LoadTrack) isEffect()           {}
func (StartAudio) isEffect()          {}
func (PauseAudio) isEffect()          {}
func (RewindAudio) isEffect()         {}
func (SeekToEnd) isEffect()           {}
func (ScheduleStart) isEffect()       {}
func (ScheduleRunoutReset) isEffect() {}
func (CancelTimers) isEffect()        {}
func (StartFrames) isEffect()         {}
func (StopFrames) isEffect()          {}
func (FireStinger) isEffect()         {}
func (HaltStinger) isEffect()         {}

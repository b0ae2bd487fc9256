// SPDX-License-Identifier: EPL-2.0

package midi

import "time"

// State is the controller and note snapshot shared by the dispatcher and
// the voices. Regions read it when computing modulated envelope bases, and
// release-triggered regions read back the note-on velocity and duration.
//
// All methods are called from the audio thread; State is not synchronized.
type State struct {
	cc [128]uint8

	noteOnTimes  [128]time.Time
	durations    [128]float64
	lastNoteVels [128]uint8

	// now allows tests to substitute a fake clock.
	now func() time.Time
}

func NewState() *State {
	return &State{now: time.Now}
}

// NoteOn records a note-on velocity and timestamp.
func (s *State) NoteOn(note int, velocity uint8) {
	if note < 0 || note > 127 {
		return
	}
	s.noteOnTimes[note] = s.clock()()
	s.lastNoteVels[note] = velocity
}

// NoteOff closes the note and latches its duration.
func (s *State) NoteOff(note int) {
	if note < 0 || note > 127 {
		return
	}
	if !s.noteOnTimes[note].IsZero() {
		s.durations[note] = s.clock()().Sub(s.noteOnTimes[note]).Seconds()
		s.noteOnTimes[note] = time.Time{}
	}
}

// CC records a controller value.
func (s *State) CC(cc int, value uint8) {
	if cc < 0 || cc > 127 {
		return
	}
	s.cc[cc] = value
}

// CCValue is the last seen value of a controller, zero if never set.
func (s *State) CCValue(cc int) uint8 {
	if cc < 0 || cc > 127 {
		return 0
	}
	return s.cc[cc]
}

// NoteDuration is the time in seconds the note has been (or was last) held.
func (s *State) NoteDuration(note int) float64 {
	if note < 0 || note > 127 {
		return 0
	}
	if !s.noteOnTimes[note].IsZero() {
		return s.clock()().Sub(s.noteOnTimes[note]).Seconds()
	}
	return s.durations[note]
}

// LastNoteVelocity is the velocity of the most recent note-on for note,
// retained past the note-off for release triggers.
func (s *State) LastNoteVelocity(note int) uint8 {
	if note < 0 || note > 127 {
		return 0
	}
	return s.lastNoteVels[note]
}

func (s *State) clock() func() time.Time {
	if s.now == nil {
		return time.Now
	}
	return s.now
}

// SetClock substitutes the time source; tests only.
func (s *State) SetClock(now func() time.Time) { s.now = now }

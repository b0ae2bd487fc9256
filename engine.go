// SPDX-License-Identifier: EPL-2.0

package sampler

import (
	"fmt"

	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/config"
	"github.com/ik5/sampler/midi"
	"github.com/ik5/sampler/pool"
	"github.com/ik5/sampler/region"
	"github.com/ik5/sampler/voice"
)

// Engine ties the regions, the file pool and the voice bank together: it
// dispatches note and controller events to matching regions, arms voices,
// renders the polyphonic mix block by block and runs the pool's cleanup
// between blocks.
//
// Event registration and RenderBlock belong to the audio thread. Region
// loading and pool reconfiguration belong to a control thread and must not
// overlap rendering.
type Engine struct {
	filePool  *pool.FilePool
	midiState *midi.State

	regions []*region.Region
	voices  []*voice.Voice

	ticket          uint32
	sampleRate      float64
	samplesPerBlock int

	scratch *audio.Buffer
}

// NewEngine creates an engine whose samples live under root.
func NewEngine(root string) *Engine {
	e := &Engine{
		filePool:   pool.NewFilePool(root),
		midiState:  midi.NewState(),
		sampleRate: config.DefaultSampleRate,
	}

	e.voices = make([]*voice.Voice, config.MaxVoices)
	for i := range e.voices {
		e.voices[i] = voice.New(e.midiState)
	}
	e.SetSamplesPerBlock(config.DefaultSamplesPerBlock)
	return e
}

// Close shuts down the background loaders.
func (e *Engine) Close() {
	e.filePool.Close()
}

// Pool exposes the file pool for preload and oversampling control.
func (e *Engine) Pool() *pool.FilePool { return e.filePool }

// MIDIState exposes the shared controller snapshot.
func (e *Engine) MIDIState() *midi.State { return e.midiState }

// SetSampleRate propagates the host rate to every voice.
func (e *Engine) SetSampleRate(rate float64) {
	e.sampleRate = rate
	for _, v := range e.voices {
		v.SetSampleRate(rate)
	}
}

// SetSamplesPerBlock sizes the render scratch and every voice's buffers.
func (e *Engine) SetSamplesPerBlock(samplesPerBlock int) {
	if samplesPerBlock < 1 {
		samplesPerBlock = 1
	}
	e.samplesPerBlock = samplesPerBlock
	e.scratch = audio.NewBuffer(config.NumChannels, samplesPerBlock)
	for _, v := range e.voices {
		v.SetSamplesPerBlock(samplesPerBlock)
	}
}

// AddRegion loads the region's sample head into the pool and registers the
// region for dispatch. File-backed geometry (sample rate, stereo flag,
// frame count, loop points) is filled in from the container.
func (e *Engine) AddRegion(r *region.Region) error {
	if r.IsGenerator() {
		e.regions = append(e.regions, r)
		return nil
	}

	info, err := e.filePool.FileInformation(r.Sample)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if !e.filePool.Preload(r.Sample, r.OffsetFrames) {
		return ErrPreloadFailed
	}

	head, rate, _ := e.filePool.PreloadedData(r.Sample)
	r.PreloadedData = head
	r.SampleRate = rate
	r.Stereo = info.Channels == 2
	if r.EndFrame == 0 {
		r.EndFrame = info.Frames
	}
	if info.HasLoop && r.LoopEndFrame == 0 {
		r.LoopStartFrame = info.LoopStart
		r.LoopEndFrame = info.LoopEnd
		if r.LoopMode == region.LoopNone {
			r.LoopMode = region.LoopContinuous
		}
	}

	e.regions = append(e.regions, r)
	return nil
}

// NoteOn dispatches a note-on: every matching attack region is armed on a
// voice, silencing off-grouped voices first.
func (e *Engine) NoteOn(delay, channel, note int, velocity uint8) {
	e.midiState.NoteOn(note, velocity)

	for _, r := range e.regions {
		if r.Trigger != region.TriggerAttack || !r.Matches(note, velocity) {
			continue
		}
		e.startRegionVoice(r, delay, channel, note, velocity, voice.TriggerNoteOn)
	}
}

// NoteOff dispatches a note-off to every voice and arms matching release
// regions with the note's original velocity.
func (e *Engine) NoteOff(delay, channel, note int, velocity uint8) {
	e.midiState.NoteOff(note)

	for _, v := range e.voices {
		v.RegisterNoteOff(delay, channel, note, velocity)
	}

	releaseVelocity := e.midiState.LastNoteVelocity(note)
	for _, r := range e.regions {
		if r.Trigger != region.TriggerRelease || !r.Matches(note, releaseVelocity) {
			continue
		}
		e.startRegionVoice(r, delay, channel, note, releaseVelocity, voice.TriggerNoteOff)
	}
}

// CC dispatches a controller change to the snapshot and every voice.
func (e *Engine) CC(delay, channel, cc int, value uint8) {
	e.midiState.CC(cc, value)

	for _, v := range e.voices {
		v.RegisterCC(delay, channel, cc, value)
	}
}

// PitchWheel forwards a pitch wheel event to every voice.
func (e *Engine) PitchWheel(delay, channel, pitch int) {
	for _, v := range e.voices {
		v.RegisterPitchWheel(delay, channel, pitch)
	}
}

// Aftertouch forwards an aftertouch event to every voice.
func (e *Engine) Aftertouch(delay, channel int, aftertouch uint8) {
	for _, v := range e.voices {
		v.RegisterAftertouch(delay, channel, aftertouch)
	}
}

// Tempo forwards a tempo change to every voice.
func (e *Engine) Tempo(delay int, secondsPerQuarter float64) {
	for _, v := range e.voices {
		v.RegisterTempo(delay, secondsPerQuarter)
	}
}

func (e *Engine) startRegionVoice(r *region.Region, delay, channel, note int, velocity uint8, trigger voice.TriggerType) {
	if r.Group != 0 {
		for _, v := range e.voices {
			v.CheckOffGroup(delay, r.Group)
		}
	}

	v := e.findFreeVoice()
	if v == nil {
		return
	}

	e.ticket++
	v.SetOversampling(e.filePool.Oversampling())
	v.StartVoice(r, delay, channel, note, velocity, trigger)

	if !r.IsGenerator() {
		v.SetPromise(e.filePool.Promise(r.Sample))
		v.ExpectFileData(e.ticket)
	}
}

// findFreeVoice returns an idle voice, or steals the quietest releasing
// one. Playing voices are never stolen.
func (e *Engine) findFreeVoice() *voice.Voice {
	for _, v := range e.voices {
		if v.IsFree() {
			return v
		}
	}

	var quietest *voice.Voice
	for _, v := range e.voices {
		if !v.CanBeStolen() {
			continue
		}
		if quietest == nil || v.MeanSquaredAverage() < quietest.MeanSquaredAverage() {
			quietest = v
		}
	}
	if quietest != nil {
		quietest.Reset()
	}
	return quietest
}

// RenderBlock mixes every live voice into out and runs the promise
// cleanup. The output is zeroed first.
func (e *Engine) RenderBlock(out audio.Span) {
	out.Fill(0)

	frames := min(out.Frames(), e.samplesPerBlock)
	target := out.First(frames)
	scratch := e.scratch.Span().First(frames)

	for _, v := range e.voices {
		if v.IsFree() {
			continue
		}
		v.RenderBlock(scratch)
		target.Add(scratch)
	}

	e.filePool.CleanupPromises()
}

// ActiveVoices counts the voices currently bound to a region.
func (e *Engine) ActiveVoices() int {
	n := 0
	for _, v := range e.voices {
		if !v.IsFree() {
			n++
		}
	}
	return n
}

// GarbageCollect lets idle voices drop retained file buffers.
func (e *Engine) GarbageCollect() {
	for _, v := range e.voices {
		v.GarbageCollect()
	}
}

// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/config"
	"github.com/ik5/sampler/envelope"
	"github.com/ik5/sampler/midi"
	"github.com/ik5/sampler/pool"
	"github.com/ik5/sampler/region"
	"github.com/ik5/sampler/utils"
)

// State is the voice lifecycle stage. Voices move idle -> playing ->
// release -> idle; they never skip from idle to release.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateRelease
)

// TriggerType records which event armed the voice.
type TriggerType int

const (
	TriggerNoteOn TriggerType = iota
	TriggerNoteOff
	TriggerCC
)

const sqrt2Inv = math.Sqrt2 / 2

// Voice renders one sounding instance of a region. All methods run on the
// audio thread; the only cross-thread traffic is the promise's dataReady
// flag and the ticketed SetFileData delivery.
type Voice struct {
	midiState *midi.State

	state State
	reg   *region.Region

	triggerType    TriggerType
	triggerChannel int
	triggerNumber  int
	triggerValue   uint8

	sampleRate      float64
	samplesPerBlock int

	sourcePosition      int
	floatPositionOffset float64
	pitchRatio          float64
	speedRatio          float64

	baseVolumeDB float64
	baseGain     float64
	basePan      float64
	basePosition float64
	baseWidth    float64

	baseFrequency float64
	phase         float64

	initialDelay int
	noteIsOff    bool

	amplitudeEnvelope envelope.Linear
	volumeEnvelope    envelope.Linear
	panEnvelope       envelope.Linear
	positionEnvelope  envelope.Linear
	widthEnvelope     envelope.Linear
	egEnvelope        envelope.ADSR

	promise      *pool.Promise
	fileData     *audio.Buffer
	dataReady    atomic.Bool
	ticket       uint32
	oversampling int

	power PowerHistory

	// Scratch, sized once in SetSamplesPerBlock; the render path never
	// allocates.
	tmp1    []float64
	tmp2    []float64
	indices []int
	left    []float64
	right   []float64
}

// New returns an idle voice bound to the shared MIDI state.
func New(state *midi.State) *Voice {
	v := &Voice{
		midiState:    state,
		sampleRate:   config.DefaultSampleRate,
		oversampling: 1,
	}
	v.SetSamplesPerBlock(config.DefaultSamplesPerBlock)
	return v
}

// SetSampleRate propagates the host rate; it feeds every pitch computation.
func (v *Voice) SetSampleRate(rate float64) {
	v.sampleRate = rate
}

// SampleRate is the host rate the voice renders at.
func (v *Voice) SampleRate() float64 { return v.sampleRate }

// SetSamplesPerBlock sizes the scratch buffers for the largest block the
// host will request.
func (v *Voice) SetSamplesPerBlock(samplesPerBlock int) {
	if samplesPerBlock < 1 {
		samplesPerBlock = 1
	}
	v.samplesPerBlock = samplesPerBlock
	v.tmp1 = make([]float64, samplesPerBlock)
	v.tmp2 = make([]float64, samplesPerBlock)
	v.indices = make([]int, samplesPerBlock)
	v.left = make([]float64, samplesPerBlock)
	v.right = make([]float64, samplesPerBlock)
}

// SamplesPerBlock is the configured block bound.
func (v *Voice) SamplesPerBlock() int { return v.samplesPerBlock }

// SetOversampling tells the voice which factor its sample data was loaded
// with, so frame geometry scales consistently.
func (v *Voice) SetOversampling(factor int) {
	if factor < 1 {
		factor = 1
	}
	v.oversampling = factor
}

// StartVoice arms the voice on a region. The delay is in samples from the
// start of the next block.
func (v *Voice) StartVoice(reg *region.Region, delay, channel, number int, value uint8, trigger TriggerType) {
	v.triggerType = trigger
	v.triggerChannel = channel
	v.triggerNumber = number
	v.triggerValue = value
	v.reg = reg

	// Drop any sample handles from a previous life of this voice.
	v.dataReady.Store(false)
	v.fileData = nil
	if v.promise != nil {
		v.promise.Release()
		v.promise = nil
	}

	if delay < 0 {
		delay = 0
	}

	v.state = StatePlaying
	v.speedRatio = reg.SampleRate / v.sampleRate
	v.pitchRatio = reg.BasePitchVariation(number, value)

	v.baseVolumeDB = reg.BaseVolumeDB(v.midiState, number)
	volumeDB := v.baseVolumeDB
	if reg.VolumeCC != nil {
		volumeDB += v.ccNorm(reg.VolumeCC.CC) * reg.VolumeCC.Depth
	}
	v.volumeEnvelope.Reset(utils.DBToGain(volumeDB))

	v.baseGain = reg.BaseGain() * reg.CrossfadeGain(v.midiState)
	if trigger != TriggerCC {
		v.baseGain *= reg.NoteGain(number, value)
	}
	gain := v.baseGain
	if reg.AmplitudeCC != nil {
		gain *= v.ccNorm(reg.AmplitudeCC.CC) * utils.NormalizePercents(reg.AmplitudeCC.Depth)
	}
	v.amplitudeEnvelope.Reset(gain)

	v.basePan = utils.NormalizeBipolarPercents(reg.Pan)
	pan := v.basePan
	if reg.PanCC != nil {
		pan += v.ccNorm(reg.PanCC.CC) * utils.NormalizeBipolarPercents(reg.PanCC.Depth)
	}
	v.panEnvelope.Reset(pan)

	v.basePosition = utils.NormalizeBipolarPercents(reg.Position)
	position := v.basePosition
	if reg.PositionCC != nil {
		position += v.ccNorm(reg.PositionCC.CC) * utils.NormalizeBipolarPercents(reg.PositionCC.Depth)
	}
	v.positionEnvelope.Reset(position)

	v.baseWidth = utils.NormalizeBipolarPercents(reg.Width)
	width := v.baseWidth
	if reg.WidthCC != nil {
		width += v.ccNorm(reg.WidthCC.CC) * utils.NormalizeBipolarPercents(reg.WidthCC.Depth)
	}
	v.widthEnvelope.Reset(width)

	v.sourcePosition = reg.Offset(v.oversampling)
	v.floatPositionOffset = 0
	v.initialDelay = delay + int(reg.Delay*v.sampleRate)
	v.baseFrequency = utils.MIDINoteFrequency(number) * v.pitchRatio
	v.phase = 0
	v.noteIsOff = false

	v.prepareEGEnvelope(v.initialDelay, value)
}

func (v *Voice) prepareEGEnvelope(delay int, velocity uint8) {
	sec := func(t float64) int { return int(t * v.sampleRate) }
	eg := &v.reg.AmpEG

	v.egEnvelope.Reset(envelope.Params{
		Delay:   delay + sec(eg.DelayTime(v.midiState, velocity)),
		Attack:  sec(eg.AttackTime(v.midiState, velocity)),
		Hold:    sec(eg.HoldTime(v.midiState, velocity)),
		Decay:   sec(eg.DecayTime(v.midiState, velocity)),
		Release: sec(eg.ReleaseTime(v.midiState, velocity)),
		Sustain: utils.NormalizePercents(eg.SustainLevel(v.midiState, velocity)),
		Start:   utils.NormalizePercents(eg.StartLevel(v.midiState, velocity)),
	})
}

func (v *Voice) ccNorm(cc int) float64 {
	if v.midiState == nil {
		return 0
	}
	return utils.NormalizeCC(v.midiState.CCValue(cc))
}

// SetPromise binds the file promise obtained when the voice was armed.
func (v *Voice) SetPromise(p *pool.Promise) {
	v.promise = p
	if p != nil && p.Oversampling() > 0 {
		v.oversampling = p.Oversampling()
	}
}

// ExpectFileData stores the ticket a later SetFileData delivery must match.
func (v *Voice) ExpectFileData(ticket uint32) {
	v.ticket = ticket
}

// SetFileData accepts a directly delivered full-file buffer if the ticket
// matches; a stale ticket means the voice was re-armed since the load was
// requested and the buffer is dropped.
func (v *Voice) SetFileData(buf *audio.Buffer, ticket uint32) {
	if ticket != v.ticket {
		return
	}
	v.fileData = buf
	v.dataReady.Store(true)
}

// IsFree reports whether the voice can be armed.
func (v *Voice) IsFree() bool { return v.reg == nil }

// CanBeStolen reports whether the scheduler may recycle this voice; only
// releasing voices qualify.
func (v *Voice) CanBeStolen() bool { return v.state == StateRelease }

// MeanSquaredAverage is the average block power over the recent history.
func (v *Voice) MeanSquaredAverage() float64 { return v.power.Average() }

// CurrentState is the lifecycle stage.
func (v *Voice) CurrentState() State { return v.state }

// SourcePosition is the integer read pointer, for diagnostics and tests.
func (v *Voice) SourcePosition() int { return v.sourcePosition }

// TriggerNumber is the armed note or controller number.
func (v *Voice) TriggerNumber() int { return v.triggerNumber }

// TriggerChannel is the armed channel.
func (v *Voice) TriggerChannel() int { return v.triggerChannel }

// TriggerValue is the armed velocity or controller value.
func (v *Voice) TriggerValue() uint8 { return v.triggerValue }

// TriggerKind is the armed trigger type.
func (v *Voice) TriggerKind() TriggerType { return v.triggerType }

// Release moves a playing voice into its release stage at the given block
// offset.
func (v *Voice) Release(delay int) {
	if v.state == StatePlaying {
		v.state = StateRelease
		v.egEnvelope.StartRelease(delay)
	}
}

// RegisterNoteOff latches the note-off and releases the voice unless the
// region is one-shot or the sustain pedal holds it.
func (v *Voice) RegisterNoteOff(delay, channel, note int, velocity uint8) {
	if v.reg == nil || v.state != StatePlaying {
		return
	}

	if v.triggerChannel == channel && v.triggerNumber == note {
		v.noteIsOff = true

		if v.reg.IsOneShot() {
			return
		}

		if !v.reg.CheckSustain || v.midiState.CCValue(config.SustainCC) < config.HalfCCThreshold {
			v.Release(delay)
		}
	}
}

// RegisterCC applies a controller change: it may release a sustained voice
// when the pedal drops, and schedules new envelope targets for every
// modulation the region binds to this controller.
func (v *Voice) RegisterCC(delay, channel, cc int, value uint8) {
	if v.reg == nil {
		return
	}

	if v.reg.CheckSustain && v.noteIsOff && cc == config.SustainCC && value < config.HalfCCThreshold {
		v.Release(delay)
	}

	if p := v.reg.AmplitudeCC; p != nil && cc == p.CC {
		gain := v.baseGain * utils.NormalizeCC(value) * utils.NormalizePercents(p.Depth)
		v.amplitudeEnvelope.RegisterEvent(delay, gain)
	}

	if p := v.reg.VolumeCC; p != nil && cc == p.CC {
		volumeDB := v.baseVolumeDB + utils.NormalizeCC(value)*p.Depth
		v.volumeEnvelope.RegisterEvent(delay, utils.DBToGain(volumeDB))
	}

	if p := v.reg.PanCC; p != nil && cc == p.CC {
		pan := v.basePan + utils.NormalizeCC(value)*utils.NormalizeBipolarPercents(p.Depth)
		v.panEnvelope.RegisterEvent(delay, pan)
	}

	if p := v.reg.PositionCC; p != nil && cc == p.CC {
		position := v.basePosition + utils.NormalizeCC(value)*utils.NormalizeBipolarPercents(p.Depth)
		v.positionEnvelope.RegisterEvent(delay, position)
	}

	if p := v.reg.WidthCC; p != nil && cc == p.CC {
		width := v.baseWidth + utils.NormalizeCC(value)*utils.NormalizeBipolarPercents(p.Depth)
		v.widthEnvelope.RegisterEvent(delay, width)
	}
}

// RegisterPitchWheel accepts a pitch wheel event. It currently has no
// effect on the playback rate.
func (v *Voice) RegisterPitchWheel(delay, channel, pitch int) {}

// RegisterAftertouch accepts an aftertouch event. It currently has no
// effect.
func (v *Voice) RegisterAftertouch(delay, channel int, aftertouch uint8) {}

// RegisterTempo accepts a tempo change. It currently has no effect.
func (v *Voice) RegisterTempo(delay int, secondsPerQuarter float64) {}

// CheckOffGroup releases a note-on voice whose region is silenced by the
// given off group. It reports whether the voice matched.
func (v *Voice) CheckOffGroup(delay int, group uint32) bool {
	if v.reg != nil && v.triggerType == TriggerNoteOn && v.reg.OffBy != 0 && v.reg.OffBy == group {
		v.Release(delay)
		return true
	}
	return false
}

// Reset returns the voice to idle and drops its sample handles.
func (v *Voice) Reset() {
	v.dataReady.Store(false)
	v.fileData = nil
	v.state = StateIdle
	v.reg = nil
	v.sourcePosition = 0
	v.floatPositionOffset = 0
	v.noteIsOff = false
	if v.promise != nil {
		v.promise.Release()
		v.promise = nil
	}
}

// GarbageCollect drops retained file data on an idle voice.
func (v *Voice) GarbageCollect() {
	if v.state == StateIdle && v.reg == nil {
		v.fileData = nil
		if v.promise != nil {
			v.promise.Release()
			v.promise = nil
		}
	}
}

// RenderBlock fills the output span with this voice's contribution. The
// span is zeroed first, so idle voices produce silence.
func (v *Voice) RenderBlock(out audio.Span) {
	if out.Frames() > v.samplesPerBlock {
		out = out.First(v.samplesPerBlock)
	}
	out.Fill(0)

	if v.state == StateIdle || v.reg == nil {
		v.power.Push(0)
		return
	}

	delay := min(v.initialDelay, out.Frames())
	delayed := out.Subspan(delay)
	v.initialDelay -= delay

	if v.reg.IsGenerator() {
		v.fillWithGenerator(delayed)
	} else {
		v.fillWithData(delayed)
	}

	if v.reg.IsStereo() {
		v.processStereo(out)
	} else {
		v.processMono(out)
	}

	if !v.egEnvelope.IsSmoothing() {
		v.Reset()
	}

	v.power.Push(out.MeanSquared())
}

// sourceData selects the sample storage: the full file once a loader (or a
// ticketed delivery) published it, otherwise the region's preload head.
func (v *Voice) sourceData() *audio.Buffer {
	if v.promise != nil && v.promise.DataReady() {
		return v.promise.FileData()
	}
	if v.dataReady.Load() && v.fileData != nil {
		return v.fileData
	}
	return v.reg.PreloadedData
}

func (v *Voice) fillWithData(out audio.Span) {
	numFrames := out.Frames()
	if numFrames == 0 {
		return
	}

	source := v.sourceData()
	if source == nil || source.Frames() == 0 {
		return
	}

	factor := v.oversampling
	indices := v.indices[:numFrames]
	leftCoeffs := v.left[:numFrames]
	rightCoeffs := v.right[:numFrames]

	// Per-sample fractional positions: advance by the pitch-scaled jump,
	// split into integer index and [0,1) fraction.
	jump := v.pitchRatio * v.speedRatio
	cum := v.floatPositionOffset
	for i := 0; i < numFrames; i++ {
		cum += jump
		whole := int(cum)
		frac := cum - float64(whole)
		indices[i] = v.sourcePosition + whole
		leftCoeffs[i] = 1 - frac
		rightCoeffs[i] = frac
	}

	sampleEnd := min(v.reg.TrueSampleEnd(factor), source.Frames()) - 1
	if sampleEnd < 0 {
		return
	}

	loopOffset := sampleEnd - v.reg.LoopStart(factor)
	if v.reg.ShouldLoop() && v.reg.LoopEnd(factor) <= source.Frames() && loopOffset > 0 {
		wrap := 0
		for i := range indices {
			indices[i] -= wrap
			for indices[i] > sampleEnd {
				indices[i] -= loopOffset
				wrap += loopOffset
			}
		}
	} else {
		clamped := false
		for i := range indices {
			if clamped || indices[i] > sampleEnd {
				clamped = true
				indices[i] = sampleEnd
				leftCoeffs[i] = 0
				rightCoeffs[i] = 1
			}
		}
	}

	outLeft := out.Channel(0)
	outRight := out.Channel(1)
	sourceLeft := source.ChannelPadded(0)
	if source.Channels() == 1 || outRight == nil {
		for i, idx := range indices {
			outLeft[i] = sourceLeft[idx]*leftCoeffs[i] + sourceLeft[idx+1]*rightCoeffs[i]
		}
	} else {
		sourceRight := source.ChannelPadded(1)
		for i, idx := range indices {
			outLeft[i] = sourceLeft[idx]*leftCoeffs[i] + sourceLeft[idx+1]*rightCoeffs[i]
			outRight[i] = sourceRight[idx]*leftCoeffs[i] + sourceRight[idx+1]*rightCoeffs[i]
		}
	}

	v.sourcePosition = indices[numFrames-1]
	v.floatPositionOffset = rightCoeffs[numFrames-1]

	if v.state != StateRelease && !v.reg.ShouldLoop() && v.sourcePosition == sampleEnd {
		last := numFrames
		for i, idx := range indices {
			if idx == sampleEnd {
				last = i
				break
			}
		}
		v.Release(last)
		out.Subspan(last).Fill(0)
	}
}

func (v *Voice) fillWithGenerator(out audio.Span) {
	if v.reg.Sample != "*sine" {
		return
	}
	numFrames := out.Frames()
	if numFrames == 0 {
		return
	}

	step := v.baseFrequency * 2 * math.Pi / v.sampleRate
	phase := v.phase
	left := out.Channel(0)
	right := out.Channel(1)

	for i := 0; i < numFrames; i++ {
		s := math.Sin(phase)
		left[i] = s
		if right != nil {
			right[i] = s
		}
		phase += step
	}

	// Wrap so long notes do not lose precision.
	phase -= 2 * math.Pi * math.Floor(phase/(2*math.Pi))
	v.phase = phase
}

// processMono applies the gain envelopes to the mono signal, broadcasts it
// to both channels and pans with the equal-power law.
func (v *Voice) processMono(out audio.Span) {
	numFrames := out.Frames()
	left := out.Channel(0)
	env := v.tmp1[:numFrames]

	v.amplitudeEnvelope.Block(env)
	vecmath.MulBlockInPlace(left, env)

	v.egEnvelope.Block(env)
	vecmath.MulBlockInPlace(left, env)

	v.volumeEnvelope.Block(env)
	vecmath.MulBlockInPlace(left, env)

	right := out.Channel(1)
	if right == nil {
		return
	}
	copy(right, left)

	pan := v.tmp2[:numFrames]
	v.panEnvelope.Block(pan)
	for i := range pan {
		angle := (pan[i] + 1) * math.Pi / 4
		left[i] *= math.Cos(angle)
		right[i] *= math.Sin(angle)
	}
}

// processStereo applies the gain envelopes to both channels, then works in
// the mid/side domain: the width envelope scales the image, the position
// envelope pans the mid channel, and the final 1/sqrt(2) recovers
// left/right.
func (v *Voice) processStereo(out audio.Span) {
	numFrames := out.Frames()
	left := out.Channel(0)
	right := out.Channel(1)
	if right == nil {
		v.processMono(out)
		return
	}

	env := v.tmp1[:numFrames]
	v.amplitudeEnvelope.Block(env)
	out.ApplyGainSpan(env)
	v.egEnvelope.Block(env)
	out.ApplyGainSpan(env)
	v.volumeEnvelope.Block(env)
	out.ApplyGainSpan(env)

	for i := 0; i < numFrames; i++ {
		mid := (left[i] + right[i]) * sqrt2Inv
		side := (left[i] - right[i]) * sqrt2Inv
		left[i] = side
		right[i] = mid
	}

	width := v.tmp2[:numFrames]
	v.widthEnvelope.Block(width)
	for i := range width {
		angle := (width[i] + 1) * math.Pi / 4
		left[i] *= math.Cos(angle)  // side
		right[i] *= math.Sin(angle) // mid
	}

	// Stereo voices pan through the position envelope; flush any pan
	// events so the schedule cannot grow.
	v.panEnvelope.Reset(v.panEnvelope.Value())

	position := v.tmp2[:numFrames]
	v.positionEnvelope.Block(position)
	for i := range position {
		angle := (position[i] + 1) * math.Pi / 4
		side := left[i]
		mid := right[i]
		left[i] = (math.Cos(angle)*mid + side) * sqrt2Inv
		right[i] = (math.Sin(angle)*mid - side) * sqrt2Inv
	}
}

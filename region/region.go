// SPDX-License-Identifier: EPL-2.0

package region

import (
	"math"
	"strings"

	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/config"
	"github.com/ik5/sampler/midi"
	"github.com/ik5/sampler/utils"
)

// Trigger selects the event kind that starts a region.
type Trigger int

const (
	TriggerAttack Trigger = iota
	TriggerRelease
	TriggerCC
)

// LoopMode mirrors the instrument description loop modes.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopOneShot
	LoopContinuous
	LoopSustain
)

// CrossfadeCurve selects the fade shape of key/velocity/CC crossfades.
type CrossfadeCurve int

const (
	CurvePower CrossfadeCurve = iota
	CurveGain
)

// Range is an inclusive integer interval.
type Range struct {
	Lo, Hi int
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v int) bool { return v >= r.Lo && v <= r.Hi }

func (r Range) length() int { return r.Hi - r.Lo }

// CCPair binds a modulation target to a controller and a depth. The depth
// unit depends on the target: percent for amplitude/pan/position/width,
// decibels for volume.
type CCPair struct {
	CC    int
	Depth float64
}

// EG describes the amplitude envelope generator. Times are seconds; Sustain
// and Start are percents.
type EG struct {
	Delay   float64
	Attack  float64
	Hold    float64
	Decay   float64
	Release float64
	Sustain float64
	Start   float64

	Vel2Attack  float64
	Vel2Decay   float64
	Vel2Release float64
	Vel2Sustain float64

	CCAttack  *CCPair
	CCDecay   *CCPair
	CCRelease *CCPair
	CCSustain *CCPair
}

// AttackTime evaluates the attack in seconds for the CC snapshot and
// velocity.
func (e *EG) AttackTime(state *midi.State, velocity uint8) float64 {
	return nonNegative(e.Attack + ccContribution(state, e.CCAttack) + utils.NormalizeCC(velocity)*e.Vel2Attack)
}

// DelayTime evaluates the delay in seconds.
func (e *EG) DelayTime(state *midi.State, velocity uint8) float64 {
	return nonNegative(e.Delay)
}

// HoldTime evaluates the hold in seconds.
func (e *EG) HoldTime(state *midi.State, velocity uint8) float64 {
	return nonNegative(e.Hold)
}

// DecayTime evaluates the decay in seconds.
func (e *EG) DecayTime(state *midi.State, velocity uint8) float64 {
	return nonNegative(e.Decay + ccContribution(state, e.CCDecay) + utils.NormalizeCC(velocity)*e.Vel2Decay)
}

// ReleaseTime evaluates the release in seconds.
func (e *EG) ReleaseTime(state *midi.State, velocity uint8) float64 {
	return nonNegative(e.Release + ccContribution(state, e.CCRelease) + utils.NormalizeCC(velocity)*e.Vel2Release)
}

// SustainLevel evaluates the sustain level in percent.
func (e *EG) SustainLevel(state *midi.State, velocity uint8) float64 {
	return e.Sustain + ccContribution(state, e.CCSustain) + utils.NormalizeCC(velocity)*e.Vel2Sustain
}

// StartLevel evaluates the start level in percent.
func (e *EG) StartLevel(state *midi.State, velocity uint8) float64 {
	return e.Start
}

func ccContribution(state *midi.State, pair *CCPair) float64 {
	if pair == nil || state == nil {
		return 0
	}
	return utils.NormalizeCC(state.CCValue(pair.CC)) * pair.Depth
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Region is one unit of the instrument description: a sample, the events
// that trigger it, and how controllers modulate it. Regions are read-only
// once handed to the engine; voices hold borrowed pointers.
type Region struct {
	Sample string

	Keys    Range
	Vels    Range
	Trigger Trigger
	Group   uint32
	OffBy   uint32
	Delay   float64 // seconds

	// Sample geometry, in frames before oversampling.
	OffsetFrames   int
	EndFrame       int
	LoopStartFrame int
	LoopEndFrame   int
	LoopMode       LoopMode

	// Pitch.
	PitchKeycenter int
	PitchKeytrack  float64 // cents per key
	PitchVeltrack  float64 // cents at full velocity
	Tune           float64 // cents
	Transpose      float64 // semitones

	// Gain.
	Volume    float64 // dB
	Amplitude float64 // percent
	RTDecay   float64 // dB per second, release triggers only

	AmpKeycenter int
	AmpKeytrack  float64 // dB per key
	AmpVeltrack  float64 // percent

	// Stereo image, percent in [-100, 100].
	Pan      float64
	Position float64
	Width    float64

	// Controller modulation.
	AmplitudeCC *CCPair
	VolumeCC    *CCPair
	PanCC       *CCPair
	PositionCC  *CCPair
	WidthCC     *CCPair

	// Crossfades.
	CrossfadeKeyIn    *Range
	CrossfadeKeyOut   *Range
	CrossfadeVelIn    *Range
	CrossfadeVelOut   *Range
	CrossfadeCCIn     map[int]Range
	CrossfadeCCOut    map[int]Range
	CrossfadeKeyCurve CrossfadeCurve
	CrossfadeVelCurve CrossfadeCurve
	CrossfadeCCCurve  CrossfadeCurve

	CheckSustain bool

	AmpEG EG

	// Filled at load time by the engine.
	Stereo        bool
	SampleRate    float64
	PreloadedData *audio.Buffer
}

// New returns a region with the description defaults.
func New(sample string) *Region {
	return &Region{
		Sample:         sample,
		Keys:           Range{0, 127},
		Vels:           Range{0, 127},
		PitchKeycenter: 60,
		PitchKeytrack:  100,
		AmpKeycenter:   60,
		Amplitude:      100,
		SampleRate:     config.DefaultSampleRate,
		CheckSustain:   true,
		AmpEG:          EG{Sustain: 100},
	}
}

// Matches reports whether a note/velocity pair triggers this region.
func (r *Region) Matches(note int, velocity uint8) bool {
	return r.Keys.Contains(note) && r.Vels.Contains(int(velocity))
}

// IsGenerator reports whether the sample name selects a generator instead
// of a file.
func (r *Region) IsGenerator() bool {
	return strings.HasPrefix(r.Sample, "*")
}

// IsStereo reports whether the backing sample has two channels.
func (r *Region) IsStereo() bool { return r.Stereo }

// IsOneShot reports whether note-offs are ignored.
func (r *Region) IsOneShot() bool { return r.LoopMode == LoopOneShot }

// ShouldLoop reports whether the voice wraps at the loop end.
func (r *Region) ShouldLoop() bool {
	return (r.LoopMode == LoopContinuous || r.LoopMode == LoopSustain) && r.LoopEndFrame > r.LoopStartFrame
}

// Offset is the start frame scaled by the oversampling factor.
func (r *Region) Offset(factor int) int {
	return r.OffsetFrames * factor
}

// LoopStart is the loop start frame scaled by the oversampling factor.
func (r *Region) LoopStart(factor int) int {
	return r.LoopStartFrame * factor
}

// LoopEnd is the loop end frame scaled by the oversampling factor.
func (r *Region) LoopEnd(factor int) int {
	return r.LoopEndFrame * factor
}

// TrueSampleEnd is the last playable frame bound: the sample end, clipped
// by the loop end when one is set, scaled by the oversampling factor.
func (r *Region) TrueSampleEnd(factor int) int {
	end := r.EndFrame
	if r.LoopEndFrame > 0 && r.LoopEndFrame < end {
		end = r.LoopEndFrame
	}
	return end * factor
}

// BasePitchVariation is the frequency ratio from keytrack, tune, transpose
// and velocity tracking.
func (r *Region) BasePitchVariation(note int, velocity uint8) float64 {
	cents := r.PitchKeytrack * float64(note-r.PitchKeycenter)
	cents += r.Tune
	cents += config.CentsPerSemitone * r.Transpose
	cents += utils.NormalizeCC(velocity) * r.PitchVeltrack
	return utils.CentsFactor(cents)
}

// BaseVolumeDB is the region volume, reduced by RTDecay for release
// triggers according to how long the note was held.
func (r *Region) BaseVolumeDB(state *midi.State, note int) float64 {
	volume := r.Volume
	if r.Trigger == TriggerRelease && state != nil {
		volume -= r.RTDecay * state.NoteDuration(note)
	}
	return volume
}

// BaseGain is the amplitude percent as a linear gain.
func (r *Region) BaseGain() float64 {
	return utils.NormalizePercents(r.Amplitude)
}

// NoteGain is the linear gain from amplitude key tracking, velocity
// tracking and key/velocity crossfades.
func (r *Region) NoteGain(note int, velocity uint8) float64 {
	gain := utils.DBToGain(r.AmpKeytrack * float64(note-r.AmpKeycenter))

	gain *= crossfadeIn(r.CrossfadeKeyIn, note, r.CrossfadeKeyCurve)
	gain *= crossfadeOut(r.CrossfadeKeyOut, note, r.CrossfadeKeyCurve)

	gain *= r.velocityGain(velocity)

	gain *= crossfadeIn(r.CrossfadeVelIn, int(velocity), r.CrossfadeVelCurve)
	gain *= crossfadeOut(r.CrossfadeVelOut, int(velocity), r.CrossfadeVelCurve)

	return gain
}

// velocityGain applies the power velocity curve scaled by AmpVeltrack: at
// 100 percent tracking the gain is the squared normalized velocity, at 0 it
// is flat.
func (r *Region) velocityGain(velocity uint8) float64 {
	track := utils.NormalizePercents(r.AmpVeltrack)
	norm := utils.NormalizeCC(velocity)
	return 1 + track*(norm*norm-1)
}

// CrossfadeGain is the product of all CC crossfade gains for the snapshot.
func (r *Region) CrossfadeGain(state *midi.State) float64 {
	gain := 1.0
	if state == nil {
		return gain
	}
	for cc, rng := range r.CrossfadeCCIn {
		in := rng
		gain *= crossfadeIn(&in, int(state.CCValue(cc)), r.CrossfadeCCCurve)
	}
	for cc, rng := range r.CrossfadeCCOut {
		out := rng
		gain *= crossfadeOut(&out, int(state.CCValue(cc)), r.CrossfadeCCCurve)
	}
	return gain
}

func crossfadeIn(rng *Range, value int, curve CrossfadeCurve) float64 {
	if rng == nil {
		return 1
	}
	if value < rng.Lo {
		return 0
	}
	if value < rng.Hi {
		pos := float64(value-rng.Lo) / math.Max(float64(rng.length()), 1)
		if curve == CurvePower {
			return math.Sqrt(pos)
		}
		return pos
	}
	return 1
}

func crossfadeOut(rng *Range, value int, curve CrossfadeCurve) float64 {
	if rng == nil {
		return 1
	}
	if value > rng.Hi {
		return 0
	}
	if value > rng.Lo {
		pos := float64(value-rng.Lo) / math.Max(float64(rng.length()), 1)
		if curve == CurvePower {
			return math.Sqrt(1 - pos)
		}
		return 1 - pos
	}
	return 1
}

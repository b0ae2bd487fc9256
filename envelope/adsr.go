// SPDX-License-Identifier: EPL-2.0

package envelope

import (
	"math"

	"github.com/ik5/sampler/config"
)

// State enumerates the ADSR stages.
type State int

const (
	StateDelay State = iota
	StateAttack
	StateHold
	StateDecay
	StateSustain
	StateRelease
	StateDone
)

// Params configures an ADSR reset. Times are in samples; Sustain and Start
// are levels in [0, 1].
type Params struct {
	Delay   int
	Attack  int
	Hold    int
	Decay   int
	Release int
	Sustain float64
	Start   float64
}

// ADSR is a delay-attack-hold-decay-sustain-release envelope rendered block
// by block. The attack ramp is linear; decay and release are exponential
// toward a -86 dB floor, matching the ear's perception of a fade.
type ADSR struct {
	state State

	delay   int
	attack  int
	hold    int
	decay   int
	release int

	start   float64
	sustain float64
	peak    float64

	current float64
	step    float64

	releaseDelay  int
	shouldRelease bool
}

// Reset arms the envelope with the given parameters and enters the delay
// stage.
func (e *ADSR) Reset(p Params) {
	e.delay = p.Delay
	e.attack = p.Attack
	e.hold = p.Hold
	e.decay = p.Decay
	e.release = p.Release
	e.sustain = clampUnit(p.Sustain)
	e.start = clampUnit(p.Start)
	e.peak = 1.0

	e.releaseDelay = 0
	e.shouldRelease = false
	e.step = 0
	e.current = e.start
	e.state = StateDelay
}

// StartRelease schedules the release stage offset samples into the next
// Block call. The release ramp starts from whatever value the envelope has
// at that sample.
func (e *ADSR) StartRelease(offset int) {
	if offset < 0 {
		offset = 0
	}
	e.shouldRelease = true
	e.releaseDelay = offset
}

// IsSmoothing reports whether the envelope still produces signal; it is
// false only in the done state.
func (e *ADSR) IsSmoothing() bool { return e.state != StateDone }

// RemainingDelay is the number of delay samples left before the attack.
func (e *ADSR) RemainingDelay() int { return e.delay }

// Block renders len(out) samples, advancing the stage machine.
func (e *ADSR) Block(out []float64) {
	o := out
	remaining := len(out)

	for remaining > 0 {
		switch e.state {
		case StateDelay:
			n := min(remaining, e.delay)
			fillSlice(o[:n], e.current)
			o = o[n:]
			remaining -= n
			e.delay -= n
			if remaining == 0 {
				break
			}
			e.step = (e.peak - e.start) / float64(max(e.attack, 1))
			e.state = StateAttack
			continue

		case StateAttack:
			n := min(remaining, e.attack)
			e.current = linearRamp(o[:n], e.current, e.step)
			o = o[n:]
			remaining -= n
			e.attack -= n
			if remaining == 0 {
				break
			}
			e.current = e.peak
			e.state = StateHold
			continue

		case StateHold:
			n := min(remaining, e.hold)
			fillSlice(o[:n], e.current)
			o = o[n:]
			remaining -= n
			e.hold -= n
			if remaining == 0 {
				break
			}
			e.step = math.Exp(math.Log(e.sustain+config.VirtuallyZero) / float64(max(e.decay, 1)))
			e.state = StateDecay
			continue

		case StateDecay:
			n := min(remaining, e.decay)
			e.current = multiplicativeRamp(o[:n], e.current, e.step)
			o = o[n:]
			remaining -= n
			e.decay -= n
			if remaining == 0 {
				break
			}
			e.current = e.sustain
			e.state = StateSustain
			continue

		case StateSustain:
			fillSlice(o, e.current)
			remaining = 0

		case StateRelease:
			n := min(remaining, e.release)
			e.current = multiplicativeRamp(o[:n], e.current, e.step)
			o = o[n:]
			remaining -= n
			e.release -= n
			if remaining == 0 {
				break
			}
			e.current = 0
			e.state = StateDone
			continue

		case StateDone:
			fillSlice(o, 0)
			e.current = 0
			remaining = 0
		}
		break
	}

	if e.shouldRelease {
		total := len(out)
		if e.releaseDelay >= total {
			e.releaseDelay -= total
			return
		}

		span := out[e.releaseDelay:]
		e.releaseDelay = 0
		e.shouldRelease = false
		if len(span) > 0 {
			e.current = span[0]
		}
		if e.current > config.VirtuallyZero {
			e.step = math.Exp((math.Log(config.VirtuallyZero) - math.Log(e.current)) / float64(max(e.release, 1)))
		} else {
			e.step = 1
		}

		n := min(len(span), e.release)
		e.state = StateRelease
		e.current = multiplicativeRamp(span[:n], e.current, e.step)
		span = span[n:]
		e.release -= n

		if e.release == 0 {
			e.current = 0
			e.state = StateDone
			fillSlice(span, 0)
		}
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func fillSlice(out []float64, v float64) {
	for i := range out {
		out[i] = v
	}
}

// linearRamp writes start, start+step, ... and returns the value after the
// last written sample.
func linearRamp(out []float64, start, step float64) float64 {
	for i := range out {
		out[i] = start
		start += step
	}
	return start
}

// multiplicativeRamp writes start, start*step, ... and returns the value
// after the last written sample.
func multiplicativeRamp(out []float64, start, step float64) float64 {
	for i := range out {
		out[i] = start
		start *= step
	}
	return start
}

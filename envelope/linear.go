// SPDX-License-Identifier: EPL-2.0

package envelope

// Linear is a smoothing envelope: it holds a current value and a schedule of
// (offset, target) events within the upcoming block, and renders a
// per-sample control signal that ramps linearly to each target in turn.
type Linear struct {
	current float64
	events  []event
}

type event struct {
	offset int
	target float64
}

// Reset sets the current value and discards any pending events.
func (e *Linear) Reset(value float64) {
	e.current = value
	e.events = e.events[:0]
}

// Value is the current (most recently rendered or reset) value.
func (e *Linear) Value() float64 { return e.current }

// RegisterEvent schedules a target to be reached offset samples into the
// next Block call. Negative offsets clamp to the block start. Events must be
// registered in non-decreasing offset order.
func (e *Linear) RegisterEvent(offset int, target float64) {
	if offset < 0 {
		offset = 0
	}
	e.events = append(e.events, event{offset: offset, target: target})
}

// Block writes len(out) samples, ramping from the current value to each
// pending target and holding flat after the last one. Events beyond the
// block take effect at the block end. The schedule is consumed.
func (e *Linear) Block(out []float64) {
	pos := 0
	for _, ev := range e.events {
		end := ev.offset
		if end > len(out) {
			end = len(out)
		}
		if end > pos {
			span := float64(end - pos)
			start := e.current
			for i := pos; i < end; i++ {
				e.current = start + (ev.target-start)*float64(i-pos+1)/span
				out[i] = e.current
			}
			pos = end
		}
		e.current = ev.target
	}
	for i := pos; i < len(out); i++ {
		out[i] = e.current
	}
	e.events = e.events[:0]
}

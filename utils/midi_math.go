// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// DBToGain converts a decibel value to a linear gain factor.
func DBToGain(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// CentsFactor converts a pitch offset in cents to a frequency ratio.
func CentsFactor(cents float64) float64 {
	return math.Pow(2.0, cents/1200.0)
}

// NormalizeCC maps a MIDI controller value 0..127 to [0, 1].
func NormalizeCC(value uint8) float64 {
	if value > 127 {
		value = 127
	}
	return float64(value) / 127.0
}

// NormalizePercents maps a percentage to [0, 1] scale.
func NormalizePercents(percent float64) float64 {
	return percent / 100.0
}

// NormalizeBipolarPercents maps a percentage in [-100, 100] to [-1, 1].
func NormalizeBipolarPercents(percent float64) float64 {
	return percent / 100.0
}

// MIDINoteFrequency is the equal-tempered frequency of a MIDI note number,
// with A4 (note 69) at 440 Hz.
func MIDINoteFrequency(note int) float64 {
	return 440.0 * math.Pow(2.0, float64(note-69)/12.0)
}

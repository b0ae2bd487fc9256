// SPDX-License-Identifier: EPL-2.0

// Package region describes one unit of an instrument: a sample (or
// generator), its trigger conditions, pitch and gain bases, loop geometry,
// envelope generator and controller modulation.
//
// The accessor methods compute the per-note bases a voice captures when it
// is armed: BasePitchVariation, BaseVolumeDB, BaseGain, NoteGain and
// CrossfadeGain. Frame-geometry accessors take the pool's oversampling
// factor so voices address oversampled sample data consistently.
package region

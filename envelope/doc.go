// SPDX-License-Identifier: EPL-2.0

// Package envelope provides the per-voice control signal generators.
//
// Linear is the smoothing envelope used for gain, pan, position and width
// modulation: controller events schedule targets inside a block and the
// envelope ramps linearly between them.
//
// ADSR is the delay-attack-hold-decay-sustain-release amplitude envelope.
// Both generators render whole blocks at a time so the voice can multiply
// them into its output with vectorised kernels.
package envelope

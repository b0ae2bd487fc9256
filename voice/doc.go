// SPDX-License-Identifier: EPL-2.0

// Package voice implements the per-note render state machine.
//
// A voice is armed on a region by the engine, advances a fractional read
// pointer through the region's sample data at a pitch-dependent rate with
// linear interpolation, applies the stacked gain envelopes and the
// equal-power pan or mid/side width laws, and returns to idle once its
// amplitude envelope finishes. While the file pool is still loading the
// sample's tail the voice reads the resident preload head; the promise's
// atomic flag switches it to the full file between blocks.
//
// Everything here runs on the audio thread and the render path never
// allocates: scratch buffers are sized once in SetSamplesPerBlock.
package voice

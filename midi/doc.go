// SPDX-License-Identifier: EPL-2.0

// Package midi tracks the controller and note state the engine consults
// when arming voices: CC values, note-on velocities and note durations.
package midi

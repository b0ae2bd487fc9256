// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Loop describes a sampler-chunk loop for WAV fixtures. Start and End are
// frame indices as stored in the smpl chunk.
type Loop struct {
	Start, End uint32
}

// WAVSpec describes a fixture file. Samples holds one slice per channel in
// [-1, 1]; all channels must have equal length.
type WAVSpec struct {
	SampleRate int
	Samples    [][]float64
	Loop       *Loop
}

// WriteWAV writes a 16-bit PCM fixture to dir/name and returns its path.
// The WAV writer is duplicated here rather than imported from formats/wav so
// that format tests can depend on this package.
func WriteWAV(t *testing.T, dir, name string, spec WAVSpec) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, EncodeWAV(spec), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// EncodeWAV renders the fixture bytes for spec.
func EncodeWAV(spec WAVSpec) []byte {
	channels := len(spec.Samples)
	frames := 0
	if channels > 0 {
		frames = len(spec.Samples[0])
	}

	var data bytes.Buffer
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			v := spec.Samples[c][f]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			var pcm [2]byte
			binary.LittleEndian.PutUint16(pcm[:], uint16(int16(v*32767.0)))
			data.Write(pcm[:])
		}
	}

	var smpl bytes.Buffer
	if spec.Loop != nil {
		var hdr [36]byte
		binary.LittleEndian.PutUint32(hdr[28:32], 1) // one sample loop
		smpl.WriteString("smpl")
		var sz [4]byte
		binary.LittleEndian.PutUint32(sz[:], 36+24)
		smpl.Write(sz[:])
		smpl.Write(hdr[:])

		var loop [24]byte
		binary.LittleEndian.PutUint32(loop[8:12], spec.Loop.Start)
		binary.LittleEndian.PutUint32(loop[12:16], spec.Loop.End)
		smpl.Write(loop[:])
	}

	dataSize := uint32(data.Len())
	riffSize := 36 + dataSize + uint32(smpl.Len())

	var out bytes.Buffer
	out.WriteString("RIFF")
	writeU32(&out, riffSize)
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeU32(&out, 16)
	writeU16(&out, 1) // PCM
	writeU16(&out, uint16(channels))
	writeU32(&out, uint32(spec.SampleRate))
	writeU32(&out, uint32(spec.SampleRate)*uint32(channels)*2)
	writeU16(&out, uint16(channels)*2)
	writeU16(&out, 16)

	out.WriteString("data")
	writeU32(&out, dataSize)
	out.Write(data.Bytes())

	out.Write(smpl.Bytes())
	return out.Bytes()
}

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

// ConstantWAV writes a mono fixture of frames samples all equal to value.
func ConstantWAV(t *testing.T, dir, name string, sampleRate, frames int, value float64) string {
	t.Helper()

	samples := make([]float64, frames)
	for i := range samples {
		samples[i] = value
	}
	return WriteWAV(t, dir, name, WAVSpec{SampleRate: sampleRate, Samples: [][]float64{samples}})
}

// RampWAV writes a mono fixture whose frame n has value start + n*step.
func RampWAV(t *testing.T, dir, name string, sampleRate, frames int, start, step float64) string {
	t.Helper()

	samples := make([]float64, frames)
	for i := range samples {
		samples[i] = start + float64(i)*step
	}
	return WriteWAV(t, dir, name, WAVSpec{SampleRate: sampleRate, Samples: [][]float64{samples}})
}

package voice

import (
	"math"
	"testing"

	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/midi"
	"github.com/ik5/sampler/region"
)

func monoBuffer(samples []float64) *audio.Buffer {
	b := audio.NewBuffer(1, len(samples))
	copy(b.Channel(0), samples)
	return b
}

func stereoBuffer(left, right []float64) *audio.Buffer {
	b := audio.NewBuffer(2, len(left))
	copy(b.Channel(0), left)
	copy(b.Channel(1), right)
	return b
}

func constSamples(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func newTestVoice(rate float64) *Voice {
	v := New(midi.NewState())
	v.SetSampleRate(rate)
	v.SetSamplesPerBlock(1024)
	return v
}

func renderBlock(v *Voice, frames int) ([]float64, []float64) {
	left := make([]float64, frames)
	right := make([]float64, frames)
	v.RenderBlock(audio.SpanOf(left, right))
	return left, right
}

// constRegion is a mono all-ones region with a hold long enough to cover
// the sample and instant attack/release.
func constRegion(rate float64, frames int) *region.Region {
	r := region.New("const.wav")
	r.SampleRate = rate
	r.EndFrame = frames
	r.PreloadedData = monoBuffer(constSamples(frames, 1.0))
	r.AmpEG.Hold = 1000 // seconds; effectively forever
	return r
}

func TestMonoOneShot(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 1000)
	r.AmpEG.Hold = 0.125 // exactly 1000 samples at 8 kHz

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	left, right := renderBlock(v, 1024)

	want := math.Cos(math.Pi / 4)
	for i := 0; i < 998; i++ {
		if math.Abs(left[i]-want) > 1e-6 {
			t.Fatalf("left[%d] = %v, want %v", i, left[i], want)
		}
		if math.Abs(right[i]-math.Sin(math.Pi/4)) > 1e-6 {
			t.Fatalf("right[%d] = %v, want %v", i, right[i], want)
		}
	}
	for i := 998; i < 1024; i++ {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("tail sample %d = (%v, %v), want silence", i, left[i], right[i])
		}
	}

	// The sample ran out, the release completed: idle after one block.
	if !v.IsFree() {
		t.Error("voice not free after the sample ended")
	}
}

func TestLoopedSustain(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i) * 0.01
	}

	r := region.New("ramp.wav")
	r.SampleRate = rate
	r.EndFrame = 100
	r.LoopStartFrame = 50
	r.LoopEndFrame = 100
	r.LoopMode = region.LoopContinuous
	r.PreloadedData = monoBuffer(samples)
	r.AmpEG.Hold = 1000

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	left, _ := renderBlock(v, 250)

	// Reference index walk: advance by one, wrap over the 49-frame span
	// between loop start and the last playable frame.
	const sampleEnd = 99
	const offset = sampleEnd - 50
	gain := math.Cos(math.Pi / 4)
	idx := 0
	for i := 0; i < 250; i++ {
		idx++
		for idx > sampleEnd {
			idx -= offset
		}
		want := samples[idx] * gain
		if math.Abs(left[i]-want) > 1e-9 {
			t.Fatalf("left[%d] = %v, want %v (index %d)", i, left[i], want, idx)
		}
	}

	// Loop invariant: the read pointer stays inside the loop at block edges.
	if pos := v.SourcePosition(); pos < 0 || pos >= sampleEnd {
		t.Errorf("SourcePosition() = %d, want within [0, %d)", pos, sampleEnd)
	}
	if v.CurrentState() != StatePlaying {
		t.Error("looping voice stopped playing")
	}
}

func TestStaleTicketKeepsPreload(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 400)
	r.PreloadedData = monoBuffer(constSamples(400, 0.5))

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)
	v.ExpectFileData(2)

	// A delivery for a previous arming must be dropped.
	v.SetFileData(monoBuffer(constSamples(400, 0.9)), 1)

	left, _ := renderBlock(v, 64)
	want := 0.5 * math.Cos(math.Pi/4)
	if math.Abs(left[10]-want) > 1e-9 {
		t.Fatalf("voice left the preload head: left[10] = %v, want %v", left[10], want)
	}

	// The matching ticket switches the source.
	v.SetFileData(monoBuffer(constSamples(400, 0.9)), 2)
	left, _ = renderBlock(v, 64)
	want = 0.9 * math.Cos(math.Pi/4)
	if math.Abs(left[10]-want) > 1e-9 {
		t.Fatalf("voice ignored delivered data: left[10] = %v, want %v", left[10], want)
	}
}

func TestEqualPowerPanSweep(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	for _, pan := range []float64{-100, 0, 100} {
		r := constRegion(rate, 1000)
		r.Pan = pan

		v := newTestVoice(rate)
		v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

		left, right := renderBlock(v, 64)
		for i := 16; i < 48; i++ {
			energy := left[i]*left[i] + right[i]*right[i]
			if math.Abs(energy-1.0) > 1e-6 {
				t.Fatalf("pan %v: energy at %d = %v, want 1", pan, i, energy)
			}
		}
	}
}

func TestSineGenerator(t *testing.T) {
	t.Parallel()

	const rate = 48000.0
	r := region.New("*sine")
	r.SampleRate = rate
	r.PitchKeycenter = 69
	r.AmpEG.Hold = 1000

	v := newTestVoice(rate)
	v.SetSamplesPerBlock(4800)
	v.StartVoice(r, 0, 0, 69, 100, TriggerNoteOn)

	left, right := renderBlock(v, 4800)

	// 440 Hz at 48 kHz: zero crossings every 48000/880 ~ 54.5 samples.
	crossings := 0
	for i := 1; i < len(left); i++ {
		if (left[i-1] < 0 && left[i] >= 0) || (left[i-1] > 0 && left[i] <= 0) {
			crossings++
		}
	}
	want := int(4800.0 / (rate / (2 * 440.0)))
	if crossings < want-2 || crossings > want+2 {
		t.Errorf("zero crossings = %d, want ~%d", crossings, want)
	}

	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("generator channels differ at %d", i)
		}
	}
}

func TestOffGroup(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r1 := constRegion(rate, 1000)
	r1.OffBy = 7
	r2 := constRegion(rate, 1000)
	r2.OffBy = 3

	v1 := newTestVoice(rate)
	v2 := newTestVoice(rate)
	v1.StartVoice(r1, 0, 0, 60, 100, TriggerNoteOn)
	v2.StartVoice(r2, 0, 0, 62, 100, TriggerNoteOn)

	if !v1.CheckOffGroup(0, 7) {
		t.Error("voice in off-by group 7 not released")
	}
	if v2.CheckOffGroup(0, 7) {
		t.Error("voice in off-by group 3 released by group 7")
	}

	if v1.CurrentState() != StateRelease {
		t.Error("matched voice not releasing")
	}
	if v2.CurrentState() != StatePlaying {
		t.Error("unmatched voice stopped playing")
	}
}

func TestNoteOffReleases(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 4000)
	r.AmpEG.Release = 0.004 // 32 samples

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)
	renderBlock(v, 128)

	v.RegisterNoteOff(0, 0, 60, 0)
	if v.CurrentState() != StateRelease {
		t.Fatal("note-off did not release")
	}

	// Render until the release finishes; the voice frees itself.
	for i := 0; i < 8 && !v.IsFree(); i++ {
		renderBlock(v, 128)
	}
	if !v.IsFree() {
		t.Error("voice not free after release completed")
	}
}

func TestNoteOffWrongNoteIgnored(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 4000)
	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	v.RegisterNoteOff(0, 0, 61, 0)
	if v.CurrentState() != StatePlaying {
		t.Error("note-off for another note released the voice")
	}

	v.RegisterNoteOff(0, 1, 60, 0)
	if v.CurrentState() != StatePlaying {
		t.Error("note-off on another channel released the voice")
	}
}

func TestOneShotIgnoresNoteOff(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 4000)
	r.LoopMode = region.LoopOneShot

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)
	v.RegisterNoteOff(0, 0, 60, 0)

	if v.CurrentState() != StatePlaying {
		t.Error("one-shot released on note-off")
	}
}

func TestSustainPedalHoldsNoteOff(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	state := midi.NewState()
	state.CC(64, 127) // pedal down

	r := constRegion(rate, 4000)
	v := New(state)
	v.SetSampleRate(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	v.RegisterNoteOff(0, 0, 60, 0)
	if v.CurrentState() != StatePlaying {
		t.Fatal("pedal-held voice released on note-off")
	}

	// Dropping the pedal below the threshold releases the latched note.
	state.CC(64, 0)
	v.RegisterCC(0, 0, 64, 0)
	if v.CurrentState() != StateRelease {
		t.Error("pedal release did not release the latched voice")
	}
}

func TestCCModulationSchedulesEnvelope(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 8000)
	r.AmplitudeCC = &region.CCPair{CC: 7, Depth: 100}

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	// Halve the amplitude mid-block.
	v.RegisterCC(0, 0, 7, 64)
	left, _ := renderBlock(v, 64)

	want := (64.0 / 127.0) * math.Cos(math.Pi/4)
	if math.Abs(left[32]-want) > 1e-9 {
		t.Errorf("modulated sample = %v, want %v", left[32], want)
	}
}

func TestIdleVoiceRendersSilence(t *testing.T) {
	t.Parallel()

	v := newTestVoice(8000)
	left, right := renderBlock(v, 64)
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatal("idle voice produced signal")
		}
	}
	if v.MeanSquaredAverage() != 0 {
		t.Error("idle voice accumulated power")
	}
}

func TestReleaseOnIdleIsNoOp(t *testing.T) {
	t.Parallel()

	v := newTestVoice(8000)
	v.Release(0)
	if v.CurrentState() != StateIdle {
		t.Error("idle voice moved to release")
	}
}

func TestStereoRegionRenders(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	left := constSamples(1000, 0.5)
	right := constSamples(1000, 0.5)

	r := region.New("st.wav")
	r.SampleRate = rate
	r.EndFrame = 1000
	r.Stereo = true
	r.PreloadedData = stereoBuffer(left, right)
	r.AmpEG.Hold = 1000

	v := newTestVoice(rate)
	v.StartVoice(r, 0, 0, 60, 100, TriggerNoteOn)

	outL, outR := renderBlock(v, 64)

	// Equal channels have no side signal: the output is the panned mid.
	mid := (0.5 + 0.5) * sqrt2Inv
	angle := math.Pi / 4
	wantL := math.Cos(angle) * mid * math.Sin(angle) * sqrt2Inv
	wantR := math.Sin(angle) * mid * math.Sin(angle) * sqrt2Inv
	if math.Abs(outL[32]-wantL) > 1e-9 || math.Abs(outR[32]-wantR) > 1e-9 {
		t.Errorf("stereo output = (%v, %v), want (%v, %v)", outL[32], outR[32], wantL, wantR)
	}
}

func TestInitialDelayTrimsBlockHead(t *testing.T) {
	t.Parallel()

	const rate = 8000.0
	r := constRegion(rate, 1000)
	v := newTestVoice(rate)
	v.StartVoice(r, 16, 0, 60, 100, TriggerNoteOn)

	left, _ := renderBlock(v, 64)
	for i := 0; i < 16; i++ {
		if left[i] != 0 {
			t.Fatalf("delayed head sample %d = %v, want 0", i, left[i])
		}
	}
	if left[20] == 0 {
		t.Error("signal missing after the delay")
	}
}

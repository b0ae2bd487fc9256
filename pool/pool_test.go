package pool

import (
	"testing"
	"time"

	"github.com/ik5/sampler/internal/audiotest"
)

func waitReady(t *testing.T, p *Promise) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !p.DataReady() {
		if time.Now().After(deadline) {
			t.Fatal("promise never became ready")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPreloadMissingFile(t *testing.T) {
	t.Parallel()

	p := NewFilePool(t.TempDir())
	defer p.Close()

	if p.Preload("nope.wav", 0) {
		t.Error("Preload reported success for a missing file")
	}
	if p.NumPreloadedFiles() != 0 {
		t.Error("missing file counted as preloaded")
	}
}

func TestPreloadUnsupportedChannelCount(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	three := make([][]float64, 3)
	for c := range three {
		three[c] = make([]float64, 64)
	}
	audiotest.WriteWAV(t, dir, "quad.wav", audiotest.WAVSpec{SampleRate: 44100, Samples: three})

	p := NewFilePool(dir)
	defer p.Close()

	if p.Preload("quad.wav", 0) {
		t.Error("Preload accepted a three-channel file")
	}
}

func TestPreloadIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 500, 1.0)

	p := NewFilePool(dir)
	defer p.Close()

	if !p.Preload("one.wav", 0) {
		t.Fatal("Preload failed")
	}
	first, rate, ok := p.PreloadedData("one.wav")
	if !ok {
		t.Fatal("PreloadedData missing after Preload")
	}
	if rate != 44100 {
		t.Errorf("sample rate = %v, want 44100", rate)
	}

	if !p.Preload("one.wav", 0) {
		t.Fatal("second Preload failed")
	}
	second, _, _ := p.PreloadedData("one.wav")
	if first != second {
		t.Error("identical Preload replaced the head buffer")
	}
}

func TestPreloadExtendsSmallerPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.RampWAV(t, dir, "ramp.wav", 44100, 2000, 0, 0.0001)

	p := NewFilePool(dir)
	defer p.Close()
	p.SetPreloadSize(100)

	if !p.Preload("ramp.wav", 0) {
		t.Fatal("Preload failed")
	}
	head, _, _ := p.PreloadedData("ramp.wav")
	if head.Frames() != 100 {
		t.Fatalf("head frames = %d, want 100", head.Frames())
	}

	// A larger offset forces an extension.
	if !p.Preload("ramp.wav", 400) {
		t.Fatal("extending Preload failed")
	}
	extended, _, _ := p.PreloadedData("ramp.wav")
	if extended.Frames() != 500 {
		t.Errorf("extended head frames = %d, want 500", extended.Frames())
	}

	// A smaller request is a no-op.
	if !p.Preload("ramp.wav", 100) {
		t.Fatal("no-op Preload failed")
	}
	same, _, _ := p.PreloadedData("ramp.wav")
	if same != extended {
		t.Error("smaller Preload replaced the head")
	}
}

func TestPromiseLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.RampWAV(t, dir, "ramp.wav", 48000, 1000, 0, 0.001)

	p := NewFilePool(dir)
	defer p.Close()
	p.SetPreloadSize(100)

	if !p.Preload("ramp.wav", 0) {
		t.Fatal("Preload failed")
	}

	pr := p.Promise("ramp.wav")
	if pr.IsEmpty() {
		t.Fatal("promise empty for a preloaded file")
	}
	if pr.Preloaded().Frames() != 100 {
		t.Errorf("promise head frames = %d, want 100", pr.Preloaded().Frames())
	}
	if pr.SampleRate() != 48000 {
		t.Errorf("promise sample rate = %v, want 48000", pr.SampleRate())
	}

	waitReady(t, pr)
	full := pr.FileData()
	if full == nil {
		t.Fatal("FileData nil after DataReady")
	}
	if full.Frames() != 1000 {
		t.Fatalf("full data frames = %d, want 1000", full.Frames())
	}

	// While the voice still holds the promise, cleanup must keep it.
	p.WaitForBackgroundLoading()
	p.CleanupPromises()
	if pr.RefCount() != 2 {
		t.Errorf("ref count after cleanup with live holder = %d, want 2", pr.RefCount())
	}

	// Once released, the next cleanup pass destroys it.
	pr.Release()
	p.CleanupPromises()
	if pr.RefCount() != 0 {
		t.Errorf("ref count after final cleanup = %d, want 0", pr.RefCount())
	}
}

func TestPromiseForUnknownFile(t *testing.T) {
	t.Parallel()

	p := NewFilePool(t.TempDir())
	defer p.Close()

	pr := p.Promise("never-preloaded.wav")
	if !pr.IsEmpty() {
		t.Error("promise for unknown file not empty")
	}
	if pr.DataReady() {
		t.Error("empty promise claims data")
	}
}

func TestAbandonedPromiseSkipsLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 64, 0.5)

	p := NewFilePool(dir)
	defer p.Close()

	// Drive the worker path directly: a ref count of one at dequeue time
	// means the voice already dropped the promise, so no I/O happens.
	abandoned := &Promise{filename: "one.wav"}
	abandoned.refs.Store(1)
	p.fulfill(abandoned)
	if abandoned.DataReady() {
		t.Error("abandoned promise was still loaded")
	}

	held := &Promise{filename: "one.wav"}
	held.refs.Store(2)
	p.fulfill(held)
	if !held.DataReady() {
		t.Error("held promise was not loaded")
	}

	// Both ended up on the filled queue; the abandoned one dies in the
	// sweep, the held one survives.
	p.CleanupPromises()
	if abandoned.RefCount() != 0 {
		t.Errorf("abandoned ref count = %d, want 0", abandoned.RefCount())
	}
	if held.RefCount() != 2 {
		t.Errorf("held ref count = %d, want 2", held.RefCount())
	}
}

func TestSetOversamplingReloadsHeads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 256, 0.25)

	p := NewFilePool(dir)
	defer p.Close()

	if !p.Preload("one.wav", 0) {
		t.Fatal("Preload failed")
	}

	p.SetOversampling(2)
	head, rate, _ := p.PreloadedData("one.wav")
	if head.Frames() != 512 {
		t.Errorf("oversampled head frames = %d, want 512", head.Frames())
	}
	if rate != 88200 {
		t.Errorf("oversampled rate = %v, want 88200", rate)
	}

	// Setting the same factor again leaves the observable state unchanged.
	p.SetOversampling(2)
	head2, rate2, _ := p.PreloadedData("one.wav")
	if head2.Frames() != 512 || rate2 != 88200 {
		t.Errorf("idempotent SetOversampling changed state: frames=%d rate=%v",
			head2.Frames(), rate2)
	}

	// Invalid factors are ignored.
	p.SetOversampling(3)
	if p.Oversampling() != 2 {
		t.Errorf("invalid factor accepted: %d", p.Oversampling())
	}
}

func TestOversampleConstant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 128, 0.5)

	p := NewFilePool(dir)
	defer p.Close()
	p.SetOversampling(4)

	if !p.Preload("one.wav", 0) {
		t.Fatal("Preload failed")
	}
	head, _, _ := p.PreloadedData("one.wav")
	if head.Frames() != 512 {
		t.Fatalf("frames = %d, want 512", head.Frames())
	}
	for i, v := range head.Channel(0) {
		if v < 0.49 || v > 0.51 {
			t.Fatalf("oversampled constant drifted at %d: %v", i, v)
		}
	}
}

func TestEmptyFileLoadingQueues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 64, 0.5)

	p := NewFilePool(dir)
	defer p.Close()

	if !p.Preload("one.wav", 0) {
		t.Fatal("Preload failed")
	}
	for i := 0; i < 8; i++ {
		p.Promise("one.wav")
	}

	done := make(chan struct{})
	go func() {
		p.EmptyFileLoadingQueues()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("EmptyFileLoadingQueues did not acknowledge")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audiotest.ConstantWAV(t, dir, "one.wav", 44100, 64, 0.5)

	p := NewFilePool(dir)
	defer p.Close()

	p.Preload("one.wav", 0)
	p.Clear()
	if p.NumPreloadedFiles() != 0 {
		t.Error("preloaded files survived Clear")
	}
}

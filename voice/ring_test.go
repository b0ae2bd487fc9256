package voice

import (
	"testing"

	"github.com/ik5/sampler/config"
)

func TestPowerHistoryAverage(t *testing.T) {
	t.Parallel()

	var h PowerHistory
	if h.Average() != 0 {
		t.Error("fresh history average not zero")
	}

	h.Push(float64(config.PowerHistoryLength))
	if got := h.Average(); got != 1 {
		t.Errorf("Average() = %v, want 1", got)
	}
}

func TestPowerHistoryEvicts(t *testing.T) {
	t.Parallel()

	var h PowerHistory
	for i := 0; i < config.PowerHistoryLength; i++ {
		h.Push(1)
	}
	if got := h.Average(); got != 1 {
		t.Fatalf("full ring Average() = %v, want 1", got)
	}

	// Overwriting the whole ring with zeros drains the average.
	for i := 0; i < config.PowerHistoryLength; i++ {
		h.Push(0)
	}
	if got := h.Average(); got != 0 {
		t.Errorf("Average() after eviction = %v, want 0", got)
	}
}

func TestPowerHistoryReset(t *testing.T) {
	t.Parallel()

	var h PowerHistory
	h.Push(5)
	h.Reset()
	if h.Average() != 0 {
		t.Error("Average() not zero after Reset")
	}
}

package pool

import "testing"

func TestPromiseRefCounting(t *testing.T) {
	t.Parallel()

	pr := &Promise{}
	pr.refs.Store(1)
	pr.retain()
	if pr.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", pr.RefCount())
	}
	pr.Release()
	pr.Release()
	if pr.RefCount() != 0 {
		t.Fatalf("RefCount = %d, want 0", pr.RefCount())
	}
}

func TestPromiseDataVisibility(t *testing.T) {
	t.Parallel()

	pr := &Promise{}
	if !pr.IsEmpty() {
		t.Error("fresh promise not empty")
	}
	if pr.FileData() != nil {
		t.Error("FileData visible before dataReady")
	}

	// dataReady only ever moves false -> true within a promise's lifetime.
	pr.dataReady.Store(true)
	if !pr.DataReady() {
		t.Error("DataReady lost the flag")
	}
}

package core

import "testing"

func TestEnsureLen(t *testing.T) {
	buf := make([]float64, 0, 8)

	got := EnsureLen(buf, 4)
	if len(got) != 4 || cap(got) != 8 {
		t.Fatalf("expected reuse: len %d cap %d", len(got), cap(got))
	}

	got = EnsureLen(buf, 16)
	if len(got) != 16 {
		t.Fatalf("expected growth: len %d", len(got))
	}

	if got := EnsureLen(buf, 0); len(got) != 0 {
		t.Fatalf("expected empty slice, len %d", len(got))
	}
}

func TestZero(t *testing.T) {
	buf := []float64{1, 2, 3}
	Zero(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("index %d not zeroed: %v", i, v)
		}
	}
}

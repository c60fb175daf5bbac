package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 1); got != 1 {
		t.Fatalf("got %v want 1", got)
	}
	if got := Clamp(-5, 0, 1); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Fatalf("got %v want 0.5", got)
	}
	// swapped bounds
	if got := Clamp(5, 1, 0); got != 1 {
		t.Fatalf("got %v want 1", got)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(0) || !IsFinite(-123.4) {
		t.Fatal("finite values reported as non-finite")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Fatal("non-finite values reported as finite")
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-31); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
	if got := FlushDenormals(1e-20); got != 1e-20 {
		t.Fatalf("got %v want 1e-20", got)
	}
}

func TestDBConversionRoundTrip(t *testing.T) {
	for _, db := range []float64{-60, -6, -1, 0, 6} {
		lin := DBToLinear(db)
		if !NearlyEqual(LinearToDB(lin), db, 1e-9) {
			t.Fatalf("round trip failed for %v dB", db)
		}
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Fatal("LinearToDB(0) should be -Inf")
	}
	if !math.IsNaN(LinearToDB(-1)) {
		t.Fatal("LinearToDB(-1) should be NaN")
	}
}

func TestEqualPowerPan(t *testing.T) {
	l, r := EqualPowerPan(0)
	if !NearlyEqual(l, r, 1e-12) {
		t.Fatalf("center pan not equal: %v vs %v", l, r)
	}
	if !NearlyEqual(l*l+r*r, 1, 1e-12) {
		t.Fatalf("center pan not constant power: %v", l*l+r*r)
	}

	l, r = EqualPowerPan(-1)
	if !NearlyEqual(l, 1, 1e-12) || !NearlyEqual(r, 0, 1e-12) {
		t.Fatalf("hard left: got %v/%v", l, r)
	}

	l, r = EqualPowerPan(1)
	if !NearlyEqual(l, 0, 1e-12) || !NearlyEqual(r, 1, 1e-12) {
		t.Fatalf("hard right: got %v/%v", l, r)
	}

	// out-of-range pan clamps
	l, r = EqualPowerPan(4)
	if !NearlyEqual(l, 0, 1e-12) || !NearlyEqual(r, 1, 1e-12) {
		t.Fatalf("clamped pan: got %v/%v", l, r)
	}
}

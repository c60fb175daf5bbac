package envelope

import (
	"math"
	"testing"
)

func TestNewAttackValidation(t *testing.T) {
	if _, err := NewAttack(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewAttack(math.NaN()); err == nil {
		t.Fatal("expected error for NaN sample rate")
	}
}

func TestSetAttackMsValidation(t *testing.T) {
	a, err := NewAttack(48000)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.SetAttackMs(0); err == nil {
		t.Fatal("expected error for zero attack")
	}
	if err := a.SetAttackMs(1e6); err == nil {
		t.Fatal("expected error for oversized attack")
	}
	if err := a.SetAttackMs(250); err != nil {
		t.Fatal(err)
	}
	if a.AttackMs() != 250 {
		t.Fatalf("got %v want 250", a.AttackMs())
	}
}

func TestGainStaysInUnitRange(t *testing.T) {
	a, err := NewAttack(48000)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetAttackMs(5); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 48000; i++ {
		g := a.ProcessSample(10) // loud constant input
		if g < 0 || g > 1 {
			t.Fatalf("sample %d: gain out of range: %v", i, g)
		}
	}
}

func TestSwellRampsTowardUnity(t *testing.T) {
	const sr = 48000.0

	a, err := NewAttack(sr)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetAttackMs(100); err != nil {
		t.Fatal(err)
	}

	// After one attack time the half-life form reaches 50%.
	var g float64
	for i := 0; i < int(0.1*sr); i++ {
		g = a.ProcessSample(1)
	}
	if math.Abs(g-0.5) > 0.02 {
		t.Fatalf("after one attack time: got %v want ~0.5", g)
	}

	// After many attack times the gain approaches 1.
	for i := 0; i < int(sr); i++ {
		g = a.ProcessSample(1)
	}
	if g < 0.99 {
		t.Fatalf("gain did not converge: %v", g)
	}
}

func TestSilenceReleasesGain(t *testing.T) {
	const sr = 48000.0

	a, err := NewAttack(sr)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < int(sr); i++ {
		a.ProcessSample(1)
	}

	var g float64
	for i := 0; i < int(sr/2); i++ {
		g = a.ProcessSample(0)
	}
	if g > 1e-3 {
		t.Fatalf("gain did not release: %v", g)
	}
}

func TestProcessBlockKeysOffChannelPeak(t *testing.T) {
	a, err := NewAttack(48000)
	if err != nil {
		t.Fatal(err)
	}

	l := []float64{0, 0, 0, 0}
	r := []float64{1, 1, 1, 1}
	gains := make([]float64, 4)

	a.ProcessBlock(gains, l, r)

	// The loud right channel must open the envelope.
	if gains[3] <= 0 {
		t.Fatalf("envelope stayed closed: %v", gains)
	}

	for i := 1; i < len(gains); i++ {
		if gains[i] < gains[i-1] {
			t.Fatalf("gain not monotone during attack: %v", gains)
		}
	}
}

func TestResetClosesEnvelope(t *testing.T) {
	a, err := NewAttack(48000)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 1000; i++ {
		a.ProcessSample(1)
	}
	a.Reset()

	if g := a.ProcessSample(0); g != 0 {
		t.Fatalf("gain after reset: %v", g)
	}
}

package design

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-delaygraph/dsp/filter/biquad"
)

// magnitudeAt evaluates |H(e^jw)| for a biquad at frequency f.
func magnitudeAt(c biquad.Coefficients, f, sampleRate float64) float64 {
	w := 2 * math.Pi * f / sampleRate
	z := cmplx.Exp(complex(0, -w))

	num := complex(c.B0, 0) + complex(c.B1, 0)*z + complex(c.B2, 0)*z*z
	den := complex(1, 0) + complex(c.A1, 0)*z + complex(c.A2, 0)*z*z

	return cmplx.Abs(num / den)
}

func TestLowpassResponse(t *testing.T) {
	const sr = 48000.0
	lp := Lowpass(1000, ButterworthQ, sr)

	// Unity in the passband, -3 dB at cutoff, strong attenuation above.
	if got := magnitudeAt(lp, 50, sr); math.Abs(got-1) > 0.01 {
		t.Fatalf("passband gain: %v", got)
	}
	if got := magnitudeAt(lp, 1000, sr); math.Abs(got-1/math.Sqrt2) > 0.01 {
		t.Fatalf("cutoff gain: %v", got)
	}
	if got := magnitudeAt(lp, 10000, sr); got > 0.02 {
		t.Fatalf("stopband gain too high: %v", got)
	}
}

func TestHighpassResponse(t *testing.T) {
	const sr = 48000.0
	hp := Highpass(1000, ButterworthQ, sr)

	if got := magnitudeAt(hp, 10000, sr); math.Abs(got-1) > 0.01 {
		t.Fatalf("passband gain: %v", got)
	}
	if got := magnitudeAt(hp, 1000, sr); math.Abs(got-1/math.Sqrt2) > 0.01 {
		t.Fatalf("cutoff gain: %v", got)
	}
	if got := magnitudeAt(hp, 50, sr); got > 0.02 {
		t.Fatalf("stopband gain too high: %v", got)
	}
}

func TestClampCutoff(t *testing.T) {
	const sr = 48000.0

	if got := ClampCutoff(5, sr); got != 20 {
		t.Fatalf("low clamp: got %v want 20", got)
	}
	if got := ClampCutoff(40000, sr); got != 0.49*sr {
		t.Fatalf("high clamp: got %v want %v", got, 0.49*sr)
	}
	if got := ClampCutoff(1000, sr); got != 1000 {
		t.Fatalf("in-range clamp: got %v want 1000", got)
	}
}

func TestDesignNearNyquistIsStable(t *testing.T) {
	const sr = 48000.0

	// Requests above Nyquist must clamp to a stable filter, not blow up.
	lp := Lowpass(sr, ButterworthQ, sr)
	s := biquad.NewSection(lp)

	for i := 0; i < 4096; i++ {
		y := s.ProcessSample(math.Sin(float64(i) * 0.3))
		if math.IsNaN(y) || math.IsInf(y, 0) || math.Abs(y) > 10 {
			t.Fatalf("unstable output at %d: %v", i, y)
		}
	}
}

func TestInvalidParamsYieldZeroCoefficients(t *testing.T) {
	if got := Lowpass(1000, ButterworthQ, 0); got != (biquad.Coefficients{}) {
		t.Fatalf("expected zero coefficients, got %+v", got)
	}

	// Bad Q falls back to Butterworth.
	want := Lowpass(1000, ButterworthQ, 48000)
	if got := Lowpass(1000, -1, 48000); got != want {
		t.Fatalf("bad Q fallback: got %+v want %+v", got, want)
	}
}

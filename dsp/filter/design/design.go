// Package design computes biquad coefficients from the RBJ audio EQ
// cookbook formulas, feeding dsp/filter/biquad for runtime processing.
package design

import (
	"math"

	"github.com/cwbudde/algo-delaygraph/dsp/filter/biquad"
)

// ButterworthQ is the quality factor of a maximally flat (Butterworth)
// second-order section.
const ButterworthQ = 1 / math.Sqrt2

const minCutoffHz = 20.0

// maxCutoffRatio bounds cutoffs below Nyquist; 0.49*sampleRate keeps the
// bilinear transform away from the tan() singularity.
const maxCutoffRatio = 0.49

// ClampCutoff limits a cutoff frequency to the stable design range
// [20 Hz, 0.49*sampleRate].
func ClampCutoff(freq, sampleRate float64) float64 {
	max := maxCutoffRatio * sampleRate
	if max < minCutoffHz {
		max = minCutoffHz
	}

	if freq < minCutoffHz {
		return minCutoffHz
	}
	if freq > max {
		return max
	}

	return freq
}

// Lowpass designs a lowpass biquad at freq (Hz) with quality factor q.
// The cutoff is clamped to the stable design range.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(ClampCutoff(freq, sampleRate), sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b1 := 1 - cw
	b0 := b1 / 2
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

// Highpass designs a highpass biquad at freq (Hz) with quality factor q.
// The cutoff is clamped to the stable design range.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(ClampCutoff(freq, sampleRate), sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b1 := -(1 + cw)
	b0 := (1 + cw) / 2
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return 0, false
	}

	return 2 * math.Pi * freq / sampleRate, true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return ButterworthQ
	}

	return q
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Coefficients{}
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// Package analysis provides analyzer-style metering of the engine
// output: a Hann-windowed FFT magnitude spectrum computed from streamed
// blocks, for UI spectrum displays.
package analysis

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	minFFTSize     = 256
	maxFFTSize     = 8192
	defaultFFTSize = 2048
)

// Option mutates analyzer construction parameters.
type Option func(*Analyzer)

// WithFFTSize sets the transform size, a power of two in [256, 8192].
func WithFFTSize(n int) Option {
	return func(a *Analyzer) { a.fftSize = n }
}

// Analyzer accumulates mono (mid) samples in a ring buffer and computes
// a normalized magnitude spectrum on demand. All buffers are allocated
// at construction; Push and Compute do not allocate.
type Analyzer struct {
	sampleRate float64
	fftSize    int

	plan       *algofft.Plan[complex128]
	window     []float64
	windowGain float64

	ring   []float64
	write  int
	filled int

	input  []complex128
	output []complex128
	re, im []float64
	mags   []float64
}

// NewAnalyzer creates an analyzer for the given sample rate.
func NewAnalyzer(sampleRate float64, opts ...Option) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyzer sample rate must be > 0: %f", sampleRate)
	}

	a := &Analyzer{sampleRate: sampleRate, fftSize: defaultFFTSize}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.fftSize < minFFTSize || a.fftSize > maxFFTSize || a.fftSize&(a.fftSize-1) != 0 {
		return nil, fmt.Errorf("analyzer fft size must be a power of two in [%d, %d]: %d", minFFTSize, maxFFTSize, a.fftSize)
	}

	plan, err := algofft.NewPlan64(a.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}
	a.plan = plan

	// Periodic Hann, the standard analyzer window.
	a.window = make([]float64, a.fftSize)
	sum := 0.0
	for i := range a.window {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(a.fftSize)))
		a.window[i] = w
		sum += w
	}
	a.windowGain = sum / float64(a.fftSize)

	a.ring = make([]float64, a.fftSize)
	a.input = make([]complex128, a.fftSize)
	a.output = make([]complex128, a.fftSize)

	bins := a.fftSize/2 + 1
	a.re = make([]float64, bins)
	a.im = make([]float64, bins)
	a.mags = make([]float64, bins)

	return a, nil
}

// FFTSize returns the transform size.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// NumBins returns the number of non-negative-frequency bins.
func (a *Analyzer) NumBins() int { return len(a.mags) }

// BinFrequency returns the center frequency of bin k in Hz.
func (a *Analyzer) BinFrequency(k int) float64 {
	return float64(k) * a.sampleRate / float64(a.fftSize)
}

// Ready reports whether a full window of samples has been pushed.
func (a *Analyzer) Ready() bool { return a.filled >= a.fftSize }

// Push streams a stereo block into the ring buffer as its mid signal.
func (a *Analyzer) Push(l, r []float64) {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}

	for i := 0; i < n; i++ {
		a.ring[a.write] = 0.5 * (l[i] + r[i])
		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}
		if a.filled < a.fftSize {
			a.filled++
		}
	}
}

// Compute windows the most recent full frame, transforms it and returns
// the normalized single-sided magnitude spectrum. A full-scale sine lands
// near 1.0 in its bin. The returned slice is owned by the analyzer and
// valid until the next Compute. Returns nil before a full frame has been
// pushed or if the transform fails.
func (a *Analyzer) Compute() []float64 {
	if !a.Ready() {
		return nil
	}

	read := a.write
	for i := 0; i < a.fftSize; i++ {
		a.input[i] = complex(a.ring[read]*a.window[i], 0)
		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return nil
	}

	norm := float64(a.fftSize) * a.windowGain
	last := len(a.mags) - 1
	for k := 0; k <= last; k++ {
		a.re[k] = real(a.output[k]) / norm
		a.im[k] = imag(a.output[k]) / norm
	}

	vecmath.Magnitude(a.mags, a.re, a.im)

	// Single-sided spectrum: interior bins carry both halves.
	for k := 1; k < last; k++ {
		a.mags[k] *= 2
	}

	return a.mags
}

// Reset discards all buffered samples.
func (a *Analyzer) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.write = 0
	a.filled = 0
}

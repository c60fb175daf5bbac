// Package delay implements a circular delay line with fractional
// (cubic Hermite) reads, the storage primitive behind every delay band.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-delaygraph/dsp/interp"
)

// Line is a circular delay line with a fixed capacity. Capacity is chosen
// once (at prepare time) for the maximum base delay plus modulation
// headroom, so modulated reads never wrap past the write cursor.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line holding size samples of history.
func New(size int) (*Line, error) {
	if size < 4 {
		return nil, fmt.Errorf("delay size must be >= 4: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// NewForDuration returns a delay line sized for maxSeconds of history at
// the given sample rate, plus the guard samples the Hermite reader needs.
func NewForDuration(maxSeconds, sampleRate float64) (*Line, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	if maxSeconds <= 0 || math.IsNaN(maxSeconds) || math.IsInf(maxSeconds, 0) {
		return nil, fmt.Errorf("delay duration must be > 0: %f", maxSeconds)
	}

	size := int(math.Ceil(maxSeconds*sampleRate)) + 4

	return New(size)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the largest fractional delay (in samples) that can be
// read without the interpolation window wrapping into unwritten history.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - 3)
}

// Write writes one sample and advances the write cursor.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Read(1) is the most recently
// written sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := (d.writePos - delay + size) % size
	return d.buffer[readPos]
}

// ReadFractional reads with cubic Hermite interpolation. The delay is
// clamped to [1, MaxDelay] so the 4-point window is always valid.
func (d *Line) ReadFractional(delay float64) float64 {
	if delay < 1 {
		delay = 1
	}
	if max := d.MaxDelay(); delay > max {
		delay = max
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	// Hermite4 interpolates from x0 toward the older neighbor x1 as t
	// grows, matching the increasing fractional delay.
	xm1 := d.Read(p - 1)
	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	x2 := d.Read(p + 2)

	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

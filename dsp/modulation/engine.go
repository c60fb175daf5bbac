package modulation

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-delaygraph/dsp/core"
)

// MaxBands is the largest number of per-band modulators an engine owns.
const MaxBands = 12

// Engine owns one modulator per delay band plus a master modulator and
// renders their control buffers once per audio block. Buffers are
// preallocated at Prepare; Process performs no allocation.
type Engine struct {
	numBands int
	band     []*Modulator
	master   *Modulator

	local     [][]float64
	masterBuf []float64

	maxBlockSize int
	prepared     bool
}

// NewEngine creates an engine for numBands bands (1..12).
func NewEngine(numBands int) (*Engine, error) {
	if numBands < 1 || numBands > MaxBands {
		return nil, fmt.Errorf("modulation engine band count must be in [1, %d]: %d", MaxBands, numBands)
	}

	return &Engine{numBands: numBands}, nil
}

// NumBands returns the number of per-band modulators.
func (e *Engine) NumBands() int { return e.numBands }

// Prepare allocates modulators and control buffers for the sample rate
// and maximum block size. Safe to call again on renegotiation.
func (e *Engine) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("modulation engine sample rate must be > 0: %f", sampleRate)
	}
	if maxBlockSize < 1 {
		return fmt.Errorf("modulation engine block size must be > 0: %d", maxBlockSize)
	}

	if e.band == nil {
		e.band = make([]*Modulator, e.numBands)
		for i := range e.band {
			// Distinct seeds keep the generative streams decorrelated
			// across bands.
			m, err := NewModulator(sampleRate, WithSeed(defaultModSeed+uint64(i)+1))
			if err != nil {
				return err
			}
			e.band[i] = m
		}

		m, err := NewModulator(sampleRate, WithSeed(defaultModSeed))
		if err != nil {
			return err
		}
		e.master = m
	} else {
		for _, m := range e.band {
			if err := m.SetSampleRate(sampleRate); err != nil {
				return err
			}
		}
		if err := e.master.SetSampleRate(sampleRate); err != nil {
			return err
		}
	}

	if e.local == nil {
		e.local = make([][]float64, e.numBands)
	}
	for i := range e.local {
		e.local[i] = core.EnsureLen(e.local[i], maxBlockSize)
	}
	e.masterBuf = core.EnsureLen(e.masterBuf, maxBlockSize)

	e.maxBlockSize = maxBlockSize
	e.prepared = true

	return nil
}

// SetBandParams updates one band's modulator.
func (e *Engine) SetBandParams(index int, w Waveform, rateHz, depth float64) error {
	if index < 0 || index >= e.numBands {
		return fmt.Errorf("modulation band index out of range [0, %d): %d", e.numBands, index)
	}
	if !e.prepared {
		return fmt.Errorf("modulation engine not prepared")
	}

	m := e.band[index]
	if err := m.SetWaveform(w); err != nil {
		return err
	}
	if err := m.SetRate(rateHz); err != nil {
		return err
	}

	return m.SetDepth(depth)
}

// SetMasterParams updates the master modulator.
func (e *Engine) SetMasterParams(w Waveform, rateHz, depth float64) error {
	if !e.prepared {
		return fmt.Errorf("modulation engine not prepared")
	}

	m := e.master
	if err := m.SetWaveform(w); err != nil {
		return err
	}
	if err := m.SetRate(rateHz); err != nil {
		return err
	}

	return m.SetDepth(depth)
}

// Process renders numSamples control samples into every band buffer and
// the master buffer. numSamples is clamped to the prepared block size.
func (e *Engine) Process(numSamples int) {
	if !e.prepared || numSamples <= 0 {
		return
	}
	if numSamples > e.maxBlockSize {
		numSamples = e.maxBlockSize
	}

	for i, m := range e.band {
		m.ProcessBlock(e.local[i][:numSamples])
	}
	e.master.ProcessBlock(e.masterBuf[:numSamples])
}

// LocalBuffer returns the control buffer of one band, valid until the
// next Process call. Returns nil for out-of-range bands or before Prepare.
func (e *Engine) LocalBuffer(index int) []float64 {
	if !e.prepared || index < 0 || index >= e.numBands {
		return nil
	}

	return e.local[index]
}

// MasterBuffer returns the master control buffer, valid until the next
// Process call.
func (e *Engine) MasterBuffer() []float64 {
	if !e.prepared {
		return nil
	}

	return e.masterBuf
}

// Reset restores every modulator to its seeded initial state.
func (e *Engine) Reset() {
	for _, m := range e.band {
		m.Reset()
	}
	if e.master != nil {
		e.master.Reset()
	}
}

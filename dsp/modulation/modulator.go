// Package modulation generates the per-band and master control signals
// that sweep delay times: classic LFO shapes plus Brownian and Lorenz
// generative processes. Each modulator is fully self-contained; no RNG or
// attractor state is shared between instances.
package modulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-delaygraph/dsp/core"
)

// Waveform selects the generative process of a modulator.
type Waveform int

const (
	WaveformSine Waveform = iota
	WaveformTriangle
	WaveformSaw
	WaveformSquare
	// WaveformBrownian is a tethered random walk slewed into tape-drift-like
	// smooth randomness.
	WaveformBrownian
	// WaveformLorenz integrates the Lorenz attractor for bounded,
	// non-periodic organic movement.
	WaveformLorenz
)

// String returns the display name of the waveform.
func (w Waveform) String() string {
	switch w {
	case WaveformSine:
		return "Sine"
	case WaveformTriangle:
		return "Triangle"
	case WaveformSaw:
		return "Saw"
	case WaveformSquare:
		return "Square"
	case WaveformBrownian:
		return "Brownian"
	case WaveformLorenz:
		return "Lorenz"
	default:
		return "Unknown"
	}
}

const (
	minModRateHz = 0.0
	maxModRateHz = 100.0

	// Brownian random walk: step size drawn on each phase wrap, target
	// tethered toward center, output slewed per sample.
	brownianStep   = 0.2
	brownianTether = 0.92
	brownianSlew   = 0.001

	// Lorenz attractor constants (sigma, rho, beta) with a fixed internal
	// integration step.
	lorenzSigma = 10.0
	lorenzRho   = 28.0
	lorenzBeta  = 8.0 / 3.0
	lorenzDt    = 0.01
	lorenzScale = 20.0

	defaultModSeed = 0x5eed0fab
)

// Option mutates modulator construction parameters.
type Option func(*Modulator)

// WithSeed sets the seed of the modulator's private random stream.
func WithSeed(seed uint64) Option {
	return func(m *Modulator) { m.seed = seed }
}

// WithWaveform sets the initial waveform.
func WithWaveform(w Waveform) Option {
	return func(m *Modulator) { m.waveform = w }
}

// Modulator produces one control sample in [-depth, +depth] per tick.
type Modulator struct {
	sampleRate float64
	waveform   Waveform
	rateHz     float64
	depth      float64
	seed       uint64

	phase float64

	// Brownian state.
	rng    *rand.Rand
	target float64

	// Slewed output value, shared by the Brownian and Lorenz processes.
	value float64

	// Lorenz state.
	lx, ly, lz float64
}

// NewModulator creates a modulator with a 1 Hz sine at zero depth.
func NewModulator(sampleRate float64, opts ...Option) (*Modulator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("modulator sample rate must be > 0: %f", sampleRate)
	}

	m := &Modulator{
		sampleRate: sampleRate,
		waveform:   WaveformSine,
		rateHz:     1,
		seed:       defaultModSeed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.Reset()

	return m, nil
}

// SetSampleRate updates the sample rate.
func (m *Modulator) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("modulator sample rate must be > 0: %f", sampleRate)
	}

	m.sampleRate = sampleRate

	return nil
}

// SetWaveform selects the generative process.
func (m *Modulator) SetWaveform(w Waveform) error {
	if w < WaveformSine || w > WaveformLorenz {
		return fmt.Errorf("invalid modulator waveform: %d", w)
	}

	m.waveform = w

	return nil
}

// SetRate sets the modulation rate in Hz, in [0, 100].
func (m *Modulator) SetRate(hz float64) error {
	if hz < minModRateHz || hz > maxModRateHz || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("modulator rate must be in [%g, %g] Hz: %f", minModRateHz, maxModRateHz, hz)
	}

	m.rateHz = hz

	return nil
}

// SetDepth sets the output scale in [0, 1]. Depth 0 yields exact zero
// output for every waveform.
func (m *Modulator) SetDepth(depth float64) error {
	if depth < 0 || depth > 1 || math.IsNaN(depth) || math.IsInf(depth, 0) {
		return fmt.Errorf("modulator depth must be in [0, 1]: %f", depth)
	}

	m.depth = depth

	return nil
}

// Waveform returns the selected waveform.
func (m *Modulator) Waveform() Waveform { return m.waveform }

// Rate returns the modulation rate in Hz.
func (m *Modulator) Rate() float64 { return m.rateHz }

// Depth returns the output scale.
func (m *Modulator) Depth() float64 { return m.depth }

// Reset restores phase, random stream, walk and attractor state to their
// seeded initial values.
func (m *Modulator) Reset() {
	m.phase = 0
	m.target = 0
	m.value = 0
	m.rng = rand.New(rand.NewPCG(m.seed, m.seed^0x9e3779b97f4a7c15))
	m.lx, m.ly, m.lz = 0.1, 0, 0
}

// ProcessSample advances the modulator one tick and returns the control
// value in [-depth, +depth].
func (m *Modulator) ProcessSample() float64 {
	raw := 0.0

	switch m.waveform {
	case WaveformSine:
		raw = math.Sin(2 * math.Pi * m.phase)
		m.advancePhase()
	case WaveformTriangle:
		if m.phase < 0.5 {
			raw = 4*m.phase - 1
		} else {
			raw = 3 - 4*m.phase
		}
		m.advancePhase()
	case WaveformSaw:
		raw = 2*m.phase - 1
		m.advancePhase()
	case WaveformSquare:
		if m.phase < 0.5 {
			raw = 1
		} else {
			raw = -1
		}
		m.advancePhase()
	case WaveformBrownian:
		raw = m.brownianSample()
	case WaveformLorenz:
		raw = m.lorenzSample()
	}

	return raw * m.depth
}

// ProcessBlock fills out with one control sample per frame.
func (m *Modulator) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = m.ProcessSample()
	}
}

func (m *Modulator) advancePhase() bool {
	m.phase += m.rateHz / m.sampleRate
	if m.phase >= 1 {
		m.phase -= 1
		return true
	}

	return false
}

// brownianSample draws a new tethered target on each phase wrap and slews
// the output toward it, producing smooth drift rather than stepped noise.
func (m *Modulator) brownianSample() float64 {
	if m.advancePhase() {
		step := (m.rng.Float64()*2 - 1) * brownianStep
		m.target = core.Clamp((m.target+step)*brownianTether, -1, 1)
	}

	diff := m.target - m.value
	m.value += core.Clamp(diff, -brownianSlew, brownianSlew)

	return m.value
}

// lorenzSample integrates the attractor with a rate-scaled iteration count
// and slews the normalized x coordinate.
func (m *Modulator) lorenzSample() float64 {
	iterations := int(math.Round(m.rateHz))
	if iterations < 1 {
		iterations = 1
	}
	if iterations > 20 {
		iterations = 20
	}

	for i := 0; i < iterations; i++ {
		dx := lorenzSigma * (m.ly - m.lx)
		dy := m.lx*(lorenzRho-m.lz) - m.ly
		dz := m.lx*m.ly - lorenzBeta*m.lz

		m.lx += dx * lorenzDt
		m.ly += dy * lorenzDt
		m.lz += dz * lorenzDt
	}

	raw := core.Clamp(m.lx/lorenzScale, -1, 1)

	// Slew scales weakly with rate so faster settings move audibly faster
	// while staying smooth.
	slew := brownianSlew * (1 + 0.1*m.rateHz)
	diff := raw - m.value
	m.value += core.Clamp(diff, -slew, slew)

	return m.value
}

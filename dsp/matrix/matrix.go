// Package matrix orchestrates the delay engine: it owns the band nodes,
// the modulation engine and the safety limiter, fans block audio through
// the routing graph's processing order and mixes the limited wet bus
// with the dry path.
package matrix

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-delaygraph/dsp/band"
	"github.com/cwbudde/algo-delaygraph/dsp/core"
	"github.com/cwbudde/algo-delaygraph/dsp/modulation"
	"github.com/cwbudde/algo-delaygraph/dsp/routing"
	"github.com/cwbudde/algo-delaygraph/dsp/safety"
)

// Option mutates matrix construction parameters.
type Option func(*Matrix)

// WithBandCapacity sets the number of band slots (1..12). It must match
// the capacity of the routing graphs the matrix processes against.
func WithBandCapacity(n int) Option {
	return func(m *Matrix) { m.numBands = n }
}

// WithLimiterOptions forwards options to the owned safety limiter.
func WithLimiterOptions(opts ...safety.Option) Option {
	return func(m *Matrix) { m.limiterOpts = opts }
}

// Matrix drives one block of audio through the routing graph. All node
// buffers, band nodes and control buffers are allocated at Prepare; the
// process path allocates nothing and takes no locks.
type Matrix struct {
	numBands int
	outputID int

	bands      []*band.Node
	hostParams []band.Params
	waveforms  []modulation.Waveform

	engine      *modulation.Engine
	limiter     *safety.Limiter
	limiterOpts []safety.Option

	nodeL, nodeR [][]float64
	peaks        []float64

	sampleRate   float64
	maxBlockSize int
	prepared     bool
}

// New creates an unprepared matrix. The default capacity is 8 bands.
func New(opts ...Option) (*Matrix, error) {
	m := &Matrix{numBands: routing.DefaultBands}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.numBands < 1 || m.numBands > routing.MaxBands {
		return nil, fmt.Errorf("matrix band capacity must be in [1, %d]: %d", routing.MaxBands, m.numBands)
	}

	m.outputID = m.numBands + 1

	engine, err := modulation.NewEngine(m.numBands)
	if err != nil {
		return nil, err
	}
	m.engine = engine

	m.bands = make([]*band.Node, m.numBands)
	m.hostParams = make([]band.Params, m.numBands)
	m.waveforms = make([]modulation.Waveform, m.numBands)
	for i := range m.bands {
		m.bands[i] = band.NewNode()
		m.hostParams[i] = band.DefaultParams()
	}

	return m, nil
}

// BandCapacity returns the number of band slots.
func (m *Matrix) BandCapacity() int { return m.numBands }

// Limiter returns the owned safety limiter, exposing the mute flag,
// reason code and unlock entry point. Nil before Prepare.
func (m *Matrix) Limiter() *safety.Limiter { return m.limiter }

// Prepare allocates every node buffer, band node and modulator for the
// sample rate and maximum block size. Safe to call again on format
// renegotiation; all state is reset.
func (m *Matrix) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("matrix sample rate must be > 0: %f", sampleRate)
	}
	if maxBlockSize < 1 {
		return fmt.Errorf("matrix block size must be > 0: %d", maxBlockSize)
	}

	for i, node := range m.bands {
		if err := node.Prepare(sampleRate, maxBlockSize); err != nil {
			return fmt.Errorf("prepare band %d: %w", i+1, err)
		}
	}

	if err := m.engine.Prepare(sampleRate, maxBlockSize); err != nil {
		return err
	}

	if m.limiter == nil {
		lim, err := safety.NewLimiter(sampleRate, m.limiterOpts...)
		if err != nil {
			return err
		}
		m.limiter = lim
	} else if err := m.limiter.SetSampleRate(sampleRate); err != nil {
		return err
	}

	if m.nodeL == nil {
		m.nodeL = make([][]float64, m.outputID+1)
		m.nodeR = make([][]float64, m.outputID+1)
	}
	for id := 0; id <= m.outputID; id++ {
		m.nodeL[id] = core.EnsureLen(m.nodeL[id], maxBlockSize)
		m.nodeR[id] = core.EnsureLen(m.nodeR[id], maxBlockSize)
	}

	if m.peaks == nil {
		m.peaks = make([]float64, m.outputID+1)
	}

	m.sampleRate = sampleRate
	m.maxBlockSize = maxBlockSize
	m.prepared = true

	m.Reset()

	// Re-push parameters so derived coefficients match the new rate.
	for id := 1; id <= m.numBands; id++ {
		if err := m.SetBandParams(id, m.hostParams[id-1]); err != nil {
			return err
		}
	}

	return nil
}

// Reset clears every delay line, envelope, modulator and node buffer
// without reallocating. The limiter's mute latch survives, as specified
// by its own Reset contract.
func (m *Matrix) Reset() {
	if !m.prepared {
		return
	}

	for _, node := range m.bands {
		node.Reset()
	}
	m.engine.Reset()
	m.limiter.Reset()

	for id := range m.nodeL {
		core.Zero(m.nodeL[id])
		core.Zero(m.nodeR[id])
	}
	for id := range m.peaks {
		m.peaks[id] = 0
	}
}

// SetBandParams validates and applies a parameter snapshot for band id
// (1-based). Tap timing is resolved here: a band with TapPercent > 0
// derives its delay time from its TapSource band's time, and changing a
// source band re-resolves every dependent. The node only ever sees a
// concrete milliseconds value.
func (m *Matrix) SetBandParams(id int, p band.Params) error {
	if id < 1 || id > m.numBands {
		return fmt.Errorf("matrix band id out of range [1, %d]: %d", m.numBands, id)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	m.hostParams[id-1] = p

	if err := m.pushResolved(id); err != nil {
		return err
	}

	// Re-resolve bands tapping their time from this one.
	for dep := 1; dep <= m.numBands; dep++ {
		dp := m.hostParams[dep-1]
		if dep != id && dp.TapPercent > 0 && dp.TapSource == id {
			if err := m.pushResolved(dep); err != nil {
				return err
			}
		}
	}

	if m.prepared {
		return m.engine.SetBandParams(id-1, m.waveforms[id-1], p.ModRate, p.ModDepth)
	}

	return nil
}

// pushResolved pushes band id's host params into its node with tap
// timing resolved to concrete milliseconds.
func (m *Matrix) pushResolved(id int) error {
	p := m.hostParams[id-1]
	if p.TapPercent > 0 && p.TapSource >= 1 && p.TapSource <= m.numBands && p.TapSource != id {
		t := m.hostParams[p.TapSource-1].TimeMs * p.TapPercent / 100
		p.TimeMs = core.Clamp(t, band.MinTimeMs, band.MaxTimeMs)
	}

	return m.bands[id-1].SetParams(p)
}

// BandParams returns the host-side parameter copy for band id, or zero
// params for out-of-range ids.
func (m *Matrix) BandParams(id int) band.Params {
	if id < 1 || id > m.numBands {
		return band.Params{}
	}

	return m.hostParams[id-1]
}

// SetBandModWaveform selects the generative process of one band's
// modulator.
func (m *Matrix) SetBandModWaveform(id int, w modulation.Waveform) error {
	if id < 1 || id > m.numBands {
		return fmt.Errorf("matrix band id out of range [1, %d]: %d", m.numBands, id)
	}
	if w < modulation.WaveformSine || w > modulation.WaveformLorenz {
		return fmt.Errorf("invalid modulator waveform: %d", w)
	}

	m.waveforms[id-1] = w

	if m.prepared {
		p := m.hostParams[id-1]
		return m.engine.SetBandParams(id-1, w, p.ModRate, p.ModDepth)
	}

	return nil
}

// SetMasterModulation configures the master modulator applied on top of
// every band's local control signal.
func (m *Matrix) SetMasterModulation(w modulation.Waveform, rateHz, depth float64) error {
	if !m.prepared {
		return fmt.Errorf("matrix not prepared")
	}

	return m.engine.SetMasterParams(w, rateHz, depth)
}

// BandPeak returns the most recent block's peak amplitude of band id,
// for activity metering. Zero for out-of-range ids.
func (m *Matrix) BandPeak(id int) float64 {
	if !m.prepared || id < 1 || id > m.numBands {
		return 0
	}

	return m.peaks[id]
}

// ProcessWithRouting renders one block in place: l/r hold the dry input
// and receive dry*dryGain + wet*wetMix, where the wet bus is the routing
// graph's Output node sum after the safety limiter. Unprepared state, a
// nil graph, an empty block, mismatched channels or an empty active band
// set leave the buffers untouched.
func (m *Matrix) ProcessWithRouting(l, r []float64, wetMix float64, g *routing.Graph, dryLevel, dryPan float64) {
	numSamples := len(l)
	if !m.prepared || g == nil || numSamples == 0 || len(r) != numSamples {
		return
	}
	if numSamples > m.maxBlockSize {
		numSamples = m.maxBlockSize
		l = l[:numSamples]
		r = r[:numSamples]
	}

	snap := g.Load()
	if snap == nil || len(snap.ActiveBands) == 0 || snap.OutputID != m.outputID {
		return
	}

	for id := 0; id <= m.outputID; id++ {
		core.Zero(m.nodeL[id][:numSamples])
		core.Zero(m.nodeR[id][:numSamples])
	}
	for id := range m.peaks {
		m.peaks[id] = 0
	}

	copy(m.nodeL[routing.InputNodeID][:numSamples], l)
	copy(m.nodeR[routing.InputNodeID][:numSamples], r)

	m.engine.Process(numSamples)
	master := m.engine.MasterBuffer()[:numSamples]

	for _, id := range snap.Order {
		switch {
		case id == routing.InputNodeID:
			// Already filled.
		case id == m.outputID:
			m.sumPredecessors(id, snap, numSamples)
		default:
			m.sumPredecessors(id, snap, numSamples)

			bufL := m.nodeL[id][:numSamples]
			bufR := m.nodeR[id][:numSamples]
			local := m.engine.LocalBuffer(id - 1)[:numSamples]

			// Dry/wet mixing happens once, globally; the node runs at
			// full wet gain so downstream nodes hear the whole band.
			m.bands[id-1].Process(bufL, bufR, 1.0, local, master)

			m.peaks[id] = math.Max(vecmath.MaxAbs(bufL), vecmath.MaxAbs(bufR))
		}
	}

	wetL := m.nodeL[m.outputID][:numSamples]
	wetR := m.nodeR[m.outputID][:numSamples]
	m.limiter.ProcessBlock(wetL, wetR)

	dryGainL, dryGainR := core.EqualPowerPan(dryPan)
	dryGainL *= dryLevel
	dryGainR *= dryLevel

	vecmath.ScaleBlockInPlace(l, dryGainL)
	vecmath.ScaleBlockInPlace(r, dryGainR)
	vecmath.ScaleBlockInPlace(wetL, wetMix)
	vecmath.ScaleBlockInPlace(wetR, wetMix)
	vecmath.AddBlockInPlace(l, wetL)
	vecmath.AddBlockInPlace(r, wetR)
}

// sumPredecessors accumulates every predecessor's node buffer into id's
// buffer pair.
func (m *Matrix) sumPredecessors(id int, snap *routing.Snapshot, numSamples int) {
	dstL := m.nodeL[id][:numSamples]
	dstR := m.nodeR[id][:numSamples]

	for _, src := range snap.Predecessors[id] {
		vecmath.AddBlockInPlace(dstL, m.nodeL[src][:numSamples])
		vecmath.AddBlockInPlace(dstR, m.nodeR[src][:numSamples])
	}
}

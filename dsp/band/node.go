// Package band implements one delay band: a stereo modulated delay line
// with a pluggable feedback-coloring algorithm, feedback-path filtering
// and an optional attack (swell) envelope on the wet signal.
package band

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-delaygraph/dsp/character"
	"github.com/cwbudde/algo-delaygraph/dsp/core"
	"github.com/cwbudde/algo-delaygraph/dsp/delay"
	"github.com/cwbudde/algo-delaygraph/dsp/envelope"
)

// modScaleMs converts the summed local+master control signal into a delay
// offset: +/-25 ms gives an audible chorus/vibrato range while keeping
// the buffer headroom requirement bounded.
const modScaleMs = 25.0

// modHeadroomMs is the extra delay-line capacity reserved for modulation
// excursions (two +/-25 ms sources).
const modHeadroomMs = 2 * modScaleMs

// minModulatedMs keeps the modulated delay strictly positive.
const minModulatedMs = 0.01

// Node is one delay band. Allocate once, Prepare for a sample rate/block
// size, then drive per block with summed input audio and the matching
// modulation slices. The process path never allocates.
type Node struct {
	sampleRate   float64
	maxBlockSize int
	prepared     bool

	params Params

	lineL, lineR *delay.Line
	algL, algR   character.Algorithm
	filter       *FeedbackFilter
	attack       *envelope.Attack

	panL, panR float64

	wetL, wetR []float64
	gains      []float64
}

// NewNode creates an unprepared band with default parameters.
func NewNode() *Node {
	return &Node{params: DefaultParams()}
}

// Prepare allocates the delay lines and scratch buffers for the sample
// rate and maximum block size. Calling it again reallocates for the new
// format and resets all state.
func (n *Node) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("band sample rate must be > 0: %f", sampleRate)
	}
	if maxBlockSize < 1 {
		return fmt.Errorf("band block size must be > 0: %d", maxBlockSize)
	}

	maxSeconds := (MaxTimeMs + modHeadroomMs) * 0.001

	var err error
	if n.lineL, err = delay.NewForDuration(maxSeconds, sampleRate); err != nil {
		return err
	}
	if n.lineR, err = delay.NewForDuration(maxSeconds, sampleRate); err != nil {
		return err
	}

	if n.attack, err = envelope.NewAttack(sampleRate); err != nil {
		return err
	}

	n.sampleRate = sampleRate
	n.maxBlockSize = maxBlockSize
	n.filter = NewFeedbackFilter(sampleRate)

	n.wetL = core.EnsureLen(n.wetL, maxBlockSize)
	n.wetR = core.EnsureLen(n.wetR, maxBlockSize)
	n.gains = core.EnsureLen(n.gains, maxBlockSize)

	n.prepared = true

	// Re-derive everything that depends on the sample rate.
	return n.SetParams(n.params)
}

// Reset clears delay history, filter, algorithm and envelope state
// without reallocating.
func (n *Node) Reset() {
	if !n.prepared {
		return
	}

	n.lineL.Reset()
	n.lineR.Reset()
	n.filter.Reset()
	n.attack.Reset()
	if n.algL != nil {
		n.algL.Reset()
		n.algR.Reset()
	}
}

// SetParams validates and copies a parameter snapshot, deriving internal
// coefficients. The node keeps its own copy; the caller's struct is not
// retained.
func (n *Node) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if !n.prepared {
		n.params = p
		return nil
	}

	if n.algL == nil || n.algL.Type() != p.Algorithm {
		n.algL = character.New(p.Algorithm)
		n.algR = character.New(p.Algorithm)
		n.algL.Prepare(n.sampleRate)
		n.algR.Prepare(n.sampleRate)
	}

	n.filter.SetHiCut(p.HiCutHz)
	n.filter.SetLoCut(p.LoCutHz)

	if p.AttackMs > 0 {
		if err := n.attack.SetAttackMs(math.Max(p.AttackMs, 0.1)); err != nil {
			return err
		}
	}

	n.panL, n.panR = core.EqualPowerPan(p.Pan)
	n.params = p

	return nil
}

// Params returns the node's current parameter copy.
func (n *Node) Params() Params { return n.params }

// Enabled reports whether the band processes audio.
func (n *Node) Enabled() bool { return n.params.Enabled }

// Process renders the band in place: l/r hold the summed input block and
// receive input + wet*wetMix. localMod and masterMod are per-sample
// control signals (nil slices are treated as silence). A disabled or
// unprepared band, or an empty block, leaves the buffers untouched.
func (n *Node) Process(l, r []float64, wetMix float64, localMod, masterMod []float64) {
	numSamples := len(l)
	if !n.prepared || !n.params.Enabled || numSamples == 0 || len(r) != numSamples {
		return
	}
	if numSamples > n.maxBlockSize {
		numSamples = n.maxBlockSize
		l = l[:numSamples]
		r = r[:numSamples]
	}

	msToSamples := n.sampleRate * 0.001
	feedback := n.params.Feedback
	level := n.params.Level
	invert := 1.0
	if n.params.PhaseInvert {
		invert = -1.0
	}

	for i := 0; i < numSamples; i++ {
		mod := 0.0
		if i < len(localMod) {
			mod += localMod[i]
		}
		if i < len(masterMod) {
			mod += masterMod[i]
		}

		modulatedMs := n.params.TimeMs + mod*modScaleMs
		if modulatedMs < minModulatedMs {
			modulatedMs = minModulatedMs
		}

		delaySamples := modulatedMs * msToSamples

		dL := n.lineL.ReadFractional(delaySamples)
		dR := n.lineR.ReadFractional(delaySamples)

		fbL := n.algL.ProcessSample(dL * feedback)
		fbR := n.algR.ProcessSample(dR * feedback)
		fbL, fbR = n.filter.ProcessSample(fbL, fbR)
		fbL = core.FlushDenormals(fbL)
		fbR = core.FlushDenormals(fbR)

		if n.params.PingPong {
			n.lineL.Write(l[i] + fbR)
			n.lineR.Write(r[i] + fbL)
		} else {
			n.lineL.Write(l[i] + fbL)
			n.lineR.Write(r[i] + fbR)
		}

		n.wetL[i] = dL * level * n.panL * invert
		n.wetR[i] = dR * level * n.panR * invert
	}

	wetL := n.wetL[:numSamples]
	wetR := n.wetR[:numSamples]

	if n.params.AttackMs > 0 {
		gains := n.gains[:numSamples]
		n.attack.ProcessBlock(gains, l, r)
		vecmath.MulBlockInPlace(wetL, gains)
		vecmath.MulBlockInPlace(wetR, gains)
	}

	for i := 0; i < numSamples; i++ {
		l[i] += wetL[i] * wetMix
		r[i] += wetR[i] * wetMix
	}
}

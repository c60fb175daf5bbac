// Package envelope implements the attack (volume-swell) envelope applied
// to a delay band's wet signal.
package envelope

import (
	"fmt"
	"math"
)

const (
	minAttackMs = 0.1
	maxAttackMs = 5000.0

	// releaseMs resets the swell quickly once the input falls silent so
	// the next note swells again.
	releaseMs = 50.0

	// gateThreshold is the input peak level treated as signal present
	// (about -60 dBFS).
	gateThreshold = 1e-3
)

// Attack is a single-pole exponential envelope follower keyed off the
// input signal's peak. It produces a gain in [0, 1] that ramps up with
// the configured attack time while input is present and falls back once
// the input goes silent.
type Attack struct {
	sampleRate float64
	attackMs   float64

	attackCoeff  float64
	releaseCoeff float64
	gain         float64
}

// NewAttack creates an attack envelope for the given sample rate.
func NewAttack(sampleRate float64) (*Attack, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("attack envelope sample rate must be > 0: %f", sampleRate)
	}

	a := &Attack{sampleRate: sampleRate, attackMs: 10}
	a.recalculate()

	return a, nil
}

// SetSampleRate updates the sample rate.
func (a *Attack) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("attack envelope sample rate must be > 0: %f", sampleRate)
	}

	a.sampleRate = sampleRate
	a.recalculate()

	return nil
}

// SetAttackMs sets the swell time in milliseconds, in [0.1, 5000].
func (a *Attack) SetAttackMs(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("attack time must be in [%g, %g] ms: %f", minAttackMs, maxAttackMs, ms)
	}

	a.attackMs = ms
	a.recalculate()

	return nil
}

// AttackMs returns the swell time in milliseconds.
func (a *Attack) AttackMs() float64 { return a.attackMs }

// Reset clears the envelope state.
func (a *Attack) Reset() {
	a.gain = 0
}

// ProcessSample advances the envelope by one sample given the input peak
// level (max of channel magnitudes) and returns the gain in [0, 1].
func (a *Attack) ProcessSample(peak float64) float64 {
	if peak > gateThreshold {
		a.gain += a.attackCoeff * (1 - a.gain)
	} else {
		a.gain *= a.releaseCoeff
	}

	return a.gain
}

// ProcessBlock fills gains with one envelope value per frame, keyed off
// max(|l|, |r|). All three slices must have the same length.
func (a *Attack) ProcessBlock(gains, l, r []float64) {
	for i := range gains {
		peak := math.Abs(l[i])
		if pr := math.Abs(r[i]); pr > peak {
			peak = pr
		}

		gains[i] = a.ProcessSample(peak)
	}
}

func (a *Attack) recalculate() {
	a.attackCoeff = 1.0 - math.Exp(-math.Ln2/(a.attackMs*0.001*a.sampleRate))
	a.releaseCoeff = math.Exp(-math.Ln2 / (releaseMs * 0.001 * a.sampleRate))
}

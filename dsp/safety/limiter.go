// Package safety implements the cascading output limiter that guards the
// summed wet signal against clipping, DC buildup, non-finite samples and
// feedback runaway. Dangerous conditions latch a permanent mute that
// survives Reset and clears only through an explicit unlock.
package safety

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-delaygraph/dsp/core"
)

// MuteReason identifies the hazard that latched the permanent mute.
type MuteReason int

const (
	// MuteNone means the limiter is passing audio.
	MuteNone MuteReason = iota
	// MuteSustainedPeak means the signal stayed above +6 dBFS for 100 ms.
	MuteSustainedPeak
	// MuteNaNInf means a non-finite sample reached the limiter.
	MuteNaNInf
	// MuteDCOffset means the mid signal carried heavy DC for 500 ms.
	MuteDCOffset
)

// String returns the display name of the mute reason.
func (r MuteReason) String() string {
	switch r {
	case MuteNone:
		return "None"
	case MuteSustainedPeak:
		return "SustainedPeak"
	case MuteNaNInf:
		return "NaNInf"
	case MuteDCOffset:
		return "DCOffset"
	default:
		return "Unknown"
	}
}

const (
	// Stage 0: sustained peak watchdog.
	sustainedPeakTauMs     = 100.0
	sustainedPeakThreshold = 2.0 // +6 dBFS linear
	sustainedPeakHoldMs    = 100.0

	// Stage 2: DC watchdog.
	dcDetectTauMs     = 500.0
	dcDetectThreshold = 0.5
	dcDetectHoldMs    = 500.0

	// Stage 3: DC blocking highpass corner.
	dcBlockHz = 10.0

	// Stage 4: soft-knee peak limiter.
	limitAttackMs      = 0.1
	limitReleaseMs     = 50.0
	defaultThresholdDB = -1.0

	// Stage 5: slow loudness governor against feedback runaway.
	loudnessTauMs             = 500.0
	defaultSustainedThreshold = 0.7

	// Stage 6: per-channel slew cap.
	maxSlewPerSample = 0.5
)

// Option mutates limiter construction parameters.
type Option func(*Limiter)

// WithThreshold sets the fast limiter ceiling as a linear amplitude in
// (0, 1]. The default is -1 dBFS.
func WithThreshold(linear float64) Option {
	return func(l *Limiter) { l.threshold = linear }
}

// WithSustainedThreshold sets the slow loudness governor level as a
// linear amplitude in (0, 1]. The default is 0.7.
func WithSustainedThreshold(linear float64) Option {
	return func(l *Limiter) { l.sustainedThreshold = linear }
}

// Limiter is the per-sample protective chain for the stereo wet bus. Its
// stages run in a fixed order: sustained-peak watchdog, non-finite guard,
// DC watchdog, DC blocking, fast soft-knee limiting, slow loudness
// limiting, slew capping and a final hard clip. Once a watchdog latches
// the permanent mute, output is forced to zero and no stage runs until
// UnlockPermanentMute is called.
type Limiter struct {
	sampleRate         float64
	threshold          float64
	sustainedThreshold float64

	peakCoeff     float64
	dcCoeff       float64
	dcBlockR      float64
	attackCoeff   float64
	releaseCoeff  float64
	loudnessCoeff float64

	peakHoldSamples int
	dcHoldSamples   int

	peakEnv   float64
	peakCount int

	dcEnv   float64
	dcCount int

	dcInL, dcOutL float64
	dcInR, dcOutR float64

	limitEnv    float64
	loudnessEnv float64

	prevL, prevR float64

	muteReason MuteReason
}

// NewLimiter creates a limiter for the given sample rate.
func NewLimiter(sampleRate float64, opts ...Option) (*Limiter, error) {
	l := &Limiter{
		threshold:          core.DBToLinear(defaultThresholdDB),
		sustainedThreshold: defaultSustainedThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.threshold <= 0 || l.threshold > 1 || math.IsNaN(l.threshold) {
		return nil, fmt.Errorf("safety limiter threshold must be in (0, 1]: %f", l.threshold)
	}
	if l.sustainedThreshold <= 0 || l.sustainedThreshold > 1 || math.IsNaN(l.sustainedThreshold) {
		return nil, fmt.Errorf("safety limiter sustained threshold must be in (0, 1]: %f", l.sustainedThreshold)
	}

	if err := l.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}

	return l, nil
}

// SetSampleRate updates the sample rate and rederives every stage
// coefficient. State is preserved.
func (l *Limiter) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("safety limiter sample rate must be > 0: %f", sampleRate)
	}

	l.sampleRate = sampleRate

	l.peakCoeff = tauCoeff(sustainedPeakTauMs, sampleRate)
	l.dcCoeff = tauCoeff(dcDetectTauMs, sampleRate)
	l.attackCoeff = tauCoeff(limitAttackMs, sampleRate)
	l.releaseCoeff = tauCoeff(limitReleaseMs, sampleRate)
	l.loudnessCoeff = tauCoeff(loudnessTauMs, sampleRate)

	l.dcBlockR = 1.0 - 2.0*math.Pi*dcBlockHz/sampleRate

	l.peakHoldSamples = int(sustainedPeakHoldMs * 0.001 * sampleRate)
	l.dcHoldSamples = int(dcDetectHoldMs * 0.001 * sampleRate)

	return nil
}

// tauCoeff converts a time constant in milliseconds to a one-pole
// smoothing coefficient.
func tauCoeff(tauMs, sampleRate float64) float64 {
	return math.Exp(-1.0 / (tauMs * 0.001 * sampleRate))
}

// Muted reports whether the permanent mute is latched.
func (l *Limiter) Muted() bool { return l.muteReason != MuteNone }

// Reason returns the hazard that latched the mute, or MuteNone.
func (l *Limiter) Reason() MuteReason { return l.muteReason }

// Threshold returns the fast limiter ceiling as linear amplitude.
func (l *Limiter) Threshold() float64 { return l.threshold }

// UnlockPermanentMute clears the mute latch. This is the only way the
// limiter resumes output after a watchdog fired; it requires an explicit
// operator acknowledgment by design.
func (l *Limiter) UnlockPermanentMute() {
	l.muteReason = MuteNone
}

// Reset clears every envelope, counter and filter state. It deliberately
// leaves the mute latch alone: a transport reset must not silently
// recover from a dangerous signal condition.
func (l *Limiter) Reset() {
	l.peakEnv = 0
	l.peakCount = 0
	l.dcEnv = 0
	l.dcCount = 0
	l.dcInL, l.dcOutL = 0, 0
	l.dcInR, l.dcOutR = 0, 0
	l.limitEnv = 0
	l.loudnessEnv = 0
	l.prevL, l.prevR = 0, 0
}

// ProcessBlock runs the full chain over a stereo block in place. While
// the mute is latched both channels are forced to zero.
func (l *Limiter) ProcessBlock(left, right []float64) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	for i := 0; i < n; i++ {
		left[i], right[i] = l.ProcessSample(left[i], right[i])
	}
}

// ProcessSample runs one stereo sample through every stage in order and
// returns the sanitized pair. The output is always finite and in [-1, 1].
func (l *Limiter) ProcessSample(sl, sr float64) (float64, float64) {
	if l.muteReason != MuteNone {
		return 0, 0
	}

	// Stage 0: sustained-peak watchdog on the raw input. Non-finite
	// samples bypass the follower so its state stays usable; stage 1
	// latches the mute for them anyway.
	peak := math.Max(math.Abs(sl), math.Abs(sr))
	if core.IsFinite(peak) {
		l.peakEnv = l.peakCoeff*l.peakEnv + (1-l.peakCoeff)*peak
	}
	if l.peakEnv > sustainedPeakThreshold {
		l.peakCount++
		if l.peakCount >= l.peakHoldSamples {
			l.muteReason = MuteSustainedPeak
			return 0, 0
		}
	} else {
		l.peakCount = 0
	}

	// Stage 1: non-finite guard.
	if !core.IsFinite(sl) || !core.IsFinite(sr) {
		l.muteReason = MuteNaNInf
		return 0, 0
	}

	// Stage 2: DC watchdog. The 500 ms follower runs on the signed mid
	// signal so oscillating content averages out and only genuine offset
	// accumulates.
	mid := 0.5 * (sl + sr)
	l.dcEnv = l.dcCoeff*l.dcEnv + (1-l.dcCoeff)*mid
	if math.Abs(l.dcEnv) > dcDetectThreshold {
		l.dcCount++
		if l.dcCount >= l.dcHoldSamples {
			l.muteReason = MuteDCOffset
			return 0, 0
		}
	} else {
		l.dcCount = 0
	}

	// Stage 3: DC blocking highpass, always on as ongoing protection.
	outL := sl - l.dcInL + l.dcBlockR*l.dcOutL
	l.dcInL = sl
	l.dcOutL = outL

	outR := sr - l.dcInR + l.dcBlockR*l.dcOutR
	l.dcInR = sr
	l.dcOutR = outR

	// Stage 4: fast soft-knee limiting on the post-block peak.
	peak = math.Max(math.Abs(outL), math.Abs(outR))
	if peak > l.limitEnv {
		l.limitEnv = l.attackCoeff*l.limitEnv + (1-l.attackCoeff)*peak
	} else {
		l.limitEnv = l.releaseCoeff*l.limitEnv + (1-l.releaseCoeff)*peak
	}
	if l.limitEnv > l.threshold {
		gain := l.threshold / l.limitEnv
		outL *= gain
		outR *= gain
	}

	// Stage 5: slow loudness governor against gradual runaway.
	peak = math.Max(math.Abs(outL), math.Abs(outR))
	l.loudnessEnv = l.loudnessCoeff*l.loudnessEnv + (1-l.loudnessCoeff)*peak
	if l.loudnessEnv > l.sustainedThreshold {
		gain := l.sustainedThreshold / l.loudnessEnv
		outL *= gain
		outR *= gain
	}

	// Stage 6: per-channel slew cap.
	outL = l.prevL + core.Clamp(outL-l.prevL, -maxSlewPerSample, maxSlewPerSample)
	outR = l.prevR + core.Clamp(outR-l.prevR, -maxSlewPerSample, maxSlewPerSample)
	l.prevL = outL
	l.prevR = outR

	// Stage 7: hard clip.
	return core.Clamp(outL, -1, 1), core.Clamp(outR, -1, 1)
}

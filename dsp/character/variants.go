package character

import (
	"math"
	"math/rand/v2"
)

// Digital is the identity algorithm: y = x exactly.
type Digital struct{}

// Prepare is a no-op; the pass-through has no state.
func (*Digital) Prepare(float64) {}

// Reset is a no-op.
func (*Digital) Reset() {}

// ProcessSample returns x unchanged.
func (*Digital) ProcessSample(x float64) float64 { return x }

// Type returns TypeDigital.
func (*Digital) Type() Type { return TypeDigital }

// Name returns the display name.
func (*Digital) Name() string { return TypeDigital.String() }

const (
	analogDrive    = 1.2
	analogTrim     = 0.9
	analogCutoffHz = 8000.0
)

// Analog soft-saturates with tanh and rolls off highs around 8 kHz.
type Analog struct {
	lp onePoleLowpass
}

// Prepare configures the rolloff filter for the sample rate.
func (a *Analog) Prepare(sampleRate float64) {
	a.lp.configure(analogCutoffHz, sampleRate)
}

// Reset clears filter state.
func (a *Analog) Reset() { a.lp.reset() }

// ProcessSample applies y = lowpass(tanh(1.2*x) * 0.9).
func (a *Analog) ProcessSample(x float64) float64 {
	return a.lp.process(math.Tanh(x*analogDrive) * analogTrim)
}

// Type returns TypeAnalog.
func (*Analog) Type() Type { return TypeAnalog }

// Name returns the display name.
func (*Analog) Name() string { return TypeAnalog.String() }

const (
	tapeDrive    = 1.5
	tapeTrim     = 0.85
	tapeCutoffHz = 6000.0
)

// Tape saturates asymmetrically (positive and negative half-waves compress
// at different rates) and rolls off highs around 6 kHz.
type Tape struct {
	lp onePoleLowpass
}

// Prepare configures the rolloff filter for the sample rate.
func (t *Tape) Prepare(sampleRate float64) {
	t.lp.configure(tapeCutoffHz, sampleRate)
}

// Reset clears filter state.
func (t *Tape) Reset() { t.lp.reset() }

// ProcessSample applies asymmetric exponential saturation followed by the
// rolloff filter: 1-e^(-x) above zero, -1+e^(x) below, with 1.5 input
// drive and 0.85 output trim.
func (t *Tape) ProcessSample(x float64) float64 {
	driven := x * tapeDrive

	var shaped float64
	if driven >= 0 {
		shaped = 1 - math.Exp(-driven)
	} else {
		shaped = -1 + math.Exp(driven)
	}

	return t.lp.process(shaped * tapeTrim)
}

// Type returns TypeTape.
func (*Tape) Type() Type { return TypeTape }

// Name returns the display name.
func (*Tape) Name() string { return TypeTape.String() }

const (
	lofiHoldPeriod  = 4
	lofiQuantSteps  = 4096.0 // 12-bit
	lofiNoiseFloor  = 0.001
	lofiDefaultSeed = 0x1f2e3d4c
)

// LoFi decimates with sample-and-hold every 4 samples, quantizes to 12
// bits and adds a small uniform noise floor.
type LoFi struct {
	holdCounter int
	holdValue   float64
	rng         *rand.Rand
}

// NewLoFi returns a LoFi algorithm with a deterministic noise stream.
func NewLoFi() *LoFi {
	return &LoFi{rng: rand.New(rand.NewPCG(lofiDefaultSeed, 0))}
}

// Prepare reinitializes decimation state.
func (l *LoFi) Prepare(float64) {
	l.holdCounter = 0
	l.holdValue = 0
}

// Reset clears decimation state and reseeds the noise stream.
func (l *LoFi) Reset() {
	l.holdCounter = 0
	l.holdValue = 0
	l.rng = rand.New(rand.NewPCG(lofiDefaultSeed, 0))
}

// ProcessSample holds every 4th quantized sample and adds dither noise.
func (l *LoFi) ProcessSample(x float64) float64 {
	l.holdCounter++
	if l.holdCounter >= lofiHoldPeriod {
		l.holdCounter = 0
		l.holdValue = math.Round(x*lofiQuantSteps) / lofiQuantSteps
	}

	noise := (l.rng.Float64()*2 - 1) * lofiNoiseFloor

	return l.holdValue + noise
}

// Type returns TypeLoFi.
func (*LoFi) Type() Type { return TypeLoFi }

// Name returns the display name.
func (*LoFi) Name() string { return TypeLoFi.String() }

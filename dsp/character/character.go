// Package character implements the interchangeable feedback-coloring
// algorithms applied to a delay band's feedback tap. All variants share
// the same per-sample contract; none of them touches the dry path.
package character

import "math"

// Type selects a coloring algorithm.
type Type int

const (
	// TypeDigital is an exact pass-through, the no-coloration reference.
	TypeDigital Type = iota
	// TypeAnalog applies soft tanh saturation with high-frequency rolloff,
	// after bucket-brigade analog delays.
	TypeAnalog
	// TypeTape applies asymmetric exponential saturation with HF loss,
	// after tape head saturation.
	TypeTape
	// TypeLoFi applies sample-and-hold decimation, 12-bit quantization and
	// a small noise floor, after early digital delays.
	TypeLoFi
)

// String returns the display name of the algorithm type.
func (t Type) String() string {
	switch t {
	case TypeDigital:
		return "Digital"
	case TypeAnalog:
		return "Analog"
	case TypeTape:
		return "Tape"
	case TypeLoFi:
		return "Lo-Fi"
	default:
		return "Unknown"
	}
}

// Algorithm is the uniform per-sample contract every variant implements.
// Implementations are stateful only through their own filter/decimation
// state and must be prepared before processing.
type Algorithm interface {
	Prepare(sampleRate float64)
	Reset()
	ProcessSample(x float64) float64
	Type() Type
	Name() string
}

// New returns a fresh algorithm instance for the given type. Unknown
// types fall back to the transparent Digital variant.
func New(t Type) Algorithm {
	switch t {
	case TypeAnalog:
		return &Analog{}
	case TypeTape:
		return &Tape{}
	case TypeLoFi:
		return NewLoFi()
	default:
		return &Digital{}
	}
}

// onePoleLowpass is a first-order smoothing filter used by the colored
// variants to model high-frequency loss.
type onePoleLowpass struct {
	alpha float64
	state float64
}

func (f *onePoleLowpass) configure(cutoffHz, sampleRate float64) {
	if cutoffHz <= 0 || sampleRate <= 0 {
		f.alpha = 1
		return
	}

	f.alpha = 1.0 - math.Exp(-2.0*math.Pi*cutoffHz/sampleRate)
}

func (f *onePoleLowpass) process(x float64) float64 {
	f.state += f.alpha * (x - f.state)
	return f.state
}

func (f *onePoleLowpass) reset() {
	f.state = 0
}

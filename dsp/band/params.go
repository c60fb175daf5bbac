package band

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-delaygraph/dsp/character"
)

// Parameter ranges.
const (
	MinTimeMs = 0.1
	MaxTimeMs = 4000.0

	MinAttackMs = 0.0
	MaxAttackMs = 5000.0

	maxLevel = 2.0
)

// Params is the value snapshot of one band's controls. The host owns it
// and pushes it into the node on change; the node copies what it needs
// and derives internal coefficients, never retaining a reference.
type Params struct {
	// TimeMs is the base delay time in milliseconds, [0.1, 4000].
	TimeMs float64
	// Feedback is the feedback gain, [0, 1].
	Feedback float64
	// Level is the linear wet output level, [0, 2].
	Level float64
	// Pan is the wet pan position, [-1, 1].
	Pan float64
	// HiCutHz / LoCutHz shape the feedback path.
	HiCutHz float64
	LoCutHz float64
	// ModRate (Hz) and ModDepth configure the band's modulator; the
	// modulation engine consumes them, not the node.
	ModRate  float64
	ModDepth float64
	// AttackMs enables the volume-swell envelope when greater than zero.
	AttackMs float64
	// Algorithm selects the feedback coloring variant.
	Algorithm character.Type
	// PhaseInvert negates the wet signal.
	PhaseInvert bool
	// PingPong cross-wires left/right feedback for stereo bounce.
	PingPong bool
	// Enabled gates the whole band; a disabled band is a strict no-op.
	Enabled bool

	// TapSource and TapPercent derive TimeMs from another band's time
	// scaled by a percentage. Resolved by the delay matrix before the
	// params reach the node; the node itself only honors TimeMs.
	TapSource  int
	TapPercent float64
}

// DefaultParams returns a neutral, enabled band.
func DefaultParams() Params {
	return Params{
		TimeMs:    250,
		Feedback:  0.35,
		Level:     1,
		HiCutHz:   20000,
		LoCutHz:   20,
		ModRate:   1,
		ModDepth:  0,
		Algorithm: character.TypeDigital,
		Enabled:   true,
	}
}

// Validate checks every field range. Tap fields are validated loosely
// since the matrix resolves them against its own band set.
func (p Params) Validate() error {
	check := func(name string, v, lo, hi float64) error {
		if v < lo || v > hi || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("band %s must be in [%g, %g]: %f", name, lo, hi, v)
		}
		return nil
	}

	if err := check("time", p.TimeMs, MinTimeMs, MaxTimeMs); err != nil {
		return err
	}
	if err := check("feedback", p.Feedback, 0, 1); err != nil {
		return err
	}
	if err := check("level", p.Level, 0, maxLevel); err != nil {
		return err
	}
	if err := check("pan", p.Pan, -1, 1); err != nil {
		return err
	}
	if err := check("attack", p.AttackMs, MinAttackMs, MaxAttackMs); err != nil {
		return err
	}
	// Cutoffs outside the stable range are clamped by the filter section
	// rather than rejected; only non-finite values are errors.
	if math.IsNaN(p.HiCutHz) || math.IsInf(p.HiCutHz, 0) ||
		math.IsNaN(p.LoCutHz) || math.IsInf(p.LoCutHz, 0) {
		return fmt.Errorf("band cutoffs must be finite: %f / %f", p.HiCutHz, p.LoCutHz)
	}
	if p.Algorithm < character.TypeDigital || p.Algorithm > character.TypeLoFi {
		return fmt.Errorf("band algorithm out of range: %d", p.Algorithm)
	}
	if p.TapPercent < 0 || math.IsNaN(p.TapPercent) || math.IsInf(p.TapPercent, 0) {
		return fmt.Errorf("band tap percent must be >= 0: %f", p.TapPercent)
	}

	return nil
}

package band

import (
	"github.com/cwbudde/algo-delaygraph/dsp/filter/biquad"
	"github.com/cwbudde/algo-delaygraph/dsp/filter/design"
)

// FeedbackFilter is the band's feedback-path tone section: a hi-cut
// (lowpass) followed by a lo-cut (highpass), both second-order
// Butterworth, applied per-sample to the stereo feedback pair only.
type FeedbackFilter struct {
	sampleRate float64
	hiCutHz    float64
	loCutHz    float64

	lpL, lpR biquad.Section
	hpL, hpR biquad.Section
}

// NewFeedbackFilter creates a filter section with wide-open cutoffs.
func NewFeedbackFilter(sampleRate float64) *FeedbackFilter {
	f := &FeedbackFilter{sampleRate: sampleRate}
	f.SetHiCut(20000)
	f.SetLoCut(20)

	return f
}

// SetSampleRate updates the sample rate and redesigns both filters.
func (f *FeedbackFilter) SetSampleRate(sampleRate float64) {
	f.sampleRate = sampleRate
	f.redesignHiCut()
	f.redesignLoCut()
}

// SetHiCut sets the lowpass cutoff in Hz. Coefficients are recomputed
// only when the cutoff actually changes.
func (f *FeedbackFilter) SetHiCut(freq float64) {
	freq = design.ClampCutoff(freq, f.sampleRate)
	if freq == f.hiCutHz {
		return
	}

	f.hiCutHz = freq
	f.redesignHiCut()
}

// SetLoCut sets the highpass cutoff in Hz. Coefficients are recomputed
// only when the cutoff actually changes.
func (f *FeedbackFilter) SetLoCut(freq float64) {
	freq = design.ClampCutoff(freq, f.sampleRate)
	if freq == f.loCutHz {
		return
	}

	f.loCutHz = freq
	f.redesignLoCut()
}

// HiCut returns the lowpass cutoff in Hz.
func (f *FeedbackFilter) HiCut() float64 { return f.hiCutHz }

// LoCut returns the highpass cutoff in Hz.
func (f *FeedbackFilter) LoCut() float64 { return f.loCutHz }

// ProcessSample filters one stereo feedback pair.
func (f *FeedbackFilter) ProcessSample(l, r float64) (float64, float64) {
	l = f.hpL.ProcessSample(f.lpL.ProcessSample(l))
	r = f.hpR.ProcessSample(f.lpR.ProcessSample(r))

	return l, r
}

// Reset clears all filter state.
func (f *FeedbackFilter) Reset() {
	f.lpL.Reset()
	f.lpR.Reset()
	f.hpL.Reset()
	f.hpR.Reset()
}

func (f *FeedbackFilter) redesignHiCut() {
	c := design.Lowpass(f.hiCutHz, design.ButterworthQ, f.sampleRate)
	f.lpL.SetCoefficients(c)
	f.lpR.SetCoefficients(c)
}

func (f *FeedbackFilter) redesignLoCut() {
	c := design.Highpass(f.loCutHz, design.ButterworthQ, f.sampleRate)
	f.hpL.SetCoefficients(c)
	f.hpR.SetCoefficients(c)
}

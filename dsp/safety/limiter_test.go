package safety

import (
	"math"
	"testing"
)

const testSampleRate = 44100.0

func newTestLimiter(t *testing.T, opts ...Option) *Limiter {
	t.Helper()

	l, err := NewLimiter(testSampleRate, opts...)
	if err != nil {
		t.Fatal(err)
	}

	return l
}

// runConstant feeds value into both channels for the given duration and
// returns the limiter.
func runConstant(l *Limiter, value float64, seconds float64) {
	n := int(seconds * testSampleRate)
	for i := 0; i < n; i++ {
		l.ProcessSample(value, value)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := NewLimiter(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewLimiter(testSampleRate, WithThreshold(0)); err == nil {
		t.Fatal("expected error for zero threshold")
	}
	if _, err := NewLimiter(testSampleRate, WithThreshold(1.5)); err == nil {
		t.Fatal("expected error for threshold above unity")
	}
	if _, err := NewLimiter(testSampleRate, WithSustainedThreshold(-0.1)); err == nil {
		t.Fatal("expected error for negative sustained threshold")
	}
}

func TestOutputAlwaysBoundedAndFinite(t *testing.T) {
	adversarial := [][2]float64{
		{math.NaN(), 0},
		{0, math.Inf(1)},
		{math.Inf(-1), math.Inf(1)},
		{100, 100},
		{-100, -100},
		{0.5, -0.5},
		{1e300, -1e300},
	}

	for _, in := range adversarial {
		l := newTestLimiter(t)
		for i := 0; i < 4096; i++ {
			ol, or := l.ProcessSample(in[0], in[1])
			if math.IsNaN(ol) || math.IsInf(ol, 0) || math.IsNaN(or) || math.IsInf(or, 0) {
				t.Fatalf("non-finite output for input %v", in)
			}
			if ol < -1 || ol > 1 || or < -1 || or > 1 {
				t.Fatalf("output out of range for input %v: %f / %f", in, ol, or)
			}
		}
	}
}

func TestZeroLengthBlockIsNoOp(t *testing.T) {
	l := newTestLimiter(t)
	l.ProcessBlock(nil, nil)
	l.ProcessBlock([]float64{}, []float64{})

	if l.Muted() {
		t.Fatal("empty block latched mute")
	}
}

func TestNaNLatchesMute(t *testing.T) {
	l := newTestLimiter(t)

	ol, or := l.ProcessSample(math.NaN(), 0)
	if ol != 0 || or != 0 {
		t.Fatalf("non-finite input not zeroed: %f / %f", ol, or)
	}
	if got := l.Reason(); got != MuteNaNInf {
		t.Fatalf("reason = %v, want NaNInf", got)
	}

	// Clean audio stays muted until unlock.
	ol, or = l.ProcessSample(0.1, 0.1)
	if ol != 0 || or != 0 {
		t.Fatal("muted limiter produced output")
	}
}

func TestSustainedPeakLatchesMute(t *testing.T) {
	l := newTestLimiter(t)

	// Constant 3.0 exceeds the 2.0 watchdog level; the 100 ms follower
	// plus the 100 ms hold must latch well within half a second.
	runConstant(l, 3.0, 0.5)

	if got := l.Reason(); got != MuteSustainedPeak {
		t.Fatalf("reason = %v, want SustainedPeak", got)
	}
}

func TestBriefPeakDoesNotLatch(t *testing.T) {
	l := newTestLimiter(t)

	// 20 ms burst above the watchdog level, then silence.
	runConstant(l, 3.0, 0.02)
	runConstant(l, 0.0, 0.5)

	if l.Muted() {
		t.Fatalf("brief peak latched mute: %v", l.Reason())
	}
}

func TestDCOffsetLatchesMute(t *testing.T) {
	l := newTestLimiter(t)

	// 0.6 DC sits above the 0.5 DC watchdog but below the 2.0 peak
	// watchdog, isolating the DC path.
	runConstant(l, 0.6, 2.5)

	if got := l.Reason(); got != MuteDCOffset {
		t.Fatalf("reason = %v, want DCOffset", got)
	}
}

func TestResetKeepsMuteLatch(t *testing.T) {
	l := newTestLimiter(t)
	runConstant(l, 3.0, 0.5)
	if !l.Muted() {
		t.Fatal("precondition: mute not latched")
	}

	l.Reset()

	if !l.Muted() {
		t.Fatal("Reset cleared the mute latch")
	}

	l.UnlockPermanentMute()

	if l.Muted() {
		t.Fatal("UnlockPermanentMute did not clear the latch")
	}

	ol, _ := l.ProcessSample(0.1, 0.1)
	if ol == 0 {
		t.Fatal("unlocked limiter still silent")
	}
}

func TestLimitsAboveThreshold(t *testing.T) {
	l := newTestLimiter(t)

	// A 1.5-amplitude mono tone stays below the sustained-peak watchdog
	// and averages out of the DC watchdog, but the fast limiter must pull
	// its peaks back under unity.
	step := 2 * math.Pi * 1000 / testSampleRate
	peak := 0.0
	n := int(0.5 * testSampleRate)
	for i := 0; i < n; i++ {
		x := 1.5 * math.Sin(step*float64(i))
		ol, _ := l.ProcessSample(x, x)
		if i > n/2 {
			if a := math.Abs(ol); a > peak {
				peak = a
			}
		}
	}

	if l.Muted() {
		t.Fatalf("unexpected mute: %v", l.Reason())
	}
	if peak > 1.0 {
		t.Fatalf("limited peak above ceiling: %f", peak)
	}
	if peak >= 1.4 {
		t.Fatalf("no gain reduction applied: peak %f", peak)
	}
}

func TestQuietSignalPassesNearlyUntouched(t *testing.T) {
	l := newTestLimiter(t)

	// A quiet 1 kHz tone is below every threshold; apart from the 10 Hz
	// DC blocker the chain should be transparent.
	step := 2 * math.Pi * 1000 / testSampleRate
	worst := 0.0
	for i := 0; i < 8192; i++ {
		x := 0.25 * math.Sin(step*float64(i))
		ol, _ := l.ProcessSample(x, x)
		if i > 4096 {
			if d := math.Abs(ol - x); d > worst {
				worst = d
			}
		}
	}

	if worst > 0.01 {
		t.Fatalf("quiet signal distorted by %f", worst)
	}
}

func TestSlewCap(t *testing.T) {
	l := newTestLimiter(t)

	// Alternating full-scale steps; consecutive outputs may differ by at
	// most the slew cap.
	prevL := 0.0
	for i := 0; i < 256; i++ {
		x := 1.0
		if i%2 == 1 {
			x = -1.0
		}
		ol, _ := l.ProcessSample(x, x)
		if d := math.Abs(ol - prevL); d > maxSlewPerSample+1e-12 {
			t.Fatalf("slew %f exceeds cap at sample %d", d, i)
		}
		prevL = ol
	}
}

func TestMuteReasonString(t *testing.T) {
	cases := map[MuteReason]string{
		MuteNone:          "None",
		MuteSustainedPeak: "SustainedPeak",
		MuteNaNInf:        "NaNInf",
		MuteDCOffset:      "DCOffset",
		MuteReason(99):    "Unknown",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", reason, got, want)
		}
	}
}

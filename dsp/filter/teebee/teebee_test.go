package teebee

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := New(48000, WithCutoffHz(-100)); err == nil {
		t.Fatal("expected error for negative cutoff")
	}

	if _, err := New(48000, WithResonance(1.5)); err == nil {
		t.Fatal("expected error for resonance out of range")
	}

	if _, err := New(48000, WithFeedbackHighpassHz(5000)); err == nil {
		t.Fatal("expected error for feedback highpass out of range")
	}
}

func TestSelfOscillationStaysBounded(t *testing.T) {
	sampleRates := []float64{44100, 48000}
	cutoffs := []float64{200, 500, 1000, 5000, 20000}

	for _, sr := range sampleRates {
		for _, cutoff := range cutoffs {
			f, err := New(sr,
				WithCutoffHz(cutoff),
				WithResonance(1),
			)
			if err != nil {
				t.Fatalf("New(sr=%g, cutoff=%g) error = %v", sr, cutoff, err)
			}

			// Kick the loop, then run silent input for ten seconds.
			f.ProcessSample(1)

			n := int(sr * 10)
			bound := 2 * (1 + 1) * stateLimit

			for i := range n {
				y := f.ProcessSample(0)
				if math.IsNaN(y) || math.IsInf(y, 0) {
					t.Fatalf("sr=%g cutoff=%g: non-finite output at %d", sr, cutoff, i)
				}

				if math.Abs(y) > bound {
					t.Fatalf("sr=%g cutoff=%g: unbounded output at %d: %g", sr, cutoff, i, y)
				}
			}
		}
	}
}

func TestNonResonantFourPoleBaseline(t *testing.T) {
	const (
		sr     = 48000.0
		cutoff = 1000.0
	)

	f, err := New(sr, WithCutoffHz(cutoff), WithResonance(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Passband: 100 Hz tone should pass within 4 dB of unity.
	passRMS := steadyToneRMS(f, sr, 100, 48000, 24000)
	inputRMS := 0.7 / math.Sqrt2

	passDB := 20 * math.Log10(passRMS/inputRMS)
	if math.Abs(passDB) > 4 {
		t.Fatalf("passband gain off baseline: %.2f dB", passDB)
	}

	// Stopband: successive octaves above cutoff keep falling, and three
	// octaves up sits at least 40 dB below the passband.
	freqs := []float64{2000, 4000, 8000}
	prev := passRMS

	for _, freq := range freqs {
		f.Reset()

		rms := steadyToneRMS(f, sr, freq, 48000, 24000)
		if rms >= prev {
			t.Fatalf("response not monotone: %.1f Hz rms %g >= %g", freq, rms, prev)
		}

		prev = rms
	}

	stopDB := 20 * math.Log10(prev/passRMS)
	if stopDB > -40 {
		t.Fatalf("stopband rejection too weak at 8 kHz: %.2f dB", stopDB)
	}
}

func TestCoefficientsDeterministic(t *testing.T) {
	f, err := New(44100, WithCutoffHz(880), WithResonance(0.7))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.SetCutoffHz(1234.5)

	b0a, ka, ga := f.Coefficients()
	b0b, kb, gb := f.Coefficients()

	if b0a != b0b || ka != kb || ga != gb {
		t.Fatal("coefficient reads after one change are not bit-identical")
	}

	// A rebuild with identical inputs must also reproduce the values.
	f.SetCutoffHz(1234.5)

	b0c, kc, gc := f.Coefficients()
	if b0a != b0c || ka != kc || ga != gc {
		t.Fatal("identical parameter set produced different coefficients")
	}
}

func TestStateRoundTrip(t *testing.T) {
	f, err := New(48000, WithCutoffHz(1500), WithResonance(0.8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 256 {
		_ = f.ProcessSample(math.Sin(2 * math.Pi * float64(i) / 29))
	}

	s := f.State()

	clone, err := New(48000, WithCutoffHz(1500), WithResonance(0.8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := clone.SetState(s); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	for i := range 256 {
		x := math.Sin(2*math.Pi*float64(i)/31) + 0.2*math.Sin(2*math.Pi*float64(i)/7)

		y1 := f.ProcessSample(x)

		y2 := clone.ProcessSample(x)
		if math.Abs(y1-y2) > 1e-12 {
			t.Fatalf("state mismatch at %d: %g vs %g", i, y1, y2)
		}
	}
}

func TestSetStateRejectsNonFinite(t *testing.T) {
	f, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	st := State{}
	st.Stage[2] = math.Inf(1)

	if err := f.SetState(st); err == nil {
		t.Fatal("expected error for non-finite state")
	}
}

func TestMutatorsClampInsteadOfFailing(t *testing.T) {
	f, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.SetCutoffHz(5)
	if f.CutoffHz() != MinCutoffHz {
		t.Fatalf("low cutoff not clamped: %g", f.CutoffHz())
	}

	f.SetCutoffHz(90000)
	if f.CutoffHz() > MaxCutoffHz {
		t.Fatalf("high cutoff not clamped: %g", f.CutoffHz())
	}

	f.SetCutoffHz(math.NaN())
	if !(f.CutoffHz() >= MinCutoffHz) {
		t.Fatalf("NaN cutoff not clamped: %g", f.CutoffHz())
	}

	f.SetResonance(3)
	if f.Resonance() != 1 {
		t.Fatalf("resonance not clamped: %g", f.Resonance())
	}

	f.SetResonance(-1)
	if f.Resonance() != 0 {
		t.Fatalf("negative resonance not clamped: %g", f.Resonance())
	}

	y := f.ProcessSample(math.NaN())
	if math.IsNaN(y) {
		t.Fatal("NaN input propagated to output")
	}
}

func TestSetSampleRateFallsBack(t *testing.T) {
	f, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.SetSampleRate(-1)

	if f.SampleRate() != 44100 {
		t.Fatalf("expected 44100 fallback, got %g", f.SampleRate())
	}
}

func TestHighResonanceRingsLonger(t *testing.T) {
	const (
		sr      = 48000.0
		cutoff  = 900.0
		samples = 8192
	)

	lowRes, err := New(sr, WithCutoffHz(cutoff), WithResonance(0.2))
	if err != nil {
		t.Fatalf("New(lowRes) error = %v", err)
	}

	highRes, err := New(sr, WithCutoffHz(cutoff), WithResonance(0.95))
	if err != nil {
		t.Fatalf("New(highRes) error = %v", err)
	}

	lowTail := impulseTailEnergy(lowRes, samples)

	highTail := impulseTailEnergy(highRes, samples)
	if highTail <= lowTail*4 {
		t.Fatalf("expected sustained tail at high resonance: low=%g high=%g", lowTail, highTail)
	}
}

func TestResonanceSkewEndpoints(t *testing.T) {
	if got := resonanceSkew(0); got != 0 {
		t.Fatalf("skew(0) = %g, want 0", got)
	}

	if got := resonanceSkew(1); math.Abs(got-1) > 1e-15 {
		t.Fatalf("skew(1) = %g, want 1", got)
	}

	// Midpoint sits above linear: the curve is steep early.
	if got := resonanceSkew(0.5); got <= 0.5 {
		t.Fatalf("skew(0.5) = %g, want > 0.5", got)
	}
}

func TestRapidModulationStaysFinite(t *testing.T) {
	f, err := New(48000, WithResonance(0.9))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 20000 {
		cutoff := 200 + 19000*(0.5+0.5*math.Sin(2*math.Pi*float64(i)/173))
		f.SetCutoffHz(cutoff)

		x := 0.8*math.Sin(2*math.Pi*float64(i)/37) + 0.1*math.Sin(2*math.Pi*float64(i)/5)

		y := f.ProcessSample(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
	}

	if f.NumericResets() != 0 {
		t.Fatalf("unexpected numeric resets: %d", f.NumericResets())
	}
}

func impulseTailEnergy(f *Filter, n int) float64 {
	var sum float64

	for i := range n {
		x := 0.0
		if i == 0 {
			x = 1
		}

		y := f.ProcessSample(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return math.Inf(1)
		}

		if i >= n/4 {
			sum += y * y
		}
	}

	return sum
}

func steadyToneRMS(f *Filter, sampleRate, freq float64, n, warmup int) float64 {
	var sum float64

	for i := range n {
		x := 0.7 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)

		y := f.ProcessSample(x)
		if i >= warmup {
			sum += y * y
		}
	}

	return math.Sqrt(sum / float64(n-warmup))
}

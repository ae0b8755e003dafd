package osc

import (
	"math"
	"testing"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := New(48000, WithVariant(Variant(99))); err == nil {
		t.Fatal("expected error for invalid variant")
	}

	if _, err := New(48000, WithBlend(1.5)); err == nil {
		t.Fatal("expected error for blend out of range")
	}

	if _, err := New(48000, WithFrequencyHz(-20)); err == nil {
		t.Fatal("expected error for negative frequency")
	}

	if _, err := New(48000, WithSquarePhaseShift(0.7)); err == nil {
		t.Fatal("expected error for square phase shift out of range")
	}
}

func TestPhaseStaysInUnitInterval(t *testing.T) {
	o, err := New(48000, WithFrequencyHz(3731))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 20000 {
		o.NextSample()

		if p := o.Phase(); p < 0 || p >= 1 {
			t.Fatalf("phase escaped [0,1) at %d: %g", i, p)
		}
	}
}

func TestResetPhase(t *testing.T) {
	o, err := New(48000, WithFrequencyHz(440))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for range 100 {
		o.NextSample()
	}

	o.ResetPhase()

	if o.Phase() != 0 {
		t.Fatalf("phase not reset: %g", o.Phase())
	}
}

func TestOutputBounded(t *testing.T) {
	variants := []Variant{VariantPolyBLEP, VariantWavetable}
	blends := []float64{0, 0.25, 0.5, 0.75, 1}

	for _, variant := range variants {
		for _, blend := range blends {
			o, err := New(48000,
				WithVariant(variant),
				WithFrequencyHz(932.3),
				WithBlend(blend),
			)
			if err != nil {
				t.Fatalf("New(%v, blend=%g) error = %v", variant, blend, err)
			}

			for i := range 48000 {
				y := o.NextSample()
				if y < -1 || y > 1 || math.IsNaN(y) {
					t.Fatalf("%v blend=%g: sample %d out of range: %g", variant, blend, i, y)
				}
			}
		}
	}
}

func TestFrequencyClampedToNyquist(t *testing.T) {
	o, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	o.SetFrequencyHz(90000)

	if o.FrequencyHz() >= 24000 {
		t.Fatalf("frequency not clamped below Nyquist: %g", o.FrequencyHz())
	}

	o.SetFrequencyHz(math.NaN())

	if !(o.FrequencyHz() > 0) {
		t.Fatalf("NaN frequency not clamped: %g", o.FrequencyHz())
	}
}

func TestAliasingFloor(t *testing.T) {
	const (
		sr = 48000.0
		n  = 8192
	)

	tests := []struct {
		name    string
		variant Variant
		floorDB float64
	}{
		{name: "polyblep", variant: VariantPolyBLEP, floorDB: -45},
		{name: "wavetable", variant: VariantWavetable, floorDB: -60},
	}

	// Fundamentals aligned to FFT bins so harmonic energy stays confined.
	bins := []int{19, 75, 151, 301}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, k0 := range bins {
				freq := float64(k0) * sr / n

				o, err := New(sr,
					WithVariant(tc.variant),
					WithFrequencyHz(freq),
				)
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}

				signal := make([]float64, n)
				for i := range signal {
					signal[i] = o.NextSample()
				}

				mag := windowedMagnitude(t, signal)

				fund := mag[k0]
				if fund <= 0 {
					t.Fatalf("k0=%d: no fundamental energy", k0)
				}

				worst := worstNonHarmonic(mag, k0)

				ratioDB := 20 * math.Log10(worst/fund)
				if ratioDB > tc.floorDB {
					t.Fatalf("k0=%d (%.1f Hz): alias floor %.1f dB above %.1f dB limit",
						k0, freq, ratioDB, tc.floorDB)
				}
			}
		})
	}
}

func TestAliasBelowNaiveSaw(t *testing.T) {
	const (
		sr = 48000.0
		n  = 8192
		k0 = 301
	)

	freq := float64(k0) * sr / n

	o, err := New(sr, WithVariant(VariantPolyBLEP), WithFrequencyHz(freq))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	blep := make([]float64, n)
	for i := range blep {
		blep[i] = o.NextSample()
	}

	naive := make([]float64, n)
	phase := 0.0
	inc := freq / sr

	for i := range naive {
		naive[i] = 2*phase - 1

		phase += inc
		if phase >= 1 {
			phase -= 1
		}
	}

	magBLEP := windowedMagnitude(t, blep)
	magNaive := windowedMagnitude(t, naive)

	worstBLEP := worstNonHarmonic(magBLEP, k0)
	worstNaive := worstNonHarmonic(magNaive, k0)

	if worstBLEP >= worstNaive*0.25 {
		t.Fatalf("expected >=12 dB alias reduction over naive saw: blep=%g naive=%g",
			worstBLEP, worstNaive)
	}
}

func TestSquareSuppressesEvenHarmonics(t *testing.T) {
	const (
		sr = 48000.0
		n  = 8192
		k0 = 75
	)

	for _, variant := range []Variant{VariantPolyBLEP, VariantWavetable} {
		o, err := New(sr,
			WithVariant(variant),
			WithFrequencyHz(float64(k0)*sr/n),
			WithBlend(1),
		)
		if err != nil {
			t.Fatalf("New(%v) error = %v", variant, err)
		}

		signal := make([]float64, n)
		for i := range signal {
			signal[i] = o.NextSample()
		}

		mag := windowedMagnitude(t, signal)

		odd := mag[k0]

		even := mag[2*k0]
		if even >= odd*0.03 {
			t.Fatalf("%v: even harmonic not suppressed: h1=%g h2=%g", variant, odd, even)
		}
	}
}

func TestWrapSampleIsCorrected(t *testing.T) {
	o, err := New(48000, WithVariant(VariantPolyBLEP), WithFrequencyHz(440))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	prev := o.NextSample()

	maxDrop := 0.0
	for range 4800 {
		y := o.NextSample()

		if d := prev - y; d > maxDrop {
			maxDrop = d
		}

		prev = y
	}

	// A naive saw drops the full 2.0 peak-to-peak span in one sample; the
	// corrected wrap splits the step across the two wrap-adjacent samples.
	if maxDrop > 1.6 {
		t.Fatalf("wrap discontinuity not corrected: max single-sample drop %g", maxDrop)
	}
}

func TestWavetableLevelSelection(t *testing.T) {
	tables := sharedSawTables()

	for level := 1; level < tableLevels; level++ {
		if tables.maxIncrement[level] < tables.maxIncrement[level-1] {
			t.Fatalf("level %d serves a smaller increment than level %d", level, level-1)
		}
	}

	if got := tables.levelFor(1.0 / tableSize); got != 0 {
		t.Fatalf("tiny increment should use level 0, got %d", got)
	}

	if got := tables.levelFor(0.49); got != tableLevels-1 {
		t.Fatalf("near-Nyquist increment should use top level, got %d", got)
	}
}

func windowedMagnitude(t *testing.T, signal []float64) []float64 {
	t.Helper()

	n := len(signal)
	coeffs := window.Generate(window.TypeBlackmanHarris4Term, n)

	in := make([]complex128, n)
	for i := range signal {
		in[i] = complex(signal[i]*coeffs[i], 0)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		t.Fatalf("NewPlan64(%d) error = %v", n, err)
	}

	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	return spectrum.Magnitude(out[: n/2+1])
}

// worstNonHarmonic returns the largest magnitude outside guard bands around
// DC, Nyquist, and every harmonic of bin k0.
func worstNonHarmonic(mag []float64, k0 int) float64 {
	const guard = 8

	worst := 0.0

	for k := guard; k < len(mag)-guard; k++ {
		nearest := (k + k0/2) / k0 * k0
		if d := k - nearest; d >= -guard && d <= guard {
			continue
		}

		if mag[k] > worst {
			worst = mag[k]
		}
	}

	return worst
}

package osc

import (
	"fmt"
	"math"
)

const (
	defaultFrequencyHz = 440.0
	defaultBlend       = 0.0

	minFrequencyHz = 0.01

	tableSize     = 4096
	tableLevels   = 10
	baseHarmonics = 512
)

// Variant selects the band-limiting strategy, fixed at construction so the
// per-sample path stays branch-free.
type Variant int

const (
	// VariantPolyBLEP applies polynomial band-limited step correction at
	// each waveform discontinuity.
	VariantPolyBLEP Variant = iota
	// VariantWavetable reads mip-mapped additive tables selected by phase
	// increment. Cheaper per sample, with a small table-interpolation
	// noise floor.
	VariantWavetable
)

func (v Variant) String() string {
	switch v {
	case VariantPolyBLEP:
		return "polyblep"
	case VariantWavetable:
		return "wavetable"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	variant          Variant
	frequencyHz      float64
	blend            float64
	squarePhaseShift float64
}

func defaultConfig() config {
	return config{
		variant:     VariantPolyBLEP,
		frequencyHz: defaultFrequencyHz,
		blend:       defaultBlend,
	}
}

// WithVariant selects the band-limiting strategy.
func WithVariant(variant Variant) Option {
	return func(cfg *config) error {
		if variant != VariantPolyBLEP && variant != VariantWavetable {
			return fmt.Errorf("osc: invalid variant: %d", variant)
		}

		cfg.variant = variant

		return nil
	}
}

// WithFrequencyHz sets the initial frequency. Must be finite and > 0.
func WithFrequencyHz(frequencyHz float64) Option {
	return func(cfg *config) error {
		if !isFinite(frequencyHz) || frequencyHz < minFrequencyHz {
			return fmt.Errorf("osc: frequency must be finite and >= %g: %f", minFrequencyHz, frequencyHz)
		}

		cfg.frequencyHz = frequencyHz

		return nil
	}
}

// WithBlend sets the saw/square blend in [0, 1] (0 = saw, 1 = square).
func WithBlend(blend float64) Option {
	return func(cfg *config) error {
		if !isFinite(blend) || blend < 0 || blend > 1 {
			return fmt.Errorf("osc: blend must be in [0, 1]: %f", blend)
		}

		cfg.blend = blend

		return nil
	}
}

// WithSquarePhaseShift offsets the square component against the saw by a
// fraction of the period in [-0.5, 0.5].
func WithSquarePhaseShift(shift float64) Option {
	return func(cfg *config) error {
		if !isFinite(shift) || shift < -0.5 || shift > 0.5 {
			return fmt.Errorf("osc: square phase shift must be in [-0.5, 0.5]: %f", shift)
		}

		cfg.squarePhaseShift = shift

		return nil
	}
}

// Oscillator is a band-limited saw/square-blend waveform generator.
// Phase lives in [0, 1) and advances by frequency/sampleRate per sample.
type Oscillator struct {
	sampleRate       float64
	variant          Variant
	frequencyHz      float64
	increment        float64
	blend            float64
	squarePhaseShift float64

	phase float64

	// next holds the variant-specific sample function, resolved once at
	// construction.
	next func() float64

	tables *sawTables
}

// New constructs a band-limited oscillator.
func New(sampleRate float64, opts ...Option) (*Oscillator, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("osc: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	o := &Oscillator{
		sampleRate:       sampleRate,
		variant:          cfg.variant,
		blend:            cfg.blend,
		squarePhaseShift: cfg.squarePhaseShift,
	}

	switch cfg.variant {
	case VariantPolyBLEP:
		o.next = o.nextPolyBLEP
	case VariantWavetable:
		o.tables = sharedSawTables()
		o.next = o.nextWavetable
	}

	o.SetFrequencyHz(cfg.frequencyHz)

	return o, nil
}

// SampleRate returns the sample rate in Hz.
func (o *Oscillator) SampleRate() float64 { return o.sampleRate }

// Variant returns the band-limiting strategy.
func (o *Oscillator) Variant() Variant { return o.variant }

// FrequencyHz returns the effective (clamped) frequency.
func (o *Oscillator) FrequencyHz() float64 { return o.frequencyHz }

// Blend returns the saw/square blend.
func (o *Oscillator) Blend() float64 { return o.blend }

// Phase returns the current phase in [0, 1).
func (o *Oscillator) Phase() float64 { return o.phase }

// SetSampleRate updates the sample rate and re-derives the phase increment.
// Non-positive or non-finite rates fall back to 44100 Hz.
func (o *Oscillator) SetSampleRate(sampleRate float64) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		sampleRate = 44100
	}

	o.sampleRate = sampleRate
	o.SetFrequencyHz(o.frequencyHz)
}

// SetFrequencyHz retunes the oscillator. The value is clamped to
// [minFrequencyHz, Nyquist); this runs on the modulation path and must
// not fail.
func (o *Oscillator) SetFrequencyHz(frequencyHz float64) {
	nyquist := o.sampleRate * 0.5
	if !isFinite(frequencyHz) || frequencyHz < minFrequencyHz {
		frequencyHz = minFrequencyHz
	}

	if frequencyHz >= nyquist {
		frequencyHz = nyquist * 0.999
	}

	o.frequencyHz = frequencyHz
	o.increment = frequencyHz / o.sampleRate
}

// SetBlend updates the saw/square blend, clamped to [0, 1].
func (o *Oscillator) SetBlend(blend float64) {
	if !isFinite(blend) || blend < 0 {
		blend = 0
	}

	if blend > 1 {
		blend = 1
	}

	o.blend = blend
}

// SetSquarePhaseShift updates the square component's offset against the
// saw, clamped to [-0.5, 0.5].
func (o *Oscillator) SetSquarePhaseShift(shift float64) {
	if !isFinite(shift) {
		shift = 0
	}

	if shift < -0.5 {
		shift = -0.5
	}

	if shift > 0.5 {
		shift = 0.5
	}

	o.squarePhaseShift = shift
}

// SquarePhaseShift returns the square component's phase offset.
func (o *Oscillator) SquarePhaseShift() float64 { return o.squarePhaseShift }

// ResetPhase restarts the waveform at phase 0.
func (o *Oscillator) ResetPhase() { o.phase = 0 }

// NextSample produces one output sample in [-1, 1] and advances the phase.
func (o *Oscillator) NextSample() float64 {
	y := o.next()

	o.phase += o.increment
	if o.phase >= 1 {
		o.phase -= 1
	}

	return clampUnit(y)
}

// nextPolyBLEP renders saw and square with polynomial step correction.
// Corrections cover both sides of each discontinuity, so the wrap sample
// itself is corrected rather than the one after it.
func (o *Oscillator) nextPolyBLEP() float64 {
	t := o.phase
	dt := o.increment

	saw := 2*t - 1 - polyBLEP(t, dt)

	var square float64
	if o.blend > 0 {
		ts := t + 0.5 + o.squarePhaseShift
		ts -= math.Floor(ts)

		if ts < 0.5 {
			square = 1
		} else {
			square = -1
		}

		tFall := ts + 0.5
		tFall -= math.Floor(tFall)

		square += polyBLEP(ts, dt)
		square -= polyBLEP(tFall, dt)
	}

	return (1-o.blend)*saw + o.blend*square
}

// nextWavetable reads the mip level matching the current increment. The
// square is the difference of two half-period-offset saws, which keeps a
// single table set for both blend extremes.
func (o *Oscillator) nextWavetable() float64 {
	level := o.tables.levelFor(o.increment)

	saw := o.tables.read(level, o.phase)

	var square float64
	if o.blend > 0 {
		ts := o.phase + 0.5 + o.squarePhaseShift
		ts -= math.Floor(ts)
		square = saw - o.tables.read(level, ts)
	}

	return (1-o.blend)*saw + o.blend*square
}

// polyBLEP is the 2-point polynomial band-limited step residual for a unit
// downward step at phase 0, with t in [0, 1) and dt the phase increment.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}

	if t < dt {
		u := t / dt
		return u + u - u*u - 1
	}

	if t > 1-dt {
		u := (t - 1) / dt
		return u*u + u + u + 1
	}

	return 0
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}

	if x < -1 {
		return -1
	}

	return x
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

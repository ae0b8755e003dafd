package teebee

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-acid/dsp/onepole"
)

const (
	defaultCutoffHz           = 1000.0
	defaultResonance          = 0.5
	defaultFeedbackHighpassHz = 150.0

	// MinCutoffHz and MaxCutoffHz bound the cutoff before coefficient
	// computation; values outside are clamped, never rejected.
	MinCutoffHz = 200.0
	MaxCutoffHz = 20000.0

	minFeedbackHighpassHz = 10.0
	maxFeedbackHighpassHz = 1000.0

	stateLimit = 8.0

	// resonanceSkewRate shapes the perceptual resonance curve
	// r' = (1-exp(-rate*r)) / (1-exp(-rate)).
	resonanceSkewRate = 3.0
)

// Fitted coefficient tables for the diode-ladder response. The b0 gain is a
// rational polynomial in fx and k is a degree-6 polynomial giving the
// feedback amount at the self-oscillation edge; both are empirical fits,
// not analytic derivations.
var (
	b0FitNum = [2]float64{0.00045522346, 6.1922189}
	b0FitDen = [3]float64{1.0, 12.358354, 4.4156345}

	kFit = [7]float64{
		3.9923823,
		0.8439316,
		-0.6505751,
		3.0287094,
		-9.3204281,
		14.724427,
		-9.2107229,
	}
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	cutoffHz           float64
	resonance          float64
	feedbackHighpassHz float64
}

func defaultConfig() config {
	return config{
		cutoffHz:           defaultCutoffHz,
		resonance:          defaultResonance,
		feedbackHighpassHz: defaultFeedbackHighpassHz,
	}
}

// WithCutoffHz sets the initial cutoff in Hz. Must be finite and > 0.
func WithCutoffHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		if !isFinite(cutoffHz) || cutoffHz <= 0 {
			return fmt.Errorf("teebee: cutoff must be finite and > 0: %f", cutoffHz)
		}

		cfg.cutoffHz = cutoffHz

		return nil
	}
}

// WithResonance sets the initial resonance in [0, 1].
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		if !isFinite(resonance) || resonance < 0 || resonance > 1 {
			return fmt.Errorf("teebee: resonance must be in [0, 1]: %f", resonance)
		}

		cfg.resonance = resonance

		return nil
	}
}

// WithFeedbackHighpassHz tunes the fixed highpass in the feedback path.
// This shapes the self-oscillation character and rarely needs changing.
func WithFeedbackHighpassHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		if !isFinite(cutoffHz) || cutoffHz < minFeedbackHighpassHz || cutoffHz > maxFeedbackHighpassHz {
			return fmt.Errorf("teebee: feedback highpass must be in [%g, %g]: %f",
				minFeedbackHighpassHz, maxFeedbackHighpassHz, cutoffHz)
		}

		cfg.feedbackHighpassHz = cutoffHz

		return nil
	}
}

// State holds the ladder runtime state for save/restore workflows.
type State struct {
	Stage      [4]float64
	FeedbackHP float64
}

// Filter is a 4-stage resonant diode-ladder lowpass with a fixed one-pole
// highpass in the global feedback path. The highpass-in-feedback topology
// keeps DC out of the resonance loop and defines the self-oscillation
// character; it must stay in the loop even at zero resonance.
//
// All mutators clamp instead of returning errors, so the filter can be
// retuned from a per-sample modulation path.
type Filter struct {
	sampleRate         float64
	cutoffHz           float64
	resonance          float64
	feedbackHighpassHz float64

	b0 float64
	k  float64
	g  float64

	y1, y2, y3, y4 float64
	feedbackHP     onepole.Highpass

	numericResets uint64
}

// New constructs a ladder filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("teebee: sample rate must be > 0 and finite: %f", sampleRate)
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

	f := &Filter{
		sampleRate:         sampleRate,
		cutoffHz:           cfg.cutoffHz,
		resonance:          cfg.resonance,
		feedbackHighpassHz: cfg.feedbackHighpassHz,
		feedbackHP:         *onepole.NewHighpass(cfg.feedbackHighpassHz, sampleRate),
	}
	f.rebuild()

	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// CutoffHz returns the effective (clamped) cutoff in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Resonance returns the resonance in [0, 1].
func (f *Filter) Resonance() float64 { return f.resonance }

// FeedbackHighpassHz returns the feedback highpass cutoff.
func (f *Filter) FeedbackHighpassHz() float64 { return f.feedbackHighpassHz }

// Coefficients returns the derived ladder gain, feedback factor, and output
// compensation. Values are deterministic for a given parameter set.
func (f *Filter) Coefficients() (b0, k, g float64) {
	return f.b0, f.k, f.g
}

// NumericResets reports how many times non-finite state was detected and
// zeroed since construction.
func (f *Filter) NumericResets() uint64 { return f.numericResets }

// SetSampleRate updates the sample rate and rebuilds all coefficients.
// Non-positive or non-finite rates fall back to 44100 Hz.
func (f *Filter) SetSampleRate(sampleRate float64) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		sampleRate = 44100
	}

	f.sampleRate = sampleRate
	f.feedbackHP.SetSampleRate(sampleRate)
	f.rebuild()
}

// SetCutoffHz retunes the cutoff, clamped to [MinCutoffHz, MaxCutoffHz] and
// below Nyquist. Safe to call per sample.
func (f *Filter) SetCutoffHz(cutoffHz float64) {
	f.cutoffHz = clampCutoff(cutoffHz, f.sampleRate)
	f.rebuild()
}

// SetResonance updates the resonance, clamped to [0, 1].
func (f *Filter) SetResonance(resonance float64) {
	if !isFinite(resonance) || resonance < 0 {
		resonance = 0
	}

	if resonance > 1 {
		resonance = 1
	}

	f.resonance = resonance
	f.rebuild()
}

// SetFeedbackHighpassHz retunes the feedback highpass, clamped to its
// permitted range.
func (f *Filter) SetFeedbackHighpassHz(cutoffHz float64) {
	if !isFinite(cutoffHz) || cutoffHz < minFeedbackHighpassHz {
		cutoffHz = minFeedbackHighpassHz
	}

	if cutoffHz > maxFeedbackHighpassHz {
		cutoffHz = maxFeedbackHighpassHz
	}

	f.feedbackHighpassHz = cutoffHz
	f.feedbackHP.SetCutoffHz(cutoffHz)
}

// Reset zeroes all ladder and feedback-highpass memory.
func (f *Filter) Reset() {
	f.y1, f.y2, f.y3, f.y4 = 0, 0, 0, 0
	f.feedbackHP.Reset()
}

// State returns a copy of the current filter state.
func (f *Filter) State() State {
	return State{
		Stage:      [4]float64{f.y1, f.y2, f.y3, f.y4},
		FeedbackHP: f.feedbackHP.State(),
	}
}

// SetState restores an externally saved filter state.
func (f *Filter) SetState(state State) error {
	for _, v := range state.Stage {
		if !isFinite(v) {
			return fmt.Errorf("teebee: state contains NaN or Inf")
		}
	}

	if !isFinite(state.FeedbackHP) {
		return fmt.Errorf("teebee: state contains NaN or Inf")
	}

	f.y1, f.y2, f.y3, f.y4 = state.Stage[0], state.Stage[1], state.Stage[2], state.Stage[3]
	f.feedbackHP.SetStateValue(state.FeedbackHP)

	return nil
}

// ProcessSample filters one sample. Non-finite input is treated as silence;
// non-finite state is zeroed and counted rather than propagated.
func (f *Filter) ProcessSample(input float64) float64 {
	if !isFinite(input) {
		input = 0
	}

	y0 := input - f.feedbackHP.ProcessSample(f.k*f.y4)

	f.y1 = clipState(f.y1 + 2*f.b0*(y0-f.y1+f.y2))
	f.y2 = clipState(f.y2 + f.b0*(f.y1-2*f.y2+f.y3))
	f.y3 = clipState(f.y3 + f.b0*(f.y2-2*f.y3+f.y4))
	f.y4 = clipState(f.y4 + f.b0*(f.y3-2*f.y4))

	out := 2 * f.g * f.y4
	if !isFinite(out) {
		f.Reset()
		f.numericResets++

		return 0
	}

	return out
}

// ProcessInPlace filters a mono buffer in place.
func (f *Filter) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// rebuild recomputes b0, k, and g from cutoff and resonance. The fitted
// tables are evaluated in fx = cutoff/(sampleRate*sqrt(2))/(2*pi) scaled
// back to the normalized radian measure used by the fit.
func (f *Filter) rebuild() {
	f.cutoffHz = clampCutoff(f.cutoffHz, f.sampleRate)

	wc := 2 * math.Pi * f.cutoffHz / f.sampleRate
	fx := wc * (1 / math.Sqrt2) / (2 * math.Pi)

	f.b0 = (b0FitNum[0] + b0FitNum[1]*fx) /
		(b0FitDen[0] + b0FitDen[1]*fx + b0FitDen[2]*fx*fx)

	kEdge := kFit[0] + fx*(kFit[1]+fx*(kFit[2]+fx*(kFit[3]+fx*(kFit[4]+fx*(kFit[5]+fx*kFit[6])))))
	if kEdge < 0 {
		kEdge = 0
	}

	skewed := resonanceSkew(f.resonance)
	f.k = kEdge * skewed

	// Raising k thins the passband; scale the output up with the skewed
	// resonance so perceived loudness stays roughly constant.
	f.g = 0.5 * (1 + skewed)
}

func resonanceSkew(r float64) float64 {
	return (1 - math.Exp(-resonanceSkewRate*r)) / (1 - math.Exp(-resonanceSkewRate))
}

func clampCutoff(cutoffHz, sampleRate float64) float64 {
	if !isFinite(cutoffHz) || cutoffHz < MinCutoffHz {
		return MinCutoffHz
	}

	limit := MaxCutoffHz
	if nyquistGuard := sampleRate * 0.49; nyquistGuard < limit {
		limit = nyquistGuard
	}

	if cutoffHz > limit {
		return limit
	}

	return cutoffHz
}

func clipState(value float64) float64 {
	if value > stateLimit {
		return stateLimit
	}

	if value < -stateLimit {
		return -stateLimit
	}

	return value
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

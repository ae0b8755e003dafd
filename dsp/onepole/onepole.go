// Package onepole provides first-order recursive building blocks: lowpass and
// highpass smoothers, a portamento slew, and a leaky integrator for envelope
// shaping. All processors clamp their inputs to usable ranges instead of
// returning errors, so they are safe to retune from a modulation path.
package onepole

import "math"

const (
	minCutoffHz    = 0.01
	minSlewSeconds = 1e-4
	minTauSeconds  = 1e-5
)

// Lowpass is a one-pole lowpass smoother:
//
//	y[n] = x[n] + c*(y[n-1] - x[n]),  c = exp(-2*pi*fc/sr)
type Lowpass struct {
	sampleRate float64
	cutoffHz   float64
	coeff      float64
	state      float64
}

// NewLowpass returns a lowpass at cutoffHz. Cutoff is clamped to
// (0, Nyquist); a non-positive sample rate falls back to 44100 Hz.
func NewLowpass(cutoffHz, sampleRate float64) *Lowpass {
	f := &Lowpass{}
	f.SetSampleRate(sampleRate)
	f.SetCutoffHz(cutoffHz)

	return f
}

// SetSampleRate updates the sample rate and recomputes the coefficient.
func (f *Lowpass) SetSampleRate(sampleRate float64) {
	f.sampleRate = sanitizeSampleRate(sampleRate)
	f.SetCutoffHz(f.cutoffHz)
}

// SetCutoffHz updates the cutoff, clamped to (0, Nyquist).
func (f *Lowpass) SetCutoffHz(cutoffHz float64) {
	f.cutoffHz = clampCutoff(cutoffHz, f.sampleRate)
	f.coeff = math.Exp(-2 * math.Pi * f.cutoffHz / f.sampleRate)
}

// CutoffHz returns the effective (clamped) cutoff.
func (f *Lowpass) CutoffHz() float64 { return f.cutoffHz }

// Coeff returns the recursion coefficient.
func (f *Lowpass) Coeff() float64 { return f.coeff }

// ProcessSample filters one sample.
func (f *Lowpass) ProcessSample(x float64) float64 {
	f.state = x + f.coeff*(f.state-x)
	return f.state
}

// Reset clears the filter memory.
func (f *Lowpass) Reset() { f.state = 0 }

// State returns the filter memory.
func (f *Lowpass) State() float64 { return f.state }

// SetStateValue restores externally saved filter memory. Non-finite values
// are discarded and the memory is zeroed.
func (f *Lowpass) SetStateValue(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}

	f.state = v
}

// Highpass is the complementary one-pole highpass: y = x - lowpass(x).
type Highpass struct {
	lp Lowpass
}

// NewHighpass returns a highpass at cutoffHz with the same clamping rules
// as NewLowpass.
func NewHighpass(cutoffHz, sampleRate float64) *Highpass {
	return &Highpass{lp: *NewLowpass(cutoffHz, sampleRate)}
}

// SetSampleRate updates the sample rate and recomputes the coefficient.
func (f *Highpass) SetSampleRate(sampleRate float64) { f.lp.SetSampleRate(sampleRate) }

// SetCutoffHz updates the cutoff, clamped to (0, Nyquist).
func (f *Highpass) SetCutoffHz(cutoffHz float64) { f.lp.SetCutoffHz(cutoffHz) }

// CutoffHz returns the effective (clamped) cutoff.
func (f *Highpass) CutoffHz() float64 { return f.lp.CutoffHz() }

// ProcessSample filters one sample.
func (f *Highpass) ProcessSample(x float64) float64 {
	return x - f.lp.ProcessSample(x)
}

// Reset clears the filter memory.
func (f *Highpass) Reset() { f.lp.Reset() }

// State returns the underlying lowpass memory.
func (f *Highpass) State() float64 { return f.lp.State() }

// SetStateValue restores externally saved filter memory.
func (f *Highpass) SetStateValue(v float64) { f.lp.SetStateValue(v) }

// Slew glides a value toward a target with a one-pole trajectory:
//
//	y[n] = target + c*(y[n-1] - target),  c = exp(-1/(sr*seconds))
//
// Snap forces an instantaneous jump; SetTarget leaves the current value
// gliding from wherever it is.
type Slew struct {
	sampleRate float64
	seconds    float64
	coeff      float64
	current    float64
	target     float64
}

// NewSlew returns a slew with the given glide time in seconds.
func NewSlew(seconds, sampleRate float64) *Slew {
	s := &Slew{}
	s.sampleRate = sanitizeSampleRate(sampleRate)
	s.SetTime(seconds)

	return s
}

// SetSampleRate updates the sample rate and recomputes the coefficient.
func (s *Slew) SetSampleRate(sampleRate float64) {
	s.sampleRate = sanitizeSampleRate(sampleRate)
	s.SetTime(s.seconds)
}

// SetTime updates the glide time, clamped to at least 0.1 ms.
func (s *Slew) SetTime(seconds float64) {
	if math.IsNaN(seconds) || seconds < minSlewSeconds {
		seconds = minSlewSeconds
	}

	s.seconds = seconds
	s.coeff = math.Exp(-1 / (s.sampleRate * seconds))
}

// SetTarget changes only the destination; the current value keeps gliding.
func (s *Slew) SetTarget(v float64) { s.target = v }

// Snap jumps current and target to v immediately.
func (s *Slew) Snap(v float64) {
	s.current = v
	s.target = v
}

// NextValue advances one sample and returns the new current value.
func (s *Slew) NextValue() float64 {
	s.current = s.target + s.coeff*(s.current-s.target)
	return s.current
}

// Value returns the current value without advancing.
func (s *Slew) Value() float64 { return s.current }

// Target returns the destination value.
func (s *Slew) Target() float64 { return s.target }

// Time returns the effective glide time in seconds.
func (s *Slew) Time() float64 { return s.seconds }

// LeakyIntegrator shapes an instantaneous envelope value into a slower
// modulation signal:
//
//	y[n] = y[n-1] + a*(x[n] - y[n-1]),  a = 1 - exp(-1/(sr*tau))
type LeakyIntegrator struct {
	sampleRate float64
	tau        float64
	alpha      float64
	state      float64
}

// NewLeakyIntegrator returns an integrator with time constant tau seconds.
func NewLeakyIntegrator(tau, sampleRate float64) *LeakyIntegrator {
	li := &LeakyIntegrator{}
	li.sampleRate = sanitizeSampleRate(sampleRate)
	li.SetTimeConstant(tau)

	return li
}

// SetSampleRate updates the sample rate and recomputes the coefficient.
func (li *LeakyIntegrator) SetSampleRate(sampleRate float64) {
	li.sampleRate = sanitizeSampleRate(sampleRate)
	li.SetTimeConstant(li.tau)
}

// SetTimeConstant updates tau, clamped to at least 10 microseconds.
func (li *LeakyIntegrator) SetTimeConstant(tau float64) {
	if math.IsNaN(tau) || tau < minTauSeconds {
		tau = minTauSeconds
	}

	li.tau = tau
	li.alpha = 1 - math.Exp(-1/(li.sampleRate*tau))
}

// ProcessSample integrates one sample.
func (li *LeakyIntegrator) ProcessSample(x float64) float64 {
	li.state += li.alpha * (x - li.state)
	return li.state
}

// Reset clears the integrator memory.
func (li *LeakyIntegrator) Reset() { li.state = 0 }

// Value returns the integrator memory without advancing.
func (li *LeakyIntegrator) Value() float64 { return li.state }

func sanitizeSampleRate(sampleRate float64) float64 {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return 44100
	}

	return sampleRate
}

func clampCutoff(cutoffHz, sampleRate float64) float64 {
	nyquist := sampleRate * 0.5
	if math.IsNaN(cutoffHz) || cutoffHz < minCutoffHz {
		return minCutoffHz
	}

	if cutoffHz >= nyquist {
		return nyquist * 0.999
	}

	return cutoffHz
}

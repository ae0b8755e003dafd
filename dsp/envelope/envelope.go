package envelope

import "math"

const (
	minDecaySeconds = 0.001
	maxDecaySeconds = 30.0

	// valueFloor pins decayed-out envelopes to exact zero so they cannot
	// linger as denormals in the hot loop.
	valueFloor = 1e-12
)

// Decay is an exponential decay generator:
//
//	v[n] = v[n-1] * coeff,  coeff = exp(-1/(sr*seconds))
//
// Trigger jumps the value to a peak; there is no attack segment. The value
// approaches zero without crossing it until it falls below an internal
// floor.
type Decay struct {
	sampleRate float64
	seconds    float64
	coeff      float64
	value      float64
}

// NewDecay returns a decay generator with the given time constant.
func NewDecay(seconds, sampleRate float64) *Decay {
	d := &Decay{}
	d.sampleRate = sanitizeSampleRate(sampleRate)
	d.SetDecaySeconds(seconds)

	return d
}

// SetSampleRate updates the sample rate and recomputes the decay
// coefficient. The current value is preserved.
func (d *Decay) SetSampleRate(sampleRate float64) {
	d.sampleRate = sanitizeSampleRate(sampleRate)
	d.SetDecaySeconds(d.seconds)
}

// SetDecaySeconds updates the decay time, clamped to [1 ms, 30 s].
func (d *Decay) SetDecaySeconds(seconds float64) {
	if math.IsNaN(seconds) || seconds < minDecaySeconds {
		seconds = minDecaySeconds
	}

	if seconds > maxDecaySeconds {
		seconds = maxDecaySeconds
	}

	d.seconds = seconds
	d.coeff = math.Exp(-1 / (d.sampleRate * seconds))
}

// DecaySeconds returns the effective (clamped) decay time.
func (d *Decay) DecaySeconds() float64 { return d.seconds }

// Coeff returns the per-sample decay multiplier.
func (d *Decay) Coeff() float64 { return d.coeff }

// Trigger jumps the envelope to peak.
func (d *Decay) Trigger(peak float64) {
	if math.IsNaN(peak) || math.IsInf(peak, 0) {
		peak = 0
	}

	d.value = peak
}

// NextValue decays one sample and returns the new value.
func (d *Decay) NextValue() float64 {
	d.value *= d.coeff
	if d.value < valueFloor && d.value > -valueFloor {
		d.value = 0
	}

	return d.value
}

// Value returns the current value without advancing.
func (d *Decay) Value() float64 { return d.value }

// Reset zeroes the envelope.
func (d *Decay) Reset() { d.value = 0 }

func sanitizeSampleRate(sampleRate float64) float64 {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return 44100
	}

	return sampleRate
}

package voice

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

// Fixed shaping frequencies modeled on the analog unit's passive networks.
// The pre-filter highpass trims sub-bass before the ladder, the post chain
// rounds off the residual corner resonance.
const (
	preHighpassHz    = 44.486
	postHighpassHz   = 24.167
	shapingAllpassHz = 14008.0
	shapingNotchHz   = 7516.4
	shapingNotchQ    = 4.0
	shapingQ         = 0.7071067811865476

	decimatorOrder      = 6
	decimatorRippleDB   = 0.1
	decimatorStopbandDB = 60
)

// conditioner holds the fixed pre/post shaping stages and, for the
// oversampled fidelity, the elliptic decimation cascade. All coefficients
// are computed at construction or sample-rate changes; the per-sample path
// is branch-free biquad work.
type conditioner struct {
	pre     *biquad.Section
	post    *biquad.Section
	allpass *biquad.Section
	notch   *biquad.Section
	decim   []*biquad.Section
}

// newConditioner builds the shaping chain at internalRate. When factor > 1
// a decimation lowpass is added with its corner just below the output
// Nyquist so every factor-th sample can be kept alias-free.
func newConditioner(internalRate float64, factor int) *conditioner {
	c := &conditioner{
		pre:     biquad.NewSection(design.Highpass(preHighpassHz, shapingQ, internalRate)),
		post:    biquad.NewSection(design.Highpass(postHighpassHz, shapingQ, internalRate)),
		allpass: biquad.NewSection(design.Allpass(clampShapingFreq(shapingAllpassHz, internalRate), shapingQ, internalRate)),
		notch:   biquad.NewSection(design.Notch(clampShapingFreq(shapingNotchHz, internalRate), shapingNotchQ, internalRate)),
	}

	if factor > 1 {
		outputRate := internalRate / float64(factor)
		corner := 0.45 * outputRate

		for _, coeffs := range pass.EllipticLP(corner, decimatorOrder, decimatorRippleDB, decimatorStopbandDB, internalRate) {
			c.decim = append(c.decim, biquad.NewSection(coeffs))
		}
	}

	return c
}

// preShape runs ahead of the ladder filter.
func (c *conditioner) preShape(x float64) float64 {
	return c.pre.ProcessSample(x)
}

// postShape runs after the ladder filter and, when present, through the
// decimation cascade. The caller keeps only every factor-th result.
func (c *conditioner) postShape(x float64) float64 {
	x = c.post.ProcessSample(x)
	x = c.allpass.ProcessSample(x)
	x = c.notch.ProcessSample(x)

	for _, s := range c.decim {
		x = s.ProcessSample(x)
	}

	return x
}

// reset zeroes all section memory.
func (c *conditioner) reset() {
	c.pre.Reset()
	c.post.Reset()
	c.allpass.Reset()
	c.notch.Reset()

	for _, s := range c.decim {
		s.Reset()
	}
}

// clampShapingFreq keeps a fixed design frequency strictly below Nyquist
// so low internal rates still produce a stable section.
func clampShapingFreq(freq, sampleRate float64) float64 {
	limit := 0.49 * sampleRate
	if freq > limit {
		return limit
	}

	return freq
}

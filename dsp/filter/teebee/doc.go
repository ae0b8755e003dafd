// Package teebee provides a nonlinear 4-pole resonant diode-ladder lowpass
// with a fixed one-pole highpass in the global feedback path.
//
// The update rule is
//
//	y0  = in - hp(k*y4)
//	y1 += 2*b0*(y0 - y1 + y2)
//	y2 +=   b0*(y1 - 2*y2 + y3)
//	y3 +=   b0*(y2 - 2*y3 + y4)
//	y4 +=   b0*(y3 - 2*y4)
//	out = 2*g*y4
//
// where b0 and k come from empirically fitted tables in the normalized
// frequency fx and the resonance control is perceptually skewed before
// scaling k. Stage memories are hard-limited, which bounds self-oscillation
// and supplies the ladder's nonlinearity.
//
// All mutators clamp their inputs, so the filter can be retuned from a
// per-sample cutoff modulation path without error handling in the hot loop.
package teebee

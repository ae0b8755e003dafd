// Package osc provides a band-limited saw/square-blend oscillator for
// analog-modeled voices.
//
// Supported variants:
//   - VariantPolyBLEP:
//     Polynomial band-limited step correction applied at every waveform
//     discontinuity, including the phase-wrap sample itself.
//   - VariantWavetable:
//     Mip-mapped additive sawtooth tables selected by phase increment;
//     the square component is the difference of two half-period-offset
//     table reads. Cheaper per sample at a small interpolation noise cost.
//
// Both variants keep phase in [0, 1), advance by frequency/sampleRate per
// sample, and clamp retuning inputs instead of failing, so they can sit on
// a per-sample modulation path.
package osc

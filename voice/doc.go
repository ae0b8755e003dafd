// Package voice implements a monophonic analog-modeled synthesizer voice
// in the style of classic bassline machines.
//
// A Voice owns one band-limited saw/square oscillator, a pitch slew for
// legato slides, a four-pole resonant ladder filter with a highpass-shaped
// feedback path, exponential decay envelopes with an accent path, and a
// fixed output-shaping chain. The Accurate fidelity oversamples the
// oscillator and filter by two and decimates through an elliptic lowpass.
//
// Control and audio are decoupled: one producer goroutine sends Message
// values through Send, and the audio goroutine drains them at the start of
// every Render call. The render path is real-time safe: it never
// allocates, locks, or returns errors. Out-of-range control values are
// clamped and counted in Diagnostics instead of rejected.
package voice

// Package envelope provides the exponential decay generators and RC
// shaping used to modulate a monophonic voice.
//
// Decay is a one-multiply exponential generator: each sample multiplies the
// current value by exp(-1/(sampleRate*seconds)) and pins to zero below a
// small floor so tails terminate in finite time. System bundles two Decay
// generators (a fast filter envelope and a slow amplitude envelope) with
// two leaky-integrator RC paths that round the raw exponentials into the
// smoothed curves a hardware RC network would produce. The accent RC path
// contributes only while the sounding note is accented.
//
// Triggering restarts both generators and selects the decay regime for the
// note (normal or accent). A legato slide must not retrigger: callers use
// SetAccented to re-evaluate the accent flag while both envelopes keep
// decaying from their current values.
package envelope

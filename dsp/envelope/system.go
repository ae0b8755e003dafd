package envelope

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-acid/dsp/onepole"
)

const (
	defaultNormalDecaySeconds = 1.0
	defaultAccentDecaySeconds = 0.2
	defaultAmpDecaySeconds    = 1.23
	defaultAmpReleaseSeconds  = 0.016
	defaultMainRCSeconds      = 0.003
	defaultAccentRCSeconds    = 0.012
)

// SystemOption mutates envelope-system configuration.
type SystemOption func(*systemConfig) error

type systemConfig struct {
	normalDecaySeconds float64
	accentDecaySeconds float64
	ampDecaySeconds    float64
	ampReleaseSeconds  float64
	mainRCSeconds      float64
	accentRCSeconds    float64
}

func defaultSystemConfig() systemConfig {
	return systemConfig{
		normalDecaySeconds: defaultNormalDecaySeconds,
		accentDecaySeconds: defaultAccentDecaySeconds,
		ampDecaySeconds:    defaultAmpDecaySeconds,
		ampReleaseSeconds:  defaultAmpReleaseSeconds,
		mainRCSeconds:      defaultMainRCSeconds,
		accentRCSeconds:    defaultAccentRCSeconds,
	}
}

// WithNormalDecaySeconds sets the main-envelope decay for unaccented notes.
func WithNormalDecaySeconds(seconds float64) SystemOption {
	return func(cfg *systemConfig) error {
		if !(seconds > 0) || math.IsInf(seconds, 0) {
			return fmt.Errorf("envelope: normal decay must be finite and > 0: %f", seconds)
		}

		cfg.normalDecaySeconds = seconds

		return nil
	}
}

// WithAccentDecaySeconds sets the main-envelope decay for accented notes.
func WithAccentDecaySeconds(seconds float64) SystemOption {
	return func(cfg *systemConfig) error {
		if !(seconds > 0) || math.IsInf(seconds, 0) {
			return fmt.Errorf("envelope: accent decay must be finite and > 0: %f", seconds)
		}

		cfg.accentDecaySeconds = seconds

		return nil
	}
}

// WithAmpDecaySeconds sets the fixed amplitude-envelope decay. The base
// model has no separate release segment: note-off only clears the gate and
// the amplitude keeps decaying at this rate.
func WithAmpDecaySeconds(seconds float64) SystemOption {
	return func(cfg *systemConfig) error {
		if !(seconds > 0) || math.IsInf(seconds, 0) {
			return fmt.Errorf("envelope: amp decay must be finite and > 0: %f", seconds)
		}

		cfg.ampDecaySeconds = seconds

		return nil
	}
}

// WithAmpReleaseSeconds configures the extended model where gate-off
// switches the amplitude envelope to a faster release decay.
func WithAmpReleaseSeconds(seconds float64) SystemOption {
	return func(cfg *systemConfig) error {
		if !(seconds > 0) || math.IsInf(seconds, 0) {
			return fmt.Errorf("envelope: amp release must be finite and > 0: %f", seconds)
		}

		cfg.ampReleaseSeconds = seconds

		return nil
	}
}

// System couples the fast filter envelope, the slow amplitude envelope, and
// the two RC shaping paths that turn their instantaneous values into
// modulation signals. The accent RC path contributes only on accented
// notes.
type System struct {
	sampleRate float64

	main Decay
	amp  Decay

	rcMain   onepole.LeakyIntegrator
	rcAccent onepole.LeakyIntegrator

	normalDecaySeconds float64
	accentDecaySeconds float64
	ampDecaySeconds    float64
	ampReleaseSeconds  float64

	gate     bool
	accented bool
}

// NewSystem constructs an envelope system.
func NewSystem(sampleRate float64, opts ...SystemOption) (*System, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("envelope: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultSystemConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	s := &System{
		sampleRate:         sampleRate,
		main:               *NewDecay(cfg.normalDecaySeconds, sampleRate),
		amp:                *NewDecay(cfg.ampDecaySeconds, sampleRate),
		rcMain:             *onepole.NewLeakyIntegrator(cfg.mainRCSeconds, sampleRate),
		rcAccent:           *onepole.NewLeakyIntegrator(cfg.accentRCSeconds, sampleRate),
		normalDecaySeconds: cfg.normalDecaySeconds,
		accentDecaySeconds: cfg.accentDecaySeconds,
		ampDecaySeconds:    cfg.ampDecaySeconds,
		ampReleaseSeconds:  cfg.ampReleaseSeconds,
	}

	return s, nil
}

// SampleRate returns the sample rate in Hz.
func (s *System) SampleRate() float64 { return s.sampleRate }

// Gate reports whether a note is currently held.
func (s *System) Gate() bool { return s.gate }

// Accented reports whether the sounding note carries an accent.
func (s *System) Accented() bool { return s.accented }

// MainValue returns the filter envelope's current value without advancing.
func (s *System) MainValue() float64 { return s.main.Value() }

// AmpValue returns the amplitude envelope's current value without advancing.
func (s *System) AmpValue() float64 { return s.amp.Value() }

// SetSampleRate retunes every internal coefficient. Invalid rates fall back
// to 44100 Hz.
func (s *System) SetSampleRate(sampleRate float64) {
	s.sampleRate = sanitizeSampleRate(sampleRate)
	s.main.SetSampleRate(s.sampleRate)
	s.amp.SetSampleRate(s.sampleRate)
	s.rcMain.SetSampleRate(s.sampleRate)
	s.rcAccent.SetSampleRate(s.sampleRate)
}

// SetNormalDecaySeconds updates the unaccented decay regime. If an
// unaccented note is sounding, its decay retunes immediately.
func (s *System) SetNormalDecaySeconds(seconds float64) {
	s.normalDecaySeconds = seconds
	if s.gate && !s.accented {
		s.main.SetDecaySeconds(seconds)
	}
}

// SetAccentDecaySeconds updates the accented decay regime. If an accented
// note is sounding, its decay retunes immediately.
func (s *System) SetAccentDecaySeconds(seconds float64) {
	s.accentDecaySeconds = seconds
	if s.gate && s.accented {
		s.main.SetDecaySeconds(seconds)
	}
}

// SetAmpDecaySeconds updates the gated amplitude decay. A gated note
// retunes immediately.
func (s *System) SetAmpDecaySeconds(seconds float64) {
	s.ampDecaySeconds = seconds
	if s.gate {
		s.amp.SetDecaySeconds(seconds)
	}
}

// SetAmpReleaseSeconds updates the post-gate amplitude decay. A released
// note retunes immediately.
func (s *System) SetAmpReleaseSeconds(seconds float64) {
	s.ampReleaseSeconds = seconds
	if !s.gate {
		s.amp.SetDecaySeconds(seconds)
	}
}

// Trigger restarts both envelopes and selects the decay regime for the
// note. A slide must NOT call Trigger; use SetAccented to re-evaluate the
// accent path without restarting anything.
func (s *System) Trigger(accented bool) {
	s.accented = accented
	s.gate = true

	if accented {
		s.main.SetDecaySeconds(s.accentDecaySeconds)
	} else {
		s.main.SetDecaySeconds(s.normalDecaySeconds)
	}

	s.main.Trigger(1)
	s.amp.SetDecaySeconds(s.ampDecaySeconds)
	s.amp.Trigger(1)
}

// SetAccented re-evaluates the accent flag mid-note (slide semantics): the
// decay regime and accent RC gating follow the new flag, but neither
// envelope restarts.
func (s *System) SetAccented(accented bool) {
	s.accented = accented

	if accented {
		s.main.SetDecaySeconds(s.accentDecaySeconds)
	} else {
		s.main.SetDecaySeconds(s.normalDecaySeconds)
	}
}

// GateOff clears the gate. The amplitude envelope switches to the release
// decay and keeps falling naturally; nothing else changes.
func (s *System) GateOff() {
	s.gate = false
	s.amp.SetDecaySeconds(s.ampReleaseSeconds)
}

// Reset zeroes all envelope and RC memory and clears the gate. This is the
// hard-reset (panic) path.
func (s *System) Reset() {
	s.gate = false
	s.accented = false
	s.main.Reset()
	s.amp.Reset()
	s.rcMain.Reset()
	s.rcAccent.Reset()
}

// Next advances the system one sample and returns the RC-shaped filter
// modulation, the RC-shaped accent modulation (zero when the note is not
// accented), and the raw amplitude envelope value.
func (s *System) Next() (mainRC, accentRC, amp float64) {
	main := s.main.NextValue()
	mainRC = s.rcMain.ProcessSample(main)

	if s.accented {
		accentRC = s.rcAccent.ProcessSample(main)
	} else {
		// The accent path idles toward zero so a later accented slide
		// picks up from a quiet state instead of a stale one.
		accentRC = s.rcAccent.ProcessSample(0)
	}

	amp = s.amp.NextValue()

	return mainRC, accentRC, amp
}

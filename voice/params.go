package voice

import "math"

// ParamID identifies a continuously variable voice parameter. Parameter
// changes arrive through the control queue and are applied at block
// boundaries; values outside a parameter's range are clamped, never
// rejected.
type ParamID int

const (
	// ParamWaveform blends between sawtooth (0) and square (1).
	ParamWaveform ParamID = iota
	// ParamTuningHz is the reference frequency for MIDI note 69.
	ParamTuningHz
	// ParamCutoffHz is the filter's base cutoff before envelope modulation.
	ParamCutoffHz
	// ParamResonance is the normalized filter resonance in [0, 1].
	ParamResonance
	// ParamEnvMod scales how far the filter envelope sweeps the cutoff.
	ParamEnvMod
	// ParamDecaySeconds is the filter-envelope decay for unaccented notes.
	ParamDecaySeconds
	// ParamAccent scales the accent path's contribution to cutoff and level.
	ParamAccent
	// ParamVolumeDB is the output level in decibels.
	ParamVolumeDB
	// ParamSlideSeconds is the pitch glide time for slid notes.
	ParamSlideSeconds
	// ParamAccentDecaySeconds is the filter-envelope decay for accented notes.
	ParamAccentDecaySeconds
	// ParamAmpDecaySeconds is the amplitude-envelope decay while gated.
	ParamAmpDecaySeconds
	// ParamAmpReleaseSeconds is the amplitude decay after gate-off.
	ParamAmpReleaseSeconds
	// ParamSquarePhase offsets the square wave's falling edge.
	ParamSquarePhase
	// ParamFeedbackHPHz tunes the highpass in the filter's feedback path.
	ParamFeedbackHPHz

	paramCount int = iota
)

// String returns a short identifier for the parameter.
func (id ParamID) String() string {
	switch id {
	case ParamWaveform:
		return "waveform"
	case ParamTuningHz:
		return "tuning"
	case ParamCutoffHz:
		return "cutoff"
	case ParamResonance:
		return "resonance"
	case ParamEnvMod:
		return "envmod"
	case ParamDecaySeconds:
		return "decay"
	case ParamAccent:
		return "accent"
	case ParamVolumeDB:
		return "volume"
	case ParamSlideSeconds:
		return "slide"
	case ParamAccentDecaySeconds:
		return "accentdecay"
	case ParamAmpDecaySeconds:
		return "ampdecay"
	case ParamAmpReleaseSeconds:
		return "amprelease"
	case ParamSquarePhase:
		return "squarephase"
	case ParamFeedbackHPHz:
		return "feedbackhp"
	default:
		return "unknown"
	}
}

type paramRange struct {
	min float64
	max float64
	def float64
}

var paramRanges = [paramCount]paramRange{
	ParamWaveform:           {min: 0, max: 1, def: 0.85},
	ParamTuningHz:           {min: 400, max: 480, def: 440},
	ParamCutoffHz:           {min: 200, max: 20000, def: 1000},
	ParamResonance:          {min: 0, max: 1, def: 0.5},
	ParamEnvMod:             {min: 0, max: 1, def: 0.25},
	ParamDecaySeconds:       {min: 0.03, max: 3, def: 1},
	ParamAccent:             {min: 0, max: 1, def: 0.5},
	ParamVolumeDB:           {min: -60, max: 0, def: -12},
	ParamSlideSeconds:       {min: 0.001, max: 0.5, def: 0.06},
	ParamAccentDecaySeconds: {min: 0.03, max: 3, def: 0.2},
	ParamAmpDecaySeconds:    {min: 0.03, max: 3, def: 1.23},
	ParamAmpReleaseSeconds:  {min: 0.001, max: 0.5, def: 0.016},
	ParamSquarePhase:        {min: -0.5, max: 0.5, def: 0.18},
	ParamFeedbackHPHz:       {min: 20, max: 500, def: 150},
}

// DefaultParamValue returns the default value for the parameter, or 0 for
// an unknown ID.
func DefaultParamValue(id ParamID) float64 {
	if id < 0 || int(id) >= paramCount {
		return 0
	}

	return paramRanges[id].def
}

// ParamValueRange returns the clamping bounds for the parameter.
func ParamValueRange(id ParamID) (min, max float64) {
	if id < 0 || int(id) >= paramCount {
		return 0, 0
	}

	r := paramRanges[id]

	return r.min, r.max
}

// clampParamValue forces value into the parameter's legal range and reports
// whether clamping occurred. Non-finite values clamp to the default.
func clampParamValue(id ParamID, value float64) (float64, bool) {
	r := paramRanges[id]

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return r.def, true
	}

	if value < r.min {
		return r.min, true
	}

	if value > r.max {
		return r.max, true
	}

	return value, false
}

package voice

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-acid/dsp/envelope"
	"github.com/cwbudde/algo-acid/dsp/filter/teebee"
	"github.com/cwbudde/algo-acid/dsp/onepole"
	"github.com/cwbudde/algo-acid/dsp/osc"
)

const (
	defaultSampleRate    = 44100.0
	defaultQueueCapacity = 256
	defaultBlockSize     = 256

	// accentVelocityThreshold: velocities above this mark a note as
	// accented when the sender did not set the explicit accent flag.
	// Velocity 100 is the conventional non-accented level, 127 the
	// accented one, so the comparison is strict.
	accentVelocityThreshold = 100.0

	// silenceFloor is the amplitude-envelope level below which a released
	// note is considered finished.
	silenceFloor = 1e-5

	// maxEnvOctaves bounds the filter-envelope sweep; the headroom toward
	// the cutoff ceiling shrinks it further at high base cutoffs.
	maxEnvOctaves = 4.5

	// accentOctaves is the full-accent cutoff boost in octaves.
	accentOctaves = 2.0

	// accentLevelBoost is the full-accent amplitude boost.
	accentLevelBoost = 1.0

	// resetFallbackThreshold: this many numeric resets within one rendered
	// block drops resonance to regain stability.
	resetFallbackThreshold = 8
	fallbackResonance      = 0.25

	midiRefNote = 69.0
)

// Fidelity selects the rendering strategy at construction time.
type Fidelity int

const (
	// FidelityFast renders at the output rate with shaping only.
	FidelityFast Fidelity = iota
	// FidelityAccurate oversamples the oscillator and filter by 2x and
	// decimates through an elliptic lowpass.
	FidelityAccurate
)

// String returns a human-readable fidelity name.
func (f Fidelity) String() string {
	switch f {
	case FidelityFast:
		return "fast"
	case FidelityAccurate:
		return "accurate"
	default:
		return "unknown"
	}
}

func (f Fidelity) oversampling() int {
	if f == FidelityAccurate {
		return 2
	}

	return 1
}

type voiceState int

const (
	stateIdle voiceState = iota
	stateSounding
)

// Diagnostics is a snapshot of the voice's error counters. The render path
// never returns errors; out-of-range inputs are clamped and counted here.
type Diagnostics struct {
	ClampedParameters   uint64
	NumericResets       uint64
	DroppedMessages     uint64
	RejectedSampleRates uint64
	ResonanceFallbacks  uint64
}

// Option mutates voice configuration.
type Option func(*config) error

type config struct {
	fidelity      Fidelity
	oscVariant    osc.Variant
	queueCapacity int
	blockSize     int
}

func defaultVoiceConfig() config {
	return config{
		fidelity:      FidelityFast,
		oscVariant:    osc.VariantPolyBLEP,
		queueCapacity: defaultQueueCapacity,
		blockSize:     defaultBlockSize,
	}
}

// WithFidelity selects the rendering strategy. The choice is fixed for the
// voice's lifetime so the per-sample path carries no strategy branches.
func WithFidelity(f Fidelity) Option {
	return func(cfg *config) error {
		if f != FidelityFast && f != FidelityAccurate {
			return fmt.Errorf("voice: unknown fidelity: %d", int(f))
		}

		cfg.fidelity = f

		return nil
	}
}

// WithOscillatorVariant selects the band-limiting strategy.
func WithOscillatorVariant(v osc.Variant) Option {
	return func(cfg *config) error {
		if v != osc.VariantPolyBLEP && v != osc.VariantWavetable {
			return fmt.Errorf("voice: unknown oscillator variant: %d", int(v))
		}

		cfg.oscVariant = v

		return nil
	}
}

// WithQueueCapacity sets the control-queue size (rounded up to a power of
// two).
func WithQueueCapacity(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("voice: queue capacity must be >= 1: %d", n)
		}

		cfg.queueCapacity = n

		return nil
	}
}

// WithBlockSize sets the internal scratch-block length used by Render.
func WithBlockSize(n int) Option {
	return func(cfg *config) error {
		if n < 16 {
			return fmt.Errorf("voice: block size must be >= 16: %d", n)
		}

		cfg.blockSize = n

		return nil
	}
}

// derived caches the block-rate values computed from the raw parameters.
// It is rebuilt only when the parameter generation advances, so repeated
// reads between changes are bit-identical.
type derived struct {
	generation    uint64
	baseCutoffHz  float64
	envOctaves    float64
	accentCutoff  float64
	accentLevel   float64
	outputGain    float64
	tuningHz      float64
	squareBlend   float64
	slideSeconds  float64
	normalDecay   float64
	accentDecay   float64
	ampDecay      float64
	ampRelease    float64
	squarePhase   float64
	feedbackHPHz  float64
	resonanceNorm float64
}

// Voice is a complete monophonic synthesizer voice: band-limited
// oscillator, pitch slew, nonlinear ladder filter with envelope-swept
// cutoff, decay envelopes with an accent path, and fixed output shaping.
//
// All control flows through a single-producer queue drained at the start
// of each Render call; the render path itself never allocates, blocks, or
// returns errors.
type Voice struct {
	sampleRate   float64
	internalRate float64
	fidelity     Fidelity
	oversample   int

	osc    *osc.Oscillator
	slew   *onepole.Slew
	filter *teebee.Filter
	env    *envelope.System
	cond   *conditioner

	params   [paramCount]float64
	paramGen uint64
	cache    derived
	cacheOK  bool

	ctrl *queue

	state        voiceState
	currentPitch float64
	accented     bool

	scratch []float64

	clampedParams     uint64
	resonanceFallback uint64
	rejectedRates     uint64
	lastResets        uint64
}

// New constructs a voice at the given sample rate. Invalid rates are an
// error here; after construction, rate changes clamp instead.
func New(sampleRate float64, opts ...Option) (*Voice, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("voice: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultVoiceConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	v := &Voice{
		sampleRate: sampleRate,
		fidelity:   cfg.fidelity,
		oversample: cfg.fidelity.oversampling(),
		ctrl:       newQueue(cfg.queueCapacity),
		scratch:    make([]float64, cfg.blockSize),
	}
	v.internalRate = sampleRate * float64(v.oversample)

	for id := 0; id < paramCount; id++ {
		v.params[id] = paramRanges[id].def
	}

	var err error

	v.osc, err = osc.New(v.internalRate, osc.WithVariant(cfg.oscVariant))
	if err != nil {
		return nil, err
	}

	v.filter, err = teebee.New(v.internalRate)
	if err != nil {
		return nil, err
	}

	v.env, err = envelope.NewSystem(v.internalRate)
	if err != nil {
		return nil, err
	}

	v.slew = onepole.NewSlew(v.params[ParamSlideSeconds], v.internalRate)
	v.slew.Snap(midiRefNote)
	v.currentPitch = midiRefNote

	v.cond = newConditioner(v.internalRate, v.oversample)

	v.refreshDerived()

	return v, nil
}

// SampleRate returns the output sample rate in Hz.
func (v *Voice) SampleRate() float64 { return v.sampleRate }

// Fidelity returns the rendering strategy chosen at construction.
func (v *Voice) Fidelity() Fidelity { return v.fidelity }

// Send enqueues a control message from the producer goroutine. It never
// blocks; when the queue is full the message is dropped and counted.
func (v *Voice) Send(m Message) bool {
	return v.ctrl.push(m)
}

// Parameter returns the current clamped value of the parameter.
func (v *Voice) Parameter(id ParamID) float64 {
	if id < 0 || int(id) >= paramCount {
		return 0
	}

	return v.params[id]
}

// Diagnostics returns a snapshot of the error counters.
func (v *Voice) Diagnostics() Diagnostics {
	return Diagnostics{
		ClampedParameters:   v.clampedParams,
		NumericResets:       v.filter.NumericResets(),
		DroppedMessages:     v.ctrl.droppedCount(),
		RejectedSampleRates: v.rejectedRates,
		ResonanceFallbacks:  v.resonanceFallback,
	}
}

// SetSampleRate retunes the voice. Invalid rates fall back to 44100 Hz and
// are counted; the call must not be made concurrently with Render.
func (v *Voice) SetSampleRate(sampleRate float64) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		v.rejectedRates++

		sampleRate = defaultSampleRate
	}

	v.sampleRate = sampleRate
	v.internalRate = sampleRate * float64(v.oversample)

	v.osc.SetSampleRate(v.internalRate)
	v.filter.SetSampleRate(v.internalRate)
	v.env.SetSampleRate(v.internalRate)
	v.slew.SetSampleRate(v.internalRate)
	v.cond = newConditioner(v.internalRate, v.oversample)

	v.cacheOK = false
}

// setParameter applies a clamped parameter change and invalidates the
// derived cache. Runs on the render goroutine during queue drain.
func (v *Voice) setParameter(id ParamID, value float64) {
	if id < 0 || int(id) >= paramCount {
		v.clampedParams++
		return
	}

	clamped, wasClamped := clampParamValue(id, value)
	if wasClamped {
		v.clampedParams++
	}

	if v.params[id] == clamped {
		return
	}

	v.params[id] = clamped
	v.paramGen++
	v.cacheOK = false
}

// refreshDerived rebuilds the block-rate coefficient cache and pushes
// per-component settings down. Identical generations return the identical
// cached struct.
func (v *Voice) refreshDerived() {
	if v.cacheOK && v.cache.generation == v.paramGen {
		return
	}

	d := derived{
		generation:    v.paramGen,
		baseCutoffHz:  v.params[ParamCutoffHz],
		tuningHz:      v.params[ParamTuningHz],
		squareBlend:   v.params[ParamWaveform],
		slideSeconds:  v.params[ParamSlideSeconds],
		normalDecay:   v.params[ParamDecaySeconds],
		accentDecay:   v.params[ParamAccentDecaySeconds],
		ampDecay:      v.params[ParamAmpDecaySeconds],
		ampRelease:    v.params[ParamAmpReleaseSeconds],
		squarePhase:   v.params[ParamSquarePhase],
		feedbackHPHz:  v.params[ParamFeedbackHPHz],
		resonanceNorm: v.params[ParamResonance],
		outputGain:    core.DBToLinear(v.params[ParamVolumeDB]),
	}

	// The envelope sweep narrows near the cutoff ceiling so modulation can
	// never push the instantaneous cutoff out of the filter's range.
	headroom := math.Log2(teebee.MaxCutoffHz / d.baseCutoffHz)
	d.envOctaves = v.params[ParamEnvMod] * math.Min(maxEnvOctaves, headroom)
	d.accentCutoff = v.params[ParamAccent] * math.Min(accentOctaves, headroom)
	d.accentLevel = v.params[ParamAccent] * accentLevelBoost

	v.osc.SetBlend(d.squareBlend)
	v.osc.SetSquarePhaseShift(d.squarePhase)
	v.filter.SetResonance(d.resonanceNorm)
	v.filter.SetFeedbackHighpassHz(d.feedbackHPHz)
	v.slew.SetTime(d.slideSeconds)
	v.env.SetNormalDecaySeconds(d.normalDecay)
	v.env.SetAccentDecaySeconds(d.accentDecay)
	v.env.SetAmpDecaySeconds(d.ampDecay)
	v.env.SetAmpReleaseSeconds(d.ampRelease)

	v.cache = d
	v.cacheOK = true
}

// DerivedCutoffBase returns the cached base cutoff and envelope sweep in
// octaves for the current parameter generation. Reads between parameter
// changes are bit-identical.
func (v *Voice) DerivedCutoffBase() (cutoffHz, envOctaves float64) {
	v.refreshDerived()

	return v.cache.baseCutoffHz, v.cache.envOctaves
}

// drainMessages applies every queued control message in arrival order.
func (v *Voice) drainMessages() {
	for {
		m, ok := v.ctrl.pop()
		if !ok {
			return
		}

		switch m.Kind {
		case KindNoteOn:
			v.noteOn(m)
		case KindNoteOff:
			v.noteOff(m.Pitch)
		case KindSetParameter:
			v.setParameter(m.Param, m.Value)
		case KindAllNotesOff:
			v.hardReset()
		}
	}
}

func (v *Voice) noteOn(m Message) {
	if m.Velocity <= 0 {
		v.noteOff(m.Pitch)
		return
	}

	accented := m.Accent || m.Velocity > accentVelocityThreshold

	// A slide only glides when the previous note is still gated; after a
	// note-off the release tail is not a note to glide from, so the event
	// triggers normally.
	if v.state == stateSounding && v.env.Gate() && m.Slide {
		// Legato slide: only the pitch target and accent evaluation change.
		// Oscillator phase, filter state, and both envelopes continue.
		v.slew.SetTarget(m.Pitch)
		v.env.SetAccented(accented)
		v.currentPitch = m.Pitch
		v.accented = accented

		return
	}

	v.trigger(m.Pitch, accented)
}

// trigger starts a note from scratch: pitch snaps, the oscillator phase and
// filter state reset, and both envelopes restart.
func (v *Voice) trigger(pitch float64, accented bool) {
	v.slew.Snap(pitch)
	v.osc.ResetPhase()
	v.filter.Reset()
	v.env.Trigger(accented)

	v.currentPitch = pitch
	v.accented = accented
	v.state = stateSounding
}

func (v *Voice) noteOff(pitch float64) {
	if v.state != stateSounding {
		return
	}

	// Only the sounding pitch releases; stale note-offs from overlapped
	// playing are ignored.
	if pitch != 0 && math.Abs(pitch-v.currentPitch) > 0.5 {
		return
	}

	v.env.GateOff()
}

// hardReset silences the voice immediately and zeroes all component state.
func (v *Voice) hardReset() {
	v.env.Reset()
	v.filter.Reset()
	v.osc.ResetPhase()
	v.cond.reset()
	v.state = stateIdle
}

// Render fills out with the next block of samples. Control messages are
// drained before any audio is produced, so every message sent before the
// call takes effect for the whole block. The call never allocates.
func (v *Voice) Render(out []float32) {
	v.drainMessages()
	v.refreshDerived()

	if v.state == stateIdle {
		for i := range out {
			out[i] = 0
		}

		return
	}

	rendered := 0
	for rendered < len(out) {
		n := len(out) - rendered
		if n > len(v.scratch) {
			n = len(v.scratch)
		}

		v.renderChunk(v.scratch[:n])

		vecmath.ScaleBlockInPlace(v.scratch[:n], v.cache.outputGain)

		for i := 0; i < n; i++ {
			out[rendered+i] = float32(v.scratch[i])
		}

		rendered += n

		if v.state == stateIdle {
			break
		}
	}

	for i := rendered; i < len(out); i++ {
		out[i] = 0
	}

	v.checkStability()
}

// renderChunk produces len(buf) output samples into buf at unity gain.
func (v *Voice) renderChunk(buf []float64) {
	for i := range buf {
		var y float64

		for k := 0; k < v.oversample; k++ {
			y = v.tick()
		}

		buf[i] = y
	}

	if !v.env.Gate() && v.env.AmpValue() < silenceFloor {
		v.state = stateIdle
	}
}

// tick advances every component one internal-rate sample.
func (v *Voice) tick() float64 {
	pitch := v.slew.NextValue()
	v.osc.SetFrequencyHz(v.pitchToFreq(pitch))

	x := v.cond.preShape(v.osc.NextSample())

	mainRC, accentRC, amp := v.env.Next()

	octaves := v.cache.envOctaves*mainRC + v.cache.accentCutoff*accentRC
	v.filter.SetCutoffHz(v.cache.baseCutoffHz * mathPower2(octaves))

	y := v.filter.ProcessSample(x)
	y = v.cond.postShape(y)

	level := amp * (1 + v.cache.accentLevel*accentRC)

	return y * level
}

// checkStability watches the filter's numeric-reset counter. A burst of
// resets within a single block indicates sustained instability; the voice
// falls back to a safe resonance rather than producing garbage.
func (v *Voice) checkStability() {
	resets := v.filter.NumericResets()
	if resets-v.lastResets >= resetFallbackThreshold {
		v.filter.SetResonance(fallbackResonance)
		v.resonanceFallback++
	}

	v.lastResets = resets
}

func (v *Voice) pitchToFreq(pitch float64) float64 {
	return v.cache.tuningHz * mathPower2((pitch-midiRefNote)/12)
}

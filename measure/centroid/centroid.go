package centroid

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	defaultFFTSize = 4096
	minFFTSize     = 64
)

// Option mutates analyzer configuration.
type Option func(*config) error

type config struct {
	fftSize    int
	hopSize    int
	windowType window.Type
}

func defaultAnalyzerConfig() config {
	return config{
		fftSize:    defaultFFTSize,
		hopSize:    defaultFFTSize / 2,
		windowType: window.TypeHann,
	}
}

// WithFFTSize sets the analysis frame length (power of two, >= 64).
func WithFFTSize(n int) Option {
	return func(cfg *config) error {
		if n < minFFTSize || n&(n-1) != 0 {
			return fmt.Errorf("centroid: FFT size must be a power of two >= %d: %d", minFFTSize, n)
		}

		cfg.fftSize = n
		if cfg.hopSize > n {
			cfg.hopSize = n / 2
		}

		return nil
	}
}

// WithHopSize sets the frame advance for Track.
func WithHopSize(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("centroid: hop size must be >= 1: %d", n)
		}

		cfg.hopSize = n

		return nil
	}
}

// WithWindow selects the analysis window.
func WithWindow(t window.Type) Option {
	return func(cfg *config) error {
		cfg.windowType = t
		return nil
	}
}

// Analyzer computes spectral centroids of time-domain frames. The centroid
// tracks a voice's perceived brightness, which makes it a direct probe of
// filter-envelope sweeps.
type Analyzer struct {
	sampleRate float64
	fftSize    int
	hopSize    int

	coeffs []float64

	in  []complex128
	out []complex128
	re  []float64
	im  []float64
	mag []float64
}

// New constructs a centroid analyzer for signals at sampleRate.
func New(sampleRate float64, opts ...Option) (*Analyzer, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("centroid: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultAnalyzerConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	bins := cfg.fftSize/2 + 1

	return &Analyzer{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		hopSize:    cfg.hopSize,
		coeffs:     window.Generate(cfg.windowType, cfg.fftSize),
		in:         make([]complex128, cfg.fftSize),
		out:        make([]complex128, cfg.fftSize),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
	}, nil
}

// FFTSize returns the analysis frame length.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// HopSize returns the frame advance used by Track.
func (a *Analyzer) HopSize() int { return a.hopSize }

// Centroid returns the spectral centroid of one frame in Hz. Frames shorter
// than the FFT size are zero-padded; longer frames use the first FFTSize
// samples. A silent frame returns 0.
func (a *Analyzer) Centroid(frame []float64) float64 {
	mag, err := a.magnitude(frame)
	if err != nil {
		return 0
	}

	var weighted, total float64

	binHz := a.sampleRate / float64(a.fftSize)
	for k, m := range mag {
		weighted += float64(k) * binHz * m
		total += m
	}

	if total <= 0 {
		return 0
	}

	return weighted / total
}

// Track slides an analysis frame across signal and returns one centroid per
// hop. The last partial frame is dropped.
func (a *Analyzer) Track(signal []float64) []float64 {
	if len(signal) < a.fftSize {
		return nil
	}

	frames := 1 + (len(signal)-a.fftSize)/a.hopSize
	result := make([]float64, 0, frames)

	for start := 0; start+a.fftSize <= len(signal); start += a.hopSize {
		result = append(result, a.Centroid(signal[start:start+a.fftSize]))
	}

	return result
}

// BandEnergyRatio returns the fraction of frame energy at or above splitHz.
// A silent frame returns 0.
func (a *Analyzer) BandEnergyRatio(frame []float64, splitHz float64) float64 {
	mag, err := a.magnitude(frame)
	if err != nil {
		return 0
	}

	split := int(math.Ceil(splitHz * float64(a.fftSize) / a.sampleRate))
	if split < 0 {
		split = 0
	}

	var above, total float64

	for k, m := range mag {
		e := m * m
		total += e

		if k >= split {
			above += e
		}
	}

	if total <= 0 {
		return 0
	}

	return above / total
}

// magnitude fills a.mag with the windowed magnitude spectrum of frame.
func (a *Analyzer) magnitude(frame []float64) ([]float64, error) {
	n := len(frame)
	if n > a.fftSize {
		n = a.fftSize
	}

	for i := 0; i < n; i++ {
		a.in[i] = complex(frame[i]*a.coeffs[i], 0)
	}

	for i := n; i < a.fftSize; i++ {
		a.in[i] = 0
	}

	plan, err := algofft.NewPlan64(a.fftSize)
	if err != nil {
		return nil, err
	}

	if err := plan.Forward(a.out, a.in); err != nil {
		return nil, err
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	return a.mag, nil
}

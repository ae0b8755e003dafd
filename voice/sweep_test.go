package voice

import (
	"testing"

	"github.com/cwbudde/algo-acid/measure/centroid"
)

// The filter envelope opens the cutoff at the attack and lets it fall, so
// the spectral centroid must start high and descend over the note.
func TestFilterSweepDarkensOverTime(t *testing.T) {
	t.Parallel()

	v := newTestVoice(t)
	v.Send(SetParameter(ParamCutoffHz, 500))
	v.Send(SetParameter(ParamEnvMod, 1))
	v.Send(SetParameter(ParamResonance, 0.3))
	v.Send(SetParameter(ParamDecaySeconds, 0.3))
	v.Send(NoteOn(33, 80, false, false))

	const n = 48000
	out := make([]float32, n)
	v.Render(out)

	signal := make([]float64, n)
	for i, s := range out {
		signal[i] = float64(s)
	}

	a, err := centroid.New(testSampleRate, centroid.WithFFTSize(4096), centroid.WithHopSize(4096))
	if err != nil {
		t.Fatalf("centroid.New: %v", err)
	}

	track := a.Track(signal)
	if len(track) < 4 {
		t.Fatalf("track too short: %d frames", len(track))
	}

	attack := track[0]
	tail := track[len(track)-1]

	if attack <= tail {
		t.Fatalf("centroid did not fall over the note: attack %v Hz, tail %v Hz", attack, tail)
	}
}

// An accented note sweeps the cutoff higher than an unaccented one at the
// same settings, so its attack frame must be brighter.
func TestAccentBrightensAttack(t *testing.T) {
	t.Parallel()

	attackCentroid := func(accent bool) float64 {
		v, err := New(testSampleRate)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		v.Send(SetParameter(ParamCutoffHz, 500))
		v.Send(SetParameter(ParamEnvMod, 0.5))
		v.Send(SetParameter(ParamAccent, 1))
		v.Send(NoteOn(33, 80, accent, false))

		const n = 4096
		out := make([]float32, n)
		v.Render(out)

		signal := make([]float64, n)
		for i, s := range out {
			signal[i] = float64(s)
		}

		a, err := centroid.New(testSampleRate, centroid.WithFFTSize(n))
		if err != nil {
			t.Fatalf("centroid.New: %v", err)
		}

		return a.Centroid(signal)
	}

	normal := attackCentroid(false)
	accented := attackCentroid(true)

	if accented <= normal {
		t.Fatalf("accent did not brighten attack: %v Hz vs %v Hz", accented, normal)
	}
}

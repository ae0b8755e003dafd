// Command acidrender renders a bassline pattern to a WAV file.
//
// Usage:
//
//	acidrender [flags]
//
// Examples:
//
//	acidrender -o acid.wav
//	acidrender -cutoff 800 -resonance 0.9 -envmod 0.8 -o squelch.wav
//	acidrender -fidelity accurate -bars 8 -o long.wav
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arl/blip/wave"

	"github.com/cwbudde/algo-acid/voice"
)

// step is one sixteenth of the built-in pattern. Pitch is a MIDI note
// number; rest steps leave the previous note decaying.
type step struct {
	pitch  float64
	accent bool
	slide  bool
	rest   bool
}

// A classic one-bar acid line in A minor.
var pattern = []step{
	{pitch: 33},
	{pitch: 33, slide: true},
	{pitch: 45, accent: true},
	{rest: true},
	{pitch: 33},
	{pitch: 36},
	{pitch: 33, slide: true},
	{pitch: 31, accent: true, slide: true},
	{pitch: 33},
	{rest: true},
	{pitch: 40, accent: true},
	{pitch: 38, slide: true},
	{pitch: 33},
	{pitch: 33, slide: true},
	{pitch: 45},
	{rest: true},
}

func main() {
	var (
		sampleRate = flag.Int("sr", 44100, "output sample rate in Hz")
		fidelity   = flag.String("fidelity", "fast", "rendering strategy: fast or accurate")
		tempo      = flag.Float64("tempo", 130, "tempo in beats per minute")
		bars       = flag.Int("bars", 4, "number of pattern repetitions")
		cutoff     = flag.Float64("cutoff", 1000, "filter base cutoff in Hz")
		resonance  = flag.Float64("resonance", 0.8, "filter resonance in [0, 1]")
		envMod     = flag.Float64("envmod", 0.6, "envelope modulation depth in [0, 1]")
		decay      = flag.Float64("decay", 0.4, "filter envelope decay in seconds")
		accent     = flag.Float64("accent", 0.7, "accent amount in [0, 1]")
		waveform   = flag.Float64("waveform", 0.85, "saw/square blend in [0, 1]")
		output     = flag.String("o", "acid.wav", "output WAV path")
	)

	flag.Parse()

	fid := voice.FidelityFast
	if *fidelity == "accurate" {
		fid = voice.FidelityAccurate
	} else if *fidelity != "fast" {
		fmt.Fprintf(os.Stderr, "acidrender: unknown fidelity %q\n", *fidelity)
		os.Exit(2)
	}

	v, err := voice.New(float64(*sampleRate), voice.WithFidelity(fid))
	if err != nil {
		fmt.Fprintf(os.Stderr, "acidrender: %v\n", err)
		os.Exit(1)
	}

	v.Send(voice.SetParameter(voice.ParamCutoffHz, *cutoff))
	v.Send(voice.SetParameter(voice.ParamResonance, *resonance))
	v.Send(voice.SetParameter(voice.ParamEnvMod, *envMod))
	v.Send(voice.SetParameter(voice.ParamDecaySeconds, *decay))
	v.Send(voice.SetParameter(voice.ParamAccent, *accent))
	v.Send(voice.SetParameter(voice.ParamWaveform, *waveform))

	if err := render(v, *sampleRate, *tempo, *bars, *output); err != nil {
		fmt.Fprintf(os.Stderr, "acidrender: %v\n", err)
		os.Exit(1)
	}
}

func render(v *voice.Voice, sampleRate int, tempo float64, bars int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	wv := wave.NewWriter(f, sampleRate)
	defer wv.Close()

	// Sixteenth notes: four per beat. The gate holds for most of the step
	// so slides have a held note to glide from.
	stepSamples := int(float64(sampleRate) * 60 / tempo / 4)
	gateSamples := stepSamples * 7 / 8

	buf := make([]float32, 512)
	pcm := make([]int16, 512)

	var lastPitch float64
	sounding := false

	for bar := 0; bar < bars; bar++ {
		for i, s := range pattern {
			next := pattern[(i+1)%len(pattern)]

			if s.rest {
				if sounding {
					v.Send(voice.NoteOff(lastPitch))
					sounding = false
				}

				pump(v, wv, buf, pcm, stepSamples)

				continue
			}

			v.Send(voice.NoteOn(s.pitch, 100, s.accent, s.slide && sounding))
			lastPitch = s.pitch
			sounding = true

			if next.slide && !next.rest {
				// Hold the gate through the whole step so the next note
				// glides in legato.
				pump(v, wv, buf, pcm, stepSamples)

				continue
			}

			pump(v, wv, buf, pcm, gateSamples)

			v.Send(voice.NoteOff(s.pitch))
			sounding = false

			pump(v, wv, buf, pcm, stepSamples-gateSamples)
		}
	}

	// Let the final note ring out.
	if sounding {
		v.Send(voice.NoteOff(lastPitch))
	}

	pump(v, wv, buf, pcm, sampleRate)

	return nil
}

// pump renders n samples through the voice and writes them as 16-bit PCM.
func pump(v *voice.Voice, wv *wave.Writer, buf []float32, pcm []int16, n int) {
	for n > 0 {
		m := n
		if m > len(buf) {
			m = len(buf)
		}

		v.Render(buf[:m])

		for i := 0; i < m; i++ {
			s := buf[i]
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}

			pcm[i] = int16(s * 32767)
		}

		wv.Write(pcm[:m])

		n -= m
	}
}

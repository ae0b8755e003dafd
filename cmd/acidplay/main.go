// Command acidplay plays a looping bassline pattern through the default
// audio device.
//
// Usage:
//
//	acidplay [flags]
//
// Examples:
//
//	acidplay
//	acidplay -cutoff 700 -resonance 0.95 -envmod 0.7
//	acidplay -fidelity accurate -seconds 30
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	oto "github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-acid/voice"
)

// streamer adapts a Voice to oto's io.Reader pull model: every Read renders
// the next block as float32 little-endian mono.
type streamer struct {
	v   *voice.Voice
	buf []float32
}

func (s *streamer) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}

	if len(s.buf) < n {
		s.buf = make([]float32, n)
	}

	s.v.Render(s.buf[:n])

	for i := 0; i < n; i++ {
		bits := math.Float32bits(s.buf[i])
		p[4*i+0] = byte(bits)
		p[4*i+1] = byte(bits >> 8)
		p[4*i+2] = byte(bits >> 16)
		p[4*i+3] = byte(bits >> 24)
	}

	return n * 4, nil
}

func main() {
	var (
		sampleRate = flag.Int("sr", 44100, "output sample rate in Hz")
		fidelity   = flag.String("fidelity", "fast", "rendering strategy: fast or accurate")
		tempo      = flag.Float64("tempo", 130, "tempo in beats per minute")
		seconds    = flag.Float64("seconds", 15, "playing time before exit")
		cutoff     = flag.Float64("cutoff", 1000, "filter base cutoff in Hz")
		resonance  = flag.Float64("resonance", 0.8, "filter resonance in [0, 1]")
		envMod     = flag.Float64("envmod", 0.6, "envelope modulation depth in [0, 1]")
		accent     = flag.Float64("accent", 0.7, "accent amount in [0, 1]")
	)

	flag.Parse()

	fid := voice.FidelityFast
	if *fidelity == "accurate" {
		fid = voice.FidelityAccurate
	} else if *fidelity != "fast" {
		fmt.Fprintf(os.Stderr, "acidplay: unknown fidelity %q\n", *fidelity)
		os.Exit(2)
	}

	v, err := voice.New(float64(*sampleRate), voice.WithFidelity(fid))
	if err != nil {
		fmt.Fprintf(os.Stderr, "acidplay: %v\n", err)
		os.Exit(1)
	}

	v.Send(voice.SetParameter(voice.ParamCutoffHz, *cutoff))
	v.Send(voice.SetParameter(voice.ParamResonance, *resonance))
	v.Send(voice.SetParameter(voice.ParamEnvMod, *envMod))
	v.Send(voice.SetParameter(voice.ParamAccent, *accent))
	v.Send(voice.SetParameter(voice.ParamDecaySeconds, 0.4))

	op := &oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acidplay: audio context: %v\n", err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(&streamer{v: v, buf: make([]float32, 4096)})
	player.Play()

	// The control goroutine drives the pattern; the audio callback renders.
	done := make(chan struct{})
	go sequence(v, *tempo, done)

	time.Sleep(time.Duration(*seconds * float64(time.Second)))
	close(done)

	// Give the sequencer a moment to observe done so the queue keeps a
	// single producer.
	time.Sleep(50 * time.Millisecond)

	v.Send(voice.AllNotesOff())
	time.Sleep(200 * time.Millisecond)

	if err := player.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "acidplay: %v\n", err)
	}

	d := v.Diagnostics()
	if d.DroppedMessages > 0 || d.ResonanceFallbacks > 0 {
		fmt.Fprintf(os.Stderr, "acidplay: dropped=%d fallbacks=%d\n",
			d.DroppedMessages, d.ResonanceFallbacks)
	}
}

type step struct {
	pitch  float64
	accent bool
	slide  bool
	rest   bool
}

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

// sequence feeds pattern steps into the voice's control queue in real time
// until done closes. It is the queue's only producer, so all note-offs are
// sent from this goroutine too.
func sequence(v *voice.Voice, tempo float64, done <-chan struct{}) {
	stepDur := time.Duration(60 / tempo / 4 * float64(time.Second))
	gateDur := stepDur * 7 / 8

	var lastPitch float64
	sounding := false
	i := 0

	for {
		s := pattern[i%len(pattern)]
		next := pattern[(i+1)%len(pattern)]
		i++

		if s.rest {
			if sounding {
				v.Send(voice.NoteOff(lastPitch))
				sounding = false
			}

			if !wait(stepDur, done) {
				return
			}

			continue
		}

		v.Send(voice.NoteOn(s.pitch, 100, s.accent, s.slide && sounding))
		lastPitch = s.pitch
		sounding = true

		if next.slide && !next.rest {
			// Hold the gate through the whole step so the next note
			// glides in legato.
			if !wait(stepDur, done) {
				return
			}

			continue
		}

		if !wait(gateDur, done) {
			return
		}

		v.Send(voice.NoteOff(s.pitch))
		sounding = false

		if !wait(stepDur-gateDur, done) {
			return
		}
	}
}

// wait sleeps for d, returning false when done closes first.
func wait(d time.Duration, done <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}


package voice

import "testing"

func BenchmarkRender512(b *testing.B) {
	tests := []struct {
		name     string
		fidelity Fidelity
	}{
		{name: "fast", fidelity: FidelityFast},
		{name: "accurate", fidelity: FidelityAccurate},
	}

	for _, tc := range tests {
		b.Run(tc.name, func(b *testing.B) {
			v, err := New(48000, WithFidelity(tc.fidelity))
			if err != nil {
				b.Fatalf("New: %v", err)
			}

			v.Send(SetParameter(ParamResonance, 0.9))
			v.Send(SetParameter(ParamEnvMod, 0.6))
			v.Send(NoteOn(33, 127, true, false))

			out := make([]float32, 512)
			v.Render(out)

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				// Retrigger periodically so the voice never idles out.
				if i%1024 == 0 {
					v.Send(NoteOn(33, 127, true, false))
				}

				v.Render(out)
			}
		})
	}
}

package teebee

import "testing"

func BenchmarkProcessSample(b *testing.B) {
	f, err := New(48000,
		WithCutoffHz(1800),
		WithResonance(0.9),
	)
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var sink float64
	for i := 0; i < b.N; i++ {
		sink = f.ProcessSample(0.5)
	}

	_ = sink
}

func BenchmarkProcessSampleWithCutoffSweep(b *testing.B) {
	f, err := New(48000,
		WithCutoffHz(1800),
		WithResonance(0.9),
	)
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var sink float64
	for i := 0; i < b.N; i++ {
		f.SetCutoffHz(200 + float64(i&1023)*19)
		sink = f.ProcessSample(0.5)
	}

	_ = sink
}

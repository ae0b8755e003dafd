package osc

import (
	"math"
	"sync"
)

// sawTables holds mip-mapped additive sawtooth tables. Level 0 carries
// baseHarmonics partials; each further level halves the partial count.
// The tables are read-only after construction and shared process-wide.
type sawTables struct {
	levels [tableLevels][]float64
	// maxIncrement[l] is the largest phase increment level l may serve
	// without its top partial crossing Nyquist.
	maxIncrement [tableLevels]float64
}

var (
	sharedTables     *sawTables
	sharedTablesOnce sync.Once
)

func sharedSawTables() *sawTables {
	sharedTablesOnce.Do(func() {
		sharedTables = newSawTables()
	})

	return sharedTables
}

func newSawTables() *sawTables {
	t := &sawTables{}

	harmonics := baseHarmonics
	for level := range tableLevels {
		t.levels[level] = renderSawTable(harmonics)
		t.maxIncrement[level] = 0.5 / float64(harmonics)

		if harmonics > 1 {
			harmonics /= 2
		}
	}

	return t
}

// renderSawTable builds one additive sawtooth period with Lanczos sigma
// smoothing to keep Gibbs ripple inside [-1, 1].
func renderSawTable(harmonics int) []float64 {
	table := make([]float64, tableSize)

	for i := range table {
		x := float64(i) / tableSize

		var sum float64
		for k := 1; k <= harmonics; k++ {
			sigma := sinc(float64(k) / float64(harmonics+1))
			sum += sigma * math.Sin(2*math.Pi*float64(k)*x) / float64(k)
		}

		table[i] = -(2 / math.Pi) * sum
	}

	return table
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

// levelFor returns the least-muffled level whose partials stay below
// Nyquist at the given increment.
func (t *sawTables) levelFor(increment float64) int {
	for level := range tableLevels {
		if increment <= t.maxIncrement[level] {
			return level
		}
	}

	return tableLevels - 1
}

// read linearly interpolates the table at phase in [0, 1).
func (t *sawTables) read(level int, phase float64) float64 {
	pos := phase * tableSize
	idx := int(pos)
	frac := pos - float64(idx)

	i0 := idx & (tableSize - 1)
	i1 := (idx + 1) & (tableSize - 1)

	tab := t.levels[level]

	return tab[i0] + frac*(tab[i1]-tab[i0])
}

package coupling

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixFrom(chroms []int, rows ...[]float64) Matrix {
	m := NewMatrix(len(rows), len(rows[0]))
	copy(m.Chromosomes, chroms)
	for i, r := range rows {
		copy(m.Row(i), r)
	}
	return m
}

func randomMatrix(r *rand.Rand, rows, cols, nChrom int) Matrix {
	values := []float64{0, 0.5, 1}
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		m.Chromosomes[i] = r.Intn(nChrom)
		for j := range m.Row(i) {
			// Mostly homozygous so that both outcomes are common
			if r.Intn(10) == 0 {
				m.Row(i)[j] = values[1]
			} else {
				m.Row(i)[j] = values[2*r.Intn(2)]
			}
		}
	}
	return m
}

func TestCoupledExamples(t *testing.T) {
	scratch := make([]float64, 3)

	assert.True(t, Coupled([]float64{0, 1, 0.5}, []float64{0, 1, 0.5}, scratch))
	assert.False(t, Coupled([]float64{0, 1, 0.5}, []float64{1, 1, 0.5}, scratch))
	assert.False(t, Coupled([]float64{1, 1, 0.5}, []float64{0, 1, 0.5}, scratch))

	// Wildcards never disqualify on their own
	assert.True(t, Coupled([]float64{0.5, 0.5, 0.5}, []float64{0, 1, 0.5}, scratch))
	assert.True(t, Coupled([]float64{0, 1, 0}, []float64{0.5, 0.5, 0.5}, scratch))
}

func TestCoupledIsSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	m := randomMatrix(r, 40, 7, 3)
	scratch := make([]float64, m.Cols)

	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Rows; j++ {
			require.Equal(t, Coupled(m.Row(i), m.Row(j), scratch), Coupled(m.Row(j), m.Row(i), scratch), "rows %d,%d", i, j)
		}
	}
}

func TestDetectSkipsSameChromosome(t *testing.T) {
	m := matrixFrom([]int{0, 0, 1},
		[]float64{0, 1, 0.5},
		[]float64{0, 1, 0.5},
		[]float64{0, 1, 0.5},
	)

	pairs, stats, err := DetectWithStats(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Pair{{0, 2}, {1, 2}}, pairs)
	assert.Equal(t, Stats{Evaluated: 2, Coupled: 2, SameChromosome: 1}, stats)
}

func TestDetectOrderAndDisqualification(t *testing.T) {
	m := matrixFrom([]int{0, 1, 2, 3},
		[]float64{0, 1, 0.5},
		[]float64{0, 1, 0.5},
		[]float64{1, 1, 0.5},
		[]float64{0.5, 1, 0},
	)

	pairs, err := Detect(context.Background(), m, Options{Threads: 3})
	require.NoError(t, err)
	assert.Equal(t, []Pair{{0, 1}, {0, 3}, {1, 3}, {2, 3}}, pairs)
}

func TestDetectNoPairsWhenEverythingDisagrees(t *testing.T) {
	m := matrixFrom([]int{0, 1, 2},
		[]float64{0, 0},
		[]float64{1, 0.5},
		[]float64{0, 1},
	)
	// Every pair has at least one full-unit disagreement

	pairs, stats, err := DetectWithStats(context.Background(), m, Options{Threads: 2})
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.EqualValues(t, 3, stats.Evaluated)
}

func TestDetectParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m := randomMatrix(r, 301, 5, 4)

	sequential, seqStats, err := DetectWithStats(context.Background(), m, Options{Threads: 1})
	require.NoError(t, err)
	require.NotEmpty(t, sequential)

	for _, threads := range []int{2, 3, 8, 64} {
		parallel, parStats, err := DetectWithStats(context.Background(), m, Options{Threads: threads})
		require.NoError(t, err)
		assert.Equal(t, sequential, parallel, "threads %d", threads)
		assert.Equal(t, seqStats, parStats, "threads %d", threads)
	}

	// Bounded by the number of cross-chromosome pairs, which are all evaluated
	assert.Equal(t, CrossChromosomePairs(m.Chromosomes), seqStats.Evaluated)
	assert.LessOrEqual(t, int64(len(sequential)), seqStats.Evaluated)

	for k, p := range sequential {
		require.Less(t, p.I, p.J)
		require.NotEqual(t, m.Chromosomes[p.I], m.Chromosomes[p.J])
		if k > 0 {
			prev := sequential[k-1]
			require.True(t, prev.I < p.I || (prev.I == p.I && prev.J < p.J))
		}
	}
}

func TestDetectSmallInputs(t *testing.T) {
	pairs, err := Detect(context.Background(), NewMatrix(0, 4), Options{Threads: 4})
	require.NoError(t, err)
	assert.Empty(t, pairs)

	one := NewMatrix(1, 4)
	pairs, err = Detect(context.Background(), one, Options{Threads: 4})
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDetectValidation(t *testing.T) {
	_, err := Detect(context.Background(), NewMatrix(3, 0), Options{})
	assert.ErrorIs(t, err, ErrNoSamples)

	m := NewMatrix(2, 2)
	m.Data = m.Data[:3]
	_, err = Detect(context.Background(), m, Options{})
	assert.Error(t, err)

	m = NewMatrix(2, 2)
	m.Chromosomes = m.Chromosomes[:1]
	_, err = Detect(context.Background(), m, Options{})
	assert.Error(t, err)
}

func TestDetectCancelled(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m := randomMatrix(r, 50, 3, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, m, Options{Threads: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartitionCoversEveryRow(t *testing.T) {
	for _, rows := range []int{2, 3, 10, 97, 1000} {
		for _, parts := range []int{1, 2, 7, 64, 5000} {
			blocks := partition(rows, parts)
			require.NotEmpty(t, blocks)
			assert.LessOrEqual(t, len(blocks), parts)

			next := 0
			for _, b := range blocks {
				require.Equal(t, next, b.start)
				require.Less(t, b.start, b.end)
				next = b.end
			}
			assert.Equal(t, rows-1, next, "rows %d parts %d", rows, parts)
		}
	}

	assert.Empty(t, partition(1, 4))
}

func TestCrossChromosomePairs(t *testing.T) {
	assert.EqualValues(t, 0, CrossChromosomePairs(nil))
	assert.EqualValues(t, 0, CrossChromosomePairs([]int{3, 3, 3}))
	assert.EqualValues(t, 2, CrossChromosomePairs([]int{0, 0, 1}))
	assert.EqualValues(t, 6, CrossChromosomePairs([]int{0, 1, 2, 3}))
}

func BenchmarkDetect(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	m := randomMatrix(r, 2000, 150, 12)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Detect(context.Background(), m, Options{Threads: 4}); err != nil {
			b.Fatal(err)
		}
	}
}

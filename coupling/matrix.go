package coupling

import (
	"errors"
	"fmt"
)

var ErrNoSamples = errors.New("coupling: dosage matrix has no sample columns")

// Matrix is a contiguous row-major dosage table: one row per marker, one
// column per RIL sample. Chromosomes holds an interned chromosome id per row.
type Matrix struct {
	Chromosomes []int
	Data        []float64
	Rows        int
	Cols        int
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		Chromosomes: make([]int, rows),
		Data:        make([]float64, rows*cols),
		Rows:        rows,
		Cols:        cols,
	}
}

// Row returns a view (not a copy) of row i.
func (m Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

func (m Matrix) validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("coupling: negative matrix shape %dx%d", m.Rows, m.Cols)
	}
	if m.Cols == 0 && m.Rows > 0 {
		return ErrNoSamples
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("coupling: matrix is %dx%d but holds %d values", m.Rows, m.Cols, len(m.Data))
	}
	if len(m.Chromosomes) != m.Rows {
		return fmt.Errorf("coupling: matrix has %d rows but %d chromosome ids", m.Rows, len(m.Chromosomes))
	}

	return nil
}

// CrossChromosomePairs counts the unordered pairs i<j whose chromosomes
// differ.
func CrossChromosomePairs(chromosomes []int) int64 {
	perChrom := make(map[int]int64)
	for _, c := range chromosomes {
		perChrom[c]++
	}

	n := int64(len(chromosomes))
	total := n * (n - 1) / 2
	for _, k := range perChrom {
		total -= k * (k - 1) / 2
	}

	return total
}

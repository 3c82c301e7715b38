package coupling

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Blocks handed out per worker. More than one keeps workers busy when rows
// are uneven in cost.
const blocksPerThread = 4

// Pair is a coupled pair of row indices, I < J.
type Pair struct {
	I int
	J int
}

type Options struct {
	// Threads is the number of scanning goroutines; values below 1 mean 1.
	Threads int
}

type Stats struct {
	Evaluated      int64
	Coupled        int64
	SameChromosome int64
}

func (s *Stats) add(o Stats) {
	s.Evaluated += o.Evaluated
	s.Coupled += o.Coupled
	s.SameChromosome += o.SameChromosome
}

// Coupled reports whether a and b never disagree by a full dosage unit.
// scratch must be at least len(a) long and receives a-b.
func Coupled(a, b, scratch []float64) bool {
	d := floats.SubTo(scratch[:len(a)], a, b)

	return floats.Min(d) != -1.0 && floats.Max(d) != 1.0
}

// Detect returns every coupled cross-chromosome pair in (i, j) enumeration
// order.
func Detect(ctx context.Context, m Matrix, opts Options) ([]Pair, error) {
	pairs, _, err := DetectWithStats(ctx, m, opts)
	return pairs, err
}

// DetectWithStats is Detect plus counters describing the scan.
func DetectWithStats(ctx context.Context, m Matrix, opts Options) ([]Pair, Stats, error) {
	if err := m.validate(); err != nil {
		return nil, Stats{}, err
	}

	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	blocks := partition(m.Rows, threads*blocksPerThread)
	results := make([]blockResult, len(blocks))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			scratch := make([]float64, m.Cols)
			for b := range jobs {
				// Each block index is delivered to exactly one worker
				results[b] = scanBlock(ctx, m, blocks[b], scratch)
			}
		}()
	}

feed:
	for b := range blocks {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- b:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	n := 0
	for _, r := range results {
		n += len(r.pairs)
		stats.add(r.stats)
	}
	out := make([]Pair, 0, n)
	for _, r := range results {
		out = append(out, r.pairs...)
	}

	return out, stats, nil
}

type block struct {
	start int
	end   int
}

type blockResult struct {
	pairs []Pair
	stats Stats
}

func scanBlock(ctx context.Context, m Matrix, b block, scratch []float64) blockResult {
	var res blockResult

	for i := b.start; i < b.end; i++ {
		if ctx.Err() != nil {
			return res
		}

		a := m.Row(i)
		chrom := m.Chromosomes[i]
		for j := i + 1; j < m.Rows; j++ {
			if m.Chromosomes[j] == chrom {
				res.stats.SameChromosome++
				continue
			}

			res.stats.Evaluated++
			if Coupled(a, m.Row(j), scratch) {
				res.stats.Coupled++
				res.pairs = append(res.pairs, Pair{I: i, J: j})
			}
		}
	}

	return res
}

// partition splits rows 0..rows-2 (the last row starts no pairs) into at most
// parts contiguous blocks holding roughly equal numbers of pairs.
func partition(rows, parts int) []block {
	if rows < 2 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}

	total := int64(rows) * int64(rows-1) / 2
	target := (total + int64(parts) - 1) / int64(parts)

	out := make([]block, 0, parts)
	start := 0
	var acc int64
	for i := 0; i < rows-1; i++ {
		acc += int64(rows - 1 - i)
		if acc >= target {
			out = append(out, block{start: start, end: i + 1})
			start = i + 1
			acc = 0
		}
	}
	if start < rows-1 {
		out = append(out, block{start: start, end: rows - 1})
	}

	return out
}

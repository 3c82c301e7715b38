package family

import (
	"context"
	"fmt"

	"github.com/carbocation/rilcoupling/chrpos"
	"github.com/carbocation/rilcoupling/coupling"
	"github.com/carbocation/rilcoupling/dosage"
	"github.com/carbocation/rilcoupling/genotype"
)

// Source names one family and where its table lives.
type Source struct {
	ID   string `yaml:"id" csv:"family"`
	Path string `yaml:"path" csv:"path"`
}

type Marker struct {
	Chromosome string
	Position   uint64
	Ref        string
	Alt        string
}

// Raw is a family table as read from disk: marker identity plus the
// untouched genotype fields of the two anchors and of every RIL.
type Raw struct {
	Family      string
	AnchorNames [2]string
	Samples     []string // RIL names, when the input provides them
	Markers     []Marker
	Anchors     [][2]string
	RILs        [][]string
}

// NSamples is the number of RIL columns, or 0 for an empty table.
func (r *Raw) NSamples() int {
	if len(r.RILs) == 0 {
		return 0
	}
	return len(r.RILs[0])
}

// Validate checks the shape of the table: at least one marker, one anchor
// pair and one RIL row per marker, the same number of RILs on every row, and
// at least one RIL.
func (r *Raw) Validate() error {
	if len(r.Anchors) != len(r.Markers) || len(r.RILs) != len(r.Markers) {
		return ErrorInfo{Family: r.Family, Message: fmt.Sprintf("%d markers but %d anchor rows and %d RIL rows", len(r.Markers), len(r.Anchors), len(r.RILs))}
	}

	if len(r.Markers) == 0 {
		return ErrorInfo{Family: r.Family, Message: "no marker rows"}
	}

	n := r.NSamples()
	if n < 1 {
		return ErrorInfo{Family: r.Family, Message: "no RIL genotype columns"}
	}
	for i, row := range r.RILs {
		if len(row) != n {
			return ErrorInfo{Family: r.Family, Message: fmt.Sprintf("marker %d (%s:%d) has %d RIL genotypes, expected %d", i+1, r.Markers[i].Chromosome, r.Markers[i].Position, len(row), n)}
		}
	}
	if len(r.Samples) > 0 && len(r.Samples) != n {
		return ErrorInfo{Family: r.Family, Message: fmt.Sprintf("%d RIL names but %d RIL genotype columns", len(r.Samples), n)}
	}

	return nil
}

type Normalized struct {
	Family      string
	AnchorNames [2]string
	Samples     []string
	Markers     []Marker
	Anchors     [][2]genotype.Genotype
	RILs        [][]genotype.Genotype
}

// Normalize classifies every genotype field of raw.
func Normalize(raw *Raw) *Normalized {
	out := &Normalized{
		Family:      raw.Family,
		AnchorNames: raw.AnchorNames,
		Samples:     raw.Samples,
		Markers:     raw.Markers,
		Anchors:     make([][2]genotype.Genotype, len(raw.Anchors)),
		RILs:        make([][]genotype.Genotype, len(raw.RILs)),
	}

	for i, a := range raw.Anchors {
		out.Anchors[i] = [2]genotype.Genotype{genotype.Normalize(a[0]), genotype.Normalize(a[1])}
	}
	for i, row := range raw.RILs {
		out.RILs[i] = genotype.NormalizeAll(row)
	}

	return out
}

// Recoded holds the dosages of one family. Dosages contains only the RIL
// columns, contiguously, which is what the coupling scan compares; the anchor
// dosages are kept alongside for output.
type Recoded struct {
	Family       string
	AnchorNames  [2]string
	Samples      []string
	Markers      []Marker
	Orientations []dosage.Orientation
	Anchors      [][2]float64
	Dosages      coupling.Matrix
	Chromosomes  *chrpos.Index
}

// Recode orients and recodes every marker of n with r.
func Recode(n *Normalized, r dosage.Recoder) (*Recoded, error) {
	cols := 0
	if len(n.RILs) > 0 {
		cols = len(n.RILs[0])
	}

	out := &Recoded{
		Family:       n.Family,
		AnchorNames:  n.AnchorNames,
		Samples:      n.Samples,
		Markers:      n.Markers,
		Orientations: make([]dosage.Orientation, len(n.Markers)),
		Anchors:      make([][2]float64, len(n.Markers)),
		Dosages:      coupling.NewMatrix(len(n.Markers), cols),
		Chromosomes:  chrpos.NewIndex(),
	}

	for i, m := range n.Markers {
		if len(n.RILs[i]) != cols {
			return nil, ErrorInfo{Family: n.Family, Message: fmt.Sprintf("marker %d (%s:%d) has %d RIL genotypes, expected %d", i+1, m.Chromosome, m.Position, len(n.RILs[i]), cols)}
		}

		o := dosage.Orient(n.Anchors[i][0], n.Anchors[i][1])
		out.Orientations[i] = o
		out.Anchors[i] = [2]float64{r.Value(o, n.Anchors[i][0]), r.Value(o, n.Anchors[i][1])}
		r.RecodeInto(out.Dosages.Row(i), o, n.RILs[i])
		out.Dosages.Chromosomes[i] = out.Chromosomes.Add(m.Chromosome)
	}

	return out, nil
}

// Result is a recoded family plus its coupled pairs, in scan order.
type Result struct {
	*Recoded
	Pairs []coupling.Pair
	Stats coupling.Stats
}

// Couple runs the pairwise scan over rec.
func Couple(ctx context.Context, rec *Recoded, opts coupling.Options) (*Result, error) {
	pairs, stats, err := coupling.DetectWithStats(ctx, rec.Dosages, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Family, err)
	}

	return &Result{
		Recoded: rec,
		Pairs:   pairs,
		Stats:   stats,
	}, nil
}

// Process runs every stage after loading.
func Process(ctx context.Context, raw *Raw, r dosage.Recoder, opts coupling.Options) (*Result, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	rec, err := Recode(Normalize(raw), r)
	if err != nil {
		return nil, err
	}

	return Couple(ctx, rec, opts)
}

package family

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/carbocation/runningvariance"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"

	"github.com/carbocation/rilcoupling/dosage"
)

// Summary describes one processed family.
type Summary struct {
	Family          string
	Markers         int
	Samples         int
	IdentityMarkers int
	InvertedMarkers int
	EvaluatedPairs  int64
	CoupledPairs    int64

	// Null when the family has no cross-chromosome pairs at all
	CoupledFraction null.Float

	// Mean, across markers, of the share of RIL dosages that are 0.5
	WildcardRate float64

	// Over every RIL dosage of the family. A mean far from 0.5 means the
	// founder allele is over- or under-represented.
	DosageMean float64
	DosageSD   float64

	// Number of coupled partners per marker
	MedianDegree float64
	MaxDegree    float64

	Elapsed time.Duration
}

func Summarize(res *Result) Summary {
	s := Summary{
		Family:         res.Family,
		Markers:        len(res.Markers),
		Samples:        res.Dosages.Cols,
		EvaluatedPairs: res.Stats.Evaluated,
		CoupledPairs:   int64(len(res.Pairs)),
	}

	for _, o := range res.Orientations {
		if o == dosage.Identity {
			s.IdentityMarkers++
		} else {
			s.InvertedMarkers++
		}
	}

	if s.EvaluatedPairs > 0 {
		s.CoupledFraction = null.FloatFrom(float64(s.CoupledPairs) / float64(s.EvaluatedPairs))
	}

	if s.Markers == 0 || s.Samples == 0 {
		return s
	}

	rv := runningvariance.NewRunningStat()
	rates := make([]float64, s.Markers)
	for i := range rates {
		wild := 0
		for _, v := range res.Dosages.Row(i) {
			rv.Push(v)
			if v == dosage.Wildcard {
				wild++
			}
		}
		rates[i] = float64(wild) / float64(s.Samples)
	}
	s.WildcardRate = stat.Mean(rates, nil)
	s.DosageMean = rv.Mean()
	s.DosageSD = rv.StandardDeviation()

	degree := make([]float64, s.Markers)
	for _, p := range res.Pairs {
		degree[p.I]++
		degree[p.J]++
	}
	if median, err := stats.Median(degree); err == nil {
		s.MedianDegree = median
	}
	if max, err := stats.Max(degree); err == nil {
		s.MaxDegree = max
	}

	return s
}

var summaryHeader = "family\tmarkers\tsamples\tidentity_markers\tinverted_markers\tevaluated_pairs\tcoupled_pairs\tcoupled_fraction\twildcard_rate\tdosage_mean\tdosage_sd\tmedian_degree\tmax_degree\telapsed_seconds\n"

// WriteSummaries writes a header and one row per summary.
func WriteSummaries(w io.Writer, summaries []Summary) error {
	if _, err := io.WriteString(w, summaryHeader); err != nil {
		return err
	}

	for _, s := range summaries {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%.6f\t%.6f\t%.6f\t%g\t%g\t%.3f\n",
			s.Family, s.Markers, s.Samples, s.IdentityMarkers, s.InvertedMarkers,
			s.EvaluatedPairs, s.CoupledPairs, NullFloatFormatter(s.CoupledFraction),
			s.WildcardRate, s.DosageMean, s.DosageSD, s.MedianDegree, s.MaxDegree, s.Elapsed.Seconds()); err != nil {
			return err
		}
	}

	return nil
}

func NullFloatFormatter(n null.Float) string {
	if !n.Valid {
		return ""
	}

	return strconv.FormatFloat(n.Float64, 'f', 6, 64)
}

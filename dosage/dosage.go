// Package dosage recodes normalized genotypes into orientation-aware numeric
// dosages. Each marker is oriented once, from its two anchor samples, and the
// chosen mapping is then applied to every sample at that marker.
package dosage

import "github.com/carbocation/rilcoupling/genotype"

// The only values a dosage can take.
const (
	Ref      = 0.0
	Wildcard = 0.5
	Alt      = 1.0
)

// Orientation decides which homozygous call maps to 0 and which maps to 1.
type Orientation bool

const (
	Identity Orientation = false
	Inverted Orientation = true
)

func (o Orientation) String() string {
	if o == Inverted {
		return "inverted"
	}
	return "identity"
}

// Orient returns Identity only when anchor0 is 0/0 and anchor1 is 1/1. The
// exact reverse, heterozygous anchors and missing anchors all yield Inverted:
// ambiguous anchors are not distinguished from reversed ones.
func Orient(anchor0, anchor1 genotype.Genotype) Orientation {
	if anchor0.Category() == genotype.CategoryHomRef && anchor1.Category() == genotype.CategoryHomAlt {
		return Identity
	}

	return Inverted
}

// MissingPolicy is the value given to a sample whose call could not be read.
type MissingPolicy float64

// WildcardMissing recodes missing calls to 0.5, which can never produce a
// hard +/-1 disagreement on its own.
const WildcardMissing MissingPolicy = Wildcard

// Recoder maps genotypes to dosages.
type Recoder struct {
	Missing MissingPolicy
}

// Default is the recoder used by Recode.
var Default = Recoder{Missing: WildcardMissing}

// Value recodes one call under orientation o.
func (r Recoder) Value(o Orientation, g genotype.Genotype) float64 {
	switch g.Category() {
	case genotype.CategoryHomRef:
		if o == Inverted {
			return Alt
		}
		return Ref
	case genotype.CategoryHomAlt:
		if o == Inverted {
			return Ref
		}
		return Alt
	case genotype.CategoryHet:
		return Wildcard
	}

	return float64(r.Missing)
}

// RecodeInto writes the dosage of each call into dst, which must be at least
// as long as calls.
func (r Recoder) RecodeInto(dst []float64, o Orientation, calls []genotype.Genotype) {
	for i, g := range calls {
		dst[i] = r.Value(o, g)
	}
}

// Recode orients a marker from its anchors and recodes its RIL calls. The
// anchors themselves are recoded with the same orientation.
func (r Recoder) Recode(anchor0, anchor1 genotype.Genotype, rils []genotype.Genotype) (Orientation, [2]float64, []float64) {
	o := Orient(anchor0, anchor1)
	anchors := [2]float64{r.Value(o, anchor0), r.Value(o, anchor1)}
	out := make([]float64, len(rils))
	r.RecodeInto(out, o, rils)

	return o, anchors, out
}

// Recode uses the Default recoder.
func Recode(anchor0, anchor1 genotype.Genotype, rils []genotype.Genotype) (Orientation, [2]float64, []float64) {
	return Default.Recode(anchor0, anchor1, rils)
}

// Valid reports whether v is one of 0, 0.5 or 1.
func Valid(v float64) bool {
	return v == Ref || v == Wildcard || v == Alt
}

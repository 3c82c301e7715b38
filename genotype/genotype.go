// Package genotype turns raw diploid genotype fields into one of a handful of
// canonical calls. Only biallelic, unphased calls are recognized; everything
// else is treated as missing.
package genotype

// Genotype is a normalized "A/B" call with A and B in {0,1}, or Missing.
type Genotype string

const (
	Missing   Genotype = ""
	HomRef    Genotype = "0/0"
	HomAlt    Genotype = "1/1"
	HetRefAlt Genotype = "0/1"
	HetAltRef Genotype = "1/0"
)

// Category collapses the two heterozygous orderings into one class.
type Category byte

const (
	CategoryMissing Category = iota
	CategoryHomRef
	CategoryHomAlt
	CategoryHet
)

func (c Category) String() string {
	switch c {
	case CategoryHomRef:
		return "HomRef"
	case CategoryHomAlt:
		return "HomAlt"
	case CategoryHet:
		return "Het"
	}

	return "Missing"
}

// Normalize matches the leading "[01]/[01]" of a raw field. Anything after the
// first three bytes (e.g., ":DP:GQ" subfields) is ignored. Fields that do not
// start with such a call, including "./.", phased "0|1" and multiallelic "0/2",
// become Missing.
func Normalize(raw string) Genotype {
	if len(raw) < 3 {
		return Missing
	}

	if !isAllele(raw[0]) || raw[1] != '/' || !isAllele(raw[2]) {
		return Missing
	}

	return Genotype(raw[:3])
}

// NormalizeAll normalizes each field in order.
func NormalizeAll(raw []string) []Genotype {
	out := make([]Genotype, len(raw))
	for i, v := range raw {
		out[i] = Normalize(v)
	}

	return out
}

func (g Genotype) Category() Category {
	switch g {
	case HomRef:
		return CategoryHomRef
	case HomAlt:
		return CategoryHomAlt
	case HetRefAlt, HetAltRef:
		return CategoryHet
	}

	return CategoryMissing
}

func (g Genotype) String() string {
	if g == Missing {
		return "./."
	}

	return string(g)
}

func isAllele(b byte) bool {
	return b == '0' || b == '1'
}

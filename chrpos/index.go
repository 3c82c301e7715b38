// Package chrpos maps chromosome labels to small dense integers so that hot
// loops can compare chromosomes without touching strings.
package chrpos

// Index assigns each distinct chromosome label an id in first-seen order.
// Labels are compared exactly as written: "chr1" and "1" are different
// chromosomes.
type Index struct {
	m map[string]int
	s []string
}

func NewIndex() *Index {
	return &Index{
		m: make(map[string]int),
		s: make([]string, 0),
	}
}

// Add returns the id of label, assigning a new one if needed.
func (idx *Index) Add(label string) (id int) {
	if id, exists := idx.m[label]; exists {
		return id
	}

	id = len(idx.s)
	idx.s = append(idx.s, label)
	idx.m[label] = id

	return id
}

// Lookup returns the id of label and whether it is known.
func (idx *Index) Lookup(label string) (int, bool) {
	id, exists := idx.m[label]
	return id, exists
}

// Labels returns the labels, indexed by id.
func (idx *Index) Labels() []string {
	return idx.s
}

func (idx *Index) Len() int {
	return len(idx.s)
}

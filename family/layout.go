package family

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Layout gives the 0-based columns of a family table. Every column from
// ColFirstRIL to the end of the row is a RIL genotype.
type Layout struct {
	Delimiter     rune
	Comment       rune
	ColChromosome int
	ColPosition   int
	ColRef        int
	ColAlt        int
	ColAnchor0    int
	ColAnchor1    int
	ColFirstRIL   int
}

var Layouts = map[string]Layout{
	// The body of a VCF whose first sample is the recurrent parent and whose
	// second is the founder. ID, QUAL, FILTER, INFO and FORMAT are ignored.
	"VCF": {
		Delimiter:     '\t',
		Comment:       '#',
		ColChromosome: 0,
		ColPosition:   1,
		ColRef:        3,
		ColAlt:        4,
		ColAnchor0:    9,
		ColAnchor1:    10,
		ColFirstRIL:   11,
	},
	// A table that has already been trimmed to the columns we need.
	"COMPACT": {
		Delimiter:     '\t',
		Comment:       '#',
		ColChromosome: 0,
		ColPosition:   1,
		ColRef:        2,
		ColAlt:        3,
		ColAnchor0:    4,
		ColAnchor1:    5,
		ColFirstRIL:   6,
	},
}

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for m := range Layouts {
		names = append(names, m)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

func LookupLayout(name string) (Layout, error) {
	l, exists := Layouts[strings.ToUpper(name)]
	if !exists {
		return Layout{}, fmt.Errorf("Layout %s is not found. Valid layout names include: %s", name, LayoutNames())
	}

	return l, nil
}

// ParseCustomLayout reads a layout from 7 comma-separated 0-based column
// numbers: Chromosome,Position,Ref,Alt,Anchor0,Anchor1,FirstRIL.
func ParseCustomLayout(value string) (Layout, error) {
	cols := strings.Split(value, ",")
	if x := len(cols); x != 7 {
		return Layout{}, fmt.Errorf("custom layout: 7 column numbers were expected, but %d were given", x)
	}

	intCols := make([]int, 0, len(cols))
	for i, col := range cols {
		j, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil {
			return Layout{}, fmt.Errorf("custom layout: the identifier for column %d (value %s) is not an integer", i, col)
		}
		intCols = append(intCols, j)
	}

	l := Layout{
		Delimiter:     '\t',
		Comment:       '#',
		ColChromosome: intCols[0],
		ColPosition:   intCols[1],
		ColRef:        intCols[2],
		ColAlt:        intCols[3],
		ColAnchor0:    intCols[4],
		ColAnchor1:    intCols[5],
		ColFirstRIL:   intCols[6],
	}

	return l, l.Validate()
}

// Validate requires non-negative, distinct fixed columns that all come before
// the first RIL column.
func (l Layout) Validate() error {
	fixed := l.fixedColumns()
	seen := make(map[int]struct{}, len(fixed))
	for _, c := range fixed {
		if c < 0 {
			return fmt.Errorf("layout: negative column %d", c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("layout: column %d is used twice", c)
		}
		seen[c] = struct{}{}
		if c >= l.ColFirstRIL {
			return fmt.Errorf("layout: column %d is not before the first RIL column %d", c, l.ColFirstRIL)
		}
	}

	return nil
}

func (l Layout) fixedColumns() []int {
	return []int{l.ColChromosome, l.ColPosition, l.ColRef, l.ColAlt, l.ColAnchor0, l.ColAnchor1}
}

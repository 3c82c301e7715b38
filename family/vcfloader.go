package family

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"

	"github.com/carbocation/rilcoupling"
)

// VCFLoader reads a family from a VCF. The first two samples are the anchors
// and all remaining samples are RILs.
type VCFLoader struct {
	Client *storage.Client
}

func (l VCFLoader) Load(ctx context.Context, src Source) (*Raw, error) {
	rc, err := rilcoupling.Open(ctx, src.Path, l.Client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	return l.Read(src.ID, rc)
}

func (l VCFLoader) Read(familyID string, r io.Reader) (*Raw, error) {
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(r, BufferSize), true) // Lazy genotype parsing
	if err != nil {
		if rdr == nil {
			return nil, ErrorInfo{Family: familyID, Message: fmt.Sprintf("VCF reader could not be initialized: %v", err)}
		}
		log.Printf("%s: invalid VCF header features, attempting to continue: %v\n", familyID, err)
		rdr.Clear()
	}

	names := rdr.Header.SampleNames
	if len(names) < 3 {
		return nil, ErrorInfo{Family: familyID, Message: fmt.Sprintf("%d samples found in the VCF; 2 anchors and at least 1 RIL are required", len(names))}
	}

	raw := &Raw{
		Family:      familyID,
		AnchorNames: [2]string{names[0], names[1]},
		Samples:     names[2:],
	}

	for i := 1; ; i++ {
		variant := rdr.Read()
		if variant == nil {
			break
		}

		if err := rdr.Header.ParseSamples(variant); err != nil {
			return nil, ErrorInfo{Family: familyID, Line: i, Message: fmt.Sprintf("%s:%d: %v", variant.Chrom(), variant.Pos, err)}
		}
		if len(variant.Samples) != len(names) {
			return nil, ErrorInfo{Family: familyID, Line: i, Message: fmt.Sprintf("%s:%d has %d samples, expected %d", variant.Chrom(), variant.Pos, len(variant.Samples), len(names))}
		}

		tokens := make([]string, len(variant.Samples))
		for k, sample := range variant.Samples {
			tokens[k] = GenotypeField(sample)
		}

		raw.Markers = append(raw.Markers, Marker{
			Chromosome: variant.Chrom(),
			Position:   variant.Pos,
			Ref:        variant.Ref(),
			Alt:        strings.Join(variant.Alt(), ","),
		})
		raw.Anchors = append(raw.Anchors, [2]string{tokens[0], tokens[1]})
		raw.RILs = append(raw.RILs, tokens[2:])
	}

	if err := rdr.Error(); err != nil {
		// vcfgo accumulates non-fatal validation complaints here
		log.Printf("%s: VCF warnings: %v\n", familyID, err)
		rdr.Clear()
	}

	if err := raw.Validate(); err != nil {
		return nil, err
	}

	return raw, nil
}

// GenotypeField rebuilds the GT text of a parsed sample ("0/1", "1|1",
// "./."), so that VCF input goes through the same normalizer as raw tables.
func GenotypeField(sample *vcfgo.SampleGenotype) string {
	if sample == nil || len(sample.GT) == 0 {
		return ""
	}

	sep := "/"
	if sample.Phased {
		sep = "|"
	}

	parts := make([]string, len(sample.GT))
	for i, allele := range sample.GT {
		if allele < 0 {
			parts[i] = "."
		} else {
			parts[i] = strconv.Itoa(allele)
		}
	}

	return strings.Join(parts, sep)
}

package family

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"

	"github.com/carbocation/rilcoupling"
)

var BufferSize = 4096 * 8

// Longest line we are willing to read. Wide VCFs easily exceed bufio's 64KiB
// default.
const maxLineSize = 1 << 30

// TSVLoader reads delimited family tables, compressed or not, from local
// paths or gs:// URLs.
type TSVLoader struct {
	Layout Layout
	Client *storage.Client
}

func (l TSVLoader) Load(ctx context.Context, src Source) (*Raw, error) {
	rc, err := rilcoupling.Open(ctx, src.Path, l.Client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	return l.Read(src.ID, rc)
}

// Read parses a family table from r. Comment lines are skipped; if the last
// comment line before the data has as many columns as the data, it is taken
// as the header and supplies the sample names.
func (l TSVLoader) Read(familyID string, r io.Reader) (*Raw, error) {
	if err := l.Layout.Validate(); err != nil {
		return nil, err
	}

	delim := string(l.Layout.Delimiter)
	comment := string(l.Layout.Comment)

	raw := &Raw{Family: familyID}

	scanner := bufio.NewScanner(bufio.NewReaderSize(r, BufferSize))
	scanner.Buffer(make([]byte, 0, BufferSize), maxLineSize)

	var lastComment string
	nRILs := -1
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if l.Layout.Comment != 0 && strings.HasPrefix(line, comment) {
			lastComment = line
			continue
		}

		fields := strings.Split(line, delim)
		if len(fields) <= l.Layout.ColFirstRIL {
			return nil, ErrorInfo{Family: familyID, Line: lineNo, Message: fmt.Sprintf("%d columns found, but the layout needs at least %d", len(fields), l.Layout.ColFirstRIL+1)}
		}

		if nRILs < 0 {
			nRILs = len(fields) - l.Layout.ColFirstRIL
			l.header(raw, lastComment, comment, delim, len(fields))
		} else if x := len(fields) - l.Layout.ColFirstRIL; x != nRILs {
			return nil, ErrorInfo{Family: familyID, Line: lineNo, Message: fmt.Sprintf("%d RIL genotypes found, expected %d", x, nRILs)}
		}

		pos, err := strconv.ParseUint(fields[l.Layout.ColPosition], 10, 64)
		if err != nil {
			return nil, ErrorInfo{Family: familyID, Line: lineNo, Message: fmt.Sprintf("position %q is not an integer", fields[l.Layout.ColPosition])}
		}

		raw.Markers = append(raw.Markers, Marker{
			Chromosome: fields[l.Layout.ColChromosome],
			Position:   pos,
			Ref:        fields[l.Layout.ColRef],
			Alt:        fields[l.Layout.ColAlt],
		})
		raw.Anchors = append(raw.Anchors, [2]string{fields[l.Layout.ColAnchor0], fields[l.Layout.ColAnchor1]})
		raw.RILs = append(raw.RILs, fields[l.Layout.ColFirstRIL:])
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", familyID, err))
	}

	if err := raw.Validate(); err != nil {
		return nil, err
	}

	return raw, nil
}

func (l TSVLoader) header(raw *Raw, lastComment, comment, delim string, nFields int) {
	if lastComment == "" {
		return
	}

	cols := strings.Split(strings.TrimPrefix(lastComment, comment), delim)
	if len(cols) != nFields {
		return
	}

	raw.AnchorNames = [2]string{cols[l.Layout.ColAnchor0], cols[l.Layout.ColAnchor1]}
	raw.Samples = cols[l.Layout.ColFirstRIL:]
}

package family

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"

	"github.com/carbocation/rilcoupling"
)

const DefaultPipelineName = "FuzzyCouplingAnalyzer"

// TSVWriter writes one gzipped, headerless TSV per family to
// <Dir>/<family>_<PipelineName>.tsv.gz. Dir may be a gs:// prefix.
type TSVWriter struct {
	Dir          string
	PipelineName string
	Client       *storage.Client
}

func (w TSVWriter) Path(familyID string) string {
	name := w.PipelineName
	if name == "" {
		name = DefaultPipelineName
	}
	file := fmt.Sprintf("%s_%s.tsv.gz", familyID, name)

	if rilcoupling.IsGSPath(w.Dir) {
		return strings.TrimSuffix(w.Dir, "/") + "/" + file
	}

	return filepath.Join(w.Dir, file)
}

// Write stores res at Path(res.Family). On failure nothing is left behind:
// local files are removed and Google Storage uploads are aborted before they
// commit.
func (w TSVWriter) Write(ctx context.Context, res *Result) (err error) {
	path := w.Path(res.Family)

	// A storage.Writer commits its object on Close unless its context was
	// cancelled first.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out, err := rilcoupling.Create(ctx, path, w.Client)
	if err != nil {
		return pfx.Err(err)
	}
	defer func() {
		if err != nil {
			cancel()
		}
		if cerr := out.Close(); cerr != nil && err == nil {
			err = pfx.Err(cerr)
		}
		if err != nil && !rilcoupling.IsGSPath(path) {
			os.Remove(rilcoupling.ExpandHome(path))
		}
	}()

	gz := gzip.NewWriter(out)
	buf := bufio.NewWriterSize(gz, BufferSize)

	if err := WriteRecords(buf, res); err != nil {
		return pfx.Err(err)
	}
	if err := buf.Flush(); err != nil {
		return pfx.Err(err)
	}
	if err := gz.Close(); err != nil {
		return pfx.Err(err)
	}

	// Don't commit a table the caller has given up on
	return ctx.Err()
}

// WriteRecords writes one line per coupled pair: all fields of marker I, then
// all fields of marker J. A marker's fields are chromosome, position, ref,
// alt, both anchor dosages and every RIL dosage.
func WriteRecords(w io.Writer, res *Result) error {
	formatted := make([][]byte, len(res.Markers))
	fields := func(i int) []byte {
		if formatted[i] == nil {
			formatted[i] = appendMarker(nil, res.Recoded, i)
		}
		return formatted[i]
	}

	line := make([]byte, 0, 1024)
	for _, p := range res.Pairs {
		line = append(line[:0], fields(p.I)...)
		line = append(line, '\t')
		line = append(line, fields(p.J)...)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}

	return nil
}

func appendMarker(b []byte, rec *Recoded, i int) []byte {
	m := rec.Markers[i]
	b = append(b, m.Chromosome...)
	b = append(b, '\t')
	b = strconv.AppendUint(b, m.Position, 10)
	b = append(b, '\t')
	b = append(b, m.Ref...)
	b = append(b, '\t')
	b = append(b, m.Alt...)
	for _, v := range rec.Anchors[i] {
		b = append(b, '\t')
		b = appendDosage(b, v)
	}
	for _, v := range rec.Dosages.Row(i) {
		b = append(b, '\t')
		b = appendDosage(b, v)
	}

	return b
}

// Dosages print with one decimal: 0.0, 0.5, 1.0.
func appendDosage(b []byte, v float64) []byte {
	return strconv.AppendFloat(b, v, 'f', 1, 64)
}

package family

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbocation/rilcoupling/coupling"
	"github.com/carbocation/rilcoupling/dosage"
)

// VCF-shaped body: anchors in columns 9 and 10, RILs from 11.
const vcfBody = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	HITOMEBORE	FOUNDER	RIL_0	RIL_1	RIL_2
chr01	100	.	A	G	.	PASS	.	GT	0/0	1/1	0/0:3	1/1:4	0/1:2
chr01	200	.	C	T	.	PASS	.	GT	1/1	0/0	1/1	0/0	./.
chr02	300	.	G	A	.	PASS	.	GT	0/0	1/1	0/0	1/1	1/1
chr03	400	.	T	C	.	PASS	.	GT	0/0	1/1	1/1	1/1	0/0
`

func loadVCFBody(t *testing.T) *Raw {
	raw, err := TSVLoader{Layout: Layouts["VCF"]}.Read("N01", strings.NewReader(vcfBody))
	require.NoError(t, err)
	return raw
}

func TestTSVLoaderVCFLayout(t *testing.T) {
	raw := loadVCFBody(t)

	assert.Equal(t, "N01", raw.Family)
	assert.Equal(t, [2]string{"HITOMEBORE", "FOUNDER"}, raw.AnchorNames)
	assert.Equal(t, []string{"RIL_0", "RIL_1", "RIL_2"}, raw.Samples)
	require.Len(t, raw.Markers, 4)
	assert.Equal(t, Marker{Chromosome: "chr01", Position: 100, Ref: "A", Alt: "G"}, raw.Markers[0])
	assert.Equal(t, [2]string{"1/1", "0/0"}, raw.Anchors[1])
	assert.Equal(t, []string{"0/0:3", "1/1:4", "0/1:2"}, raw.RILs[0])
	assert.Equal(t, 3, raw.NSamples())
}

func TestTSVLoaderCompactLayoutWithoutHeader(t *testing.T) {
	body := "1\t10\tA\tC\t0/0\t1/1\t0/0\t1/1\n2\t20\tG\tT\t0/0\t1/1\t0/0\t0/1\n"
	raw, err := TSVLoader{Layout: Layouts["COMPACT"]}.Read("F", strings.NewReader(body))
	require.NoError(t, err)

	assert.Nil(t, raw.Samples)
	assert.Len(t, raw.Markers, 2)
	assert.Equal(t, []string{"0/0", "0/1"}, raw.RILs[1])
}

func TestTSVLoaderMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"too few columns":     "1\t10\tA\tC\t0/0\t1/1\n",
		"anchors absent":      "1\t10\tA\tC\n",
		"bad position":        "1\tten\tA\tC\t0/0\t1/1\t0/0\n",
		"inconsistent counts": "1\t10\tA\tC\t0/0\t1/1\t0/0\t1/1\n2\t20\tG\tT\t0/0\t1/1\t0/0\n",
	} {
		_, err := TSVLoader{Layout: Layouts["COMPACT"]}.Read("F", strings.NewReader(body))
		require.Error(t, err, name)

		var info ErrorInfo
		require.True(t, errors.As(err, &info), name)
		assert.Equal(t, "F", info.Family, name)
		assert.Positive(t, info.Line, name)
	}
}

func TestTSVLoaderEmptyFamily(t *testing.T) {
	for name, body := range map[string]string{
		"comments only": "##only comments\n",
		"header only":   "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tP0\tP1\tR0\n",
		"nothing":       "",
	} {
		raw, err := TSVLoader{Layout: Layouts["VCF"]}.Read("E", strings.NewReader(body))
		require.Error(t, err, name)
		assert.Nil(t, raw, name)

		var info ErrorInfo
		require.True(t, errors.As(err, &info), name)
		assert.Equal(t, "E", info.Family, name)
		assert.Contains(t, info.Message, "no marker rows", name)
	}

	_, err := Process(context.Background(), &Raw{Family: "E"}, dosage.Default, coupling.Options{Threads: 2})
	assert.Error(t, err)
}

func TestTSVLoaderLoadsGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "N01.vcf.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := io.WriteString(zw, vcfBody)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	raw, err := TSVLoader{Layout: Layouts["VCF"]}.Load(context.Background(), Source{ID: "N01", Path: path})
	require.NoError(t, err)
	assert.Len(t, raw.Markers, 4)
}

func TestProcessEndToEnd(t *testing.T) {
	res, err := Process(context.Background(), loadVCFBody(t), dosage.Default, coupling.Options{Threads: 2})
	require.NoError(t, err)

	assert.Equal(t, []dosage.Orientation{dosage.Identity, dosage.Inverted, dosage.Identity, dosage.Identity}, res.Orientations)
	assert.Equal(t, []float64{0, 1, 0.5}, res.Dosages.Row(0))
	assert.Equal(t, []float64{0, 1, 0.5}, res.Dosages.Row(1))
	assert.Equal(t, []float64{0, 1, 1}, res.Dosages.Row(2))
	assert.Equal(t, []float64{1, 1, 0}, res.Dosages.Row(3))
	assert.Equal(t, [2]float64{0, 1}, res.Anchors[1])

	// Rows 0 and 1 share chr01 and are never compared; row 3 disagrees with
	// everything at RIL_0
	assert.Equal(t, []coupling.Pair{{I: 0, J: 2}, {I: 1, J: 2}}, res.Pairs)
	assert.EqualValues(t, 5, res.Stats.Evaluated)
	assert.EqualValues(t, 1, res.Stats.SameChromosome)
}

func TestChromosomeLabelsComparedVerbatim(t *testing.T) {
	body := "chr1\t10\tA\tC\t0/0\t1/1\t0/0\t1/1\n1\t20\tG\tT\t0/0\t1/1\t0/0\t1/1\n"
	raw, err := TSVLoader{Layout: Layouts["COMPACT"]}.Read("F", strings.NewReader(body))
	require.NoError(t, err)

	res, err := Process(context.Background(), raw, dosage.Default, coupling.Options{})
	require.NoError(t, err)
	assert.Equal(t, []coupling.Pair{{I: 0, J: 1}}, res.Pairs)
	assert.EqualValues(t, 1, res.Stats.Evaluated)
	assert.EqualValues(t, 0, res.Stats.SameChromosome)
}

func TestRawValidate(t *testing.T) {
	raw := &Raw{
		Family:  "F",
		Markers: []Marker{{Chromosome: "1"}, {Chromosome: "2"}},
		Anchors: [][2]string{{"0/0", "1/1"}, {"0/0", "1/1"}},
		RILs:    [][]string{{"0/0", "1/1"}, {"0/0"}},
	}
	assert.Error(t, raw.Validate())

	raw.RILs = [][]string{{}, {}}
	assert.Error(t, raw.Validate())

	raw.RILs = [][]string{{"0/0"}, {"1/1"}}
	assert.NoError(t, raw.Validate())

	raw.Samples = []string{"a", "b"}
	assert.Error(t, raw.Validate())

	raw.Anchors = raw.Anchors[:1]
	assert.Error(t, raw.Validate())

	assert.Error(t, (&Raw{Family: "F"}).Validate())
}

func TestWriteRecords(t *testing.T) {
	res, err := Process(context.Background(), loadVCFBody(t), dosage.Default, coupling.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, res))

	expected := "chr01\t100\tA\tG\t0.0\t1.0\t0.0\t1.0\t0.5\tchr02\t300\tG\tA\t0.0\t1.0\t0.0\t1.0\t1.0\n" +
		"chr01\t200\tC\tT\t0.0\t1.0\t0.0\t1.0\t0.5\tchr02\t300\tG\tA\t0.0\t1.0\t0.0\t1.0\t1.0\n"
	assert.Equal(t, expected, buf.String())
}

func TestTSVWriter(t *testing.T) {
	res, err := Process(context.Background(), loadVCFBody(t), dosage.Default, coupling.Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	w := TSVWriter{Dir: dir}
	assert.Equal(t, filepath.Join(dir, "N01_FuzzyCouplingAnalyzer.tsv.gz"), w.Path("N01"))
	require.NoError(t, w.Write(context.Background(), res))

	f, err := os.Open(w.Path("N01"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(got), "\n"))

	gs := TSVWriter{Dir: "gs://bucket/results/", PipelineName: "Test"}
	assert.Equal(t, "gs://bucket/results/N03_Test.tsv.gz", gs.Path("N03"))
}

func TestTSVWriterCancelledLeavesNothing(t *testing.T) {
	res, err := Process(context.Background(), loadVCFBody(t), dosage.Default, coupling.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := TSVWriter{Dir: t.TempDir()}
	err = w.Write(ctx, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(w.Path("N01"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummarize(t *testing.T) {
	res, err := Process(context.Background(), loadVCFBody(t), dosage.Default, coupling.Options{})
	require.NoError(t, err)

	s := Summarize(res)
	assert.Equal(t, "N01", s.Family)
	assert.Equal(t, 4, s.Markers)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 3, s.IdentityMarkers)
	assert.Equal(t, 1, s.InvertedMarkers)
	assert.EqualValues(t, 5, s.EvaluatedPairs)
	assert.EqualValues(t, 2, s.CoupledPairs)
	require.True(t, s.CoupledFraction.Valid)
	assert.InDelta(t, 0.4, s.CoupledFraction.Float64, 1e-12)
	assert.InDelta(t, (1.0/3+1.0/3)/4, s.WildcardRate, 1e-12)
	assert.InDelta(t, 7.0/12, s.DosageMean, 1e-12)
	assert.Greater(t, s.DosageSD, 0.0)
	// Degrees: 1, 1, 2, 0
	assert.Equal(t, 1.0, s.MedianDegree)
	assert.Equal(t, 2.0, s.MaxDegree)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, []Summary{s, {Family: "empty"}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "N01\t4\t3\t3\t1\t5\t2\t0.400000\t"))
	assert.Contains(t, lines[2], "empty\t0\t0\t0\t0\t0\t0\t\t")
}

func TestLayouts(t *testing.T) {
	l, err := LookupLayout("vcf")
	require.NoError(t, err)
	assert.Equal(t, 11, l.ColFirstRIL)

	_, err = LookupLayout("nope")
	assert.Error(t, err)
	assert.Equal(t, "COMPACT, VCF", LayoutNames())

	l, err = ParseCustomLayout("0,1,2,3,5,6,8")
	require.NoError(t, err)
	assert.Equal(t, 5, l.ColAnchor0)
	assert.Equal(t, '\t', l.Delimiter)

	for _, value := range []string{"0,1,2,3,4,5", "0,1,2,3,4,x,6", "0,1,2,3,4,4,6", "0,1,2,3,4,9,6", "-1,1,2,3,4,5,6"} {
		_, err := ParseCustomLayout(value)
		assert.Error(t, err, value)
	}
}

// Package config assembles the run configuration from an optional YAML file,
// an optional family manifest and command line flags.
package config

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/carbocation/rilcoupling"
	"github.com/carbocation/rilcoupling/family"
)

const (
	FormatTable = "table"
	FormatVCF   = "vcf"
)

type Config struct {
	Families      []family.Source `yaml:"families"`
	Manifest      string          `yaml:"manifest"`
	Format        string          `yaml:"format"`
	Layout        string          `yaml:"layout"`
	CustomLayout  string          `yaml:"custom_layout"`
	OutputDir     string          `yaml:"output_dir"`
	PipelineName  string          `yaml:"pipeline_name"`
	Threads       int             `yaml:"threads"`
	FamilyWorkers int             `yaml:"family_workers"`
	Summary       string          `yaml:"summary"`
}

func Default() Config {
	return Config{
		Format:        FormatTable,
		Layout:        "VCF",
		OutputDir:     ".",
		PipelineName:  family.DefaultPipelineName,
		Threads:       1,
		FamilyWorkers: 1,
	}
}

// ReadYAML decodes r on top of base. Unknown keys are an error.
func ReadYAML(r io.Reader, base Config) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := base
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return base, pfx.Err(err)
	}

	return cfg, nil
}

// ReadManifest parses a two-column family manifest with a "family" and a
// "path" header. The delimiter (tab or comma, usually) is detected.
func ReadManifest(r io.Reader) ([]family.Source, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := rilcoupling.DetermineDelimiter(bytes.NewReader(body))

	cr := csv.NewReader(bytes.NewReader(body))
	cr.Comma = delim
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	rows := []*family.Source{}
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, pfx.Err(fmt.Errorf("manifest: %w", err))
	}

	out := make([]family.Source, 0, len(rows))
	for _, row := range rows {
		out = append(out, family.Source{ID: strings.TrimSpace(row.ID), Path: strings.TrimSpace(row.Path)})
	}

	return out, nil
}

// LoadManifest reads a manifest from a local or gs:// path.
func LoadManifest(ctx context.Context, path string, client *storage.Client) ([]family.Source, error) {
	rc, err := rilcoupling.Open(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	return ReadManifest(rc)
}

// LayoutValue resolves Layout and CustomLayout; CustomLayout wins.
func (c Config) LayoutValue() (family.Layout, error) {
	if c.CustomLayout != "" {
		return family.ParseCustomLayout(c.CustomLayout)
	}

	return family.LookupLayout(c.Layout)
}

// Validate checks everything that can be checked before touching any family.
func (c Config) Validate() error {
	if len(c.Families) == 0 {
		return fmt.Errorf("no families were configured")
	}

	seen := make(map[string]struct{}, len(c.Families))
	for i, f := range c.Families {
		if f.ID == "" {
			return fmt.Errorf("family #%d has no identifier", i+1)
		}
		if f.Path == "" {
			return fmt.Errorf("family %s has no input path", f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("family %s is configured more than once", f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	switch c.Format {
	case FormatTable:
		if _, err := c.LayoutValue(); err != nil {
			return err
		}
	case FormatVCF:
	default:
		return fmt.Errorf("format %q is not one of %s, %s", c.Format, FormatTable, FormatVCF)
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.FamilyWorkers < 1 {
		return fmt.Errorf("family_workers must be at least 1, got %d", c.FamilyWorkers)
	}

	return nil
}

// Paths lists every input, output and manifest location, e.g. to decide
// whether a Google Storage client is needed.
func (c Config) Paths() []string {
	out := []string{c.OutputDir, c.Manifest, c.Summary}
	for _, f := range c.Families {
		out = append(out, f.Path)
	}
	return out
}

// NeedsStorage reports whether any configured location is on Google Storage.
func (c Config) NeedsStorage() bool {
	for _, p := range c.Paths() {
		if rilcoupling.IsGSPath(p) {
			return true
		}
	}
	return false
}

// rilcoupling finds pairs of markers on different chromosomes whose genotypes
// move together across a family of recombinant inbred lines. Each family is
// analyzed on its own and produces one gzipped TSV of coupled marker pairs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"

	"github.com/carbocation/rilcoupling"
	"github.com/carbocation/rilcoupling/batch"
	_ "github.com/carbocation/rilcoupling/compileinfoprint"
	"github.com/carbocation/rilcoupling/config"
	"github.com/carbocation/rilcoupling/dosage"
	"github.com/carbocation/rilcoupling/family"
)

func main() {
	var (
		configFile    string
		manifest      string
		format        string
		layout        string
		customLayout  string
		outputDir     string
		pipelineName  string
		summary       string
		threads       int
		familyWorkers int
		families      config.FamilyFlags
	)
	defaults := config.Default()
	flag.StringVar(&configFile, "config", "", "Optional: YAML file with any of the settings below plus a 'families' list of {id, path}")
	flag.StringVar(&manifest, "manifest", "", "Optional: tab- or comma-delimited file with 'family' and 'path' columns. May be a gs:// path")
	flag.Var(&families, "family", "A family to process, as id=path. Pass once per family; families run in the order given")
	flag.StringVar(&format, "format", defaults.Format, fmt.Sprintf("Input format: %s (delimited table read with --layout) or %s (parsed VCF; samples 0 and 1 are the anchors)", config.FormatTable, config.FormatVCF))
	flag.StringVar(&layout, "layout", defaults.Layout, fmt.Sprint("Layout of the delimited table. Currently, options include: ", family.LayoutNames()))
	flag.StringVar(&customLayout, "custom-layout", "", "Optional: a table layout with 0-based columns as follows: Chromosome,Position,Ref,Alt,Anchor0,Anchor1,FirstRIL")
	flag.StringVar(&outputDir, "out", defaults.OutputDir, "Directory (local or gs://) that receives <family>_<pipeline-name>.tsv.gz")
	flag.StringVar(&pipelineName, "pipeline-name", defaults.PipelineName, "Suffix used in output file names")
	flag.StringVar(&summary, "summary", "", "Optional: path (local or gs://) for a per-family summary TSV")
	flag.IntVar(&threads, "threads", defaults.Threads, "Goroutines scanning marker pairs within a family")
	flag.IntVar(&familyWorkers, "family-workers", defaults.FamilyWorkers, "Families processed concurrently")
	flag.Parse()

	cfg := config.Default()
	if configFile != "" {
		f, err := os.Open(rilcoupling.ExpandHome(configFile))
		if err != nil {
			log.Fatalln(err)
		}
		cfg, err = config.ReadYAML(f, cfg)
		f.Close()
		if err != nil {
			log.Fatalln(err)
		}
	}

	// Flags that were set explicitly override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "manifest":
			cfg.Manifest = manifest
		case "format":
			cfg.Format = format
		case "layout":
			cfg.Layout = layout
		case "custom-layout":
			cfg.CustomLayout = customLayout
		case "out":
			cfg.OutputDir = outputDir
		case "pipeline-name":
			cfg.PipelineName = pipelineName
		case "summary":
			cfg.Summary = summary
		case "threads":
			cfg.Threads = threads
		case "family-workers":
			cfg.FamilyWorkers = familyWorkers
		}
	})

	os.Exit(run(cfg, families))
}

// run does the work of main and returns the process exit code, so that
// deferred cleanup happens before the process exits.
func run(cfg config.Config, families config.FamilyFlags) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *storage.Client
	defer func() {
		if client != nil {
			client.Close()
		}
	}()
	ensureClient := func() error {
		if client != nil || !cfg.NeedsStorage() {
			return nil
		}
		var err error
		client, err = storage.NewClient(ctx)
		return err
	}

	if err := ensureClient(); err != nil {
		log.Println(err)
		return 1
	}
	if cfg.Manifest != "" {
		fromManifest, err := config.LoadManifest(ctx, cfg.Manifest, client)
		if err != nil {
			log.Println(err)
			return 1
		}
		log.Printf("Read %d families from %s\n", len(fromManifest), cfg.Manifest)
		cfg.Families = append(cfg.Families, fromManifest...)
	}
	cfg.Families = append(cfg.Families, families...)

	if err := cfg.Validate(); err != nil {
		flag.PrintDefaults()
		log.Println(err)
		return 1
	}
	if err := ensureClient(); err != nil {
		log.Println(err)
		return 1
	}

	var loader batch.Loader
	switch cfg.Format {
	case config.FormatVCF:
		loader = family.VCFLoader{Client: client}
	default:
		l, err := cfg.LayoutValue()
		if err != nil {
			log.Println(err)
			return 1
		}
		log.Printf("Using table layout: %+v\n", l)
		loader = family.TSVLoader{Layout: l, Client: client}
	}

	if !rilcoupling.IsGSPath(cfg.OutputDir) {
		if err := os.MkdirAll(rilcoupling.ExpandHome(cfg.OutputDir), 0o755); err != nil {
			log.Println(err)
			return 1
		}
	}

	driver := batch.Driver{
		Loader: loader,
		Writer: family.TSVWriter{
			Dir:          rilcoupling.ExpandHome(cfg.OutputDir),
			PipelineName: cfg.PipelineName,
			Client:       client,
		},
		Options: batch.Options{
			Threads:       cfg.Threads,
			FamilyWorkers: cfg.FamilyWorkers,
			Recoder:       dosage.Default,
		},
	}

	log.Printf("Processing %d families with %d pair-scanning goroutines each, %d families at a time\n", len(cfg.Families), cfg.Threads, cfg.FamilyWorkers)
	report := driver.Run(ctx, cfg.Families)

	if cfg.Summary != "" {
		if err := writeSummary(ctx, cfg.Summary, client, report.Summaries()); err != nil {
			log.Println(err)
			return 1
		}
	}

	if err := report.Err(); err != nil {
		log.Println(err)
		return 1
	}

	log.Println("Completed")
	return 0
}

func writeSummary(ctx context.Context, path string, client *storage.Client, summaries []family.Summary) error {
	w, err := rilcoupling.Create(ctx, path, client)
	if err != nil {
		return err
	}

	if err := family.WriteSummaries(w, summaries); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

// Package batch runs the coupling pipeline over a list of independent
// families. A family that fails is logged and reported, and the remaining
// families still run.
package batch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/carbocation/rilcoupling/coupling"
	"github.com/carbocation/rilcoupling/dosage"
	"github.com/carbocation/rilcoupling/family"
)

type Loader interface {
	Load(ctx context.Context, src family.Source) (*family.Raw, error)
}

type Writer interface {
	Write(ctx context.Context, res *family.Result) error
}

type Options struct {
	// Goroutines scanning pairs within one family
	Threads int

	// Families processed at once; values below 2 process them in order
	FamilyWorkers int

	Recoder dosage.Recoder
}

type Driver struct {
	Loader  Loader
	Writer  Writer
	Options Options
}

// Outcome is what happened to one family.
type Outcome struct {
	Source  family.Source
	Summary family.Summary
	Err     error
}

// Report lists one Outcome per family, in the order the families were given.
type Report struct {
	Outcomes []Outcome
}

func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Summaries returns the summaries of the families that succeeded.
func (r Report) Summaries() []family.Summary {
	out := make([]family.Summary, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Summary)
		}
	}
	return out
}

// Err is nil only if every family succeeded.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(failed))
	for _, o := range failed {
		ids = append(ids, o.Source.ID)
	}

	return fmt.Errorf("%d of %d families failed: %s", len(failed), len(r.Outcomes), strings.Join(ids, ", "))
}

func (d Driver) Run(ctx context.Context, families []family.Source) Report {
	report := Report{Outcomes: make([]Outcome, len(families))}

	if d.Options.FamilyWorkers < 2 {
		for i, src := range families {
			report.Outcomes[i] = d.run(ctx, src)
		}
		return report
	}

	concurrencyLimit := make(chan struct{}, d.Options.FamilyWorkers)
	pool := sync.WaitGroup{}
	for i, src := range families {
		concurrencyLimit <- struct{}{}
		pool.Add(1)
		go func(i int, src family.Source) {
			defer func() {
				<-concurrencyLimit
				pool.Done()
			}()
			report.Outcomes[i] = d.run(ctx, src)
		}(i, src)
	}
	pool.Wait()

	return report
}

func (d Driver) run(ctx context.Context, src family.Source) Outcome {
	log.Printf("Started processing %s\n", src.ID)
	started := time.Now()

	summary, err := d.RunOne(ctx, src)
	if err != nil {
		log.Printf("Failed processing %s: %v\n", src.ID, err)
		return Outcome{Source: src, Err: err}
	}

	summary.Elapsed = time.Since(started)
	log.Printf("Finished processing %s: %d markers, %d RILs, %d coupled of %d cross-chromosome pairs\n",
		src.ID, summary.Markers, summary.Samples, summary.CoupledPairs, summary.EvaluatedPairs)

	return Outcome{Source: src, Summary: summary}
}

// RunOne loads, processes and writes a single family.
func (d Driver) RunOne(ctx context.Context, src family.Source) (summary family.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", src.ID, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	raw, err := d.Loader.Load(ctx, src)
	if err != nil {
		return summary, err
	}

	recoder := d.Options.Recoder
	if recoder == (dosage.Recoder{}) {
		recoder = dosage.Default
	}

	res, err := family.Process(ctx, raw, recoder, coupling.Options{Threads: d.Options.Threads})
	if err != nil {
		return summary, err
	}

	if err := d.Writer.Write(ctx, res); err != nil {
		return summary, err
	}

	return family.Summarize(res), nil
}

package ingest

import (
	"context"
	"time"

	"github.com/jdfalcon/covidmx/pkg/catalog"
	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

type regionResult struct {
	region string
	flat   *table.Table
	err    error
}

// FlattenRegions normalizes one snapshot for several regions concurrently
// and returns the flattened table per region code. Normalization is a pure
// function of its inputs (the raw table, catalogs and descriptors are all
// read-only), so the regions share no mutable state and the result is
// identical to flattening them sequentially. The first error cancels the
// remaining work and nothing partial is returned.
func FlattenRegions(ctx context.Context, workers int, raw *table.Table, extractionDate time.Time,
	cats *catalog.Set, descs []catalog.FieldDescriptor, regions []string, policy flatten.Policy) (map[string]*table.Table, error) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(workers, len(regions))
	defer pool.Close()
	pool.Start(ctx)

	// Buffered to the job count so a worker never blocks sending a result
	// after the collector has given up.
	resCh := make(chan regionResult, len(regions))

	submitted := 0
	var firstErr error
	for _, region := range regions {
		region := region
		job := func(ctx context.Context) error {
			flat, err := flatten.Normalize(raw, extractionDate, cats, descs,
				flatten.Options{Region: region, Policy: policy})
			resCh <- regionResult{region: region, flat: flat, err: err}
			return err
		}
		if err := pool.SubmitCtx(ctx, job); err != nil {
			firstErr = err
			break
		}
		submitted++
	}

	out := make(map[string]*table.Table, submitted)
collect:
	for i := 0; i < submitted; i++ {
		select {
		case r := <-resCh:
			if r.err != nil {
				if firstErr == nil {
					firstErr = r.err
				}
				cancel()
				continue
			}
			out[r.region] = r.flat
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			break collect
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

package prefit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"takeoverbench/internal/catalog"
	"takeoverbench/internal/projection"
	"takeoverbench/internal/series"
)

// ErrSkipped marks benchmarks whose projection type is not fitted.
var ErrSkipped = errors.New("prefit: projection type is not fitted")

// Catalog is the data the fitter reads.
type Catalog interface {
	Benchmarks() []catalog.Benchmark
	Series(benchmarkID string) []series.Point
}

// DefaultWorkers bounds concurrent fits.
const DefaultWorkers = 4

// Fit fits one benchmark's SOTA history according to its projection type.
func Fit(b catalog.Benchmark, points []series.Point) (projection.FittedParams, error) {
	sota := catalog.SOTA(series.SortByX(series.Finite(points)))
	if len(sota) < 2 {
		return projection.FittedParams{}, ErrTooFewPoints
	}

	kind, err := projection.ParseKind(b.ProjectionType)
	if err != nil {
		return projection.FittedParams{}, fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	switch kind {
	case projection.KindLogistic:
		l0 := 0.0
		if b.RandomBaseline != nil {
			l0 = *b.RandomBaseline
		}
		return FitLogistic(sota, l0, 1)
	case projection.KindExponential:
		return FitExponential(sota)
	}
	return projection.FittedParams{}, ErrSkipped
}

// FitAll fits every benchmark in the catalog using up to workers goroutines.
// Benchmarks that cannot be fitted are logged and left out of the table.
func FitAll(ctx context.Context, cat Catalog, workers int) (projection.FittedTable, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu    sync.Mutex
		table = projection.FittedTable{}
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, b := range cat.Benchmarks() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := Fit(b, cat.Series(b.ID))
			switch {
			case errors.Is(err, ErrSkipped):
				log.Printf("Skipping %s: projection type %q", b.ID, b.ProjectionType)
				return nil
			case err != nil:
				log.Printf("Warning: fitting %s failed: %v", b.ID, err)
				return nil
			}
			mu.Lock()
			table[b.ID] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

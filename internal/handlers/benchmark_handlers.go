// internal/handlers/benchmark_handlers.go
package handlers

import (
	"net/http"

	"takeoverbench/internal/catalog"
	"takeoverbench/internal/curvefit"
	"takeoverbench/internal/projection"
)

// ListBenchmarks returns every benchmark with its normalised scores.
func (a *API) ListBenchmarks(w http.ResponseWriter, r *http.Request) {
	benchmarks := a.catalog.Benchmarks()
	JSONResponse(w, map[string]interface{}{
		"benchmarks": benchmarks,
		"count":      len(benchmarks),
	})
}

// GetBenchmark returns one benchmark, its dated series and the frontier.
func (a *API) GetBenchmark(w http.ResponseWriter, r *http.Request) {
	b, ok := a.catalog.Benchmark(r.PathValue("id"))
	if !ok {
		JSONError(w, "Benchmark not found", http.StatusNotFound)
		return
	}

	points := a.catalog.Series(b.ID)
	JSONResponse(w, map[string]interface{}{
		"benchmark": b,
		"series":    points,
		"frontier":  catalog.SOTA(points),
	})
}

// GetProjection handles GET /api/benchmarks/{id}/projection
// Query: mode (live|fitted), months, ceiling. Without a ceiling the
// benchmark's own scale decides it.
func (a *API) GetProjection(w http.ResponseWriter, r *http.Request) {
	b, ok := a.catalog.Benchmark(r.PathValue("id"))
	if !ok {
		JSONError(w, "Benchmark not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	mode, err := projection.ParseMode(q.Get("mode"))
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	months, err := queryInt(q, "months", a.defaults.Months, 1, maxMonths)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ceiling, err := queryFloat(q, "ceiling", catalog.Ceiling(b, a.defaults.Ceiling))
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := projection.ParseKind(b.ProjectionType)
	if err != nil {
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	projector, err := projection.NewProjector(mode, a.fitted)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := projector.Project(projection.Request{
		SeriesID:    b.ID,
		Samples:     catalog.SOTA(a.catalog.Series(b.ID)),
		Kind:        kind,
		MonthsAhead: months,
		Ceiling:     ceiling,
	})

	JSONResponse(w, map[string]interface{}{
		"benchmark_id":     b.ID,
		"mode":             projector.Mode(),
		"projection_type":  kind,
		"months":           months,
		"ceiling":          ceiling,
		"projected_points": result.Points,
		"confidence":       result.Confidence,
	})
}

// GetCurve handles GET /api/benchmarks/{id}/curve
// Query: type (linear|exponential|sigmoid), points, lock.
func (a *API) GetCurve(w http.ResponseWriter, r *http.Request) {
	b, ok := a.catalog.Benchmark(r.PathValue("id"))
	if !ok {
		JSONError(w, "Benchmark not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	fitType := defaultFitType(b)
	if raw := q.Get("type"); raw != "" {
		t, err := curvefit.ParseFitType(raw)
		if err != nil {
			JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		fitType = t
	}
	count, err := queryInt(q, "points", curvefit.DefaultPointCount, 1, maxCurvePoints)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	lock, err := queryBool(q, "lock", true)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	curve := curvefit.FitCurve(a.catalog.Series(b.ID), fitType, count, lock)
	JSONResponse(w, map[string]interface{}{
		"benchmark_id": b.ID,
		"type":         fitType,
		"lock_upper":   lock,
		"points":       curve,
	})
}

// defaultFitType follows the benchmark's projection type.
func defaultFitType(b catalog.Benchmark) curvefit.FitType {
	if b.ProjectionType == string(projection.KindExponential) {
		return curvefit.Exponential
	}
	return curvefit.Sigmoid
}

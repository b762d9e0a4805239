// Package handlers serves the benchmark catalog, projections and fitted
// curves as JSON for the charting front end.
package handlers

import (
	"net/http"

	"takeoverbench/internal/catalog"
	"takeoverbench/internal/projection"
)

const (
	maxMonths      = 120
	maxCurvePoints = 1000
)

// FittedCatalog serves replay parameters one series at a time or as a table.
type FittedCatalog interface {
	projection.ParamSource
	Table() (projection.FittedTable, error)
}

// StaticFitted serves a fitted table held in memory.
type StaticFitted projection.FittedTable

func (s StaticFitted) Fitted(seriesID string) (projection.FittedParams, bool) {
	return projection.FittedTable(s).Fitted(seriesID)
}

func (s StaticFitted) Table() (projection.FittedTable, error) {
	return projection.FittedTable(s), nil
}

// Defaults holds query parameter fallbacks.
type Defaults struct {
	Months  int
	Ceiling float64
}

// API serves the read-only catalog endpoints.
type API struct {
	catalog  *catalog.Catalog
	fitted   FittedCatalog
	defaults Defaults
}

// NewAPI creates the API. fitted may be nil, which disables replay.
func NewAPI(cat *catalog.Catalog, fitted FittedCatalog, defaults Defaults) *API {
	if defaults.Months <= 0 || defaults.Months > maxMonths {
		defaults.Months = 12
	}
	if !(defaults.Ceiling > 0) {
		defaults.Ceiling = projection.DefaultCeiling
	}
	return &API{catalog: cat, fitted: fitted, defaults: defaults}
}

// Register mounts every endpoint on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.Health)

	mux.HandleFunc("GET /api/benchmarks", a.ListBenchmarks)
	mux.HandleFunc("GET /api/benchmarks/{id}", a.GetBenchmark)
	mux.HandleFunc("GET /api/benchmarks/{id}/projection", a.GetProjection)
	mux.HandleFunc("GET /api/benchmarks/{id}/curve", a.GetCurve)

	mux.HandleFunc("GET /api/threats", a.ListThreats)
	mux.HandleFunc("GET /api/threats/{id}", a.GetThreat)
	mux.HandleFunc("GET /api/models", a.ListModels)

	mux.HandleFunc("GET /api/fitted", a.GetFittedTable)
	mux.HandleFunc("GET /api/fitted/{id}", a.GetFitted)
}

// Health handles GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]interface{}{
		"status":     "ok",
		"benchmarks": len(a.catalog.Benchmarks()),
		"replay":     a.fitted != nil,
	})
}

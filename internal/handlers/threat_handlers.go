package handlers

import (
	"net/http"
)

// ListThreats returns every threat model.
func (a *API) ListThreats(w http.ResponseWriter, r *http.Request) {
	threats := a.catalog.ThreatModels()
	JSONResponse(w, map[string]interface{}{
		"threat_models": threats,
		"count":         len(threats),
	})
}

// GetThreat returns a threat model with the benchmarks it references.
func (a *API) GetThreat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tm, ok := a.catalog.ThreatModel(id)
	if !ok {
		JSONError(w, "Threat model not found", http.StatusNotFound)
		return
	}
	benchmarks, _ := a.catalog.ThreatBenchmarks(id)

	JSONResponse(w, map[string]interface{}{
		"threat_model": tm,
		"benchmarks":   benchmarks,
	})
}

// ListModels returns the model registry.
func (a *API) ListModels(w http.ResponseWriter, r *http.Request) {
	models := a.catalog.Models()
	JSONResponse(w, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

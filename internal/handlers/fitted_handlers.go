package handlers

import (
	"net/http"
	"strings"

	"takeoverbench/internal/prefit"
	"takeoverbench/internal/projection"
)

// GetFittedTable handles GET /api/fitted
// The body is the canonical table; its ETag is the table digest.
func (a *API) GetFittedTable(w http.ResponseWriter, r *http.Request) {
	var table projection.FittedTable
	if a.fitted != nil {
		t, err := a.fitted.Table()
		if err != nil {
			JSONError(w, "Failed to retrieve fitted projections: "+err.Error(), http.StatusInternalServerError)
			return
		}
		table = t
	}

	data, err := prefit.Encode(table)
	if err != nil {
		JSONError(w, "Failed to encode fitted projections: "+err.Error(), http.StatusInternalServerError)
		return
	}

	etag := `"` + prefit.Digest(data) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// GetFitted handles GET /api/fitted/{id}
func (a *API) GetFitted(w http.ResponseWriter, r *http.Request) {
	if a.fitted == nil {
		JSONError(w, "No fitted projections loaded", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	p, ok := a.fitted.Fitted(id)
	if !ok {
		JSONError(w, "No fitted projection for this series", http.StatusNotFound)
		return
	}
	JSONResponse(w, map[string]interface{}{
		"series_id": id,
		"params":    p,
	})
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		c := strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if c == "*" || c == etag {
			return true
		}
	}
	return false
}

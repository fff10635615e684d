package health

import (
	"encoding/json"
	"net/http"

	"github.com/star/skywindow/internal/tle"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Catalog reports the currently loaded TLE dataset, if any.
type Catalog interface {
	Get() *tle.Dataset
}

// Readyz reports ready once the server is up. Ground-site evaluation needs
// no catalog, so a missing catalog is reported but does not fail the check.
func Readyz(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Status        string `json:"status"`
			CatalogLoaded bool   `json:"catalog_loaded"`
			CatalogSize   int    `json:"catalog_size"`
		}{Status: "ready"}
		if catalog != nil {
			if ds := catalog.Get(); ds != nil {
				status.CatalogLoaded = true
				status.CatalogSize = len(ds.Satellites)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/whsiao/tariffcompare/internal/metrics"
)

// RefreshResponse is the body returned by POST /internal/refresh.
type RefreshResponse struct {
	Status         string `json:"status"`
	CatalogVersion string `json:"catalogVersion,omitempty"`
	PlanCount      int    `json:"planCount,omitempty"`
	Error          string `json:"error,omitempty"`
}

// handleRefresh re-fetches the catalog from its source, bypassing any stored
// snapshot. Intended for CronJobs and manual operation, not public traffic.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	const path = "/internal/refresh"
	if r.Method != http.MethodPost {
		writeError(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cat, err := s.loader.Refresh(r.Context())
	if err != nil {
		log.Printf("refresh: catalog reload failed: %v", err)
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(RefreshResponse{Status: "error", Error: err.Error()})
		return
	}

	metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, path, RefreshResponse{
		Status:         "ok",
		CatalogVersion: cat.Version,
		PlanCount:      len(cat.Plans),
	})
}

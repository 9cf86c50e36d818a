package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whsiao/tariffcompare/internal/catalog"
	"github.com/whsiao/tariffcompare/internal/config"
	"github.com/whsiao/tariffcompare/internal/metrics"
	"github.com/whsiao/tariffcompare/internal/migrate"
	"github.com/whsiao/tariffcompare/internal/storage"
)

// Server bundles the handlers' shared dependencies.
type Server struct {
	cfg    config.Config
	loader *catalog.Loader
	store  storage.Storage // may be nil when storage could not be opened
}

// NewMux constructs the HTTP mux, wiring in the catalog loader, storage,
// metrics, and health endpoints.
func NewMux(cfg config.Config) *http.ServeMux {
	ctx := context.Background()

	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			log.Printf("auto-migration failed: %v", err)
		}
	}

	var source catalog.Source = catalog.EmbeddedSource{}
	if cfg.CatalogPath != "" {
		source = catalog.FileSource{Path: cfg.CatalogPath}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	var loader *catalog.Loader
	if err != nil {
		log.Printf("storage.Open failed (driver=%s): %v; catalog snapshots disabled", cfg.DBDriver, err)
		st = nil
		loader = catalog.NewLoader(source)
	} else {
		loader = catalog.NewLoader(source, catalog.WithStorage(st))
	}

	srv := &Server{cfg: cfg, loader: loader, store: st}

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", srv.handleReadyz)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	mux.HandleFunc("/api/v1/compare", instrument("/api/v1/compare", srv.handleCompare))
	mux.HandleFunc("/api/v1/completeness", instrument("/api/v1/completeness", srv.handleCompleteness))
	mux.HandleFunc("/api/v1/plans", instrument("/api/v1/plans", srv.handlePlans))

	mux.HandleFunc("/internal/refresh", srv.handleRefresh)

	return mux
}

// handleReadyz verifies the catalog loads; with a storage backend it also
// pings the database.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.loader.Catalog(ctx); err != nil {
		log.Printf("readyz: catalog load failed: %v", err)
		http.Error(w, "catalog not ready", http.StatusServiceUnavailable)
		return
	}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// instrument wraps a handler with request count and duration metrics.
func instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, path string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response failed: %v", err)
		metrics.RequestErrorsTotal.WithLabelValues(path, "500").Inc()
	}
}

func writeError(w http.ResponseWriter, path, msg string, code int) {
	metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
	http.Error(w, msg, code)
}

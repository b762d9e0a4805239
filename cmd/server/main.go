package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"takeoverbench/internal/catalog"
	"takeoverbench/internal/config"
	"takeoverbench/internal/handlers"
	"takeoverbench/internal/middleware"
	"takeoverbench/internal/notify"
	"takeoverbench/internal/prefit"
	"takeoverbench/internal/store"
)

func main() {
	cfg := config.Load()

	cat, err := catalog.Load(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Loaded %d benchmarks, %d models, %d threat models from %s",
		len(cat.Benchmarks()), len(cat.Models()), len(cat.ThreatModels()), cfg.DataDir)

	var fitted handlers.FittedCatalog = handlers.StaticFitted(cat.Fitted())
	var db *sql.DB
	if cfg.DBPath != "" {
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open fitted store: %v", err)
		}
		defer db.Close()
		fitted = store.Source{DB: db}
		if run, err := store.LatestRun(db); err != nil {
			log.Printf("Warning: could not read latest fit run: %v", err)
		} else if run == nil {
			log.Printf("Warning: %s has no fit runs yet; run `fitbench fit --db %s`", cfg.DBPath, cfg.DBPath)
		} else {
			log.Printf("Serving fitted projections from run %s (%d series)", run.ID, run.SeriesCount)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NotifyURL != "" {
		go checkStaleFits(ctx, cat, filepath.Join(cfg.DataDir, catalog.FittedFile), notify.New(cfg.NotifyURL, nil))
	}

	mux := http.NewServeMux()
	handlers.NewAPI(cat, fitted, handlers.Defaults{
		Months:  cfg.ProjectionMonths,
		Ceiling: cfg.ProjectionCeiling,
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.CORS,
		limiter.Limit,
		metrics.Wrap,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: shutdown: %v", err)
	}
}

// checkStaleFits refits the catalog once and alerts when the stored JSON
// table no longer matches.
func checkStaleFits(ctx context.Context, cat *catalog.Catalog, path string, n *notify.Notifier) {
	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		existing = []byte("{}")
	case err != nil:
		log.Printf("Warning: stale-fit check skipped: %v", err)
		return
	}
	computed, err := prefit.FitAll(ctx, cat, prefit.DefaultWorkers)
	if err != nil {
		log.Printf("Warning: stale-fit check aborted: %v", err)
		return
	}
	report, err := prefit.Verify(existing, computed)
	if err != nil {
		log.Printf("Warning: stale-fit check failed: %v", err)
		return
	}
	if report.UpToDate {
		log.Printf("Fitted projections are up to date")
		return
	}
	if err := n.StaleFits(report); err != nil {
		log.Printf("Warning: %v", err)
	}
}

package store

import (
	"database/sql"
	"fmt"
	"log"
)

// Migrate creates the fitted_projections and fit_runs tables.
func Migrate(db *sql.DB) error {
	log.Println("Running migration: Fitted projection tables")

	statements := []struct {
		label string
		sql   string
	}{
		{"fit_runs", `
			CREATE TABLE IF NOT EXISTS fit_runs (
				run_id       TEXT PRIMARY KEY,
				started_at   DATETIME NOT NULL,
				series_count INTEGER  NOT NULL,
				digest       TEXT     NOT NULL DEFAULT ''
			);`},
		{"fitted_projections", `
			CREATE TABLE IF NOT EXISTS fitted_projections (
				series_id   TEXT PRIMARY KEY,
				type        TEXT NOT NULL,
				k           REAL,
				k_std       REAL,
				l0          REAL,
				l1          REAL,
				b           REAL,
				b_std       REAL,
				anchor_date TEXT NOT NULL,
				anchor_y    REAL NOT NULL,
				date_origin TEXT NOT NULL,
				n_points    INTEGER NOT NULL DEFAULT 0,
				run_id      TEXT REFERENCES fit_runs(run_id),
				updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
			);`},
		{"fitted_projections indexes", `
			CREATE INDEX IF NOT EXISTS idx_fitted_run ON fitted_projections(run_id);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("fitted projection migration failed at [%s]: %w", s.label, err)
		}
		log.Printf("  > %s", s.label)
	}

	log.Println("Migration completed: Fitted projection tables ready")
	return nil
}

// Package store keeps fitted projection parameters in SQLite so a server can
// replay the latest offline fit without reading the JSON table.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"takeoverbench/internal/projection"
)

const timeFormat = "2006-01-02 15:04:05"

// Run describes one fitter invocation.
type Run struct {
	ID          string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	SeriesCount int       `json:"series_count"`
	Digest      string    `json:"digest"`
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
// Connections wait up to 5s on a lock and the journal runs in WAL mode, so a
// server can read while the fitter writes.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	enableWAL(db)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func enableWAL(db *sql.DB) {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("Warning: could not enable WAL mode: %v", err)
	}
}

// SaveRun replaces the stored table with table in a single transaction and
// records the run. digest identifies the table's canonical JSON.
func SaveRun(db *sql.DB, table projection.FittedTable, digest string) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.Exec(`
		INSERT INTO fit_runs (run_id, started_at, series_count, digest)
		VALUES (?, ?, ?, ?)
	`, runID, now, len(table), digest); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM fitted_projections`); err != nil {
		return "", fmt.Errorf("clear fitted projections: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fitted_projections
			(series_id, type, k, k_std, l0, l1, b, b_std, anchor_date, anchor_y, date_origin, n_points, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for id, p := range table {
		if _, err := stmt.Exec(id, string(p.Type), p.K, p.KStd, p.L0, p.L1, p.B, p.BStd,
			p.AnchorDate, p.AnchorY, p.DateOrigin, p.NPoints, runID, now); err != nil {
			return "", fmt.Errorf("insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	log.Printf("Stored %d fitted projections (run %s)", len(table), runID)
	return runID, nil
}

const selectFitted = `
	SELECT series_id, type, k, k_std, l0, l1, b, b_std, anchor_date, anchor_y, date_origin, n_points
	FROM fitted_projections`

type scanner interface {
	Scan(dest ...any) error
}

func scanFitted(row scanner) (string, projection.FittedParams, error) {
	var (
		id, typ                  string
		k, kStd, l0, l1, b, bStd sql.NullFloat64
		p                        projection.FittedParams
	)
	if err := row.Scan(&id, &typ, &k, &kStd, &l0, &l1, &b, &bStd,
		&p.AnchorDate, &p.AnchorY, &p.DateOrigin, &p.NPoints); err != nil {
		return "", projection.FittedParams{}, err
	}
	p.Type = projection.Shape(typ)
	p.K = nullable(k)
	p.KStd = nullable(kStd)
	p.L0 = nullable(l0)
	p.L1 = nullable(l1)
	p.B = nullable(b)
	p.BStd = nullable(bStd)
	return id, p, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// GetFitted returns the stored parameters for one series. A missing series
// is reported as ok == false with a nil error.
func GetFitted(db *sql.DB, seriesID string) (projection.FittedParams, bool, error) {
	_, p, err := scanFitted(db.QueryRow(selectFitted+` WHERE series_id = ?`, seriesID))
	if err == sql.ErrNoRows {
		return projection.FittedParams{}, false, nil
	}
	if err != nil {
		return projection.FittedParams{}, false, err
	}
	return p, true, nil
}

// ListFitted returns the whole stored table.
func ListFitted(db *sql.DB) (projection.FittedTable, error) {
	rows, err := db.Query(selectFitted + ` ORDER BY series_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := projection.FittedTable{}
	for rows.Next() {
		id, p, err := scanFitted(rows)
		if err != nil {
			return nil, err
		}
		table[id] = p
	}
	return table, rows.Err()
}

// LatestRun returns the most recent fitter run, or nil when none is stored.
func LatestRun(db *sql.DB) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, started_at, series_count, digest
		FROM fit_runs
		ORDER BY started_at DESC, rowid DESC LIMIT 1
	`)

	var r Run
	var ts string
	err := row.Scan(&r.ID, &ts, &r.SeriesCount, &r.Digest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeFormat, ts)
	return &r, nil
}

// Source serves fitted parameters from the database.
type Source struct {
	DB *sql.DB
}

// Fitted implements projection.ParamSource. Lookup errors are logged and
// treated as a missing series.
func (s Source) Fitted(seriesID string) (projection.FittedParams, bool) {
	p, ok, err := GetFitted(s.DB, seriesID)
	if err != nil {
		log.Printf("Warning: fitted lookup for %s failed: %v", seriesID, err)
		return projection.FittedParams{}, false
	}
	return p, ok
}

// Table returns every stored series.
func (s Source) Table() (projection.FittedTable, error) {
	return ListFitted(s.DB)
}

// internal/store/store_test.go
package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"takeoverbench/internal/projection"
)

// ── Test DB setup ───────────────────────────────────────────────────────────

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func f64(v float64) *float64 { return &v }

func testTable() projection.FittedTable {
	return projection.FittedTable{
		"cybench": {
			Type: projection.ShapeLogistic, K: f64(0.004), KStd: f64(0.001), L0: f64(0), L1: f64(1),
			AnchorDate: "2024-09-01T00:00:00", AnchorY: 0.4, DateOrigin: "2023-03-14T00:00:00", NPoints: 4,
		},
		"long_tasks": {
			Type: projection.ShapeExponential, B: f64(0.006),
			AnchorDate: "2024-09-01T00:00:00", AnchorY: 1, DateOrigin: "2023-03-14T00:00:00", NPoints: 4,
		},
	}
}

// ── SaveRun + GetFitted ─────────────────────────────────────────────────────

func TestSaveRunAndGetFitted(t *testing.T) {
	db := setupTestDB(t)

	runID, err := SaveRun(db, testTable(), "abc123")
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if len(runID) != 36 {
		t.Errorf("run id %q is not a UUID", runID)
	}

	got, ok, err := GetFitted(db, "cybench")
	if err != nil {
		t.Fatalf("GetFitted failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cybench to be stored")
	}
	if got.Type != projection.ShapeLogistic {
		t.Errorf("Type = %q, want logistic", got.Type)
	}
	if got.K == nil || *got.K != 0.004 {
		t.Errorf("K = %v, want 0.004", got.K)
	}
	if got.L0 == nil || *got.L0 != 0 {
		t.Errorf("L0 = %v, want 0", got.L0)
	}
	if got.B != nil || got.BStd != nil {
		t.Errorf("logistic row should have no exponential parameters, got b=%v b_std=%v", got.B, got.BStd)
	}
	if got.AnchorDate != "2024-09-01T00:00:00" || got.NPoints != 4 {
		t.Errorf("unexpected anchor/n_points: %+v", got)
	}

	exp, ok, _ := GetFitted(db, "long_tasks")
	if !ok || exp.B == nil || *exp.B != 0.006 {
		t.Errorf("long_tasks = %+v, want b=0.006", exp)
	}
	if exp.BStd != nil {
		t.Errorf("BStd = %v, want nil", *exp.BStd)
	}
}

func TestGetFitted_Missing(t *testing.T) {
	db := setupTestDB(t)

	_, ok, err := GetFitted(db, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected missing series to report ok=false")
	}
}

// ── ListFitted ──────────────────────────────────────────────────────────────

func TestListFitted_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	if _, err := SaveRun(db, testTable(), ""); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	table, err := ListFitted(db)
	if err != nil {
		t.Fatalf("ListFitted failed: %v", err)
	}
	want := testTable()
	if len(table) != len(want) {
		t.Fatalf("got %d rows, want %d", len(table), len(want))
	}
	for id, w := range want {
		g := table[id]
		if g.Type != w.Type || g.AnchorY != w.AnchorY || g.DateOrigin != w.DateOrigin {
			t.Errorf("%s: got %+v, want %+v", id, g, w)
		}
	}
}

func TestSaveRun_ReplacesPreviousTable(t *testing.T) {
	db := setupTestDB(t)

	if _, err := SaveRun(db, testTable(), "first"); err != nil {
		t.Fatalf("first SaveRun failed: %v", err)
	}
	second := projection.FittedTable{"long_tasks": testTable()["long_tasks"]}
	runID, err := SaveRun(db, second, "second")
	if err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	table, _ := ListFitted(db)
	if len(table) != 1 {
		t.Errorf("expected 1 row after replace, got %d", len(table))
	}
	if _, ok := table["cybench"]; ok {
		t.Error("cybench should have been removed by the second run")
	}

	run, err := LatestRun(db)
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if run == nil || run.ID != runID {
		t.Fatalf("LatestRun = %+v, want run %s", run, runID)
	}
	if run.SeriesCount != 1 || run.Digest != "second" {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt should be parsed")
	}
}

func TestLatestRun_Empty(t *testing.T) {
	db := setupTestDB(t)

	run, err := LatestRun(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

// ── Source ──────────────────────────────────────────────────────────────────

func TestSource_ReplaysStoredParams(t *testing.T) {
	db := setupTestDB(t)
	if _, err := SaveRun(db, testTable(), ""); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	fromDB := projection.ProjectFromFitted(Source{DB: db}, "long_tasks", 12)
	fromTable := projection.ProjectFromFitted(testTable(), "long_tasks", 12)

	if len(fromDB.Points) != 49 {
		t.Fatalf("expected 49 replayed points, got %d", len(fromDB.Points))
	}
	for i := range fromDB.Points {
		if fromDB.Points[i] != fromTable.Points[i] {
			t.Fatalf("point %d differs: db=%v table=%v", i, fromDB.Points[i], fromTable.Points[i])
		}
	}

	if _, ok := (Source{DB: db}).Fitted("unknown"); ok {
		t.Error("unknown series should not resolve")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fits.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := SaveRun(db, testTable(), ""); err != nil {
		t.Fatalf("SaveRun on file db failed: %v", err)
	}
	// Migrating twice must be harmless.
	if err := Migrate(db); err != nil {
		t.Errorf("second migration failed: %v", err)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout query failed: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestOpen_ConcurrentReaderDuringWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fits.db")

	writer, err := Open(path)
	if err != nil {
		t.Fatalf("Open writer failed: %v", err)
	}
	defer writer.Close()
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open reader failed: %v", err)
	}
	defer reader.Close()

	if _, err := SaveRun(writer, testTable(), "first"); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	tx, err := writer.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM fitted_projections`); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// The open write transaction must not block or hide committed rows.
	table, err := ListFitted(reader)
	if err != nil {
		t.Fatalf("ListFitted during write failed: %v", err)
	}
	if len(table) != 2 {
		t.Errorf("reader saw %d rows, want 2 committed rows", len(table))
	}
	tx.Rollback()
}

package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"mspro-labs/weekly-shop/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	// Every connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := createSchema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	runID, err := StartRun(db, "list.txt")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	items := []models.RunItem{
		{Item: models.Item{Name: "Milk", Quantity: 2}, Added: true, Checked: true},
		{Item: models.Item{Name: "Bread", Quantity: 1}, Added: true, Checked: true, Missing: true},
		{Item: models.Item{Name: "Saffron", Quantity: 1}, Checked: true, Missing: true},
	}
	if err := SaveRunItems(db, runID, items); err != nil {
		t.Fatalf("SaveRunItems failed: %v", err)
	}
	if err := FinishRun(db, runID, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := GetRunItems(db, runID)
	if err != nil {
		t.Fatalf("GetRunItems failed: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("GetRunItems mismatch (-want +got):\n%s", diff)
	}

	runs, err := ListRuns(db)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != StatusCompleted {
		t.Errorf("Status = %q; want %q", r.Status, StatusCompleted)
	}
	if r.Requested != 3 || r.Missing != 2 || r.Unchecked != 0 {
		t.Errorf("Counts = %d requested, %d missing, %d unchecked; want 3, 2, 0", r.Requested, r.Missing, r.Unchecked)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set")
	}
}

func TestSaveRunItemsReplaces(t *testing.T) {
	db := openTestDB(t)
	runID, _ := StartRun(db, "list.txt")

	first := []models.RunItem{{Item: models.Item{Name: "Milk", Quantity: 1}}}
	second := []models.RunItem{{Item: models.Item{Name: "Eggs", Quantity: 6}, Added: true}}
	if err := SaveRunItems(db, runID, first); err != nil {
		t.Fatalf("SaveRunItems failed: %v", err)
	}
	if err := SaveRunItems(db, runID, second); err != nil {
		t.Fatalf("SaveRunItems failed: %v", err)
	}

	got, _ := GetRunItems(db, runID)
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("GetRunItems mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedRun(t *testing.T) {
	db := openTestDB(t)
	runID, _ := StartRun(db, "list.txt")

	if err := FinishRun(db, runID, errors.New("login button not found")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	r, err := GetRun(db, runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if r.Status != StatusFailed || r.Error != "login button not found" {
		t.Errorf("Run = %+v", r)
	}

	if _, err := GetRun(db, runID+1); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows for unknown run, got %v", err)
	}
}

func TestEmbeddingCache(t *testing.T) {
	db := openTestDB(t)

	if _, err := GetCachedEmbedding(db, "milk"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("Expected a cache miss, got %v", err)
	}

	if err := SaveCachedEmbedding(db, "milk", []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SaveCachedEmbedding failed: %v", err)
	}
	// Existing entries are kept.
	if err := SaveCachedEmbedding(db, "milk", []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("SaveCachedEmbedding failed: %v", err)
	}

	blob, err := GetCachedEmbedding(db, "milk")
	if err != nil {
		t.Fatalf("GetCachedEmbedding failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, blob); diff != "" {
		t.Errorf("blob mismatch (-want +got):\n%s", diff)
	}

	n, err := ClearEmbeddingCache(db)
	if err != nil || n != 1 {
		t.Errorf("ClearEmbeddingCache = %d, %v; want 1, nil", n, err)
	}
}

func TestConnectCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := Connect(path)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer db.Close()

	if _, err := StartRun(db, "list.txt"); err != nil {
		t.Errorf("StartRun on fresh db failed: %v", err)
	}
}

func TestAbortedRunIsUnchecked(t *testing.T) {
	db := openTestDB(t)
	runID, _ := StartRun(db, "list.txt")

	// The shop stopped before the basket was read back.
	items := []models.RunItem{
		{Item: models.Item{Name: "Milk", Quantity: 2}, Added: true},
		{Item: models.Item{Name: "Bread", Quantity: 1}},
	}
	if err := SaveRunItems(db, runID, items); err != nil {
		t.Fatalf("SaveRunItems failed: %v", err)
	}

	got, err := GetRunItems(db, runID)
	if err != nil {
		t.Fatalf("GetRunItems failed: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("GetRunItems mismatch (-want +got):\n%s", diff)
	}

	runs, _ := ListRuns(db)
	if len(runs) != 1 || runs[0].Unchecked != 2 || runs[0].Missing != 0 {
		t.Errorf("ListRuns = %+v; want 2 unchecked, 0 missing", runs)
	}
}

func TestCreateSchemaAddsCheckedColumn(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	// run_items as it was before basket checks were recorded.
	_, err = db.Exec(`CREATE TABLE run_items (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  run_id INTEGER NOT NULL,
	  position INTEGER NOT NULL,
	  name TEXT NOT NULL,
	  quantity INTEGER NOT NULL,
	  added INTEGER DEFAULT 0,
	  missing INTEGER DEFAULT 0
	)`)
	if err != nil {
		t.Fatalf("Failed to create old table: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := createSchema(db); err != nil {
			t.Fatalf("createSchema pass %d failed: %v", i+1, err)
		}
	}

	runID, _ := StartRun(db, "list.txt")
	items := []models.RunItem{{Item: models.Item{Name: "Milk", Quantity: 1}, Checked: true}}
	if err := SaveRunItems(db, runID, items); err != nil {
		t.Fatalf("SaveRunItems after migration failed: %v", err)
	}
}

func TestConnectFailsOnDirectory(t *testing.T) {
	if db, err := Connect(t.TempDir()); err == nil {
		db.Close()
		t.Error("Expected Connect to fail when the path is a directory")
	}
}

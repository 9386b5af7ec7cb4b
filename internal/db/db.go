package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/weekly-shop/internal/models"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Connect opens a connection to the SQLite database and ensures the schema exists.
// It automatically applies recommended settings for concurrency (WAL mode).
func Connect(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Use robust connection settings to prevent "database locked" errors
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// createSchema is private as it's only called by Connect (and tests).
func createSchema(db *sql.DB) error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  list_path TEXT NOT NULL,
	  started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  finished_at TIMESTAMP,
	  status TEXT NOT NULL DEFAULT 'running',
	  error TEXT
	);
	`
	if _, err := db.Exec(runsTable); err != nil {
		return err
	}

	itemsTable := `
	CREATE TABLE IF NOT EXISTS run_items (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  run_id INTEGER NOT NULL,
	  position INTEGER NOT NULL,
	  name TEXT NOT NULL,
	  quantity INTEGER NOT NULL,
	  added INTEGER DEFAULT 0,
	  checked INTEGER DEFAULT 0,
	  missing INTEGER DEFAULT 0,
	  FOREIGN KEY (run_id) REFERENCES runs (id)
	);
	CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
	`
	if _, err := db.Exec(itemsTable); err != nil {
		return err
	}
	// Databases created before basket checks were tracked lack the column.
	if _, err := db.Exec(`ALTER TABLE run_items ADD COLUMN checked INTEGER DEFAULT 0`); err != nil &&
		!strings.Contains(err.Error(), "duplicate column name") {
		return err
	}

	// Cache of name embeddings used when picking search results
	cacheTable := `
	CREATE TABLE IF NOT EXISTS embedding_cache (
		text TEXT PRIMARY KEY,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(cacheTable); err != nil {
		return err
	}

	return nil
}

// StartRun records the start of a shop and returns its id.
func StartRun(db *sql.DB, listPath string) (int64, error) {
	res, err := db.Exec(`INSERT INTO runs (list_path, started_at, status) VALUES (?, ?, ?)`,
		listPath, time.Now().UTC(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stamps the run's end. A non-nil runErr marks it failed.
func FinishRun(db *sql.DB, runID int64, runErr error) error {
	status := StatusCompleted
	errText := sql.NullString{}
	if runErr != nil {
		status = StatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := db.Exec(`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), status, errText, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

// SaveRunItems replaces the items recorded for a run in one transaction.
func SaveRunItems(db *sql.DB, runID int64, items []models.RunItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_items WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_items (run_id, position, name, quantity, added, checked, missing)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, runID, i, item.Name, item.Quantity, item.Added, item.Checked, item.Missing); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save %s: %w", item.Name, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns recorded runs, newest first, with per-run counts.
func ListRuns(db *sql.DB) ([]models.Run, error) {
	rows, err := db.Query(`
		SELECT r.id, r.list_path, r.started_at, r.finished_at, r.status, r.error,
		       (SELECT COUNT(*) FROM run_items i WHERE i.run_id = r.id),
		       (SELECT COALESCE(SUM(i.missing), 0) FROM run_items i WHERE i.run_id = r.id AND i.checked = 1),
		       (SELECT COUNT(*) FROM run_items i WHERE i.run_id = r.id AND i.checked = 0)
		FROM runs r
		ORDER BY r.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var r models.Run
		var finished sql.NullTime
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.ListPath, &r.StartedAt, &finished, &r.Status, &errText, &r.Requested, &r.Missing, &r.Unchecked); err != nil {
			return nil, err
		}
		r.FinishedAt = finished.Time
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by id.
func GetRun(db *sql.DB, runID int64) (*models.Run, error) {
	var r models.Run
	var finished sql.NullTime
	var errText sql.NullString
	err := db.QueryRow(`SELECT id, list_path, started_at, finished_at, status, error FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.ListPath, &r.StartedAt, &finished, &r.Status, &errText)
	if err != nil {
		return nil, err
	}
	r.FinishedAt = finished.Time
	r.Error = errText.String
	return &r, nil
}

// GetRunItems returns a run's items in shopping-list order.
func GetRunItems(db *sql.DB, runID int64) ([]models.RunItem, error) {
	rows, err := db.Query(`SELECT name, quantity, added, checked, missing FROM run_items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.RunItem
	for rows.Next() {
		var i models.RunItem
		if err := rows.Scan(&i.Name, &i.Quantity, &i.Added, &i.Checked, &i.Missing); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// --- Embedding cache ---

// GetCachedEmbedding returns sql.ErrNoRows on a miss.
func GetCachedEmbedding(db *sql.DB, text string) ([]byte, error) {
	var blob []byte
	err := db.QueryRow("SELECT embedding FROM embedding_cache WHERE text = ?", text).Scan(&blob)
	return blob, err
}

// SaveCachedEmbedding stores a vector; an existing entry is kept.
func SaveCachedEmbedding(db *sql.DB, text string, blob []byte) error {
	_, err := db.Exec("INSERT OR IGNORE INTO embedding_cache (text, embedding) VALUES (?, ?)", text, blob)
	return err
}

// ClearEmbeddingCache wipes the entire cache.
func ClearEmbeddingCache(db *sql.DB) (int64, error) {
	res, err := db.Exec("DELETE FROM embedding_cache")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

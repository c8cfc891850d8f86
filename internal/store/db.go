// Package store keeps a local history of pipeline runs in SQLite. Only
// run bookkeeping lives here; the loyalty data itself never touches
// disk outside the CSV exports the user asks for.
package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	SourceFile string
	Status     string
	Purchases  int
	Products   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InitDB opens the runs database, creating tables on first use.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_file TEXT,
		status TEXT,
		purchases INTEGER DEFAULT 0,
		products INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	if _, err := db.Exec(runTable); err != nil {
		return err
	}
	if _, err := db.Exec(errorTable); err != nil {
		return err
	}
	return nil
}

// Close closes the runs database.
func Close() error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// SaveRun records a new pipeline run.
func SaveRun(runID, sourceFile string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, source_file, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, sourceFile, "running", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunCounts records how many records a run produced.
func SaveRunCounts(runID string, purchases, products int) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET purchases = ?, products = ?, updated_at = ? WHERE id = ?`,
		purchases, products, now, runID)
	return err
}

// SaveRunError records an error against a run.
func SaveRunError(runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), now)
	return err
}

// ListRuns returns all recorded runs, newest first.
func ListRuns() ([]Run, error) {
	rows, err := db.Query(`SELECT id, source_file, status, purchases, products, created_at, updated_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.Status, &r.Purchases, &r.Products, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

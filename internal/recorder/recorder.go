// Package recorder persists total-derivative results to a local SQLite
// database so runs can be compared across invocations. Recording is opt-in;
// the engine itself keeps no state between process runs.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    model      TEXT NOT NULL,
    mode       TEXT NOT NULL,
    solves     INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS totals (
    run_id  TEXT NOT NULL,
    of_var  TEXT NOT NULL,
    wrt_var TEXT NOT NULL,
    n_rows  INTEGER NOT NULL,
    n_cols  INTEGER NOT NULL,
    data    TEXT NOT NULL,
    PRIMARY KEY (run_id, of_var, wrt_var)
);
`

// Run is one recorded totals request.
type Run struct {
	ID      string
	Model   string
	Mode    string
	Solves  int
	Created time.Time
}

// Block is one (of, wrt) total-derivative block, row-major.
type Block struct {
	Of   string
	Wrt  string
	Rows int
	Cols int
	Data []float64
}

// Recorder stores runs in a local SQLite database in WAL mode.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath, enables WAL mode and busy
// timeout, and creates the schema tables if they do not exist.
func Open(ctx context.Context, dbPath string) (*Recorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("recorder: open database: %w", err)
	}

	// One connection: SQLite has a single writer, and pooled connections
	// would each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Record stores one run and its blocks in a single transaction, returning
// the generated run id.
func (r *Recorder) Record(ctx context.Context, modelName, mode string, solves int, blocks []Block) (string, error) {
	id := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("recorder: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, model, mode, solves) VALUES (?, ?, ?, ?)",
		id, modelName, mode, solves); err != nil {
		return "", fmt.Errorf("recorder: insert run: %w", err)
	}

	for _, b := range blocks {
		data, err := json.Marshal(b.Data)
		if err != nil {
			return "", fmt.Errorf("recorder: encode block (%s, %s): %w", b.Of, b.Wrt, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO totals (run_id, of_var, wrt_var, n_rows, n_cols, data) VALUES (?, ?, ?, ?, ?, ?)",
			id, b.Of, b.Wrt, b.Rows, b.Cols, string(data)); err != nil {
			return "", fmt.Errorf("recorder: insert block (%s, %s): %w", b.Of, b.Wrt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("recorder: commit: %w", err)
	}
	return id, nil
}

// Runs returns all recorded runs, newest first.
func (r *Recorder) Runs(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, model, mode, solves, created_at FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("recorder: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Model, &run.Mode, &run.Solves, &run.Created); err != nil {
			return nil, fmt.Errorf("recorder: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Blocks returns the stored blocks of one run.
func (r *Recorder) Blocks(ctx context.Context, runID string) ([]Block, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT of_var, wrt_var, n_rows, n_cols, data FROM totals WHERE run_id = ? ORDER BY of_var, wrt_var", runID)
	if err != nil {
		return nil, fmt.Errorf("recorder: query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		var data string
		if err := rows.Scan(&b.Of, &b.Wrt, &b.Rows, &b.Cols, &data); err != nil {
			return nil, fmt.Errorf("recorder: scan block: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &b.Data); err != nil {
			return nil, fmt.Errorf("recorder: decode block (%s, %s): %w", b.Of, b.Wrt, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// Close closes the underlying database.
func (r *Recorder) Close() error { return r.db.Close() }

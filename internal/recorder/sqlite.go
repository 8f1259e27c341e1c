package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run logs and a copy of every breadth history to SQLite.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS breadth_history (
			index_name  TEXT    NOT NULL,
			date        TEXT    NOT NULL,
			percentage  REAL    NOT NULL,
			above       INTEGER NOT NULL,
			below       INTEGER NOT NULL,
			total       INTEGER NOT NULL,
			index_close REAL,
			updated_at  INTEGER NOT NULL,
			PRIMARY KEY (index_name, date)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT    NOT NULL,
			index_name        TEXT    NOT NULL,
			source            TEXT,
			started_at        INTEGER NOT NULL,
			finished_at       INTEGER NOT NULL,
			symbols_requested INTEGER,
			symbols_fetched   INTEGER,
			symbols_failed    INTEGER,
			records_written   INTEGER,
			latest_date       TEXT,
			latest_pct        REAL,
			error             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest string
	if !evt.LatestDate.IsZero() {
		latest = evt.LatestDate.Format(model.DateLayout)
	}
	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, index_name, source, started_at, finished_at,
		 symbols_requested, symbols_fetched, symbols_failed, records_written,
		 latest_date, latest_pct, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.Index, evt.Source, evt.StartedAt.Unix(), evt.FinishedAt.Unix(),
		evt.SymbolsRequested, evt.SymbolsFetched, evt.SymbolsFailed, evt.RecordsWritten,
		latest, evt.LatestPct, evt.Err,
	)
	return err
}

// RecordBreadth upserts records for index inside one transaction.
func (r *SQLiteRecorder) RecordBreadth(index string, records model.BreadthHistory) error {
	if len(records) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO breadth_history
		(index_name, date, percentage, above, below, total, index_close, updated_at)
		VALUES (?,?,?,?,?,?,?,strftime('%s','now'))
		ON CONFLICT(index_name, date) DO UPDATE SET
			percentage  = excluded.percentage,
			above       = excluded.above,
			below       = excluded.below,
			total       = excluded.total,
			index_close = excluded.index_close,
			updated_at  = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var closeVal any
		if rec.IndexClose > 0 {
			closeVal = rec.IndexClose
		}
		if _, err := stmt.Exec(index, rec.Date.Format(model.DateLayout),
			rec.Percentage, rec.Above, rec.Below, rec.Total, closeVal); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", rec.Date.Format(model.DateLayout), err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

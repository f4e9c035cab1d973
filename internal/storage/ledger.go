package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rohmanhakim/docs-link-crawler/pkg/fileutil"
)

// Ledger is an audit trail of crawl runs and every URL they visited.
type Ledger interface {
	BeginRun(ctx context.Context, seed string, startedAt time.Time) (string, error)
	RecordVisit(ctx context.Context, runID string, visit VisitRecord) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, discovered, failed int) error
	Close() error
}

var (
	_ Ledger = (*SQLiteLedger)(nil)
	_ Ledger = NoopLedger{}
)

// SQLiteLedger stores the ledger in a single SQLite file.
type SQLiteLedger struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLiteLedger opens or creates the ledger database at dbPath.
func OpenSQLiteLedger(ctx context.Context, dbPath string) (*SQLiteLedger, error) {
	if err := fileutil.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fromFileError(err, dbPath)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, dbError(err, dbPath)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, dbError(err, dbPath)
	}

	ledger := &SQLiteLedger{db: db, dbPath: dbPath}
	if err := ledger.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, dbError(err, dbPath)
	}
	return ledger, nil
}

func (l *SQLiteLedger) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		discovered INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES crawl_runs(id),
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		http_status INTEGER,
		content_hash TEXT,
		size_bytes INTEGER DEFAULT 0,
		error TEXT,
		visited_at DATETIME NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_visits_run ON visits(run_id);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

func (l *SQLiteLedger) Path() string {
	return l.dbPath
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// BeginRun inserts a new run and returns its id.
func (l *SQLiteLedger) BeginRun(ctx context.Context, seed string, startedAt time.Time) (string, error) {
	runID := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO crawl_runs (id, seed, started_at) VALUES (?, ?, ?)`,
		runID, seed, startedAt.UTC(),
	)
	if err != nil {
		return "", dbError(err, l.dbPath)
	}
	return runID, nil
}

func (l *SQLiteLedger) RecordVisit(ctx context.Context, runID string, visit VisitRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO visits
			(run_id, url, depth, outcome, http_status, content_hash, size_bytes, error, visited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, visit.URL, visit.Depth, string(visit.Outcome), visit.HTTPStatus,
		visit.ContentHash, visit.SizeBytes, visit.Error, visit.VisitedAt.UTC(),
	)
	if err != nil {
		return dbError(err, l.dbPath)
	}
	return nil
}

func (l *SQLiteLedger) FinishRun(ctx context.Context, runID string, finishedAt time.Time, discovered, failed int) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE crawl_runs SET finished_at = ?, discovered = ?, failed = ? WHERE id = ?`,
		finishedAt.UTC(), discovered, failed, runID,
	)
	if err != nil {
		return dbError(err, l.dbPath)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dbError(fmt.Errorf("unknown run %s", runID), l.dbPath)
	}
	return nil
}

// Run returns the summary of a recorded run.
func (l *SQLiteLedger) Run(ctx context.Context, runID string) (RunSummary, error) {
	var (
		summary    RunSummary
		finishedAt sql.NullTime
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, seed, started_at, finished_at, discovered, failed FROM crawl_runs WHERE id = ?`,
		runID,
	).Scan(&summary.ID, &summary.Seed, &summary.StartedAt, &finishedAt, &summary.Discovered, &summary.Failed)
	if err != nil {
		return RunSummary{}, dbError(err, l.dbPath)
	}
	if finishedAt.Valid {
		summary.FinishedAt = finishedAt.Time
	}
	return summary, nil
}

// Visits returns the visits of a run in insertion order.
func (l *SQLiteLedger) Visits(ctx context.Context, runID string) ([]VisitRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT url, depth, outcome, http_status, content_hash, size_bytes, error, visited_at
		FROM visits WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, dbError(err, l.dbPath)
	}
	defer rows.Close()

	var visits []VisitRecord
	for rows.Next() {
		var (
			v       VisitRecord
			outcome string
		)
		if err := rows.Scan(&v.URL, &v.Depth, &outcome, &v.HTTPStatus, &v.ContentHash, &v.SizeBytes, &v.Error, &v.VisitedAt); err != nil {
			return nil, dbError(err, l.dbPath)
		}
		v.Outcome = VisitOutcome(outcome)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, l.dbPath)
	}
	return visits, nil
}

func dbError(err error, path string) *StorageError {
	return &StorageError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseDatabaseFailure,
		Path:      path,
	}
}

// NoopLedger discards everything.
type NoopLedger struct{}

func (NoopLedger) BeginRun(ctx context.Context, seed string, startedAt time.Time) (string, error) {
	return uuid.NewString(), nil
}

func (NoopLedger) RecordVisit(ctx context.Context, runID string, visit VisitRecord) error {
	return nil
}

func (NoopLedger) FinishRun(ctx context.Context, runID string, finishedAt time.Time, discovered, failed int) error {
	return nil
}

func (NoopLedger) Close() error {
	return nil
}

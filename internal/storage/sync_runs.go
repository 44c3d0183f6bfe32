package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncRun is the outcome of one Splitwise import.
type SyncRun struct {
	RequestID  string
	Fetched    int
	Imported   int
	Skipped    int
	FinishedAt time.Time
}

func (r *SQLiteRepository) RecordSyncRun(ctx context.Context, run SyncRun) error {
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (request_id, fetched, imported, skipped, finished_at) VALUES (?, ?, ?, ?, ?)`,
		run.RequestID, run.Fetched, run.Imported, run.Skipped, finished.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert sync run %s: %w", run.RequestID, err)
	}
	return nil
}

// LastSyncRun returns the most recent import, or ErrNotFound.
func (r *SQLiteRepository) LastSyncRun(ctx context.Context) (SyncRun, error) {
	var (
		run      SyncRun
		finished string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT request_id, fetched, imported, skipped, finished_at FROM sync_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.RequestID, &run.Fetched, &run.Imported, &run.Skipped, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("last sync run: %w", ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("query last sync run: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return run, fmt.Errorf("parse sync run time %q: %w", finished, err)
	}
	return run, nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/splitwise"
	"ledgerview/internal/storage"
)

// ExpenseSource is the Splitwise read side used by the importer.
type ExpenseSource interface {
	CurrentUser(ctx context.Context) (splitwise.User, error)
	Expenses(ctx context.Context, limit int) ([]splitwise.Expense, error)
	Group(ctx context.Context, id int64) (splitwise.Group, error)
}

// ImportStore persists imported expenses and the outcome of each run.
type ImportStore interface {
	UpsertExternal(ctx context.Context, e core.Expense) (bool, error)
	RecordSyncRun(ctx context.Context, run storage.SyncRun) error
}

// SyncWorker imports Splitwise expenses into the ledger. Already imported
// expenses are skipped by external id, so repeated runs are idempotent.
type SyncWorker struct {
	source       ExpenseSource
	store        ImportStore
	defaultLimit int

	mu     sync.Mutex
	userID int64
	groups map[int64]string
}

func NewSyncWorker(source ExpenseSource, store ImportStore, defaultLimit int) *SyncWorker {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &SyncWorker{
		source:       source,
		store:        store,
		defaultLimit: defaultLimit,
		groups:       make(map[int64]string),
	}
}

// HandleSyncRequest processes a sync request from AMQP.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	_, err := w.Import(ctx, msg.RequestID, msg.Limit)
	return err
}

// Import fetches up to limit recent expenses and stores the new ones.
func (w *SyncWorker) Import(ctx context.Context, requestID string, limit int) (storage.SyncRun, error) {
	if limit <= 0 {
		limit = w.defaultLimit
	}
	run := storage.SyncRun{RequestID: requestID}

	userID, err := w.currentUser(ctx)
	if err != nil {
		return run, err
	}

	expenses, err := w.source.Expenses(ctx, limit)
	if err != nil {
		return run, fmt.Errorf("fetch expenses: %w", err)
	}
	run.Fetched = len(expenses)

	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		expense, err := splitwise.MapExpense(e, userID, w.groupName(ctx, e.GroupID))
		if err != nil {
			if !errors.Is(err, splitwise.ErrSkipped) {
				slog.WarnContext(ctx, "Skipping unmappable expense", "splitwise_id", e.ID, "error", err)
			}
			run.Skipped++
			continue
		}

		inserted, err := w.store.UpsertExternal(ctx, expense)
		if err != nil {
			return run, fmt.Errorf("store expense %d: %w", e.ID, err)
		}
		if inserted {
			run.Imported++
		} else {
			run.Skipped++
		}
	}

	run.FinishedAt = time.Now()
	if err := w.store.RecordSyncRun(ctx, run); err != nil {
		return run, fmt.Errorf("record sync run: %w", err)
	}

	slog.InfoContext(ctx, "Splitwise import completed",
		"request_id", requestID,
		"fetched", run.Fetched,
		"imported", run.Imported,
		"skipped", run.Skipped)
	return run, nil
}

func (w *SyncWorker) currentUser(ctx context.Context) (int64, error) {
	w.mu.Lock()
	id := w.userID
	w.mu.Unlock()
	if id != 0 {
		return id, nil
	}

	u, err := w.source.CurrentUser(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve current user: %w", err)
	}
	w.mu.Lock()
	w.userID = u.ID
	w.mu.Unlock()
	return u.ID, nil
}

// groupName caches lookups. Lookup failures import the expense without a
// group prefix.
func (w *SyncWorker) groupName(ctx context.Context, id *int64) string {
	if id == nil || *id == 0 {
		return ""
	}

	w.mu.Lock()
	name, ok := w.groups[*id]
	w.mu.Unlock()
	if ok {
		return name
	}

	g, err := w.source.Group(ctx, *id)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve group name", "group_id", *id, "error", err)
		return ""
	}
	w.mu.Lock()
	w.groups[*id] = g.Name
	w.mu.Unlock()
	return g.Name
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ledgerview/internal/core"
)

var ErrSyncUnavailable = errors.New("sync queue not configured")

// ExpenseStore is the write side of the ledger.
type ExpenseStore interface {
	AddExpense(ctx context.Context, e core.Expense) (int64, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// SyncPublisher enqueues Splitwise imports.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, limit int) (string, error)
}

// ExpenseService orchestrates expense writes across SQLite and AMQP.
type ExpenseService struct {
	storage   ExpenseStore
	publisher SyncPublisher
}

// NewExpenseService accepts a nil publisher; RequestSync then reports
// ErrSyncUnavailable.
func NewExpenseService(storage ExpenseStore, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{storage: storage, publisher: publisher}
}

// Add saves a personal expense and returns its id.
func (s *ExpenseService) Add(ctx context.Context, e core.Expense) (int64, error) {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	if e.Source == "" {
		e.Source = core.SourcePersonal
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.AddExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense added", "id", id, "amount", e.Amount.String(), "category", e.Category)
	return id, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// RequestSync publishes a Splitwise import request and returns its id.
func (s *ExpenseService) RequestSync(ctx context.Context, limit int) (string, error) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync request")
		return "", ErrSyncUnavailable
	}
	id, err := s.publisher.PublishSyncRequest(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("request sync: %w", err)
	}
	return id, nil
}

package worker

import (
	"context"
	"errors"
	"testing"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/splitwise"
	"ledgerview/internal/storage"
)

type fakeSource struct {
	user        splitwise.User
	expenses    []splitwise.Expense
	groups      map[int64]string
	groupCalls  int
	userCalls   int
	gotLimit    int
	expensesErr error
}

func (f *fakeSource) CurrentUser(ctx context.Context) (splitwise.User, error) {
	f.userCalls++
	return f.user, nil
}

func (f *fakeSource) Expenses(ctx context.Context, limit int) ([]splitwise.Expense, error) {
	f.gotLimit = limit
	return f.expenses, f.expensesErr
}

func (f *fakeSource) Group(ctx context.Context, id int64) (splitwise.Group, error) {
	f.groupCalls++
	name, ok := f.groups[id]
	if !ok {
		return splitwise.Group{}, errors.New("not found")
	}
	return splitwise.Group{ID: id, Name: name}, nil
}

type fakeStore struct {
	seen map[int64]core.Expense
	runs []storage.SyncRun
}

func newFakeStore() *fakeStore { return &fakeStore{seen: make(map[int64]core.Expense)} }

func (f *fakeStore) UpsertExternal(ctx context.Context, e core.Expense) (bool, error) {
	if _, ok := f.seen[e.ExternalID]; ok {
		return false, nil
	}
	f.seen[e.ExternalID] = e
	return true, nil
}

func (f *fakeStore) RecordSyncRun(ctx context.Context, run storage.SyncRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func groupID(id int64) *int64 { return &id }

func sampleExpenses() []splitwise.Expense {
	deleted := "2024-03-02T00:00:00Z"
	return []splitwise.Expense{
		{ID: 1, Description: "Dinner", Date: "2024-03-01T20:00:00Z", GroupID: groupID(7),
			Users: []splitwise.Share{{UserID: 42, OwedShare: "15.00"}}},
		{ID: 2, Description: "Taxi", Date: "2024-03-02T08:00:00Z", GroupID: groupID(7),
			Users: []splitwise.Share{{UserID: 42, OwedShare: "8.25"}}},
		{ID: 3, Description: "Gone", Date: "2024-03-02T08:00:00Z", DeletedAt: &deleted,
			Users: []splitwise.Share{{UserID: 42, OwedShare: "1.00"}}},
		{ID: 4, Description: "Not mine", Date: "2024-03-03T08:00:00Z",
			Users: []splitwise.Share{{UserID: 7, OwedShare: "3.00"}}},
	}
}

func TestSyncWorker_Import(t *testing.T) {
	src := &fakeSource{user: splitwise.User{ID: 42}, expenses: sampleExpenses(), groups: map[int64]string{7: "Trip"}}
	store := newFakeStore()
	w := NewSyncWorker(src, store, 50)

	run, err := w.Import(context.Background(), "req-1", 0)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if src.gotLimit != 50 {
		t.Errorf("limit = %d, want default 50", src.gotLimit)
	}
	if run.Fetched != 4 || run.Imported != 2 || run.Skipped != 2 {
		t.Errorf("run = %+v, want fetched 4 imported 2 skipped 2", run)
	}
	if got := store.seen[1].Description; got != "[Trip] Dinner" {
		t.Errorf("description = %q, want [Trip] Dinner", got)
	}
	if src.groupCalls != 1 {
		t.Errorf("group lookups = %d, want 1 (cached)", src.groupCalls)
	}
	if len(store.runs) != 1 || store.runs[0].RequestID != "req-1" {
		t.Errorf("recorded runs = %+v", store.runs)
	}
}

func TestSyncWorker_ImportIsIdempotent(t *testing.T) {
	src := &fakeSource{user: splitwise.User{ID: 42}, expenses: sampleExpenses(), groups: map[int64]string{7: "Trip"}}
	store := newFakeStore()
	w := NewSyncWorker(src, store, 0)

	if _, err := w.Import(context.Background(), "a", 10); err != nil {
		t.Fatal(err)
	}
	run, err := w.Import(context.Background(), "b", 10)
	if err != nil {
		t.Fatal(err)
	}
	if run.Imported != 0 || run.Skipped != 4 {
		t.Errorf("second run = %+v, want nothing imported", run)
	}
	if src.userCalls != 1 {
		t.Errorf("current user lookups = %d, want 1", src.userCalls)
	}
}

func TestSyncWorker_HandleSyncRequest(t *testing.T) {
	src := &fakeSource{user: splitwise.User{ID: 42}, expenses: sampleExpenses()[:1]}
	store := newFakeStore()
	w := NewSyncWorker(src, store, 0)

	msg := amqp.NewSyncRequestMessage(5)
	if err := w.HandleSyncRequest(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncRequest() error = %v", err)
	}
	if src.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", src.gotLimit)
	}
	// group lookup failure still imports, without prefix
	if got := store.seen[1].Description; got != "Dinner" {
		t.Errorf("description = %q, want Dinner", got)
	}
}

func TestSyncWorker_FetchError(t *testing.T) {
	src := &fakeSource{user: splitwise.User{ID: 42}, expensesErr: errors.New("boom")}
	store := newFakeStore()
	w := NewSyncWorker(src, store, 0)

	if err := w.HandleSyncRequest(context.Background(), amqp.NewSyncRequestMessage(0)); err == nil {
		t.Fatal("expected error")
	}
	if len(store.runs) != 0 {
		t.Errorf("failed run should not be recorded, got %+v", store.runs)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
	applog "ledgerview/internal/log"
	"ledgerview/internal/results"
	"ledgerview/internal/services"
	"ledgerview/internal/session"
	"ledgerview/internal/sheets/memory"
	"ledgerview/internal/storage"
)

type fakeReports struct {
	overviewCalls int
}

func (f *fakeReports) Overview(ctx context.Context) (services.Overview, error) {
	f.overviewCalls++
	return services.Overview{
		Year:  2024,
		Month: 3,
		Total: decimal.RequireFromString("42.5"),
		Count: 3,
		Category: results.New(results.CategoriesPayload{
			Total:      results.ParseNumber("42.5"),
			Categories: []results.RawCategorySlice{{Name: "Food", Value: results.ParseNumber("42.5"), Count: 3}},
		}),
	}, nil
}

func (f *fakeReports) Trends(ctx context.Context, period core.Period) (*results.QueryResult, error) {
	return results.New(results.TrendsPayload{
		PeriodLabel: period.Label(),
		Data: []results.TimeSeriesPoint{
			{Date: "2024-03-01", Amount: results.ParseNumber("10")},
			{Date: "2024-03-02", Amount: results.ParseNumber("20")},
		},
	}), nil
}

func (f *fakeReports) Categories(ctx context.Context, period core.Period) (*results.QueryResult, error) {
	return results.New(results.CategoriesPayload{
		PeriodLabel: period.Label(),
		Total:       results.ParseNumber("100"),
		Categories: []results.RawCategorySlice{
			{Name: "Food", Value: results.ParseNumber("75"), Count: 2},
			{Name: "Travel", Value: results.ParseNumber("25"), Count: 1},
		},
	}), nil
}

func (f *fakeReports) Recent(ctx context.Context, limit int) (*results.QueryResult, error) {
	return results.New(results.ListPayload{Items: []results.ListItem{
		{Description: fmt.Sprintf("limit %d", limit), Amount: results.ParseNumber("2.5")},
	}}), nil
}

type fakeExpenses struct {
	added     []core.Expense
	syncErr   error
	deleteErr error
}

func (f *fakeExpenses) Add(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	f.added = append(f.added, e)
	return int64(len(f.added)), nil
}

func (f *fakeExpenses) Delete(ctx context.Context, id int64) error {
	return f.deleteErr
}

func (f *fakeExpenses) RequestSync(ctx context.Context, limit int) (string, error) {
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return fmt.Sprintf("req-%d", limit), nil
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	deps.Logger = applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(10, time.Hour)
	}
	s := NewServer(Config{Addr: ":0"}, deps)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInstruction(t *testing.T, rec *httptest.ResponseRecorder) results.RenderInstruction {
	t.Helper()
	var in results.RenderInstruction
	if err := json.Unmarshal(rec.Body.Bytes(), &in); err != nil {
		t.Fatalf("decode instruction: %v (body %s)", err, rec.Body.String())
	}
	return in
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec := do(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		widget results.Widget
	}{
		{"text", `{"data_type":"text","data":{"text":"hello"}}`, results.WidgetText},
		{"type alias", `{"type":"TEXT","data":{"text":"hello"}}`, results.WidgetText},
		{"null", `null`, results.WidgetAwaiting},
		{"malformed json", `{"data_type":`, results.WidgetEmpty},
		{"unknown kind", `{"data_type":"pie","data":{}}`, results.WidgetEmpty},
		{"mismatched data", `{"data_type":"table","data":"oops"}`, results.WidgetEmpty},
	}
	s := newTestServer(t, Dependencies{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/render", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := decodeInstruction(t, rec).Widget; got != tt.widget {
				t.Errorf("widget = %q, want %q", got, tt.widget)
			}
		})
	}
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := do(t, s, http.MethodPost, "/api/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create body = %s", rec.Body.String())
	}
	base := "/api/sessions/" + created.ID

	if in := decodeInstruction(t, do(t, s, http.MethodGet, base+"/current", "")); in.Widget != results.WidgetAwaiting {
		t.Errorf("initial widget = %q, want awaiting", in.Widget)
	}

	do(t, s, http.MethodPost, base+"/queries", `{"question":"how much on food?"}`)
	rec = do(t, s, http.MethodPost, base+"/queries", "")
	var second session.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil || second.Seq != 2 {
		t.Fatalf("second ticket = %s", rec.Body.String())
	}

	// the first query's answer arrives late
	rec = do(t, s, http.MethodPost, base+"/results", `{"seq":1,"data_type":"text","data":{"text":"old"}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale status = %d, want 409", rec.Code)
	}
	var stale staleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stale); err != nil {
		t.Fatal(err)
	}
	if stale.Current.Widget != results.WidgetAwaiting {
		t.Errorf("stale current = %q", stale.Current.Widget)
	}

	rec = do(t, s, http.MethodPost, base+"/results", `{"seq":2,"data_type":"text","data":{"text":"new"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deliver status = %d", rec.Code)
	}
	in := decodeInstruction(t, do(t, s, http.MethodGet, base+"/current", ""))
	if in.Text == nil || in.Text.Text != "new" {
		t.Errorf("current = %+v", in)
	}

	if rec := do(t, s, http.MethodPost, base+"/results", `{"seq":2,"data_type":"text","data":{"text":"again"}}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate delivery status = %d, want 409", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/api/sessions/missing/current", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, base+"/current", ""); rec.Code != http.StatusNotFound {
		t.Errorf("deleted session status = %d", rec.Code)
	}
}

func TestTranscript(t *testing.T) {
	store := session.NewStore(10, time.Hour)
	id, _, err := store.Create()
	if err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, Dependencies{Sessions: store})
	base := "/api/sessions/" + id + "/transcript"

	if rec := do(t, s, http.MethodPost, base, `{"role":"system","content":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, base, `{"role":"assistant","content":"You spent $12.30"}`); rec.Code != http.StatusCreated {
		t.Errorf("append status = %d", rec.Code)
	}

	var tr transcriptResponse
	if err := json.Unmarshal(do(t, s, http.MethodGet, base, "").Body.Bytes(), &tr); err != nil {
		t.Fatal(err)
	}
	if len(tr.Messages) != 1 || tr.Messages[0].Role != session.RoleAssistant {
		t.Errorf("messages = %+v", tr.Messages)
	}

	if rec := do(t, s, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("reset status = %d", rec.Code)
	}
	if err := json.Unmarshal(do(t, s, http.MethodGet, base, "").Body.Bytes(), &tr); err != nil {
		t.Fatal(err)
	}
	if len(tr.Messages) != 0 {
		t.Errorf("messages after reset = %d", len(tr.Messages))
	}
}

func TestToolResults(t *testing.T) {
	s := newTestServer(t, Dependencies{})

	rec := do(t, s, http.MethodPost, "/api/tool-results",
		`{"tool":"run_query","content":"description: Coffee | amount: 3.5 | category: Food"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if in := decodeInstruction(t, rec); in.Widget != results.WidgetList {
		t.Errorf("widget = %q, want list", in.Widget)
	}

	rec = do(t, s, http.MethodPost, "/api/tool-results", `{"tool":"run_query","content":"No results"}`)
	if in := decodeInstruction(t, rec); in.Widget != results.WidgetAwaiting {
		t.Errorf("empty tool output widget = %q, want awaiting", in.Widget)
	}

	if rec := do(t, s, http.MethodPost, "/api/tool-results", `{"tool":"rm","content":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported tool status = %d", rec.Code)
	}
}

func TestReports(t *testing.T) {
	reports := &fakeReports{}
	s := newTestServer(t, Dependencies{Reports: reports})

	rec := do(t, s, http.MethodGet, "/api/categories?period=week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("categories status = %d", rec.Code)
	}
	in := decodeInstruction(t, rec)
	if in.Categories == nil || len(in.Categories.Slices) != 2 {
		t.Fatalf("categories = %+v", in)
	}
	if got := in.Categories.Slices[0].ShareText; got != "75.0%" {
		t.Errorf("food share = %q", got)
	}

	if rec := do(t, s, http.MethodGet, "/api/trends?period=decade", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d", rec.Code)
	}
	in = decodeInstruction(t, do(t, s, http.MethodGet, "/api/trends", ""))
	if in.Trends == nil || in.Trends.Comparison == nil || !in.Trends.Comparison.IsIncrease {
		t.Errorf("trends = %+v", in.Trends)
	}

	var ov overviewResponse
	if err := json.Unmarshal(do(t, s, http.MethodGet, "/api/overview", "").Body.Bytes(), &ov); err != nil {
		t.Fatal(err)
	}
	if ov.Total != "42.50" || ov.Count != 3 || ov.Categories.Widget != results.WidgetCategories {
		t.Errorf("overview = %+v", ov)
	}

	in = decodeInstruction(t, do(t, s, http.MethodGet, "/api/expenses?limit=5000", ""))
	if in.List == nil || in.List.Items[0].Description != fmt.Sprintf("limit %d", maxRecentLimit) {
		t.Errorf("recent = %+v", in.List)
	}
	if rec := do(t, s, http.MethodGet, "/api/expenses?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d", rec.Code)
	}
}

func TestReportsUnavailable(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	for _, path := range []string{"/api/overview", "/api/trends", "/api/categories", "/api/expenses"} {
		if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestCreateExpense(t *testing.T) {
	exp := &fakeExpenses{}
	s := newTestServer(t, Dependencies{Expenses: exp})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"description":"Lunch","amount":"12,30","category":"Food","date":"2024-03-05"}`, http.StatusCreated},
		{"default date", `{"description":"Coffee","amount":"3"}`, http.StatusCreated},
		{"zero amount", `{"description":"Lunch","amount":"0"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"Lunch","amount":"1","date":"05/03/2024"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"description":"  ","amount":"1"}`, http.StatusUnprocessableEntity},
		{"not json", `amount=1`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, "/api/expenses", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
	if len(exp.added) != 2 {
		t.Fatalf("added %d expenses, want 2", len(exp.added))
	}
	if exp.added[0].Amount.Cents != 1230 || exp.added[0].Date.String() != "2024-03-05" {
		t.Errorf("first expense = %+v", exp.added[0])
	}
	if exp.added[1].Source != core.SourcePersonal {
		t.Errorf("source = %q", exp.added[1].Source)
	}
}

func TestDeleteExpense(t *testing.T) {
	exp := &fakeExpenses{}
	s := newTestServer(t, Dependencies{Expenses: exp})

	if rec := do(t, s, http.MethodDelete, "/api/expenses/7", ""); rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	exp.deleteErr = fmt.Errorf("delete expense 8: %w", storage.ErrNotFound)
	if rec := do(t, s, http.MethodDelete, "/api/expenses/8", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/expenses/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestSync(t *testing.T) {
	exp := &fakeExpenses{}
	s := newTestServer(t, Dependencies{Expenses: exp})

	rec := do(t, s, http.MethodPost, "/api/sync", `{"limit":50}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp syncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.RequestID != "req-50" {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := do(t, s, http.MethodPost, "/api/sync", `{"limit":5000}`); rec.Code != http.StatusBadRequest {
		t.Errorf("over limit status = %d", rec.Code)
	}

	exp.syncErr = services.ErrSyncUnavailable
	if rec := do(t, s, http.MethodPost, "/api/sync", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable status = %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	if rec := do(t, newTestServer(t, Dependencies{}), http.MethodPost, "/api/export", `{"data_type":"text","data":{"text":"x"}}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d", rec.Code)
	}

	exporter := memory.New()
	s := newTestServer(t, Dependencies{Exporter: exporter})
	rec := do(t, s, http.MethodPost, "/api/export", `{"data_type":"text","data":{"text":"Spent $40 on food"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp exportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ref != "mem:1" || resp.Instruction.Widget != results.WidgetText {
		t.Errorf("response = %+v", resp)
	}
	if exporter.Len() != 1 {
		t.Errorf("exports = %d", exporter.Len())
	}
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/render", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

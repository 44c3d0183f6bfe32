package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	applog "ledgerview/internal/log"
	"ledgerview/internal/results"
	"ledgerview/internal/services"
	"ledgerview/internal/storage"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

type overviewResponse struct {
	Year       int                       `json:"year"`
	Month      int                       `json:"month"`
	Total      string                    `json:"total"`
	Count      int                       `json:"count"`
	Categories results.RenderInstruction `json:"categories"`
}

type createExpenseRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type createExpenseResponse struct {
	ID int64 `json:"id"`
}

type syncRequest struct {
	Limit int `json:"limit"`
}

type syncResponse struct {
	RequestID string `json:"request_id"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "reports not configured")
		return
	}
	// concurrent dashboard loads share one query
	v, err, _ := s.overview.Do("overview", func() (any, error) {
		return s.deps.Reports.Overview(r.Context())
	})
	if err != nil {
		s.reportError(w, r, "overview", err)
		return
	}
	ov := v.(services.Overview)
	writeJSON(w, http.StatusOK, overviewResponse{
		Year:       ov.Year,
		Month:      ov.Month,
		Total:      ov.Total.StringFixed(2),
		Count:      ov.Count,
		Categories: results.Dispatch(ov.Category),
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	s.periodReport(w, r, "trends", func(ctx context.Context, p core.Period) (*results.QueryResult, error) {
		return s.deps.Reports.Trends(ctx, p)
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.periodReport(w, r, "categories", func(ctx context.Context, p core.Period) (*results.QueryResult, error) {
		return s.deps.Reports.Categories(ctx, p)
	})
}

func (s *Server) periodReport(w http.ResponseWriter, r *http.Request, name string,
	query func(context.Context, core.Period) (*results.QueryResult, error)) {
	if s.deps.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "reports not configured")
		return
	}
	period, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := query(r.Context(), period)
	if err != nil {
		s.reportError(w, r, name, err)
		return
	}
	inst := results.Dispatch(res)
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Report dispatched",
		applog.FieldPeriod, string(period),
		applog.FieldWidget, string(inst.Widget),
	)
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleRecentExpenses(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "reports not configured")
		return
	}
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}
	res, err := s.deps.Reports.Recent(r.Context(), limit)
	if err != nil {
		s.reportError(w, r, "recent expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, results.Dispatch(res))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if s.deps.Expenses == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	now := time.Now()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if req.Date != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	id, err := s.deps.Expenses.Add(r.Context(), core.Expense{
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
		Source:      core.SourcePersonal,
		Date:        date,
	})
	if isValidation(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.reportError(w, r, "add expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, createExpenseResponse{ID: id})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if s.deps.Expenses == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	err = s.deps.Expenses.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		s.reportError(w, r, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Expenses == nil {
		writeError(w, http.StatusServiceUnavailable, "sync queue not configured")
		return
	}
	var req syncRequest
	if b, err := readBody(w, r); err == nil && len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Limit < 0 || req.Limit > amqp.MaxSyncLimit {
		writeError(w, http.StatusBadRequest, "limit out of range")
		return
	}

	id, err := s.deps.Expenses.RequestSync(r.Context(), req.Limit)
	if errors.Is(err, services.ErrSyncUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to publish sync request", err, applog.ComponentAMQP, applog.OpSync, nil)
		writeError(w, http.StatusBadGateway, "could not queue sync request")
		return
	}
	writeJSON(w, http.StatusAccepted, syncResponse{RequestID: id})
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, op string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldOperation, op,
		applog.FieldError, err,
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func isValidation(err error) bool {
	for _, target := range []error{core.ErrInvalidAmount, core.ErrInvalidDate, core.ErrEmptyDescription, core.ErrInvalidSource} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerview/internal/core"
	applog "ledgerview/internal/log"
	"ledgerview/internal/middleware/ratelimit"
	"ledgerview/internal/middleware/security"
	"ledgerview/internal/results"
	"ledgerview/internal/services"
	"ledgerview/internal/session"
	"ledgerview/internal/sheets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"
)

// Reports answers the dashboard queries.
type Reports interface {
	Overview(ctx context.Context) (services.Overview, error)
	Trends(ctx context.Context, period core.Period) (*results.QueryResult, error)
	Categories(ctx context.Context, period core.Period) (*results.QueryResult, error)
	Recent(ctx context.Context, limit int) (*results.QueryResult, error)
}

// Expenses is the write side of the ledger.
type Expenses interface {
	Add(ctx context.Context, e core.Expense) (int64, error)
	Delete(ctx context.Context, id int64) error
	RequestSync(ctx context.Context, limit int) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the server. Reports, Expenses, Exporter and DB may be
// nil; the routes that need them then answer 503.
type Dependencies struct {
	Sessions *session.Store
	Reports  Reports
	Expenses Expenses
	Exporter sheets.ResultExporter
	DB       Pinger
	Logger   *applog.Logger
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	deps        Dependencies
	rateLimiter *ratelimit.Limiter
	ipExtractor *security.IPExtractor
	overview    singleflight.Group

	shutdownOnce sync.Once
}

func NewServer(cfg Config, deps Dependencies) *Server {
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(1000, 30*time.Minute)
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		ipExtractor: security.NewIPExtractor(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(deps.Logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(applog.AccessLog(s.ipExtractor.ClientIP))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/trends", s.handleTrends)
		r.Get("/categories", s.handleCategories)
		r.Get("/expenses", s.handleRecentExpenses)
		r.Get("/sessions/{id}/current", s.handleCurrent)
		r.Get("/sessions/{id}/transcript", s.handleTranscript)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware(s.ipExtractor.ClientIP, s.handleRateLimited))

			r.Post("/render", s.handleRender)
			r.Post("/tool-results", s.handleToolResult)
			r.Post("/export", s.handleExport)

			r.Post("/sessions", s.handleCreateSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Post("/sessions/{id}/queries", s.handleIssueQuery)
			r.Post("/sessions/{id}/results", s.handleDeliverResult)
			r.Post("/sessions/{id}/transcript", s.handleAppendTranscript)
			r.Delete("/sessions/{id}/transcript", s.handleResetTranscript)

			r.Post("/expenses", s.handleCreateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)
			r.Post("/sync", s.handleSync)
		})
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

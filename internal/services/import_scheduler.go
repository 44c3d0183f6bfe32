package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ImportFunc runs one import of up to limit expenses.
type ImportFunc func(ctx context.Context, requestID string, limit int) error

// ImportSchedulerConfig holds configuration for the periodic import.
type ImportSchedulerConfig struct {
	// Interval between imports (default: 1h)
	Interval time.Duration

	// Limit is the number of recent expenses fetched per run (default: 100)
	Limit int

	// RunOnStart imports immediately instead of waiting one interval
	RunOnStart bool
}

func DefaultImportSchedulerConfig() ImportSchedulerConfig {
	return ImportSchedulerConfig{
		Interval:   time.Hour,
		Limit:      100,
		RunOnStart: true,
	}
}

// ImportScheduler runs an import on a fixed interval until stopped.
// A failing run is logged and retried at the next tick.
type ImportScheduler struct {
	run    ImportFunc
	config ImportSchedulerConfig

	mu      sync.Mutex
	running bool
	runs    int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewImportScheduler(run ImportFunc, config ImportSchedulerConfig) *ImportScheduler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Limit <= 0 {
		config.Limit = 100
	}
	return &ImportScheduler{run: run, config: config}
}

// Start begins the loop. Returns an error if already running.
func (s *ImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("import scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Import scheduler started",
		"interval", s.config.Interval,
		"limit", s.config.Limit)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *ImportScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Import scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Import scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ImportScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Runs reports how many imports have been attempted.
func (s *ImportScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *ImportScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ImportScheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.runs++
	n := s.runs
	s.mu.Unlock()

	requestID := fmt.Sprintf("scheduled-%d-%d", time.Now().Unix(), n)
	if err := s.run(ctx, requestID, s.config.Limit); err != nil {
		slog.ErrorContext(ctx, "Scheduled import failed", "request_id", requestID, "error", err)
	}
}

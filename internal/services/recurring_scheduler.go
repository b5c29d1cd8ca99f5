package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fluxo/internal/core"
)

// SchedulerConfig holds configuration for the recurring scheduler.
type SchedulerConfig struct {
	// Interval between generation runs (default: 1h).
	Interval time.Duration

	// MaxRetries is how many times a transient failure is retried within
	// one run (default: 3).
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles on every retry
	// (default: 2s).
	RetryDelay time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// Generator is implemented by RecurringGenerator.
type Generator interface {
	GenerateCurrent(ctx context.Context, now time.Time, kinds ...core.SourceKind) (GenerationReport, error)
}

// RecurringScheduler runs generation for the current month on a fixed
// interval. Each run is idempotent, so overlapping schedulers in several
// processes only ever create an entry once.
type RecurringScheduler struct {
	gen    Generator
	config SchedulerConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    GenerationReport
	lastErr error
}

func NewRecurringScheduler(gen Generator, config SchedulerConfig) *RecurringScheduler {
	def := DefaultSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	return &RecurringScheduler{gen: gen, config: config, now: time.Now}
}

// Start begins the run loop. Returns an error if already running.
func (s *RecurringScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("recurring scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Recurring scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *RecurringScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Recurring scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *RecurringScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the outcome of the most recent run.
func (s *RecurringScheduler) Last() (GenerationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *RecurringScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce generates the current month, retrying transient failures with
// exponential backoff.
func (s *RecurringScheduler) RunOnce(ctx context.Context) (GenerationReport, error) {
	var (
		rep GenerationReport
		err error
	)
	delay := s.config.RetryDelay
	for attempt := 0; ; attempt++ {
		rep, err = s.gen.GenerateCurrent(ctx, s.now())
		if err == nil || !core.IsTransient(err) || attempt >= s.config.MaxRetries {
			break
		}
		slog.WarnContext(ctx, "Recurring generation failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-s.stopCh:
			return rep, err
		case <-ctx.Done():
			return rep, ctx.Err()
		}
		delay *= 2
	}

	if err != nil {
		slog.ErrorContext(ctx, "Recurring generation failed", "error", err)
	}

	s.mu.Lock()
	s.last, s.lastErr = rep, err
	s.mu.Unlock()
	return rep, err
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"fluxo/internal/core"
)

type scriptedGenerator struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (g *scriptedGenerator) GenerateCurrent(_ context.Context, now time.Time, _ ...core.SourceKind) (GenerationReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return GenerationReport{}, err
		}
	}
	return GenerationReport{Month: core.MonthOf(now, time.UTC).Key(), Generated: 1}, nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestRunOnceRetriesTransientFailures(t *testing.T) {
	transient := core.Transient("commit", errUnavailable)
	tests := []struct {
		name      string
		errs      []error
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", nil, 3, 1, false},
		{"recovers after two failures", []error{transient, transient}, 3, 3, false},
		{"gives up", []error{transient, transient, transient}, 2, 3, true},
		{"does not retry validation", []error{core.Invalid("kinds", "unknown")}, 3, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{errs: tt.errs}
			s := NewRecurringScheduler(gen, SchedulerConfig{Interval: time.Hour, MaxRetries: tt.retries, RetryDelay: time.Millisecond})
			s.now = func() time.Time { return noon(2025, 3, 15) }

			rep, err := s.RunOnce(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if gen.Calls() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", gen.Calls(), tt.wantCalls)
			}
			if !tt.wantErr && rep.Month != "2025-03" {
				t.Errorf("month = %s", rep.Month)
			}
			if _, lastErr := s.Last(); (lastErr != nil) != tt.wantErr {
				t.Errorf("last error = %v", lastErr)
			}
		})
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	gen := &scriptedGenerator{}
	s := NewRecurringScheduler(gen, SchedulerConfig{Interval: 10 * time.Millisecond, RetryDelay: time.Millisecond})
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second start should fail")
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}
	waitFor(t, func() bool { return gen.Calls() >= 2 })

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("stop is idempotent: %v", err)
	}
}

func TestSchedulerDrivesGenerator(t *testing.T) {
	s := newFlakyStore()
	seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	sched := NewRecurringScheduler(g, SchedulerConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	sched.now = func() time.Time { return noon(2025, 2, 10) }

	rep, err := sched.RunOnce(context.Background())
	if err != nil || rep.Generated != 2 {
		t.Fatalf("report = %+v, %v", rep, err)
	}
	rep, err = sched.RunOnce(context.Background())
	if err != nil || rep.Generated != 0 {
		t.Fatalf("second run = %+v, %v", rep, err)
	}
}

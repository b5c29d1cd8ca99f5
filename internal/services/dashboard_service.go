package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fluxo/internal/cache"
	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/report"
)

// DashboardService computes summaries from store snapshots, caching them
// until the next change notification.
type DashboardService struct {
	store SnapshotStore
	hub   *events.Hub
	cache cache.Cache[report.Summary]
	loc   *time.Location

	// generation counts invalidations; it is bumped before every purge.
	generation atomic.Uint64
}

func NewDashboardService(s SnapshotStore, hub *events.Hub, c cache.Cache[report.Summary], loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{store: s, hub: hub, cache: c, loc: loc}
}

// Run purges the cache on every change until ctx is done.
func (d *DashboardService) Run(ctx context.Context) {
	if d.hub == nil || d.cache == nil {
		return
	}
	sub := d.hub.Subscribe(nil)
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub.C:
			if !ok {
				return
			}
			d.generation.Add(1)
			d.cache.Purge()
			slog.DebugContext(ctx, "Summary cache invalidated", "collection", c.Collection, "action", c.Action)
		}
	}
}

func cacheKey(p core.Period, f report.Filter) string {
	return fmt.Sprintf("%d|%d|%s", p.From.UnixNano(), p.To.UnixNano(), f.AccountID)
}

// Summary returns the dashboard summary of p, optionally for one account.
func (d *DashboardService) Summary(ctx context.Context, p core.Period, f report.Filter) (report.Summary, error) {
	key := cacheKey(p, f)
	gen := d.generation.Load()
	if d.cache != nil {
		if s, ok := d.cache.Get(key); ok {
			return s, nil
		}
	}

	snap, err := loadSnapshot(ctx, d.store, p)
	if err != nil {
		return report.Summary{}, err
	}
	s := report.BuildSummary(snap, p, f, d.loc)

	if d.cache != nil {
		d.cache.Set(key, s)
		// a change invalidated the cache while the snapshot was loading
		if d.generation.Load() != gen {
			d.cache.Delete(key)
		}
	}
	return s, nil
}

// Watch sends the current summary and a fresh one after every change,
// until ctx is done. The channel is closed on return. Recomputation errors
// are logged and skipped.
func (d *DashboardService) Watch(ctx context.Context, p core.Period, f report.Filter) (<-chan report.Summary, error) {
	first, err := d.Summary(ctx, p, f)
	if err != nil {
		return nil, err
	}
	out := make(chan report.Summary, 1)
	out <- first

	if d.hub == nil {
		close(out)
		return out, nil
	}
	sub := d.hub.Subscribe(nil)

	go func() {
		defer close(out)
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				// the cache may still hold the old value if Run has not
				// seen this change yet
				if d.cache != nil {
					d.cache.Delete(cacheKey(p, f))
				}
				s, err := d.Summary(ctx, p, f)
				if err != nil {
					slog.WarnContext(ctx, "Summary recomputation failed", "error", err)
					continue
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

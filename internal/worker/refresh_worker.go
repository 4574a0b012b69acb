package worker

import (
	"context"
	"log/slog"
	"time"

	"orderdesk/internal/metrics"
	"orderdesk/internal/query"
)

// Cache is the part of the query cache the worker drives.
type Cache interface {
	Stale() []query.Key
	Refresh(ctx context.Context, key query.Key) error
}

// RefreshWorker re-fetches stale queries so views read fresh data after a
// push event or a mutation invalidated them.
type RefreshWorker struct {
	cache     Cache
	interval  time.Duration
	batchSize int
	online    func() bool

	// keys whose last refresh failed, held back until backoff passes so
	// they cannot fill every batch
	failed  map[query.Key]time.Time
	backoff time.Duration
	now     func() time.Time
}

// NewRefreshWorker builds a worker; online reports whether backend calls
// should be attempted (e.g. a session exists).
func NewRefreshWorker(cache Cache, interval time.Duration, online func() bool) *RefreshWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if online == nil {
		online = func() bool { return true }
	}
	return &RefreshWorker{
		cache:     cache,
		interval:  interval,
		batchSize: 5,
		online:    online,
		failed:    make(map[query.Key]time.Time),
		backoff:   6 * interval,
		now:       time.Now,
	}
}

func (w *RefreshWorker) Start(ctx context.Context) {
	slog.Info("starting refresh worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh worker stopped")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch refreshes up to batchSize stale keys and returns how many
// succeeded. Keys that failed recently are skipped.
func (w *RefreshWorker) processBatch(ctx context.Context) int {
	if !w.online() {
		return 0
	}
	now := w.now()
	stale := w.cache.Stale()
	w.prune(stale)

	keys := make([]query.Key, 0, w.batchSize)
	for _, key := range stale {
		if len(keys) == w.batchSize {
			break
		}
		if at, ok := w.failed[key]; ok && now.Sub(at) < w.backoff {
			continue
		}
		keys = append(keys, key)
	}

	refreshed := 0
	for _, key := range keys {
		if err := w.cache.Refresh(ctx, key); err != nil {
			w.failed[key] = now
			metrics.CacheRefreshesTotal.WithLabelValues("error").Inc()
			slog.Warn("failed to refresh query", "key", key.String(), "error", err)
			continue
		}
		delete(w.failed, key)
		metrics.CacheRefreshesTotal.WithLabelValues("ok").Inc()
		slog.Debug("query refreshed", "key", key.String())
		refreshed++
	}
	return refreshed
}

// prune forgets failures for keys that are no longer stale.
func (w *RefreshWorker) prune(stale []query.Key) {
	if len(w.failed) == 0 {
		return
	}
	current := make(map[query.Key]struct{}, len(stale))
	for _, k := range stale {
		current[k] = struct{}{}
	}
	for k := range w.failed {
		if _, ok := current[k]; !ok {
			delete(w.failed, k)
		}
	}
}

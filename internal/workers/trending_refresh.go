package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialfeed/internal/kvstore"
	"socialfeed/internal/services"

	"go.uber.org/zap"
)

// TrendingCacheSize is the number of hashtags cached per window
const TrendingCacheSize = 50

// TrendingRefreshWorker periodically recomputes trending hashtags for every
// window and caches them in the KV store
type TrendingRefreshWorker struct {
	trending *services.TrendingService
	kv       kvstore.KV
	interval time.Duration
	log      *zap.SugaredLogger

	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once

	mu    sync.RWMutex
	stats TrendingStats
}

// TrendingStats holds statistics about the refresh loop
type TrendingStats struct {
	Runs            int           `json:"runs"`
	Failures        int           `json:"failures"`
	LastRun         time.Time     `json:"last_run"`
	LastError       string        `json:"last_error,omitempty"`
	RefreshInterval time.Duration `json:"refresh_interval"`
}

// NewTrendingRefreshWorker creates a new trending refresh worker
func NewTrendingRefreshWorker(trending *services.TrendingService, kv kvstore.KV, interval time.Duration, log *zap.SugaredLogger) *TrendingRefreshWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TrendingRefreshWorker{
		trending: trending,
		kv:       kv,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		stats:    TrendingStats{RefreshInterval: interval},
	}
}

// Start runs one refresh immediately and then one per interval until ctx is
// cancelled or Stop is called. It blocks.
func (w *TrendingRefreshWorker) Start(ctx context.Context) {
	w.ticker = time.NewTicker(w.interval)
	defer w.ticker.Stop()

	w.log.Infow("starting trending refresh worker", "interval", w.interval)
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("trending refresh worker stopping due to context cancellation")
			return
		case <-w.stopChan:
			w.log.Info("trending refresh worker stopping")
			return
		case <-w.ticker.C:
			w.refresh(ctx)
		}
	}
}

// Stop stops the worker
func (w *TrendingRefreshWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *TrendingRefreshWorker) refresh(ctx context.Context) {
	err := w.RefreshOnce(ctx)
	if err != nil && ctx.Err() == nil {
		w.log.Errorw("trending refresh failed", "error", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Runs++
	w.stats.LastRun = time.Now().UTC()
	w.stats.LastError = ""
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
	}
}

// RefreshOnce recomputes and caches every window. Entries expire after two
// intervals so a stalled worker does not serve stale trends forever.
func (w *TrendingRefreshWorker) RefreshOnce(ctx context.Context) error {
	for _, window := range services.Windows {
		trends, err := w.trending.TrendingHashtags(ctx, window, TrendingCacheSize)
		if err != nil {
			return fmt.Errorf("window %s: %w", window, err)
		}
		if err := kvstore.SetJSON(ctx, w.kv, services.TrendingCacheKey(window), trends, 2*w.interval); err != nil {
			return fmt.Errorf("cache window %s: %w", window, err)
		}
	}
	return nil
}

// GetStats returns a snapshot of the refresh statistics
func (w *TrendingRefreshWorker) GetStats() TrendingStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

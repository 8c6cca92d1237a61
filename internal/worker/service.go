package worker

import (
	"context"
	"sync"
	"time"

	"socialfeed/internal/workers"

	"go.uber.org/zap"
)

// WorkerService manages background workers for the application
type WorkerService struct {
	trendingWorker *workers.TrendingRefreshWorker
	log            *zap.SugaredLogger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startedAt time.Time
	mu        sync.RWMutex
}

// NewWorkerService creates a new worker service
func NewWorkerService(trendingWorker *workers.TrendingRefreshWorker, log *zap.SugaredLogger) *WorkerService {
	return &WorkerService{
		trendingWorker: trendingWorker,
		log:            log,
	}
}

// Start starts all background workers
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	ws.log.Info("starting background workers")
	ws.ctx, ws.cancel = context.WithCancel(context.Background())

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.trendingWorker.Start(ws.ctx)
	}()

	ws.running = true
	ws.startedAt = time.Now()
	ws.log.Info("background workers started")
	return nil
}

// Stop stops all background workers and waits for them to finish
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return
	}

	ws.log.Info("stopping background workers")
	ws.cancel()
	ws.wg.Wait()

	ws.running = false
	ws.log.Info("background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// GetStatus returns the current status of the worker service
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running":         ws.running,
		"trending_worker": ws.trendingWorker.GetStats(),
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}
	return status
}

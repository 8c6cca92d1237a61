package worker

import (
	"testing"
	"time"

	"socialfeed/internal/kvstore"
	"socialfeed/internal/logging"
	"socialfeed/internal/services"
	"socialfeed/internal/store"
	"socialfeed/internal/workers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerService_Lifecycle(t *testing.T) {
	trending := workers.NewTrendingRefreshWorker(
		services.NewTrendingService(store.NewMemoryStore(), logging.Nop()),
		kvstore.NewMemoryKV(), time.Hour, logging.Nop(),
	)
	ws := NewWorkerService(trending, logging.Nop())

	assert.False(t, ws.IsRunning())
	assert.Equal(t, false, ws.GetStatus()["running"])

	require.NoError(t, ws.Start())
	require.NoError(t, ws.Start())
	assert.True(t, ws.IsRunning())

	require.Eventually(t, func() bool { return trending.GetStats().Runs >= 1 }, time.Second, 10*time.Millisecond)
	status := ws.GetStatus()
	assert.Equal(t, true, status["running"])
	assert.Contains(t, status, "uptime")
	assert.IsType(t, workers.TrendingStats{}, status["trending_worker"])

	ws.Stop()
	ws.Stop()
	assert.False(t, ws.IsRunning())
	assert.NotContains(t, ws.GetStatus(), "uptime")
}

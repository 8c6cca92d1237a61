package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/internal/auth"
	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/feeds"
	"socialfeed/internal/handlers"
	"socialfeed/internal/kvstore"
	"socialfeed/internal/logging"
	"socialfeed/internal/metrics"
	"socialfeed/internal/services"
	"socialfeed/internal/store"
	"socialfeed/internal/worker"
	"socialfeed/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	kv, err := openKV(ctx, cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "dev-secret"
		log.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	verifier := auth.NewJWTVerifier(secret, cfg.JWTIssuer, log)

	trending := services.NewTrendingService(s, log)
	interactions := services.NewInteractionService(s, log, m)
	history := services.NewSearchHistory(kv)

	// Initialize and start background workers
	workerService := worker.NewWorkerService(workers.NewTrendingRefreshWorker(trending, kv, cfg.TrendingRefresh, log), log)
	if err := workerService.Start(); err != nil {
		return fmt.Errorf("start background workers: %w", err)
	}
	defer workerService.Stop()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Handlers{
		Feed:        handlers.NewFeedHandler(feeds.NewFeedService(s, cfg.Feed, log, m), workerService),
		Posts:       handlers.NewPostHandler(services.NewPostService(s, log, m), interactions),
		Explore:     handlers.NewExploreHandler(trending, services.NewSuggestionService(s), kv, log),
		Profiles:    handlers.NewProfileHandler(services.NewProfileService(s, log)),
		Search:      handlers.NewSearchHandler(services.NewSearchService(s, log), history, log),
		ClientState: handlers.NewClientStateHandler(history, services.NewDrafts(kv)),
		Auth:        verifier.Middleware(),
		Gatherer:    reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Port, "weights", cfg.Feed.Weights.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("received shutdown signal, gracefully shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func openStore(cfg *config.Config, log *zap.SugaredLogger) (store.Store, error) {
	if cfg.Database.Driver == database.DriverMemory {
		log.Warn("using the in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}
	if err := database.Connect(cfg.Database, log); err != nil {
		return nil, err
	}
	if err := database.Migrate(log); err != nil {
		return nil, err
	}
	return store.NewGormStore(database.DB), nil
}

func openKV(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (kvstore.KV, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, keeping client state in memory")
		return kvstore.NewMemoryKV(), nil
	}
	rdb, err := kvstore.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	log.Infow("connected to redis", "addr", cfg.RedisAddr)
	return kvstore.NewRedisKV(rdb, "socialfeed:"), nil
}

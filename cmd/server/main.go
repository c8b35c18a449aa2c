package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/sleepgraph/config"
	_ "github.com/d60-Lab/sleepgraph/docs"
	"github.com/d60-Lab/sleepgraph/internal/api"
	"github.com/d60-Lab/sleepgraph/internal/api/handler"
	"github.com/d60-Lab/sleepgraph/internal/cache"
	"github.com/d60-Lab/sleepgraph/internal/repository"
	"github.com/d60-Lab/sleepgraph/internal/service"
	"github.com/d60-Lab/sleepgraph/pkg/database"
	"github.com/d60-Lab/sleepgraph/pkg/logger"
	"github.com/d60-Lab/sleepgraph/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg)
	if err != nil {
		logger.Error("tracer init failed", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		panic(err)
	}

	var counts *cache.CountCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		counts = cache.NewCountCache(rdb, time.Duration(cfg.Redis.TTLSec)*time.Second)
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)

	replicator := service.NewFanReplicator(fanRepo, 100000)
	stopReplicator := replicator.Start(4)

	userSvc := service.NewUserService(userRepo, cfg.Pagination)
	relSvc := service.NewRelationshipService(userRepo, followRepo, fanRepo, replicator, counts, cfg.Pagination)
	sleepSvc := service.NewSleepService(db, userRepo, followRepo, cfg.Feed, cfg.Pagination)

	h := handler.New(userSvc, relSvc, sleepSvc)
	router := api.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	_ = stopReplicator(shutdownCtx)
	if shutdownTracer != nil {
		_ = shutdownTracer(shutdownCtx)
	}
}

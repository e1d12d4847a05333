// Package main запускает HTTP-сервер сервиса квестборд.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/questboard-system/internal/config"
	"github.com/mmeshcher/questboard-system/internal/handler"
	"github.com/mmeshcher/questboard-system/internal/middleware"
	"github.com/mmeshcher/questboard-system/internal/notifier"
	"github.com/mmeshcher/questboard-system/internal/repository"
	"github.com/mmeshcher/questboard-system/internal/rotation"
	"github.com/mmeshcher/questboard-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var notifierClient *notifier.Client
	if cfg.NotifierAddress != "" {
		notifierClient = notifier.NewClient(cfg.NotifierAddress, logger)
	}

	var rotationCache *rotation.Cache
	if cfg.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisClient.Close()

		rotationCache = rotation.NewCache(redisClient)
	}

	svc := newService(repo, notifierClient, rotationCache)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware("questboard-secret")
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting questboard server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newService собирает сервис, не передавая nil-указатели в интерфейсные поля.
func newService(repo service.Repository, n *notifier.Client, cache *rotation.Cache) *service.Service {
	var (
		notif service.Notifier
		rc    service.RotationCache
	)
	if n != nil {
		notif = n
	}
	if cache != nil {
		rc = cache
	}
	return service.NewService(repo, notif, rc)
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"order-service/db"
	"order-service/internal/application/handler"
	"order-service/internal/application/service"
	"order-service/internal/cache"
	"order-service/internal/config"
	"order-service/internal/database"
	"order-service/internal/domain"
	"order-service/internal/httpapi"
	"order-service/internal/kafka"
	"order-service/internal/observability"
	"order-service/internal/pkg/breaker"
)

func main() {
	migration := flag.String("migrate", "", "apply a migration before serving: up or down")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Pg.DSN())
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	switch *migration {
	case "":
	case "up":
		if err := database.Migrate(ctx, pool, db.InitMigration); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("migration applied", zap.String("direction", "up"))
	case "down":
		if err := database.Migrate(ctx, pool, db.DownMigration); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("migration applied", zap.String("direction", "down"))
		return
	default:
		logger.Fatal("unknown -migrate value", zap.String("value", *migration))
	}

	orders := cache.New[string, domain.Order](cfg.Cache.TTL)
	sweeper := cache.NewSweeper(orders, cfg.Cache.SweepInterval, logger)
	go sweeper.Run(ctx)

	metrics := observability.NewInmem(1000)
	repo := database.New(pool, cfg.Tables, logger)
	svc := service.NewService(orders, repo, logger, metrics)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		brk := breaker.New(cfg.Breaker)
		h := handler.NewHandler(svc, brk, cfg.Retry, logger)
		reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group)
		consumer := kafka.NewConsumer(h, reader, cfg.Kafka.Workers, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	server := httpapi.New(svc, logger, metrics)
	logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trannm/order-reservation/internal/adapter/event"
	"github.com/trannm/order-reservation/internal/adapter/handler"
	"github.com/trannm/order-reservation/internal/adapter/storage"
	"github.com/trannm/order-reservation/internal/config"
	"github.com/trannm/order-reservation/internal/core/service"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime.Std())

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mysql")
	}
	logger.Info().Msg("connected to mysql")

	store := storage.NewMySQLAdapter(db)

	opts := []service.Option{
		service.WithRetryPolicy(cfg.Order.MaxAttempts, cfg.Order.RetryBackoff.Std()),
	}

	// Redis is optional; without it duplicate requests are not suppressed.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Info().Msg("connected to redis")
		opts = append(opts, service.WithIdempotencyStore(storage.NewRedisAdapter(rdb)))
	}

	// Kafka is optional; without brokers no events are published.
	var (
		kafkaPublisher *event.KafkaPublisher
		asyncPublisher *event.AsyncPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		asyncPublisher = event.NewAsyncPublisher(kafkaPublisher, cfg.Kafka.QueueSize, cfg.Kafka.Workers, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	}

	var orderService *service.OrderService
	if asyncPublisher != nil {
		orderService = service.NewOrderService(store, store, asyncPublisher, logger, opts...)
	} else {
		orderService = service.NewOrderService(store, store, nil, logger, opts...)
	}

	httpHandler := handler.NewHTTPHandler(orderService)
	mux := http.NewServeMux()
	httpHandler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info().Msg("HTTP server stopped")

	if asyncPublisher != nil {
		asyncPublisher.Close()
		kafkaPublisher.Close()
		logger.Info().Msg("event publisher drained")
	}

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logger.Info().Msg("connections closed")
}

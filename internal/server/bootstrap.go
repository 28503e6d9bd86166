package server

import (
	"context"
	"fmt"
	"time"

	"advisorbooking/internal/config"
	"advisorbooking/internal/database"
	"advisorbooking/internal/events"
	"advisorbooking/internal/lock"
	"advisorbooking/internal/observability/tracing"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// Bootstrap connects the database and optional infrastructure described by
// cfg and assembles the services. The cleanup func is always non-nil.
func Bootstrap(ctx context.Context, cfg *config.Config, serviceName string, logger *logging.Logger) (*Services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	})

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	deps := Deps{
		DB:       db,
		Logger:   logger,
		Clock:    clock.System{},
		Location: cfg.Location,
	}

	if cfg.LockEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, cleanup, fmt.Errorf("redis ping: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Locker = lock.NewRedisLocker(rdb, lock.Config{TTL: cfg.LockTTL, Wait: cfg.LockWait})
		logger.Info("advisor lock enabled", "redis_addr", cfg.RedisAddr)
	}

	if sink := events.NewKafkaSink(events.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		WriteTimeout: cfg.KafkaWriteTimeout,
		Logger:       logger,
	}); sink != nil {
		closers = append(closers, func() { _ = sink.Close() })
		deps.Kafka = sink
		logger.Info("kafka event sink enabled", "topic", cfg.KafkaTopic)
	}

	svc := NewServices(deps)
	closers = append(closers, svc.Close)

	if !database.IsPostgres(cfg.DatabaseURL) {
		if err := svc.AutoMigrate(); err != nil {
			return nil, cleanup, err
		}
	}
	return svc, cleanup, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Lorent-Bloom/lorentbloom/backend/checkout"
	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/contractpdf"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
	"github.com/Lorent-Bloom/lorentbloom/backend/service"
	"github.com/Lorent-Bloom/lorentbloom/backend/signing"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	storage  *service.MinioService
	notifier signing.Notifier
	docs     *service.DocumentRepository
	signer   *signing.Orchestrator
	redis    *redis.Client
	closers  []func() error
}

// newApp opens the database and object storage and builds the signing
// workflow on top of them.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db, err := service.OpenDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &app{cfg: cfg, db: db}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if err := service.Migrate(db); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a.storage, err = service.NewMinioService(&cfg.Minio)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize MINIO service: %w", err)
	}
	if err := a.storage.EnsureBucket(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to ensure MINIO bucket: %w", err)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := service.NewKafkaNotifier(&cfg.Kafka)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to kafka: %w", err)
		}
		a.notifier = kafka
		a.closers = append(a.closers, kafka.Close)
	} else {
		logger.Warn(ctx, "no kafka brokers configured, notifications are only logged")
		a.notifier = service.LogNotifier{}
	}

	a.docs = service.NewDocumentRepository(db)
	a.signer = signing.NewOrchestrator(
		a.docs,
		a.storage,
		contractpdf.NewGenerator(cfg.Contract.DefaultLocale),
		a.notifier,
	)
	return a, nil
}

// sessionBackend returns the checkout session store: redis when configured,
// process memory otherwise.
func (a *app) sessionBackend(ctx context.Context) (checkout.SessionBackend, error) {
	if a.cfg.Redis.Addr == "" {
		logger.Warn(ctx, "no redis configured, checkout sessions are kept in memory")
		return checkout.NewMemorySessionStore(), nil
	}

	a.redis = service.NewRedisClient(&a.cfg.Redis)
	a.closers = append(a.closers, a.redis.Close)

	store := service.NewRedisSessionStore(a.redis, time.Duration(a.cfg.Redis.TTLMinutes)*time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return store, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn(context.Background(), "failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

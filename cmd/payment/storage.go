package main

import (
	"context"
	"fmt"

	"github.com/tair/verse-payments/internal/config"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/repository"
	"github.com/tair/verse-payments/pkg/database"
	"github.com/tair/verse-payments/pkg/logger"
)

// store is the opened payment repository plus its schema setup and teardown
type store struct {
	repo    domain.PaymentRepository
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.NewGormConnection(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		repo := repository.NewGormPaymentRepository(db)
		return &store{
			repo:    repo,
			migrate: func(context.Context) error { return repo.AutoMigrate() },
			close:   func(context.Context) error { return sqlDB.Close() },
		}, nil

	case config.StorageMongo:
		client, err := database.NewMongoConnection(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoPaymentRepository(client.Database(cfg.MongoDatabase))
		return &store{
			repo:    repo,
			migrate: repo.EnsureIndexes,
			close:   client.Disconnect,
		}, nil

	case config.StorageMemory:
		logger.Logger.Warn().Msg("Using in-memory payment store, data is lost on restart")
		return &store{
			repo:    repository.NewMemoryPaymentRepository(),
			migrate: func(context.Context) error { return nil },
			close:   func(context.Context) error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

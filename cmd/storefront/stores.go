package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/memory"
)

// stores is the repository set plus the health checks and shutdown hooks of
// the backends behind it.
type stores struct {
	repos   *repository.Repositories
	checks  map[string]grpc.Check
	closers []func(ctx context.Context) error
}

func (s *stores) Close(ctx context.Context, logger *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]grpc.Check)}

	switch cfg.Server.Driver {
	case "memory":
		s.repos = memory.New()
		logger.Warn("Using in-memory repositories; data is lost on restart")
	default:
		mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, mongo.Close)
		if err := mongo.EnsureIndexes(ctx); err != nil {
			s.Close(ctx, logger)
			return nil, err
		}
		s.checks["mongo"] = mongo.Ping
		s.repos = &repository.Repositories{
			Products: mongo.Products(),
			Carts:    mongo.Carts(),
			Orders:   mongo.Orders(),
			Users:    mongo.Users(),
			Sessions: memory.NewSessionStore(),
			Ledger:   repository.NoopLedger{},
			Audit:    mongo,
		}
		logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))
	}

	if cfg.Redis.Addr != "" {
		redis := repository.NewRedisRepository(&cfg.Redis)
		if err := redis.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, keeping in-process sessions", zap.Error(err))
			_ = redis.Close()
		} else {
			s.repos.Sessions = redis
			s.repos.Cache = redis
			s.checks["redis"] = redis.Ping
			s.closers = append(s.closers, func(context.Context) error { return redis.Close() })
			logger.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr))
		}
	}

	if cfg.MySQL.Enabled() {
		ledger, err := repository.NewMySQLLedger(&cfg.MySQL)
		if err != nil {
			s.Close(ctx, logger)
			return nil, fmt.Errorf("payment ledger: %w", err)
		}
		s.repos.Ledger = ledger
		s.closers = append(s.closers, func(context.Context) error { return ledger.Close() })
		logger.Info("Payment ledger connected", zap.String("host", cfg.MySQL.Host))
	}

	return s, nil
}

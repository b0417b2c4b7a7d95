// Package app assembles storage, notification and service layers from Config.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samirnavas/who-gets-it/internal/config"
	"github.com/samirnavas/who-gets-it/internal/db"
	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"github.com/samirnavas/who-gets-it/internal/services"
	"go.uber.org/zap"
)

type App struct {
	Store repositories.Store
	Redis *redis.Client

	Users      *services.UserService
	Bids       *services.BidService
	Auctions   *services.AuctionService
	Moderation *services.ModerationService

	pool *pgxpool.Pool
}

// New connects the configured store and optional Redis, runs migrations for
// Postgres and builds the services.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{}

	if cfg.UsesMemoryStore() {
		a.Store = repositories.NewMemoryStore()
	} else {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.pool = pool
		a.Store = repositories.NewPgStore(pool)
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.Redis = rdb

	var notifier events.Notifier
	if rdb != nil {
		notifier = events.NewPublishingNotifier(events.NewRedisPublisher(rdb, log), log)
	} else {
		notifier = events.NewLogNotifier(log)
	}

	a.build(cfg, notifier, log)
	return a, nil
}

func (a *App) build(cfg *config.Config, notifier events.Notifier, log *zap.Logger) {
	dispatch := services.NewDispatcher(notifier, log)
	guard := services.NewPermissionGuard(a.Store, log)

	a.Users = services.NewUserService(a.Store, log)
	a.Bids = services.NewBidService(a.Store, cfg.BidPolicy(), dispatch, log)
	a.Auctions = services.NewAuctionService(a.Store, a.Bids, guard, dispatch, services.AuctionOptions{
		LegacyCancelAudit: cfg.AuditLegacyCancel,
		SweepBatchSize:    cfg.SweepBatchSize,
	}, log)
	a.Moderation = services.NewModerationService(a.Store, a.Bids, a.Auctions, guard, dispatch, cfg.BulkStopMax, log)
}

// NewWithStore builds the services over an existing store without Redis.
func NewWithStore(cfg *config.Config, store repositories.Store, notifier events.Notifier, log *zap.Logger) *App {
	a := &App{Store: store}
	a.build(cfg, notifier, log)
	return a
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

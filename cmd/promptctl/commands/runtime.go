package commands

import (
	"context"
	"log/slog"

	"promptmart/internal/bootstrap"
	"promptmart/internal/config"
	"promptmart/internal/middleware"
	"promptmart/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime is what a subcommand operates on.
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Services *service.Services
	close    func()
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() {
	if r != nil && r.close != nil {
		r.close()
	}
}

// RuntimeOptions selects how much of the runtime a subcommand needs.
type RuntimeOptions struct {
	// SkipSchema leaves the schema alone; migrate manages it itself.
	SkipSchema bool
	SkipRedis  bool
}

// Opener builds a Runtime.
type Opener func(ctx context.Context, opts RuntimeOptions) (*Runtime, error)

// OpenConfigured loads configuration from the environment and connects to the
// configured PostgreSQL and Redis.
func OpenConfigured(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	middleware.InitLogger(cfg.Env)

	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipSchema: opts.SkipSchema, SkipRedis: opts.SkipRedis})
	if err != nil {
		return nil, err
	}

	var cmdable redis.Cmdable
	if rdb != nil {
		cmdable = rdb
	}
	svc, err := service.NewServices(db, cmdable, service.Options{
		ListingCacheTTL:   cfg.ListingCacheTTL(),
		CascadeMaxElapsed: cfg.CascadeMaxElapsed(),
		SnowflakeNode:     cfg.SnowflakeNode,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:   cfg,
		DB:       db,
		Services: svc,
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					middleware.Logger.Warn("close database", slog.String("error", err.Error()))
				}
			}
			if rdb != nil {
				_ = rdb.Close()
			}
		},
	}, nil
}

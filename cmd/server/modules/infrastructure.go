// Package modules wires the application graph for the dispatch server.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/helmdesk/helmdesk/internal/config"
	"github.com/helmdesk/helmdesk/internal/db"
	"github.com/helmdesk/helmdesk/internal/logger"
)

// InfrastructureModule provides config, logging and the database pool.
var InfrastructureModule = fx.Module(
	"infrastructure",
	fx.Provide(
		provideConfig,
		provideLogger,
		provideDBPool,
	),
)

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

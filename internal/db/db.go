// Package db opens the PostgreSQL pool and applies embedded migrations.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/config"
)

// Open creates a pgx connection pool from the given configuration.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, cfg.DSN())
}

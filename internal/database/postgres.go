package database

import (
	"context"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// sessionLockTimeout caps how long a statement waits on a row lock, such as
// a second submit queued behind the first on the same session.
const sessionLockTimeout = "5s"

// NewPostgresPool opens the pool every repository shares. It is built once in
// main and passed down explicitly; no package keeps its own connection.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns
	// Keep a quarter warm for the submit burst when a timed test closes.
	poolCfg.MinConns = max(cfg.MaxDBConns/4, 1)
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "entrance-backend"
	poolCfg.ConnConfig.RuntimeParams["lock_timeout"] = sessionLockTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("database", poolCfg.ConnConfig.Database).
		Int32("min_conns", poolCfg.MinConns).
		Int32("max_conns", poolCfg.MaxConns).
		Str("lock_timeout", sessionLockTimeout).
		Msg("Session store ready")

	return pool, nil
}

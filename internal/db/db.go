package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultApplicationName = "frank"

// Option adjusts the pool configuration before connecting.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. The intake webhook holds one connection
// per in-flight message, so this bounds concurrent ingestions.
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n <= 0 {
			return
		}
		c.MaxConns = n
		if c.MinConns > n {
			c.MinConns = n
		}
	}
}

// WithApplicationName sets application_name as seen in pg_stat_activity.
func WithApplicationName(name string) Option {
	return func(c *pgxpool.Config) {
		c.ConnConfig.RuntimeParams["application_name"] = name
	}
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	config, err := poolConfig(dsn, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func poolConfig(dsn string, opts ...Option) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 15 * time.Minute
	config.HealthCheckPeriod = time.Minute

	// Meeting times carry their own offset column; sessions stay in UTC so
	// TIMESTAMPTZ values read back the same on every host.
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = defaultApplicationName
	}

	for _, opt := range opts {
		opt(config)
	}
	return config, nil
}

// Close closes the pool if it is open.
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

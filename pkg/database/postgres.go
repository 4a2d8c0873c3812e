package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns    = 10
	profileConnIdle    = 5 * time.Minute
	profileConnMaxLife = time.Hour
)

// PoolOptions sizes the profile store pool. Zero values fall back to
// defaults.
type PoolOptions struct {
	MaxConns int32
	// ConnectTimeout bounds dialing a new connection and the initial ping.
	// The container passes UPSTREAM_TIMEOUT so a slow database fails like
	// any other collaborator.
	ConnectTimeout time.Duration
}

// PostgresDB wraps the pgx pool backing the Postgres profile store
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// poolConfig parses databaseURL and applies opts. Pool parameters given in
// the URL (pool_max_conns and friends) are overridden.
func poolConfig(databaseURL string, opts PoolOptions) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	config.MaxConns = maxConns
	// Profile writes happen once per login; keep no warm connections
	config.MinConns = 0
	config.MaxConnIdleTime = profileConnIdle
	config.MaxConnLifetime = profileConnMaxLife
	if opts.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	return config, nil
}

// NewPostgresDB opens the pool and pings it once
func NewPostgresDB(ctx context.Context, databaseURL string, opts PoolOptions) (*PostgresDB, error) {
	config, err := poolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &PostgresDB{Pool: pool}
	if err := db.Health(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings one pooled connection within the connect timeout
func (db *PostgresDB) Health(ctx context.Context) error {
	if timeout := db.Pool.Config().ConnConfig.ConnectTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Package db provides connection helpers for the monitor's backing stores.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// The monitoring run is strictly sequential, so a handful of
	// connections covers the store plus the health endpoint.
	poolMaxConns    = 4
	poolMaxIdle     = 5 * time.Minute
	startupPingWait = 5 * time.Second
)

// NewPostgresPool creates and verifies a pgxpool connection pool sized
// for the monitor service.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	pcfg.MaxConns = poolMaxConns
	pcfg.MaxConnIdleTime = poolMaxIdle

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, startupPingWait)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

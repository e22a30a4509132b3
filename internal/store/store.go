// Package store archives merged market snapshots to PostgreSQL so
// price movements survive restarts and can be backfilled later.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercuryhq/marketbridge/internal/aggregate"
)

// Config holds database connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	PoolSize int
	SSLMode  string // disable, require, verify-ca, verify-full
}

// ConnectionString returns a PostgreSQL connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

const schema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
	taken_at      TIMESTAMPTZ      NOT NULL,
	short_code    TEXT             NOT NULL,
	name          TEXT             NOT NULL,
	price_cents   INTEGER          NOT NULL,
	spread_cents  INTEGER,
	volume_24h    DOUBLE PRECISION NOT NULL,
	liquidity     DOUBLE PRECISION NOT NULL,
	poly_id       TEXT             NOT NULL DEFAULT '',
	kalshi_ticker TEXT             NOT NULL DEFAULT '',
	is_event      BOOLEAN          NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS market_snapshots_short_time_idx
	ON market_snapshots (short_code, taken_at);
`

// Store writes snapshot rows through a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, verifies the connection, and creates the snapshot
// table when it doesn't exist yet.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("couldn't parse pool config: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("couldn't ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("couldn't create snapshot schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InsertSnapshotBatch bulk-copies one cycle's merged markets. Grouped
// records are stored as their representative row; sub-markets are not
// expanded.
func (s *Store) InsertSnapshotBatch(ctx context.Context, takenAt time.Time, markets []aggregate.UnifiedMarket) (int64, error) {
	if len(markets) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(markets))
	for _, m := range markets {
		var spread *int
		if m.Spread != nil {
			v := *m.Spread
			spread = &v
		}
		rows = append(rows, []any{
			takenAt, m.Short, m.Name, m.PriceCents, spread,
			m.Volume24h, m.Liquidity, m.PolyID, m.KalshiTicker, m.IsEvent,
		})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"market_snapshots"},
		[]string{
			"taken_at", "short_code", "name", "price_cents", "spread_cents",
			"volume_24h", "liquidity", "poly_id", "kalshi_ticker", "is_event",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't copy snapshot batch: %w", err)
	}
	return n, nil
}

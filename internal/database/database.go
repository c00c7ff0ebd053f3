package database

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a connection pool and verifies connectivity. Numeric columns
// scan directly into shopspring decimals.
func New(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// EnsureSchema creates the ledger tables if they do not exist. This is the
// explicit bootstrap operation: nothing is wiped implicitly at startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Reset drops all ledger data. It exists for the ingestion collaborator's
// seeding workflows and tests; the service never calls it on its own.
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `TRUNCATE trades, positions, accounts`)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id     TEXT PRIMARY KEY,
	custodian_name TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trades (
	id              BIGSERIAL PRIMARY KEY,
	trade_date      DATE NOT NULL,
	account_id      TEXT NOT NULL REFERENCES accounts(account_id),
	ticker          TEXT NOT NULL,
	quantity        BIGINT NOT NULL,
	price           NUMERIC(12,2),
	trade_type      TEXT,
	settlement_date DATE,
	market_value    NUMERIC(15,2),
	source_system   TEXT,
	file_format     TEXT NOT NULL,
	source_file     TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trade_date_account ON trades (trade_date, account_id);
CREATE INDEX IF NOT EXISTS idx_trade_date_ticker  ON trades (trade_date, ticker);

CREATE TABLE IF NOT EXISTS positions (
	id            BIGSERIAL PRIMARY KEY,
	report_date   DATE NOT NULL,
	account_id    TEXT NOT NULL REFERENCES accounts(account_id),
	ticker        TEXT NOT NULL,
	shares        BIGINT NOT NULL,
	market_value  NUMERIC(15,2) NOT NULL,
	custodian_ref TEXT,
	source_file   TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_position_date_account ON positions (report_date, account_id);
CREATE INDEX IF NOT EXISTS idx_position_date_ticker  ON positions (report_date, ticker);
`

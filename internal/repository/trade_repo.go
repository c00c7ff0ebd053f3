package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TradeRepository handles database operations for the trade ledger.
type TradeRepository struct {
	pool *pgxpool.Pool
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

const tradeColumns = `id, trade_date, account_id, ticker, quantity, price, trade_type,
	settlement_date, market_value, source_system, file_format, source_file, created_at`

// Insert appends one trade to the ledger. Trades are immutable facts: there
// is no update path.
func (r *TradeRepository) Insert(ctx context.Context, tx pgx.Tx, t *models.Trade) error {
	query := `
		INSERT INTO trades (trade_date, account_id, ticker, quantity, price, trade_type,
			settlement_date, market_value, source_system, file_format, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	return tx.QueryRow(ctx, query,
		t.TradeDate, t.AccountID, t.Ticker, t.Quantity, t.Price, t.TradeType,
		t.SettlementDate, t.MarketValue, t.SourceSystem, t.FileFormat, t.SourceFile,
	).Scan(&t.ID, &t.CreatedAt)
}

// GetUpToDate retrieves every trade dated on or before asOf, in ledger order
// (trade date, then insertion).
func (r *TradeRepository) GetUpToDate(ctx context.Context, asOf time.Time) ([]models.Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trades
		WHERE trade_date <= $1
		ORDER BY trade_date, id
	`, tradeColumns)
	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetByAccountUpToDate retrieves one account's trades dated on or before
// asOf, in ledger order.
func (r *TradeRepository) GetByAccountUpToDate(ctx context.Context, accountID string, asOf time.Time) ([]models.Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trades
		WHERE account_id = $1 AND trade_date <= $2
		ORDER BY trade_date, id
	`, tradeColumns)
	rows, err := r.pool.Query(ctx, query, accountID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows pgx.Rows) ([]models.Trade, error) {
	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(
			&t.ID, &t.TradeDate, &t.AccountID, &t.Ticker, &t.Quantity, &t.Price, &t.TradeType,
			&t.SettlementDate, &t.MarketValue, &t.SourceSystem, &t.FileFormat, &t.SourceFile, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// BeginTx starts a new transaction
func (r *TradeRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

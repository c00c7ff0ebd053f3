package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PositionRepository handles database operations for bank position snapshots.
type PositionRepository struct {
	pool *pgxpool.Pool
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

const positionColumns = `id, report_date, account_id, ticker, shares, market_value,
	custodian_ref, source_file, created_at`

// Insert appends one reported position. Snapshots are immutable facts,
// superseded only by a later report date.
func (r *PositionRepository) Insert(ctx context.Context, tx pgx.Tx, p *models.ReportedPosition) error {
	query := `
		INSERT INTO positions (report_date, account_id, ticker, shares, market_value,
			custodian_ref, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return tx.QueryRow(ctx, query,
		p.ReportDate, p.AccountID, p.Ticker, p.Shares, p.MarketValue,
		p.CustodianRef, p.SourceFile,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetByDate retrieves the full snapshot for one report date.
func (r *PositionRepository) GetByDate(ctx context.Context, reportDate time.Time) ([]models.ReportedPosition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM positions
		WHERE report_date = $1
		ORDER BY account_id, ticker
	`, positionColumns)
	rows, err := r.pool.Query(ctx, query, reportDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

// GetByAccountAndDate retrieves one account's snapshot for a report date.
func (r *PositionRepository) GetByAccountAndDate(ctx context.Context, accountID string, reportDate time.Time) ([]models.ReportedPosition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM positions
		WHERE account_id = $1 AND report_date = $2
		ORDER BY ticker
	`, positionColumns)
	rows, err := r.pool.Query(ctx, query, accountID, reportDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]models.ReportedPosition, error) {
	var positions []models.ReportedPosition
	for rows.Next() {
		var p models.ReportedPosition
		if err := rows.Scan(
			&p.ID, &p.ReportDate, &p.AccountID, &p.Ticker, &p.Shares, &p.MarketValue,
			&p.CustodianRef, &p.SourceFile, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/epeers/reconcile/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository handles database operations for account master data.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Get retrieves an account by ID. Returns (nil, nil) when it does not exist.
func (r *AccountRepository) Get(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT account_id, custodian_name, created_at
		FROM accounts
		WHERE account_id = $1
	`
	a := &models.Account{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&a.AccountID, &a.CustodianName, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetWithTx retrieves an account inside a transaction, so ingestion sees
// accounts it created earlier in the same batch.
func (r *AccountRepository) GetWithTx(ctx context.Context, tx pgx.Tx, accountID string) (*models.Account, error) {
	query := `
		SELECT account_id, custodian_name, created_at
		FROM accounts
		WHERE account_id = $1
	`
	a := &models.Account{}
	err := tx.QueryRow(ctx, query, accountID).Scan(&a.AccountID, &a.CustodianName, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Create inserts a new account record.
func (r *AccountRepository) Create(ctx context.Context, tx pgx.Tx, a *models.Account) error {
	query := `
		INSERT INTO accounts (account_id, custodian_name)
		VALUES ($1, $2)
		RETURNING created_at
	`
	return tx.QueryRow(ctx, query, a.AccountID, a.CustodianName).Scan(&a.CreatedAt)
}

// SetCustodian binds a custodian name to an account that has none yet. An
// account whose custodian is already set is left untouched; conflict
// detection is the caller's job.
func (r *AccountRepository) SetCustodian(ctx context.Context, tx pgx.Tx, accountID, custodian string) error {
	query := `
		UPDATE accounts
		SET custodian_name = $1
		WHERE account_id = $2 AND custodian_name IS NULL
	`
	if _, err := tx.Exec(ctx, query, custodian, accountID); err != nil {
		return fmt.Errorf("failed to set custodian: %w", err)
	}
	return nil
}

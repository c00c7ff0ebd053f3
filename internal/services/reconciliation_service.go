package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/repository"
	log "github.com/sirupsen/logrus"
)

// ReconciliationService runs the ledger-versus-bank reconciliation for a
// report date.
type ReconciliationService struct {
	tradeRepo    *repository.TradeRepository
	positionRepo *repository.PositionRepository
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	tradeRepo *repository.TradeRepository,
	positionRepo *repository.PositionRepository,
) *ReconciliationService {
	return &ReconciliationService{
		tradeRepo:    tradeRepo,
		positionRepo: positionRepo,
	}
}

// Run projects the ledger as of date, fetches the bank snapshot for the same
// date, and reconciles the two.
func (s *ReconciliationService) Run(ctx context.Context, date time.Time) (*models.ReconciliationResponse, error) {
	defer TrackTime("ReconciliationRun", time.Now())

	reported, err := s.positionRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reported positions: %w", err)
	}
	trades, err := s.tradeRepo.GetUpToDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}

	projected := ProjectPositions(ctx, trades, date)
	discrepancies, err := Reconcile(ctx, projected, reported, date)
	if err != nil {
		return nil, err
	}

	log.Infof("Reconciliation for %s: %d discrepancies found",
		date.Format("2006-01-02"), len(discrepancies))

	return &models.ReconciliationResponse{
		Date:                     date.Format("2006-01-02"),
		TotalPositionsInBank:     len(reported),
		TotalPositionsFromTrades: len(projected),
		DiscrepanciesFound:       len(discrepancies),
		Discrepancies:            discrepancies,
	}, nil
}

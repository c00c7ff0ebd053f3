package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epeers/reconcile/internal/cache"
	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/repository"
	log "github.com/sirupsen/logrus"
)

// ErrNoPositionData reports an account/date with neither a bank snapshot nor
// any ledger trades to fall back to.
var ErrNoPositionData = errors.New("no trade or position data found")

// PositionService answers per-account holdings queries by combining the bank
// snapshot with the ledger projection.
type PositionService struct {
	tradeRepo    *repository.TradeRepository
	positionRepo *repository.PositionRepository
	snapshots    *cache.SnapshotCache
}

// NewPositionService creates a new PositionService
func NewPositionService(
	tradeRepo *repository.TradeRepository,
	positionRepo *repository.PositionRepository,
	snapshots *cache.SnapshotCache,
) *PositionService {
	return &PositionService{
		tradeRepo:    tradeRepo,
		positionRepo: positionRepo,
		snapshots:    snapshots,
	}
}

// GetAccountPositions returns the holdings view for one account and date.
// When the bank reported nothing for that date the result is calculated from
// trade history alone; when the ledger is also empty, ErrNoPositionData.
func (s *PositionService) GetAccountPositions(ctx context.Context, accountID string, date time.Time) (*models.PositionsResponse, error) {
	defer TrackTime("GetAccountPositions", time.Now())

	if cached, ok := s.snapshots.Get(accountID, date); ok {
		return cached, nil
	}

	reported, err := s.positionRepo.GetByAccountAndDate(ctx, accountID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reported positions: %w", err)
	}
	trades, err := s.tradeRepo.GetByAccountUpToDate(ctx, accountID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}
	if len(reported) == 0 && len(trades) == 0 {
		return nil, fmt.Errorf("%w: account %s on %s", ErrNoPositionData, accountID, date.Format("2006-01-02"))
	}

	projected := ProjectPositions(ctx, trades, date)
	metrics := ComputeAccountMetrics(ctx, accountID, date, reported, projected)

	resp := &models.PositionsResponse{
		AccountID:        metrics.AccountID,
		Date:             metrics.Date,
		Positions:        metrics.Holdings,
		TotalMarketValue: metrics.TotalMarketValue,
	}
	if len(reported) == 0 {
		log.Warnf("No position data found for %s on %s; calculated from trade history",
			accountID, date.Format("2006-01-02"))
		resp.Note = "Calculated from trade history; no position file data available"
	}

	s.snapshots.Set(accountID, date, resp)
	return resp, nil
}

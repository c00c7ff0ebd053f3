package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/repository"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ComplianceService evaluates concentration limits against both the trade
// ledger and the bank snapshot.
type ComplianceService struct {
	tradeRepo    *repository.TradeRepository
	positionRepo *repository.PositionRepository
	threshold    decimal.Decimal
}

// NewComplianceService creates a new ComplianceService
func NewComplianceService(
	tradeRepo *repository.TradeRepository,
	positionRepo *repository.PositionRepository,
	threshold decimal.Decimal,
) *ComplianceService {
	return &ComplianceService{
		tradeRepo:    tradeRepo,
		positionRepo: positionRepo,
		threshold:    threshold,
	}
}

// CheckDate runs the concentration check for one date from both sides: once
// over ledger-derived positions and once over the bank snapshot. The two
// sides share no state, so they run concurrently.
func (s *ComplianceService) CheckDate(ctx context.Context, date time.Time) (*models.ConcentrationResponse, error) {
	defer TrackTime("ComplianceCheckDate", time.Now())

	var fromTrades, fromBank []models.ConcentrationViolation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fromTrades, err = s.checkFromTrades(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		fromBank, err = s.checkFromBank(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Infof("Compliance check for %s: %d violations from trades, %d violations from bank",
		date.Format("2006-01-02"), len(fromTrades), len(fromBank))

	return &models.ConcentrationResponse{
		Date:         date.Format("2006-01-02"),
		ThresholdPct: s.threshold.Mul(decimal.NewFromInt(100)),
		FromTrades: models.ViolationSet{
			ViolationsFound: len(fromTrades),
			Violations:      fromTrades,
			Note:            "Calculated from trade history",
		},
		FromBank: models.ViolationSet{
			ViolationsFound: len(fromBank),
			Violations:      fromBank,
			Note:            "From bank position file",
		},
	}, nil
}

func (s *ComplianceService) checkFromTrades(ctx context.Context, date time.Time) ([]models.ConcentrationViolation, error) {
	trades, err := s.tradeRepo.GetUpToDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}

	projected := ProjectPositions(ctx, trades, date)
	accounts := groupProjectedByAccount(ctx, projected, date)
	return CheckConcentration(ctx, accounts, s.threshold)
}

func (s *ComplianceService) checkFromBank(ctx context.Context, date time.Time) ([]models.ConcentrationViolation, error) {
	reported, err := s.positionRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reported positions: %w", err)
	}

	accountIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, p := range reported {
		if !seen[p.AccountID] {
			seen[p.AccountID] = true
			accountIDs = append(accountIDs, p.AccountID)
		}
	}

	accounts := make([]models.AccountMetrics, 0, len(accountIDs))
	for _, id := range accountIDs {
		accounts = append(accounts, ComputeAccountMetrics(ctx, id, date, reported, nil))
	}
	return CheckConcentration(ctx, accounts, s.threshold)
}

// groupProjectedByAccount turns one projection into per-account metrics with
// ledger-derived valuations, the input shape the concentration checker wants.
func groupProjectedByAccount(ctx context.Context, projected map[PositionKey]models.ProjectedPosition, date time.Time) []models.AccountMetrics {
	accountIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, key := range SortedKeys(projected) {
		if !seen[key.AccountID] {
			seen[key.AccountID] = true
			accountIDs = append(accountIDs, key.AccountID)
		}
	}

	accounts := make([]models.AccountMetrics, 0, len(accountIDs))
	for _, id := range accountIDs {
		accounts = append(accounts, ComputeAccountMetrics(ctx, id, date, nil, projected))
	}
	return accounts
}

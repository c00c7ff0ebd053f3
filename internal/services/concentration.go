package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/shopspring/decimal"
)

// ErrInvalidThreshold reports a caller-supplied concentration threshold
// outside (0, 1]. This is a programming error, not a data-quality issue.
var ErrInvalidThreshold = errors.New("concentration threshold must be in (0, 1]")

// DefaultConcentrationThreshold is the fraction of account value above which
// a single holding is flagged.
var DefaultConcentrationThreshold = decimal.RequireFromString("0.20")

var hundred = decimal.NewFromInt(100)

// CheckConcentration flags every holding whose share of its account's total
// market value exceeds threshold. Only positive-value holdings enter the
// account total and the check; short and negative-value positions have no
// meaningful concentration. An account whose total value is zero while
// holdings exist is itself an anomaly and is reported instead of divided by.
//
// The returned slice is sorted by account then ticker so output is stable
// across calls for the same input.
func CheckConcentration(
	ctx context.Context,
	accounts []models.AccountMetrics,
	threshold decimal.Decimal,
) ([]models.ConcentrationViolation, error) {
	defer TrackTime("CheckConcentration", time.Now())

	if threshold.LessThanOrEqual(decimal.Zero) || threshold.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidThreshold, threshold)
	}

	var violations []models.ConcentrationViolation
	for _, account := range accounts {
		total := decimal.Zero
		held := 0
		for _, h := range account.Holdings {
			if h.MarketValue == nil {
				continue
			}
			held++
			if h.MarketValue.IsPositive() {
				total = total.Add(*h.MarketValue)
			}
		}

		if total.IsZero() {
			if held > 0 {
				AddWarning(ctx, models.Warning{
					Code: models.WarnZeroValueAccount,
					Message: fmt.Sprintf(
						"account %s has %d holdings but zero total market value; concentration undefined",
						account.AccountID, held),
				})
			}
			continue
		}

		for _, h := range account.Holdings {
			if h.MarketValue == nil || !h.MarketValue.IsPositive() {
				continue
			}
			concentration := h.MarketValue.Div(total)
			if concentration.LessThanOrEqual(threshold) {
				continue
			}
			violations = append(violations, models.ConcentrationViolation{
				AccountID:         account.AccountID,
				Ticker:            h.Ticker,
				Shares:            h.Shares,
				MarketValue:       *h.MarketValue,
				AccountTotalValue: total,
				ConcentrationPct:  concentration.Mul(hundred),
				ThresholdPct:      threshold.Mul(hundred),
				ExcessPct:         concentration.Sub(threshold).Mul(hundred),
				CustodianRef:      h.CustodianRef,
			})
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].AccountID != violations[j].AccountID {
			return violations[i].AccountID < violations[j].AccountID
		}
		return violations[i].Ticker < violations[j].Ticker
	})

	return violations, nil
}

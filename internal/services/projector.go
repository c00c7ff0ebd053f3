package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/shopspring/decimal"
)

// PositionKey identifies one position within the projection result.
type PositionKey struct {
	AccountID string
	Ticker    string
}

func (k PositionKey) String() string {
	return k.AccountID + "/" + k.Ticker
}

// ProjectPositions derives point-in-time positions from the trade ledger
// using weighted-average costing. Trades dated after asOf are ignored; within
// each (account, ticker) group trades are applied in trade-date order, ties
// broken by ledger insertion order, so re-projection over the same ledger is
// deterministic and idempotent.
//
// On an acquisition the cost basis grows by quantity x price; on a disposal
// it is written down proportionally so the average cost of the remaining
// shares is unchanged. A disposal that exactly zeroes the position resets the
// basis to exactly zero. A disposal that drives the position negative marks
// it short: cost basis semantics are undefined there and a warning is
// recorded instead of guessing a short-sale convention.
func ProjectPositions(ctx context.Context, trades []models.Trade, asOf time.Time) map[PositionKey]models.ProjectedPosition {
	defer TrackTime("ProjectPositions", time.Now())

	inScope := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.TradeDate.After(asOf) {
			inScope = append(inScope, t)
		}
	}
	// Stable sort keeps ledger insertion order within one trade date.
	sort.SliceStable(inScope, func(i, j int) bool {
		return inScope[i].TradeDate.Before(inScope[j].TradeDate)
	})

	positions := make(map[PositionKey]models.ProjectedPosition)
	for _, t := range inScope {
		key := PositionKey{AccountID: t.AccountID, Ticker: t.Ticker}
		pos, ok := positions[key]
		if !ok {
			pos = models.ProjectedPosition{AccountID: t.AccountID, Ticker: t.Ticker}
		}

		pos.MarketValue = pos.MarketValue.Add(tradeMarketValue(t))

		if t.Quantity >= 0 {
			price, ok := t.EffectivePrice()
			if ok {
				pos.TotalCostBasis = pos.TotalCostBasis.Add(price.Mul(decimal.NewFromInt(t.Quantity)))
			}
			pos.NetShares += t.Quantity
		} else {
			before := pos.NetShares
			after := before + t.Quantity
			switch {
			case after == 0:
				// Flat position carries no residual fractional cost.
				pos.TotalCostBasis = decimal.Zero
			case after < 0:
				if !pos.Short {
					AddWarning(ctx, models.Warning{
						Code: models.WarnShortPosition,
						Message: fmt.Sprintf(
							"%s: disposal of %d shares on %s exceeds %d held; cost basis undefined",
							key, -t.Quantity, t.TradeDate.Format("2006-01-02"), before),
					})
				}
				pos.Short = true
				pos.TotalCostBasis = decimal.Zero
			default:
				// Proportional write-down preserves the average cost of the
				// remaining shares.
				pos.TotalCostBasis = pos.TotalCostBasis.
					Mul(decimal.NewFromInt(after)).
					Div(decimal.NewFromInt(before))
			}
			pos.NetShares = after
		}

		positions[key] = pos
	}

	for key, pos := range positions {
		if pos.NetShares > 0 && !pos.Short {
			avg := pos.TotalCostBasis.Div(decimal.NewFromInt(pos.NetShares))
			pos.AvgCostPerShare = &avg
			positions[key] = pos
		}
	}

	return positions
}

// SortedKeys returns the projection's keys ordered by account then ticker,
// giving callers a stable iteration order over the map result.
func SortedKeys(positions map[PositionKey]models.ProjectedPosition) []PositionKey {
	keys := make([]PositionKey, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountID != keys[j].AccountID {
			return keys[i].AccountID < keys[j].AccountID
		}
		return keys[i].Ticker < keys[j].Ticker
	})
	return keys
}

// tradeMarketValue returns the signed market value a trade contributes,
// deriving it from price x quantity when the feed carried no explicit value.
func tradeMarketValue(t models.Trade) decimal.Decimal {
	if t.MarketValue != nil {
		return *t.MarketValue
	}
	if t.Price != nil {
		return t.Price.Mul(decimal.NewFromInt(t.Quantity))
	}
	return decimal.Zero
}

package services

import (
	"context"
	"sort"
	"time"

	"github.com/epeers/reconcile/internal/models"
)

// ComputeAccountMetrics combines the bank snapshot for one account and date
// with the ledger projection. Reported positions supply shares and market
// value (they reflect live pricing); cost basis always comes from the trade
// ledger at ledger scale, even when the two share counts disagree; the
// disagreement belongs to reconciliation, not metrics. Holdings with no
// reported row fall back to the projection's own market-value accumulation,
// so a completely empty snapshot still yields a result.
func ComputeAccountMetrics(
	ctx context.Context,
	accountID string,
	date time.Time,
	reported []models.ReportedPosition,
	projected map[PositionKey]models.ProjectedPosition,
) models.AccountMetrics {
	defer TrackTime("ComputeAccountMetrics", time.Now())

	metrics := models.AccountMetrics{
		AccountID: accountID,
		Date:      date.Format("2006-01-02"),
	}

	covered := make(map[string]bool)
	for _, pos := range reported {
		if pos.AccountID != accountID {
			continue
		}
		covered[pos.Ticker] = true

		h := models.HoldingMetrics{
			Ticker:       pos.Ticker,
			Shares:       pos.Shares,
			CustodianRef: pos.CustodianRef,
			Source:       "reported",
		}
		mv := pos.MarketValue
		h.MarketValue = &mv

		if proj, ok := projected[PositionKey{AccountID: accountID, Ticker: pos.Ticker}]; ok {
			h.TotalCost = proj.TotalCostBasis
			h.AvgCostPerShare = proj.AvgCostPerShare
			if !proj.Short {
				pnl := pos.MarketValue.Sub(proj.TotalCostBasis)
				h.UnrealizedPnL = &pnl
			}
		}

		metrics.TotalMarketValue = metrics.TotalMarketValue.Add(pos.MarketValue)
		metrics.Holdings = append(metrics.Holdings, h)
	}

	// Fallback path: ledger-only holdings, valued from trade history.
	for _, key := range SortedKeys(projected) {
		if key.AccountID != accountID || covered[key.Ticker] {
			continue
		}
		proj := projected[key]
		if proj.NetShares == 0 && !proj.Short {
			continue
		}

		h := models.HoldingMetrics{
			Ticker:          key.Ticker,
			Shares:          proj.NetShares,
			TotalCost:       proj.TotalCostBasis,
			AvgCostPerShare: proj.AvgCostPerShare,
			Source:          "projected",
		}
		mv := proj.MarketValue
		h.MarketValue = &mv
		if !proj.Short {
			pnl := mv.Sub(proj.TotalCostBasis)
			h.UnrealizedPnL = &pnl
		}

		metrics.TotalMarketValue = metrics.TotalMarketValue.Add(mv)
		metrics.Holdings = append(metrics.Holdings, h)
	}

	sort.Slice(metrics.Holdings, func(i, j int) bool {
		return metrics.Holdings[i].Ticker < metrics.Holdings[j].Ticker
	})

	return metrics
}

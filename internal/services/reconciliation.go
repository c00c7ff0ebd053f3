package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/epeers/reconcile/internal/models"
)

// ErrDateMismatch reports a reconciliation invoked with reported positions
// from a different report date than the as-of date. That is a caller bug and
// fails fast rather than producing quietly wrong discrepancies.
var ErrDateMismatch = errors.New("reported positions do not match reconciliation date")

// Reconcile matches ledger-derived positions against the bank snapshot for
// asOf and classifies every mismatch. Matched positions produce no output:
// the result contains discrepancies only, sorted by account then ticker.
//
// Classification follows the reported side's value: a key the bank reports
// zero or nothing for is missing_in_bank (difference = expected shares); a
// key the ledger nets to zero or never saw is missing_in_trades
// (difference = -actual shares); anything else is a quantity_mismatch with
// difference = actual - expected.
//
// The snapshot is keyed uniquely per (account, ticker) by invariant; a
// duplicate is a data-quality anomaly recorded before matching runs, with the
// first occurrence kept.
func Reconcile(
	ctx context.Context,
	projected map[PositionKey]models.ProjectedPosition,
	reported []models.ReportedPosition,
	asOf time.Time,
) ([]models.ReconciliationDiscrepancy, error) {
	defer TrackTime("Reconcile", time.Now())

	reportedShares := make(map[PositionKey]int64, len(reported))
	for _, pos := range reported {
		if !sameDay(pos.ReportDate, asOf) {
			return nil, fmt.Errorf("%w: position %s/%s reported %s, reconciling %s",
				ErrDateMismatch, pos.AccountID, pos.Ticker,
				pos.ReportDate.Format("2006-01-02"), asOf.Format("2006-01-02"))
		}
		key := PositionKey{AccountID: pos.AccountID, Ticker: pos.Ticker}
		if _, dup := reportedShares[key]; dup {
			AddWarning(ctx, models.Warning{
				Code: models.WarnDuplicateReportedKey,
				Message: fmt.Sprintf("duplicate reported position for %s on %s; keeping first",
					key, asOf.Format("2006-01-02")),
			})
			continue
		}
		reportedShares[key] = pos.Shares
	}

	keys := make(map[PositionKey]struct{}, len(projected)+len(reportedShares))
	for k := range projected {
		keys[k] = struct{}{}
	}
	for k := range reportedShares {
		keys[k] = struct{}{}
	}

	var discrepancies []models.ReconciliationDiscrepancy
	for _, key := range sortedPositionKeys(keys) {
		expected := projected[key].NetShares
		actual := reportedShares[key]
		if expected == actual {
			continue
		}

		d := models.ReconciliationDiscrepancy{
			AccountID:      key.AccountID,
			Ticker:         key.Ticker,
			ExpectedShares: expected,
			ActualShares:   actual,
		}
		switch {
		case actual == 0:
			d.Status = models.StatusMissingInBank
			d.Difference = expected
		case expected == 0:
			d.Status = models.StatusMissingInTrades
			d.Difference = -actual
		default:
			d.Status = models.StatusQuantityMismatch
			d.Difference = actual - expected
		}
		discrepancies = append(discrepancies, d)
	}

	return discrepancies, nil
}

func sortedPositionKeys(set map[PositionKey]struct{}) []PositionKey {
	keys := make([]PositionKey, 0, len(set))
	for k := range set {
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

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportedPosition is one holding from a custodian bank snapshot. Exactly one
// row exists per (account_id, ticker, report_date); duplicates are a
// data-quality error surfaced by the reconciliation engine, never merged.
type ReportedPosition struct {
	ID           int64           `json:"id"`
	ReportDate   time.Time       `json:"report_date"`
	AccountID    string          `json:"account_id"`
	Ticker       string          `json:"ticker"`
	Shares       int64           `json:"shares"`
	MarketValue  decimal.Decimal `json:"market_value"`
	CustodianRef string          `json:"custodian_ref,omitempty"`
	SourceFile   string          `json:"source_file,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Account is the identity record tying an account to its custodian. The
// custodian stays nil until the first trade or reported position carrying
// custodian information arrives; later conflicting information is an anomaly,
// not an overwrite.
type Account struct {
	AccountID     string    `json:"account_id"`
	CustodianName *string   `json:"custodian_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectedPosition is the ledger-derived view of one (account, ticker) as of
// a date. It is recomputed from the immutable trade ledger on every query and
// never persisted.
//
// AvgCostPerShare is nil when net shares are zero or the position has gone
// short: an undefined average cost is reported as absent, never as a zero
// that could be mistaken for a real zero basis.
type ProjectedPosition struct {
	AccountID       string           `json:"account_id"`
	Ticker          string           `json:"ticker"`
	NetShares       int64            `json:"net_shares"`
	TotalCostBasis  decimal.Decimal  `json:"total_cost_basis"`
	AvgCostPerShare *decimal.Decimal `json:"avg_cost_per_share,omitempty"`
	// MarketValue accumulates the signed market value of the underlying
	// trades; it is the fallback valuation when no bank snapshot exists.
	MarketValue decimal.Decimal `json:"market_value"`
	// Short marks a position whose disposals exceeded its acquisitions.
	// Cost basis semantics are undefined for short positions.
	Short bool `json:"short,omitempty"`
}

// DiscrepancyStatus classifies a reconciliation mismatch.
type DiscrepancyStatus string

const (
	StatusMissingInBank    DiscrepancyStatus = "missing_in_bank"
	StatusMissingInTrades  DiscrepancyStatus = "missing_in_trades"
	StatusQuantityMismatch DiscrepancyStatus = "quantity_mismatch"
)

// ReconciliationDiscrepancy records one mismatch between the ledger-derived
// position and the bank snapshot. Matched positions produce no record.
type ReconciliationDiscrepancy struct {
	AccountID      string            `json:"account_id"`
	Ticker         string            `json:"ticker"`
	ExpectedShares int64             `json:"expected_shares"`
	ActualShares   int64             `json:"actual_shares"`
	Difference     int64             `json:"difference"`
	Status         DiscrepancyStatus `json:"status"`
}

// ConcentrationViolation records one holding whose share of its account's
// value exceeds the configured threshold.
type ConcentrationViolation struct {
	AccountID         string          `json:"account_id"`
	Ticker            string          `json:"ticker"`
	Shares            int64           `json:"shares"`
	MarketValue       decimal.Decimal `json:"market_value"`
	AccountTotalValue decimal.Decimal `json:"account_total_value"`
	ConcentrationPct  decimal.Decimal `json:"concentration_pct"`
	ThresholdPct      decimal.Decimal `json:"threshold_pct"`
	ExcessPct         decimal.Decimal `json:"excess_pct"`
	CustodianRef      string          `json:"custodian_ref,omitempty"`
}

// HoldingMetrics combines a holding's reported (or ledger-derived) valuation
// with its ledger cost basis.
//
// When reported and ledger share counts disagree, cost basis stays tied to
// the trade ledger at ledger scale; the reported shares and market value are
// taken independently. Reconciliation, not metrics, is where the disagreement
// itself is surfaced.
type HoldingMetrics struct {
	Ticker          string           `json:"ticker"`
	Shares          int64            `json:"shares"`
	MarketValue     *decimal.Decimal `json:"market_value"`
	TotalCost       decimal.Decimal  `json:"total_cost"`
	AvgCostPerShare *decimal.Decimal `json:"avg_cost_per_share,omitempty"`
	UnrealizedPnL   *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	CustodianRef    string           `json:"custodian_ref,omitempty"`
	// Source is "reported" when the valuation comes from a bank snapshot,
	// "projected" when it fell back to trade history.
	Source string `json:"source"`
}

// AccountMetrics is the per-account result of the metrics calculator.
type AccountMetrics struct {
	AccountID        string           `json:"account_id"`
	Date             string           `json:"date"`
	Holdings         []HoldingMetrics `json:"positions"`
	TotalMarketValue decimal.Decimal  `json:"total_market_value"`
}

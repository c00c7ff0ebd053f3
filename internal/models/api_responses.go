package models

import (
	"github.com/shopspring/decimal"
)

// IngestResponse reports the outcome of one file ingestion.
type IngestResponse struct {
	FileName           string   `json:"file_name"`
	FileFormat         string   `json:"file_format"`
	RecordsProcessed   int      `json:"records_processed"`
	RecordsValid       int      `json:"records_valid"`
	RecordsFailed      int      `json:"records_failed"`
	SuccessRate        string   `json:"success_rate"`
	NewAccountsCreated int      `json:"new_accounts_created"`
	CustodiansDetected []string `json:"custodians_detected"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
	Status             string   `json:"status"`
}

// PositionsResponse is the per-account holdings view for one date.
type PositionsResponse struct {
	AccountID        string           `json:"account_id"`
	Date             string           `json:"date"`
	Positions        []HoldingMetrics `json:"positions"`
	TotalMarketValue decimal.Decimal  `json:"total_market_value"`
	Note             string           `json:"note,omitempty"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// ViolationSet is one side's concentration result: violations derived either
// from the trade ledger or from the bank snapshot.
type ViolationSet struct {
	ViolationsFound int                      `json:"violations_found"`
	Violations      []ConcentrationViolation `json:"violations"`
	Note            string                   `json:"note"`
}

// ConcentrationResponse carries both ledger-derived and bank-derived
// concentration checks for one date.
type ConcentrationResponse struct {
	Date         string          `json:"date"`
	ThresholdPct decimal.Decimal `json:"threshold_pct"`
	FromTrades   ViolationSet    `json:"from_trades"`
	FromBank     ViolationSet    `json:"from_bank"`
	Warnings     []Warning       `json:"warnings,omitempty"`
}

// ReconciliationResponse carries the discrepancies between ledger-derived
// positions and the bank snapshot for one date.
type ReconciliationResponse struct {
	Date                     string                      `json:"date"`
	TotalPositionsInBank     int                         `json:"total_positions_in_bank"`
	TotalPositionsFromTrades int                         `json:"total_positions_from_trades"`
	DiscrepanciesFound       int                         `json:"discrepancies_found"`
	Discrepancies            []ReconciliationDiscrepancy `json:"discrepancies"`
	Warnings                 []Warning                   `json:"warnings,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

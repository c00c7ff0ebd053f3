package models

// WarningCode categorizes data-quality warnings by subsystem.
// W1xxx = custodian resolution, W2xxx = position projection,
// W3xxx = reconciliation, W4xxx = compliance, W5xxx = ingestion.
type WarningCode string

const (
	WarnUnknownCustodianPrefix WarningCode = "W1001" // custodian_ref prefix not in the static table
	WarnCustodianConflict      WarningCode = "W1002" // account already bound to a different custodian
	WarnShortPosition          WarningCode = "W2001" // disposals exceeded acquisitions; cost basis undefined
	WarnDuplicateReportedKey   WarningCode = "W3001" // duplicate (account, ticker) in one bank snapshot
	WarnZeroValueAccount       WarningCode = "W4001" // account total value is zero but holdings exist
	WarnWeekendSettlement      WarningCode = "W5001" // settlement date falls on a non-business day
)

// Warning represents a non-fatal data-quality issue encountered during
// processing. Warnings accompany best-effort results; they never abort a
// batch.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

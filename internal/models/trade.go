package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields marshal as bare JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// FileFormat identifies the source file layout a record was ingested from.
type FileFormat string

const (
	FileFormatCSV       FileFormat = "CSV_FORMAT1"
	FileFormatPipe      FileFormat = "PIPE_FORMAT2"
	FileFormatPositions FileFormat = "YAML_POSITIONS"
)

// TradeType distinguishes acquisitions from disposals in CSV_FORMAT1 files.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// Trade is one immutable row of the trade ledger. Quantity is signed:
// positive for acquisitions, negative for disposals. Price is nullable for
// PIPE_FORMAT2 rows, where it is derived from market value at ingestion.
type Trade struct {
	ID             int64            `json:"id"`
	TradeDate      time.Time        `json:"trade_date"`
	AccountID      string           `json:"account_id"`
	Ticker         string           `json:"ticker"`
	Quantity       int64            `json:"quantity"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	TradeType      *TradeType       `json:"trade_type,omitempty"`
	SettlementDate *time.Time       `json:"settlement_date,omitempty"`
	MarketValue    *decimal.Decimal `json:"market_value,omitempty"`
	SourceSystem   *string          `json:"source_system,omitempty"`
	FileFormat     FileFormat       `json:"file_format"`
	SourceFile     string           `json:"source_file,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// EffectivePrice returns the per-share price of the trade, deriving it from
// market value when no explicit price was supplied. The second return is
// false when neither field allows a price to be determined.
func (t Trade) EffectivePrice() (decimal.Decimal, bool) {
	if t.Price != nil {
		return *t.Price, true
	}
	if t.MarketValue != nil && t.Quantity != 0 {
		return t.MarketValue.Div(decimal.NewFromInt(t.Quantity)).Abs(), true
	}
	return decimal.Zero, false
}

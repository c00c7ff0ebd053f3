package handlers

import (
	"strings"
	"testing"

	"github.com/epeers/reconcile/internal/models"
	"github.com/shopspring/decimal"
)

func TestInferFileFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     models.FileFormat
		ok       bool
	}{
		{"trades_format1_20240131.csv", models.FileFormatCSV, true},
		{"TRADES_FORMAT1.CSV", models.FileFormatCSV, true},
		{"extract_20240131.txt", models.FileFormatPipe, true},
		{"trades_format2_20240131.csv", models.FileFormatPipe, true},
		{"bank_positions_20240131.yaml", models.FileFormatPositions, true},
		{"bank_positions.yml", models.FileFormatPositions, true},
		{"trades.csv", "", false},
		{"readme.md", "", false},
	}

	for _, tc := range tests {
		got, ok := InferFileFormat(tc.filename)
		if ok != tc.ok || got != tc.want {
			t.Errorf("InferFileFormat(%q) = (%q, %v), want (%q, %v)", tc.filename, got, ok, tc.want, tc.ok)
		}
	}
}

const format1Sample = `TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate
2024-01-15,ACC001,GOOGL,100,150.00,BUY,2024-01-17
2024-01-16,ACC001,googl,25,152.00,SELL,2024-01-18
2024-01-16,ACC002,MSFT,50,400.00,buy,2024-01-18
`

func TestParseTradeCSV(t *testing.T) {
	result, err := ParseTradeCSV(strings.NewReader(format1Sample), "trades_format1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 3 {
		t.Errorf("processed = %d, want 3", result.Processed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Errors)
	}
	if len(result.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(result.Trades))
	}

	buy := result.Trades[0]
	if buy.Quantity != 100 {
		t.Errorf("buy quantity = %d, want 100", buy.Quantity)
	}
	if buy.MarketValue == nil || !buy.MarketValue.Equal(decimal.RequireFromString("15000")) {
		t.Errorf("buy market value = %v, want 15000", buy.MarketValue)
	}
	if buy.FileFormat != models.FileFormatCSV {
		t.Errorf("file format = %s", buy.FileFormat)
	}

	// SELL rows are stored with negative quantity and market value; the
	// ticker is normalized to upper case.
	sell := result.Trades[1]
	if sell.Quantity != -25 {
		t.Errorf("sell quantity = %d, want -25", sell.Quantity)
	}
	if sell.Ticker != "GOOGL" {
		t.Errorf("sell ticker = %q, want GOOGL", sell.Ticker)
	}
	if sell.MarketValue == nil || !sell.MarketValue.Equal(decimal.RequireFromString("-3800")) {
		t.Errorf("sell market value = %v, want -3800", sell.MarketValue)
	}
	if sell.Price == nil || !sell.Price.Equal(decimal.RequireFromString("152")) {
		t.Errorf("sell price = %v, want positive 152", sell.Price)
	}
}

func TestParseTradeCSVBadRowsDoNotFailFile(t *testing.T) {
	const sample = `TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate
2024-01-15,ACC001,GOOGL,100,150.00,BUY,2024-01-17
2024-01-15,ACC001,GOOGL,-5,150.00,BUY,2024-01-17
2024-01-15,,GOOGL,10,150.00,BUY,2024-01-17
2024-01-15,ACC001,GOOGL,10,150.00,TRANSFER,2024-01-17
2024-01-18,ACC001,GOOGL,10,150.00,BUY,2024-01-17
2024-01-15,ACC002,MSFT,50,400.00,BUY,2024-01-17
`
	result, err := ParseTradeCSV(strings.NewReader(sample), "trades_format1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 6 {
		t.Errorf("processed = %d, want 6", result.Processed)
	}
	if len(result.Trades) != 2 {
		t.Errorf("expected 2 valid trades, got %d", len(result.Trades))
	}
	// Negative quantity, empty account, bad trade type, settlement before
	// trade date.
	if len(result.Errors) != 4 {
		t.Errorf("expected 4 row errors, got %v", result.Errors)
	}
}

func TestParseTradeCSVWeekendSettlementWarning(t *testing.T) {
	// 2024-01-20 is a Saturday.
	const sample = `TradeDate,AccountID,Ticker,Quantity,Price,TradeType,SettlementDate
2024-01-18,ACC001,GOOGL,100,150.00,BUY,2024-01-20
`
	result, err := ParseTradeCSV(strings.NewReader(sample), "trades_format1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("weekend settlement must not reject the row: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "weekend") {
		t.Errorf("expected weekend warning, got %v", result.Warnings)
	}
}

func TestParseTradeCSVMissingColumn(t *testing.T) {
	const sample = `TradeDate,AccountID,Ticker,Quantity,Price
2024-01-15,ACC001,GOOGL,100,150.00
`
	if _, err := ParseTradeCSV(strings.NewReader(sample), "trades.csv"); err == nil {
		t.Error("expected error for missing columns")
	}
}

const format2Sample = `REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE|SOURCE_SYSTEM
20240115|ACC001|GOOGL|100|15000.00|BLOOMBERG
20240115|ACC001|TSLA|-15|-3900.00|BLOOMBERG
`

func TestParsePipeTrades(t *testing.T) {
	result, err := ParsePipeTrades(strings.NewReader(format2Sample), "extract.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Errors)
	}
	if len(result.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(result.Trades))
	}

	long := result.Trades[0]
	if long.Quantity != 100 {
		t.Errorf("quantity = %d, want 100", long.Quantity)
	}
	if long.Price == nil || !long.Price.Equal(decimal.RequireFromString("150")) {
		t.Errorf("derived price = %v, want 150", long.Price)
	}
	if long.SourceSystem == nil || *long.SourceSystem != "BLOOMBERG" {
		t.Errorf("source system = %v", long.SourceSystem)
	}
	if long.FileFormat != models.FileFormatPipe {
		t.Errorf("file format = %s", long.FileFormat)
	}

	short := result.Trades[1]
	if short.Quantity != -15 {
		t.Errorf("signed shares = %d, want -15", short.Quantity)
	}
	if short.Price == nil || !short.Price.Equal(decimal.RequireFromString("260")) {
		t.Errorf("derived price = %v, want 260", short.Price)
	}
}

func TestParsePipeTradesSignMismatchRejected(t *testing.T) {
	const sample = `REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE|SOURCE_SYSTEM
20240115|ACC001|GOOGL|100|-15000.00|BLOOMBERG
`
	result, err := ParsePipeTrades(strings.NewReader(sample), "extract.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Trades) != 0 || len(result.Errors) != 1 {
		t.Errorf("expected the sign mismatch to be rejected, got trades=%v errors=%v",
			result.Trades, result.Errors)
	}
}

const positionsSample = `report_date: "2024-01-31"
positions:
  - account_id: ACC001
    ticker: googl
    shares: 100
    market_value: 15000.00
    custodian_ref: CUST_B_22345
  - account_id: ACC002
    ticker: MSFT
    shares: 40
    market_value: 16000.00
    custodian_ref: CUST_A_12345
`

func TestParseBankPositionsYAML(t *testing.T) {
	result, err := ParseBankPositionsYAML(strings.NewReader(positionsSample), "bank_positions.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if result.ReportDate.Format("2006-01-02") != "2024-01-31" {
		t.Errorf("report date = %s", result.ReportDate)
	}
	if len(result.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(result.Positions))
	}

	p := result.Positions[0]
	if p.Ticker != "GOOGL" {
		t.Errorf("ticker = %q, want GOOGL", p.Ticker)
	}
	if !p.MarketValue.Equal(decimal.RequireFromString("15000")) {
		t.Errorf("market value = %s, want 15000", p.MarketValue)
	}
	if p.CustodianRef != "CUST_B_22345" {
		t.Errorf("custodian ref = %q", p.CustodianRef)
	}
	if !p.ReportDate.Equal(result.ReportDate) {
		t.Error("row report date should come from the file header")
	}
}

func TestParseBankPositionsYAMLRowErrors(t *testing.T) {
	const sample = `report_date: "2024-01-31"
positions:
  - account_id: ACC001
    ticker: GOOGL
    shares: 100
    market_value: 15000.00
    custodian_ref: CUST_B_22345
  - account_id: ""
    ticker: MSFT
    shares: 40
    market_value: 16000.00
    custodian_ref: CUST_A_12345
  - account_id: ACC003
    ticker: AAPL
    shares: 10
    market_value: 1700.00
    custodian_ref: ""
`
	result, err := ParseBankPositionsYAML(strings.NewReader(sample), "bank_positions.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 3 {
		t.Errorf("processed = %d, want 3", result.Processed)
	}
	if len(result.Positions) != 1 {
		t.Errorf("expected 1 valid position, got %d", len(result.Positions))
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 row errors, got %v", result.Errors)
	}
}

func TestParseBankPositionsYAMLMissingReportDate(t *testing.T) {
	const sample = `positions:
  - account_id: ACC001
    ticker: GOOGL
    shares: 100
    market_value: 15000.00
    custodian_ref: CUST_B_22345
`
	if _, err := ParseBankPositionsYAML(strings.NewReader(sample), "bank.yaml"); err == nil {
		t.Error("expected error for missing report_date")
	}
}

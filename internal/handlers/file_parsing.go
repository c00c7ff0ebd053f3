package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/util"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ParsedTrades is the outcome of parsing one trade file: valid records plus
// row-level errors and warnings. A bad row never fails the file.
type ParsedTrades struct {
	Trades    []models.Trade
	Processed int
	Errors    []string
	Warnings  []string
}

// ParsedPositions is the outcome of parsing one bank snapshot file.
type ParsedPositions struct {
	ReportDate time.Time
	Positions  []models.ReportedPosition
	Processed  int
	Errors     []string
	Warnings   []string
}

// InferFileFormat guesses the file format from its name, mirroring the
// conventions the upstream feeds use. Returns false when no format can be
// inferred and the caller must require an explicit one.
func InferFileFormat(filename string) (models.FileFormat, bool) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv") && strings.Contains(name, "format1"):
		return models.FileFormatCSV, true
	case strings.HasSuffix(name, ".txt"),
		strings.Contains(name, "format2") && strings.HasSuffix(name, ".csv"):
		return models.FileFormatPipe, true
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return models.FileFormatPositions, true
	}
	return "", false
}

// priceQuantityTolerance is how far price x quantity may drift from a stated
// market value before the trade is rejected: one cent per share.
var priceQuantityTolerance = decimal.RequireFromString("0.01")

// checkTradeInvariants enforces the record-level consistency rules that
// matter to reconciliation: quantity and market value signs must agree, and
// price x quantity must reconcile with market value when both are present.
func checkTradeInvariants(t models.Trade) error {
	if t.MarketValue != nil {
		if (t.Quantity > 0 && t.MarketValue.IsNegative()) || (t.Quantity < 0 && t.MarketValue.IsPositive()) {
			return fmt.Errorf("market value %s sign does not match quantity %d", t.MarketValue, t.Quantity)
		}
		if t.Price != nil && t.Quantity != 0 {
			implied := t.Price.Mul(decimal.NewFromInt(t.Quantity))
			allowed := priceQuantityTolerance.Mul(decimal.NewFromInt(t.Quantity)).Abs()
			if implied.Sub(*t.MarketValue).Abs().GreaterThan(allowed) {
				return fmt.Errorf("price %s x quantity %d = %s does not reconcile with market value %s",
					t.Price, t.Quantity, implied, t.MarketValue)
			}
		}
	}
	return nil
}

// ParseTradeCSV parses a CSV_FORMAT1 trade file.
// Columns: TradeDate, AccountID, Ticker, Quantity, Price, TradeType, SettlementDate.
// Quantity and Price are positive; SELL rows are negated on ingestion.
func ParseTradeCSV(r io.Reader, sourceFile string) (*ParsedTrades, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIdx := make(map[string]int)
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"tradedate", "accountid", "ticker", "quantity", "price", "tradetype", "settlementdate"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	result := &ParsedTrades{}
	rowNum := 1 // header is row 1, data starts at row 2
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to read CSV record: %w", rowNum+1, err)
		}
		rowNum++
		result.Processed++

		trade, warn, err := parseFormat1Row(record, colIdx, sourceFile)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if warn != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", rowNum, warn))
		}
		result.Trades = append(result.Trades, trade)
	}

	return result, nil
}

func parseFormat1Row(record []string, colIdx map[string]int, sourceFile string) (models.Trade, string, error) {
	field := func(col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	tradeDate, err := time.Parse("2006-01-02", field("tradedate"))
	if err != nil {
		return models.Trade{}, "", fmt.Errorf("invalid trade date %q", field("tradedate"))
	}
	settlementDate, err := time.Parse("2006-01-02", field("settlementdate"))
	if err != nil {
		return models.Trade{}, "", fmt.Errorf("invalid settlement date %q", field("settlementdate"))
	}
	if settlementDate.Before(tradeDate) {
		return models.Trade{}, "", fmt.Errorf("settlement date %s before trade date %s",
			settlementDate.Format("2006-01-02"), tradeDate.Format("2006-01-02"))
	}

	accountID := field("accountid")
	if accountID == "" {
		return models.Trade{}, "", fmt.Errorf("account ID is empty")
	}
	ticker := strings.ToUpper(field("ticker"))
	if ticker == "" {
		return models.Trade{}, "", fmt.Errorf("ticker is empty")
	}

	quantity, err := strconv.ParseInt(field("quantity"), 10, 64)
	if err != nil || quantity <= 0 {
		return models.Trade{}, "", fmt.Errorf("invalid quantity %q: must be a positive integer", field("quantity"))
	}
	price, err := decimal.NewFromString(field("price"))
	if err != nil || !price.IsPositive() {
		return models.Trade{}, "", fmt.Errorf("invalid price %q: must be a positive decimal", field("price"))
	}

	tradeType := models.TradeType(strings.ToUpper(field("tradetype")))
	if tradeType != models.TradeTypeBuy && tradeType != models.TradeTypeSell {
		return models.Trade{}, "", fmt.Errorf("invalid trade type %q", field("tradetype"))
	}
	if tradeType == models.TradeTypeSell {
		quantity = -quantity
	}
	marketValue := price.Mul(decimal.NewFromInt(quantity))

	trade := models.Trade{
		TradeDate:      tradeDate,
		AccountID:      accountID,
		Ticker:         ticker,
		Quantity:       quantity,
		Price:          &price,
		TradeType:      &tradeType,
		SettlementDate: &settlementDate,
		MarketValue:    &marketValue,
		FileFormat:     models.FileFormatCSV,
		SourceFile:     sourceFile,
	}
	if err := checkTradeInvariants(trade); err != nil {
		return models.Trade{}, "", err
	}

	warn := ""
	if !util.IsBusinessDay(settlementDate) {
		warn = fmt.Sprintf("[%s] settlement date %s falls on a weekend",
			models.WarnWeekendSettlement, settlementDate.Format("2006-01-02"))
	}
	return trade, warn, nil
}

// ParsePipeTrades parses a PIPE_FORMAT2 trade extract.
// Columns: REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE|SOURCE_SYSTEM.
// Shares are signed; the per-share price is derived from market value.
func ParsePipeTrades(r io.Reader, sourceFile string) (*ParsedTrades, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read pipe header: %w", err)
	}
	colIdx := make(map[string]int)
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"report_date", "account_id", "security_ticker", "shares", "market_value", "source_system"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", strings.ToUpper(col))
		}
	}

	result := &ParsedTrades{}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to read pipe record: %w", rowNum+1, err)
		}
		rowNum++
		result.Processed++

		trade, err := parseFormat2Row(record, colIdx, sourceFile)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		result.Trades = append(result.Trades, trade)
	}

	return result, nil
}

func parseFormat2Row(record []string, colIdx map[string]int, sourceFile string) (models.Trade, error) {
	field := func(col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	reportDate, err := models.ParseReportDate(field("report_date"))
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid report date %q", field("report_date"))
	}

	accountID := field("account_id")
	if accountID == "" {
		return models.Trade{}, fmt.Errorf("account ID is empty")
	}
	ticker := strings.ToUpper(field("security_ticker"))
	if ticker == "" {
		return models.Trade{}, fmt.Errorf("ticker is empty")
	}
	sourceSystem := field("source_system")
	if sourceSystem == "" {
		return models.Trade{}, fmt.Errorf("source system is empty")
	}

	shares, err := strconv.ParseInt(field("shares"), 10, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid shares %q", field("shares"))
	}
	marketValue, err := decimal.NewFromString(field("market_value"))
	if err != nil {
		return models.Trade{}, fmt.Errorf("invalid market value %q", field("market_value"))
	}

	trade := models.Trade{
		TradeDate:    reportDate.Time,
		AccountID:    accountID,
		Ticker:       ticker,
		Quantity:     shares,
		MarketValue:  &marketValue,
		SourceSystem: &sourceSystem,
		FileFormat:   models.FileFormatPipe,
		SourceFile:   sourceFile,
	}
	if price, ok := trade.EffectivePrice(); ok {
		trade.Price = &price
	}
	if err := checkTradeInvariants(trade); err != nil {
		return models.Trade{}, err
	}
	return trade, nil
}

// yamlDecimal decodes a YAML scalar into a decimal without a float detour.
type yamlDecimal struct {
	decimal.Decimal
}

func (d *yamlDecimal) UnmarshalYAML(value *yaml.Node) error {
	dec, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("invalid decimal %q", value.Value)
	}
	d.Decimal = dec
	return nil
}

type bankPositionRow struct {
	AccountID    string      `yaml:"account_id"`
	Ticker       string      `yaml:"ticker"`
	Shares       int64       `yaml:"shares"`
	MarketValue  yamlDecimal `yaml:"market_value"`
	CustodianRef string      `yaml:"custodian_ref"`
}

type bankPositionFile struct {
	ReportDate models.ReportDate `yaml:"report_date"`
	Positions  []bankPositionRow `yaml:"positions"`
}

// ParseBankPositionsYAML parses a YAML_POSITIONS bank snapshot file.
func ParseBankPositionsYAML(r io.Reader, sourceFile string) (*ParsedPositions, error) {
	var file bankPositionFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML position file: %w", err)
	}
	if file.ReportDate.IsZero() {
		return nil, fmt.Errorf("missing report_date")
	}

	result := &ParsedPositions{ReportDate: file.ReportDate.Time}
	for i, row := range file.Positions {
		result.Processed++

		if row.AccountID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Position %d: account ID is empty", i+1))
			continue
		}
		if row.Ticker == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Position %d: ticker is empty", i+1))
			continue
		}
		if row.CustodianRef == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Position %d: custodian reference is empty", i+1))
			continue
		}

		result.Positions = append(result.Positions, models.ReportedPosition{
			ReportDate:   file.ReportDate.Time,
			AccountID:    row.AccountID,
			Ticker:       strings.ToUpper(row.Ticker),
			Shares:       row.Shares,
			MarketValue:  row.MarketValue.Decimal,
			CustodianRef: row.CustodianRef,
			SourceFile:   sourceFile,
		})
	}

	return result, nil
}

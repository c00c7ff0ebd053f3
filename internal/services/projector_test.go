package services

import (
	"context"
	"testing"
	"time"

	"github.com/epeers/reconcile/internal/models"
	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func trade(date, account, ticker string, qty int64, price string) models.Trade {
	p := decimal.RequireFromString(price)
	return models.Trade{
		TradeDate: day(date),
		AccountID: account,
		Ticker:    ticker,
		Quantity:  qty,
		Price:     &p,
	}
}

func TestProjectPositionsNetShares(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "GOOGL", 60, "140.00"),
		trade("2024-01-05", "ACC001", "GOOGL", 50, "150.00"),
		trade("2024-01-10", "ACC001", "GOOGL", -10, "155.00"),
		trade("2024-01-03", "ACC001", "MSFT", 20, "400.00"),
		trade("2024-01-04", "ACC002", "GOOGL", 30, "141.00"),
	}

	positions := ProjectPositions(context.Background(), trades, day("2024-01-31"))

	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}

	googl := positions[PositionKey{AccountID: "ACC001", Ticker: "GOOGL"}]
	if googl.NetShares != 100 {
		t.Errorf("ACC001/GOOGL net shares = %d, want 100", googl.NetShares)
	}
	if positions[PositionKey{AccountID: "ACC001", Ticker: "MSFT"}].NetShares != 20 {
		t.Error("ACC001/MSFT net shares wrong")
	}
	if positions[PositionKey{AccountID: "ACC002", Ticker: "GOOGL"}].NetShares != 30 {
		t.Error("ACC002/GOOGL net shares wrong")
	}
}

func TestProjectPositionsAsOfFilter(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "GOOGL", 100, "140.00"),
		trade("2024-02-15", "ACC001", "GOOGL", -40, "150.00"),
	}

	positions := ProjectPositions(context.Background(), trades, day("2024-01-31"))

	pos := positions[PositionKey{AccountID: "ACC001", Ticker: "GOOGL"}]
	if pos.NetShares != 100 {
		t.Errorf("as-of projection net shares = %d, want 100", pos.NetShares)
	}
}

func TestProjectPositionsWeightedAverageCost(t *testing.T) {
	// 60 @ 140 + 50 @ 150 = basis 15900 over 110 shares.
	// Selling 10 writes the basis down proportionally: 15900 * 100/110.
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "GOOGL", 60, "140.00"),
		trade("2024-01-05", "ACC001", "GOOGL", 50, "150.00"),
		trade("2024-01-10", "ACC001", "GOOGL", -10, "155.00"),
	}

	positions := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	pos := positions[PositionKey{AccountID: "ACC001", Ticker: "GOOGL"}]

	wantBasis := decimal.RequireFromString("15900").
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(110))
	if !pos.TotalCostBasis.Equal(wantBasis) {
		t.Errorf("cost basis = %s, want %s", pos.TotalCostBasis, wantBasis)
	}

	if pos.AvgCostPerShare == nil {
		t.Fatal("expected average cost per share to be set")
	}
	wantAvg := wantBasis.Div(decimal.NewFromInt(100))
	if !pos.AvgCostPerShare.Equal(wantAvg) {
		t.Errorf("avg cost = %s, want %s", pos.AvgCostPerShare, wantAvg)
	}
}

func TestProjectPositionsAverageCostUnchangedByDisposal(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "AAPL", 30, "170.00"),
		trade("2024-01-03", "ACC001", "AAPL", 10, "190.00"),
	}
	before := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	avgBefore := before[PositionKey{AccountID: "ACC001", Ticker: "AAPL"}].AvgCostPerShare

	trades = append(trades, trade("2024-01-10", "ACC001", "AAPL", -15, "200.00"))
	after := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	avgAfter := after[PositionKey{AccountID: "ACC001", Ticker: "AAPL"}].AvgCostPerShare

	if avgBefore == nil || avgAfter == nil {
		t.Fatal("expected average cost on both projections")
	}
	if !avgBefore.Equal(*avgAfter) {
		t.Errorf("disposal changed average cost: %s -> %s", avgBefore, avgAfter)
	}
}

func TestProjectPositionsFlatPositionResetsBasis(t *testing.T) {
	// Basis 15900/110 per share does not divide evenly; closing out must
	// still land on exactly zero, not a rounding residue.
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "GOOGL", 60, "140.00"),
		trade("2024-01-05", "ACC001", "GOOGL", 50, "150.00"),
		trade("2024-01-10", "ACC001", "GOOGL", -110, "155.00"),
	}

	positions := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	pos := positions[PositionKey{AccountID: "ACC001", Ticker: "GOOGL"}]

	if pos.NetShares != 0 {
		t.Fatalf("net shares = %d, want 0", pos.NetShares)
	}
	if !pos.TotalCostBasis.IsZero() {
		t.Errorf("flat position basis = %s, want exactly 0", pos.TotalCostBasis)
	}
	if pos.AvgCostPerShare != nil {
		t.Errorf("flat position should have no average cost, got %s", pos.AvgCostPerShare)
	}
}

func TestProjectPositionsShortPosition(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "TSLA", 10, "250.00"),
		trade("2024-01-05", "ACC001", "TSLA", -25, "260.00"),
	}

	ctx, wc := NewWarningContext(context.Background())
	positions := ProjectPositions(ctx, trades, day("2024-01-31"))
	pos := positions[PositionKey{AccountID: "ACC001", Ticker: "TSLA"}]

	if !pos.Short {
		t.Error("expected position to be flagged short")
	}
	if pos.NetShares != -15 {
		t.Errorf("net shares = %d, want -15", pos.NetShares)
	}
	if pos.AvgCostPerShare != nil {
		t.Error("short position should carry no average cost")
	}
	if !pos.TotalCostBasis.IsZero() {
		t.Errorf("short position basis = %s, want 0", pos.TotalCostBasis)
	}

	warnings := wc.GetWarnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 short warning, got %d", len(warnings))
	}
	if warnings[0].Code != models.WarnShortPosition {
		t.Errorf("warning code = %s, want %s", warnings[0].Code, models.WarnShortPosition)
	}
}

func TestProjectPositionsShortWarningOnce(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "TSLA", 10, "250.00"),
		trade("2024-01-05", "ACC001", "TSLA", -25, "260.00"),
		trade("2024-01-06", "ACC001", "TSLA", -5, "255.00"),
	}

	ctx, wc := NewWarningContext(context.Background())
	ProjectPositions(ctx, trades, day("2024-01-31"))

	if n := len(wc.GetWarnings()); n != 1 {
		t.Errorf("expected a single warning per short position, got %d", n)
	}
}

func TestProjectPositionsIdempotent(t *testing.T) {
	trades := []models.Trade{
		trade("2024-01-02", "ACC001", "GOOGL", 60, "140.00"),
		trade("2024-01-02", "ACC001", "GOOGL", -20, "141.00"),
		trade("2024-01-05", "ACC001", "GOOGL", 50, "150.00"),
	}

	first := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	second := ProjectPositions(context.Background(), trades, day("2024-01-31"))

	if len(first) != len(second) {
		t.Fatalf("projection sizes differ: %d vs %d", len(first), len(second))
	}
	for key, a := range first {
		b, ok := second[key]
		if !ok {
			t.Fatalf("key %s missing from second projection", key)
		}
		if a.NetShares != b.NetShares || !a.TotalCostBasis.Equal(b.TotalCostBasis) {
			t.Errorf("%s: projections differ: %+v vs %+v", key, a, b)
		}
	}
}

func TestProjectPositionsDerivedPrice(t *testing.T) {
	// PIPE_FORMAT2 rows carry market value but no price; the basis still
	// accumulates from the derived per-share price.
	mv := decimal.RequireFromString("15000.00")
	trades := []models.Trade{{
		TradeDate:   day("2024-01-02"),
		AccountID:   "ACC001",
		Ticker:      "GOOGL",
		Quantity:    100,
		MarketValue: &mv,
	}}

	positions := ProjectPositions(context.Background(), trades, day("2024-01-31"))
	pos := positions[PositionKey{AccountID: "ACC001", Ticker: "GOOGL"}]

	if !pos.TotalCostBasis.Equal(mv) {
		t.Errorf("basis = %s, want %s", pos.TotalCostBasis, mv)
	}
	if pos.AvgCostPerShare == nil || !pos.AvgCostPerShare.Equal(decimal.RequireFromString("150")) {
		t.Errorf("avg cost = %v, want 150", pos.AvgCostPerShare)
	}
}

func TestSortedKeys(t *testing.T) {
	positions := map[PositionKey]models.ProjectedPosition{
		{AccountID: "ACC002", Ticker: "AAPL"}:  {},
		{AccountID: "ACC001", Ticker: "MSFT"}:  {},
		{AccountID: "ACC001", Ticker: "GOOGL"}: {},
	}

	keys := SortedKeys(positions)
	want := []PositionKey{
		{AccountID: "ACC001", Ticker: "GOOGL"},
		{AccountID: "ACC001", Ticker: "MSFT"},
		{AccountID: "ACC002", Ticker: "AAPL"},
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildSnapshotWeightedAverage(t *testing.T) {
	positions := []models.Position{
		{Ticket: 1, Symbol: "EURUSD", Type: models.TypeBuy, Volume: d("0.01"), PriceOpen: d("1.1000"), PriceCurrent: d("1.1005"), Profit: d("0.50"), TimeRaw: 100},
		{Ticket: 2, Symbol: "EURUSD", Type: models.TypeBuy, Volume: d("0.02"), PriceOpen: d("1.1010"), PriceCurrent: d("1.1005"), Profit: d("-1.00"), TimeRaw: 200},
		{Ticket: 3, Symbol: "EURUSD", Type: models.TypeBuy, Volume: d("0.01"), PriceOpen: d("1.0990"), PriceCurrent: d("1.1005"), Profit: d("1.50"), TimeRaw: 150},
	}

	snap := BuildSnapshot(positions)

	sym, ok := snap["EURUSD"]
	if !ok {
		t.Fatal("EURUSD missing from snapshot")
	}

	long := sym.Long
	if !long.SizeSum.Equal(d("0.04")) {
		t.Errorf("LONG size sum = %s, want 0.04", long.SizeSum)
	}
	if long.PositionCount != 3 {
		t.Errorf("LONG count = %d, want 3", long.PositionCount)
	}
	if !long.AvgPrice.Equal(d("1.10025")) {
		t.Errorf("LONG avg price = %s, want 1.10025", long.AvgPrice)
	}
	if !long.UnrealizedProfit.Equal(d("1.00")) {
		t.Errorf("LONG profit = %s, want 1.00", long.UnrealizedProfit)
	}
	// Most recent position (TimeRaw 200) carries the timestamp.
	if long.LastPositionTimeRaw != 200 {
		t.Errorf("LONG last time = %d, want 200", long.LastPositionTimeRaw)
	}

	// No sells: SHORT side must be a zero summary, not absent.
	if !sym.Short.SizeSum.IsZero() || sym.Short.PositionCount != 0 {
		t.Errorf("SHORT side not empty: size=%s count=%d", sym.Short.SizeSum, sym.Short.PositionCount)
	}
}

func TestBuildSnapshotGroupsSides(t *testing.T) {
	positions := []models.Position{
		{Ticket: 1, Symbol: "XAUUSD", Type: models.TypeBuy, Volume: d("0.10"), PriceOpen: d("2000"), PriceCurrent: d("2010"), Profit: d("1"), TimeRaw: 10},
		{Ticket: 2, Symbol: "XAUUSD", Type: models.TypeSell, Volume: d("0.30"), PriceOpen: d("2020"), PriceCurrent: d("2010"), Profit: d("3"), TimeRaw: 20},
		{Ticket: 3, Symbol: "BTCUSD", Type: models.TypeBuy, Volume: d("0.50"), PriceOpen: d("50000"), PriceCurrent: d("50100"), Profit: d("50"), TimeRaw: 30},
	}

	snap := BuildSnapshot(positions)

	if len(snap) != 2 {
		t.Fatalf("snapshot has %d symbols, want 2", len(snap))
	}
	gold := snap["XAUUSD"]
	if gold.Long.PositionCount != 1 || gold.Short.PositionCount != 1 {
		t.Errorf("XAUUSD counts long=%d short=%d, want 1/1", gold.Long.PositionCount, gold.Short.PositionCount)
	}
	if !gold.Net.SizeSum.Equal(d("-0.20")) {
		t.Errorf("XAUUSD net size = %s, want -0.20", gold.Net.SizeSum)
	}
}

func TestBuildSnapshotEmptyInput(t *testing.T) {
	snap := BuildSnapshot(nil)
	if len(snap) != 0 {
		t.Errorf("empty input produced %d symbols, want 0", len(snap))
	}
}

func TestComputeNetSignedAverage(t *testing.T) {
	long := models.SideSummary{
		SizeSum:             d("0.30"),
		PositionCount:       2,
		AvgPrice:            d("100"),
		UnrealizedProfit:    d("5"),
		LastPositionTimeRaw: 100,
		CurrentPrice:        d("101"),
	}
	short := models.SideSummary{
		SizeSum:             d("0.10"),
		PositionCount:       1,
		AvgPrice:            d("110"),
		UnrealizedProfit:    d("-2"),
		LastPositionTimeRaw: 50,
		CurrentPrice:        d("102"),
	}

	net := ComputeNet(long, short)

	if !net.SizeSum.Equal(d("0.20")) {
		t.Errorf("net size = %s, want 0.20", net.SizeSum)
	}
	// (0.30*100 - 0.10*110) / 0.20 = 19 / 0.20 = 95
	if !net.AvgPrice.Equal(d("95")) {
		t.Errorf("net avg = %s, want 95", net.AvgPrice)
	}
	if net.PositionCount != 3 {
		t.Errorf("net count = %d, want 3", net.PositionCount)
	}
	if !net.UnrealizedProfit.Equal(d("3")) {
		t.Errorf("net profit = %s, want 3", net.UnrealizedProfit)
	}
	if !net.CurrentPrice.Equal(d("101")) {
		t.Errorf("net current price = %s, want the long side's 101", net.CurrentPrice)
	}
}

func TestComputeNetTieFavorsLong(t *testing.T) {
	long := models.SideSummary{SizeSum: d("1"), AvgPrice: d("100"), LastPositionTimeRaw: 500, CurrentPrice: d("101")}
	short := models.SideSummary{SizeSum: d("1"), AvgPrice: d("100"), LastPositionTimeRaw: 500, CurrentPrice: d("102")}

	net := ComputeNet(long, short)

	if !net.SizeSum.IsZero() {
		t.Errorf("net size = %s, want 0", net.SizeSum)
	}
	// Flat net book: average is defined as zero, not NaN or a division error.
	if !net.AvgPrice.IsZero() {
		t.Errorf("net avg = %s, want 0 for flat book", net.AvgPrice)
	}
	if !net.CurrentPrice.Equal(d("101")) {
		t.Errorf("tie broke to %s, want long side's 101", net.CurrentPrice)
	}
}

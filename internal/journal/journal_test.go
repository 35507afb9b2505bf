package journal

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
	"github.com/mazzara/algoone/internal/storage"
)

func TestJournalLifecycle(t *testing.T) {
	j := New(storage.NewMemStore())

	j.LogOpen(1001, "EURUSD", "BUY",
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("1.1000"),
		"RSI oversold", map[string]float64{"RSI": 28.5})

	entry, ok := j.Get(1001)
	if !ok {
		t.Fatal("opened trade missing from journal")
	}
	if entry.ID == "" {
		t.Error("entry has no id")
	}
	if entry.Symbol != "EURUSD" || entry.Direction != "BUY" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Closed {
		t.Error("fresh entry marked closed")
	}
	if len(entry.ProfitChain) != 0 {
		t.Errorf("fresh chain has %d entries", len(entry.ProfitChain))
	}

	pos := &models.Position{
		Ticket:       1001,
		Symbol:       "EURUSD",
		Type:         models.TypeBuy,
		PriceOpen:    decimal.RequireFromString("1.1000"),
		PriceCurrent: decimal.RequireFromString("1.1110"),
	}
	j.AppendTracking(pos)

	entry, _ = j.Get(1001)
	if len(entry.ProfitChain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(entry.ProfitChain))
	}
	if entry.PeakProfit <= 0 {
		t.Errorf("peak = %v, want positive", entry.PeakProfit)
	}

	j.LogClose(1001, decimal.RequireFromString("1.1110"), "PROFIT_GOAL")
	entry, _ = j.Get(1001)
	if !entry.Closed || entry.CloseReason != "PROFIT_GOAL" {
		t.Errorf("close not recorded: %+v", entry)
	}
	if !entry.ExitPrice.Equal(decimal.RequireFromString("1.1110")) {
		t.Errorf("exit price = %s", entry.ExitPrice)
	}
}

func TestJournalIgnoresUnknownTickets(t *testing.T) {
	j := New(storage.NewMemStore())

	pos := &models.Position{
		Ticket:       999,
		PriceOpen:    decimal.RequireFromString("100"),
		PriceCurrent: decimal.RequireFromString("101"),
	}
	j.AppendTracking(pos)
	if _, ok := j.Get(999); ok {
		t.Error("tracking created an entry for an unknown ticket")
	}

	j.LogClose(999, decimal.RequireFromString("101"), "HARD_STOP")
	if _, ok := j.Get(999); ok {
		t.Error("close created an entry for an unknown ticket")
	}
}

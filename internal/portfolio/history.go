package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

// Thresholds resolves the account-level goal fractions for a symbol, so the
// merge stays pure while still honoring per-symbol overrides.
type Thresholds func(symbol string) (closeProfit, trailingProfit float64)

// FixedThresholds returns a Thresholds that ignores the symbol.
func FixedThresholds(closeProfit, trailingProfit float64) Thresholds {
	return func(string) (float64, float64) { return closeProfit, trailingProfit }
}

// MergeSnapshot folds a fresh cycle snapshot into the persisted accounting
// book and returns a new book; neither input is mutated. A symbol present in
// the book but absent from the snapshot is treated as fully liquidated, so
// its sides fall through the flat reset.
func MergeSnapshot(book models.AccountingBook, snap models.Snapshot, thresholds Thresholds) models.AccountingBook {
	merged := models.AccountingBook{}

	symbols := map[string]bool{}
	for s := range book {
		symbols[s] = true
	}
	for s := range snap {
		symbols[s] = true
	}

	for symbol := range symbols {
		prior, known := book[symbol]

		var snapSides models.SymbolSnapshot
		if s, ok := snap[symbol]; ok {
			snapSides = *s
		}

		rec := &models.SymbolRecord{}
		if known {
			rec.Cycle = prior.Cycle
		}

		closeThreshold, trailingThreshold := thresholds(symbol)

		for _, side := range []string{models.SideLong, models.SideShort, models.SideNet} {
			var fresh models.SideSummary
			switch side {
			case models.SideLong:
				fresh = snapSides.Long
			case models.SideShort:
				fresh = snapSides.Short
			case models.SideNet:
				fresh = snapSides.Net
			}

			var out models.HistoricalSideRecord
			if !known {
				out.SideSummary = fresh
				out.ProfitRecordTrack = fresh.UnrealizedProfit
				out.LossRecordTrack = fresh.UnrealizedProfit
			} else {
				old := *prior.SideRecord(side)
				out = old
				out.ProfitRecordTrack = decimal.Max(old.ProfitRecordTrack, fresh.UnrealizedProfit)
				out.LossRecordTrack = decimal.Min(old.LossRecordTrack, fresh.UnrealizedProfit)
				// Snapshot-derived fields always take the fresh values.
				out.SideSummary = fresh
			}

			if out.SizeSum.IsZero() {
				// Fully liquidated: authoritative flat boundary.
				out.ProfitRecordTrack = decimal.Zero
				out.LossRecordTrack = decimal.Zero
				out.ProfitGoal = decimal.Zero
				out.TrailingProfit = decimal.Zero
				out.GoalMet = false
				out.TrailingCrossed = false
				out.CloseSignal = false
			} else {
				out.ProfitGoal = targetProfit(out.SideSummary, closeThreshold)
				out.TrailingProfit = targetProfit(out.SideSummary, trailingThreshold)
				out.GoalMet = out.UnrealizedProfit.GreaterThanOrEqual(out.ProfitGoal)
				out.TrailingCrossed = out.UnrealizedProfit.GreaterThanOrEqual(out.TrailingProfit)
				// Both conditions on purpose: a small absolute profit that
				// merely clears the low trailing bar must not trigger an exit.
				out.CloseSignal = out.GoalMet && out.TrailingCrossed
			}

			*rec.SideRecord(side) = out
		}

		merged[symbol] = rec
	}

	return merged
}

// targetProfit is the invested-notional goal: size · avg price · threshold.
func targetProfit(s models.SideSummary, threshold float64) decimal.Decimal {
	return s.SizeSum.Mul(s.AvgPrice).Mul(decimal.NewFromFloat(threshold))
}

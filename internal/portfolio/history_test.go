package portfolio

import (
	"testing"

	"github.com/mazzara/algoone/internal/models"
)

func longOnlySnapshot(symbol string, size, avg, profit string) models.Snapshot {
	long := models.SideSummary{
		SizeSum:          d(size),
		PositionCount:    1,
		AvgPrice:         d(avg),
		UnrealizedProfit: d(profit),
	}
	var short models.SideSummary
	return models.Snapshot{
		symbol: {Long: long, Short: short, Net: ComputeNet(long, short)},
	}
}

func TestMergeSnapshotSeedsNewSymbol(t *testing.T) {
	book := models.AccountingBook{}
	snap := longOnlySnapshot("EURUSD", "1", "100", "-2")

	merged := MergeSnapshot(book, snap, FixedThresholds(0.05, 0.005))

	rec, ok := merged["EURUSD"]
	if !ok {
		t.Fatal("EURUSD missing from merged book")
	}
	// First sighting seeds both extrema with the current profit.
	if !rec.Long.ProfitRecordTrack.Equal(d("-2")) {
		t.Errorf("profit track = %s, want -2", rec.Long.ProfitRecordTrack)
	}
	if !rec.Long.LossRecordTrack.Equal(d("-2")) {
		t.Errorf("loss track = %s, want -2", rec.Long.LossRecordTrack)
	}
	// Goal = 1 * 100 * 0.05 = 5
	if !rec.Long.ProfitGoal.Equal(d("5")) {
		t.Errorf("profit goal = %s, want 5", rec.Long.ProfitGoal)
	}
	if rec.Long.CloseSignal {
		t.Error("close signal raised for a losing side")
	}
}

func TestMergeSnapshotTracksExtrema(t *testing.T) {
	thresholds := FixedThresholds(0.05, 0.005)

	book := MergeSnapshot(models.AccountingBook{}, longOnlySnapshot("EURUSD", "1", "100", "2"), thresholds)
	book = MergeSnapshot(book, longOnlySnapshot("EURUSD", "1", "100", "8"), thresholds)
	book = MergeSnapshot(book, longOnlySnapshot("EURUSD", "1", "100", "-3"), thresholds)

	rec := book["EURUSD"]
	if !rec.Long.ProfitRecordTrack.Equal(d("8")) {
		t.Errorf("profit track = %s, want running max 8", rec.Long.ProfitRecordTrack)
	}
	if !rec.Long.LossRecordTrack.Equal(d("-3")) {
		t.Errorf("loss track = %s, want running min -3", rec.Long.LossRecordTrack)
	}
	// The live summary always reflects the latest cycle.
	if !rec.Long.UnrealizedProfit.Equal(d("-3")) {
		t.Errorf("unrealized = %s, want -3", rec.Long.UnrealizedProfit)
	}
}

func TestMergeSnapshotCloseSignalNeedsBothConditions(t *testing.T) {
	thresholds := FixedThresholds(0.05, 0.005)

	// Goal 5, trailing 0.5. Profit 0.6 clears only the trailing bar.
	book := MergeSnapshot(models.AccountingBook{}, longOnlySnapshot("EURUSD", "1", "100", "0.6"), thresholds)
	rec := book["EURUSD"]
	if rec.Long.GoalMet {
		t.Error("goal met at 0.6 with goal 5")
	}
	if !rec.Long.TrailingCrossed {
		t.Error("trailing not crossed at 0.6 with floor 0.5")
	}
	if rec.Long.CloseSignal {
		t.Error("close signal must require goal AND trailing, got signal on trailing alone")
	}

	// Profit 6 clears both.
	book = MergeSnapshot(book, longOnlySnapshot("EURUSD", "1", "100", "6"), thresholds)
	rec = book["EURUSD"]
	if !rec.Long.CloseSignal {
		t.Error("close signal missing with profit 6, goal 5, trailing 0.5")
	}
}

func TestMergeSnapshotFlatReset(t *testing.T) {
	thresholds := FixedThresholds(0.05, 0.005)

	book := MergeSnapshot(models.AccountingBook{}, longOnlySnapshot("EURUSD", "1", "100", "6"), thresholds)
	if !book["EURUSD"].Long.CloseSignal {
		t.Fatal("precondition: close signal should be set")
	}
	book["EURUSD"].Cycle.LastCycleTime = 1234

	// Symbol disappears from the snapshot: fully liquidated.
	book = MergeSnapshot(book, models.Snapshot{}, thresholds)

	rec, ok := book["EURUSD"]
	if !ok {
		t.Fatal("liquidated symbol dropped from book, want flat record kept")
	}
	for _, side := range []string{models.SideLong, models.SideShort, models.SideNet} {
		sr := rec.SideRecord(side)
		if !sr.ProfitRecordTrack.IsZero() || !sr.LossRecordTrack.IsZero() {
			t.Errorf("%s extrema not reset: %s / %s", side, sr.ProfitRecordTrack, sr.LossRecordTrack)
		}
		if sr.GoalMet || sr.TrailingCrossed || sr.CloseSignal {
			t.Errorf("%s flags not reset", side)
		}
	}
	// The cycle stamp survives the flat reset; the cooldown outlives the trade.
	if rec.Cycle.LastCycleTime != 1234 {
		t.Errorf("cycle time = %d, want 1234 preserved", rec.Cycle.LastCycleTime)
	}
}

func TestMergeSnapshotDoesNotMutateInputs(t *testing.T) {
	thresholds := FixedThresholds(0.05, 0.005)
	book := MergeSnapshot(models.AccountingBook{}, longOnlySnapshot("EURUSD", "1", "100", "2"), thresholds)
	before := book["EURUSD"].Long.UnrealizedProfit

	_ = MergeSnapshot(book, longOnlySnapshot("EURUSD", "1", "100", "9"), thresholds)

	if !book["EURUSD"].Long.UnrealizedProfit.Equal(before) {
		t.Error("merge mutated the prior book")
	}
}

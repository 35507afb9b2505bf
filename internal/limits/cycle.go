package limits

import (
	"log"
	"time"

	"github.com/mazzara/algoone/internal/models"
)

// RegisterCycle stamps the start of a liquidation cooldown for a symbol that
// has gone fully flat (NET size and count both zero). Returns true when a
// new cycle was registered. The caller persists the book.
func RegisterCycle(book models.AccountingBook, symbol string, now time.Time) bool {
	rec, ok := book[symbol]
	if !ok {
		return false
	}

	if !rec.Net.SizeSum.IsZero() || rec.Net.PositionCount != 0 {
		return false
	}

	rec.Cycle.LastCycleTime = now.Unix()
	log.Printf("[CYCLE] %s fully liquidated, cycle registered at %s",
		symbol, now.UTC().Format("2006-01-02 15:04:05"))
	return true
}

// CheckCycleClearance reports whether a symbol may re-engage after its last
// liquidation. No recorded cycle means clearance is granted.
func CheckCycleClearance(book models.AccountingBook, symbol string, cooldown time.Duration, now time.Time) bool {
	rec, ok := book[symbol]
	if !ok || rec.Cycle.LastCycleTime == 0 {
		return true
	}

	elapsed := now.Sub(time.Unix(rec.Cycle.LastCycleTime, 0))
	if elapsed >= cooldown {
		return true
	}

	log.Printf("[CYCLE] %s still in liquidation cooldown (%s of %s elapsed), blocking re-entry",
		symbol, elapsed.Round(time.Second), cooldown)
	return false
}

package trader

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

// Volatility-ladder actions.
const (
	ActionTakeProfit = "TAKE_PROFIT"
	ActionTrail15M   = "TRAIL_15M"
	ActionTrail5M    = "TRAIL_5M"
	ActionTrail1M    = "TRAIL_1M"
)

// ErrNoRiskProfile is returned when a symbol has no usable risk profile. The
// ladder never fabricates a default profile.
var ErrNoRiskProfile = errors.New("trader: risk profile unavailable")

var ladderTimeframes = []string{"1m", "5m", "15m", "1h", "1d"}

// VolatilityStaircase grades the realized move against the symbol's
// historical ATR bands. Larger moves graduate the stop toward a smaller,
// more recent timeframe band; a full 1d move recommends closing outright.
// Thresholds are walked largest-first and the first one met wins.
func VolatilityStaircase(pos *models.Position, tick models.Tick, profile models.RiskProfile) (Decision, error) {
	if len(profile) == 0 {
		return Decision{}, ErrNoRiskProfile
	}

	bands := map[string]float64{}
	for _, tf := range ladderTimeframes {
		entry, ok := profile[tf]
		if !ok {
			return Decision{}, fmt.Errorf("%w: missing %s band for %s", ErrNoRiskProfile, tf, pos.Symbol)
		}
		bands[tf] = entry.MeanATRPct
	}

	if pos.PriceOpen.IsZero() {
		return Decision{}, errors.New("trader: position has no open price")
	}

	priceNow := marketPrice(pos.Type, tick)
	movePct := signedMove(pos.Type, pos.PriceOpen, priceNow) * 100.0

	// Each rung is named for the band the stop trails TO, one step below
	// the band the move cleared: a move past the 5m band trails to the 1m
	// band and is reported as TRAIL_1M.
	ladder := []struct {
		threshold float64 // percent of entry price
		trailTo   float64 // band to trail to, percent
		action    string
	}{
		{bands["1d"], 0, ActionTakeProfit},
		{bands["1h"], bands["15m"], ActionTrail15M},
		{bands["15m"], bands["5m"], ActionTrail5M},
		{bands["5m"], bands["1m"], ActionTrail1M},
	}

	for _, rung := range ladder {
		if movePct < rung.threshold {
			continue
		}
		if rung.action == ActionTakeProfit {
			log.Printf("[V-LADDER] %s full 1d move reached (%.4f%%), recommending close", pos.Symbol, movePct)
			return Decision{Close: true, Reason: ActionTakeProfit}, nil
		}
		sl := TrailTarget(pos.PriceOpen, rung.trailTo, pos.Type)
		log.Printf("[V-LADDER] %s move %.4f%% hit %s band, trailing stop to %s", pos.Symbol, movePct, rung.action, sl)
		return Decision{RecommendedSL: sl, HasSL: true, Reason: rung.action}, nil
	}

	return Decision{Reason: ReasonHold}, nil
}

// TrailTarget converts a trail band (percent of entry) into an absolute
// stop-loss price on the protected side of the entry.
func TrailTarget(openPrice decimal.Decimal, trailPct float64, posType string) decimal.Decimal {
	offset := openPrice.Mul(decimal.NewFromFloat(trailPct / 100.0))
	if posType == models.TypeSell {
		return openPrice.Sub(offset)
	}
	return openPrice.Add(offset)
}

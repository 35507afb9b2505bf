package trader

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

// Staircase decision reasons.
const (
	ReasonWarmup     = "WARMUP"
	ReasonHardStop   = "HARD_STOP"
	ReasonBufferStop = "BUFFER_STOP"
	ReasonTrailing   = "TRAILING"
	ReasonHold       = "HOLD"
)

// ErrNoATR is returned when the ATR input is zero or negative; no stop-loss
// management is possible for the cycle.
var ErrNoATR = errors.New("trader: ATR unavailable")

// Params are the staircase thresholds, resolved per symbol by the caller.
type Params struct {
	MaxLossDecimal        float64 // hard stop, fraction of entry price
	InitialSLBufferATR    float64 // ATR multiple for the initial buffer stop
	MinTicksToHold        int     // warmup before any action
	TrailingActivationPct float64 // fraction of entry price, activates trailing
	ATRMultiplier         float64
	BreakEvenOffset       float64 // fraction of ATR above/below entry
}

// Decision is the output contract toward the order-execution collaborator:
// either a stop-loss recommendation, a close signal, or neither.
type Decision struct {
	RecommendedSL decimal.Decimal
	HasSL         bool
	Close         bool
	Reason        string
}

// TrailingStaircase runs the layered stop-loss evaluation for one position.
// The ladder is checked in fixed priority order: warmup, hard max-loss cut,
// ATR buffer stop, trailing activation, hold.
func TrailingStaircase(pos *models.Position, tick models.Tick, atr decimal.Decimal, p Params) (Decision, error) {
	if atr.Sign() <= 0 {
		return Decision{}, ErrNoATR
	}
	if pos.PriceOpen.IsZero() {
		return Decision{}, errors.New("trader: position has no open price")
	}

	// The chain length stands in for time-in-trade; too few observations
	// means any move is still noise.
	if len(pos.ProfitChain) < p.MinTicksToHold {
		return Decision{Reason: ReasonWarmup}, nil
	}

	priceNow := marketPrice(pos.Type, tick)
	pctProfit := signedMove(pos.Type, pos.PriceOpen, priceNow)

	if pctProfit < -p.MaxLossDecimal {
		return Decision{Close: true, Reason: ReasonHardStop}, nil
	}

	bufferCutoff := atr.
		Mul(decimal.NewFromFloat(p.InitialSLBufferATR)).
		Div(pos.PriceOpen).
		Neg().
		InexactFloat64()
	if pctProfit < bufferCutoff {
		return Decision{Close: true, Reason: ReasonBufferStop}, nil
	}

	if pctProfit > p.TrailingActivationPct {
		sl, ok := BreakEvenTrail(pos, tick, atr, p)
		return Decision{RecommendedSL: sl, HasSL: ok, Reason: ReasonTrailing}, nil
	}

	return Decision{Reason: ReasonHold}, nil
}

// BreakEvenTrail computes the break-even-then-trail stop for an active
// trailing phase. Once price has cleared entry by a full ATR the trail is
// floored at a break-even offset; before that it is a pure ATR-multiple
// trail. The candidate is discarded unless it improves on the current stop.
func BreakEvenTrail(pos *models.Position, tick models.Tick, atr decimal.Decimal, p Params) (decimal.Decimal, bool) {
	priceNow := marketPrice(pos.Type, tick)
	mult := decimal.NewFromFloat(p.ATRMultiplier)
	offset := decimal.NewFromFloat(p.BreakEvenOffset)

	var candidate decimal.Decimal
	if pos.Type == models.TypeSell {
		candidate = priceNow.Add(atr.Mul(mult))
		if priceNow.LessThanOrEqual(pos.PriceOpen.Sub(atr)) {
			candidate = decimal.Min(candidate, pos.PriceOpen.Sub(atr.Mul(offset)))
		}
	} else {
		candidate = priceNow.Sub(atr.Mul(mult))
		if priceNow.GreaterThanOrEqual(pos.PriceOpen.Add(atr)) {
			candidate = decimal.Max(candidate, pos.PriceOpen.Add(atr.Mul(offset)))
		}
	}

	if !ImprovesStop(pos.Type, pos.StopLoss, candidate) {
		return decimal.Zero, false
	}
	return candidate, true
}

// ATRTrail is the plain ATR-multiple trailing manager with the same
// improvement-only acceptance.
func ATRTrail(pos *models.Position, tick models.Tick, atr decimal.Decimal, multiplier float64) (decimal.Decimal, bool) {
	priceNow := marketPrice(pos.Type, tick)
	dist := atr.Mul(decimal.NewFromFloat(multiplier))

	candidate := priceNow.Sub(dist)
	if pos.Type == models.TypeSell {
		candidate = priceNow.Add(dist)
	}

	if !ImprovesStop(pos.Type, pos.StopLoss, candidate) {
		return decimal.Zero, false
	}
	return candidate, true
}

// VolatilityTrail trails at a fixed fraction of the current price.
func VolatilityTrail(pos *models.Position, tick models.Tick, cap float64) (decimal.Decimal, bool) {
	priceNow := marketPrice(pos.Type, tick)
	offset := priceNow.Mul(decimal.NewFromFloat(cap))

	candidate := priceNow.Sub(offset)
	if pos.Type == models.TypeSell {
		candidate = priceNow.Add(offset)
	}

	if !ImprovesStop(pos.Type, pos.StopLoss, candidate) {
		return decimal.Zero, false
	}
	return candidate, true
}

// InitialVolatilityStop places the first stop a fixed fraction away from the
// entry price.
func InitialVolatilityStop(pos *models.Position, cap float64) decimal.Decimal {
	capDec := decimal.NewFromFloat(cap)
	if pos.Type == models.TypeSell {
		return pos.PriceOpen.Mul(decimal.NewFromInt(1).Add(capDec))
	}
	return pos.PriceOpen.Mul(decimal.NewFromInt(1).Sub(capDec))
}

// ImprovesStop reports whether a candidate stop tightens protection: higher
// for a BUY, lower for a SELL. An unset (zero) current stop always improves.
// A trailing stop may move with the position but never against it.
func ImprovesStop(posType string, current, candidate decimal.Decimal) bool {
	if current.IsZero() {
		return true
	}
	if posType == models.TypeSell {
		return candidate.LessThan(current)
	}
	return candidate.GreaterThan(current)
}

// marketPrice picks the closing side of the book: bid for a BUY exit, ask
// for a SELL exit.
func marketPrice(posType string, tick models.Tick) decimal.Decimal {
	if posType == models.TypeSell {
		return tick.Ask
	}
	return tick.Bid
}

// signedMove is the direction-aware move from open to current as a fraction
// of the open price.
func signedMove(posType string, open, current decimal.Decimal) float64 {
	move := current.Sub(open)
	if posType == models.TypeSell {
		move = open.Sub(current)
	}
	return move.Div(open).InexactFloat64()
}

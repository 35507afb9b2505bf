package portfolio

import (
	"math"

	"github.com/mazzara/algoone/internal/models"
)

// TrackerParams tune the per-position profit-chain tracker.
type TrackerParams struct {
	ProfitStep     float64 // rounding step for chain entries, in percent
	MaxChainLength int
	RetracePct     float64 // fraction of peak gain allowed to be given back
	BounceLookback int
}

// DefaultTrackerParams mirrors the configured defaults. The 0.382 retrace is
// a Fibonacci-style heuristic: give back at most ~38% of the peak gain.
func DefaultTrackerParams() TrackerParams {
	return TrackerParams{
		ProfitStep:     0.01,
		MaxChainLength: 10,
		RetracePct:     0.382,
		BounceLookback: 3,
	}
}

// ProfitPct is the signed, direction-aware profit of a position as a percent
// of its entry price. Missing price data yields 0 rather than an error.
func ProfitPct(p *models.Position) float64 {
	if p.PriceOpen.IsZero() || p.PriceCurrent.IsZero() {
		return 0.0
	}
	move := p.PriceCurrent.Sub(p.PriceOpen)
	if p.Type == models.TypeSell {
		move = p.PriceOpen.Sub(p.PriceCurrent)
	}
	return move.Div(p.PriceOpen).InexactFloat64() * 100.0
}

// UpdateProfitChain appends the current rounded profit percent to the
// position's chain and advances its peak. Consecutive identical samples are
// dropped (unchanged price is noise, not signal) and the chain is bounded to
// the most recent maxLen entries.
func UpdateProfitChain(p *models.Position, step float64, maxLen int) {
	pct := ProfitPct(p)

	if len(p.ProfitChain) == 0 {
		p.PeakProfit = pct
	} else {
		p.PeakProfit = math.Max(p.PeakProfit, pct)
	}

	rounded := pct
	if step > 0 {
		rounded = math.Round(pct/step) * step
	}

	n := len(p.ProfitChain)
	if n == 0 || p.ProfitChain[n-1] != rounded {
		p.ProfitChain = append(p.ProfitChain, rounded)
	}

	if maxLen > 0 && len(p.ProfitChain) > maxLen {
		p.ProfitChain = p.ProfitChain[len(p.ProfitChain)-maxLen:]
	}
}

// CheckTrailingRetrace reports whether the position has given back at least
// retracePct of its peak gain. Positions that never reached a positive peak
// cannot retrace.
func CheckTrailingRetrace(p *models.Position, retracePct float64) bool {
	if p.PeakProfit <= 0 {
		return false
	}
	current := ProfitPct(p)
	return (p.PeakProfit-current)/p.PeakProfit >= retracePct
}

// CheckFailedBounce reports whether a never-profitable position is making
// strictly lower lows across the last lookback chain entries, i.e. losing
// with no recovery attempt.
func CheckFailedBounce(p *models.Position, lookback int) bool {
	if p.PeakProfit >= 0 {
		return false
	}
	if lookback < 2 || len(p.ProfitChain) < lookback {
		return false
	}

	tail := p.ProfitChain[len(p.ProfitChain)-lookback:]
	for i := 1; i < len(tail); i++ {
		if tail[i] >= tail[i-1] {
			return false
		}
	}
	return true
}

// ProcessPositionState runs one tracker cycle on a position: chain update,
// retrace check, failed-bounce check, close-signal flag.
func ProcessPositionState(p *models.Position, params TrackerParams) {
	UpdateProfitChain(p, params.ProfitStep, params.MaxChainLength)
	retrace := CheckTrailingRetrace(p, params.RetracePct)
	bounce := CheckFailedBounce(p, params.BounceLookback)
	p.CloseSignal = retrace || bounce
}

// ProcessAllPositions applies the tracker to every position in place.
func ProcessAllPositions(positions []models.Position, params TrackerParams) {
	for i := range positions {
		ProcessPositionState(&positions[i], params)
	}
}

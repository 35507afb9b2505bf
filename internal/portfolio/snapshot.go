package portfolio

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

// sideAccumulator collects one (symbol, side) group while walking the raw
// position list.
type sideAccumulator struct {
	sizeSum     decimal.Decimal
	count       int
	weightedSum decimal.Decimal // Σ price_open · volume
	profitSum   decimal.Decimal

	lastTimeRaw  int64
	lastTime     string
	currentPrice decimal.Decimal
	hasLast      bool
}

func (a *sideAccumulator) add(p models.Position) {
	a.sizeSum = a.sizeSum.Add(p.Volume)
	a.count++
	a.weightedSum = a.weightedSum.Add(p.PriceOpen.Mul(p.Volume))
	a.profitSum = a.profitSum.Add(p.Profit)

	// Most recent position carries the side's current price and timestamp.
	// Strict comparison keeps the first match on ties.
	if !a.hasLast || p.TimeRaw > a.lastTimeRaw {
		a.hasLast = true
		a.lastTimeRaw = p.TimeRaw
		a.lastTime = p.TimeOpen
		a.currentPrice = p.PriceCurrent
	}
}

func (a *sideAccumulator) summary() models.SideSummary {
	avg := decimal.Zero
	if a.sizeSum.Sign() > 0 {
		avg = a.weightedSum.Div(a.sizeSum)
	}
	return models.SideSummary{
		SizeSum:             a.sizeSum,
		PositionCount:       a.count,
		AvgPrice:            avg,
		CurrentPrice:        a.currentPrice,
		UnrealizedProfit:    a.profitSum,
		LastPositionTime:    a.lastTime,
		LastPositionTimeRaw: a.lastTimeRaw,
	}
}

// BuildSnapshot converts the flat raw position list into per-symbol,
// per-side summaries including the derived NET view. An empty input is a
// normal steady state, not an error.
func BuildSnapshot(positions []models.Position) models.Snapshot {
	if len(positions) == 0 {
		log.Println("WARN: no open positions, returning empty snapshot")
		return models.Snapshot{}
	}

	type sides struct {
		long  sideAccumulator
		short sideAccumulator
	}
	grouped := map[string]*sides{}

	for _, p := range positions {
		g, ok := grouped[p.Symbol]
		if !ok {
			g = &sides{}
			grouped[p.Symbol] = g
		}
		if p.Side() == models.SideShort {
			g.short.add(p)
		} else {
			g.long.add(p)
		}
	}

	snapshot := models.Snapshot{}
	for symbol, g := range grouped {
		long := g.long.summary()
		short := g.short.summary()
		snapshot[symbol] = &models.SymbolSnapshot{
			Long:  long,
			Short: short,
			Net:   ComputeNet(long, short),
		}
	}
	return snapshot
}

// ComputeNet derives the signed NET view of a symbol from its LONG and SHORT
// summaries. NET average price comes from signed weighted sums and defaults
// to zero for a flat net book; the current price and timestamp copy from
// whichever side traded more recently, LONG winning ties.
func ComputeNet(long, short models.SideSummary) models.SideSummary {
	netSize := long.SizeSum.Sub(short.SizeSum)

	netAvg := decimal.Zero
	if !netSize.IsZero() {
		weightedLong := long.SizeSum.Mul(long.AvgPrice)
		weightedShort := short.SizeSum.Mul(short.AvgPrice)
		netAvg = weightedLong.Sub(weightedShort).Div(netSize)
	}

	net := models.SideSummary{
		SizeSum:          netSize,
		PositionCount:    long.PositionCount + short.PositionCount,
		AvgPrice:         netAvg,
		UnrealizedProfit: long.UnrealizedProfit.Add(short.UnrealizedProfit),
	}

	if long.LastPositionTimeRaw >= short.LastPositionTimeRaw {
		net.CurrentPrice = long.CurrentPrice
		net.LastPositionTime = long.LastPositionTime
		net.LastPositionTimeRaw = long.LastPositionTimeRaw
	} else {
		net.CurrentPrice = short.CurrentPrice
		net.LastPositionTime = short.LastPositionTime
		net.LastPositionTimeRaw = short.LastPositionTimeRaw
	}

	return net
}

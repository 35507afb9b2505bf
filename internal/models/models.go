package models

import "github.com/shopspring/decimal"

// Position sides as they appear in the accounting book. Raw broker positions
// carry a BUY/SELL type; the book aggregates them into LONG/SHORT plus a
// derived NET view.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
	SideNet   = "NET"
)

// Raw position types as reported by the broker.
const (
	TypeBuy  = "BUY"
	TypeSell = "SELL"
)

// Position is one open brokerage position, refreshed every polling cycle.
// ProfitChain, PeakProfit and CloseSignal are maintained by the position
// state tracker and merged back into the persisted positions record on save;
// everything else is owned by the data source.
type Position struct {
	Ticket       int64           `json:"ticket"`
	Symbol       string          `json:"symbol"`
	Type         string          `json:"type"` // BUY or SELL
	Volume       decimal.Decimal `json:"volume"`
	PriceOpen    decimal.Decimal `json:"price_open"`
	PriceCurrent decimal.Decimal `json:"price_current"`
	Profit       decimal.Decimal `json:"profit"` // unrealized, account currency
	StopLoss     decimal.Decimal `json:"sl"`     // zero = unset
	TakeProfit   decimal.Decimal `json:"tp"`     // zero = unset
	TimeOpen     string          `json:"time_open"`
	TimeRaw      int64           `json:"time_raw"` // epoch seconds

	ProfitChain []float64 `json:"profit_chain"`
	PeakProfit  float64   `json:"peak_profit"`
	CloseSignal bool      `json:"close_signal"`
}

// Side maps the raw BUY/SELL type to the book's LONG/SHORT side.
func (p *Position) Side() string {
	if p.Type == TypeSell {
		return SideShort
	}
	return SideLong
}

// Tick is a live bid/ask quote.
type Tick struct {
	Symbol  string          `json:"symbol"`
	Bid     decimal.Decimal `json:"bid"`
	Ask     decimal.Decimal `json:"ask"`
	TimeRaw int64           `json:"time_raw"`
}

// SideSummary aggregates one side of one symbol from the raw position list.
// AvgPrice is size-weighted and defaults to zero when SizeSum is zero.
type SideSummary struct {
	SizeSum             decimal.Decimal `json:"SIZE_SUM"`
	PositionCount       int             `json:"POSITION_COUNT"`
	AvgPrice            decimal.Decimal `json:"AVG_PRICE"`
	CurrentPrice        decimal.Decimal `json:"CURRENT_PRICE"`
	UnrealizedProfit    decimal.Decimal `json:"UNREALIZED_PROFIT"`
	LastPositionTime    string          `json:"LAST_POSITION_TIME"`
	LastPositionTimeRaw int64           `json:"LAST_POSITION_TIME_RAW"`
}

// SymbolSnapshot is the per-symbol output of one aggregation pass.
type SymbolSnapshot struct {
	Long  SideSummary `json:"LONG"`
	Short SideSummary `json:"SHORT"`
	Net   SideSummary `json:"NET"`
}

// Snapshot maps symbol to its aggregated sides for a single cycle.
type Snapshot map[string]*SymbolSnapshot

// HistoricalSideRecord extends SideSummary with running extrema and
// profit-goal flags kept across cycles. Everything resets to zero/false the
// moment SizeSum returns to zero; that flat boundary is what the liquidation
// cycle limiter keys on.
type HistoricalSideRecord struct {
	SideSummary

	ProfitRecordTrack decimal.Decimal `json:"PROFIT_RECORD_TRACK"`
	LossRecordTrack   decimal.Decimal `json:"LOSS_RECORD_TRACK"`
	ProfitGoal        decimal.Decimal `json:"PROFIT_GOAL"`
	TrailingProfit    decimal.Decimal `json:"TRAILING_PROFIT"`
	GoalMet           bool            `json:"GOAL_MET"`
	TrailingCrossed   bool            `json:"TRAILING_CROSSED"`
	CloseSignal       bool            `json:"CLOSE_SIGNAL"`
}

// CycleInfo records the last full-liquidation time for a symbol, used for
// re-entry cooldown clearance.
type CycleInfo struct {
	LastCycleTime int64 `json:"LAST_CYCLE_TIME"`
}

// SymbolRecord is the persisted accounting record for one symbol.
type SymbolRecord struct {
	Long  HistoricalSideRecord `json:"LONG"`
	Short HistoricalSideRecord `json:"SHORT"`
	Net   HistoricalSideRecord `json:"NET"`
	Cycle CycleInfo            `json:"CYCLE"`
}

// SideRecord returns a pointer to the record for the given side name.
func (r *SymbolRecord) SideRecord(side string) *HistoricalSideRecord {
	switch side {
	case SideShort:
		return &r.Short
	case SideNet:
		return &r.Net
	default:
		return &r.Long
	}
}

// AccountingBook is the whole persisted per-symbol accounting store.
type AccountingBook map[string]*SymbolRecord

// TimeframeRisk holds the pre-computed historical ATR, expressed as a
// percent of price, for one timeframe.
type TimeframeRisk struct {
	MeanATRPct float64 `json:"mean_atr_pct"`
}

// RiskProfile maps timeframe (1m, 5m, 15m, 1h, 1d) to its volatility stats.
type RiskProfile map[string]TimeframeRisk

// Bar is a single OHLCV candle.
type Bar struct {
	TimeRaw int64           `json:"time"`
	Open    decimal.Decimal `json:"open"`
	High    decimal.Decimal `json:"high"`
	Low     decimal.Decimal `json:"low"`
	Close   decimal.Decimal `json:"close"`
	Volume  int64           `json:"volume"`
}

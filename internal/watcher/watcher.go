package watcher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/config"
	"github.com/mazzara/algoone/internal/indicators"
	"github.com/mazzara/algoone/internal/journal"
	"github.com/mazzara/algoone/internal/limits"
	"github.com/mazzara/algoone/internal/market"
	"github.com/mazzara/algoone/internal/models"
	"github.com/mazzara/algoone/internal/portfolio"
	"github.com/mazzara/algoone/internal/storage"
	"github.com/mazzara/algoone/internal/trader"
)

// Watcher runs the poll cycle: pull open positions from the broker,
// rebuild the symbol snapshot, merge it into the accounting book,
// advance each position's profit chain and decide stop-loss moves.
type Watcher struct {
	cfg       *config.Config
	provider  market.Provider
	executor  market.OrderExecutor // nil means decisions are logged only
	store     storage.RecordStore
	overrides *config.Overrides
	profiles  market.RiskProfileSource
	journal   *journal.Journal

	mu       sync.Mutex
	book     models.AccountingBook
	lastFlat map[string]bool
}

func New(cfg *config.Config, provider market.Provider, executor market.OrderExecutor,
	store storage.RecordStore, overrides *config.Overrides, profiles market.RiskProfileSource) *Watcher {
	w := &Watcher{
		cfg:       cfg,
		provider:  provider,
		executor:  executor,
		store:     store,
		overrides: overrides,
		profiles:  profiles,
		journal:   journal.New(store),
		book:      storage.LoadBook(store),
		lastFlat:  make(map[string]bool),
	}
	// Seed flatness from the persisted book so a restart does not treat
	// every already-flat symbol as a fresh liquidation and restart its
	// cooldown.
	for symbol, rec := range w.book {
		w.lastFlat[symbol] = rec.Net.SizeSum.IsZero() && rec.Net.PositionCount == 0
	}
	return w
}

// Poll runs one full cycle. Per-position failures are contained: one
// bad symbol never aborts the rest of the cycle.
func (w *Watcher) Poll(ctx context.Context) {
	positions, err := w.provider.ListPositions(ctx)
	if err != nil {
		log.Printf("ERROR: could not list positions: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.restoreTracking(positions)

	snap := portfolio.BuildSnapshot(positions)
	w.book = portfolio.MergeSnapshot(w.book, snap, w.symbolThresholds)
	w.registerFlatCycles()
	storage.SaveOrLog(w.store, storage.KeyAccounting, w.book)

	closed := make(map[int64]bool)
	for i := range positions {
		pos := &positions[i]
		portfolio.ProcessPositionState(pos, w.trackerParams(pos.Symbol))
		w.journal.AppendTracking(pos)

		if pos.CloseSignal {
			w.closePosition(ctx, pos, "PROFIT_RETRACE")
			closed[pos.Ticket] = true
			continue
		}
		if err := w.manageStop(ctx, pos); err != nil {
			log.Printf("[SL] %s ticket %d: %v", pos.Symbol, pos.Ticket, err)
		}
	}

	w.applyBookSignals(ctx, positions, closed)

	storage.SaveOrLog(w.store, storage.KeyPositions, positions)
}

// restoreTracking carries the profit chain and peak from the previous
// cycle forward; the broker only reports the live position fields.
func (w *Watcher) restoreTracking(positions []models.Position) {
	cached, err := storage.LoadCachedPositions(w.store, 3)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("WARN: could not load cached positions: %v", err)
		}
		return
	}

	byTicket := make(map[int64]models.Position, len(cached))
	for _, c := range cached {
		byTicket[c.Ticket] = c
	}

	for i := range positions {
		c, ok := byTicket[positions[i].Ticket]
		if !ok {
			continue
		}
		positions[i].ProfitChain = c.ProfitChain
		positions[i].PeakProfit = c.PeakProfit
		if positions[i].StopLoss.IsZero() {
			positions[i].StopLoss = c.StopLoss
		}
		if positions[i].TimeRaw == 0 {
			positions[i].TimeRaw = c.TimeRaw
			positions[i].TimeOpen = c.TimeOpen
		}
	}
}

// registerFlatCycles stamps the cooldown clock for symbols whose net
// exposure just dropped to zero.
func (w *Watcher) registerFlatCycles() {
	now := time.Now()
	for symbol, rec := range w.book {
		flat := rec.Net.SizeSum.IsZero() && rec.Net.PositionCount == 0
		if flat && !w.lastFlat[symbol] {
			limits.RegisterCycle(w.book, symbol, now)
		}
		w.lastFlat[symbol] = flat
	}
}

// ClearedToTrade reports whether the post-liquidation cooldown for a
// symbol has elapsed.
func (w *Watcher) ClearedToTrade(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	cooldown := time.Duration(w.overrides.SymbolInt(symbol, "liquidation_cycle_seconds", w.cfg.LiquidationCycleSeconds)) * time.Second
	return limits.CheckCycleClearance(w.book, symbol, cooldown, time.Now())
}

// Book returns a point-in-time reference to the accounting book.
func (w *Watcher) Book() models.AccountingBook {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book
}

func (w *Watcher) manageStop(ctx context.Context, pos *models.Position) error {
	tick, err := w.provider.GetTick(ctx, pos.Symbol)
	if err != nil {
		return err
	}

	var dec trader.Decision
	switch w.cfg.SLStrategy {
	case "volatility":
		profile, err := w.profiles.GetRiskProfile(pos.Symbol)
		if err != nil {
			return err
		}
		dec, err = trader.VolatilityStaircase(pos, *tick, profile)
		if err != nil {
			return err
		}
	default:
		atr, err := w.currentATR(ctx, pos.Symbol)
		if err != nil {
			return err
		}
		dec, err = trader.TrailingStaircase(pos, *tick, atr, w.slParams(pos.Symbol))
		if err != nil {
			return err
		}
	}

	return w.applyDecision(ctx, pos, dec)
}

func (w *Watcher) applyDecision(ctx context.Context, pos *models.Position, dec trader.Decision) error {
	switch {
	case dec.Close:
		w.closePosition(ctx, pos, dec.Reason)
	case dec.HasSL:
		if !trader.ImprovesStop(pos.Type, pos.StopLoss, dec.RecommendedSL) {
			return nil
		}
		log.Printf("[SL] %s ticket %d %s -> %s (%s)",
			pos.Symbol, pos.Ticket, pos.StopLoss.String(), dec.RecommendedSL.String(), dec.Reason)
		if w.executor != nil {
			if err := w.executor.ModifyStopLoss(ctx, pos, dec.RecommendedSL); err != nil {
				return err
			}
		}
		pos.StopLoss = dec.RecommendedSL
	}
	return nil
}

func (w *Watcher) closePosition(ctx context.Context, pos *models.Position, reason string) {
	log.Printf("[CLOSE] %s ticket %d reason=%s profit=%s",
		pos.Symbol, pos.Ticket, reason, pos.Profit.String())
	if w.executor == nil {
		return
	}
	if err := w.executor.ClosePosition(ctx, pos, reason); err != nil {
		log.Printf("ERROR: close %s ticket %d: %v", pos.Symbol, pos.Ticket, err)
		return
	}
	w.journal.LogClose(pos.Ticket, pos.PriceCurrent, reason)
}

// applyBookSignals liquidates every position on a symbol side whose
// account-level profit goal and trailing floor are both met. Tickets
// already closed earlier in the cycle are skipped; a second close order
// for a filled position would open the opposite side.
func (w *Watcher) applyBookSignals(ctx context.Context, positions []models.Position, closed map[int64]bool) {
	for symbol, rec := range w.book {
		for _, side := range []string{models.SideLong, models.SideShort} {
			sr := rec.SideRecord(side)
			if sr == nil || !sr.CloseSignal {
				continue
			}
			log.Printf("[BOOK] %s %s close signal: profit=%s goal=%s",
				symbol, side, sr.UnrealizedProfit.String(), sr.ProfitGoal.String())
			for i := range positions {
				pos := &positions[i]
				if closed[pos.Ticket] {
					continue
				}
				if pos.Symbol == symbol && pos.Side() == side {
					w.closePosition(ctx, pos, "PROFIT_GOAL")
					closed[pos.Ticket] = true
				}
			}
		}
	}
}

func (w *Watcher) currentATR(ctx context.Context, symbol string) (decimal.Decimal, error) {
	period := w.overrides.SymbolInt(symbol, "atr_period", w.cfg.ATRPeriod)
	bars, err := w.provider.GetBars(ctx, symbol, "1m", period*2)
	if err != nil {
		return decimal.Zero, err
	}
	res, err := indicators.CalculateATR(symbol, bars, indicators.Params{"period": float64(period)})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(res.Value), nil
}

func (w *Watcher) symbolThresholds(symbol string) (closeProfit, trailingProfit float64) {
	closeProfit = w.overrides.SymbolFloat(symbol, "close_profit_threshold", w.cfg.CloseProfitThreshold)
	trailingProfit = w.overrides.SymbolFloat(symbol, "trailing_profit_threshold", w.cfg.TrailingProfitThreshold)
	return closeProfit, trailingProfit
}

func (w *Watcher) slParams(symbol string) trader.Params {
	return trader.Params{
		MaxLossDecimal:        w.overrides.SymbolFloat(symbol, "max_loss_decimal", w.cfg.MaxLossDecimal),
		InitialSLBufferATR:    w.overrides.SymbolFloat(symbol, "initial_sl_buffer_atr", w.cfg.InitialSLBufferATR),
		MinTicksToHold:        w.overrides.SymbolInt(symbol, "min_ticks_to_hold", w.cfg.MinTicksToHold),
		TrailingActivationPct: w.overrides.SymbolFloat(symbol, "trailing_profit_threshold_decimal", w.cfg.TrailingActivationPct),
		ATRMultiplier:         w.overrides.SymbolFloat(symbol, "atr_multiplier", w.cfg.ATRMultiplier),
		BreakEvenOffset:       w.overrides.SymbolFloat(symbol, "break_even_offset_decimal", w.cfg.BreakEvenOffsetDecimal),
	}
}

func (w *Watcher) trackerParams(symbol string) portfolio.TrackerParams {
	return portfolio.TrackerParams{
		ProfitStep:     w.overrides.SymbolFloat(symbol, "profit_step", w.cfg.ProfitStep),
		MaxChainLength: w.overrides.SymbolInt(symbol, "max_chain_length", w.cfg.MaxChainLength),
		RetracePct:     w.overrides.SymbolFloat(symbol, "retrace_pct", w.cfg.RetracePct),
		BounceLookback: w.overrides.SymbolInt(symbol, "bounce_lookback", w.cfg.BounceLookback),
	}
}

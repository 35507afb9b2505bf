package alpaca

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/market"
	"github.com/mazzara/algoone/internal/models"
)

// Provider adapts the Alpaca SDK to the generic market interfaces.
type Provider struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
}

var _ market.Provider = (*Provider)(nil)

// NewProvider reads credentials from the standard APCA_* env vars.
func NewProvider() *Provider {
	return &Provider{
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
	}
}

func (p *Provider) ListPositions(ctx context.Context) ([]models.Position, error) {
	alpacaPositions, err := p.tradeClient.GetPositions()
	if err != nil {
		return nil, err
	}

	var result []models.Position
	for _, x := range alpacaPositions {
		// Short positions report a negative quantity.
		posType := models.TypeBuy
		qty := x.Qty
		if qty.IsNegative() {
			posType = models.TypeSell
			qty = qty.Neg()
		}
		if qty.IsZero() {
			continue
		}

		current := decimal.Zero
		if x.CurrentPrice != nil {
			current = *x.CurrentPrice
		}
		unrealizedPL := decimal.Zero
		if x.UnrealizedPL != nil {
			unrealizedPL = *x.UnrealizedPL
		}

		result = append(result, models.Position{
			// Alpaca has no per-position ticket; one netted position
			// per symbol and side, so a stable hash is enough.
			Ticket:       syntheticTicket(x.Symbol, posType),
			Symbol:       x.Symbol,
			Type:         posType,
			Volume:       qty,
			PriceOpen:    x.AvgEntryPrice,
			PriceCurrent: current,
			Profit:       unrealizedPL,
		})
	}
	return result, nil
}

func (p *Provider) GetTick(ctx context.Context, symbol string) (*models.Tick, error) {
	q, err := p.mdClient.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("no quote found for %s", symbol)
	}
	return &models.Tick{
		Symbol:  symbol,
		Bid:     decimal.NewFromFloat(q.BidPrice),
		Ask:     decimal.NewFromFloat(q.AskPrice),
		TimeRaw: q.Timestamp.Unix(),
	}, nil
}

func (p *Provider) GetBars(ctx context.Context, symbol string, timeframe string, limit int) ([]models.Bar, error) {
	tf, window, err := mapTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	start := time.Now().Add(-time.Duration(limit*2) * window)
	bars, err := p.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
	})
	if err != nil {
		return nil, err
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	var result []models.Bar
	for _, b := range bars {
		result = append(result, models.Bar{
			TimeRaw: b.Timestamp.Unix(),
			Open:    decimal.NewFromFloat(b.Open),
			High:    decimal.NewFromFloat(b.High),
			Low:     decimal.NewFromFloat(b.Low),
			Close:   decimal.NewFromFloat(b.Close),
			Volume:  int64(b.Volume),
		})
	}
	return result, nil
}

func mapTimeframe(timeframe string) (marketdata.TimeFrame, time.Duration, error) {
	switch timeframe {
	case "1m":
		return marketdata.OneMin, time.Minute, nil
	case "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min), 5 * time.Minute, nil
	case "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min), 15 * time.Minute, nil
	case "1h":
		return marketdata.OneHour, time.Hour, nil
	case "1d":
		return marketdata.OneDay, 24 * time.Hour, nil
	default:
		return marketdata.TimeFrame{}, 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

// --- Execution ---

var _ market.OrderExecutor = (*Provider)(nil)

// ModifyStopLoss places a fresh stop order covering the full position.
// Any previous protective stop for the symbol is cancelled first.
func (p *Provider) ModifyStopLoss(ctx context.Context, pos *models.Position, sl decimal.Decimal) error {
	open, err := p.tradeClient.GetOrders(alpaca.GetOrdersRequest{
		Status:  "open",
		Symbols: []string{pos.Symbol},
		Limit:   100,
	})
	if err != nil {
		return err
	}
	for _, o := range open {
		if o.Type == alpaca.Stop {
			if err := p.tradeClient.CancelOrder(o.ID); err != nil {
				return err
			}
		}
	}

	qty := pos.Volume
	side := alpaca.Sell
	if pos.Type == models.TypeSell {
		side = alpaca.Buy
	}

	_, err = p.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      pos.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Stop,
		StopPrice:   &sl,
		TimeInForce: alpaca.GTC,
	})
	return err
}

// ClosePosition flattens the position with an offsetting market order.
func (p *Provider) ClosePosition(ctx context.Context, pos *models.Position, reason string) error {
	qty := pos.Volume
	side := alpaca.Sell
	if pos.Type == models.TypeSell {
		side = alpaca.Buy
	}

	_, err := p.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      pos.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	return err
}

func syntheticTicket(symbol, posType string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte{'|'})
	h.Write([]byte(posType))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

package binance

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/market"
	"github.com/mazzara/algoone/internal/models"
)

// Provider adapts the Binance USD-M futures API to the generic
// market interfaces.
type Provider struct {
	client *futures.Client
}

var _ market.Provider = (*Provider)(nil)
var _ market.OrderExecutor = (*Provider)(nil)

func NewProvider(apiKey, secretKey string, testnet bool) *Provider {
	if testnet {
		futures.UseTestnet = true
	}
	return &Provider{client: futures.NewClient(apiKey, secretKey)}
}

func (p *Provider) ListPositions(ctx context.Context) ([]models.Position, error) {
	risks, err := p.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}

	var result []models.Position
	for _, r := range risks {
		amt, err := decimal.NewFromString(r.PositionAmt)
		if err != nil || amt.IsZero() {
			continue
		}

		posType := models.TypeBuy
		if amt.IsNegative() {
			posType = models.TypeSell
			amt = amt.Neg()
		}

		result = append(result, models.Position{
			Ticket:       syntheticTicket(r.Symbol, posType),
			Symbol:       r.Symbol,
			Type:         posType,
			Volume:       amt,
			PriceOpen:    parseDecimal(r.EntryPrice),
			PriceCurrent: parseDecimal(r.MarkPrice),
			Profit:       parseDecimal(r.UnRealizedProfit),
		})
	}
	return result, nil
}

func (p *Provider) GetTick(ctx context.Context, symbol string) (*models.Tick, error) {
	tickers, err := p.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no book ticker for %s", symbol)
	}
	t := tickers[0]
	return &models.Tick{
		Symbol: symbol,
		Bid:    parseDecimal(t.BidPrice),
		Ask:    parseDecimal(t.AskPrice),
	}, nil
}

func (p *Provider) GetBars(ctx context.Context, symbol string, timeframe string, limit int) ([]models.Bar, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		vol := parseDecimal(k.Volume)
		result = append(result, models.Bar{
			TimeRaw: k.OpenTime / 1000,
			Open:    parseDecimal(k.Open),
			High:    parseDecimal(k.High),
			Low:     parseDecimal(k.Low),
			Close:   parseDecimal(k.Close),
			Volume:  vol.IntPart(),
		})
	}
	return result, nil
}

// --- Execution ---

// ModifyStopLoss replaces the protective stop with a STOP_MARKET close
// order at the new level. Existing open orders for the symbol are
// cancelled first, which is how futures stop replacement works.
func (p *Provider) ModifyStopLoss(ctx context.Context, pos *models.Position, sl decimal.Decimal) error {
	err := p.client.NewCancelAllOpenOrdersService().Symbol(pos.Symbol).Do(ctx)
	if err != nil {
		return err
	}

	side := futures.SideTypeSell
	if pos.Type == models.TypeSell {
		side = futures.SideTypeBuy
	}

	// STOP_MARKET only has an algo-order constant in the SDK; the create
	// endpoint takes it as a plain order type.
	_, err = p.client.NewCreateOrderService().
		Symbol(pos.Symbol).
		Side(side).
		Type(futures.OrderType("STOP_MARKET")).
		StopPrice(sl.String()).
		ClosePosition(true).
		Do(ctx)
	return err
}

func (p *Provider) ClosePosition(ctx context.Context, pos *models.Position, reason string) error {
	side := futures.SideTypeSell
	if pos.Type == models.TypeSell {
		side = futures.SideTypeBuy
	}

	_, err := p.client.NewCreateOrderService().
		Symbol(pos.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(pos.Volume.String()).
		ReduceOnly(true).
		Do(ctx)
	return err
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func syntheticTicket(symbol, posType string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte{'|'})
	h.Write([]byte(posType))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

// PositionSource lists the open positions of the account.
type PositionSource interface {
	ListPositions(ctx context.Context) ([]models.Position, error)
}

// TickSource returns the latest bid/ask for a symbol.
type TickSource interface {
	GetTick(ctx context.Context, symbol string) (*models.Tick, error)
}

// BarSource returns recent OHLC bars for a symbol and timeframe.
// Timeframe strings follow broker convention: "1m", "5m", "15m", "1h", "1d".
type BarSource interface {
	GetBars(ctx context.Context, symbol string, timeframe string, limit int) ([]models.Bar, error)
}

// Provider is the full read surface the watcher needs from a broker.
type Provider interface {
	PositionSource
	TickSource
	BarSource
}

// OrderExecutor applies stop-loss and close decisions at the broker.
type OrderExecutor interface {
	ModifyStopLoss(ctx context.Context, pos *models.Position, sl decimal.Decimal) error
	ClosePosition(ctx context.Context, pos *models.Position, reason string) error
}

// RiskProfileSource supplies per-timeframe volatility bands for a symbol.
type RiskProfileSource interface {
	GetRiskProfile(symbol string) (models.RiskProfile, error)
}

// FileProfiles reads risk profiles from a JSON file keyed by symbol,
// with a "defaults" entry used when a symbol has no entry of its own.
type FileProfiles struct {
	path string
}

func NewFileProfiles(path string) *FileProfiles {
	return &FileProfiles{path: path}
}

var _ RiskProfileSource = (*FileProfiles)(nil)

func (f *FileProfiles) GetRiskProfile(symbol string) (models.RiskProfile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("risk profiles: %w", err)
	}

	var all map[string]models.RiskProfile
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("risk profiles: parse %s: %w", f.path, err)
	}

	if profile, ok := all[symbol]; ok {
		return profile, nil
	}
	if profile, ok := all["defaults"]; ok {
		return profile, nil
	}
	return nil, fmt.Errorf("risk profiles: no profile for %s and no defaults", symbol)
}

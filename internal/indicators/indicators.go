package indicators

import (
	"fmt"
	"math"
	"sync"

	"github.com/mazzara/algoone/internal/models"
)

// Signals emitted by indicators.
const (
	SignalBuy     = "BUY"
	SignalSell    = "SELL"
	SignalNone    = "NONE"
	SignalHighVol = "HIGH VOL"
	SignalLowVol  = "LOW VOL"
)

// Params are per-indicator tuning values (period, thresholds).
type Params map[string]float64

func (p Params) get(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Result is one indicator evaluation.
type Result struct {
	Indicator string  `json:"indicator"`
	Signal    string  `json:"signal"`
	Value     float64 `json:"value"`
}

// Indicator computes a signal from a bar series. All implementations are
// pure functions of their inputs.
type Indicator func(symbol string, bars []models.Bar, params Params) (*Result, error)

// Registry maps indicator names to implementations. It is populated at
// startup; nothing is looked up reflectively from config strings.
type Registry struct {
	mu         sync.RWMutex
	indicators map[string]Indicator
}

// NewRegistry returns a registry pre-loaded with the built-in indicators.
func NewRegistry() *Registry {
	r := &Registry{indicators: map[string]Indicator{}}
	r.Register("ATR", CalculateATR)
	r.Register("RSI", CalculateRSI)
	r.Register("ADX", CalculateADX)
	return r
}

func (r *Registry) Register(name string, fn Indicator) {
	r.mu.Lock()
	r.indicators[name] = fn
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Indicator, bool) {
	r.mu.RLock()
	fn, ok := r.indicators[name]
	r.mu.RUnlock()
	return fn, ok
}

// Signal evaluates a named indicator.
func (r *Registry) Signal(name, symbol string, bars []models.Bar, params Params) (*Result, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("indicators: unknown indicator %q", name)
	}
	return fn(symbol, bars, params)
}

// MajorityVote combines indicator signals with a plain majority: more BUY
// than SELL votes reads BUY, the reverse reads SELL, anything else NONE.
func MajorityVote(results []*Result) string {
	var buy, sell int
	for _, res := range results {
		if res == nil {
			continue
		}
		switch res.Signal {
		case SignalBuy:
			buy++
		case SignalSell:
			sell++
		}
	}
	switch {
	case buy > sell:
		return SignalBuy
	case sell > buy:
		return SignalSell
	default:
		return SignalNone
	}
}

// CalculateATR is the Average True Range over the configured period. The
// true range of a bar is the largest of high-low, |high-prevClose| and
// |low-prevClose|; ATR averages it. Optional low/high thresholds classify
// the volatility regime.
func CalculateATR(symbol string, bars []models.Bar, params Params) (*Result, error) {
	period := int(params.get("period", 14))
	if len(bars) < period+1 {
		return nil, fmt.Errorf("indicators: not enough bars for ATR(%d) on %s: have %d", period, symbol, len(bars))
	}

	bars = bars[len(bars)-(period+1):]
	sum := 0.0
	for i := 1; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1])
	}
	atr := sum / float64(period)

	signal := SignalNone
	if low, ok := params["low_threshold"]; ok && atr < low {
		signal = SignalLowVol
	}
	if high, ok := params["high_threshold"]; ok && atr > high {
		signal = SignalHighVol
	}

	return &Result{Indicator: "ATR", Signal: signal, Value: atr}, nil
}

// CalculateRSI is the Relative Strength Index with Wilder smoothing.
func CalculateRSI(symbol string, bars []models.Bar, params Params) (*Result, error) {
	period := int(params.get("period", 14))
	overbought := params.get("overbought", 70)
	oversold := params.get("oversold", 30)

	if len(bars) < period+1 {
		return nil, fmt.Errorf("indicators: not enough bars for RSI(%d) on %s: have %d", period, symbol, len(bars))
	}

	var avgGain, avgLoss float64
	closes := closeSeries(bars)

	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	rsi := 100.0
	if avgLoss > 0 {
		rs := avgGain / avgLoss
		rsi = 100.0 - 100.0/(1.0+rs)
	}

	signal := SignalNone
	if rsi <= oversold {
		signal = SignalBuy
	} else if rsi >= overbought {
		signal = SignalSell
	}

	return &Result{Indicator: "RSI", Signal: signal, Value: rsi}, nil
}

// CalculateADX is the Average Directional Index; direction comes from the
// +DI/-DI relationship once trend strength clears the threshold.
func CalculateADX(symbol string, bars []models.Bar, params Params) (*Result, error) {
	period := int(params.get("period", 14))
	threshold := params.get("threshold", 20)

	if len(bars) < 2*period+1 {
		return nil, fmt.Errorf("indicators: not enough bars for ADX(%d) on %s: have %d", period, symbol, len(bars))
	}

	var trSum, plusSum, minusSum float64
	var dxValues []float64
	var plusDI, minusDI float64

	for i := 1; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]
		high := cur.High.InexactFloat64()
		low := cur.Low.InexactFloat64()
		prevHigh := prev.High.InexactFloat64()
		prevLow := prev.Low.InexactFloat64()

		upMove := high - prevHigh
		downMove := prevLow - low
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(cur, prev)

		if i <= period {
			trSum += tr
			plusSum += plusDM
			minusSum += minusDM
			if i < period {
				continue
			}
		} else {
			// Wilder smoothing.
			trSum = trSum - trSum/float64(period) + tr
			plusSum = plusSum - plusSum/float64(period) + plusDM
			minusSum = minusSum - minusSum/float64(period) + minusDM
		}

		if trSum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		plusDI = 100.0 * plusSum / trSum
		minusDI = 100.0 * minusSum / trSum
		if plusDI+minusDI == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dxValues = append(dxValues, 100.0*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	if len(dxValues) < period {
		return nil, fmt.Errorf("indicators: ADX(%d) produced too few DX values on %s", period, symbol)
	}

	adx := 0.0
	for _, dx := range dxValues[:period] {
		adx += dx
	}
	adx /= float64(period)
	for _, dx := range dxValues[period:] {
		adx = (adx*float64(period-1) + dx) / float64(period)
	}

	signal := SignalNone
	if adx >= threshold {
		if plusDI > minusDI {
			signal = SignalBuy
		} else if minusDI > plusDI {
			signal = SignalSell
		}
	}

	return &Result{Indicator: "ADX", Signal: signal, Value: adx}, nil
}

func trueRange(cur, prev models.Bar) float64 {
	high := cur.High.InexactFloat64()
	low := cur.Low.InexactFloat64()
	prevClose := prev.Close.InexactFloat64()
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

func closeSeries(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the global trading parameters. Every threshold has a hardcoded
// default so a missing environment variable can never abort a cycle; the
// per-symbol override file refines these further at runtime.
type Config struct {
	// Data source selection: "alpaca" or "binance".
	Source string

	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool

	// Persistence and logging.
	StateDir      string
	OverridesFile string
	ProfilesFile  string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int

	PollIntervalSec int

	// Stop-loss strategy: "staircase" or "volatility".
	SLStrategy string

	// When true, SL and close decisions are logged but never sent to
	// the broker.
	DryRun bool

	// Account-level goals (fractions of invested notional).
	CloseProfitThreshold    float64
	TrailingProfitThreshold float64

	// Per-position stop-loss staircase.
	MaxLossDecimal          float64
	InitialSLBufferATR      float64
	MinTicksToHold          int
	TrailingActivationPct   float64 // fraction of entry price
	ATRMultiplier           float64
	BreakEvenOffsetDecimal  float64 // fraction of ATR
	VolatilityCapDecimal    float64
	ATRPeriod               int

	// Profit-chain tracker.
	ProfitStep     float64
	MaxChainLength int
	RetracePct     float64
	BounceLookback int

	// Re-entry cooldown after full liquidation.
	LiquidationCycleSeconds int
}

// Load reads the environment (optionally seeded from a .env file) and returns
// a fully populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Source:           getEnv("ALGOONE_SOURCE", "alpaca"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		BinanceTestnet:   getEnvAsBool("BINANCE_TESTNET", false),

		StateDir:      getEnv("ALGOONE_STATE_DIR", "hard_memory"),
		OverridesFile: getEnv("ALGOONE_OVERRIDES_FILE", "autotrade_overrides.json"),
		ProfilesFile:  getEnv("ALGOONE_RISK_PROFILES_FILE", "risk_profiles.json"),
		LogFile:       getEnv("ALGOONE_LOG_FILE", "algoone.log"),
		MaxLogSizeMB:  int64(getEnvAsInt("ALGOONE_MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("ALGOONE_MAX_LOG_BACKUPS", 3),

		PollIntervalSec: getEnvAsInt("ALGOONE_POLL_INTERVAL_SEC", 10),

		SLStrategy: getEnv("SL_STRATEGY", "staircase"),
		DryRun:     getEnvAsBool("DRY_RUN", true),

		CloseProfitThreshold:    getEnvAsFloat64("CLOSE_PROFIT_THRESHOLD", 0.05),
		TrailingProfitThreshold: getEnvAsFloat64("TRAILING_PROFIT_THRESHOLD", 0.005),

		MaxLossDecimal:         getEnvAsFloat64("MAX_LOSS_DECIMAL", 0.005),
		InitialSLBufferATR:     getEnvAsFloat64("INITIAL_SL_BUFFER_ATR", 1.5),
		MinTicksToHold:         getEnvAsInt("MIN_TICKS_TO_HOLD", 9),
		TrailingActivationPct:  getEnvAsFloat64("TRAILING_PROFIT_THRESHOLD_DECIMAL", 0.001),
		ATRMultiplier:          getEnvAsFloat64("ATR_MULTIPLIER", 2.0),
		BreakEvenOffsetDecimal: getEnvAsFloat64("BREAK_EVEN_OFFSET_DECIMAL", 0.1),
		VolatilityCapDecimal:   getEnvAsFloat64("VOLATILITY_CAP_DECIMAL", 0.03),
		ATRPeriod:              getEnvAsInt("ATR_PERIOD", 14),

		ProfitStep:     getEnvAsFloat64("PROFIT_STEP", 0.01),
		MaxChainLength: getEnvAsInt("MAX_CHAIN_LENGTH", 10),
		RetracePct:     getEnvAsFloat64("RETRACE_PCT", 0.382),
		BounceLookback: getEnvAsInt("BOUNCE_LOOKBACK", 3),

		LiquidationCycleSeconds: getEnvAsInt("LIQUIDATION_CYCLE_SECONDS", 900),
	}

	return cfg
}

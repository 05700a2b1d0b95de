package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoScalper/internal/adapters/logger" // Import the logger package for LogLevel
)

// StrategyConfig holds the trading parameters. It is loaded once and passed by value.
type StrategyConfig struct {
	Timeframe          string
	Symbols            []string
	Leverage           int
	ProfitTargetPct    float64 // Take-profit distance in percent (0.2 = 0.2%)
	StopLossPct        float64 // Stop-loss distance in percent
	MinModelConfidence float64 // Probability threshold for a signal, inclusive
	MaxDailyTrades     int     // 0 disables the cap
	RiskPerTradePct    float64 // Share of equity lost if the stop is hit
	Features           []string
	RetrainInterval    time.Duration
}

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	Strategy StrategyConfig

	// Market data and sizing
	QuoteAsset             string
	CandleLimit            int
	OrderBookDepth         int
	MaxOpenTradesPerSymbol int // 0 disables the cap
	ForestTrees            int

	// Scheduling
	CycleInterval   time.Duration
	SymbolPause     time.Duration
	ErrorBackoffMin time.Duration
	ErrorBackoffMax time.Duration
	PhaseTimeout    time.Duration

	// Storage
	DBPath      string
	JournalPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFile  string          // Optional JSON log file

	// Metrics endpoint, disabled when empty
	MetricsAddr string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Strategy
	s := &cfg.Strategy
	s.Timeframe = getEnv("TIMEFRAME", "1m")
	s.Symbols = getEnvAsList("SYMBOLS", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	s.Features = getEnvAsList("FEATURES", []string{"rsi", "macd", "order_book_imbalance", "volume_zscore"})

	if s.Leverage, err = getEnvAsIntRequired("LEVERAGE", 25); err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	}
	if s.ProfitTargetPct, err = getEnvAsFloatRequired("PROFIT_TARGET", 0.2); err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROFIT_TARGET: %v", err))
	}
	if s.StopLossPct, err = getEnvAsFloatRequired("STOP_LOSS", 0.15); err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	}
	if s.MinModelConfidence, err = getEnvAsFloatRequired("MIN_MODEL_CONFIDENCE", 0.75); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_MODEL_CONFIDENCE: %v", err))
	}
	if s.MaxDailyTrades, err = getEnvAsIntRequired("MAX_DAILY_TRADES", 20); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_TRADES: %v", err))
	}
	if s.RiskPerTradePct, err = getEnvAsFloatRequired("RISK_PER_TRADE", 1); err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_PER_TRADE: %v", err))
	}
	if s.RetrainInterval, err = getEnvAsSecondsRequired("RETRAIN_INTERVAL_SECONDS", 3600); err != nil {
		errs = append(errs, fmt.Sprintf("invalid RETRAIN_INTERVAL_SECONDS: %v", err))
	}

	// Market data and sizing
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")
	cfg.CandleLimit = getEnvAsInt("CANDLE_LIMIT", 1000)
	cfg.OrderBookDepth = getEnvAsInt("ORDER_BOOK_DEPTH", 5)
	cfg.MaxOpenTradesPerSymbol = getEnvAsInt("MAX_OPEN_TRADES_PER_SYMBOL", 1)
	cfg.ForestTrees = getEnvAsInt("FOREST_TREES", 100)

	// Scheduling
	cfg.CycleInterval = time.Duration(getEnvAsInt("CYCLE_INTERVAL_SECONDS", 0)) * time.Second
	defaultPause := time.Second
	if len(s.Symbols) > 0 {
		defaultPause = time.Second / time.Duration(len(s.Symbols))
	}
	cfg.SymbolPause = defaultPause
	if ms := getEnvAsInt("SYMBOL_PAUSE_MS", -1); ms >= 0 {
		cfg.SymbolPause = time.Duration(ms) * time.Millisecond
	}
	cfg.ErrorBackoffMin = time.Duration(getEnvAsInt("ERROR_BACKOFF_MIN_SECONDS", 60)) * time.Second
	cfg.ErrorBackoffMax = time.Duration(getEnvAsInt("ERROR_BACKOFF_MAX_SECONDS", 600)) * time.Second
	cfg.PhaseTimeout = time.Duration(getEnvAsInt("PHASE_TIMEOUT_SECONDS", 30)) * time.Second

	// Storage
	cfg.DBPath = getEnv("DB_PATH", "./data/trading_bot.db")
	cfg.JournalPath = getEnv("JOURNAL_PATH", "./data/trade_journal.csv")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFile = getEnv("LOG_FILE", "")

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	errs = append(errs, cfg.validate()...)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// Validate checks the strategy parameters.
func (s StrategyConfig) Validate() error {
	if errs := s.validate(); len(errs) > 0 {
		return fmt.Errorf("strategy configuration invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s StrategyConfig) validate() []string {
	var errs []string
	if s.Timeframe == "" {
		errs = append(errs, "TIMEFRAME must be set")
	}
	if len(s.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}
	if len(s.Features) == 0 {
		errs = append(errs, "FEATURES must list at least one feature")
	}
	if s.Leverage < 1 || s.Leverage > 125 {
		errs = append(errs, "LEVERAGE must be between 1 and 125")
	}
	if s.ProfitTargetPct <= 0 {
		errs = append(errs, "PROFIT_TARGET must be positive")
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 100 {
		errs = append(errs, "STOP_LOSS must be between 0 and 100 (exclusive)")
	}
	if s.MinModelConfidence < 0 || s.MinModelConfidence > 1 {
		errs = append(errs, "MIN_MODEL_CONFIDENCE must be between 0 and 1")
	}
	if s.MaxDailyTrades < 0 {
		errs = append(errs, "MAX_DAILY_TRADES cannot be negative")
	}
	if s.RiskPerTradePct <= 0 || s.RiskPerTradePct > 100 {
		errs = append(errs, "RISK_PER_TRADE must be in (0, 100]")
	}
	if s.RetrainInterval <= 0 {
		errs = append(errs, "RETRAIN_INTERVAL_SECONDS must be positive")
	}
	return errs
}

func (c *Config) validate() []string {
	errs := c.Strategy.validate()
	if c.QuoteAsset == "" {
		errs = append(errs, "QUOTE_ASSET must be set")
	}
	if c.CandleLimit <= 0 {
		errs = append(errs, "CANDLE_LIMIT must be positive")
	}
	if c.OrderBookDepth <= 0 {
		errs = append(errs, "ORDER_BOOK_DEPTH must be positive")
	}
	if c.MaxOpenTradesPerSymbol < 0 {
		errs = append(errs, "MAX_OPEN_TRADES_PER_SYMBOL cannot be negative")
	}
	if c.ForestTrees <= 0 {
		errs = append(errs, "FOREST_TREES must be positive")
	}
	if c.CycleInterval < 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS cannot be negative")
	}
	if c.ErrorBackoffMin <= 0 {
		errs = append(errs, "ERROR_BACKOFF_MIN_SECONDS must be positive")
	}
	if c.ErrorBackoffMax < c.ErrorBackoffMin {
		errs = append(errs, "ERROR_BACKOFF_MAX_SECONDS must not be less than ERROR_BACKOFF_MIN_SECONDS")
	}
	if c.PhaseTimeout <= 0 {
		errs = append(errs, "PHASE_TIMEOUT_SECONDS must be positive")
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	if c.JournalPath == "" {
		errs = append(errs, "JOURNAL_PATH must be set")
	}
	return errs
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsSecondsRequired(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := getEnvAsIntRequired(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

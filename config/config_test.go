package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScalper/internal/adapters/logger"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	s := cfg.Strategy
	assert.Equal(t, "1m", s.Timeframe)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, s.Symbols)
	assert.Equal(t, 25, s.Leverage)
	assert.Equal(t, 0.2, s.ProfitTargetPct)
	assert.Equal(t, 0.15, s.StopLossPct)
	assert.Equal(t, 0.75, s.MinModelConfidence)
	assert.Equal(t, 20, s.MaxDailyTrades)
	assert.Equal(t, 1.0, s.RiskPerTradePct)
	assert.Equal(t, []string{"rsi", "macd", "order_book_imbalance", "volume_zscore"}, s.Features)
	assert.Equal(t, time.Hour, s.RetrainInterval)

	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.Equal(t, 1000, cfg.CandleLimit)
	assert.Equal(t, 5, cfg.OrderBookDepth)
	assert.Equal(t, 1, cfg.MaxOpenTradesPerSymbol)
	assert.Equal(t, time.Second/3, cfg.SymbolPause)
	assert.Equal(t, time.Minute, cfg.ErrorBackoffMin)
	assert.Equal(t, 10*time.Minute, cfg.ErrorBackoffMax)
	assert.Equal(t, 30*time.Second, cfg.PhaseTimeout)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SYMBOLS", " BTCUSDT , ,ETHUSDT")
	t.Setenv("LEVERAGE", "10")
	t.Setenv("MAX_DAILY_TRADES", "0")
	t.Setenv("SYMBOL_PAUSE_MS", "250")
	t.Setenv("RETRAIN_INTERVAL_SECONDS", "600")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Strategy.Symbols)
	assert.Equal(t, 10, cfg.Strategy.Leverage)
	assert.Equal(t, 0, cfg.Strategy.MaxDailyTrades)
	assert.Equal(t, 250*time.Millisecond, cfg.SymbolPause)
	assert.Equal(t, 10*time.Minute, cfg.Strategy.RetrainInterval)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing api key", env: map[string]string{"BINANCE_API_KEY": ""}, wantErr: "BINANCE_API_KEY must be set"},
		{name: "leverage too high", env: map[string]string{"LEVERAGE": "200"}, wantErr: "LEVERAGE must be between 1 and 125"},
		{name: "leverage not a number", env: map[string]string{"LEVERAGE": "x"}, wantErr: "invalid LEVERAGE"},
		{name: "confidence above one", env: map[string]string{"MIN_MODEL_CONFIDENCE": "1.5"}, wantErr: "MIN_MODEL_CONFIDENCE"},
		{name: "zero risk", env: map[string]string{"RISK_PER_TRADE": "0"}, wantErr: "RISK_PER_TRADE"},
		{name: "negative stop", env: map[string]string{"STOP_LOSS": "-1"}, wantErr: "STOP_LOSS"},
		{name: "negative daily cap", env: map[string]string{"MAX_DAILY_TRADES": "-1"}, wantErr: "MAX_DAILY_TRADES"},
		{name: "backoff max below min", env: map[string]string{"ERROR_BACKOFF_MAX_SECONDS": "1"}, wantErr: "ERROR_BACKOFF_MAX_SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStrategyConfig_Validate(t *testing.T) {
	s := StrategyConfig{
		Timeframe:          "1m",
		Symbols:            []string{"BTCUSDT"},
		Leverage:           25,
		ProfitTargetPct:    0.2,
		StopLossPct:        0.15,
		MinModelConfidence: 0.75,
		RiskPerTradePct:    1,
		Features:           []string{"rsi"},
		RetrainInterval:    time.Hour,
	}
	assert.NoError(t, s.Validate())

	s.Symbols = nil
	assert.ErrorContains(t, s.Validate(), "SYMBOLS")
}

package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))
	ctx := context.Background()

	l.Info(ctx, "trade opened", map[string]interface{}{"symbol": "BTCUSDT", "tradeID": int64(7)})
	l.Error(ctx, errors.New("boom"), "close failed")
	l.Debug(ctx, "no fields")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "trade opened", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"symbol": "BTCUSDT", "tradeID": int64(7)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	assert.Empty(t, entries[2].Context)
}

func TestNewZapLogger_CreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "bot.json")

	l, err := NewZapLogger(Config{Level: LevelInfo, JSONFile: path})
	require.NoError(t, err)

	l.Info(context.Background(), "started", map[string]interface{}{"symbol": "BTCUSDT"})
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
	assert.Contains(t, string(data), `"symbol":"BTCUSDT"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
	assert.Equal(t, zapcore.WarnLevel, LevelWarn.zapLevel())
}

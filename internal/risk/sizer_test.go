package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScalper/internal/ports"
)

func TestSize_Scenario(t *testing.T) {
	// riskAmount = 100, stop distance = 50000 * 0.15% = 75
	qty, err := SizeDecimal(10000, 1, 0.15, 50000)
	require.NoError(t, err)
	assert.Equal(t, "1.333333333333", qty.StringFixed(12))

	f, err := Size(10000, 1, 0.15, 50000)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/75.0, f, 1e-12)
}

func TestSize_Scaling(t *testing.T) {
	base, err := Size(10000, 1, 0.15, 50000)
	require.NoError(t, err)
	require.Greater(t, base, 0.0)

	tests := []struct {
		name   string
		args   [4]float64
		factor float64
	}{
		{name: "double equity", args: [4]float64{20000, 1, 0.15, 50000}, factor: 2},
		{name: "double risk", args: [4]float64{10000, 2, 0.15, 50000}, factor: 2},
		{name: "double stop", args: [4]float64{10000, 1, 0.30, 50000}, factor: 0.5},
		{name: "double price", args: [4]float64{10000, 1, 0.15, 100000}, factor: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Size(tt.args[0], tt.args[1], tt.args[2], tt.args[3])
			require.NoError(t, err)
			assert.InDelta(t, base*tt.factor, got, 1e-9)
		})
	}
}

func TestSize_InvalidInput(t *testing.T) {
	tests := []struct {
		name                          string
		equity, risk, stopLoss, entry float64
	}{
		{name: "zero equity", equity: 0, risk: 1, stopLoss: 0.15, entry: 50000},
		{name: "negative equity", equity: -5, risk: 1, stopLoss: 0.15, entry: 50000},
		{name: "zero stop loss", equity: 10000, risk: 1, stopLoss: 0, entry: 50000},
		{name: "zero entry", equity: 10000, risk: 1, stopLoss: 0.15, entry: 0},
		{name: "zero risk", equity: 10000, risk: 0, stopLoss: 0.15, entry: 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := Size(tt.equity, tt.risk, tt.stopLoss, tt.entry)
			assert.ErrorIs(t, err, ports.ErrInvalidInput)
			assert.Zero(t, qty)
		})
	}
}

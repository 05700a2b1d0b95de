package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKlineSeries(t *testing.T) {
	klines := []*Kline{
		{Symbol: "BTCUSDT", Close: 100, Volume: 3},
		{Symbol: "BTCUSDT", Close: 101.5, Volume: 7},
	}
	assert.Equal(t, []float64{100, 101.5}, ClosePrices(klines))
	assert.Equal(t, []float64{3, 7}, Volumes(klines))
	assert.Empty(t, ClosePrices(nil))
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrade_Close(t *testing.T) {
	trade := NewTrade("BTCUSDT", Long, 100, 1, 25, time.Now())
	require.True(t, trade.IsOpen())
	require.NoError(t, trade.Validate())

	exitTime := time.Now()
	require.NoError(t, trade.Close(100.21, 0.21, exitTime))

	assert.Equal(t, StatusClosed, trade.Status)
	require.NotNil(t, trade.ExitPrice)
	require.NotNil(t, trade.ProfitPct)
	require.NotNil(t, trade.ExitTime)
	assert.Equal(t, 100.21, *trade.ExitPrice)
	assert.Equal(t, 0.21, *trade.ProfitPct)
	assert.Equal(t, exitTime, *trade.ExitTime)
	assert.NoError(t, trade.Validate())

	err := trade.Close(90, -10, time.Now())
	assert.ErrorIs(t, err, ErrTradeClosed)
	assert.Equal(t, 100.21, *trade.ExitPrice, "closed trade must not change")
}

func TestTrade_ProfitPctAt(t *testing.T) {
	tests := []struct {
		name  string
		side  Side
		price float64
		want  float64
	}{
		{name: "long gain", side: Long, price: 101, want: 1},
		{name: "long loss", side: Long, price: 99, want: -1},
		{name: "short gain", side: Short, price: 99, want: 1},
		{name: "short loss", side: Short, price: 101, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := NewTrade("ETHUSDT", tt.side, 100, 1, 1, time.Now())
			assert.InDelta(t, tt.want, trade.ProfitPctAt(tt.price), 1e-9)
		})
	}
}

func TestTrade_Validate(t *testing.T) {
	price := 1.0
	tests := []struct {
		name    string
		mutate  func(*Trade)
		wantErr bool
	}{
		{name: "open trade", mutate: func(*Trade) {}},
		{name: "partial exit fields", mutate: func(tr *Trade) { tr.ExitPrice = &price }, wantErr: true},
		{name: "closed without exit fields", mutate: func(tr *Trade) { tr.Status = StatusClosed }, wantErr: true},
		{name: "bad side", mutate: func(tr *Trade) { tr.Side = "UP" }, wantErr: true},
		{name: "zero quantity", mutate: func(tr *Trade) { tr.Quantity = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := NewTrade("ETHUSDT", Long, 100, 1, 1, time.Now())
			tt.mutate(trade)
			if tt.wantErr {
				assert.Error(t, trade.Validate())
			} else {
				assert.NoError(t, trade.Validate())
			}
		})
	}
}

func TestOrderBook_Imbalance(t *testing.T) {
	book := &OrderBook{
		Bids: []PriceLevel{{100, 3}, {99, 1}, {98, 100}},
		Asks: []PriceLevel{{101, 1}, {102, 1}},
	}
	assert.InDelta(t, (4.0-2.0)/6.0, book.Imbalance(2), 1e-12)
	assert.Equal(t, 0.0, (&OrderBook{}).Imbalance(5))
}

func TestSide_OrderSides(t *testing.T) {
	assert.Equal(t, Buy, Long.EntryOrderSide())
	assert.Equal(t, Sell, Long.ExitOrderSide())
	assert.Equal(t, Sell, Short.EntryOrderSide())
	assert.Equal(t, Buy, Short.ExitOrderSide())
}

package features

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

func generateKlines(n int, closeFn func(i int) float64) []*domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, n)
	for i := 0; i < n; i++ {
		klines[i] = &domain.Kline{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Symbol:   "BTCUSDT",
			Interval: "1m",
			Close:    closeFn(i),
			Volume:   float64(100 + i%7),
		}
	}
	return klines
}

type fakeMarket struct {
	klines   []*domain.Kline
	book     *domain.OrderBook
	klineErr error
	bookErr  error
	bookHits int
}

func (f *fakeMarket) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return f.klines, f.klineErr
}

func (f *fakeMarket) GetOrderBook(ctx context.Context, symbol string, depth int) (*domain.OrderBook, error) {
	f.bookHits++
	return f.book, f.bookErr
}

func (f *fakeMarket) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func TestNew(t *testing.T) {
	feats, err := New([]string{NameRSI, NameMACD, NameOrderBookImbalance, NameVolumeZScore}, 5)
	require.NoError(t, err)
	require.Len(t, feats, 4)
	assert.Equal(t, NameMACD, feats[1].Name())

	_, err = New([]string{"rsi", "vwap"}, 5)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New([]string{"rsi", "rsi"}, 5)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(nil, 5)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestRSI_RisingPrices(t *testing.T) {
	klines := generateKlines(40, func(i int) float64 { return 100 + float64(i) })
	series, err := NewRSI(14).Series(Input{Klines: klines})
	require.NoError(t, err)
	require.Len(t, series, 40)
	assert.InDelta(t, 100, series[39], 1e-9)
	assert.InDelta(t, 100, series[14], 1e-9)
}

func TestMACD_FlatPrices(t *testing.T) {
	m := NewMACD(12, 26, 9)
	assert.Equal(t, 33, m.RequiredDataPoints())

	klines := generateKlines(60, func(int) float64 { return 250 })
	series, err := m.Series(Input{Klines: klines})
	require.NoError(t, err)
	assert.InDelta(t, 0, series[59], 1e-9)

	_, err = m.Series(Input{Klines: klines[:33]})
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestVolumeZScore(t *testing.T) {
	klines := []*domain.Kline{{Volume: 1}, {Volume: 2}, {Volume: 3}, {Volume: 10}, {Volume: 10}, {Volume: 10}}
	z := NewVolumeZScore(3)
	series, err := z.Series(Input{Klines: klines})
	require.NoError(t, err)

	assert.Equal(t, 2, z.RequiredDataPoints())
	assert.InDelta(t, 1.0, series[2], 1e-12)
	assert.InDelta(t, 5.0/math.Sqrt(19), series[3], 1e-12)
	assert.Equal(t, 0.0, series[5], "zero deviation window")
}

func TestOrderBookImbalance(t *testing.T) {
	book := &domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: 100, Quantity: 3}},
		Asks: []domain.PriceLevel{{Price: 101, Quantity: 1}},
	}
	klines := generateKlines(3, func(int) float64 { return 1 })
	series, err := NewOrderBookImbalance(5).Series(Input{Klines: klines, Book: book})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, series)

	_, err = NewOrderBookImbalance(5).Series(Input{Klines: klines})
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestCompute_DropsWarmup(t *testing.T) {
	klines := generateKlines(50, func(i int) float64 { return 100 + math.Sin(float64(i)) })
	feats, err := New([]string{NameRSI, NameVolumeZScore}, 5)
	require.NoError(t, err)

	w, err := Compute("BTCUSDT", feats, Input{Klines: klines})
	require.NoError(t, err)

	// volume z-score warm-up (19) exceeds RSI's (14)
	require.Len(t, w.Rows, 50-19)
	assert.Equal(t, []string{NameRSI, NameVolumeZScore}, w.Columns)
	assert.Equal(t, klines[19].Close, w.Closes[0])
	assert.Equal(t, klines[49].Close, w.Closes[len(w.Closes)-1])
	assert.Len(t, w.Latest(), 2)

	_, err = Compute("BTCUSDT", feats, Input{Klines: klines[:19]})
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestBuilder_Window(t *testing.T) {
	market := &fakeMarket{
		klines: generateKlines(80, func(i int) float64 { return 100 + float64(i%5) }),
		book: &domain.OrderBook{
			Bids: []domain.PriceLevel{{Price: 100, Quantity: 1}},
			Asks: []domain.PriceLevel{{Price: 101, Quantity: 1}},
		},
	}
	feats, err := New([]string{NameRSI, NameMACD, NameOrderBookImbalance, NameVolumeZScore}, 5)
	require.NoError(t, err)
	b, err := NewBuilder(market, feats, BuilderConfig{Timeframe: "1m", CandleLimit: 80, BookDepth: 5})
	require.NoError(t, err)

	w, err := b.Window(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, w.Rows, 80-33)
	assert.Equal(t, 1, market.bookHits)
	assert.Equal(t, 0.0, w.Latest()[2])
	assert.Equal(t, b.Columns(), w.Columns)

	market.klineErr = errors.New("down")
	_, err = b.Window(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestBuilder_SkipsBookWhenUnused(t *testing.T) {
	market := &fakeMarket{klines: generateKlines(30, func(i int) float64 { return float64(100 + i) })}
	feats, err := New([]string{NameRSI}, 5)
	require.NoError(t, err)
	b, err := NewBuilder(market, feats, BuilderConfig{Timeframe: "1m", CandleLimit: 30, BookDepth: 5})
	require.NoError(t, err)

	_, err = b.Window(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Zero(t, market.bookHits)
}

package features

import (
	"context"
	"fmt"

	"cryptoScalper/internal/ports"
)

// Window is a feature matrix aligned with the candles it was computed from.
// Warm-up rows are already dropped.
type Window struct {
	Symbol  string
	Columns []string
	Rows    [][]float64
	Closes  []float64
}

// Latest returns the most recent feature row.
func (w *Window) Latest() []float64 {
	if len(w.Rows) == 0 {
		return nil
	}
	return w.Rows[len(w.Rows)-1]
}

// Compute evaluates every feature and keeps the rows where all are defined.
func Compute(symbol string, feats []Feature, in Input) (*Window, error) {
	warmup := 0
	for _, f := range feats {
		if n := f.RequiredDataPoints(); n > warmup {
			warmup = n
		}
	}
	if len(in.Klines) <= warmup {
		return nil, fmt.Errorf("%s: %d klines do not cover warm-up of %d: %w", symbol, len(in.Klines), warmup, ports.ErrInsufficientData)
	}

	columns := make([][]float64, len(feats))
	names := make([]string, len(feats))
	for j, f := range feats {
		series, err := f.Series(in)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %s: %w", symbol, f.Name(), err)
		}
		if len(series) != len(in.Klines) {
			return nil, fmt.Errorf("%s: feature %s returned %d values for %d klines", symbol, f.Name(), len(series), len(in.Klines))
		}
		columns[j] = series
		names[j] = f.Name()
	}

	n := len(in.Klines) - warmup
	w := &Window{
		Symbol:  symbol,
		Columns: names,
		Rows:    make([][]float64, n),
		Closes:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		src := i + warmup
		row := make([]float64, len(feats))
		for j := range feats {
			row[j] = columns[j][src]
		}
		w.Rows[i] = row
		w.Closes[i] = in.Klines[src].Close
	}
	return w, nil
}

// Builder fetches market data and computes feature windows for a symbol.
type Builder struct {
	market      ports.MarketData
	features    []Feature
	timeframe   string
	candleLimit int
	bookDepth   int
	needsBook   bool
}

// BuilderConfig holds what a Builder fetches.
type BuilderConfig struct {
	Timeframe   string
	CandleLimit int
	BookDepth   int
}

// NewBuilder creates a feature window builder.
func NewBuilder(market ports.MarketData, feats []Feature, cfg BuilderConfig) (*Builder, error) {
	if market == nil || len(feats) == 0 {
		return nil, fmt.Errorf("market data and at least one feature are required")
	}
	b := &Builder{
		market:      market,
		features:    feats,
		timeframe:   cfg.Timeframe,
		candleLimit: cfg.CandleLimit,
		bookDepth:   cfg.BookDepth,
	}
	for _, f := range feats {
		if f.Name() == NameOrderBookImbalance {
			b.needsBook = true
		}
	}
	return b, nil
}

// Window fetches the latest candles (and order book when needed) and computes features.
func (b *Builder) Window(ctx context.Context, symbol string) (*Window, error) {
	klines, err := b.market.GetKlines(ctx, symbol, b.timeframe, b.candleLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	in := Input{Klines: klines}
	if b.needsBook {
		book, err := b.market.GetOrderBook(ctx, symbol, b.bookDepth)
		if err != nil {
			return nil, fmt.Errorf("fetch order book for %s: %w", symbol, err)
		}
		in.Book = book
	}
	return Compute(symbol, b.features, in)
}

// Columns returns the configured feature names in column order.
func (b *Builder) Columns() []string {
	names := make([]string, len(b.features))
	for i, f := range b.features {
		names[i] = f.Name()
	}
	return names
}

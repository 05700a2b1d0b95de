package features

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

// RSI is the relative strength index of closing prices.
type RSI struct {
	BaseFeature
}

// NewRSI creates an RSI feature.
func NewRSI(period int) *RSI {
	return &RSI{BaseFeature{Config: FeatureConfig{Period: period}}}
}

func (r *RSI) Name() string { return NameRSI }

func (r *RSI) Series(in Input) ([]float64, error) {
	if len(in.Klines) <= r.Config.Period {
		return nil, fmt.Errorf("rsi needs more than %d klines, got %d: %w", r.Config.Period, len(in.Klines), ports.ErrInsufficientData)
	}
	return talib.Rsi(domain.ClosePrices(in.Klines), r.Config.Period), nil
}

// MACD is the MACD line (fast EMA minus slow EMA) of closing prices.
type MACD struct {
	fast, slow, signal int
}

// NewMACD creates a MACD feature.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() string { return NameMACD }

// RequiredDataPoints matches the lookback of the MACD and signal lines together.
func (m *MACD) RequiredDataPoints() int {
	return (m.slow - 1) + (m.signal - 1)
}

func (m *MACD) Series(in Input) ([]float64, error) {
	if len(in.Klines) <= m.RequiredDataPoints() {
		return nil, fmt.Errorf("macd needs more than %d klines, got %d: %w", m.RequiredDataPoints(), len(in.Klines), ports.ErrInsufficientData)
	}
	macd, _, _ := talib.Macd(domain.ClosePrices(in.Klines), m.fast, m.slow, m.signal)
	return macd, nil
}

// VolumeZScore is the z-score of volume against a rolling window.
type VolumeZScore struct {
	BaseFeature
}

// NewVolumeZScore creates a volume z-score over window bars.
func NewVolumeZScore(window int) *VolumeZScore {
	return &VolumeZScore{BaseFeature{Config: FeatureConfig{Period: window}}}
}

func (v *VolumeZScore) Name() string { return NameVolumeZScore }

// RequiredDataPoints is window-1: the first full window ends at index window-1.
func (v *VolumeZScore) RequiredDataPoints() int {
	return v.Config.Period - 1
}

func (v *VolumeZScore) Series(in Input) ([]float64, error) {
	window := v.Config.Period
	if len(in.Klines) < window {
		return nil, fmt.Errorf("volume z-score needs %d klines, got %d: %w", window, len(in.Klines), ports.ErrInsufficientData)
	}
	vols := domain.Volumes(in.Klines)
	out := make([]float64, len(vols))
	for i := window - 1; i < len(vols); i++ {
		mean, std := stat.MeanStdDev(vols[i-window+1:i+1], nil)
		if std == 0 {
			continue
		}
		out[i] = (vols[i] - mean) / std
	}
	return out, nil
}

// OrderBookImbalance is the bid/ask quantity imbalance of the latest book,
// repeated for every row.
type OrderBookImbalance struct {
	depth int
}

// NewOrderBookImbalance creates the feature over the top depth levels.
func NewOrderBookImbalance(depth int) *OrderBookImbalance {
	return &OrderBookImbalance{depth: depth}
}

func (o *OrderBookImbalance) Name() string { return NameOrderBookImbalance }

func (o *OrderBookImbalance) RequiredDataPoints() int { return 0 }

func (o *OrderBookImbalance) Series(in Input) ([]float64, error) {
	if in.Book == nil {
		return nil, fmt.Errorf("order book imbalance needs an order book snapshot: %w", ports.ErrInsufficientData)
	}
	imbalance := in.Book.Imbalance(o.depth)
	out := make([]float64, len(in.Klines))
	for i := range out {
		out[i] = imbalance
	}
	return out, nil
}

// Package features turns candles and order book snapshots into model inputs.
package features

import (
	"fmt"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

// Feature names accepted in configuration.
const (
	NameRSI                = "rsi"
	NameMACD               = "macd"
	NameOrderBookImbalance = "order_book_imbalance"
	NameVolumeZScore       = "volume_zscore"
)

// Input is the market data a feature is computed from.
type Input struct {
	Klines []*domain.Kline   // Oldest first
	Book   *domain.OrderBook // Latest snapshot, may be nil for features that do not use it
}

// Feature computes one column of the feature matrix.
type Feature interface {
	// Series returns one value per kline; the first RequiredDataPoints values are undefined.
	Series(in Input) ([]float64, error)

	// RequiredDataPoints returns how many leading rows have no defined value.
	RequiredDataPoints() int

	// Name returns the configuration name of the feature
	Name() string
}

// FeatureConfig holds common configuration for features
type FeatureConfig struct {
	Period int
}

// BaseFeature provides common functionality for features
type BaseFeature struct {
	Config FeatureConfig
}

// RequiredDataPoints returns the warm-up length
func (b *BaseFeature) RequiredDataPoints() int {
	return b.Config.Period
}

// New builds the features named in configuration, in order.
func New(names []string, bookDepth int) ([]Feature, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no features configured: %w", ports.ErrConfigurationError)
	}
	out := make([]Feature, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("feature %q listed twice: %w", name, ports.ErrConfigurationError)
		}
		seen[name] = true

		switch name {
		case NameRSI:
			out = append(out, NewRSI(14))
		case NameMACD:
			out = append(out, NewMACD(12, 26, 9))
		case NameOrderBookImbalance:
			out = append(out, NewOrderBookImbalance(bookDepth))
		case NameVolumeZScore:
			out = append(out, NewVolumeZScore(20))
		default:
			return nil, fmt.Errorf("unknown feature %q: %w", name, ports.ErrConfigurationError)
		}
	}
	return out, nil
}

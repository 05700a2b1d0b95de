package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"cryptoScalper/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// SizeDecimal returns the position size that loses riskPct percent of equity
// when the stop at stopLossPct percent below entry is hit:
//
//	quantity = (equity * riskPct / 100) / (entryPrice * stopLossPct / 100)
func SizeDecimal(equity, riskPct, stopLossPct, entryPrice float64) (decimal.Decimal, error) {
	for name, v := range map[string]float64{"equity": equity, "riskPct": riskPct, "stopLossPct": stopLossPct, "entryPrice": entryPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return decimal.Zero, fmt.Errorf("size position: %s must be positive, got %v: %w", name, v, ports.ErrInvalidInput)
		}
	}

	riskAmount := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(riskPct)).Div(hundred)
	stopDistance := decimal.NewFromFloat(entryPrice).Mul(decimal.NewFromFloat(stopLossPct)).Div(hundred)
	return riskAmount.Div(stopDistance), nil
}

// Size is SizeDecimal as a float.
func Size(equity, riskPct, stopLossPct, entryPrice float64) (float64, error) {
	qty, err := SizeDecimal(equity, riskPct, stopLossPct, entryPrice)
	if err != nil {
		return 0, err
	}
	f, _ := qty.Float64()
	return f, nil
}

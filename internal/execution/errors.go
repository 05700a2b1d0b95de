package execution

import (
	"fmt"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

// PartialBracketError reports a filled entry whose protective orders are incomplete.
// Trade holds the recorded trade including the id of any leg that was placed.
type PartialBracketError struct {
	Trade         *domain.Trade
	TakeProfitErr error
	StopLossErr   error
}

func (e *PartialBracketError) Error() string {
	return fmt.Sprintf("%v: %s trade %d: take-profit: %s, stop-loss: %s",
		ports.ErrPartialBracket, e.Trade.Symbol, e.Trade.ID, legStatus(e.TakeProfitErr), legStatus(e.StopLossErr))
}

// Unwrap exposes ports.ErrPartialBracket and the leg errors to errors.Is.
func (e *PartialBracketError) Unwrap() []error {
	errs := []error{ports.ErrPartialBracket}
	for _, err := range []error{e.TakeProfitErr, e.StopLossErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func legStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

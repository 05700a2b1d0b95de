package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrTradeClosed is returned when a closed trade is closed again.
var ErrTradeClosed = errors.New("trade already closed")

// Trade represents a single position lifecycle record.
// Exit fields are nil while the trade is open.
type Trade struct {
	ID         int64       // Unique identifier (assigned by the ledger)
	Symbol     string      // Trading symbol (e.g., "BTCUSDT")
	Side       Side        // LONG or SHORT
	EntryPrice float64     // Price at which the position was entered
	ExitPrice  *float64    // Price at which the position was exited
	Quantity   float64     // Size of the position
	Leverage   int         // Leverage used for the position
	EntryTime  time.Time   // Timestamp when the position was entered
	ExitTime   *time.Time  // Timestamp when the position was exited
	ProfitPct  *float64    // Realized profit percentage
	Status     TradeStatus // OPEN or CLOSED

	// Exchange ids of the protective orders, 0 when not placed.
	TakeProfitOrderID int64
	StopLossOrderID   int64
}

// NewTrade creates an open trade.
func NewTrade(symbol string, side Side, entryPrice, quantity float64, leverage int, entryTime time.Time) *Trade {
	return &Trade{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		Leverage:   leverage,
		EntryTime:  entryTime,
		Status:     StatusOpen,
	}
}

// IsOpen checks if the trade status is open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// Close sets all exit fields at once and marks the trade closed.
func (t *Trade) Close(exitPrice, profitPct float64, exitTime time.Time) error {
	if !t.IsOpen() {
		return fmt.Errorf("close trade %d: %w", t.ID, ErrTradeClosed)
	}
	t.ExitPrice = &exitPrice
	t.ProfitPct = &profitPct
	t.ExitTime = &exitTime
	t.Status = StatusClosed
	return nil
}

// ProfitPctAt returns the unrealized profit percentage at the given price.
func (t *Trade) ProfitPctAt(price float64) float64 {
	pct := (price - t.EntryPrice) / t.EntryPrice * 100
	if t.Side == Short {
		return -pct
	}
	return pct
}

// MissingBrackets reports whether either protective order is absent.
func (t *Trade) MissingBrackets() bool {
	return t.TakeProfitOrderID == 0 || t.StopLossOrderID == 0
}

// Validate checks the exit-field invariant and basic attributes.
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return errors.New("trade symbol is empty")
	}
	if !t.Side.Valid() {
		return fmt.Errorf("invalid trade side %q", t.Side)
	}
	if t.EntryPrice <= 0 || t.Quantity <= 0 {
		return fmt.Errorf("trade entry price and quantity must be positive (price=%f, qty=%f)", t.EntryPrice, t.Quantity)
	}
	present := 0
	for _, set := range []bool{t.ExitPrice != nil, t.ExitTime != nil, t.ProfitPct != nil} {
		if set {
			present++
		}
	}
	switch {
	case present != 0 && present != 3:
		return errors.New("trade exit fields must be all present or all absent")
	case present == 3 && t.Status != StatusClosed:
		return errors.New("trade with exit fields must be closed")
	case present == 0 && t.Status != StatusOpen:
		return errors.New("closed trade is missing exit fields")
	}
	return nil
}

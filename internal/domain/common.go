package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// EntryOrderSide returns the order side that opens a position in this direction.
func (s Side) EntryOrderSide() OrderSide {
	if s == Short {
		return Sell
	}
	return Buy
}

// ExitOrderSide returns the order side that closes a position in this direction.
func (s Side) ExitOrderSide() OrderSide {
	if s == Short {
		return Buy
	}
	return Sell
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == Long || s == Short
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

// BracketKind identifies one leg of a bracket.
type BracketKind string

const (
	TakeProfit BracketKind = "TAKE_PROFIT"
	StopLoss   BracketKind = "STOP_LOSS"
)

// CloseReason indicates which threshold closed a trade.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
)

// Precision holds the number of decimals an instrument accepts.
type Precision struct {
	Price    int // Decimals allowed in prices
	Quantity int // Decimals allowed in quantities
}

// DefaultPrecision is used when the exchange does not report one for a symbol.
var DefaultPrecision = Precision{Price: 4, Quantity: 3}

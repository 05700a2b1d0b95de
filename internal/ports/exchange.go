package ports

import (
	"context"
	"time"

	"cryptoScalper/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	Price         float64   // Price of the order (0 for market orders)
	StopPrice     float64   // Trigger price for conditional orders
	AvgPrice      float64   // Average filled price
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type (e.g., MARKET, STOP_MARKET)
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// MarketData provides the read-only market queries the strategy needs.
type MarketData interface {
	// GetKlines retrieves the most recent klines for the given symbol, oldest first.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetOrderBook retrieves the top depth levels of the order book.
	GetOrderBook(ctx context.Context, symbol string, depth int) (*domain.OrderBook, error)

	// GetTickerPrice retrieves the last traded price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderTransport submits and cancels orders and reads account state.
type OrderTransport interface {
	// SetServerTime synchronizes the client's time with the server's time.
	SetServerTime(ctx context.Context) error

	// SetLeverage sets the leverage for a specific symbol.
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// GetAccountEquity retrieves the margin balance for an asset (e.g., "USDT").
	GetAccountEquity(ctx context.Context, asset string) (float64, error)

	// GetSymbolPrecision retrieves price and quantity precision for a symbol.
	GetSymbolPrecision(ctx context.Context, symbol string) (domain.Precision, error)

	// PlaceMarketOrder places a market order and returns the fill.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*OrderResponse, error)

	// PlaceConditionalOrder places a take-profit or stop-loss market order that
	// closes the whole position once triggerPrice is reached.
	PlaceConditionalOrder(ctx context.Context, symbol string, kind domain.BracketKind, side domain.OrderSide, triggerPrice string) (*OrderResponse, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderResponse, error)
}

// ExchangeClient is the full exchange surface used by the engine.
type ExchangeClient interface {
	MarketData
	OrderTransport
}

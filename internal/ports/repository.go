package ports

import (
	"context"
	"time"

	"cryptoScalper/internal/domain"
)

// TradeLedger stores the lifecycle of every trade.
type TradeLedger interface {
	// CreateTrade saves a new open trade, sets trade.ID and returns it.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// CloseTrade records the exit of an open trade.
	// Returns ErrTradeClosed if the trade is already closed and ErrNotFound if it does not exist.
	CloseTrade(ctx context.Context, id int64, exitPrice, profitPct float64, exitTime time.Time) error
	// ListOpenTrades retrieves all open trades ordered by entry time.
	ListOpenTrades(ctx context.Context) ([]*domain.Trade, error)
	// UpdateBracketOrders stores the exchange ids of the protective orders.
	UpdateBracketOrders(ctx context.Context, id int64, takeProfitOrderID, stopLossOrderID int64) error
	// CountOpenedSince counts trades entered at or after since.
	CountOpenedSince(ctx context.Context, since time.Time) (int, error)
}

// TradeHistory reads closed trades.
type TradeHistory interface {
	// ListClosedTrades retrieves the most recent closed trades, newest first.
	// A limit <= 0 returns all of them.
	ListClosedTrades(ctx context.Context, limit int) ([]*domain.Trade, error)
}

// AuditLog mirrors trade lifecycle events to a secondary record.
type AuditLog interface {
	RecordOpen(ctx context.Context, trade *domain.Trade) error
	RecordClose(ctx context.Context, trade *domain.Trade) error
}

package execution

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SetServerTime(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockTransport) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

func (m *mockTransport) GetAccountEquity(ctx context.Context, asset string) (float64, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockTransport) GetSymbolPrecision(ctx context.Context, symbol string) (domain.Precision, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.Precision), args.Error(1)
}

func (m *mockTransport) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	args := m.Called(ctx, symbol, side, quantity)
	resp, _ := args.Get(0).(*ports.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockTransport) PlaceConditionalOrder(ctx context.Context, symbol string, kind domain.BracketKind, side domain.OrderSide, triggerPrice string) (*ports.OrderResponse, error) {
	args := m.Called(ctx, symbol, kind, side, triggerPrice)
	resp, _ := args.Get(0).(*ports.OrderResponse)
	return resp, args.Error(1)
}

func (m *mockTransport) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	args := m.Called(ctx, symbol, orderID)
	resp, _ := args.Get(0).(*ports.OrderResponse)
	return resp, args.Error(1)
}

// memLedger is an in-memory ports.TradeLedger.
type memLedger struct {
	trades    map[int64]*domain.Trade
	nextID    int64
	createErr error
	updateErr error
	updates   int
}

func newMemLedger() *memLedger {
	return &memLedger{trades: make(map[int64]*domain.Trade)}
}

func (l *memLedger) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	if l.createErr != nil {
		return 0, l.createErr
	}
	l.nextID++
	trade.ID = l.nextID
	cp := *trade
	l.trades[trade.ID] = &cp
	return trade.ID, nil
}

func (l *memLedger) CloseTrade(ctx context.Context, id int64, exitPrice, profitPct float64, exitTime time.Time) error {
	t, ok := l.trades[id]
	if !ok {
		return ports.ErrNotFound
	}
	return t.Close(exitPrice, profitPct, exitTime)
}

func (l *memLedger) ListOpenTrades(ctx context.Context) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range l.trades {
		if t.IsOpen() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *memLedger) UpdateBracketOrders(ctx context.Context, id int64, tp, sl int64) error {
	l.updates++
	if l.updateErr != nil {
		return l.updateErr
	}
	t, ok := l.trades[id]
	if !ok {
		return ports.ErrNotFound
	}
	t.TakeProfitOrderID, t.StopLossOrderID = tp, sl
	return nil
}

func (l *memLedger) CountOpenedSince(ctx context.Context, since time.Time) (int, error) {
	return len(l.trades), nil
}

type memAudit struct {
	opened []*domain.Trade
	err    error
}

func (a *memAudit) RecordOpen(ctx context.Context, trade *domain.Trade) error {
	a.opened = append(a.opened, trade)
	return a.err
}

func (a *memAudit) RecordClose(ctx context.Context, trade *domain.Trade) error {
	return a.err
}

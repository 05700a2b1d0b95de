package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestHandleError(t *testing.T) {
	c := &Client{logger: nopLogger{}}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "rate limited", err: &common.APIError{Code: -1003, Message: "too many"}, want: ports.ErrRateLimited},
		{name: "unknown order", err: &common.APIError{Code: -2013, Message: "no order"}, want: ports.ErrOrderNotFound},
		{name: "margin", err: &common.APIError{Code: -2019, Message: "margin"}, want: ports.ErrInsufficientFunds},
		{name: "wrapped api error", err: fmt.Errorf("do: %w", &common.APIError{Code: -1111}), want: ports.ErrInvalidRequest},
		{name: "deadline", err: context.DeadlineExceeded, want: ports.ErrTimeout},
		{name: "refused", err: errors.New("dial tcp: connection refused"), want: ports.ErrConnectionFailed},
		{name: "other", err: errors.New("weird"), want: ports.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.handleError(context.Background(), tt.err, "Op")
			assert.ErrorIs(t, got, ports.ErrTransportFailure)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
	assert.NoError(t, c.handleError(context.Background(), nil, "Op"))
}

func TestDepthLimit(t *testing.T) {
	assert.Equal(t, 5, depthLimit(1))
	assert.Equal(t, 5, depthLimit(5))
	assert.Equal(t, 10, depthLimit(6))
	assert.Equal(t, 1000, depthLimit(5000))
}

func TestTranslateDepth(t *testing.T) {
	res := &futures.DepthResponse{
		Bids: []futures.Bid{{Price: "100.5", Quantity: "2"}, {Price: "100.4", Quantity: "1"}, {Price: "100.3", Quantity: "9"}},
		Asks: []futures.Ask{{Price: "100.6", Quantity: "3"}},
	}
	book, err := translateDepth("BTCUSDT", res, 2)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", book.Symbol)
	assert.Equal(t, []domain.PriceLevel{{Price: 100.5, Quantity: 2}, {Price: 100.4, Quantity: 1}}, book.Bids)
	assert.Equal(t, []domain.PriceLevel{{Price: 100.6, Quantity: 3}}, book.Asks)

	res.Asks[0].Quantity = "x"
	_, err = translateDepth("BTCUSDT", res, 2)
	assert.Error(t, err)
}

func TestTranslateOrderResponse(t *testing.T) {
	resp := translateOrderResponse(&futures.CreateOrderResponse{
		OrderID:          77,
		Symbol:           "ETHUSDT",
		AvgPrice:         "3000.25",
		ExecutedQuantity: "1.5",
		StopPrice:        "2995.5",
		Status:           futures.OrderStatusTypeFilled,
		Side:             futures.SideTypeBuy,
	})
	require.NotNil(t, resp)
	assert.Equal(t, int64(77), resp.OrderID)
	assert.Equal(t, 3000.25, resp.AvgPrice)
	assert.Equal(t, 1.5, resp.ExecutedQty)
	assert.Equal(t, 2995.5, resp.StopPrice)
	assert.Equal(t, "FILLED", resp.Status)
	assert.Nil(t, translateOrderResponse(nil))
}

func TestNewClientOrderID(t *testing.T) {
	a, b := newClientOrderID(), newClientOrderID()
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), 36)
	assert.Contains(t, a, clientOrderIDPrefix)
}

func TestParsePositive(t *testing.T) {
	v, err := parsePositive("101.5")
	require.NoError(t, err)
	assert.Equal(t, 101.5, v)
	_, err = parsePositive("0")
	assert.Error(t, err)
	_, err = parsePositive("abc")
	assert.Error(t, err)
}

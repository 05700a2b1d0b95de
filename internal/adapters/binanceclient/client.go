package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	clientOrderIDPrefix = "csc-"
)

// Depth limits accepted by the futures order book endpoint.
var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// Client implements ports.ExchangeClient using the go-binance futures API.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger

	mu         sync.Mutex
	precisions map[string]domain.Precision
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{futuresClient: client, logger: cfg.Logger}, nil
}

// handleError translates Binance API errors into standardized ports errors.
// Every returned error matches ports.ErrTransportFailure.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	mappedErr := classifyError(err)
	fields := map[string]interface{}{"operation": operation}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}
	c.logger.Error(ctx, err, operation+" failed", fields)
	return fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrTransportFailure, mappedErr, err)
}

func classifyError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003: // Too many requests
			return ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			return ports.ErrTimeout
		case -1022: // Invalid signature
			return ports.ErrAuthenticationFailed
		case -1102, -1106, -1111, -1116, -1117, -1121, -4003, -4014, -4015: // Parameter/Request format errors
			return ports.ErrInvalidRequest
		case -2010, -2021, -2022: // Order rejected / would trigger immediately / ReduceOnly rejected
			return ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			return ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			return ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / permissions
			return ports.ErrInvalidAPIKeys
		case -2019, -3005, -4047: // Margin insufficient
			return ports.ErrInsufficientFunds
		case -4044: // Position not found
			return ports.ErrPositionNotFound
		default:
			return ports.ErrUnknown
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		return ports.ErrConnectionFailed
	default:
		return ports.ErrUnknown
	}
}

// SetServerTime synchronizes the client's time with the server's time.
func (c *Client) SetServerTime(ctx context.Context) error {
	op := "SetServerTime"
	if _, err := c.futuresClient.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s", symbol), op)
	}

	price, err := parsePositive(tickers[0].LastPrice)
	if err != nil {
		return 0, c.handleError(ctx, fmt.Errorf("ticker price for %s: %w", symbol, err), op)
	}
	return price, nil
}

// GetKlines retrieves the most recent klines for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	binanceKlines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}
	return domainKlines, nil
}

// GetOrderBook retrieves the top depth levels of the order book.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (*domain.OrderBook, error) {
	op := "GetOrderBook"
	res, err := c.futuresClient.NewDepthService().Symbol(symbol).Limit(depthLimit(depth)).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	book, err := translateDepth(symbol, res, depth)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return book, nil
}

// GetAccountEquity retrieves the margin balance for an asset.
func (c *Client) GetAccountEquity(ctx context.Context, asset string) (float64, error) {
	op := "GetAccountEquity"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Assets {
		if bal.Asset == asset {
			equity, err := strconv.ParseFloat(bal.MarginBalance, 64)
			if err != nil {
				return 0, c.handleError(ctx, fmt.Errorf("could not parse margin balance '%s' for asset %s: %w", bal.MarginBalance, asset, err), op)
			}
			return equity, nil
		}
	}
	return 0, c.handleError(ctx, fmt.Errorf("asset %s not found in account balance", asset), op)
}

// GetSymbolPrecision retrieves price and quantity precision from exchange info.
// Exchange info is fetched once and cached.
func (c *Client) GetSymbolPrecision(ctx context.Context, symbol string) (domain.Precision, error) {
	op := "GetSymbolPrecision"
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.precisions == nil {
		info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return domain.Precision{}, c.handleError(ctx, err, op)
		}
		c.precisions = make(map[string]domain.Precision, len(info.Symbols))
		for _, s := range info.Symbols {
			c.precisions[s.Symbol] = domain.Precision{Price: s.PricePrecision, Quantity: s.QuantityPrecision}
		}
		c.logger.Debug(ctx, op+": exchange info loaded", map[string]interface{}{"symbols": len(c.precisions)})
	}

	p, ok := c.precisions[symbol]
	if !ok {
		return domain.Precision{}, fmt.Errorf("%s failed: symbol %s: %w", op, symbol, ports.ErrNotFound)
	}
	return p, nil
}

// SetLeverage sets the leverage for a specific symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	op := "SetLeverage"
	_, err := c.futuresClient.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "leverage": leverage})
	return nil
}

// PlaceMarketOrder places a market order and waits for the fill result.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	op := "PlaceMarketOrder"
	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(newClientOrderID()).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity, "orderID": resp.OrderID, "avgPrice": resp.AvgPrice})
	return resp, nil
}

// PlaceConditionalOrder places a TAKE_PROFIT_MARKET or STOP_MARKET order closing the position.
func (c *Client) PlaceConditionalOrder(ctx context.Context, symbol string, kind domain.BracketKind, side domain.OrderSide, triggerPrice string) (*ports.OrderResponse, error) {
	op := "PlaceConditionalOrder"
	var orderType futures.OrderType
	switch kind {
	case domain.TakeProfit:
		orderType = futures.OrderTypeTakeProfitMarket
	case domain.StopLoss:
		orderType = futures.OrderTypeStopMarket
	default:
		return nil, fmt.Errorf("%s failed: unknown bracket kind %q: %w", op, kind, ports.ErrInvalidInput)
	}

	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(orderType).
		StopPrice(triggerPrice).
		ClosePosition(true).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":       symbol,
		"kind":         kind,
		"side":         side,
		"triggerPrice": triggerPrice,
		"orderID":      resp.OrderID,
		"status":       resp.Status,
	})
	return resp, nil
}

// CancelOrder cancels an open order on Binance.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	op := "CancelOrder"
	c.logger.Debug(ctx, "Attempting to cancel order", map[string]interface{}{"symbol": symbol, "orderID": orderID})

	res, err := c.futuresClient.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(&futures.CreateOrderResponse{
		OrderID:       res.OrderID,
		Symbol:        res.Symbol,
		ClientOrderID: res.ClientOrderID,
		Price:         res.Price,
		OrigQuantity:  res.OrigQuantity,
		Status:        res.Status,
		Type:          res.Type,
		Side:          res.Side,
	})
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID, "status": resp.Status})
	return resp, nil
}

// --- Translation Helpers ---

func newClientOrderID() string {
	// Binance limits client order ids to 36 characters.
	return clientOrderIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:28]
}

func depthLimit(depth int) int {
	for _, l := range depthLimits {
		if depth <= l {
			return l
		}
	}
	return depthLimits[len(depthLimits)-1]
}

func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse price '%s': %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price '%s'", s)
	}
	return v, nil
}

func translateDepth(symbol string, res *futures.DepthResponse, depth int) (*domain.OrderBook, error) {
	if res == nil {
		return nil, errors.New("received nil depth response")
	}
	book := &domain.OrderBook{Symbol: symbol}
	var err error
	if book.Bids, err = translateLevels(res.Bids, depth); err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	if book.Asks, err = translateLevels(res.Asks, depth); err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return book, nil
}

func translateLevels(levels []common.PriceLevel, depth int) ([]domain.PriceLevel, error) {
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, l := range levels {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing level price '%s': %w", l.Price, err)
		}
		qty, err := strconv.ParseFloat(l.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing level quantity '%s': %w", l.Quantity, err)
		}
		out = append(out, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return out, nil
}

func translateOrderResponse(order *futures.CreateOrderResponse) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	price, _ := strconv.ParseFloat(order.Price, 64)
	stopPrice, _ := strconv.ParseFloat(order.StopPrice, 64)
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	origQty, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	return &ports.OrderResponse{
		OrderID:       order.OrderID,
		Symbol:        order.Symbol,
		ClientOrderID: order.ClientOrderID,
		Price:         price,
		StopPrice:     stopPrice,
		AvgPrice:      avgPrice,
		OrigQuantity:  origQty,
		ExecutedQty:   execQty,
		Status:        string(order.Status),
		Type:          string(order.Type),
		Side:          string(order.Side),
		Timestamp:     time.UnixMilli(order.UpdateTime),
	}
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}

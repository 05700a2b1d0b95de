// Package execution opens positions and manages their bracket orders.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Config holds the trade parameters the executor applies.
type Config struct {
	ProfitTargetPct float64
	StopLossPct     float64
	Leverage        int
}

// Executor submits entries with bracket orders and records the resulting trades.
type Executor struct {
	cfg       Config
	transport ports.OrderTransport
	ledger    ports.TradeLedger
	audit     ports.AuditLog
	logger    ports.Logger
	now       func() time.Time

	mu         sync.RWMutex
	precisions map[string]domain.Precision
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config, transport ports.OrderTransport, ledger ports.TradeLedger, audit ports.AuditLog, logger ports.Logger) (*Executor, error) {
	if transport == nil || ledger == nil || audit == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Executor")
	}
	if cfg.ProfitTargetPct <= 0 || cfg.StopLossPct <= 0 {
		return nil, fmt.Errorf("profit target and stop loss must be positive: %w", ports.ErrConfigurationError)
	}
	return &Executor{
		cfg:        cfg,
		transport:  transport,
		ledger:     ledger,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
		precisions: make(map[string]domain.Precision),
	}, nil
}

// SetPrecision records the instrument precision used for a symbol's orders.
func (e *Executor) SetPrecision(symbol string, p domain.Precision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.precisions[symbol] = p
}

func (e *Executor) precision(symbol string) domain.Precision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.precisions[symbol]; ok {
		return p
	}
	return domain.DefaultPrecision
}

// BracketPrices returns take-profit and stop-loss trigger prices rounded to
// pricePrecision decimals.
func BracketPrices(side domain.Side, entryPrice, profitTargetPct, stopLossPct float64, pricePrecision int) (takeProfit, stopLoss decimal.Decimal) {
	entry := decimal.NewFromFloat(entryPrice)
	tp := decimal.NewFromFloat(profitTargetPct).Div(hundred)
	sl := decimal.NewFromFloat(stopLossPct).Div(hundred)
	if side == domain.Short {
		takeProfit = entry.Mul(one.Sub(tp))
		stopLoss = entry.Mul(one.Add(sl))
	} else {
		takeProfit = entry.Mul(one.Add(tp))
		stopLoss = entry.Mul(one.Sub(sl))
	}
	places := int32(pricePrecision)
	return takeProfit.Round(places), stopLoss.Round(places)
}

// OpenPosition submits a market entry, attaches both bracket orders and records the trade.
//
// A failed entry returns a nil trade and nothing else is submitted. A failed
// bracket leg returns the recorded trade together with a *PartialBracketError.
// Ledger and audit writes are best-effort.
func (e *Executor) OpenPosition(ctx context.Context, symbol string, side domain.Side, quantity, entryPrice float64) (*domain.Trade, error) {
	op := "OpenPosition"
	if !side.Valid() {
		return nil, fmt.Errorf("%s %s: unknown side %q: %w", op, symbol, side, ports.ErrInvalidInput)
	}
	if entryPrice <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("%s %s: entry price %v and quantity %v must be positive: %w", op, symbol, entryPrice, quantity, ports.ErrInvalidInput)
	}

	prec := e.precision(symbol)
	qty := decimal.NewFromFloat(quantity).Truncate(int32(prec.Quantity))
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%s %s: quantity %v rounds to zero at %d decimals: %w", op, symbol, quantity, prec.Quantity, ports.ErrInvalidInput)
	}

	resp, err := e.transport.PlaceMarketOrder(ctx, symbol, side.EntryOrderSide(), qty.String())
	if err != nil {
		return nil, fmt.Errorf("%s %s: entry order: %w", op, symbol, err)
	}

	fillPrice := entryPrice
	if resp.AvgPrice > 0 {
		fillPrice = resp.AvgPrice
	}
	filledQty, _ := qty.Float64()
	if resp.ExecutedQty > 0 {
		filledQty = resp.ExecutedQty
	}

	trade := domain.NewTrade(symbol, side, fillPrice, filledQty, e.cfg.Leverage, e.now())
	e.logger.Info(ctx, op+": entry filled", map[string]interface{}{
		"symbol":    symbol,
		"side":      side,
		"quantity":  filledQty,
		"fillPrice": fillPrice,
		"orderID":   resp.OrderID,
	})

	tpErr, slErr := e.placeBrackets(ctx, trade)

	if _, err := e.ledger.CreateTrade(ctx, trade); err != nil {
		e.logger.Error(ctx, err, op+": failed to record trade in ledger", map[string]interface{}{"symbol": symbol})
	}
	if err := e.audit.RecordOpen(ctx, trade); err != nil {
		e.logger.Error(ctx, err, op+": failed to mirror trade to audit log", map[string]interface{}{"symbol": symbol, "tradeID": trade.ID})
	}

	if tpErr != nil || slErr != nil {
		return trade, &PartialBracketError{Trade: trade, TakeProfitErr: tpErr, StopLossErr: slErr}
	}
	return trade, nil
}

// PlaceMissingBrackets retries whichever bracket legs the trade lacks and
// stores the new ids in the ledger.
func (e *Executor) PlaceMissingBrackets(ctx context.Context, trade *domain.Trade) error {
	op := "PlaceMissingBrackets"
	if !trade.MissingBrackets() {
		return nil
	}
	tpErr, slErr := e.placeBrackets(ctx, trade)

	if trade.ID != 0 {
		if err := e.ledger.UpdateBracketOrders(ctx, trade.ID, trade.TakeProfitOrderID, trade.StopLossOrderID); err != nil {
			e.logger.Error(ctx, err, op+": failed to store bracket order ids", map[string]interface{}{"tradeID": trade.ID})
		}
	}
	if tpErr != nil || slErr != nil {
		return &PartialBracketError{Trade: trade, TakeProfitErr: tpErr, StopLossErr: slErr}
	}
	e.logger.Info(ctx, op+": trade protected", map[string]interface{}{
		"tradeID":           trade.ID,
		"symbol":            trade.Symbol,
		"takeProfitOrderID": trade.TakeProfitOrderID,
		"stopLossOrderID":   trade.StopLossOrderID,
	})
	return nil
}

// CancelBrackets cancels the recorded bracket orders of a trade.
// Orders that no longer exist are ignored.
func (e *Executor) CancelBrackets(ctx context.Context, trade *domain.Trade) error {
	var errs []error
	for _, orderID := range []int64{trade.TakeProfitOrderID, trade.StopLossOrderID} {
		if orderID == 0 {
			continue
		}
		if err := e.cancelOrderWarn(ctx, trade.Symbol, orderID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) cancelOrderWarn(ctx context.Context, symbol string, orderID int64) error {
	_, err := e.transport.CancelOrder(ctx, symbol, orderID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ports.ErrOrderNotFound) {
		e.logger.Debug(ctx, "Bracket order already gone", map[string]interface{}{"symbol": symbol, "orderID": orderID})
		return nil
	}
	e.logger.Warn(ctx, "Failed to cancel bracket order", map[string]interface{}{"symbol": symbol, "orderID": orderID, "error": err.Error()})
	return err
}

// placeBrackets submits every leg the trade does not have yet.
func (e *Executor) placeBrackets(ctx context.Context, trade *domain.Trade) (tpErr, slErr error) {
	tpPrice, slPrice := BracketPrices(trade.Side, trade.EntryPrice, e.cfg.ProfitTargetPct, e.cfg.StopLossPct, e.precision(trade.Symbol).Price)
	exitSide := trade.Side.ExitOrderSide()

	if trade.TakeProfitOrderID == 0 {
		trade.TakeProfitOrderID, tpErr = e.placeLeg(ctx, trade, domain.TakeProfit, exitSide, tpPrice)
	}
	if trade.StopLossOrderID == 0 {
		trade.StopLossOrderID, slErr = e.placeLeg(ctx, trade, domain.StopLoss, exitSide, slPrice)
	}
	return tpErr, slErr
}

func (e *Executor) placeLeg(ctx context.Context, trade *domain.Trade, kind domain.BracketKind, side domain.OrderSide, price decimal.Decimal) (int64, error) {
	resp, err := e.transport.PlaceConditionalOrder(ctx, trade.Symbol, kind, side, price.String())
	if err != nil {
		e.logger.Error(ctx, err, "Bracket order failed", map[string]interface{}{
			"symbol":       trade.Symbol,
			"kind":         kind,
			"triggerPrice": price.String(),
		})
		return 0, fmt.Errorf("%s order at %s: %w", kind, price.String(), err)
	}
	return resp.OrderID, nil
}

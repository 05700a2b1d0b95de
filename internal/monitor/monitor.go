// Package monitor keeps the ledger in step with exits that happen at the exchange.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

const defaultConcurrency = 4

// PriceLookup returns the last traded price of a symbol.
type PriceLookup interface {
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}

// BracketCanceller removes the protective orders of a closed trade.
type BracketCanceller interface {
	CancelBrackets(ctx context.Context, trade *domain.Trade) error
}

// Config holds the exit thresholds in percent.
type Config struct {
	ProfitTargetPct float64
	StopLossPct     float64
	Concurrency     int // Parallel price lookups, one per distinct symbol
}

// Exit is a trade whose threshold was crossed.
type Exit struct {
	Trade     *domain.Trade
	ExitPrice float64
	ProfitPct float64
	Reason    domain.CloseReason
}

// Result is the outcome of one monitor pass.
type Result struct {
	Open   []*domain.Trade // Trades still open after the pass
	Closed []Exit          // Exits recorded in the ledger
}

// Monitor polls open trades and closes the ones past their target or stop.
type Monitor struct {
	cfg      Config
	ledger   ports.TradeLedger
	prices   PriceLookup
	audit    ports.AuditLog
	brackets BracketCanceller
	logger   ports.Logger
	now      func() time.Time
}

// NewMonitor creates a trade monitor.
func NewMonitor(cfg Config, ledger ports.TradeLedger, prices PriceLookup, audit ports.AuditLog, brackets BracketCanceller, logger ports.Logger) (*Monitor, error) {
	if ledger == nil || prices == nil || audit == nil || brackets == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Monitor")
	}
	if cfg.ProfitTargetPct <= 0 || cfg.StopLossPct <= 0 {
		return nil, fmt.Errorf("profit target and stop loss must be positive: %w", ports.ErrConfigurationError)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Monitor{
		cfg:      cfg,
		ledger:   ledger,
		prices:   prices,
		audit:    audit,
		brackets: brackets,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// ExitReason reports whether a trade at profitPct must exit and why.
func ExitReason(profitPct, profitTargetPct, stopLossPct float64) (domain.CloseReason, bool) {
	switch {
	case profitPct >= profitTargetPct:
		return domain.CloseReasonTakeProfit, true
	case profitPct <= -stopLossPct:
		return domain.CloseReasonStopLoss, true
	}
	return "", false
}

// CheckExits prices every open trade and returns those that crossed a threshold.
// Prices are fetched once per symbol; a symbol whose price cannot be fetched is
// skipped without affecting the others.
func (m *Monitor) CheckExits(ctx context.Context, trades []*domain.Trade) []Exit {
	prices := m.fetchPrices(ctx, trades)

	var exits []Exit
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok {
			continue
		}
		profit := t.ProfitPctAt(price)
		if reason, hit := ExitReason(profit, m.cfg.ProfitTargetPct, m.cfg.StopLossPct); hit {
			exits = append(exits, Exit{Trade: t, ExitPrice: price, ProfitPct: profit, Reason: reason})
		}
	}
	return exits
}

func (m *Monitor) fetchPrices(ctx context.Context, trades []*domain.Trade) map[string]float64 {
	var symbols []string
	seen := make(map[string]bool)
	for _, t := range trades {
		if t.IsOpen() && !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}

	var mu sync.Mutex
	prices := make(map[string]float64, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			price, err := m.prices.GetTickerPrice(gctx, symbol)
			if err != nil {
				m.logger.Error(ctx, err, "CheckExits: price lookup failed, skipping symbol", map[string]interface{}{"symbol": symbol})
				return nil
			}
			if price <= 0 {
				m.logger.Warn(ctx, "CheckExits: non-positive price, skipping symbol", map[string]interface{}{"symbol": symbol, "price": price})
				return nil
			}
			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return prices
}

// Run loads the open trades, closes those that exited and returns the rest.
// Only a failure to list open trades is returned; per-trade failures are logged
// and the trade stays open for the next pass.
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	op := "MonitorRun"
	trades, err := m.ledger.ListOpenTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list open trades: %w", op, err)
	}

	res := &Result{}
	closed := make(map[*domain.Trade]bool)
	for _, exit := range m.CheckExits(ctx, trades) {
		if m.closeTrade(ctx, exit) {
			closed[exit.Trade] = true
			res.Closed = append(res.Closed, exit)
		}
	}
	for _, t := range trades {
		if !closed[t] {
			res.Open = append(res.Open, t)
		}
	}
	if len(res.Closed) > 0 {
		m.logger.Info(ctx, op+": trades closed", map[string]interface{}{"closed": len(res.Closed), "open": len(res.Open)})
	}
	return res, nil
}

func (m *Monitor) closeTrade(ctx context.Context, exit Exit) bool {
	op := "closeTrade"
	t := exit.Trade
	fields := map[string]interface{}{
		"tradeID":   t.ID,
		"symbol":    t.Symbol,
		"exitPrice": exit.ExitPrice,
		"profitPct": exit.ProfitPct,
		"reason":    exit.Reason,
	}
	exitTime := m.now().UTC()

	if err := m.ledger.CloseTrade(ctx, t.ID, exit.ExitPrice, exit.ProfitPct, exitTime); err != nil {
		if errors.Is(err, ports.ErrTradeClosed) {
			m.logger.Warn(ctx, op+": trade already closed in ledger", fields)
			return true
		}
		m.logger.Error(ctx, err, op+": failed to close trade in ledger", fields)
		return false
	}
	if err := t.Close(exit.ExitPrice, exit.ProfitPct, exitTime); err != nil {
		m.logger.Warn(ctx, op+": in-memory trade already closed", fields)
	}
	m.logger.Info(ctx, op+": trade closed", fields)

	if err := m.audit.RecordClose(ctx, t); err != nil {
		m.logger.Error(ctx, err, op+": failed to mirror close to audit log", fields)
	}
	if err := m.brackets.CancelBrackets(ctx, t); err != nil {
		m.logger.Error(ctx, err, op+": failed to cancel bracket orders", fields)
	}
	return true
}

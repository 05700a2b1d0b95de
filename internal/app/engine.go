package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoScalper/config"
	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/execution"
	"cryptoScalper/internal/features"
	"cryptoScalper/internal/metrics"
	"cryptoScalper/internal/monitor"
	"cryptoScalper/internal/ports"
	"cryptoScalper/internal/retrain"
	"cryptoScalper/internal/risk"
	sig "cryptoScalper/internal/signal"
)

// PositionExecutor opens positions and repairs their protective orders.
type PositionExecutor interface {
	SetPrecision(symbol string, p domain.Precision)
	OpenPosition(ctx context.Context, symbol string, side domain.Side, quantity, entryPrice float64) (*domain.Trade, error)
	PlaceMissingBrackets(ctx context.Context, trade *domain.Trade) error
}

// ExitMonitor closes open trades that crossed their thresholds.
type ExitMonitor interface {
	Run(ctx context.Context) (*monitor.Result, error)
}

// Dependencies are the collaborators of the StrategyEngine.
type Dependencies struct {
	Logger    ports.Logger
	Exchange  ports.ExchangeClient
	Ledger    ports.TradeLedger
	Features  retrain.WindowProvider
	Evaluator *sig.Evaluator
	Executor  PositionExecutor
	Monitor   ExitMonitor
	Retrainer *retrain.Scheduler
	Limiter   *risk.DailyLimiter
	Metrics   *metrics.Metrics
}

// StrategyEngine drives the trading cycle: monitor exits, then evaluate,
// size and open each symbol in turn, then retrain stale models.
// RunCycle must not be called concurrently.
type StrategyEngine struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	ledger    ports.TradeLedger
	features  retrain.WindowProvider
	evaluator *sig.Evaluator
	executor  PositionExecutor
	monitor   ExitMonitor
	retrainer *retrain.Scheduler
	limiter   *risk.DailyLimiter
	metrics   *metrics.Metrics
	scheduler *Scheduler

	models      map[string]*ports.ModelState
	unprotected map[string][]*domain.Trade // Trades waiting for a bracket retry, by symbol
	unrecorded  map[string][]*domain.Trade // Live trades the ledger failed to store, by symbol

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewStrategyEngine creates a new engine instance.
func NewStrategyEngine(cfg *config.Config, deps Dependencies) (*StrategyEngine, error) {
	if cfg == nil || deps.Logger == nil || deps.Exchange == nil || deps.Ledger == nil || deps.Features == nil ||
		deps.Evaluator == nil || deps.Executor == nil || deps.Monitor == nil || deps.Retrainer == nil ||
		deps.Limiter == nil || deps.Metrics == nil {
		return nil, fmt.Errorf("missing required dependencies for StrategyEngine")
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	if cfg.PhaseTimeout <= 0 {
		return nil, fmt.Errorf("phase timeout must be positive: %w", ports.ErrConfigurationError)
	}

	models := make(map[string]*ports.ModelState, len(cfg.Strategy.Symbols))
	for _, symbol := range cfg.Strategy.Symbols {
		models[symbol] = &ports.ModelState{Symbol: symbol}
	}

	return &StrategyEngine{
		cfg:       cfg,
		logger:    deps.Logger,
		exchange:  deps.Exchange,
		ledger:    deps.Ledger,
		features:  deps.Features,
		evaluator: deps.Evaluator,
		executor:  deps.Executor,
		monitor:   deps.Monitor,
		retrainer: deps.Retrainer,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		scheduler: NewScheduler(SchedulerConfig{
			Interval:   cfg.CycleInterval,
			BackoffMin: cfg.ErrorBackoffMin,
			BackoffMax: cfg.ErrorBackoffMax,
		}, deps.Logger),
		models:      models,
		unprotected: make(map[string][]*domain.Trade),
		unrecorded:  make(map[string][]*domain.Trade),
		now:         time.Now,
		sleep:       sleepCtx,
	}, nil
}

// Start prepares every symbol and runs cycles until ctx is cancelled or a
// shutdown signal arrives. Startup problems other than configuration are logged
// and the engine keeps going.
func (e *StrategyEngine) Start(ctx context.Context) error {
	e.logger.Info(ctx, "Starting Strategy Engine...", map[string]interface{}{"symbols": e.cfg.Strategy.Symbols})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			e.logger.Info(ctx, "Received shutdown signal, finishing current cycle", map[string]interface{}{"signal": s.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	e.initialize(ctx)

	err := e.scheduler.Run(ctx, e.RunCycle)
	e.logger.Info(ctx, "Strategy Engine stopped.")
	return err
}

func (e *StrategyEngine) initialize(ctx context.Context) {
	op := "initialize"

	// 1. Set server time (important for signed API calls)
	if err := e.exchange.SetServerTime(ctx); err != nil {
		e.logger.Warn(ctx, op+": failed to synchronize server time", map[string]interface{}{"error": err.Error()})
	}

	// 2. Leverage and precision per symbol
	for _, symbol := range e.cfg.Strategy.Symbols {
		if err := e.exchange.SetLeverage(ctx, symbol, e.cfg.Strategy.Leverage); err != nil {
			e.logger.Warn(ctx, op+": failed to set leverage, continuing with exchange setting", map[string]interface{}{
				"symbol":   symbol,
				"leverage": e.cfg.Strategy.Leverage,
				"error":    err.Error(),
			})
		}
		precision, err := e.exchange.GetSymbolPrecision(ctx, symbol)
		if err != nil {
			e.logger.Warn(ctx, op+": failed to load symbol precision, using default", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			precision = domain.DefaultPrecision
		}
		e.executor.SetPrecision(symbol, precision)
	}

	// 3. Trades already opened today
	now := e.now()
	count, err := e.ledger.CountOpenedSince(ctx, risk.StartOfDay(now))
	if err != nil {
		e.logger.Error(ctx, err, op+": failed to count today's trades, daily cap starts at zero")
	}
	e.limiter.Seed(now, count)

	// 4. Open trades without full protection
	open, err := e.ledger.ListOpenTrades(ctx)
	if err != nil {
		e.logger.Error(ctx, err, op+": failed to load open trades")
	}
	for _, t := range open {
		if t.MissingBrackets() {
			e.unprotected[t.Symbol] = append(e.unprotected[t.Symbol], t)
		}
	}

	// 5. Initial models
	for _, symbol := range e.cfg.Strategy.Symbols {
		tctx, cancel := context.WithTimeout(ctx, e.cfg.PhaseTimeout)
		err := e.retrainer.Retrain(tctx, e.models[symbol], e.features, e.now())
		cancel()
		e.recordRetrain(ctx, symbol, true, err)
	}

	e.logger.Info(ctx, op+": engine state initialized", map[string]interface{}{
		"tradesToday": count,
		"openTrades":  len(open),
	})
}

// RunCycle runs the monitor phase followed by the execution phase of every symbol.
// It returns an error when the monitor phase fails or when every symbol failed.
func (e *StrategyEngine) RunCycle(ctx context.Context) (err error) {
	op := "RunCycle"
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		e.metrics.Cycles.WithLabelValues(result).Inc()
	}()

	// Monitor phase
	mctx, cancel := context.WithTimeout(ctx, e.cfg.PhaseTimeout)
	res, err := e.monitor.Run(mctx)
	cancel()
	if err != nil {
		return fmt.Errorf("%s: monitor phase: %w", op, err)
	}
	for _, exit := range res.Closed {
		e.metrics.TradesClosed.WithLabelValues(exit.Trade.Symbol, string(exit.Reason)).Inc()
	}

	openCounts := make(map[string]int)
	for _, t := range res.Open {
		openCounts[t.Symbol]++
	}
	e.pruneUnprotected(res.Open)
	e.recordPending(ctx, openCounts)

	// Execution phase
	var errs []error
	for _, symbol := range e.cfg.Strategy.Symbols {
		if err := e.runSymbol(ctx, symbol, openCounts); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			e.metrics.SymbolErrors.WithLabelValues(symbol).Inc()
			e.logger.Error(ctx, err, op+": symbol phase failed", map[string]interface{}{"symbol": symbol})
		}
		// Also after the last symbol, so back-to-back cycles stay rate limited.
		if e.cfg.SymbolPause > 0 {
			e.sleep(ctx, e.cfg.SymbolPause)
		}
	}

	if len(errs) > 0 && len(errs) == len(e.cfg.Strategy.Symbols) {
		return fmt.Errorf("%s: every symbol failed: %w", op, errors.Join(errs...))
	}
	return nil
}

// runSymbol runs one symbol's execution phase under its own timeout.
// A panic is turned into an error so the remaining symbols still run.
func (e *StrategyEngine) runSymbol(ctx context.Context, symbol string, openCounts map[string]int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in symbol phase: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PhaseTimeout)
	defer cancel()

	e.repairBrackets(ctx, symbol)

	window, err := e.features.Window(ctx, symbol)
	if err != nil {
		return fmt.Errorf("feature window: %w", err)
	}

	execErr := e.execute(ctx, symbol, window, openCounts)

	// Retraining follows the decision so this cycle's signal used the old model.
	retrained, rerr := e.retrainer.MaybeRetrain(ctx, e.models[symbol], staticWindow{window}, e.now())
	e.recordRetrain(ctx, symbol, retrained, rerr)

	return execErr
}

func (e *StrategyEngine) execute(ctx context.Context, symbol string, window *features.Window, openCounts map[string]int) error {
	op := "execute"
	state := e.models[symbol]
	if !state.Trained() {
		e.logger.Warn(ctx, op+": model not trained yet, skipping entry", map[string]interface{}{"symbol": symbol})
		return nil
	}

	price, err := e.exchange.GetTickerPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("ticker price: %w", err)
	}

	entry, err := e.evaluator.Evaluate(symbol, window.Latest(), state, price)
	if err != nil {
		return err
	}
	if entry == nil {
		e.logger.Debug(ctx, op+": no signal", map[string]interface{}{"symbol": symbol})
		return nil
	}
	e.metrics.Probability.WithLabelValues(symbol).Set(entry.Probability)

	now := e.now()
	if !e.limiter.Allow(now) {
		e.logger.Info(ctx, op+": daily trade limit reached, signal ignored", map[string]interface{}{
			"symbol":      symbol,
			"tradesToday": e.limiter.Count(now),
			"maxDaily":    e.cfg.Strategy.MaxDailyTrades,
		})
		return nil
	}
	if limit := e.cfg.MaxOpenTradesPerSymbol; limit > 0 && openCounts[symbol] >= limit {
		e.logger.Info(ctx, op+": open trade limit reached for symbol, signal ignored", map[string]interface{}{
			"symbol":     symbol,
			"openTrades": openCounts[symbol],
		})
		return nil
	}

	equity, err := e.exchange.GetAccountEquity(ctx, e.cfg.QuoteAsset)
	if err != nil {
		return fmt.Errorf("account equity: %w", err)
	}
	quantity, err := risk.Size(equity, e.cfg.Strategy.RiskPerTradePct, e.cfg.Strategy.StopLossPct, entry.Price)
	if err != nil {
		return err
	}

	e.logger.Info(ctx, op+": opening position", map[string]interface{}{
		"symbol":      symbol,
		"side":        entry.Side,
		"probability": entry.Probability,
		"price":       entry.Price,
		"quantity":    quantity,
		"equity":      equity,
	})
	trade, err := e.executor.OpenPosition(ctx, symbol, entry.Side, quantity, entry.Price)
	if trade != nil {
		e.limiter.Record(now)
		openCounts[symbol]++
		e.metrics.TradesOpened.WithLabelValues(symbol).Inc()
		if trade.ID == 0 {
			e.unrecorded[symbol] = append(e.unrecorded[symbol], trade)
		}
	}
	if err != nil {
		var pbe *execution.PartialBracketError
		if errors.As(err, &pbe) {
			e.unprotected[symbol] = append(e.unprotected[symbol], pbe.Trade)
			e.metrics.BracketFailures.WithLabelValues(symbol).Inc()
		}
		return err
	}
	return nil
}

// repairBrackets retries the protective orders of the symbol's unprotected trades.
func (e *StrategyEngine) repairBrackets(ctx context.Context, symbol string) {
	pending := e.unprotected[symbol]
	if len(pending) == 0 {
		return
	}
	var still []*domain.Trade
	for _, t := range pending {
		if err := e.executor.PlaceMissingBrackets(ctx, t); err != nil {
			e.logger.Error(ctx, err, "repairBrackets: trade still unprotected", map[string]interface{}{"symbol": symbol, "tradeID": t.ID})
			still = append(still, t)
		}
	}
	if len(still) == 0 {
		delete(e.unprotected, symbol)
		return
	}
	e.unprotected[symbol] = still
}

// recordPending retries the ledger write of trades that are live on the exchange
// but missing from the ledger. Until stored they count toward the open trade cap,
// since the monitor cannot report them.
func (e *StrategyEngine) recordPending(ctx context.Context, openCounts map[string]int) {
	if len(e.unrecorded) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PhaseTimeout)
	defer cancel()

	for symbol, pending := range e.unrecorded {
		var still []*domain.Trade
		for _, t := range pending {
			openCounts[symbol]++
			if _, err := e.ledger.CreateTrade(ctx, t); err != nil {
				e.logger.Error(ctx, err, "recordPending: trade still missing from ledger", map[string]interface{}{"symbol": symbol})
				still = append(still, t)
			}
		}
		if len(still) == 0 {
			delete(e.unrecorded, symbol)
		} else {
			e.unrecorded[symbol] = still
		}
	}
}

// pruneUnprotected forgets trades the monitor no longer reports as open.
// Trades that never reached the ledger are kept.
func (e *StrategyEngine) pruneUnprotected(open []*domain.Trade) {
	openIDs := make(map[int64]bool, len(open))
	for _, t := range open {
		openIDs[t.ID] = true
	}
	for symbol, pending := range e.unprotected {
		var keep []*domain.Trade
		for _, t := range pending {
			if t.ID == 0 || openIDs[t.ID] {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(e.unprotected, symbol)
		} else {
			e.unprotected[symbol] = keep
		}
	}
}

func (e *StrategyEngine) recordRetrain(ctx context.Context, symbol string, attempted bool, err error) {
	switch {
	case err != nil:
		e.metrics.Retrains.WithLabelValues(symbol, metrics.ResultError).Inc()
		e.logger.Error(ctx, err, "Retrain failed, keeping previous model", map[string]interface{}{"symbol": symbol})
	case attempted:
		e.metrics.Retrains.WithLabelValues(symbol, metrics.ResultOK).Inc()
	}
}

// ModelState returns the model state of a configured symbol.
func (e *StrategyEngine) ModelState(symbol string) *ports.ModelState {
	return e.models[symbol]
}

// staticWindow serves an already computed window to the retrainer.
type staticWindow struct {
	window *features.Window
}

func (s staticWindow) Window(ctx context.Context, symbol string) (*features.Window, error) {
	return s.window, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

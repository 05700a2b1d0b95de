package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"github.com/prometheus/client_golang/prometheus"

	"cryptoScalper/config"
	"cryptoScalper/internal/adapters/binanceclient"
	"cryptoScalper/internal/adapters/forest"
	"cryptoScalper/internal/adapters/journal"
	"cryptoScalper/internal/adapters/logger"
	"cryptoScalper/internal/adapters/sqlite"
	"cryptoScalper/internal/app"
	"cryptoScalper/internal/execution"
	"cryptoScalper/internal/features"
	"cryptoScalper/internal/metrics"
	"cryptoScalper/internal/monitor"
	"cryptoScalper/internal/retrain"
	"cryptoScalper/internal/risk"
	"cryptoScalper/internal/signal"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	strategy := cfg.Strategy

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(logger.Config{Level: cfg.LogLevel, JSONFile: cfg.LogFile})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Metrics
	registry := prometheus.NewRegistry()
	engineMetrics, err := metrics.New(registry)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to register metrics")
		log.Fatalf("FATAL: Failed to register metrics: %v", err)
	}
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, registry, appLogger); err != nil {
				appLogger.Error(ctx, err, "Metrics endpoint stopped")
			}
		}()
	}

	// 4. Initialize Ledger (Database Adapter) and Audit Journal
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	tradeJournal, err := journal.NewCSVJournal(cfg.JournalPath, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade journal")
		log.Fatalf("FATAL: Failed to initialize trade journal: %v", err)
	}
	appLogger.Info(ctx, "Ledger and journal initialized", map[string]interface{}{"db": cfg.DBPath, "journal": cfg.JournalPath})

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Initialize Feature Pipeline
	feats, err := features.New(strategy.Features, cfg.OrderBookDepth)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to build feature set")
		log.Fatalf("FATAL: Failed to build feature set: %v", err)
	}
	builder, err := features.NewBuilder(binanceClient, feats, features.BuilderConfig{
		Timeframe:   strategy.Timeframe,
		CandleLimit: cfg.CandleLimit,
		BookDepth:   cfg.OrderBookDepth,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize feature builder")
		log.Fatalf("FATAL: Failed to initialize feature builder: %v", err)
	}

	// 7. Initialize Strategy Components
	executor, err := execution.NewExecutor(execution.Config{
		ProfitTargetPct: strategy.ProfitTargetPct,
		StopLossPct:     strategy.StopLossPct,
		Leverage:        strategy.Leverage,
	}, binanceClient, repo, tradeJournal, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize order executor")
		log.Fatalf("FATAL: Failed to initialize order executor: %v", err)
	}
	tradeMonitor, err := monitor.NewMonitor(monitor.Config{
		ProfitTargetPct: strategy.ProfitTargetPct,
		StopLossPct:     strategy.StopLossPct,
		Concurrency:     len(strategy.Symbols),
	}, repo, binanceClient, tradeJournal, executor, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade monitor")
		log.Fatalf("FATAL: Failed to initialize trade monitor: %v", err)
	}
	retrainer, err := retrain.NewScheduler(retrain.Config{
		Interval:        strategy.RetrainInterval,
		ProfitTargetPct: strategy.ProfitTargetPct,
	}, forest.Factory(cfg.ForestTrees), appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize retrain scheduler")
		log.Fatalf("FATAL: Failed to initialize retrain scheduler: %v", err)
	}

	// 8. Initialize Strategy Engine
	engine, err := app.NewStrategyEngine(cfg, app.Dependencies{
		Logger:    appLogger,
		Exchange:  binanceClient,
		Ledger:    repo,
		Features:  builder,
		Evaluator: signal.NewEvaluator(strategy.MinModelConfidence),
		Executor:  executor,
		Monitor:   tradeMonitor,
		Retrainer: retrainer,
		Limiter:   risk.NewDailyLimiter(strategy.MaxDailyTrades),
		Metrics:   engineMetrics,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize strategy engine")
		log.Fatalf("FATAL: Failed to initialize strategy engine: %v", err)
	}
	appLogger.Info(ctx, "Strategy engine initialized")

	// 9. Start the Engine
	if err := engine.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Strategy engine exited with error")
		log.Fatalf("FATAL: Strategy engine exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}

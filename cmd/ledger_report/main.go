package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"cryptoScalper/internal/adapters/logger"
	"cryptoScalper/internal/adapters/sqlite"
	"cryptoScalper/internal/analytics"
)

func main() {
	dbPath := flag.String("db", "./data/trading_bot.db", "path of the trade ledger")
	limit := flag.Int("limit", 0, "only the most recent N closed trades (0 = all)")
	flag.Parse()

	ctx := context.Background()
	appLogger, err := logger.NewZapLogger(logger.Config{Level: logger.LevelWarn})
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("Error opening ledger %s: %v", *dbPath, err)
	}
	defer repo.Close()

	trades, err := repo.ListClosedTrades(ctx, *limit)
	if err != nil {
		log.Fatalf("Error reading closed trades: %v", err)
	}
	if len(trades) == 0 {
		log.Println("No closed trades in the ledger.")
		return
	}

	m := analytics.AnalyzePerformance(trades)

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "## Ledger Performance")
	fmt.Fprintf(w, "Trades\t%d\n", m.TotalTrades)
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Average profit\t%.4f%%\n", m.AverageProfit)
	fmt.Fprintf(w, "Cumulative profit\t%.4f%%\n", m.CumulativeProfit)
	fmt.Fprintf(w, "Average win / loss\t%.4f%% / %.4f%%\n", m.AverageWin, m.AverageLoss)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", m.ProfitFactor)
	fmt.Fprintf(w, "Max drawdown\t%.4f pp\n", m.MaxDrawdown)
	fmt.Fprintf(w, "Max consecutive losses\t%d\n", m.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Average holding time\t%s\n", m.AverageTradeDuration)
	fmt.Fprintf(w, "Sharpe (per trade)\t%.3f\n", m.SharpeRatio)
	w.Flush()

	fmt.Println("\n## By Symbol")
	symbols := make([]string, 0, len(m.BySymbol))
	for s := range m.BySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Symbol\tTrades\tWinRate\tProfit%\t")
	for _, s := range symbols {
		sum := m.BySymbol[s]
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.4f\t\n", s, sum.Trades, sum.WinRate*100, sum.CumulativeProfit)
	}
	w.Flush()

	fmt.Println("\n## Monthly")
	for _, mr := range m.GetMonthlyReturns() {
		fmt.Printf("%s\t%.4f%%\n", mr.Month.Format("2006-01"), mr.Return)
	}
}

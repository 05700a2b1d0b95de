// Package analytics summarizes the performance of closed trades.
package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"cryptoScalper/internal/domain"
)

// PerformanceMetrics holds performance metrics over closed trades.
// Profit figures are percentages of entry price, summed across trades.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          float64
	CumulativeProfit float64
	AverageProfit    float64
	AverageWin       float64
	AverageLoss      float64
	ProfitFactor     float64
	MaxDrawdown      float64 // Largest drop of the cumulative profit curve, in percentage points
	SharpeRatio      float64 // Mean over standard deviation of per-trade profit

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	Expectancy           float64
	MonthlyReturns       map[string]float64
	BySymbol             map[string]SymbolSummary
	EquityCurve          []EquityPoint
}

// SymbolSummary is the per-symbol slice of the metrics.
type SymbolSummary struct {
	Trades           int
	WinRate          float64
	CumulativeProfit float64
}

// EquityPoint represents a point on the cumulative profit curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates performance metrics from trades.
// Trades that are not closed are ignored.
func AnalyzePerformance(trades []*domain.Trade) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		MonthlyReturns: make(map[string]float64),
		BySymbol:       make(map[string]SymbolSummary),
		EquityCurve:    make([]EquityPoint, 0),
	}

	closed := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == domain.StatusClosed && t.ProfitPct != nil && t.ExitTime != nil {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return metrics
	}

	// Sort trades by exit time
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(*closed[j].ExitTime)
	})

	var cumulative, peak float64
	var grossWin, grossLoss float64
	var consecutiveWins, consecutiveLosses int
	var totalDuration time.Duration
	profits := make([]float64, 0, len(closed))
	symbolWins := make(map[string]int)

	for _, trade := range closed {
		profit := *trade.ProfitPct
		profits = append(profits, profit)
		metrics.TotalTrades++

		sym := metrics.BySymbol[trade.Symbol]
		sym.Trades++
		sym.CumulativeProfit += profit

		if profit > 0 {
			metrics.WinningTrades++
			symbolWins[trade.Symbol]++
			grossWin += profit
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			metrics.LosingTrades++
			grossLoss += -profit
			consecutiveLosses++
			consecutiveWins = 0
		}
		metrics.BySymbol[trade.Symbol] = sym

		if consecutiveWins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = consecutiveLosses
		}

		cumulative += profit
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		metrics.MaxDrawdown = math.Max(metrics.MaxDrawdown, drawdown)
		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     *trade.ExitTime,
			Value:    cumulative,
			Drawdown: drawdown,
		})

		metrics.MonthlyReturns[trade.ExitTime.UTC().Format("2006-01")] += profit
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
	}

	n := float64(metrics.TotalTrades)
	metrics.CumulativeProfit = cumulative
	metrics.AverageProfit = cumulative / n
	metrics.WinRate = float64(metrics.WinningTrades) / n
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossWin / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = -grossLoss / float64(metrics.LosingTrades)
	}
	if grossLoss > 0 {
		metrics.ProfitFactor = grossWin / grossLoss
	}
	metrics.Expectancy = metrics.WinRate*metrics.AverageWin + (1-metrics.WinRate)*metrics.AverageLoss
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)

	if len(profits) > 1 {
		mean, std := stat.MeanStdDev(profits, nil)
		if std > 0 {
			metrics.SharpeRatio = mean / std
		}
	}

	for symbol, sym := range metrics.BySymbol {
		sym.WinRate = float64(symbolWins[symbol]) / float64(sym.Trades)
		metrics.BySymbol[symbol] = sym
	}

	return metrics
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

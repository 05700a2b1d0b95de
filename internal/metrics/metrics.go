// Package metrics exposes engine counters to prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoScalper/internal/ports"
)

const namespace = "scalper"

// Cycle results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Cycles          *prometheus.CounterVec
	TradesOpened    *prometheus.CounterVec
	TradesClosed    *prometheus.CounterVec
	BracketFailures *prometheus.CounterVec
	Retrains        *prometheus.CounterVec
	SymbolErrors    *prometheus.CounterVec
	Probability     *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Engine cycles by result.",
		}, []string{"result"}),
		TradesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_opened_total",
			Help:      "Positions opened.",
		}, []string{"symbol"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Trades closed by the monitor.",
		}, []string{"symbol", "reason"}),
		BracketFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_failures_total",
			Help:      "Entries left with incomplete protective orders.",
		}, []string{"symbol"}),
		Retrains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrains_total",
			Help:      "Model retrains by result.",
		}, []string{"symbol", "result"}),
		SymbolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbol_errors_total",
			Help:      "Failed per-symbol execution phases.",
		}, []string{"symbol"}),
		Probability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_probability",
			Help:      "Last model probability per symbol.",
		}, []string{"symbol"}),
	}
	for _, c := range []prometheus.Collector{m.Cycles, m.TradesOpened, m.TradesClosed, m.BracketFailures, m.Retrains, m.SymbolErrors, m.Probability} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Serve exposes gatherer on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

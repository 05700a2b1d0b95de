// Package retrain refreshes per-symbol models on a fixed interval.
package retrain

import (
	"context"
	"fmt"
	"time"

	"cryptoScalper/internal/features"
	"cryptoScalper/internal/ports"
)

// LookaheadBars is how far ahead a training label looks.
// The trailing LookaheadBars rows of a window have no label and are never trained on.
const LookaheadBars = 5

// minTrainingRows is the smallest labelled dataset worth fitting.
const minTrainingRows = 2

// WindowProvider supplies the most recent feature window for a symbol.
type WindowProvider interface {
	Window(ctx context.Context, symbol string) (*features.Window, error)
}

// Config holds the retrain interval and the label threshold.
type Config struct {
	Interval        time.Duration
	ProfitTargetPct float64
}

// Scheduler decides when a model is stale and retrains it.
type Scheduler struct {
	cfg      Config
	newModel ports.ModelFactory
	logger   ports.Logger
}

// NewScheduler creates a retrain scheduler.
func NewScheduler(cfg Config, newModel ports.ModelFactory, logger ports.Logger) (*Scheduler, error) {
	if newModel == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for retrain Scheduler")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("retrain interval must be positive: %w", ports.ErrConfigurationError)
	}
	return &Scheduler{cfg: cfg, newModel: newModel, logger: logger}, nil
}

// Due reports whether the state is older than the retrain interval.
// A state that was never trained is always due.
func (s *Scheduler) Due(state *ports.ModelState, now time.Time) bool {
	if !state.Trained() {
		return true
	}
	return now.Sub(state.LastTrained) > s.cfg.Interval
}

// MaybeRetrain retrains the state's model when it is due.
// It reports whether a new model was installed.
func (s *Scheduler) MaybeRetrain(ctx context.Context, state *ports.ModelState, provider WindowProvider, now time.Time) (bool, error) {
	if !s.Due(state, now) {
		return false, nil
	}
	if err := s.Retrain(ctx, state, provider, now); err != nil {
		return false, err
	}
	return true, nil
}

// Retrain fits a fresh model on the latest window and swaps it into state.
// On failure the previous model and LastTrained are left untouched.
func (s *Scheduler) Retrain(ctx context.Context, state *ports.ModelState, provider WindowProvider, now time.Time) error {
	op := "Retrain"
	window, err := provider.Window(ctx, state.Symbol)
	if err != nil {
		return fmt.Errorf("%s %s: training window: %w", op, state.Symbol, err)
	}
	x, y, err := BuildDataset(window.Rows, window.Closes, s.cfg.ProfitTargetPct)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, state.Symbol, ports.ErrModelFailure, err)
	}

	model := s.newModel()
	if err := model.Train(x, y); err != nil {
		return fmt.Errorf("%s %s: %w", op, state.Symbol, err)
	}

	state.Model = model
	state.LastTrained = now
	s.logger.Info(ctx, op+": model retrained", map[string]interface{}{
		"symbol":    state.Symbol,
		"samples":   len(x),
		"positives": countPositives(y),
	})
	return nil
}

// BuildDataset labels each row with whether the close LookaheadBars later beats
// the close at that row by more than profitTargetPct. Rows without a full
// lookahead are dropped from both features and labels.
func BuildDataset(rows [][]float64, closes []float64, profitTargetPct float64) ([][]float64, []int, error) {
	if len(rows) != len(closes) {
		return nil, nil, fmt.Errorf("%d feature rows for %d closes: %w", len(rows), len(closes), ports.ErrInvalidInput)
	}
	n := len(rows) - LookaheadBars
	if n < minTrainingRows {
		return nil, nil, fmt.Errorf("%d rows leave %d labelled samples: %w", len(rows), n, ports.ErrInsufficientData)
	}

	threshold := 1 + profitTargetPct/100
	x := make([][]float64, n)
	y := make([]int, n)
	for t := 0; t < n; t++ {
		x[t] = rows[t]
		if closes[t+LookaheadBars] > closes[t]*threshold {
			y[t] = 1
		}
	}
	return x, y, nil
}

func countPositives(labels []int) int {
	n := 0
	for _, l := range labels {
		n += l
	}
	return n
}

// Package signal turns model output into trade decisions.
package signal

import (
	"errors"
	"fmt"
	"math"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

// Evaluator emits a LONG signal when the model's probability reaches the
// configured confidence. Short entries are not proposed.
type Evaluator struct {
	minConfidence float64
}

// NewEvaluator creates an evaluator with an inclusive confidence threshold.
func NewEvaluator(minConfidence float64) *Evaluator {
	return &Evaluator{minConfidence: minConfidence}
}

// Evaluate returns a signal, or nil when the probability is below the threshold.
func (e *Evaluator) Evaluate(symbol string, features []float64, state *ports.ModelState, price float64) (*domain.Signal, error) {
	if !state.Trained() {
		return nil, fmt.Errorf("evaluate %s: model not trained: %w", symbol, ports.ErrModelFailure)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("evaluate %s: empty feature vector: %w", symbol, ports.ErrInvalidInput)
	}

	p, err := state.Model.PredictProbability(features)
	if err != nil {
		if errors.Is(err, ports.ErrModelFailure) {
			return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
		}
		return nil, fmt.Errorf("evaluate %s: %w: %w", symbol, ports.ErrModelFailure, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("evaluate %s: probability %v out of range: %w", symbol, p, ports.ErrModelFailure)
	}

	if p < e.minConfidence {
		return nil, nil
	}
	return &domain.Signal{
		Symbol:      symbol,
		Probability: p,
		Price:       price,
		Side:        domain.Long,
	}, nil
}

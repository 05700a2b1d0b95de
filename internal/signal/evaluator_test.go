package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

type fixedModel struct {
	p   float64
	err error
}

func (m *fixedModel) Train([][]float64, []int) error { return nil }
func (m *fixedModel) PredictProbability([]float64) (float64, error) {
	return m.p, m.err
}

func trainedState(m ports.Model) *ports.ModelState {
	return &ports.ModelState{Symbol: "BTCUSDT", Model: m, LastTrained: time.Now()}
}

func TestEvaluator_Threshold(t *testing.T) {
	tests := []struct {
		name       string
		p          float64
		wantSignal bool
	}{
		{name: "below threshold", p: 0.7499, wantSignal: false},
		{name: "at threshold", p: 0.75, wantSignal: true},
		{name: "above threshold", p: 0.9, wantSignal: true},
		{name: "zero", p: 0, wantSignal: false},
	}
	e := NewEvaluator(0.75)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := e.Evaluate("BTCUSDT", []float64{1, 2}, trainedState(&fixedModel{p: tt.p}), 50000)
			require.NoError(t, err)
			if !tt.wantSignal {
				assert.Nil(t, sig)
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, domain.Long, sig.Side)
			assert.Equal(t, tt.p, sig.Probability)
			assert.Equal(t, 50000.0, sig.Price)
			assert.Equal(t, "BTCUSDT", sig.Symbol)
		})
	}
}

func TestEvaluator_ModelFailures(t *testing.T) {
	e := NewEvaluator(0.5)

	_, err := e.Evaluate("BTCUSDT", []float64{1}, &ports.ModelState{Symbol: "BTCUSDT", Model: &fixedModel{p: 1}}, 1)
	assert.ErrorIs(t, err, ports.ErrModelFailure, "untrained model")

	_, err = e.Evaluate("BTCUSDT", []float64{1}, trainedState(&fixedModel{err: errors.New("boom")}), 1)
	assert.ErrorIs(t, err, ports.ErrModelFailure)

	_, err = e.Evaluate("BTCUSDT", []float64{1}, trainedState(&fixedModel{p: 1.5}), 1)
	assert.ErrorIs(t, err, ports.ErrModelFailure)

	_, err = e.Evaluate("BTCUSDT", nil, trainedState(&fixedModel{p: 1}), 1)
	assert.ErrorIs(t, err, ports.ErrInvalidInput)
}

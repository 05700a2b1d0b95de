package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Cycles.WithLabelValues(ResultOK).Inc()
	m.Cycles.WithLabelValues(ResultOK).Inc()
	m.TradesClosed.WithLabelValues("BTCUSDT", "TP").Inc()
	m.Probability.WithLabelValues("BTCUSDT").Set(0.8)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesClosed.WithLabelValues("BTCUSDT", "TP")))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.Probability.WithLabelValues("BTCUSDT")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "scalper_cycles_total")
	assert.Contains(t, names, "scalper_signal_probability")
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EventsReceived.WithLabelValues("join").Inc()
	m.PayloadsDropped.Inc()
	m.Broadcasts.WithLabelValues("party").Add(3)
	m.ConnectedPlayers.Set(7)
	m.ActiveParties.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PayloadsDropped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("party")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ConnectedPlayers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveParties))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEngineCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngine(reg)

	m.Reservation("preparer", true)
	m.Reservation("preparer", false)
	m.Reservation("preparer", true)
	m.NegativeStock("ingredients")
	m.Transition("DELIVERED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reservations.WithLabelValues("preparer", "reserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues("preparer", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.negativeStock.WithLabelValues("ingredients")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("DELIVERED")))
}

func TestEngineWithoutRegistererIsNoop(t *testing.T) {
	var nilEngine *Engine
	assert.NotPanics(t, func() {
		nilEngine.Prepared()
		nilEngine.Reservation("courier", true)
		NewEngine(nil).Delivered()
		NewEngine(nil).NegativeStock("")
	})
}

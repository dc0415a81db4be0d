package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine counts what the workers and the order book do. A nil *Engine, or one
// built without a registerer, records nothing.
type Engine struct {
	reservations  *prometheus.CounterVec
	preparations  prometheus.Counter
	collections   prometheus.Counter
	deliveries    prometheus.Counter
	transitions   *prometheus.CounterVec
	negativeStock *prometheus.CounterVec
}

// NewEngine registers the engine metrics on reg.
func NewEngine(reg prometheus.Registerer) *Engine {
	if reg == nil {
		return &Engine{}
	}
	e := &Engine{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sushi_reservations_total",
			Help: "Reservation attempts by worker kind and result.",
		}, []string{"kind", "result"}),
		preparations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sushi_preparations_total",
			Help: "Dishes committed to stock by preparers.",
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sushi_collections_total",
			Help: "Ingredient restocks completed by couriers.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sushi_deliveries_total",
			Help: "Orders delivered by couriers.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sushi_order_transitions_total",
			Help: "Persisted order status transitions by target status.",
		}, []string{"status"}),
		negativeStock: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sushi_negative_stock_total",
			Help: "Ledger decreases that left stock below zero.",
		}, []string{"ledger"}),
	}
	reg.MustRegister(e.reservations, e.preparations, e.collections, e.deliveries, e.transitions, e.negativeStock)
	return e
}

func (e *Engine) Reservation(kind string, reserved bool) {
	if e == nil || e.reservations == nil {
		return
	}
	result := "skipped"
	if reserved {
		result = "reserved"
	}
	e.reservations.WithLabelValues(normalizeLabel(kind), result).Inc()
}

func (e *Engine) Prepared() {
	if e == nil || e.preparations == nil {
		return
	}
	e.preparations.Inc()
}

func (e *Engine) Collected() {
	if e == nil || e.collections == nil {
		return
	}
	e.collections.Inc()
}

func (e *Engine) Delivered() {
	if e == nil || e.deliveries == nil {
		return
	}
	e.deliveries.Inc()
}

func (e *Engine) Transition(status string) {
	if e == nil || e.transitions == nil {
		return
	}
	e.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (e *Engine) NegativeStock(ledger string) {
	if e == nil || e.negativeStock == nil {
		return
	}
	e.negativeStock.WithLabelValues(normalizeLabel(ledger)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

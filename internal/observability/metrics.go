package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the coordinator's Prometheus collectors.
type Metrics struct {
	// EventsReceived counts inbound events by type, including ones that
	// resolve to silent no-ops.
	EventsReceived *prometheus.CounterVec
	// PayloadsDropped counts inbound messages discarded at the boundary
	// (malformed envelope, unknown type, bad payload).
	PayloadsDropped prometheus.Counter
	// Broadcasts counts outbound deliveries by mode: "unicast", "party",
	// "global".
	Broadcasts *prometheus.CounterVec
	// ConnectedPlayers is the current size of the presence registry.
	ConnectedPlayers prometheus.Gauge
	// ActiveParties is the current number of live parties.
	ActiveParties prometheus.Gauge
}

// NewMetrics creates and registers the coordinator collectors on the given
// registerer.
//
// Precondition: reg must be non-nil; collectors must not already be
// registered on it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmdmmo",
			Name:      "events_received_total",
			Help:      "Inbound realtime events by type.",
		}, []string{"type"}),
		PayloadsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cmdmmo",
			Name:      "payloads_dropped_total",
			Help:      "Inbound messages rejected at the protocol boundary.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmdmmo",
			Name:      "broadcasts_total",
			Help:      "Outbound event deliveries by routing mode.",
		}, []string{"mode"}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cmdmmo",
			Name:      "connected_players",
			Help:      "Players currently registered as online.",
		}),
		ActiveParties: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cmdmmo",
			Name:      "active_parties",
			Help:      "Parties currently alive.",
		}),
	}

	reg.MustRegister(
		m.EventsReceived,
		m.PayloadsDropped,
		m.Broadcasts,
		m.ConnectedPlayers,
		m.ActiveParties,
	)
	return m
}

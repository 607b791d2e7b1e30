package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the server.
type Metrics struct {
	// MessagesPersisted counts messages durably written by the API.
	MessagesPersisted prometheus.Counter

	// EventsRelayed counts realtime events routed by the hub, by type.
	EventsRelayed *prometheus.CounterVec

	// EventsDropped counts frames the hub refused to route, by reason.
	EventsDropped *prometheus.CounterVec

	// SessionsOpen tracks currently connected realtime sessions.
	SessionsOpen prometheus.Gauge
}

// New registers the instruments with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pigeon_messages_persisted_total",
			Help: "Messages durably written by the create endpoint.",
		}),
		EventsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pigeon_events_relayed_total",
			Help: "Realtime events routed by the hub.",
		}, []string{"type"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pigeon_events_dropped_total",
			Help: "Realtime frames the hub refused to route.",
		}, []string{"reason"}),
		SessionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pigeon_sessions_open",
			Help: "Currently connected realtime sessions.",
		}),
	}
}

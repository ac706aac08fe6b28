/*
Package metrics defines the Prometheus collectors exported by the relay.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatify_relay"

// Notify outcomes.
const (
	OutcomeDelivered    = "delivered"
	OutcomeOffline      = "offline"
	OutcomeUnauthorized = "unauthorized"
	OutcomeBadRequest   = "bad_request"
)

// Relay groups the relay collectors.
type Relay struct {
	registry *prometheus.Registry

	// OnlineUsers is the size of the presence table.
	OnlineUsers prometheus.Gauge

	// LiveConnections counts open sockets, including superseded ones.
	LiveConnections prometheus.Gauge

	// Handshakes counts handshake results by reason ("ok" or a rejection code name).
	Handshakes *prometheus.CounterVec

	// Notifications counts notify calls by outcome.
	Notifications *prometheus.CounterVec

	// DroppedFrames counts frames discarded because a connection queue was full or closing.
	DroppedFrames prometheus.Counter
}

// NewRelay creates a private registry with the relay collectors plus the Go runtime
// and process collectors.
func NewRelay() *Relay {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Relay{
		registry: reg,
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Number of users with a registered connection.",
		}),
		LiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Number of open WebSocket connections.",
		}),
		Handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Connection handshakes by result.",
		}, []string{"result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Internal notify calls by outcome.",
		}, []string{"outcome"}),
		DroppedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Frames dropped because the connection could not accept them.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Relay) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

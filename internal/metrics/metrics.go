// Package metrics defines the Prometheus instruments exported by Home
// Panel Core. Instruments are package-level and registered via promauto,
// so importing packages can increment them without plumbing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived counts events successfully parsed from the upstream
	// gateway stream.
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "stream",
		Name:      "events_received_total",
		Help:      "Events received from the upstream MQTT gateway.",
	})

	// EventsDropped counts events dropped because a subscriber inbox was
	// full. Drop-newest is deliberate; this counter makes it visible.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "stream",
		Name:      "events_dropped_total",
		Help:      "Events dropped due to full subscriber inboxes.",
	})

	// Reconnects counts upstream stream reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "stream",
		Name:      "reconnects_total",
		Help:      "Upstream gateway reconnect attempts.",
	})

	// Subscribers tracks the current number of stream subscribers.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "homepanel",
		Subsystem: "stream",
		Name:      "subscribers",
		Help:      "Currently registered stream subscribers.",
	})

	// SignalSessions tracks active camera signaling proxy sessions.
	SignalSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "homepanel",
		Subsystem: "proxy",
		Name:      "signal_sessions",
		Help:      "Active camera signaling proxy sessions.",
	})

	// HTTPRequests counts handled HTTP requests by method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests.",
	}, []string{"method", "status"})

	// MetricsSamples counts samples written to the metrics store by table.
	MetricsSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "collector",
		Name:      "samples_total",
		Help:      "Samples written to the metrics store.",
	}, []string{"table"})

	// CollectorErrors counts failed collection runs by collector name.
	CollectorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "homepanel",
		Subsystem: "collector",
		Name:      "errors_total",
		Help:      "Failed collection runs.",
	}, []string{"collector"})
)

// Package metrics provides Prometheus metrics for udpkit sockets and probes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "udpkit"
)

// Metrics contains all Prometheus metrics for socket activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Socket lifecycle
	SocketsOpen   prometheus.Gauge
	SocketsOpened prometheus.Counter
	SocketErrors  *prometheus.CounterVec

	// Datagram traffic
	DatagramsSent     prometheus.Counter
	DatagramsReceived prometheus.Counter
	BytesSent         prometheus.Counter
	BytesReceived     prometheus.Counter

	// Readiness polling
	Polls *prometheus.CounterVec

	// Probing
	ProbeRTT    prometheus.Histogram
	ProbesSent  prometheus.Counter
	ProbesLost  prometheus.Counter
	EchoReplies prometheus.Counter
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the metrics instance registered with the default registerer.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance registered with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SocketsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sockets_open",
			Help:      "Number of currently open sockets",
		}),
		SocketsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sockets_opened_total",
			Help:      "Total number of sockets opened",
		}),
		SocketErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_errors_total",
			Help:      "Total platform errors by operation",
		}, []string{"op"}),

		DatagramsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_sent_total",
			Help:      "Total datagrams accepted by the OS for sending",
		}),
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Total datagrams received",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total payload bytes sent",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total payload bytes received",
		}),

		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Readability polls by result",
		}, []string{"result"}),

		ProbeRTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_rtt_seconds",
			Help:      "Histogram of probe round-trip time in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ProbesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_sent_total",
			Help:      "Total probes sent",
		}),
		ProbesLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_lost_total",
			Help:      "Total probes that timed out",
		}),
		EchoReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "echo_replies_total",
			Help:      "Total datagrams echoed back by the responder",
		}),
	}
}

// RecordOpen records a successfully opened socket.
func (m *Metrics) RecordOpen() {
	if m == nil {
		return
	}
	m.SocketsOpen.Inc()
	m.SocketsOpened.Inc()
}

// RecordClose records a closed socket.
func (m *Metrics) RecordClose() {
	if m == nil {
		return
	}
	m.SocketsOpen.Dec()
}

// RecordError records a platform error for the given operation.
func (m *Metrics) RecordError(op string) {
	if m == nil {
		return
	}
	m.SocketErrors.WithLabelValues(op).Inc()
}

// RecordSend records a datagram accepted for sending.
func (m *Metrics) RecordSend(bytes int) {
	if m == nil {
		return
	}
	m.DatagramsSent.Inc()
	m.BytesSent.Add(float64(bytes))
}

// RecordRecv records a received datagram.
func (m *Metrics) RecordRecv(bytes int) {
	if m == nil {
		return
	}
	m.DatagramsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordPoll records a poll outcome ("ready", "timeout", "error").
func (m *Metrics) RecordPoll(result string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(result).Inc()
}

// RecordProbeSent records a probe sent.
func (m *Metrics) RecordProbeSent() {
	if m == nil {
		return
	}
	m.ProbesSent.Inc()
}

// RecordProbeReply records a probe reply with its RTT.
func (m *Metrics) RecordProbeReply(rttSeconds float64) {
	if m == nil {
		return
	}
	m.ProbeRTT.Observe(rttSeconds)
}

// RecordProbeLost records a probe that timed out.
func (m *Metrics) RecordProbeLost() {
	if m == nil {
		return
	}
	m.ProbesLost.Inc()
}

// RecordEchoReply records a datagram echoed by the responder.
func (m *Metrics) RecordEchoReply() {
	if m == nil {
		return
	}
	m.EchoReplies.Inc()
}

package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/tradestream/internal/connection"
)

const namespace = "streamd"

var statuses = []connection.Status{
	connection.StatusDisconnected,
	connection.StatusConnecting,
	connection.StatusConnected,
	connection.StatusError,
}

// Collector records connection events as Prometheus metrics. It implements
// connection.Recorder.
type Collector struct {
	registry *prometheus.Registry

	status       *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	messages     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	lastLatency  *prometheus.GaugeVec
	reconnects   *prometheus.CounterVec
	retryDelay   *prometheus.GaugeVec
	authFailures *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry, including Go
// runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_status",
			Help:      "Current stream status (1 for the active status).",
		}, []string{"stream", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status transitions per stream.",
		}, []string{"stream", "status"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound frames per stream.",
		}, []string{"stream", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Provider timestamp to local receipt latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stream"}),
		lastLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latency_ms",
			Help:      "Latest latency estimate in milliseconds.",
		}, []string{"stream"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after abnormal closes.",
		}, []string{"stream"}),
		retryDelay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Delay of the most recently scheduled reconnect.",
		}, []string{"stream"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authentications and handshake timeouts.",
		}, []string{"stream"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.status,
		c.transitions,
		c.messages,
		c.latency,
		c.lastLatency,
		c.reconnects,
		c.retryDelay,
		c.authFailures,
	)
	return c
}

// RecordStatus implements connection.Recorder.
func (c *Collector) RecordStatus(ev connection.StatusEvent) {
	for _, s := range statuses {
		v := 0.0
		if s == ev.Status {
			v = 1
		}
		c.status.WithLabelValues(ev.StreamID, s.String()).Set(v)
	}
	c.transitions.WithLabelValues(ev.StreamID, ev.Status.String()).Inc()

	if ev.Status == connection.StatusDisconnected && ev.RetryIn > 0 {
		c.reconnects.WithLabelValues(ev.StreamID).Inc()
		c.retryDelay.WithLabelValues(ev.StreamID).Set(ev.RetryIn.Seconds())
	}
	if ev.Status == connection.StatusError && isAuthError(ev.Err) {
		c.authFailures.WithLabelValues(ev.StreamID).Inc()
	}
}

// RecordMessage implements connection.Recorder.
func (c *Collector) RecordMessage(msg connection.Message) {
	kind := "decoded"
	if msg.Raw {
		kind = "raw"
	}
	c.messages.WithLabelValues(msg.StreamID, kind).Inc()

	c.lastLatency.WithLabelValues(msg.StreamID).Set(float64(msg.LatencyMs))
	if msg.LatencyMs > 0 {
		c.latency.WithLabelValues(msg.StreamID).Observe(float64(msg.LatencyMs) / 1000)
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func isAuthError(err error) bool {
	return errors.Is(err, connection.ErrAuthFailed) || errors.Is(err, connection.ErrHandshakeTimeout)
}

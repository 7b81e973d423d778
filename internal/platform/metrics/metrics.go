package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Heartbeat paths recorded by IncHeartbeat.
const (
	PathSocket = "socket"
	PathHTTP   = "http"
)

// Metrics holds Prometheus counters and gauges for the streamchat backend.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	heartbeatsTotal   *prometheus.CounterVec
	chatMessagesTotal *prometheus.CounterVec
	streamsReaped     prometheus.Counter
	liveStreams       prometheus.Gauge
	socketConnections prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamchat_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamchat_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	heartbeatsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamchat_heartbeats_total",
		Help: "Stream heartbeats accepted, by delivery path",
	}, []string{"path"})
	chatMessagesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamchat_chat_messages_total",
		Help: "Chat messages broadcast, by kind",
	}, []string{"kind"})
	streamsReaped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamchat_streams_reaped_total",
		Help: "Live streams marked offline after missing heartbeats",
	})
	liveStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamchat_live_streams",
		Help: "Number of streams currently live",
	})
	socketConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamchat_socket_connections",
		Help: "Open real-time connections",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		heartbeatsTotal,
		chatMessagesTotal,
		streamsReaped,
		liveStreams,
		socketConnections,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		heartbeatsTotal:   heartbeatsTotal,
		chatMessagesTotal: chatMessagesTotal,
		streamsReaped:     streamsReaped,
		liveStreams:       liveStreams,
		socketConnections: socketConnections,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// IncHeartbeat counts one accepted heartbeat delivered over path.
func (m *Metrics) IncHeartbeat(path string) {
	if m == nil {
		return
	}
	m.heartbeatsTotal.WithLabelValues(path).Inc()
}

// IncChatMessage counts one broadcast chat message of the given kind.
func (m *Metrics) IncChatMessage(kind string) {
	if m == nil {
		return
	}
	m.chatMessagesTotal.WithLabelValues(kind).Inc()
}

// IncStreamsReaped counts streams taken offline by the reaper.
func (m *Metrics) IncStreamsReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.streamsReaped.Add(float64(n))
}

// SetLiveStreams sets the live streams gauge.
func (m *Metrics) SetLiveStreams(n int) {
	if m == nil {
		return
	}
	m.liveStreams.Set(float64(n))
}

// ConnOpened and ConnClosed track open real-time connections.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.socketConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.socketConnections.Dec()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

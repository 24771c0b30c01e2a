// Package metrics provides Prometheus instrumentation for the gateway:
// standard HTTP metrics plus the domain counters the ops dashboards watch —
// authorization decisions, connected terminals, and notification delivery.
//
// Wire it once in the server:
//
//	r.Use(metrics.Middleware())
//	r.HandleFunc("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks HTTP request latency by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sofra",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts all HTTP requests.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sofra",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// AuthzDecisions counts middleware authorization outcomes.
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sofra",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by outcome.",
		},
		[]string{"outcome"}, // "allowed" | "denied"
	)

	// WSClients gauges currently connected notification clients.
	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sofra",
		Subsystem: "notify",
		Name:      "ws_clients",
		Help:      "Number of connected WebSocket clients.",
	})

	// EventsPublished counts order events pushed into the hub by kind.
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sofra",
			Subsystem: "notify",
			Name:      "events_published_total",
			Help:      "Order events published to the notification hub.",
		},
		[]string{"kind"}, // "new" | "updated"
	)

	// EventsDropped counts malformed or undeliverable events.
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sofra",
			Subsystem: "notify",
			Name:      "events_dropped_total",
			Help:      "Notification events dropped before delivery.",
		},
		[]string{"reason"}, // "malformed" | "slow_client"
	)
)

// DefaultRegistry is the Prometheus registry used by Sofra.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		RequestDuration,
		RequestTotal,
		AuthzDecisions,
		WSClients,
		EventsPublished,
		EventsDropped,
	)
}

// MustRegister adds custom collectors to the Sofra registry.
func MustRegister(c ...prometheus.Collector) {
	DefaultRegistry.MustRegister(c...)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request duration and totals for every request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			status := strconv.Itoa(rr.status)
			RequestDuration.WithLabelValues(r.Method, r.URL.Path, status).
				Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		})
	}
}

// Handler exposes the metrics page; mount on GET /metrics.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}

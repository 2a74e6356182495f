package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qrtoken"

// Registry is a Recorder backed by its own prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	issued      prometheus.Counter
	validations *prometheus.CounterVec
	revocations *prometheus.CounterVec
	pruned      prometheus.Counter
	storeErrors *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRegistry creates a Registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "QR validations by result.",
		}, []string{"result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Token records revoked, by revocation mode.",
		}, []string{"mode"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_total",
			Help:      "Expired or revoked records deleted by retention.",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Token store failures by operation.",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.issued, r.validations, r.revocations, r.pruned, r.storeErrors,
		r.requests, r.requestDuration,
	)
	return r
}

// Registerer exposes the registry to components that own extra collectors,
// such as the badger store's size gauges.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the registry for tests and custom exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Registry) TokenIssued() {
	r.issued.Inc()
}

func (r *Registry) Validation(result string) {
	r.validations.WithLabelValues(result).Inc()
}

func (r *Registry) Revoked(mode string, n int) {
	if n > 0 {
		r.revocations.WithLabelValues(mode).Add(float64(n))
	}
}

func (r *Registry) Pruned(n int) {
	if n > 0 {
		r.pruned.Add(float64(n))
	}
}

func (r *Registry) StoreError(op string) {
	r.storeErrors.WithLabelValues(op).Inc()
}

func (r *Registry) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

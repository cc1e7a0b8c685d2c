package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records decision-core outcomes.
type Metrics interface {
	IncDecision(reason string, allowed bool)
	IncIntent(intent string)
	ObserveClassify(durationSeconds float64)
	ObserveEvaluate(durationSeconds float64)
}

// GatewayMetrics captures request metrics for the HTTP gateway.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncDecision(string, bool) {}
func (Noop) IncIntent(string)         {}
func (Noop) ObserveClassify(float64)  {}
func (Noop) ObserveEvaluate(float64)  {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	decisions *prometheus.CounterVec
	intents   *prometheus.CounterVec
	classify  prometheus.Histogram
	evaluate  prometheus.Histogram
	once      sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Policy decisions by reason code and outcome",
		}, []string{"reason", "allowed"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_intents_total",
			Help:      "Classifier outcomes by intent label",
		}, []string{"intent"}),
		classify: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Intent classification latency",
			Buckets:   prometheus.DefBuckets,
		}),
		evaluate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluate_duration_seconds",
			Help:      "Policy evaluation latency",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.decisions, p.intents, p.classify, p.evaluate)
	})
}

func (p *Prom) IncDecision(reason string, allowed bool) {
	p.decisions.WithLabelValues(reason, strconv.FormatBool(allowed)).Inc()
}

func (p *Prom) IncIntent(intent string) {
	p.intents.WithLabelValues(intent).Inc()
}

func (p *Prom) ObserveClassify(durationSeconds float64) {
	p.classify.Observe(durationSeconds)
}

func (p *Prom) ObserveEvaluate(durationSeconds float64) {
	p.evaluate.Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// --- Gateway metrics ---

type gatewayProm struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	once     sync.Once
}

// NewGatewayProm constructs a GatewayMetrics with counters/histograms.
func NewGatewayProm(namespace string) GatewayMetrics {
	g := &gatewayProm{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	g.once.Do(func() {
		prometheus.MustRegister(g.requests, g.latency)
	})
	return g
}

func (g *gatewayProm) ObserveRequest(method, route, status string, durationSeconds float64) {
	g.requests.WithLabelValues(method, route, status).Inc()
	g.latency.WithLabelValues(route).Observe(durationSeconds)
}

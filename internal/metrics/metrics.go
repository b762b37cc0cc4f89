package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLM request outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeOverloaded  = "overloaded"
	OutcomeError       = "error"
	OutcomeUnavailable = "transport_error"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// LLM gateway metrics
	LLMRequests *prometheus.CounterVec
	LLMDuration prometheus.Histogram
	LLMRetries  prometheus.Counter

	// Conversation cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LLMRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM provider attempts by outcome",
			},
			[]string{"outcome"},
		),
		LLMDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of a single LLM provider attempt in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
		),
		LLMRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_retries_total",
				Help:      "Total number of LLM attempts retried after an overload response",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of conversation cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of conversation cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.LLMRequests,
		c.LLMDuration,
		c.LLMRetries,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// Registry exposes the underlying registry (used by tests)
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveLLMAttempt records one provider attempt
func (c *Collector) ObserveLLMAttempt(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.LLMRequests.WithLabelValues(outcome).Inc()
	c.LLMDuration.Observe(elapsed.Seconds())
}

// IncLLMRetry counts a retry after an overload response
func (c *Collector) IncLLMRetry() {
	if c == nil {
		return
	}
	c.LLMRetries.Inc()
}

// IncCacheHit counts a conversation cache hit
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// IncCacheMiss counts a conversation cache miss
func (c *Collector) IncCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

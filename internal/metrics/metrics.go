// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auth-gateway/internal/domain"
)

// Login outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Collector holds the gateway's collectors
type Collector struct {
	registry *prometheus.Registry

	loginAttempts   *prometheus.CounterVec
	accountsCreated *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight *prometheus.GaugeVec
}

// NewCollector creates a Collector on its own registry, including the Go
// runtime and process collectors
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		accountsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_accounts_created_total",
			Help: "Accounts created by provider",
		}, []string{"provider"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "HTTP requests in flight",
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.accountsCreated,
		c.httpRequests,
		c.httpDuration,
		c.httpInflight,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// LoginAttempt counts one login attempt
func (c *Collector) LoginAttempt(provider domain.Provider, outcome string) {
	c.loginAttempts.WithLabelValues(string(provider), outcome).Inc()
}

// AccountCreated counts one new account
func (c *Collector) AccountCreated(provider domain.Provider) {
	c.accountsCreated.WithLabelValues(string(provider)).Inc()
}

// RegisterPool exposes connection stats of a pgx pool
func (c *Collector) RegisterPool(pool *pgxpool.Pool) error {
	return c.registry.Register(newPoolCollector(pool))
}

// Handler serves the registry for Prometheus scrapes
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WithMetrics instruments requests with counters, latency and in-flight gauges.
// Paths are labelled with the matched chi route pattern.
func (c *Collector) WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		c.httpInflight.WithLabelValues(method).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			c.httpInflight.WithLabelValues(method).Dec()

			path := routePattern(r)
			c.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// statusRecorder captures the status written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// poolCollector reports pgx pool gauges at scrape time
type poolCollector struct {
	pool         *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired_conns", "Connections currently acquired", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle_conns", "Idle connections", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total_conns", "Total connections", nil, nil),
	}
}

func (p *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.acquiredDesc
	ch <- p.idleDesc
	ch <- p.totalDesc
}

func (p *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := p.pool.Stat()
	ch <- prometheus.MustNewConstMetric(p.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(p.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(p.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}

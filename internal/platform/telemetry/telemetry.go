// Package telemetry exposes Prometheus metrics for the HTTP surface and the
// billing core: request counts and latency, payments recorded, refunds
// synthesized, and sequence lock conflicts.
package telemetry

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider owns the metrics registry and all instrument handles.
type Provider struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	paymentsRecorded   *prometheus.CounterVec
	refundsSynthesized *prometheus.CounterVec
	sequenceConflicts  *prometheus.CounterVec
}

func NewProvider() *Provider {
	reg := prometheus.NewRegistry()

	p := &Provider{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_payments_recorded_total",
			Help: "Payments appended to the billing ledger, by method.",
		}, []string{"method"}),
		refundsSynthesized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_refunds_synthesized_total",
			Help: "Refund entries synthesized by amount-change reconciliation.",
		}, []string{"reason"}),
		sequenceConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sequence_lock_conflicts_total",
			Help: "Sequence counter lock conflicts surfaced to callers, by entity.",
		}, []string{"entity"}),
	}

	reg.MustRegister(
		p.httpRequests,
		p.httpDuration,
		p.paymentsRecorded,
		p.refundsSynthesized,
		p.sequenceConflicts,
	)

	return p
}

// PaymentRecorded counts one ledger payment entry.
func (p *Provider) PaymentRecorded(method string) {
	p.paymentsRecorded.WithLabelValues(method).Inc()
}

// RefundSynthesized counts one synthesized refund entry.
func (p *Provider) RefundSynthesized(reason string) {
	p.refundsSynthesized.WithLabelValues(reason).Inc()
}

// SequenceConflict counts one retryable sequence lock conflict.
func (p *Provider) SequenceConflict(entity string) {
	p.sequenceConflicts.WithLabelValues(entity).Inc()
}

// Middleware records request count and latency for every route.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				route := c.Path()
				if route == "" {
					route = req.URL.Path
				}
				p.httpDuration.WithLabelValues(req.Method, route).Observe(v)
			}))

			err := next(c)
			timer.ObserveDuration()

			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			p.httpRequests.WithLabelValues(
				req.Method, route, strconv.Itoa(c.Response().Status),
			).Inc()

			return err
		}
	}
}

// Handler serves the /metrics endpoint in Prometheus exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

// Registry exposes the underlying registry for tests.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

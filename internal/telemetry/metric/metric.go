// Package metric exposes Prometheus metrics for the API server.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	IssuesTotal       *prometheus.CounterVec
	ClaimRetriesTotal prometheus.Counter
	ReportsFiled      prometheus.Counter
	ReportsResolved   *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// NewRegistry creates and registers all metrics on a fresh registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{
		reg: reg,
		IssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credittoken_issues_total",
			Help: "Token issuance attempts by outcome.",
		}, []string{"result"}),
		ClaimRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credittoken_claim_retries_total",
			Help: "Token claim re-selections after a lost row race.",
		}),
		ReportsFiled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credittoken_reports_filed_total",
			Help: "Token reports filed.",
		}),
		ReportsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credittoken_reports_resolved_total",
			Help: "Token reports resolved by decision.",
		}, []string{"decision"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credittoken_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	reg.MustRegister(
		r.IssuesTotal,
		r.ClaimRetriesTotal,
		r.ReportsFiled,
		r.ReportsResolved,
		r.RequestDuration,
	)
	return r
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// IssueResult implements app.IssueMetrics.
func (r *Registry) IssueResult(result string) {
	r.IssuesTotal.WithLabelValues(result).Inc()
}

// ClaimRetry implements app.IssueMetrics.
func (r *Registry) ClaimRetry() {
	r.ClaimRetriesTotal.Inc()
}

// ReportFiled implements app.ReportMetrics.
func (r *Registry) ReportFiled() {
	r.ReportsFiled.Inc()
}

// ReportResolved implements app.ReportMetrics.
func (r *Registry) ReportResolved(decision string) {
	r.ReportsResolved.WithLabelValues(decision).Inc()
}

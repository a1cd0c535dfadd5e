package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the prometheus collectors shared across judgecore's
// components.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	JudgeLeaseActive    prometheus.Gauge
	JudgeDispatchTotal  *prometheus.CounterVec
	AutosaveFlushTotal  *prometheus.CounterVec
}

// NewMetricsRegistry builds a fresh prometheus.Registry pre-populated with
// the Go/process collectors plus judgecore's own collectors.
func NewMetricsRegistry() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "judgecore",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		JudgeLeaseActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "judgecore",
			Name:      "judge_leases_active",
			Help:      "Number of currently leased judge worker slots.",
		}),
		JudgeDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "judgecore",
			Name:      "judge_dispatch_total",
			Help:      "Total code execution dispatches by outcome.",
		}, []string{"outcome"}),
		AutosaveFlushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "judgecore",
			Name:      "autosave_flush_total",
			Help:      "Total autosave debounce flushes by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.HTTPRequestDuration, m.JudgeLeaseActive, m.JudgeDispatchTotal, m.AutosaveFlushTotal)
	return m
}

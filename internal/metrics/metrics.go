package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇总采集与 API 的指标，所有方法对 nil 接收者安全
type Metrics struct {
	reg *prometheus.Registry

	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	entries      *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	running      *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.passes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nilhub_crawl_passes_total",
		Help: "Crawl passes by kind and result (completed, skipped).",
	}, []string{"kind", "result"})
	m.passDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nilhub_crawl_pass_duration_seconds",
		Help:    "Wall time of completed crawl passes.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"kind"})
	m.entries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nilhub_crawl_entries_total",
		Help: "Feed entries by outcome (inserted, duplicate, irrelevant, empty, store_error).",
	}, []string{"kind", "outcome"})
	m.sourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nilhub_crawl_source_errors_total",
		Help: "Sources skipped because fetching or parsing failed.",
	}, []string{"kind"})
	m.running = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nilhub_crawl_running",
		Help: "1 while a crawl pass of the kind is in flight.",
	}, []string{"kind"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nilhub_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nilhub_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.passes, m.passDuration, m.entries, m.sourceErrors, m.running,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) PassStarted(kind string) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(kind).Set(1)
}

func (m *Metrics) PassFinished(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(kind).Set(0)
	m.passes.WithLabelValues(kind, "completed").Inc()
	m.passDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) PassSkipped(kind string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(kind, "skipped").Inc()
}

func (m *Metrics) Entry(kind, outcome string) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SourceError(kind string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

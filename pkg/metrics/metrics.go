package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	httpReqCnt  *prometheus.CounterVec
	httpDur     *prometheus.HistogramVec
	httpInfl    *prometheus.GaugeVec
	workflowCnt *prometheus.CounterVec
	mailCnt     *prometheus.CounterVec
	readingCnt  *prometheus.CounterVec
	wsClients   prometheus.Gauge
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	workflowCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "workflow_total", Help: "Transactional workflow outcomes"}, []string{"workflow", "outcome"})
	mailCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "mail_total"}, []string{"kind", "outcome"})
	readingCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sensor_readings_total"}, []string{"metric"})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "realtime_clients"})
	r.MustRegister(workflowCnt, mailCnt, readingCnt, wsClients)

	return &Metrics{
		registry:    r,
		httpReqCnt:  httpReqCnt,
		httpDur:     httpDur,
		httpInfl:    httpInfl,
		workflowCnt: workflowCnt,
		mailCnt:     mailCnt,
		readingCnt:  readingCnt,
		wsClients:   wsClients,
	}
}

// Workflow records the outcome of a transactional workflow. Safe on a nil receiver.
func (m *Metrics) Workflow(name, outcome string) {
	if m == nil {
		return
	}
	m.workflowCnt.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) Mail(kind, outcome string) {
	if m == nil {
		return
	}
	m.mailCnt.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Reading(metric string) {
	if m == nil {
		return
	}
	m.readingCnt.WithLabelValues(metric).Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package connection

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records per-request metrics for a transport.
// A nil *Collector is valid and records nothing.
type Collector struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewCollector registers the request metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zadapt_requests_total",
			Help: "Remote requests by transport, operation and status code",
		}, []string{"transport", "op", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zadapt_request_duration_seconds",
			Help:    "Remote request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport", "op"}),
	}
	reg.MustRegister(c.requests, c.latency)
	return c
}

// Observe records one finished request. code 0 means the request never
// got a reply.
func (c *Collector) Observe(transport, op string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(transport, op, strconv.Itoa(code)).Inc()
	c.latency.WithLabelValues(transport, op).Observe(d.Seconds())
}

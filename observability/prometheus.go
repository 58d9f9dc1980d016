// Package observability exports histostore metrics to Prometheus.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/histostore"
)

const namespace = "histostore"

var _ histostore.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements histostore.MetricsCollector with Prometheus
// counters and latency histograms.
type PrometheusCollector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	records   *prometheus.CounterVec
	shards    prometheus.Counter
}

// NewPrometheusCollector creates a collector and registers it with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of template and shard operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total template and shard operations",
		}, []string{"op", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total toy records written or aggregated",
		}, []string{"op"}),
		shards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregated_shards_total",
			Help:      "Total shards read by successful aggregations",
		}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.records, c.shards} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler returns an http.Handler serving the metrics of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *PrometheusCollector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.ops.WithLabelValues(op, s).Inc()
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
}

// RecordEncode implements histostore.MetricsCollector.
func (c *PrometheusCollector) RecordEncode(d time.Duration, err error) {
	c.observe("encode", d, err)
}

// RecordDecode implements histostore.MetricsCollector.
func (c *PrometheusCollector) RecordDecode(d time.Duration, err error) {
	c.observe("decode", d, err)
}

// RecordShardWrite implements histostore.MetricsCollector.
func (c *PrometheusCollector) RecordShardWrite(_, records int, d time.Duration, err error) {
	c.observe("shard_write", d, err)
	if err == nil {
		c.records.WithLabelValues("shard_write").Add(float64(records))
	}
}

// RecordAggregate implements histostore.MetricsCollector.
func (c *PrometheusCollector) RecordAggregate(shards, records int, d time.Duration, err error) {
	c.observe("aggregate", d, err)
	if err == nil {
		c.shards.Add(float64(shards))
		c.records.WithLabelValues("aggregate").Add(float64(records))
	}
}

// Package metrics exposes mapper operations as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// Collector is a mapper.Observer that counts operations and records their latency.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ mapper.Observer = (*Collector)(nil)

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		// operations counts finished operations by outcome (success|error).
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablemapper_operations_total",
				Help: "Total number of mapper operations by table, operation and status",
			},
			[]string{"table", "op", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tablemapper_operation_duration_seconds",
				Help:    "Duration of mapper operations including parameter binding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table", "op"},
		),
	}
}

// Observe implements mapper.Observer.
func (c *Collector) Observe(_ context.Context, ev mapper.Event) {
	status := "success"
	if ev.Failed() {
		status = "error"
	}

	c.operations.WithLabelValues(ev.Table, string(ev.Op), status).Inc()
	c.duration.WithLabelValues(ev.Table, string(ev.Op)).Observe(ev.Duration.Seconds())
}

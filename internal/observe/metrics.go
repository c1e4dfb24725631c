// Package observe exposes prometheus metrics for the delivery pipeline.
package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics covers the delivery pipeline counters and gauges.
type Metrics struct {
	JobsEnqueued  prometheus.Counter
	JobsDelivered prometheus.Counter
	JobsEvicted   prometheus.Counter
	PublishErrors prometheus.Counter
	QueueDepth    prometheus.Gauge
	PrinterOnline prometheus.Gauge
}

// NewMetrics registers the pipeline metrics on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptd_jobs_enqueued_total",
			Help: "Print jobs accepted into the queue.",
		}),
		JobsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptd_jobs_delivered_total",
			Help: "Print jobs published to the printer topic.",
		}),
		JobsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptd_jobs_evicted_total",
			Help: "Print jobs archived as overflow, never delivered.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptd_publish_errors_total",
			Help: "Failed transport publish attempts.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "receiptd_queue_depth",
			Help: "Pending jobs in the store.",
		}),
		PrinterOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "receiptd_printer_online",
			Help: "1 when the last presence check reported the printer online.",
		}),
	}
	reg.MustRegister(m.JobsEnqueued, m.JobsDelivered, m.JobsEvicted,
		m.PublishErrors, m.QueueDepth, m.PrinterOnline)
	return m
}

// Handler serves the given gatherer over HTTP.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

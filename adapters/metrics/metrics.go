// Package metrics provides Prometheus metrics collection for schemasync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the reconciliation engine.
type Collector struct {
	// Health metrics
	HealthChecksTotal prometheus.Counter
	DriftedParams     *prometheus.CounterVec
	DocumentFetchErrs prometheus.Counter

	// Reconciliation metrics
	ResyncsTotal       *prometheus.CounterVec
	DocumentWriteErrs  prometheus.Counter
	DocumentsRewritten prometheus.Counter

	// Mutation workflow metrics
	PendingChangesOpen prometheus.Gauge
	ChangesCommitted   prometheus.Counter
	ChangesCancelled   prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics collector registered on its own registry. The
// registry is returned alongside so the caller can expose it.
func New() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	c := &Collector{
		HealthChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "health_checks_total",
			Help:      "Total number of document health checks run",
		}),
		DriftedParams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "drifted_params_total",
			Help:      "Total drifted parameters found, by severity",
		}, []string{"severity"}),
		DocumentFetchErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "document_fetch_errors_total",
			Help:      "Total document fetch failures during batch reads",
		}),
		ResyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "resyncs_total",
			Help:      "Total document resync operations, by outcome",
		}, []string{"outcome"}),
		DocumentWriteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "document_write_errors_total",
			Help:      "Total document write failures",
		}),
		DocumentsRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "documents_rewritten_total",
			Help:      "Total documents rewritten by reconciliation",
		}),
		PendingChangesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "schemasync",
			Name:      "pending_changes_open",
			Help:      "Pending parameter changes awaiting review",
		}),
		ChangesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "changes_committed_total",
			Help:      "Total confirmed parameter changes",
		}),
		ChangesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "changes_cancelled_total",
			Help:      "Total cancelled parameter changes",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemasync",
			Name:      "requests_total",
			Help:      "Total API requests processed",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schemasync",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.HealthChecksTotal,
		c.DriftedParams,
		c.DocumentFetchErrs,
		c.ResyncsTotal,
		c.DocumentWriteErrs,
		c.DocumentsRewritten,
		c.PendingChangesOpen,
		c.ChangesCommitted,
		c.ChangesCancelled,
		c.RequestsTotal,
		c.RequestDuration,
	)
	return c, reg
}

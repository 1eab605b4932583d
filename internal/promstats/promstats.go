// Package promstats mirrors run outcomes into a Prometheus registry and can
// push the result to a Pushgateway when the run ends.
package promstats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/torosent/volley/internal/request"
)

const namespace = "volley"

// Exporter is a runner observer backed by a private registry.
type Exporter struct {
	runID    string
	registry *prometheus.Registry

	outcomes      *prometheus.CounterVec
	statuses      *prometheus.CounterVec
	latency       prometheus.Histogram
	admissionWait prometheus.Histogram
}

// New creates an exporter for one run. run_id is not a metric label: Push
// adds it as a grouping key, and the Pushgateway rejects metrics that
// already carry a grouping label.
func New(runID string) *Exporter {
	e := &Exporter{
		runID:    runID,
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Number of descriptors by terminal kind and error kind.",
		}, []string{"kind", "error_kind"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_status_total",
			Help:      "Status of HTTP responses.",
		}, []string{"status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of issued requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		admissionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_wait_seconds",
			Help:      "Time spent waiting for admission before dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}

	e.registry.MustRegister(e.outcomes, e.statuses, e.latency, e.admissionWait)
	return e
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Observe records one outcome.
func (e *Exporter) Observe(o request.Outcome) {
	e.outcomes.WithLabelValues(o.Kind.String(), string(o.ErrorKind)).Inc()
	if o.Kind == request.KindCancelled {
		return
	}
	if o.Kind == request.KindSuccess {
		e.statuses.WithLabelValues(strconv.Itoa(o.StatusCode)).Inc()
	}
	e.latency.Observe(o.Latency.Seconds())
	e.admissionWait.Observe(o.AdmissionWait.Seconds())
}

// Push sends the registry contents to a Pushgateway, grouped by run_id.
func (e *Exporter) Push(ctx context.Context, gateway, job string) error {
	if job == "" {
		job = namespace
	}
	err := push.New(gateway, job).
		Gatherer(e.registry).
		Grouping("run_id", e.runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gateway, err)
	}
	return nil
}

package prometheus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "carbon"

var labelNames = []string{"metric", "operation", "status"}

// Recorder implements core.MetricsRecorder on prometheus collectors. Dotted
// metric names become the value of the "metric" label.
type Recorder struct {
	counters  *prom.CounterVec
	durations *prom.HistogramVec
}

func NewRecorder(registerer prom.Registerer, namespace string) (*Recorder, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	counters := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Observed ledger, receipt and vault operations.",
	}, labelNames)
	durations := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_ms",
		Help:      "Operation latency in milliseconds.",
		Buckets:   prom.ExponentialBuckets(0.5, 2, 14),
	}, labelNames)

	registeredCounters, err := register(registerer, counters)
	if err != nil {
		return nil, err
	}
	registeredDurations, err := register(registerer, durations)
	if err != nil {
		return nil, err
	}
	return &Recorder{counters: registeredCounters, durations: registeredDurations}, nil
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || r.counters == nil || value <= 0 {
		return
	}
	r.counters.WithLabelValues(labelValues(name, tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil || r.durations == nil {
		return
	}
	r.durations.WithLabelValues(labelValues(name, tags)...).Observe(value)
}

func labelValues(name string, tags map[string]string) []string {
	return []string{
		strings.TrimSpace(name),
		strings.TrimSpace(tags["operation"]),
		strings.TrimSpace(tags["status"]),
	}
}

// register reuses a collector that is already registered under the same
// descriptor, so several runtimes can share one registry.
func register[T prom.Collector](registerer prom.Registerer, collector T) (T, error) {
	if err := registerer.Register(collector); err != nil {
		var already prom.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(T)
			if ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("prometheus: register collector: %w", err)
	}
	return collector, nil
}

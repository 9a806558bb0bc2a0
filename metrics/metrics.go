//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package metrics implements evaluation metrics collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace          = "fresco"
	subsystemEvaluator = "evaluator"
	subsystemCheck     = "check"
	labelResult        = "result"
)

// Collector receives evaluation events. Implementations must be safe
// for concurrent use.
type Collector interface {
	// BatchEvaluated is called after one batch of gates has been
	// advanced one round.
	BatchEvaluated(gates int)

	// GatesCompleted is called with the number of gates that reached
	// their final round in a batch.
	GatesCompleted(gates int)

	// CheckCompleted is called after a consistency check over the
	// argument number of opened values.
	CheckCompleted(values int, passed bool)
}

// NoopCollector discards all events.
type NoopCollector struct{}

// NewNoopCollector creates a new no-op collector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) BatchEvaluated(gates int)               {}
func (nc *NoopCollector) GatesCompleted(gates int)               {}
func (nc *NoopCollector) CheckCompleted(values int, passed bool) {}

// Prometheus exports the evaluation events as Prometheus metrics.
type Prometheus struct {
	batches   prometheus.Counter
	rounds    prometheus.Counter
	completed prometheus.Counter
	batchSize prometheus.Histogram
	checks    *prometheus.CounterVec
	checked   prometheus.Counter
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a new Prometheus collector and registers its
// metrics with reg. If reg is nil, the default registerer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Prometheus{
		batches: factory.NewCounter(prometheus.CounterOpts{
			Name:      "batches_total",
			Namespace: namespace,
			Subsystem: subsystemEvaluator,
			Help:      "the number of evaluated batches",
		}),
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Name:      "gate_rounds_total",
			Namespace: namespace,
			Subsystem: subsystemEvaluator,
			Help:      "the number of gate rounds advanced",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Name:      "gates_completed_total",
			Namespace: namespace,
			Subsystem: subsystemEvaluator,
			Help:      "the number of gates evaluated to completion",
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "batch_size",
			Namespace: namespace,
			Subsystem: subsystemEvaluator,
			Help:      "the number of gates in a batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "checks_total",
			Namespace: namespace,
			Subsystem: subsystemCheck,
			Help:      "the number of consistency checks run",
		}, []string{labelResult}),
		checked: factory.NewCounter(prometheus.CounterOpts{
			Name:      "values_checked_total",
			Namespace: namespace,
			Subsystem: subsystemCheck,
			Help:      "the number of opened values verified",
		}),
	}
}

// BatchEvaluated implements Collector.
func (p *Prometheus) BatchEvaluated(gates int) {
	p.batches.Inc()
	p.rounds.Add(float64(gates))
	p.batchSize.Observe(float64(gates))
}

// GatesCompleted implements Collector.
func (p *Prometheus) GatesCompleted(gates int) {
	p.completed.Add(float64(gates))
}

// CheckCompleted implements Collector.
func (p *Prometheus) CheckCompleted(values int, passed bool) {
	result := "passed"
	if !passed {
		result = "failed"
	}
	p.checks.With(prometheus.Labels{labelResult: result}).Inc()
	p.checked.Add(float64(values))
}

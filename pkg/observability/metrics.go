package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors and the registry they are registered in.
type Metrics struct {
	registry *prometheus.Registry

	calculations *prometheus.CounterVec
	stuck        *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	passes       prometheus.Histogram
	duration     *prometheus.HistogramVec
	lastStuck    prometheus.Gauge
	transitions  *prometheus.CounterVec
	finished     *prometheus.CounterVec
}

// NewMetrics creates the collectors in a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodegraph_calculations_total",
				Help: "Node calculation attempts by node type and outcome.",
			},
			[]string{"node_type", "result"},
		),
		stuck: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodegraph_stuck_nodes_total",
				Help: "Nodes left uncalculated at the end of an evaluation.",
			},
			[]string{"node_type"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodegraph_evaluations_total",
				Help: "Evaluation calls by scope and outcome.",
			},
			[]string{"scope", "result"},
		),
		passes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodegraph_evaluation_passes",
			Help:    "Worklist passes needed to reach a fixed point.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodegraph_evaluation_duration_seconds",
				Help:    "Duration of evaluation calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		lastStuck: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nodegraph_last_evaluation_stuck_nodes",
			Help: "Stuck nodes reported by the most recent evaluation.",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodegraph_dialog_transitions_total",
				Help: "Dialog node changes by dialog id.",
			},
			[]string{"dialog_id"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodegraph_dialog_finished_total",
				Help: "Conversations that ran past their last node.",
			},
			[]string{"dialog_id"},
		),
	}
	m.registry.MustRegister(
		m.calculations, m.stuck, m.evaluations, m.passes,
		m.duration, m.lastStuck, m.transitions, m.finished,
	)
	return m
}

// Registry exposes the registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCalculate: func(_ context.Context, e *domain.NodeEvent) {
			m.calculations.WithLabelValues(e.NodeType, result(e.Success)).Inc()
		},
		OnStuck: func(_ context.Context, e *domain.NodeEvent) {
			m.stuck.WithLabelValues(e.NodeType).Inc()
		},
		OnEvaluation: func(_ context.Context, e *domain.EvaluationEvent) {
			m.evaluations.WithLabelValues(e.Scope, result(e.Stuck == 0)).Inc()
			m.passes.Observe(float64(e.Passes))
			m.duration.WithLabelValues(e.Scope).Observe(e.Duration.Seconds())
			m.lastStuck.Set(float64(e.Stuck))
		},
		OnDialogAdvance: func(_ context.Context, e *domain.DialogEvent) {
			id := strconv.Itoa(e.DialogID)
			m.transitions.WithLabelValues(id).Inc()
			if e.Finished {
				m.finished.WithLabelValues(id).Inc()
			}
		},
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

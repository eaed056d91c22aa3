package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slotflow"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	NodeRuns     *prometheus.CounterVec
	NodeDuration *prometheus.HistogramVec
	ErrorTags    *prometheus.CounterVec
	CallAttempts *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	Turns        *prometheus.CounterVec
	TurnDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_runs_total",
			Help:      "Node executions by outcome (ok, tagged, error).",
		}, []string{"node", "outcome"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		ErrorTags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_error_tags_total",
			Help:      "Error tags appended to state, by node.",
		}, []string{"node"}),
		CallAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_attempts_total",
			Help:      "External call attempts by node and status code (0 for transport errors).",
		}, []string{"node", "status"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of individual external call attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled inbound messages by outcome (paused, completed, failed).",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of one handled message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.NodeRuns, m.NodeDuration, m.ErrorTags, m.CallAttempts, m.CallDuration, m.Turns, m.TurnDuration)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			outcome := "ok"
			switch {
			case e.Err != nil:
				outcome = "error"
			case len(e.NewErrors) > 0:
				outcome = "tagged"
			}
			m.NodeRuns.WithLabelValues(e.Node, outcome).Inc()
			m.NodeDuration.WithLabelValues(e.Node).Observe(e.Duration.Seconds())
			if n := len(e.NewErrors); n > 0 {
				m.ErrorTags.WithLabelValues(e.Node).Add(float64(n))
			}
		},
		OnCallAttempt: func(_ context.Context, e *domain.CallEvent) {
			m.CallAttempts.WithLabelValues(e.Node, strconv.Itoa(e.StatusCode)).Inc()
			m.CallDuration.WithLabelValues(e.Node).Observe(e.Duration.Seconds())
		},
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
			outcome := "completed"
			switch {
			case e.Err != nil:
				outcome = "failed"
			case e.Paused:
				outcome = "paused"
			}
			m.Turns.WithLabelValues(outcome).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
	}
}

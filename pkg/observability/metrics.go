package observability

import (
	"context"
	"errors"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
	OutcomeDegraded  = "degraded"
	OutcomeWarning   = "warning"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	Runs          *prometheus.CounterVec
	Stages        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plotline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		Stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plotline_stages_total",
				Help: "Total number of stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plotline_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Runs, m.Stages, m.StageDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(outcome(e.Err, true)).Inc()
		},
		OnStageFinish: func(_ context.Context, e *domain.StageEvent) {
			o := outcome(e.Err, e.Fatal)
			if o == OutcomeWarning && e.Stage == domain.StageExpand {
				o = OutcomeDegraded
			}
			m.Stages.WithLabelValues(string(e.Stage), o).Inc()
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
		},
	}
}

func outcome(err error, fatal bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrCancelled):
		return OutcomeCancelled
	case !fatal:
		return OutcomeWarning
	}
	return OutcomeFailure
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "edgeworth"

// Metrics holds the solver and request collectors.
type Metrics struct {
	DictatorSolves    *prometheus.CounterVec
	SolveDuration     *prometheus.HistogramVec
	SolveIterations   *prometheus.HistogramVec
	EquilibriumSolves *prometheus.CounterVec
	Renders           *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// expose them on promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DictatorSolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictator_solves_total",
			Help:      "Dictator allocation solves by agent and solver status.",
		}, []string{"agent", "status", "source"}),
		SolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dictator_solve_duration_seconds",
			Help:      "Wall time of one dictator solve.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"agent"}),
		SolveIterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dictator_solve_iterations",
			Help:      "SQP iterations per dictator solve.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}, []string{"agent"}),
		EquilibriumSolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "equilibrium_solves_total",
			Help:      "Walras equilibrium searches by outcome.",
		}, []string{"outcome"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Rendered Edgeworth boxes by format.",
		}, []string{"format"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to hermes by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveSolve records one dictator solve. A nil receiver is a no-op.
func (m *Metrics) ObserveSolve(agent, status, source string, iterations int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DictatorSolves.WithLabelValues(agent, status, source).Inc()
	m.SolveDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
	m.SolveIterations.WithLabelValues(agent).Observe(float64(iterations))
}

func (m *Metrics) ObserveEquilibrium(converged bool, err error) {
	if m == nil {
		return
	}
	outcome := "converged"
	switch {
	case err != nil:
		outcome = "error"
	case !converged:
		outcome = "iteration_limit"
	}
	m.EquilibriumSolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRender(format string) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(format).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	m.EventsPublished.WithLabelValues("ok").Inc()
}

package economy

import (
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Edgeworth/internal/slsqp"
)

// UtilityFunc evaluates a utility at (x1, x2).
type UtilityFunc func(x1, x2 float64) float64

// SolverOptions configures a dictator solve.
type SolverOptions struct {
	MaxIter int     `json:"max_iter" yaml:"max_iter"`
	Tol     float64 `json:"tol" yaml:"tol"`
	// BoundEpsilon keeps good 1 inside [ε, 1-ε] so neither ln(x1) nor ln(1-x1)
	// is evaluated at zero. Good 2 keeps its full [0,1] range.
	BoundEpsilon float64 `json:"bound_epsilon" yaml:"bound_epsilon"`
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{MaxIter: 100, Tol: 1e-6, BoundEpsilon: 1e-6}
}

func (o SolverOptions) bounds() []slsqp.Bound {
	eps := o.BoundEpsilon
	if eps <= 0 {
		eps = DefaultSolverOptions().BoundEpsilon
	}
	return []slsqp.Bound{{Lower: eps, Upper: 1 - eps}, {Lower: 0, Upper: 1}}
}

// DictatorResult is the outcome of one dictator solve. It is built per call
// and never cached.
type DictatorResult struct {
	Agent        Agent        `json:"agent"`
	Bundle       Bundle       `json:"bundle"`
	Other        Bundle       `json:"other_bundle"`
	Utility      float64      `json:"utility"`
	OtherUtility float64      `json:"other_utility"`
	Baseline     float64      `json:"baseline"`
	Objective    float64      `json:"objective"`
	Success      bool         `json:"success"`
	Status       slsqp.Status `json:"status"`
	Message      string       `json:"message"`
	Iterations   int          `json:"iterations"`
	FuncEvals    int          `json:"func_evals"`
	GradEvals    int          `json:"grad_evals"`
}

// Slack is other(1-x1, 1-x2) - baseline at the returned bundle.
func (r *DictatorResult) Slack() float64 { return r.OtherUtility - r.Baseline }

// SolveDictator maximizes target(x1, x2) subject to
//
//	other(1-x1, 1-x2) - baseline ≥ 0
//
// within the box, starting from x0. Non-convergence is reported through
// Success and Status; an error means the inputs could not form a problem.
func SolveDictator(target, other UtilityFunc, baseline float64, x0 Bundle, opts SolverOptions) (*DictatorResult, error) {
	if target == nil || other == nil {
		return nil, fmt.Errorf("nil utility function")
	}
	if math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return nil, fmt.Errorf("%w: baseline utility %g", ErrInvalidEndowment, baseline)
	}

	problem := slsqp.Problem{
		Func: func(x []float64) float64 { return -target(x[0], x[1]) },
		Inequality: []slsqp.Constraint{{
			Func: func(x []float64) float64 { return other(1-x[0], 1-x[1]) - baseline },
		}},
		Bounds: opts.bounds(),
	}
	sol, err := slsqp.Minimize(problem, []float64{x0.X1, x0.X2}, &slsqp.Settings{
		MaxIter: opts.MaxIter,
		Tol:     opts.Tol,
	})
	if err != nil {
		return nil, fmt.Errorf("solve dictator: %w", err)
	}

	x := Bundle{X1: sol.X[0], X2: sol.X[1]}
	o := x.Complement()
	return &DictatorResult{
		Bundle:       x,
		Other:        o,
		Utility:      target(x.X1, x.X2),
		OtherUtility: other(o.X1, o.X2),
		Baseline:     baseline,
		Objective:    sol.Fun,
		Success:      sol.Success,
		Status:       sol.Status,
		Message:      sol.Message,
		Iterations:   sol.Iterations,
		FuncEvals:    sol.FuncEvals,
		GradEvals:    sol.GradEvals,
	}, nil
}

// SolveDictatorA maximizes A's utility keeping B at least as well off as at
// the endowment.
func (m *Model) SolveDictatorA(opts SolverOptions) (*DictatorResult, error) {
	baseline := m.UtilityB(1-m.par.W1A, 1-m.par.W2A)
	res, err := SolveDictator(m.UtilityA, m.UtilityB, baseline, m.par.EndowmentA(), opts)
	if err != nil {
		return nil, err
	}
	res.Agent = AgentA
	return res, nil
}

// SolveDictatorB maximizes B's utility keeping A at least as well off as at
// the endowment.
func (m *Model) SolveDictatorB(opts SolverOptions) (*DictatorResult, error) {
	baseline := m.UtilityA(m.par.W1A, m.par.W2A)
	res, err := SolveDictator(m.UtilityB, m.UtilityA, baseline, m.par.EndowmentB(), opts)
	if err != nil {
		return nil, err
	}
	res.Agent = AgentB
	return res, nil
}

// SolveDictator dispatches on agent.
func (m *Model) SolveDictator(agent Agent, opts SolverOptions) (*DictatorResult, error) {
	switch agent {
	case AgentA:
		return m.SolveDictatorA(opts)
	case AgentB:
		return m.SolveDictatorB(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
}

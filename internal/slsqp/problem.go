package slsqp

import (
	"errors"
	"fmt"
	"math"
)

// Func evaluates a scalar function at x.
type Func func(x []float64) float64

// GradFunc writes the gradient of a Func at x into grad.
type GradFunc func(grad, x []float64)

// Constraint is an inequality constraint c(x) ≥ 0.
// A nil Grad is approximated by finite differences.
type Constraint struct {
	Func Func
	Grad GradFunc
}

// Bound restricts one variable to [Lower, Upper]. Infinite values are allowed.
type Bound struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Problem is a minimization problem
//
//	minimize f(x) subject to cⱼ(x) ≥ 0 and lᵢ ≤ xᵢ ≤ uᵢ
type Problem struct {
	Func       Func
	Grad       GradFunc
	Inequality []Constraint
	// Bounds is either empty (unbounded) or has one entry per variable.
	Bounds []Bound
}

const (
	maxVars = 8
	maxRows = 24
)

var (
	ErrNilFunc   = errors.New("slsqp: nil objective or constraint function")
	ErrDimension = errors.New("slsqp: dimension mismatch")
	ErrTooLarge  = errors.New("slsqp: problem too large for dense active-set solver")
	ErrBadBound  = errors.New("slsqp: lower bound above upper bound")
	ErrBadStart  = errors.New("slsqp: initial guess is not finite")
)

func (p *Problem) validate(n int) error {
	if p.Func == nil {
		return ErrNilFunc
	}
	for _, c := range p.Inequality {
		if c.Func == nil {
			return ErrNilFunc
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: empty initial guess", ErrDimension)
	}
	if len(p.Bounds) != 0 && len(p.Bounds) != n {
		return fmt.Errorf("%w: %d bounds for %d variables", ErrDimension, len(p.Bounds), n)
	}
	rows := len(p.Inequality)
	for _, b := range p.Bounds {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || b.Lower > b.Upper {
			return fmt.Errorf("%w: [%g, %g]", ErrBadBound, b.Lower, b.Upper)
		}
		if !math.IsInf(b.Lower, -1) {
			rows++
		}
		if !math.IsInf(b.Upper, 1) {
			rows++
		}
	}
	if n > maxVars || rows > maxRows {
		return fmt.Errorf("%w: %d variables, %d constraint rows", ErrTooLarge, n, rows)
	}
	return nil
}

// Settings controls the iteration. Zero fields take their defaults.
type Settings struct {
	// MaxIter is the maximum number of SQP iterations (default 100).
	MaxIter int `json:"max_iter" yaml:"max_iter"`
	// Tol is the accuracy goal on objective change and constraint violation (default 1e-6).
	Tol float64 `json:"tol" yaml:"tol"`
	// GradStep is the finite-difference step (default √ε ≈ 1.49e-8).
	GradStep float64 `json:"grad_step" yaml:"grad_step"`
	// MaxLineSearch bounds the backtracking steps per iteration (default 10).
	MaxLineSearch int `json:"max_line_search" yaml:"max_line_search"`
}

// DefaultSettings mirrors the SciPy SLSQP defaults.
func DefaultSettings() *Settings {
	return &Settings{
		MaxIter:       100,
		Tol:           1e-6,
		GradStep:      1.4901161193847656e-08,
		MaxLineSearch: 10,
	}
}

func (s *Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s == nil {
		return *d
	}
	out := *s
	if out.MaxIter <= 0 {
		out.MaxIter = d.MaxIter
	}
	if out.Tol <= 0 {
		out.Tol = d.Tol
	}
	if out.GradStep <= 0 {
		out.GradStep = d.GradStep
	}
	if out.MaxLineSearch <= 0 {
		out.MaxLineSearch = d.MaxLineSearch
	}
	return out
}

// Status is the exit mode of a Minimize call.
type Status int

const (
	Success Status = iota
	BadArgument
	IncompatibleConstraints
	NotDescent
	IterationLimit
	NumericalFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Optimization terminated successfully"
	case BadArgument:
		return "Bad argument"
	case IncompatibleConstraints:
		return "Inequality constraints incompatible"
	case NotDescent:
		return "Positive directional derivative for linesearch"
	case IterationLimit:
		return "Iteration limit reached"
	case NumericalFailure:
		return "Function evaluation returned NaN or Inf"
	default:
		return fmt.Sprintf("Unknown status %d", int(s))
	}
}

// Label is a short snake_case name for metric labels.
func (s Status) Label() string {
	switch s {
	case Success:
		return "success"
	case BadArgument:
		return "bad_argument"
	case IncompatibleConstraints:
		return "incompatible_constraints"
	case NotDescent:
		return "not_descent"
	case IterationLimit:
		return "iteration_limit"
	case NumericalFailure:
		return "numerical_failure"
	}
	return "unknown"
}

// Result is the outcome of a Minimize call. X is the last iterate even when
// Success is false.
type Result struct {
	X           []float64 `json:"x"`
	Fun         float64   `json:"fun"`
	Status      Status    `json:"status"`
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Iterations  int       `json:"nit"`
	FuncEvals   int       `json:"nfev"`
	GradEvals   int       `json:"njev"`
	Multipliers []float64 `json:"multipliers,omitempty"`
}

package economy

import (
	"fmt"
	"math"
)

// EquilibriumOptions brackets the bisection on p1.
type EquilibriumOptions struct {
	Lower   float64 `json:"lower" yaml:"lower"`
	Upper   float64 `json:"upper" yaml:"upper"`
	Tol     float64 `json:"tol" yaml:"tol"`
	MaxIter int     `json:"max_iter" yaml:"max_iter"`
}

func DefaultEquilibriumOptions() EquilibriumOptions {
	return EquilibriumOptions{Lower: 0.01, Upper: 10, Tol: 1e-10, MaxIter: 200}
}

// Equilibrium is a Walras equilibrium price and the allocation it supports.
type Equilibrium struct {
	MarketClearing
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// FindEquilibrium bisects the excess demand for good 1, which is decreasing in
// p1. By Walras' law the good 2 market clears at the same price.
func (m *Model) FindEquilibrium(opts EquilibriumOptions) (*Equilibrium, error) {
	def := DefaultEquilibriumOptions()
	if opts.Lower <= 0 {
		opts.Lower = def.Lower
	}
	if opts.Upper <= 0 {
		opts.Upper = def.Upper
	}
	if opts.Tol <= 0 {
		opts.Tol = def.Tol
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.Lower >= opts.Upper {
		return nil, fmt.Errorf("%w: lower %g >= upper %g", ErrInvalidPrice, opts.Lower, opts.Upper)
	}

	lo, err := m.CheckMarketClearing(opts.Lower)
	if err != nil {
		return nil, err
	}
	hi, err := m.CheckMarketClearing(opts.Upper)
	if err != nil {
		return nil, err
	}
	if lo.Eps1 < 0 || hi.Eps1 > 0 {
		return nil, fmt.Errorf("%w: eps1(%g)=%g, eps1(%g)=%g", ErrNoEquilibrium, opts.Lower, lo.Eps1, opts.Upper, hi.Eps1)
	}

	a, b := opts.Lower, opts.Upper
	mid := lo
	for it := 1; it <= opts.MaxIter; it++ {
		p := 0.5 * (a + b)
		mid, err = m.CheckMarketClearing(p)
		if err != nil {
			return nil, err
		}
		if math.Abs(mid.Eps1) < opts.Tol || 0.5*(b-a) < opts.Tol {
			return &Equilibrium{MarketClearing: *mid, Iterations: it, Converged: true}, nil
		}
		if mid.Eps1 > 0 {
			a = p
		} else {
			b = p
		}
	}
	return &Equilibrium{MarketClearing: *mid, Iterations: opts.MaxIter}, nil
}

package slsqp

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	armijo     = 0.1
	relaxRho   = 1e6
	minAlpha   = 0.1
	dampFactor = 0.2
)

// Minimize solves p starting from x0. An error is returned only for a malformed
// problem; failure to converge is reported through Result.Status.
func Minimize(p Problem, x0 []float64, s *Settings) (*Result, error) {
	if err := p.validate(len(x0)); err != nil {
		return nil, err
	}
	for _, v := range x0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrBadStart
		}
	}
	sv := newSolver(p, x0, s.withDefaults())
	return sv.run(), nil
}

type solver struct {
	p Problem
	s Settings

	n, m         int
	lower, upper []float64

	x []float64
	f float64
	c []float64
	g []float64
	a [][]float64

	hess *mat.SymDense
	rho  []float64
	lam  []float64

	iter, nfev, ngev int
}

func newSolver(p Problem, x0 []float64, s Settings) *solver {
	n := len(x0)
	m := len(p.Inequality)
	sv := &solver{
		p:     p,
		s:     s,
		n:     n,
		m:     m,
		lower: make([]float64, n),
		upper: make([]float64, n),
		x:     make([]float64, n),
		g:     make([]float64, n),
		a:     make([][]float64, m),
		rho:   make([]float64, m),
		lam:   make([]float64, m),
	}
	for i := range x0 {
		sv.lower[i], sv.upper[i] = math.Inf(-1), math.Inf(1)
		if len(p.Bounds) == n {
			sv.lower[i], sv.upper[i] = p.Bounds[i].Lower, p.Bounds[i].Upper
		}
	}
	for j := range sv.a {
		sv.a[j] = make([]float64, n)
	}
	copy(sv.x, x0)
	sv.clip(sv.x)
	sv.resetHessian()
	return sv
}

func (sv *solver) run() *Result {
	sv.f, sv.c = sv.evalFunc(sv.x)
	if !finite(sv.f) || !allFinite(sv.c) {
		return sv.result(NumericalFailure)
	}
	sv.evalGrad()

	for sv.iter = 1; sv.iter <= sv.s.MaxIter; sv.iter++ {
		d, lam, ok := sv.direction()
		if !ok {
			return sv.result(IncompatibleConstraints)
		}
		copy(sv.lam, lam)
		for j := range sv.rho {
			l := math.Abs(lam[j])
			sv.rho[j] = math.Max(l, 0.5*(sv.rho[j]+l))
		}

		viol := violation(sv.c)
		if floats.Norm(d, 2) < sv.s.Tol && viol < sv.s.Tol {
			return sv.result(Success)
		}

		dphi := floats.Dot(sv.g, d)
		for j, cj := range sv.c {
			dphi -= sv.rho[j] * math.Max(0, -cj)
		}
		if dphi > 0 {
			return sv.result(NotDescent)
		}

		alpha, xn, fn, cn, ok := sv.lineSearch(d, dphi)
		if !ok {
			return sv.result(NumericalFailure)
		}

		gradLagOld := sv.gradLagrangian()
		fOld := sv.f
		sv.x, sv.f, sv.c = xn, fn, cn
		sv.evalGrad()

		step := make([]float64, sv.n)
		floats.ScaleTo(step, alpha, d)
		yk := sv.gradLagrangian()
		floats.Sub(yk, gradLagOld)
		sv.updateHessian(step, yk)

		if math.Abs(sv.f-fOld) < sv.s.Tol && violation(sv.c) < sv.s.Tol {
			return sv.result(Success)
		}
	}
	sv.iter = sv.s.MaxIter
	return sv.result(IterationLimit)
}

// direction solves the QP subproblem at the current iterate. When the
// linearized constraints are inconsistent it retries with the relaxed problem
// carrying a slack δ ∈ [0,1] penalized by ½ρδ².
func (sv *solver) direction() (d, lam []float64, ok bool) {
	A, b := sv.linearization(nil)
	if d, lam, ok = quadProg(sv.hess, sv.g, A, b); ok {
		return d, lam[:sv.m], true
	}

	n := sv.n + 1
	H := mat.NewSymDense(n, nil)
	for i := 0; i < sv.n; i++ {
		for j := i; j < sv.n; j++ {
			H.SetSym(i, j, sv.hess.At(i, j))
		}
	}
	H.SetSym(sv.n, sv.n, relaxRho)
	g := append(append([]float64(nil), sv.g...), 0)

	slack := make([]float64, sv.m)
	for j, cj := range sv.c {
		if cj <= 0 {
			slack[j] = -cj
		}
	}
	A, b = sv.linearization(slack)
	lo := make([]float64, n)
	lo[sv.n] = 1
	hi := make([]float64, n)
	hi[sv.n] = -1
	A = append(A, lo, hi)
	b = append(b, 0, -1)

	dd, ll, ok := quadProg(H, g, A, b)
	if !ok {
		return nil, nil, false
	}
	return dd[:sv.n], ll[:sv.m], true
}

// linearization returns the rows A d ≥ b of the QP subproblem: the general
// constraints first, then the finite bounds on the step. A non-nil slack adds
// a trailing column with the relaxation coefficients.
func (sv *solver) linearization(slack []float64) ([][]float64, []float64) {
	width := sv.n
	if slack != nil {
		width++
	}
	var A [][]float64
	var b []float64
	for j := 0; j < sv.m; j++ {
		row := make([]float64, width)
		copy(row, sv.a[j])
		if slack != nil {
			row[sv.n] = slack[j]
		}
		A = append(A, row)
		b = append(b, -sv.c[j])
	}
	for i := 0; i < sv.n; i++ {
		if !math.IsInf(sv.lower[i], -1) {
			row := make([]float64, width)
			row[i] = 1
			A = append(A, row)
			b = append(b, sv.lower[i]-sv.x[i])
		}
		if !math.IsInf(sv.upper[i], 1) {
			row := make([]float64, width)
			row[i] = -1
			A = append(A, row)
			b = append(b, sv.x[i]-sv.upper[i])
		}
	}
	return A, b
}

// lineSearch backtracks on the L1 merit function until the Armijo condition
// holds. After MaxLineSearch trials the last finite trial point is accepted.
func (sv *solver) lineSearch(d []float64, dphi float64) (step float64, x []float64, f float64, c []float64, ok bool) {
	phi0 := sv.merit(sv.f, sv.c)
	alpha := 1.0
	for k := 0; k < sv.s.MaxLineSearch; k++ {
		xt := make([]float64, sv.n)
		floats.AddScaledTo(xt, sv.x, alpha, d)
		sv.clip(xt)
		ft, ct := sv.evalFunc(xt)
		if !finite(ft) || !allFinite(ct) {
			alpha *= 0.5
			continue
		}
		step, x, f, c, ok = alpha, xt, ft, ct, true
		phi := sv.merit(ft, ct)
		if phi-phi0 <= armijo*alpha*dphi {
			return step, x, f, c, true
		}
		// Quadratic interpolation of the merit along d, kept in [0.1α, 0.5α].
		next := 0.5 * alpha
		if den := 2 * (phi - phi0 - dphi*alpha); den > 0 {
			next = -dphi * alpha * alpha / den
		}
		alpha = math.Min(math.Max(next, minAlpha*alpha), 0.5*alpha)
	}
	return step, x, f, c, ok
}

func (sv *solver) merit(f float64, c []float64) float64 {
	phi := f
	for j, cj := range c {
		phi += sv.rho[j] * math.Max(0, -cj)
	}
	return phi
}

// updateHessian applies the Powell-damped BFGS update
//
//	B ← B + qqᵀ/qᵀs − BssᵀB/sᵀBs,  q = θy + (1−θ)Bs
func (sv *solver) updateHessian(s, y []float64) {
	var bs mat.VecDense
	bs.MulVec(sv.hess, mat.NewVecDense(sv.n, s))
	sBs := mat.Dot(mat.NewVecDense(sv.n, s), &bs)
	sy := floats.Dot(s, y)
	if sBs <= 1e-300 {
		return
	}
	q := mat.NewVecDense(sv.n, append([]float64(nil), y...))
	if sy < dampFactor*sBs {
		theta := (1 - dampFactor) * sBs / (sBs - sy)
		q.ScaleVec(theta, q)
		q.AddScaledVec(q, 1-theta, &bs)
		sy = mat.Dot(mat.NewVecDense(sv.n, s), q)
	}
	if sy <= 1e-300 {
		sv.resetHessian()
		return
	}
	next := mat.NewSymDense(sv.n, nil)
	next.SymRankOne(sv.hess, 1/sy, q)
	next.SymRankOne(next, -1/sBs, &bs)
	sv.hess = next
}

func (sv *solver) resetHessian() {
	sv.hess = mat.NewSymDense(sv.n, nil)
	for i := 0; i < sv.n; i++ {
		sv.hess.SetSym(i, i, 1)
	}
}

// gradLagrangian returns ∇f − Σλⱼ∇cⱼ at the current iterate.
func (sv *solver) gradLagrangian() []float64 {
	out := append([]float64(nil), sv.g...)
	for j := range sv.a {
		floats.AddScaled(out, -sv.lam[j], sv.a[j])
	}
	return out
}

func (sv *solver) evalFunc(x []float64) (float64, []float64) {
	sv.nfev++
	f := sv.p.Func(x)
	c := make([]float64, sv.m)
	for j, con := range sv.p.Inequality {
		c[j] = con.Func(x)
	}
	return f, c
}

func (sv *solver) evalGrad() {
	sv.ngev++
	sv.gradient(sv.g, sv.p.Func, sv.p.Grad, sv.f)
	for j, con := range sv.p.Inequality {
		sv.gradient(sv.a[j], con.Func, con.Grad, sv.c[j])
	}
}

// gradient fills dst with ∇fn at the current iterate. Without an analytic
// gradient each partial is a one-sided difference that steps away from the
// nearest upper bound, so fn is never evaluated outside the box.
func (sv *solver) gradient(dst []float64, fn Func, grad GradFunc, f0 float64) {
	if grad != nil {
		grad(dst, sv.x)
		return
	}
	xi := append([]float64(nil), sv.x...)
	for i := range sv.x {
		formula := fd.Forward
		if sv.x[i]+sv.s.GradStep > sv.upper[i] {
			formula = fd.Backward
		}
		origin := sv.x[i]
		dst[i] = fd.Derivative(func(t float64) float64 {
			xi[i] = t
			v := fn(xi)
			xi[i] = origin
			return v
		}, origin, &fd.Settings{
			Formula:     formula,
			Step:        sv.s.GradStep,
			OriginKnown: true,
			OriginValue: f0,
		})
	}
}

func (sv *solver) clip(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], sv.lower[i]), sv.upper[i])
	}
}

func (sv *solver) result(status Status) *Result {
	r := &Result{
		X:          append([]float64(nil), sv.x...),
		Fun:        sv.f,
		Status:     status,
		Success:    status == Success,
		Message:    status.String(),
		Iterations: sv.iter,
		FuncEvals:  sv.nfev,
		GradEvals:  sv.ngev,
	}
	if sv.m > 0 {
		r.Multipliers = append([]float64(nil), sv.lam...)
	}
	return r
}

// violation is the summed violation of the inequality constraints.
func violation(c []float64) float64 {
	var h float64
	for _, cj := range c {
		h += math.Max(0, -cj)
	}
	return h
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}

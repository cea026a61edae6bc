package slsqp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// quadProg solves the strictly convex QP
//
//	minimize ½ dᵀBd + gᵀd subject to A d ≥ b
//
// by enumerating active sets of at most len(g) rows. The first active set whose
// KKT point is primal feasible with non-negative multipliers is the optimum.
// ok is false when no such set exists, i.e. the linearization is inconsistent.
func quadProg(B mat.Symmetric, g []float64, A [][]float64, b []float64) (d, lam []float64, ok bool) {
	n := len(g)
	m := len(A)
	maxActive := n
	if m < maxActive {
		maxActive = m
	}
	for k := 0; k <= maxActive; k++ {
		combinations(m, k, func(active []int) bool {
			x, mu, solved := kktSolve(B, g, A, b, active)
			if !solved {
				return false
			}
			for _, v := range mu {
				if v < -1e-10 {
					return false
				}
			}
			for j := range A {
				if floats.Dot(A[j], x) < b[j]-1e-9*(1+math.Abs(b[j])) {
					return false
				}
			}
			d = x
			lam = make([]float64, m)
			for r, j := range active {
				lam[j] = math.Max(mu[r], 0)
			}
			ok = true
			return true
		})
		if ok {
			return d, lam, true
		}
	}
	return nil, nil, false
}

// kktSolve treats the rows in active as equalities and solves
//
//	⎡ B  -Aₛᵀ ⎤⎡ d ⎤   ⎡ -g ⎤
//	⎣ Aₛ   0  ⎦⎣ μ ⎦ = ⎣ bₛ ⎦
func kktSolve(B mat.Symmetric, g []float64, A [][]float64, b []float64, active []int) (d, mu []float64, ok bool) {
	n := len(g)
	k := len(active)
	dim := n + k
	K := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			K.Set(i, j, B.At(i, j))
		}
		rhs.SetVec(i, -g[i])
	}
	for r, row := range active {
		for i := 0; i < n; i++ {
			K.Set(i, n+r, -A[row][i])
			K.Set(n+r, i, A[row][i])
		}
		rhs.SetVec(n+r, b[row])
	}
	var sol mat.VecDense
	if err := sol.SolveVec(K, rhs); err != nil {
		return nil, nil, false
	}
	d = make([]float64, n)
	mu = make([]float64, k)
	for i := 0; i < n; i++ {
		d[i] = sol.AtVec(i)
	}
	for r := 0; r < k; r++ {
		mu[r] = sol.AtVec(n + r)
	}
	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, false
		}
	}
	return d, mu, true
}

// combinations calls fn with every k-subset of [0, m) in lexicographic order
// until fn returns true.
func combinations(m, k int, fn func([]int) bool) bool {
	idx := make([]int, k)
	var rec func(start, depth int) bool
	rec = func(start, depth int) bool {
		if depth == k {
			return fn(idx)
		}
		for i := start; i <= m-(k-depth); i++ {
			idx[depth] = i
			if rec(i+1, depth+1) {
				return true
			}
		}
		return false
	}
	return rec(0, 0)
}

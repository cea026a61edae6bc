package economy

import "math"

// Preferences is the utility strategy of one agent. Good 2 is the numeraire
// for Demand.
type Preferences interface {
	Utility(x1, x2 float64) float64
	// Indifference returns the x2 that puts (x1, x2) on the level set u.
	Indifference(u, x1 float64) float64
	// Demand returns the utility maximizing bundle at price p1 and income.
	Demand(p1, income float64) Bundle
	// MRS is the marginal rate of substitution of good 2 for good 1.
	MRS(x1, x2 float64) float64
}

// QuasiLinear is u(x1, x2) = ln(x1) + Coef·x2.
type QuasiLinear struct {
	Coef float64
}

func (q QuasiLinear) Utility(x1, x2 float64) float64 {
	return math.Log(x1) + q.Coef*x2
}

func (q QuasiLinear) Indifference(u, x1 float64) float64 {
	return (u - math.Log(x1)) / q.Coef
}

// MRS is (1/x1)/c and does not depend on x2.
func (q QuasiLinear) MRS(x1, _ float64) float64 {
	return 1 / (q.Coef * x1)
}

// Demand solves max ln(x1) + c·x2 s.t. p1·x1 + x2 = income. The interior
// solution spends 1/c on good 1; below that income everything goes to good 1.
func (q QuasiLinear) Demand(p1, income float64) Bundle {
	x1 := 1 / (q.Coef * p1)
	x2 := income - 1/q.Coef
	if x2 < 0 {
		return Bundle{X1: income / p1, X2: 0}
	}
	return Bundle{X1: x1, X2: x2}
}

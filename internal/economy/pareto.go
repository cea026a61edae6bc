package economy

import "math"

// Allocation is A's bundle together with both utilities. B holds the
// complement.
type Allocation struct {
	A        Bundle  `json:"a"`
	UtilityA float64 `json:"utility_a"`
	UtilityB float64 `json:"utility_b"`
}

// Allocate scores A's bundle x for both agents.
func (m *Model) Allocate(x Bundle) Allocation {
	o := x.Complement()
	return Allocation{A: x, UtilityA: m.UtilityA(x.X1, x.X2), UtilityB: m.UtilityB(o.X1, o.X2)}
}

// ParetoFrontier returns the allocations no other candidate dominates.
// O(n^2), candidates are few.
func ParetoFrontier(candidates []Allocation) []Allocation {
	if len(candidates) <= 1 {
		return candidates
	}

	var frontier []Allocation
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, candidates[i])
		}
	}
	return frontier
}

// dominates reports whether a is weakly better for both agents and strictly
// better for one.
func dominates(a, b Allocation) bool {
	if a.UtilityA < b.UtilityA || a.UtilityB < b.UtilityB {
		return false
	}
	return a.UtilityA > b.UtilityA || a.UtilityB > b.UtilityB
}

// ContractCurve is the sampled locus of interior efficient allocations in
// A's coordinates.
type ContractCurve struct {
	X1 []float64 `json:"x1"`
	X2 []float64 `json:"x2"`
}

func (c *ContractCurve) Len() int { return len(c.X1) }

const contractBisections = 100

// ContractCurve walks x2A over the grid and bisects on x1A for the point where
// both marginal rates of substitution agree. Rows where the tangency falls
// outside the grid are dropped.
func (m *Model) ContractCurve(grid Grid) (*ContractCurve, error) {
	xs, err := grid.Values()
	if err != nil {
		return nil, err
	}

	cc := &ContractCurve{}
	for _, x2 := range xs {
		gap := func(x1 float64) float64 {
			return m.a.MRS(x1, x2) - m.b.MRS(1-x1, 1-x2)
		}
		lo, hi := grid.Min, grid.Max
		glo, ghi := gap(lo), gap(hi)
		if !finite(glo) || !finite(ghi) || math.Signbit(glo) == math.Signbit(ghi) {
			continue
		}
		for i := 0; i < contractBisections && hi-lo > 1e-13; i++ {
			mid := 0.5 * (lo + hi)
			if math.Signbit(gap(mid)) == math.Signbit(glo) {
				lo = mid
			} else {
				hi = mid
			}
		}
		cc.X1 = append(cc.X1, 0.5*(lo+hi))
		cc.X2 = append(cc.X2, x2)
	}
	return cc, nil
}

// Core keeps the contract curve points that both agents weakly prefer to the
// endowment.
func (m *Model) Core(grid Grid) (*ContractCurve, error) {
	cc, err := m.ContractCurve(grid)
	if err != nil {
		return nil, err
	}
	core := &ContractCurve{}
	for i := range cc.X1 {
		if m.Contains(Bundle{X1: cc.X1[i], X2: cc.X2[i]}) {
			core.X1 = append(core.X1, cc.X1[i])
			core.X2 = append(core.X2, cc.X2[i])
		}
	}
	return core, nil
}

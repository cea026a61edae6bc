package economy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is an evenly spaced sample of good 1, endpoints included.
type Grid struct {
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Points int     `json:"points" yaml:"points"`
}

// MaxGridPoints caps a caller supplied grid.
const MaxGridPoints = 100000

// DefaultGrid stays off the box edges where ln is undefined.
func DefaultGrid() Grid {
	return Grid{Min: 0.001, Max: 0.999, Points: 1000}
}

// Values returns the grid as a slice.
func (g Grid) Values() ([]float64, error) {
	if g.Points < 2 || g.Points > MaxGridPoints {
		return nil, fmt.Errorf("%w: points must be in [2, %d], got %d", ErrInvalidGrid, MaxGridPoints, g.Points)
	}
	if !(g.Min > 0 && g.Max < 1 && g.Min < g.Max) {
		return nil, fmt.Errorf("%w: [%g, %g] must lie inside (0,1)", ErrInvalidGrid, g.Min, g.Max)
	}
	return floats.Span(make([]float64, g.Points), g.Min, g.Max), nil
}

// Curve is a sampled indifference curve in the owning agent's coordinates.
type Curve struct {
	Agent   Agent     `json:"agent"`
	Utility float64   `json:"utility"`
	X1      []float64 `json:"x1"`
	X2      []float64 `json:"x2"`
}

// Len is the number of retained points.
func (c *Curve) Len() int { return len(c.X1) }

// IndifferenceCurveA samples A's level set through (w1, w2) and keeps the
// points strictly inside the box.
func (m *Model) IndifferenceCurveA(w1, w2 float64, grid Grid) (*Curve, error) {
	return m.indifferenceCurve(AgentA, w1, w2, grid)
}

// IndifferenceCurveB is IndifferenceCurveA for B, in B's own coordinates.
func (m *Model) IndifferenceCurveB(w1, w2 float64, grid Grid) (*Curve, error) {
	return m.indifferenceCurve(AgentB, w1, w2, grid)
}

func (m *Model) indifferenceCurve(agent Agent, w1, w2 float64, grid Grid) (*Curve, error) {
	xs, err := grid.Values()
	if err != nil {
		return nil, err
	}
	u := m.Utility(agent, Bundle{X1: w1, X2: w2})
	if !finite(u) {
		return nil, fmt.Errorf("%w: utility undefined at (%g, %g)", ErrInvalidEndowment, w1, w2)
	}
	inv := m.X2AIndifference
	if agent == AgentB {
		inv = m.X2BIndifference
	}
	c := &Curve{Agent: agent, Utility: u}
	for _, x1 := range xs {
		x2 := inv(u, x1)
		if x2 > 0 && x2 < 1 {
			c.X1 = append(c.X1, x1)
			c.X2 = append(c.X2, x2)
		}
	}
	return c, nil
}

// ImprovementSet is the lens of allocations, in A's coordinates, that both
// agents weakly prefer to the endowment. For each retained x1, Lower is A's
// endowment indifference curve and Upper is B's mapped into A's coordinates.
type ImprovementSet struct {
	X1    []float64 `json:"x1"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

func (s *ImprovementSet) Len() int { return len(s.X1) }

// Contains reports whether A's bundle x lies in the lens.
func (m *Model) Contains(x Bundle) bool {
	uA := m.UtilityA(m.par.W1A, m.par.W2A)
	uB := m.UtilityB(1-m.par.W1A, 1-m.par.W2A)
	o := x.Complement()
	return m.UtilityA(x.X1, x.X2) >= uA && m.UtilityB(o.X1, o.X2) >= uB
}

// ImprovementSet samples the Pareto improvements over the endowment.
func (m *Model) ImprovementSet(grid Grid) (*ImprovementSet, error) {
	xs, err := grid.Values()
	if err != nil {
		return nil, err
	}
	uA := m.UtilityA(m.par.W1A, m.par.W2A)
	uB := m.UtilityB(1-m.par.W1A, 1-m.par.W2A)

	set := &ImprovementSet{}
	for _, x1 := range xs {
		x2A := m.X2AIndifference(uA, x1)
		x2B := m.X2BIndifference(uB, 1-x1)
		if x2A < 1-x2B && x2A > 0 && x2A < 1 {
			set.X1 = append(set.X1, x1)
			set.Lower = append(set.Lower, x2A)
			set.Upper = append(set.Upper, math.Min(1-x2B, 1))
		}
	}
	return set, nil
}

package economy

import (
	"fmt"
	"math"
)

// Model is a two-agent exchange economy with fixed parameters and one
// preference strategy per agent. It holds no mutable state.
type Model struct {
	par Params
	a   Preferences
	b   Preferences
}

// NewModel validates par and binds the given preferences.
func NewModel(par Params, a, b Preferences) (*Model, error) {
	if err := par.Validate(); err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, fmt.Errorf("nil preferences")
	}
	return &Model{par: par, a: a, b: b}, nil
}

// NewQuasiLinear builds the economy uA = ln(x1A) + alpha·x2A, uB = ln(x1B) + beta·x2B.
func NewQuasiLinear(par Params) (*Model, error) {
	return NewModel(par, QuasiLinear{Coef: par.Alpha}, QuasiLinear{Coef: par.Beta})
}

func (m *Model) Params() Params { return m.par }

func (m *Model) UtilityA(x1A, x2A float64) float64 { return m.a.Utility(x1A, x2A) }

func (m *Model) UtilityB(x1B, x2B float64) float64 { return m.b.Utility(x1B, x2B) }

func (m *Model) X2AIndifference(uA, x1A float64) float64 { return m.a.Indifference(uA, x1A) }

func (m *Model) X2BIndifference(uB, x1B float64) float64 { return m.b.Indifference(uB, x1B) }

// Utility evaluates the given agent's utility at its own bundle.
func (m *Model) Utility(agent Agent, x Bundle) float64 {
	if agent == AgentB {
		return m.UtilityB(x.X1, x.X2)
	}
	return m.UtilityA(x.X1, x.X2)
}

// DemandA is A's demand at price p1 for good 1, good 2 being the numeraire.
func (m *Model) DemandA(p1 float64) (Bundle, error) {
	if err := checkPrice(p1); err != nil {
		return Bundle{}, err
	}
	income := p1*m.par.W1A + m.par.W2A
	return m.a.Demand(p1, income), nil
}

// DemandB is B's demand at price p1.
func (m *Model) DemandB(p1 float64) (Bundle, error) {
	if err := checkPrice(p1); err != nil {
		return Bundle{}, err
	}
	income := p1*(1-m.par.W1A) + (1 - m.par.W2A)
	return m.b.Demand(p1, income), nil
}

// MarketClearing is the excess demand of each good at a price.
type MarketClearing struct {
	P1      float64 `json:"p1"`
	DemandA Bundle  `json:"demand_a"`
	DemandB Bundle  `json:"demand_b"`
	Eps1    float64 `json:"eps1"`
	Eps2    float64 `json:"eps2"`
}

// CheckMarketClearing returns eps1 = x1A + x1B - 1 and eps2 = x2A + x2B - 1.
func (m *Model) CheckMarketClearing(p1 float64) (*MarketClearing, error) {
	da, err := m.DemandA(p1)
	if err != nil {
		return nil, err
	}
	db, err := m.DemandB(p1)
	if err != nil {
		return nil, err
	}
	return &MarketClearing{
		P1:      p1,
		DemandA: da,
		DemandB: db,
		Eps1:    da.X1 + db.X1 - 1,
		Eps2:    da.X2 + db.X2 - 1,
	}, nil
}

func checkPrice(p1 float64) error {
	if math.IsNaN(p1) || math.IsInf(p1, 0) || p1 <= 0 {
		return fmt.Errorf("%w: p1=%g must be positive", ErrInvalidPrice, p1)
	}
	return nil
}

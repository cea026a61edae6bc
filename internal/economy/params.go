package economy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidEndowment   = errors.New("invalid endowment")
	ErrInvalidCoefficient = errors.New("invalid utility coefficient")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrNoEquilibrium      = errors.New("no equilibrium in price bracket")
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrInvalidGrid        = errors.New("invalid grid")
)

// Params describes the economy. Agent A holds (W1A, W2A); agent B holds the
// complement of each good. Alpha and Beta are A's and B's coefficients on good 2.
type Params struct {
	W1A   float64 `json:"w1A" yaml:"w1A"`
	W2A   float64 `json:"w2A" yaml:"w2A"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

// DefaultParams returns the problem-set economy: w = (0.8, 0.3), both coefficients 4.
func DefaultParams() Params {
	return Params{W1A: 0.8, W2A: 0.3, Alpha: 4, Beta: 4}
}

// Validate rejects parameters for which the log utilities are undefined at the
// endowment: good 1 shares must lie strictly inside (0,1), good 2 shares in [0,1].
func (p Params) Validate() error {
	if !finite(p.W1A) || p.W1A <= 0 || p.W1A >= 1 {
		return fmt.Errorf("%w: w1A=%g must be in (0,1)", ErrInvalidEndowment, p.W1A)
	}
	if !finite(p.W2A) || p.W2A < 0 || p.W2A > 1 {
		return fmt.Errorf("%w: w2A=%g must be in [0,1]", ErrInvalidEndowment, p.W2A)
	}
	if !finite(p.Alpha) || p.Alpha <= 0 {
		return fmt.Errorf("%w: alpha=%g must be positive", ErrInvalidCoefficient, p.Alpha)
	}
	if !finite(p.Beta) || p.Beta <= 0 {
		return fmt.Errorf("%w: beta=%g must be positive", ErrInvalidCoefficient, p.Beta)
	}
	return nil
}

// EndowmentA is A's initial bundle.
func (p Params) EndowmentA() Bundle { return Bundle{X1: p.W1A, X2: p.W2A} }

// EndowmentB is B's initial bundle, the complement of A's.
func (p Params) EndowmentB() Bundle { return p.EndowmentA().Complement() }

// Bundle is a consumption pair of good 1 and good 2.
type Bundle struct {
	X1 float64 `json:"x1"`
	X2 float64 `json:"x2"`
}

// Complement returns the other agent's bundle when total supply of each good is 1.
func (b Bundle) Complement() Bundle { return Bundle{X1: 1 - b.X1, X2: 1 - b.X2} }

// Agent identifies one side of the economy.
type Agent string

const (
	AgentA Agent = "A"
	AgentB Agent = "B"
)

// ParseAgent accepts "a", "A", "b" or "B".
func ParseAgent(s string) (Agent, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return AgentA, nil
	case "B":
		return AgentB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAgent, s)
}

// Other returns the counterparty.
func (a Agent) Other() Agent {
	if a == AgentA {
		return AgentB
	}
	return AgentA
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

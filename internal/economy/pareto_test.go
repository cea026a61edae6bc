package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParetoFrontier(t *testing.T) {
	m := newModel(t, DefaultParams())

	candidates := []Allocation{
		m.Allocate(DefaultParams().EndowmentA()), // dominated by the equilibrium
		m.Allocate(Bundle{X1: 0.5, X2: 0.45}),
		m.Allocate(Bundle{X1: 0.5, X2: 0.5}),
		m.Allocate(Bundle{X1: 0.6, X2: 0.45}), // dominated by (0.5, 0.5)
	}

	frontier := ParetoFrontier(candidates)
	require.Len(t, frontier, 2)
	assert.Equal(t, Bundle{X1: 0.5, X2: 0.45}, frontier[0].A)
	assert.Equal(t, Bundle{X1: 0.5, X2: 0.5}, frontier[1].A)

	single := ParetoFrontier(candidates[:1])
	assert.Len(t, single, 1)

	// Equal allocations do not dominate each other.
	twin := ParetoFrontier([]Allocation{candidates[1], candidates[1]})
	assert.Len(t, twin, 2)
}

func TestContractCurve(t *testing.T) {
	tests := []struct {
		name string
		par  Params
		x1   float64
	}{
		{"equal coefficients", DefaultParams(), 0.5},
		{"alpha above beta", Params{W1A: 0.5, W2A: 0.5, Alpha: 6, Beta: 4}, 0.4},
		{"beta above alpha", Params{W1A: 0.5, W2A: 0.5, Alpha: 1, Beta: 3}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc, err := newModel(t, tt.par).ContractCurve(DefaultGrid())
			require.NoError(t, err)
			require.Equal(t, 1000, cc.Len())
			for i := range cc.X1 {
				assert.InDelta(t, tt.x1, cc.X1[i], 1e-9)
			}
		})
	}

	_, err := newModel(t, DefaultParams()).ContractCurve(Grid{Min: 0, Max: 1, Points: 5})
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestCoreMatchesDictatorOutcomes(t *testing.T) {
	m := newModel(t, DefaultParams())

	core, err := m.Core(DefaultGrid())
	require.NoError(t, err)
	require.Greater(t, core.Len(), 100)

	// The core runs along x1 = 0.5 from A's endowment curve to B's.
	assert.InDelta(t, 0.4175, core.X2[0], 1e-3)
	assert.InDelta(t, 0.5291, core.X2[core.Len()-1], 1e-3)

	resA, err := m.SolveDictatorA(DefaultSolverOptions())
	require.NoError(t, err)
	assert.InDelta(t, core.X2[core.Len()-1], resA.Bundle.X2, 2e-3)

	resB, err := m.SolveDictatorB(DefaultSolverOptions())
	require.NoError(t, err)
	assert.InDelta(t, core.X2[0], resB.Other.X2, 2e-3)
}

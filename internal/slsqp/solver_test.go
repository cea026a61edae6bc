package slsqp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unbounded(n int) []Bound {
	b := make([]Bound, n)
	for i := range b {
		b[i] = Bound{Lower: math.Inf(-1), Upper: math.Inf(1)}
	}
	return b
}

func TestMinimizeUnconstrainedQuadratic(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 {
			return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2)
		},
	}
	res, err := Minimize(p, []float64{0, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 1.0, res.X[0], 1e-5)
	assert.InDelta(t, -2.0, res.X[1], 1e-5)
	assert.InDelta(t, 0.0, res.Fun, 1e-8)
	assert.Nil(t, res.Multipliers)
}

func TestMinimizeActiveBounds(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 {
			return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2)
		},
		Bounds: []Bound{{0, 0.5}, {0, 0.5}},
	}
	res, err := Minimize(p, []float64{0.2, 0.2}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 0.5, res.X[0], 1e-8)
	assert.InDelta(t, 0.0, res.X[1], 1e-8)
	assert.InDelta(t, 4.25, res.Fun, 1e-8)
}

func TestMinimizeInequality(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
		Inequality: []Constraint{{
			Func: func(x []float64) float64 { return x[0] + x[1] - 1 },
		}},
		Bounds: unbounded(2),
	}
	res, err := Minimize(p, []float64{2, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 0.5, res.X[0], 1e-5)
	assert.InDelta(t, 0.5, res.X[1], 1e-5)
	require.Len(t, res.Multipliers, 1)
	assert.InDelta(t, 1.0, res.Multipliers[0], 1e-3)
	assert.Greater(t, res.Iterations, 0)
	assert.Greater(t, res.FuncEvals, 0)
	assert.Greater(t, res.GradEvals, 0)
}

func TestMinimizeAnalyticGradient(t *testing.T) {
	calls := 0
	p := Problem{
		Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
		Grad: func(grad, x []float64) {
			calls++
			grad[0], grad[1] = 2*x[0], 2*x[1]
		},
		Inequality: []Constraint{{
			Func: func(x []float64) float64 { return x[0] + x[1] - 1 },
			Grad: func(grad, _ []float64) { grad[0], grad[1] = 1, 1 },
		}},
	}
	res, err := Minimize(p, []float64{2, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 0.5, res.X[0], 1e-6)
	assert.InDelta(t, 0.5, res.X[1], 1e-6)
	assert.Equal(t, res.GradEvals, calls)
}

func TestMinimizeInactiveConstraints(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 {
			return (x[0]-3)*(x[0]-3) + (x[1]-2)*(x[1]-2) + (x[2]+1)*(x[2]+1)
		},
		Inequality: []Constraint{
			{Func: func(x []float64) float64 { return 4 - x[0] - x[1] - x[2] }},
			{Func: func(x []float64) float64 { return x[0] - x[1] }},
		},
	}
	res, err := Minimize(p, []float64{0, 0, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDeltaSlice(t, []float64{3, 2, -1}, res.X, 1e-5)
}

func TestMinimizeInfeasible(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 { return x[0] * x[0] },
		Inequality: []Constraint{{
			Func: func(x []float64) float64 { return x[0] - 2 },
		}},
		Bounds: []Bound{{0, 1}},
	}
	res, err := Minimize(p, []float64{0.5}, &Settings{MaxIter: 20})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEqual(t, Success, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.GreaterOrEqual(t, res.X[0], 0.0)
	assert.LessOrEqual(t, res.X[0], 1.0)
}

func TestMinimizeInitialGuessClipped(t *testing.T) {
	p := Problem{
		Func:   func(x []float64) float64 { return x[0] },
		Bounds: []Bound{{0.25, 0.75}},
	}
	res, err := Minimize(p, []float64{5}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDelta(t, 0.25, res.X[0], 1e-9)
}

func TestMinimizeNumericalFailure(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 { return math.Log(x[0]) },
	}
	res, err := Minimize(p, []float64{-1}, nil)
	require.NoError(t, err)
	assert.Equal(t, NumericalFailure, res.Status)
	assert.False(t, res.Success)
}

func TestMinimizeDeterministic(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 { return -math.Log(x[0]) - 4*x[1] },
		Inequality: []Constraint{{
			Func: func(x []float64) float64 { return math.Log(1-x[0]) + 4*(1-x[1]) - 1.2 },
		}},
		Bounds: []Bound{{1e-6, 1 - 1e-6}, {0, 1}},
	}
	a, err := Minimize(p, []float64{0.8, 0.3}, nil)
	require.NoError(t, err)
	b, err := Minimize(p, []float64{0.8, 0.3}, nil)
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestMinimizeValidation(t *testing.T) {
	quad := func(x []float64) float64 { return x[0] * x[0] }

	tests := []struct {
		name string
		p    Problem
		x0   []float64
		want error
	}{
		{"nil objective", Problem{}, []float64{0}, ErrNilFunc},
		{"nil constraint", Problem{Func: quad, Inequality: []Constraint{{}}}, []float64{0}, ErrNilFunc},
		{"empty start", Problem{Func: quad}, nil, ErrDimension},
		{"bounds mismatch", Problem{Func: quad, Bounds: []Bound{{0, 1}, {0, 1}}}, []float64{0}, ErrDimension},
		{"inverted bound", Problem{Func: quad, Bounds: []Bound{{1, 0}}}, []float64{0}, ErrBadBound},
		{"nan start", Problem{Func: quad}, []float64{math.NaN()}, ErrBadStart},
		{"too many variables", Problem{Func: quad}, make([]float64, 9), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Minimize(tt.p, tt.x0, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Optimization terminated successfully", Success.String())
	assert.Equal(t, "Iteration limit reached", IterationLimit.String())
	assert.Contains(t, Status(42).String(), "42")
	assert.Equal(t, "iteration_limit", IterationLimit.Label())
	assert.Equal(t, "unknown", Status(42).Label())
}

func TestSettingsDefaults(t *testing.T) {
	var s *Settings
	got := s.withDefaults()
	assert.Equal(t, *DefaultSettings(), got)

	got = (&Settings{MaxIter: 7}).withDefaults()
	assert.Equal(t, 7, got.MaxIter)
	assert.Equal(t, 1e-6, got.Tol)
}

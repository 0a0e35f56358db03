package rootfind

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func linear(x float64) (float64, float64) {
	return 2*x - 4, 2
}

func TestFindBracketed_EndpointExactRoot(t *testing.T) {
	x, err := FindBracketed(linear, 2, 0, 5, 6, 1e-9, 50)
	require.NoError(t, err)
	require.Equal(t, 2.0, x)

	x, err = FindBracketed(linear, -1, -6, 2, 0, 1e-9, 50)
	require.NoError(t, err)
	require.Equal(t, 2.0, x)
}

func TestFindBracketed_NoBracketFails(t *testing.T) {
	_, err := FindBracketed(linear, 3, 2, 5, 6, 1e-9, 50)
	require.ErrorIs(t, err, ErrNoBracket)
}

func TestFind_MonotoneNonlinear(t *testing.T) {
	f := func(x float64) (float64, float64) {
		return x*x*x - x - 2, 3*x*x - 1
	}
	x, err := Find(f, 1, 2, 1e-10, 100)
	require.NoError(t, err)
	y, _ := f(x)
	require.Less(t, math.Abs(y), 1e-8)
}

func TestFind_ZeroDerivativeFallsBackToBisection(t *testing.T) {
	f := func(x float64) (float64, float64) {
		return x*x*x - 0.5, 0
	}
	x, err := Find(f, 0, 1, 1e-9, 200)
	require.NoError(t, err)
	y, _ := f(x)
	require.Less(t, math.Abs(y), 1e-6)
}

func TestFind_MaxIterExhausted(t *testing.T) {
	f := func(x float64) (float64, float64) {
		return x - 0.50000000001, 1e-12
	}
	_, err := Find(f, 0, 1, 1e-15, 3)
	require.ErrorIs(t, err, ErrMaxIter)
}

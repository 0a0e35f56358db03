package prima

import (
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/mna"
	"github.com/opentiming/stacore/parasitic"
	"github.com/stretchr/testify/require"
)

func buildChainNetwork(t *testing.T) *parasitic.Network {
	t.Helper()
	net := parasitic.NewNetwork()
	mid := net.AddNode(1e-15)
	load := net.AddNode(2e-15)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, mid, 200))
	require.NoError(t, net.AddResistor(mid, load, 300))
	require.NoError(t, net.AttachLoad(graph.PinID(1), load))
	return net
}

func TestReduceProducesSystemOfExpectedOrder(t *testing.T) {
	net := buildChainNetwork(t)
	// An order-2 basis over two ports needs q*P = 4 states; the chain
	// alone has three (driver, mid, load), so add a fourth node.
	tap := net.AddNode(1e-15)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, tap, 100))
	sys, err := mna.Build(net, 2.0)
	require.NoError(t, err)

	red, err := Reduce(sys, 2)
	require.NoError(t, err)
	require.Equal(t, 2*sys.P, red.Sys.N)
	require.Equal(t, sys.P, red.Sys.P)
	rows, cols := red.V.Dims()
	require.Equal(t, sys.N, rows)
	require.Equal(t, 2*sys.P, cols)
}

func TestReduceRejectsOrderLargerThanSystem(t *testing.T) {
	net := buildChainNetwork(t)
	sys, err := mna.Build(net, 2.0)
	require.NoError(t, err)

	_, err = Reduce(sys, sys.N+1)
	require.ErrorIs(t, err, ErrOrderTooLarge)
}

func TestReducedBasisColumnsAreOrthonormal(t *testing.T) {
	net := buildChainNetwork(t)
	sys, err := mna.Build(net, 2.0)
	require.NoError(t, err)

	red, err := Reduce(sys, 1)
	require.NoError(t, err)
	_, cols := red.V.Dims()
	for i := 0; i < cols; i++ {
		for j := 0; j < cols; j++ {
			dot := 0.0
			rows, _ := red.V.Dims()
			for k := 0; k < rows; k++ {
				dot += red.V.At(k, i) * red.V.At(k, j)
			}
			if i == j {
				require.InDelta(t, 1.0, dot, 1e-6)
			} else {
				require.InDelta(t, 0.0, dot, 1e-6)
			}
		}
	}
}

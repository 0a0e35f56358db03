package dcalc

import (
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/stretchr/testify/require"
)

func TestPrimaCalculatorGateDelayRampsVoltage(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewPrimaCalculator(1)
	arc := &graph.TimingArc{GateModel: constantWaveformSet(1e-3)}

	out, err := c.GateDelay(DriverInput{
		Arc: arc, InSlew: 0.05, RF: graph.Rise,
		Caps: NetCaps{PinCap: 2e-15}, Parasitic: net, Loads: []graph.PinID{9},
	})
	require.NoError(t, err)
	require.Greater(t, out.GateDelay, 0.0)
	require.Len(t, out.Loads, 1)
	require.Equal(t, graph.PinID(9), out.Loads[0].Pin)
}

func TestPrimaCalculatorRejectsMissingParasitic(t *testing.T) {
	c := NewPrimaCalculator(1)
	arc := &graph.TimingArc{GateModel: constantWaveformSet(1e-3)}
	_, err := c.GateDelay(DriverInput{Arc: arc})
	require.ErrorIs(t, err, ErrNoParasitic)
}

func TestPrimaCalculatorFindParasiticConsultsWiredStore(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewPrimaCalculator(1)
	c.SetParasitics(func(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
		return net, nil
	})
	h, err := c.FindParasitic(9, graph.Rise, 0)
	require.NoError(t, err)
	require.Same(t, net, h)
}

func TestPrimaCalculatorCloneIsIndependent(t *testing.T) {
	c := NewPrimaCalculator(2)
	clone := c.Clone()
	require.NotSame(t, c, clone)
	require.Equal(t, c.Name(), clone.Name())
}

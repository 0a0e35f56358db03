package dcalc

import (
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
	"github.com/opentiming/stacore/parasitic"
	"github.com/stretchr/testify/require"
)

func buildCCSNetwork(t *testing.T, r, c float64, loadPin graph.PinID) *parasitic.Network {
	t.Helper()
	net := parasitic.NewNetwork()
	load := net.AddNode(c)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, load, r))
	require.NoError(t, net.AttachLoad(loadPin, load))
	return net
}

func constantWaveformSet(current float32) *nldm.CCSWaveformSet {
	return &nldm.CCSWaveformSet{Waveforms: []nldm.CCSWaveform{
		{InSlew: 0.05, LoadCap: 2e-15, Time: []float64{0, 1}, Current: []float64{float64(current), float64(current)}},
	}}
}

func TestCCSGateDelayRampsVoltageAndCrossesThresholds(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewCCSCalculator()
	arc := &graph.TimingArc{GateModel: constantWaveformSet(1e-3)}

	out, err := c.GateDelay(DriverInput{
		Arc: arc, InSlew: 0.05, RF: graph.Rise,
		Caps: NetCaps{PinCap: 2e-15}, Parasitic: net, Loads: []graph.PinID{9},
	})
	require.NoError(t, err)
	require.Greater(t, out.GateDelay, 0.0)
	require.Len(t, out.Loads, 1)
	require.Equal(t, graph.PinID(9), out.Loads[0].Pin)
	require.Greater(t, out.Loads[0].WireDelay, -out.GateDelay)
}

func TestCCSRejectsMissingWaveforms(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewCCSCalculator()
	arc := &graph.TimingArc{GateModel: nil}
	_, err := c.GateDelay(DriverInput{Arc: arc, Parasitic: net, Loads: []graph.PinID{9}})
	require.ErrorIs(t, err, ErrNoGateModel)
}

func TestCCSRejectsMissingParasitic(t *testing.T) {
	c := NewCCSCalculator()
	arc := &graph.TimingArc{GateModel: constantWaveformSet(1e-3)}
	_, err := c.GateDelay(DriverInput{Arc: arc})
	require.ErrorIs(t, err, ErrNoParasitic)
}

func TestCCSFindParasiticIsNoopByDefault(t *testing.T) {
	c := NewCCSCalculator()
	h, err := c.FindParasitic(1, graph.Rise, 0)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestCCSFindParasiticConsultsWiredStore(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewCCSCalculator()
	c.SetParasitics(func(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
		return net, nil
	})
	h, err := c.FindParasitic(9, graph.Rise, 0)
	require.NoError(t, err)
	require.Same(t, net, h)
}

func TestCCSReduceParasiticIsPassthrough(t *testing.T) {
	net := buildCCSNetwork(t, 100, 2e-15, 9)
	c := NewCCSCalculator()
	h, err := c.ReduceParasitic(net, graph.Rise, 0)
	require.NoError(t, err)
	require.Same(t, net, h)
}

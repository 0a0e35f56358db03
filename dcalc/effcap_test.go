package dcalc

import (
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
	"github.com/opentiming/stacore/parasitic"
	"github.com/stretchr/testify/require"
)

func flatArcModel(t *testing.T, delay, slew float32) *nldm.ArcModel {
	t.Helper()
	inSlew := []float32{0.01, 1.0}
	loadCap := []float32{0.01, 1.0}
	d, err := nldm.NewTable(inSlew, loadCap, [][]float32{{delay, delay}, {delay, delay}})
	require.NoError(t, err)
	s, err := nldm.NewTable(inSlew, loadCap, [][]float32{{slew, slew}, {slew, slew}})
	require.NoError(t, err)
	return &nldm.ArcModel{Delay: d, Slew: s}
}

func buildSingleLoadNet(t *testing.T, r, c float64) (*parasitic.Reduced, graph.PinID) {
	t.Helper()
	net := parasitic.NewNetwork()
	load := net.AddNode(c)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, load, r))
	const loadPin graph.PinID = 1
	require.NoError(t, net.AttachLoad(loadPin, load))
	red, err := parasitic.Reduce(net, parasitic.DefaultOptions())
	require.NoError(t, err)
	return red, loadPin
}

func TestEffCapGateDelayConvergesOnFlatTable(t *testing.T) {
	red, loadPin := buildSingleLoadNet(t, 100, 2e-15)
	c := NewEffCapCalculator(false)
	arc := &graph.TimingArc{GateModel: flatArcModel(t, 10, 5)}
	out, err := c.GateDelay(DriverInput{Arc: arc, InSlew: 0.05, Parasitic: red, Loads: []graph.PinID{loadPin}})
	require.NoError(t, err)
	require.InDelta(t, 10, out.GateDelay, 1e-9)
	require.InDelta(t, 5, out.DriverSlew, 1e-9)
	require.Len(t, out.Loads, 1)
	require.InDelta(t, red.Loads[loadPin].Elmore.Delay50(), out.Loads[0].WireDelay, 1e-9)
}

func TestEffCapFindParasiticIsNoopByDefault(t *testing.T) {
	c := NewEffCapCalculator(false)
	h, err := c.FindParasitic(1, graph.Rise, 0)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestEffCapFindParasiticConsultsWiredStore(t *testing.T) {
	red, loadPin := buildSingleLoadNet(t, 100, 2e-15)
	c := NewEffCapCalculator(false)
	c.SetParasitics(func(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
		require.Equal(t, loadPin, pin)
		return red, nil
	})
	h, err := c.FindParasitic(loadPin, graph.Rise, 0)
	require.NoError(t, err)
	require.Same(t, red, h)
}

func TestEffCapRejectsMissingParasitic(t *testing.T) {
	c := NewEffCapCalculator(false)
	arc := &graph.TimingArc{GateModel: flatArcModel(t, 10, 5)}
	_, err := c.GateDelay(DriverInput{Arc: arc})
	require.ErrorIs(t, err, ErrNoParasitic)
}

func TestEffCapTwoPoleModeUsesStepResponseCrossing(t *testing.T) {
	red, loadPin := buildSingleLoadNet(t, 100, 2e-15)
	c := NewEffCapCalculator(true)
	arc := &graph.TimingArc{GateModel: flatArcModel(t, 10, 5)}
	out, err := c.GateDelay(DriverInput{Arc: arc, InSlew: 0.05, Parasitic: red, Loads: []graph.PinID{loadPin}})
	require.NoError(t, err)
	require.Greater(t, out.Loads[0].WireDelay, 0.0)
}

func TestEffCapReduceParasiticPassesThroughReduced(t *testing.T) {
	red, _ := buildSingleLoadNet(t, 100, 2e-15)
	c := NewEffCapCalculator(false)
	h, err := c.ReduceParasitic(red, graph.Rise, 0)
	require.NoError(t, err)
	require.Same(t, red, h)
}

func TestEffCapReduceParasiticReducesNetwork(t *testing.T) {
	net := parasitic.NewNetwork()
	load := net.AddNode(1e-15)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, load, 50))
	require.NoError(t, net.AttachLoad(2, load))
	c := NewEffCapCalculator(false)
	h, err := c.ReduceParasitic(net, graph.Rise, 0)
	require.NoError(t, err)
	_, ok := h.(*parasitic.Reduced)
	require.True(t, ok)
}

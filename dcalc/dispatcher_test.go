package dcalc

import (
	"errors"
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/parasitic"
	"github.com/stretchr/testify/require"
)

var errAlwaysFail = errors.New("dcalc: always fails")

func buildDispatchGraph(t *testing.T, delay, slew float32) (*graph.Graph, graph.VertexID, graph.EdgeID, graph.EdgeID) {
	t.Helper()
	aps := graph.NewAPSet([]graph.AnalysisPoint{{Corner: "nom", Polarity: graph.Max}})
	g := graph.NewGraph(aps)

	pinIn := g.AddPin("A", "U1", graph.DirInput)
	netIn := g.AddNet("n0")
	require.NoError(t, g.Connect(pinIn, netIn))
	vIn := g.AddVertex(pinIn)
	pin, err := g.Pin(pinIn)
	require.NoError(t, err)
	pin.LoadVertex = vIn

	pinOut := g.AddPin("Y", "U1", graph.DirOutput)
	netOut := g.AddNet("n1")
	require.NoError(t, g.Connect(pinOut, netOut))
	vOut := g.AddVertex(pinOut)
	pin, err = g.Pin(pinOut)
	require.NoError(t, err)
	pin.DriverVertex = vOut
	vert, err := g.Vertex(vOut)
	require.NoError(t, err)
	vert.IsDriver = true

	pinLoad := g.AddPin("A", "U2", graph.DirInput)
	require.NoError(t, g.Connect(pinLoad, netOut))
	vLoad := g.AddVertex(pinLoad)
	pin, err = g.Pin(pinLoad)
	require.NoError(t, err)
	pin.LoadVertex = vLoad

	arcSet := &graph.TimingArcSet{FromPort: "A", ToPort: "Y", Arcs: []graph.TimingArc{
		{Index: 0, FromRF: graph.Rise, ToRF: graph.Rise, Role: graph.RoleCombinational, GateModel: flatArcModel(t, delay, slew)},
		{Index: 1, FromRF: graph.Fall, ToRF: graph.Fall, Role: graph.RoleCombinational, GateModel: flatArcModel(t, delay, slew)},
	}}
	cellEdge, err := g.AddEdge(graph.EdgeCellArc, vIn, vOut, netIn, arcSet)
	require.NoError(t, err)
	wireEdge, err := g.AddEdge(graph.EdgeWire, vOut, vLoad, netOut, nil)
	require.NoError(t, err)

	return g, vOut, cellEdge, wireEdge
}

func flatNetCaps(graph.PinID, graph.RiseFall, int) NetCaps {
	return NetCaps{PinCap: 0.01}
}

func TestDispatchDriverAnnotatesSlewAndWireDelay(t *testing.T) {
	g, vOut, cellEdge, wireEdge := buildDispatchGraph(t, 10, 5)
	d := NewDispatcher(NewLumpedCapCalculator(), flatNetCaps)

	_, err := d.DispatchDriver(g, vOut, []graph.EdgeID{cellEdge}, 1)
	require.NoError(t, err)

	vert, err := g.Vertex(vOut)
	require.NoError(t, err)
	require.Equal(t, 5.0, vert.Slews.Get(graph.Rise, 0))
	require.Equal(t, 5.0, vert.Slews.Get(graph.Fall, 0))

	edge, err := g.Edge(wireEdge)
	require.NoError(t, err)
	require.True(t, edge.HasWireDelay(graph.Rise, 0))
	require.Equal(t, 10.0, edge.WireDelay(graph.Rise, 0))
	require.Equal(t, 5.0, edge.LoadSlew(graph.Rise, 0))
}

func TestDispatchDriverRejectsNonDriverVertex(t *testing.T) {
	g, _, cellEdge, _ := buildDispatchGraph(t, 10, 5)
	loadVertex := graph.VertexID(0) // vIn, a load vertex, not a driver
	d := NewDispatcher(NewLumpedCapCalculator(), flatNetCaps)
	_, err := d.DispatchDriver(g, loadVertex, []graph.EdgeID{cellEdge}, 1)
	require.ErrorIs(t, err, ErrDriverVertex)
}

func TestDispatchDriverFallsBackToDefaultOnFailure(t *testing.T) {
	g, vOut, cellEdge, wireEdge := buildDispatchGraph(t, 10, 5)
	d := NewDispatcher(alwaysFailCalculator{}, flatNetCaps)

	_, err := d.DispatchDriver(g, vOut, []graph.EdgeID{cellEdge}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, d.Failures())

	edge, err := g.Edge(wireEdge)
	require.NoError(t, err)
	require.Equal(t, 10.0, edge.WireDelay(graph.Rise, 0))
}

// TestDispatchDriverResolvesParasiticThroughWiredStore exercises the
// real Dispatcher path (not a hand-constructed DriverInput) for a
// calculator that needs a parasitic model: FindParasitic must resolve
// one through the wired ParasiticFunc, and ReduceParasitic must run on
// it, for the calculator to avoid falling back to the default
// lumped-cap calculator.
func TestDispatchDriverResolvesParasiticThroughWiredStore(t *testing.T) {
	g, vOut, cellEdge, wireEdge := buildDispatchGraph(t, 10, 5)
	drvVert, err := g.Vertex(vOut)
	require.NoError(t, err)
	wire, err := g.Edge(wireEdge)
	require.NoError(t, err)
	loadVert, err := g.Vertex(wire.To)
	require.NoError(t, err)

	net := parasitic.NewNetwork()
	node := net.AddNode(2e-15)
	require.NoError(t, net.AddResistor(parasitic.DriverNode, node, 100))
	require.NoError(t, net.AttachLoad(loadVert.PinID, node))

	calc := NewEffCapCalculator(false)
	calc.SetParasitics(func(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
		require.Equal(t, drvVert.PinID, pin)
		return net, nil
	})

	d := NewDispatcher(calc, flatNetCaps)
	_, err = d.DispatchDriver(g, vOut, []graph.EdgeID{cellEdge}, 1)
	require.NoError(t, err)
	require.Empty(t, d.Failures())

	wire, err = g.Edge(wireEdge)
	require.NoError(t, err)
	require.True(t, wire.HasWireDelay(graph.Rise, 0))
	// Gate delay (10, from the flat NLDM table) plus a strictly
	// positive RC wire delay, not the lumped-cap fallback's exact 10.
	require.Greater(t, wire.WireDelay(graph.Rise, 0), 10.0)
}

type alwaysFailCalculator struct{}

func (alwaysFailCalculator) Name() string { return "always-fail" }
func (alwaysFailCalculator) GateDelay(DriverInput) (DriverOutput, error) {
	return DriverOutput{}, errAlwaysFail
}
func (alwaysFailCalculator) GateDelays(ins []DriverInput) ([]DriverOutput, error) {
	return nil, errAlwaysFail
}
func (alwaysFailCalculator) FindParasitic(graph.PinID, graph.RiseFall, int) (interface{}, error) {
	return nil, nil
}
func (alwaysFailCalculator) ReduceParasitic(h interface{}, _ graph.RiseFall, _ int) (interface{}, error) {
	return h, nil
}
func (alwaysFailCalculator) FinishDriverPin() {}
func (alwaysFailCalculator) Clone() Calculator { return alwaysFailCalculator{} }

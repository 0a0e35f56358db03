package sched

import (
	"sync"
	"testing"

	"github.com/opentiming/stacore/dcalc"
	"github.com/opentiming/stacore/graph"
	"github.com/stretchr/testify/require"
)

// buildChainGraph builds IN -> U1(A->Y) -> U2(B->Z) -> OUT, a two-
// combinational-stage chain with a true primary input and output, to
// exercise levelization and cross-stage slew propagation.
func buildChainGraph(t *testing.T) (g *graph.Graph, vIn, vU1Y, vU2Z graph.VertexID, wireInU1, wireU1U2, wireU2Out graph.EdgeID) {
	t.Helper()
	aps := graph.NewAPSet([]graph.AnalysisPoint{{Corner: "nom", Polarity: graph.Max}})
	g = graph.NewGraph(aps)

	pinIn := g.AddPin("IN", "top", graph.DirOutput)
	netA := g.AddNet("n0")
	require.NoError(t, g.Connect(pinIn, netA))
	vIn = g.AddVertex(pinIn)
	pin, err := g.Pin(pinIn)
	require.NoError(t, err)
	pin.DriverVertex = vIn
	vert, err := g.Vertex(vIn)
	require.NoError(t, err)
	vert.IsDriver = true
	vert.IsRoot = true
	vert.Slews.SetAnnotated(graph.Rise, 0, 0.02)
	vert.Slews.SetAnnotated(graph.Fall, 0, 0.02)

	pinU1A := g.AddPin("A", "U1", graph.DirInput)
	require.NoError(t, g.Connect(pinU1A, netA))
	vU1A := g.AddVertex(pinU1A)
	pin, err = g.Pin(pinU1A)
	require.NoError(t, err)
	pin.LoadVertex = vU1A
	wireInU1, err = g.AddEdge(graph.EdgeWire, vIn, vU1A, netA, nil)
	require.NoError(t, err)

	pinU1Y := g.AddPin("Y", "U1", graph.DirOutput)
	netB := g.AddNet("n1")
	require.NoError(t, g.Connect(pinU1Y, netB))
	vU1Y = g.AddVertex(pinU1Y)
	pin, err = g.Pin(pinU1Y)
	require.NoError(t, err)
	pin.DriverVertex = vU1Y
	vert, err = g.Vertex(vU1Y)
	require.NoError(t, err)
	vert.IsDriver = true
	arcSet1 := &graph.TimingArcSet{FromPort: "A", ToPort: "Y", Arcs: []graph.TimingArc{
		{Index: 0, FromRF: graph.Rise, ToRF: graph.Rise, Role: graph.RoleCombinational},
		{Index: 1, FromRF: graph.Fall, ToRF: graph.Fall, Role: graph.RoleCombinational},
	}}
	_, err = g.AddEdge(graph.EdgeCellArc, vU1A, vU1Y, netA, arcSet1)
	require.NoError(t, err)

	pinU2B := g.AddPin("B", "U2", graph.DirInput)
	require.NoError(t, g.Connect(pinU2B, netB))
	vU2B := g.AddVertex(pinU2B)
	pin, err = g.Pin(pinU2B)
	require.NoError(t, err)
	pin.LoadVertex = vU2B
	wireU1U2, err = g.AddEdge(graph.EdgeWire, vU1Y, vU2B, netB, nil)
	require.NoError(t, err)

	pinU2Z := g.AddPin("Z", "U2", graph.DirOutput)
	netC := g.AddNet("n2")
	require.NoError(t, g.Connect(pinU2Z, netC))
	vU2Z = g.AddVertex(pinU2Z)
	pin, err = g.Pin(pinU2Z)
	require.NoError(t, err)
	pin.DriverVertex = vU2Z
	vert, err = g.Vertex(vU2Z)
	require.NoError(t, err)
	vert.IsDriver = true
	arcSet2 := &graph.TimingArcSet{FromPort: "B", ToPort: "Z", Arcs: []graph.TimingArc{
		{Index: 0, FromRF: graph.Rise, ToRF: graph.Rise, Role: graph.RoleCombinational},
		{Index: 1, FromRF: graph.Fall, ToRF: graph.Fall, Role: graph.RoleCombinational},
	}}
	_, err = g.AddEdge(graph.EdgeCellArc, vU2B, vU2Z, netB, arcSet2)
	require.NoError(t, err)

	pinOut := g.AddPin("OUT", "top", graph.DirInput)
	require.NoError(t, g.Connect(pinOut, netC))
	vOut := g.AddVertex(pinOut)
	pin, err = g.Pin(pinOut)
	require.NoError(t, err)
	pin.LoadVertex = vOut
	wireU2Out, err = g.AddEdge(graph.EdgeWire, vU2Z, vOut, netC, nil)
	require.NoError(t, err)

	return g, vIn, vU1Y, vU2Z, wireInU1, wireU1U2, wireU2Out
}

func zeroNetCaps(graph.PinID, graph.RiseFall, int) dcalc.NetCaps { return dcalc.NetCaps{} }

func TestLevelizeOrdersChainByDependency(t *testing.T) {
	g, vIn, vU1Y, vU2Z, _, _, _ := buildChainGraph(t)
	lz := levelize(g)

	inVert, err := g.Vertex(vIn)
	require.NoError(t, err)
	y1Vert, err := g.Vertex(vU1Y)
	require.NoError(t, err)
	z2Vert, err := g.Vertex(vU2Z)
	require.NoError(t, err)

	require.Less(t, inVert.Level, y1Vert.Level)
	require.Less(t, y1Vert.Level, z2Vert.Level)

	// vIn is a driver vertex but has no incoming cell arc, so it must
	// not appear in any driverLevels frontier.
	for _, lvl := range lz.driverLevels {
		for _, v := range lvl {
			require.NotEqual(t, vIn, v)
		}
	}

	foundY1, foundZ2 := false, false
	for _, lvl := range lz.driverLevels {
		for _, v := range lvl {
			if v == vU1Y {
				foundY1 = true
			}
			if v == vU2Z {
				foundZ2 = true
			}
		}
	}
	require.True(t, foundY1)
	require.True(t, foundZ2)
}

func TestSchedulerRecomputePropagatesSlewAcrossStages(t *testing.T) {
	g, vIn, _, _, wireInU1, wireU1U2, wireU2Out := buildChainGraph(t)
	dispatcher := dcalc.NewDispatcher(dcalc.NewUnitCalculator(), zeroNetCaps)
	s := New(g, dispatcher, 1, 1)

	require.NoError(t, s.Recompute(Unlimited))

	// The unit calculator never touches the primary-input wire edge
	// (vIn isn't dispatched), so the annotated input slew survives.
	inVert, err := g.Vertex(vIn)
	require.NoError(t, err)
	require.Equal(t, 0.02, inVert.Slews.Get(graph.Rise, 0))

	u1u2, err := g.Edge(wireU1U2)
	require.NoError(t, err)
	require.True(t, u1u2.HasWireDelay(graph.Rise, 0))
	require.Equal(t, 1.0, u1u2.WireDelay(graph.Rise, 0))

	u2out, err := g.Edge(wireU2Out)
	require.NoError(t, err)
	require.True(t, u2out.HasWireDelay(graph.Rise, 0))
	require.Equal(t, 1.0, u2out.WireDelay(graph.Rise, 0))

	_, err = g.Edge(wireInU1)
	require.NoError(t, err)
}

func TestSchedulerRecomputeWithMultipleThreads(t *testing.T) {
	g, _, _, _, _, wireU1U2, wireU2Out := buildChainGraph(t)
	dispatcher := dcalc.NewDispatcher(dcalc.NewUnitCalculator(), zeroNetCaps)
	s := New(g, dispatcher, 1, 4)
	s.StartThreads()
	defer s.StopThreads()

	require.NoError(t, s.Recompute(Unlimited))

	u1u2, err := g.Edge(wireU1U2)
	require.NoError(t, err)
	require.Equal(t, 1.0, u1u2.WireDelay(graph.Rise, 0))

	u2out, err := g.Edge(wireU2Out)
	require.NoError(t, err)
	require.Equal(t, 1.0, u2out.WireDelay(graph.Rise, 0))
}

func TestSchedulerInvalidateLimitsRecomputeToDirtySet(t *testing.T) {
	g, _, vU1Y, _, _, wireU1U2, wireU2Out := buildChainGraph(t)
	dispatcher := dcalc.NewDispatcher(dcalc.NewUnitCalculator(), zeroNetCaps)
	s := New(g, dispatcher, 1, 1)
	require.NoError(t, s.Recompute(Unlimited))

	var touched []graph.EdgeID
	dispatcher.Observer = func(edge graph.EdgeID, _ graph.RiseFall, _ int, _ float64) {
		touched = append(touched, edge)
	}

	s.Invalidate(vU1Y)
	require.NoError(t, s.Recompute(Unlimited))

	require.Contains(t, touched, wireU1U2)
	require.NotContains(t, touched, wireU2Out)
}

func TestSchedulerClearResetsAnnotations(t *testing.T) {
	g, _, _, _, _, wireU1U2, _ := buildChainGraph(t)
	dispatcher := dcalc.NewDispatcher(dcalc.NewUnitCalculator(), zeroNetCaps)
	s := New(g, dispatcher, 1, 1)
	require.NoError(t, s.Recompute(Unlimited))

	s.Clear()

	u1u2, err := g.Edge(wireU1U2)
	require.NoError(t, err)
	require.False(t, u1u2.HasWireDelay(graph.Rise, 0))
}

// buildParallelDriveGraph builds IN -> {U1(A->Y), U2(A->Y)} -> shared,
// both driving the same "shared" net from a common input, each with
// its own wire edge out to a single downstream load OUT. Exercises a
// parallel-drive multi-driver net (spec.md §4.7): two physical gates
// tied together onto one net, each keeping its own output wire edge.
func buildParallelDriveGraph(t *testing.T) (g *graph.Graph, netShared graph.NetID, vU1Y, vU2Y graph.VertexID, wireU1Out, wireU2Out graph.EdgeID) {
	t.Helper()
	aps := graph.NewAPSet([]graph.AnalysisPoint{{Corner: "nom", Polarity: graph.Max}})
	g = graph.NewGraph(aps)

	pinIn := g.AddPin("IN", "top", graph.DirOutput)
	netIn := g.AddNet("n0")
	require.NoError(t, g.Connect(pinIn, netIn))
	vIn := g.AddVertex(pinIn)
	pin, err := g.Pin(pinIn)
	require.NoError(t, err)
	pin.DriverVertex = vIn
	vert, err := g.Vertex(vIn)
	require.NoError(t, err)
	vert.IsDriver = true
	vert.IsRoot = true
	vert.Slews.SetAnnotated(graph.Rise, 0, 0.02)
	vert.Slews.SetAnnotated(graph.Fall, 0, 0.02)

	netShared = g.AddNet("shared")

	buildDriver := func(inst string) (vA, vY graph.VertexID) {
		pinA := g.AddPin("A", inst, graph.DirInput)
		require.NoError(t, g.Connect(pinA, netIn))
		vA = g.AddVertex(pinA)
		pin, err := g.Pin(pinA)
		require.NoError(t, err)
		pin.LoadVertex = vA
		_, err = g.AddEdge(graph.EdgeWire, vIn, vA, netIn, nil)
		require.NoError(t, err)

		pinY := g.AddPin("Y", inst, graph.DirOutput)
		require.NoError(t, g.Connect(pinY, netShared))
		vY = g.AddVertex(pinY)
		pin, err = g.Pin(pinY)
		require.NoError(t, err)
		pin.DriverVertex = vY
		driverVert, err := g.Vertex(vY)
		require.NoError(t, err)
		driverVert.IsDriver = true
		arcSet := &graph.TimingArcSet{FromPort: "A", ToPort: "Y", Arcs: []graph.TimingArc{
			{Index: 0, FromRF: graph.Rise, ToRF: graph.Rise, Role: graph.RoleCombinational},
			{Index: 1, FromRF: graph.Fall, ToRF: graph.Fall, Role: graph.RoleCombinational},
		}}
		_, err = g.AddEdge(graph.EdgeCellArc, vA, vY, netIn, arcSet)
		require.NoError(t, err)
		return vA, vY
	}

	_, vU1Y = buildDriver("U1")
	_, vU2Y = buildDriver("U2")

	pinOut := g.AddPin("OUT", "top", graph.DirInput)
	require.NoError(t, g.Connect(pinOut, netShared))
	vOut := g.AddVertex(pinOut)
	pin, err = g.Pin(pinOut)
	require.NoError(t, err)
	pin.LoadVertex = vOut

	wireU1Out, err = g.AddEdge(graph.EdgeWire, vU1Y, vOut, netShared, nil)
	require.NoError(t, err)
	wireU2Out, err = g.AddEdge(graph.EdgeWire, vU2Y, vOut, netShared, nil)
	require.NoError(t, err)

	return g, netShared, vU1Y, vU2Y, wireU1Out, wireU2Out
}

// recordingCalculator is a bare-bones Calculator that records the
// batches GateDelays is asked to solve together, so a test can confirm
// a parallel-drive group's members were actually dispatched as one
// batch rather than independently.
type recordingCalculator struct {
	mu      sync.Mutex
	batches [][]dcalc.DriverInput
}

func (c *recordingCalculator) Name() string { return "recording" }

func (c *recordingCalculator) GateDelay(in dcalc.DriverInput) (dcalc.DriverOutput, error) {
	out, err := c.GateDelays([]dcalc.DriverInput{in})
	if err != nil {
		return dcalc.DriverOutput{}, err
	}
	return out[0], nil
}

func (c *recordingCalculator) GateDelays(ins []dcalc.DriverInput) ([]dcalc.DriverOutput, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]dcalc.DriverInput(nil), ins...))
	c.mu.Unlock()

	out := make([]dcalc.DriverOutput, len(ins))
	for i, in := range ins {
		loads := make([]dcalc.LoadResult, len(in.Loads))
		for j, pin := range in.Loads {
			loads[j] = dcalc.LoadResult{Pin: pin, Slew: 2}
		}
		out[i] = dcalc.DriverOutput{GateDelay: 1, DriverSlew: 2, Loads: loads}
	}
	return out, nil
}

func (c *recordingCalculator) FindParasitic(graph.PinID, graph.RiseFall, int) (interface{}, error) {
	return nil, nil
}

func (c *recordingCalculator) ReduceParasitic(h interface{}, _ graph.RiseFall, _ int) (interface{}, error) {
	return h, nil
}

func (c *recordingCalculator) FinishDriverPin() {}

func (c *recordingCalculator) Clone() dcalc.Calculator { return c }

func TestSchedulerParallelDriveBatchesPrimaryOnly(t *testing.T) {
	g, netShared, vU1Y, vU2Y, wireU1Out, wireU2Out := buildParallelDriveGraph(t)

	// Assign real vertex levels before the MultiDriverRecord is built,
	// so Primary is picked from settled levels rather than the zero
	// value every vertex starts at.
	levelize(g)
	rec := g.MultiDriver(netShared)
	require.NotNil(t, rec)
	rec.ParallelDrive = true

	calc := &recordingCalculator{}
	dispatcher := dcalc.NewDispatcher(calc, zeroNetCaps)
	s := New(g, dispatcher, 1, 1)
	require.NoError(t, s.Recompute(Unlimited))

	// One batched GateDelays call per (rise, fall), each carrying both
	// group members' DriverInput together.
	require.Len(t, calc.batches, 2)
	for _, batch := range calc.batches {
		require.Len(t, batch, 2)
	}

	primaryWire, secondaryWire := wireU1Out, wireU2Out
	secondaryVertID := vU2Y
	if rec.Primary == vU2Y {
		primaryWire, secondaryWire = wireU2Out, wireU1Out
		secondaryVertID = vU1Y
	}

	pe, err := g.Edge(primaryWire)
	require.NoError(t, err)
	require.True(t, pe.HasWireDelay(graph.Rise, 0))
	require.Equal(t, 1.0, pe.WireDelay(graph.Rise, 0))

	// The secondary's own wire edge is never in the primary's load set
	// (dcalc.Dispatcher.loadsOf only walks the primary's OutEdges), so
	// it stays untouched.
	se, err := g.Edge(secondaryWire)
	require.NoError(t, err)
	require.False(t, se.HasWireDelay(graph.Rise, 0))

	primaryVert, err := g.Vertex(rec.Primary)
	require.NoError(t, err)
	require.Equal(t, 2.0, primaryVert.Slews.Get(graph.Rise, 0))

	secondaryVert, err := g.Vertex(secondaryVertID)
	require.NoError(t, err)
	require.Equal(t, 2.0, secondaryVert.Slews.Get(graph.Rise, 0))
}

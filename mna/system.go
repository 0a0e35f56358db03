package mna

import (
	"errors"
	"sort"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/parasitic"
	"gonum.org/v1/gonum/mat"
)

// ErrNoPorts is returned when a System is built with no ports to
// drive or measure.
var ErrNoPorts = errors.New("mna: system has no ports")

// System is one net's modified-nodal-analysis model: `G x(t) + C
// x'(t) = B u(t)` (spec.md §4.5 "Build phase").
//
// Node 0..P-1 are ports (index 0 is always the driver); P..N-1 are
// internal subnodes. PortNode[i] recovers a port's originating
// parasitic.NodeID; internal subnodes are mapped only in the
// unexported node index.
type System struct {
	N, P int
	G    *mat.Dense // NxN conductance matrix
	C    *mat.Dense // NxN diagonal capacitance matrix
	B    *mat.Dense // NxP input-injection matrix ("B u(t)" in spec.md §4.5/§4.6)

	PortNode   []parasitic.NodeID // length P, PortNode[0] is the driver
	PortPin    []graph.PinID      // length P, PortPin[0] is invalid (driver has no load pin)
	nodeIndex  map[parasitic.NodeID]int
	minBranchR float64 // smallest branch resistance, for Δt sizing
	minRC      float64 // min over branches of r*c at either endpoint
}

// Build stamps a System from a parasitic.Network: ports are the
// driver node followed by every load node (sorted by pin id for
// determinism), and every other node is an internal subnode
// (spec.md §4.5 "Enumerate parasitic nodes ... Ports ⊂ [0,P)").
func Build(net *parasitic.Network, couplingMultiplier float64) (*System, error) {
	if len(net.Loads) == 0 {
		return nil, ErrNoPorts
	}
	caps := parasitic.FoldedCaps(net, couplingMultiplier)

	pins := make([]graph.PinID, 0, len(net.Loads))
	for pin := range net.Loads {
		pins = append(pins, pin)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })

	portNode := make([]parasitic.NodeID, 0, 1+len(pins))
	portPin := make([]graph.PinID, 0, 1+len(pins))
	portNode = append(portNode, parasitic.DriverNode)
	portPin = append(portPin, graph.InvalidID)
	for _, pin := range pins {
		portNode = append(portNode, net.Loads[pin])
		portPin = append(portPin, pin)
	}

	isPort := make(map[parasitic.NodeID]bool, len(portNode))
	for _, n := range portNode {
		isPort[n] = true
	}

	nodeIndex := make(map[parasitic.NodeID]int, len(net.Nodes))
	for i, n := range portNode {
		nodeIndex[n] = i
	}
	next := len(portNode)
	for _, node := range net.Nodes {
		if isPort[node.ID] {
			continue
		}
		nodeIndex[node.ID] = next
		next++
	}

	n := len(net.Nodes)
	g := mat.NewDense(n, n, nil)
	c := mat.NewDense(n, n, nil)
	for _, node := range net.Nodes {
		c.Set(nodeIndex[node.ID], nodeIndex[node.ID], caps[node.ID])
	}

	bMat := mat.NewDense(n, len(portNode), nil)
	for i := range portNode {
		bMat.Set(i, i, 1)
	}

	minR := 0.0
	minRC := 0.0
	for _, b := range net.Branches {
		if b.R <= 0 {
			continue
		}
		i, j := nodeIndex[b.N1], nodeIndex[b.N2]
		cond := 1 / b.R
		g.Set(i, i, g.At(i, i)+cond)
		g.Set(j, j, g.At(j, j)+cond)
		g.Set(i, j, g.At(i, j)-cond)
		g.Set(j, i, g.At(j, i)-cond)

		if minR == 0 || b.R < minR {
			minR = b.R
		}
		rc1 := b.R * caps[b.N1]
		rc2 := b.R * caps[b.N2]
		for _, rc := range []float64{rc1, rc2} {
			if rc > 0 && (minRC == 0 || rc < minRC) {
				minRC = rc
			}
		}
	}

	return &System{
		N: n, P: len(portNode),
		G: g, C: c, B: bMat,
		PortNode: portNode, PortPin: portPin,
		nodeIndex:  nodeIndex,
		minBranchR: minR, minRC: minRC,
	}, nil
}

// SuggestedStep returns the Δt the backward-Euler stepper should start
// from: a fraction of the fastest local RC (spec.md §4.5 "Δt adapts
// from a fraction of the fastest local RC").
func (s *System) SuggestedStep(fraction float64) float64 {
	if s.minRC <= 0 {
		return 1e-12
	}
	return fraction * s.minRC
}

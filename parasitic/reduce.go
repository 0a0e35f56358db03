package parasitic

import (
	"errors"

	"github.com/opentiming/stacore/graph"
)

// ErrDisconnectedLoad is returned when a load pin's node is not
// reachable from the driver node over resistor branches.
var ErrDisconnectedLoad = errors.New("parasitic: load node unreachable from driver")

// Reduced is the full output of reduce_parasitic (spec.md §4.8): the
// driver-side π model plus, per load pin, its Elmore and two-pole
// fits.
type Reduced struct {
	Pi    PiModel
	Loads map[graph.PinID]LoadResponse
}

// LoadResponse bundles the two wire-response models a load pin can be
// queried under (spec.md §4.4: Elmore mode vs two-pole mode).
type LoadResponse struct {
	Elmore  ElmoreTau
	TwoPole TwoPole
}

// Options configures the reduction's two tunables that have no single
// correct value (spec.md §6 "coupling-cap multiplier"). The calculators
// in package dcalc always reduce with DefaultOptions; config.Config's
// coupling-cap multiplier is not passed into Options.
type Options struct {
	// CouplingMultiplier scales a coupling cap's contribution when it
	// is folded into its endpoints' self-capacitance. 2.0 is the
	// conservative Miller-effect default; 1.0 folds it at face value.
	CouplingMultiplier float64
	// NearCapFraction is the share of the net's total capacitance
	// placed at C2 (near the driver) in the reduced π model. The
	// remainder forms C1. This package does not perform full 3-moment
	// driving-point admittance matching (see DESIGN.md); the split is
	// governed by this fraction, with the resistance chosen so that R
	// times the total capacitance equals the network's
	// capacitance-weighted average Elmore delay.
	NearCapFraction float64
}

// DefaultOptions returns the reduction defaults used when a config
// does not override them.
func DefaultOptions() Options {
	return Options{CouplingMultiplier: 2.0, NearCapFraction: 0.5}
}

// Reduce implements reduce_parasitic: folds coupling caps into
// self-caps, builds a rooted spanning tree from the driver, computes
// capacitance moments by post-order sum, and derives the π model and
// per-load Elmore/two-pole fits (spec.md §4.8).
func Reduce(net *Network, opts Options) (*Reduced, error) {
	caps := foldCoupling(net, opts.CouplingMultiplier)
	tree, err := buildSpanningTree(net)
	if err != nil {
		return nil, err
	}

	y0 := postorderSum(tree, caps)
	elmore := preorderElmore(tree, y0)
	m1 := make([]float64, len(elmore))
	for i, e := range elmore {
		m1[i] = -e
	}
	y1 := postorderY1(tree, caps, m1)
	m2 := preorderM2(tree, y1)

	total := y0[DriverNode]
	avgElmore := 0.0
	if total > 0 {
		for i, c := range caps {
			avgElmore += c * elmore[i]
		}
		avgElmore /= total
	}
	rPi := 0.0
	if total > 0 {
		rPi = avgElmore / total
	}
	c2 := total * opts.NearCapFraction
	c1 := total - c2

	reduced := &Reduced{
		Pi:    PiModel{C2: c2, R: rPi, C1: c1},
		Loads: make(map[graph.PinID]LoadResponse, len(net.Loads)),
	}
	for pin, node := range net.Loads {
		reduced.Loads[pin] = LoadResponse{
			Elmore:  ElmoreTau{Tau: elmore[node]},
			TwoPole: twoPoleFromMoments(m1[node], m2[node]),
		}
	}
	return reduced, nil
}

// FoldedCaps returns the per-node effective self-capacitance after
// folding coupling caps at the given multiplier, for callers (package
// mna) that need the network's node capacitances without running the
// full spanning-tree reduction.
func FoldedCaps(net *Network, multiplier float64) []float64 {
	return foldCoupling(net, multiplier)
}

// foldCoupling returns a per-node effective self-capacitance with
// every coupling cap's (multiplier * C) added to both its endpoints,
// per spec.md §4.8 "cutting coupling caps by folding them into
// self-caps with a coupling-cap multiplier".
func foldCoupling(net *Network, multiplier float64) []float64 {
	caps := make([]float64, len(net.Nodes))
	for _, n := range net.Nodes {
		caps[n.ID] = n.Cap
	}
	for _, cc := range net.Coupling {
		caps[cc.N1] += multiplier * cc.C
		caps[cc.N2] += multiplier * cc.C
	}
	return caps
}

// spanningTree is a rooted-at-driver tree over a Network's nodes,
// recording each non-root node's parent and the resistance of the
// edge to it.
type spanningTree struct {
	parent   []NodeID // parent[DriverNode] is unused
	parentR  []float64
	children [][]NodeID
	order    []NodeID // BFS order, root first: a valid post/pre-order traversal base
}

// buildSpanningTree runs a BFS from DriverNode over the network's
// resistor branches (treated as undirected), discarding any branch
// that would close a cycle. Real extracted nets are trees by
// construction (Steiner-routed wire segments); a cycle indicates a
// loop in the input and is broken arbitrarily by BFS discovery order.
func buildSpanningTree(net *Network) (*spanningTree, error) {
	n := len(net.Nodes)
	adj := make([][]Branch, n)
	for _, b := range net.Branches {
		adj[b.N1] = append(adj[b.N1], b)
		adj[b.N2] = append(adj[b.N2], Branch{N1: b.N2, N2: b.N1, R: b.R})
	}

	visited := make([]bool, n)
	parent := make([]NodeID, n)
	parentR := make([]float64, n)
	children := make([][]NodeID, n)
	order := make([]NodeID, 0, n)

	queue := []NodeID{DriverNode}
	visited[DriverNode] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, b := range adj[cur] {
			if visited[b.N2] {
				continue
			}
			visited[b.N2] = true
			parent[b.N2] = cur
			parentR[b.N2] = b.R
			children[cur] = append(children[cur], b.N2)
			queue = append(queue, b.N2)
		}
	}

	for _, load := range net.Loads {
		if !visited[load] {
			return nil, ErrDisconnectedLoad
		}
	}
	return &spanningTree{parent: parent, parentR: parentR, children: children, order: order}, nil
}

// postorderSum computes, for every node, the total self-capacitance
// of its own subtree: Cdown(i) = c_i + Σ children Cdown(child)
// (spec.md §4.8 "C at each node = local c + Σ children's C").
func postorderSum(t *spanningTree, caps []float64) []float64 {
	down := make([]float64, len(caps))
	for k := len(t.order) - 1; k >= 0; k-- {
		i := t.order[k]
		down[i] = caps[i]
		for _, c := range t.children[i] {
			down[i] += down[c]
		}
	}
	return down
}

// preorderElmore computes each node's Elmore delay relative to the
// driver: delay(root)=0, delay(i) = delay(parent) + R(parent,i) *
// Cdown(i).
func preorderElmore(t *spanningTree, down []float64) []float64 {
	delay := make([]float64, len(down))
	for _, i := range t.order {
		if i == DriverNode {
			continue
		}
		delay[i] = delay[t.parent[i]] + t.parentR[i]*down[i]
	}
	return delay
}

// postorderY1 computes the RICE first current-moment y1(i) = c_i *
// m1(i) + Σ children y1(child), used only to feed the second voltage
// moment below.
func postorderY1(t *spanningTree, caps []float64, m1 []float64) []float64 {
	y1 := make([]float64, len(caps))
	for k := len(t.order) - 1; k >= 0; k-- {
		i := t.order[k]
		y1[i] = caps[i] * m1[i]
		for _, c := range t.children[i] {
			y1[i] += y1[c]
		}
	}
	return y1
}

// preorderM2 computes each node's second voltage-transfer moment:
// m2(root)=0, m2(i) = m2(parent) - R(parent,i) * y1(i).
func preorderM2(t *spanningTree, y1 []float64) []float64 {
	m2 := make([]float64, len(y1))
	for _, i := range t.order {
		if i == DriverNode {
			continue
		}
		m2[i] = m2[t.parent[i]] - t.parentR[i]*y1[i]
	}
	return m2
}

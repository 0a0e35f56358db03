package parasitic

import (
	"errors"

	"github.com/opentiming/stacore/graph"
)

// ErrUnknownNode is returned when a branch or coupling cap names a
// NodeID the Network never allocated.
var ErrUnknownNode = errors.New("parasitic: unknown node id")

// NodeID indexes into Network.nodes. Node 0 is always the driver's
// own node.
type NodeID int

// DriverNode is the fixed id of the node the net's driver pin sits on.
const DriverNode NodeID = 0

// Node is one point on the RC tree: a pin terminal, a wire junction,
// or a Steiner point, each carrying its own lumped self-capacitance
// (spec.md §3 "Parasitic" - "RC Network: an arena of nodes").
type Node struct {
	ID  NodeID
	Cap float64 // farads, self-capacitance to ground
}

// Branch is a resistor between two nodes of the same net.
type Branch struct {
	N1, N2 NodeID
	R      float64 // ohms
}

// CouplingCap is a capacitor between a node of this net and a node
// believed to belong to a different, aggressor net. Network reduction
// folds it into both endpoints' self-capacitance scaled by a
// configurable multiplier rather than modeling cross-net coupling
// directly (spec.md §6 "coupling_cap_multiplier").
type CouplingCap struct {
	N1, N2 NodeID
	C      float64
}

// Network is one net's full parasitic RC extraction: a node arena plus
// a side vector of resistor branches and coupling caps (spec.md §9
// "prefer a flat slice of nodes ... over a graph of pointer-linked
// circuit elements").
type Network struct {
	Nodes    []Node
	Branches []Branch
	Coupling []CouplingCap

	// Loads maps a load pin to the node it is attached to. The driver
	// pin is always attached to DriverNode.
	Loads map[graph.PinID]NodeID
}

// NewNetwork returns an empty network with only the driver node
// allocated.
func NewNetwork() *Network {
	return &Network{
		Nodes: []Node{{ID: DriverNode}},
		Loads: make(map[graph.PinID]NodeID),
	}
}

// AddNode allocates a new node with the given self-capacitance and
// returns its id.
func (n *Network) AddNode(cap float64) NodeID {
	id := NodeID(len(n.Nodes))
	n.Nodes = append(n.Nodes, Node{ID: id, Cap: cap})
	return id
}

// AddResistor adds a resistor branch between two existing nodes.
func (n *Network) AddResistor(n1, n2 NodeID, r float64) error {
	if !n.valid(n1) || !n.valid(n2) {
		return ErrUnknownNode
	}
	n.Branches = append(n.Branches, Branch{N1: n1, N2: n2, R: r})
	return nil
}

// AddCoupling adds a coupling capacitor between two existing nodes.
func (n *Network) AddCoupling(n1, n2 NodeID, c float64) error {
	if !n.valid(n1) || !n.valid(n2) {
		return ErrUnknownNode
	}
	n.Coupling = append(n.Coupling, CouplingCap{N1: n1, N2: n2, C: c})
	return nil
}

// AttachLoad records that pin sits on node.
func (n *Network) AttachLoad(pin graph.PinID, node NodeID) error {
	if !n.valid(node) {
		return ErrUnknownNode
	}
	n.Loads[pin] = node
	return nil
}

func (n *Network) valid(id NodeID) bool {
	return int(id) >= 0 && int(id) < len(n.Nodes)
}

// TotalCap returns the sum of every node's self-capacitance,
// ignoring coupling (spec.md §4.4 "total net capacitance").
func (n *Network) TotalCap() float64 {
	var total float64
	for _, node := range n.Nodes {
		total += node.Cap
	}
	return total
}

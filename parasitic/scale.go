package parasitic

import "github.com/opentiming/stacore/graph"

// ScaleReduced returns a copy of r with every capacitance-derived
// quantity scaled by factor: the π model's C1/C2, and each load's
// Elmore and two-pole time constants. A time constant is a fixed
// resistance times a subtree capacitance, so scaling every node's
// capacitance by the same factor scales every time constant by that
// factor too. Used by the multi-driver parallel-drive path (spec.md
// §4.7) to approximate N identical parallel drivers each seeing 1/N
// of the shared net's capacitance.
func ScaleReduced(r *Reduced, factor float64) *Reduced {
	out := &Reduced{
		Pi:    PiModel{C2: r.Pi.C2 * factor, R: r.Pi.R, C1: r.Pi.C1 * factor},
		Loads: make(map[graph.PinID]LoadResponse, len(r.Loads)),
	}
	for pin, resp := range r.Loads {
		out.Loads[pin] = LoadResponse{
			Elmore:  ElmoreTau{Tau: resp.Elmore.Tau * factor},
			TwoPole: TwoPole{Tau1: resp.TwoPole.Tau1 * factor, Tau2: resp.TwoPole.Tau2 * factor},
		}
	}
	return out
}

// ScaleNetwork returns a copy of n with every node's self-capacitance
// scaled by factor; branches, coupling caps, and load attachments are
// unchanged. Same use as ScaleReduced, for calculators whose native
// parasitic form is the full RC network rather than a reduction of
// one.
func ScaleNetwork(n *Network, factor float64) *Network {
	out := &Network{
		Nodes:    make([]Node, len(n.Nodes)),
		Branches: append([]Branch(nil), n.Branches...),
		Coupling: append([]CouplingCap(nil), n.Coupling...),
		Loads:    make(map[graph.PinID]NodeID, len(n.Loads)),
	}
	for i, node := range n.Nodes {
		out.Nodes[i] = Node{ID: node.ID, Cap: node.Cap * factor}
	}
	for pin, node := range n.Loads {
		out.Loads[pin] = node
	}
	return out
}

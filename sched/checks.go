package sched

import (
	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
)

// evaluateCheckEdge computes every (arc, ap) margin on a timing-check
// edge (setup, hold, recovery, removal, skew, width, period) once both
// of its endpoint vertices carry their final slews for this pass
// (spec.md §4.1 "Visits for timing-check edges are deferred ... checks
// need slews at both endpoints"). The check table is looked up the
// same way a gate-delay table is (bilinear over two slew axes rather
// than in-slew/load-cap), so it reuses nldm.Table directly rather than
// the (delay, slew) nldm.ArcModel pair a combinational arc carries.
func evaluateCheckEdge(g *graph.Graph, edgeID graph.EdgeID, apCount int) error {
	edge, err := g.Edge(edgeID)
	if err != nil {
		return err
	}
	if edge.ArcSet == nil {
		return nil
	}
	from, err := g.Vertex(edge.From)
	if err != nil {
		return err
	}
	to, err := g.Vertex(edge.To)
	if err != nil {
		return err
	}

	for i := range edge.ArcSet.Arcs {
		arc := &edge.ArcSet.Arcs[i]
		for ap := 0; ap < apCount; ap++ {
			clockSlew := from.Slews.Get(arc.FromRF, ap)
			dataSlew := to.Slews.Get(arc.ToRF, ap)

			var margin float64
			if table, ok := arc.GateModel.(*nldm.Table); ok && table != nil {
				margin = float64(table.Lookup(float32(clockSlew), float32(dataSlew)))
			} else {
				margin = arc.ScalarDelay
			}
			edge.SetArcDelay(arc, ap, apCount, margin)
		}
	}
	return nil
}

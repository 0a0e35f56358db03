package sched

import "github.com/opentiming/stacore/graph"

// levelization is the result of one full pass over a graph.Graph:
// every vertex's topological level (spec.md §9 "Levelisation"), plus
// the reverse adjacency the dispatcher needs to find the edges
// terminating at a driver vertex (the graph arena only tracks
// outgoing adjacency).
type levelization struct {
	// levels[L] lists every vertex assigned level L: in arena order for
	// level 0 and the trailing straggler level, in discovery order
	// otherwise.
	levels [][]graph.VertexID

	// driverLevels[L] is levels[L] filtered to driver vertices only:
	// the scheduler's actual unit of work (spec.md §4.1 "The work unit
	// is one driver vertex").
	driverLevels [][]graph.VertexID

	// cellIn[v] lists the EdgeCellArc edges terminating at v, feeding
	// dcalc.Dispatcher.DispatchDriver's inEdges parameter during the
	// main level-synchronous pass.
	cellIn [][]graph.EdgeID

	// latchIn[v] lists the EdgeLatchDQ edges terminating at v,
	// excluded from the topological order as a cycle-breaker (spec.md
	// §9 "Cycles in the timing graph") and dispatched only by the
	// deferred pass that runs after the main BFS.
	latchIn [][]graph.EdgeID

	// checkEdges lists every EdgeCheckArc edge in the graph, visited
	// only by the deferred check pass (spec.md §4.1 "Visits for
	// timing-check edges are deferred").
	checkEdges []graph.EdgeID
}

// levelize computes a full levelization of g: a topological layering
// over EdgeWire and EdgeCellArc edges, excluding EdgeLatchDQ (the
// D->Q cycle-breaker) and EdgeCheckArc (deferred, not part of the
// propagation order) from the dependency count (spec.md §9, §4.1).
// It writes the computed level onto every graph.Vertex as a side
// effect, since Vertex.Level is also read by graph.Graph.MultiDriver
// to pick a net's primary driver.
func levelize(g *graph.Graph) *levelization {
	n := g.NumVertices()
	indegree := make([]int, n)
	successors := make([][]graph.EdgeID, n)
	cellIn := make([][]graph.EdgeID, n)
	latchIn := make([][]graph.EdgeID, n)
	var checkEdges []graph.EdgeID

	for i := 0; i < g.NumEdges(); i++ {
		edge, err := g.Edge(graph.EdgeID(i))
		if err != nil {
			continue
		}
		switch edge.Kind {
		case graph.EdgeWire:
			successors[edge.From] = append(successors[edge.From], edge.ID)
			indegree[edge.To]++
		case graph.EdgeCellArc:
			successors[edge.From] = append(successors[edge.From], edge.ID)
			indegree[edge.To]++
			cellIn[edge.To] = append(cellIn[edge.To], edge.ID)
		case graph.EdgeCheckArc:
			checkEdges = append(checkEdges, edge.ID)
		case graph.EdgeLatchDQ:
			latchIn[edge.To] = append(latchIn[edge.To], edge.ID)
		}
	}

	var frontier []graph.VertexID
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			frontier = append(frontier, graph.VertexID(v))
		}
	}

	var levels [][]graph.VertexID
	visited := make([]bool, n)
	level := 0
	for len(frontier) > 0 {
		for _, v := range frontier {
			vert, err := g.Vertex(v)
			if err != nil {
				continue
			}
			vert.Level = level
			visited[v] = true
		}
		levels = append(levels, frontier)

		var next []graph.VertexID
		for _, v := range frontier {
			for _, eid := range successors[v] {
				edge, err := g.Edge(eid)
				if err != nil {
					continue
				}
				indegree[edge.To]--
				if indegree[edge.To] == 0 {
					next = append(next, edge.To)
				}
			}
		}
		frontier = next
		level++
	}

	// Any vertex that never reached indegree 0 sits on a cycle other
	// than the modeled D->Q feedback (spec.md §9 says only latch D->Q
	// and feedback paths create cycles, and feedback paths are exactly
	// what D->Q exclusion breaks); fold stragglers into one trailing
	// level so every vertex still gets a Level and a dispatch slot
	// rather than being silently dropped.
	var stragglers []graph.VertexID
	for v := 0; v < n; v++ {
		if !visited[v] {
			stragglers = append(stragglers, graph.VertexID(v))
		}
	}
	if len(stragglers) > 0 {
		for _, v := range stragglers {
			vert, err := g.Vertex(v)
			if err == nil {
				vert.Level = level
			}
		}
		levels = append(levels, stragglers)
	}

	// A driver vertex with no incoming cell arcs is a primary input (or
	// a bidirectional pin acting as one): its slew comes from an
	// external input-transition annotation, not from this procedure, so
	// it is excluded from dispatch entirely rather than run through
	// DispatchDriver only to have step 6 reset that annotation back to
	// the AP's initial value (spec.md §4.2 step 6 applies to a real
	// driver's absent rise or fall, not to an undriven root).
	driverLevels := make([][]graph.VertexID, len(levels))
	for i, lv := range levels {
		var drivers []graph.VertexID
		for _, v := range lv {
			vert, err := g.Vertex(v)
			if err != nil {
				continue
			}
			if vert.IsDriver && len(cellIn[v]) > 0 {
				drivers = append(drivers, v)
			}
		}
		driverLevels[i] = drivers
	}

	return &levelization{
		levels:       levels,
		driverLevels: driverLevels,
		cellIn:       cellIn,
		latchIn:      latchIn,
		checkEdges:   checkEdges,
	}
}

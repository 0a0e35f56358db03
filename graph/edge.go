package graph

// EdgeKind distinguishes the four directed-edge flavors a timing
// graph carries (spec.md §3 "Edge").
type EdgeKind int

const (
	EdgeWire EdgeKind = iota
	EdgeCellArc
	EdgeCheckArc
	EdgeLatchDQ
)

// Edge is a directed edge between two vertices.
type Edge struct {
	ID   EdgeID
	Kind EdgeKind
	From VertexID
	To   VertexID

	// NetID is set for EdgeWire edges: the from-pin and to-pin share
	// this net (spec.md §3 invariants).
	NetID NetID

	// ArcSet is set for EdgeCellArc, EdgeCheckArc, and EdgeLatchDQ
	// edges: the library timing-arc-set this edge's cell instance
	// exposes between its from-port and to-port.
	ArcSet *TimingArcSet

	// Disabled marks an edge that does not contribute to slew merging
	// at its to-vertex (spec.md §3 invariants).
	Disabled bool

	// arcDelays is a dense (arc index, ap) array of cell/check/latch
	// arc delays, present when ArcSet != nil.
	arcDelays    []float64
	arcAnnotated []bool

	// wireDelay / loadSlew are dense (rise/fall, ap) arrays present on
	// EdgeWire edges.
	wireDelay Slots
	loadSlew  Slots
}

// NewEdge allocates an edge with slot storage sized for aps. kind
// determines which storage is allocated: wire edges get wireDelay/
// loadSlew; the others get a per-arc delay array sized by arcSet.
func NewEdge(id EdgeID, kind EdgeKind, from, to VertexID, aps *APSet, arcSet *TimingArcSet) Edge {
	e := Edge{ID: id, Kind: kind, From: from, To: to, ArcSet: arcSet}
	switch kind {
	case EdgeWire:
		e.wireDelay = NewSlots(aps)
		e.loadSlew = NewSlots(aps)
	default:
		n := 0
		if arcSet != nil {
			n = len(arcSet.Arcs) * aps.Count()
		}
		e.arcDelays = make([]float64, n)
		e.arcAnnotated = make([]bool, n)
	}
	return e
}

// ArcDelay returns the annotated-or-derived delay for (arc, ap) on a
// cell/check/latch arc edge.
func (e *Edge) ArcDelay(arc *TimingArc, ap, apCount int) float64 {
	return e.arcDelays[ArcSlotIndex(arc.Index, ap, apCount)]
}

// HasArcDelay reports whether (arc, ap) has been written by
// SetArcDelay since the edge was built or last reset. Only the
// deferred check pass in package sched writes arc delays, onto check
// edges; cell-arc and latch D->Q edges are not written by a pass.
func (e *Edge) HasArcDelay(arc *TimingArc, ap, apCount int) bool {
	return e.arcAnnotated[ArcSlotIndex(arc.Index, ap, apCount)]
}

// SetArcDelay writes (arc, ap)'s delay and marks it present.
func (e *Edge) SetArcDelay(arc *TimingArc, ap, apCount int, delay float64) {
	i := ArcSlotIndex(arc.Index, ap, apCount)
	e.arcDelays[i] = delay
	e.arcAnnotated[i] = true
}

// WireDelay returns a wire edge's driver->load delay for (rf, ap).
func (e *Edge) WireDelay(rf RiseFall, ap int) float64 { return e.wireDelay.Get(rf, ap) }

// HasWireDelay reports whether a wire edge's (rf, ap) delay has been
// annotated (spec.md §8).
func (e *Edge) HasWireDelay(rf RiseFall, ap int) bool { return e.wireDelay.IsAnnotated(rf, ap) }

// SetWireDelay writes a wire edge's (rf, ap) delay as annotated.
func (e *Edge) SetWireDelay(rf RiseFall, ap int, delay float64) { e.wireDelay.SetAnnotated(rf, ap, delay) }

// ResetWireDelay returns (rf, ap) to the AP's initial value when the
// driver has no real arc to that direction (spec.md §4.2 step 6).
func (e *Edge) ResetWireDelay(rf RiseFall, ap int) { e.wireDelay.Reset(rf, ap) }

// ResetArcDelay clears (arc, ap)'s annotated flag and returns it to
// zero, e.g. for a full-engine Clear() (spec.md §4.1 "clear()").
func (e *Edge) ResetArcDelay(arc *TimingArc, ap, apCount int) {
	i := ArcSlotIndex(arc.Index, ap, apCount)
	e.arcDelays[i] = 0
	e.arcAnnotated[i] = false
}

// LoadSlew returns the load vertex-side slew this wire edge carries
// for (rf, ap) (kept on the edge so per-load annotated state survives
// independent of the load vertex's own merged slew).
func (e *Edge) LoadSlew(rf RiseFall, ap int) float64 { return e.loadSlew.Get(rf, ap) }

// MergeLoadSlew merges candidate into this wire edge's load slew slot.
func (e *Edge) MergeLoadSlew(rf RiseFall, ap int, candidate float64) bool {
	return e.loadSlew.Merge(rf, ap, candidate)
}

// ResetLoadSlew returns a wire edge's (rf, ap) load slew to its AP
// polarity's initial value, e.g. for a full-engine Clear().
func (e *Edge) ResetLoadSlew(rf RiseFall, ap int) { e.loadSlew.Reset(rf, ap) }

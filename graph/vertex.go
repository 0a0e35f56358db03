package graph

// Vertex is one traversal node per pin (a bidirectional pin produces
// two: a load vertex and a driver vertex, spec.md §3).
type Vertex struct {
	ID    VertexID
	PinID PinID

	IsRoot         bool
	IsDriver       bool
	HasChecks      bool
	IsCheckClock   bool
	IsLatchData    bool
	BidirectDriver bool

	// HasInputDelay marks that this pin carries an explicit constraint-
	// side input delay annotation. It gates the
	// bidirect-drvr-slew-from-load default (spec.md §9 Open Question
	// 3): the rebroadcast is enabled only when this is false.
	HasInputDelay bool

	// IdealClock, when non-nil, is the ideal (constraint-propagated)
	// clock driving this vertex. When an arc's role is RoleRegClkToQ
	// or RoleCheckClock and FromVertex.IdealClock != nil, the
	// dispatcher substitutes IdealClock.Slew for the graph slew
	// (spec.md §4.2, §9 Open Question 2 — no separate ideal-clocks
	// propagation map).
	IdealClock *IdealClock

	// Level is this vertex's position in the levelization computed by
	// package sched, excluding D->Q feedback arcs (spec.md §9). It is
	// also used to pick a multi-driver net's primary driver (highest
	// levelized rank, spec.md §3).
	Level int

	// Slews holds this vertex's recorded output transition time per
	// (rise/fall, analysis point): the merged min/max of all
	// non-disabled incoming arc-produced slews, unless annotated
	// (spec.md §3 invariants, §8).
	Slews Slots
}

// IdealClock is a constraint-propagated clock waveform, owned by the
// Sdc external collaborator (spec.md §6) and referenced, not copied,
// by any vertex it drives.
type IdealClock struct {
	Name string
	Slew Slots
}

// NewVertex allocates a vertex with slot arrays sized for aps.
func NewVertex(id VertexID, pin PinID, aps *APSet) Vertex {
	return Vertex{
		ID:    id,
		PinID: pin,
		Slews: NewSlots(aps),
	}
}

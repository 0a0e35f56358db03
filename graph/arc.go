package graph

// ArcRole is the functional role of a TimingArc between two cell
// ports (spec.md §3 "Timing arc set / timing arc").
type ArcRole int

const (
	RoleCombinational ArcRole = iota
	RoleTristateEnable
	RoleTristateDisable
	RoleRegClkToQ
	RoleCheckClock
	RoleSetup
	RoleHold
	RoleRecovery
	RoleRemoval
	RoleSkew
	RoleWidth
	RolePeriod
	RoleLatchDQ
)

// IsCheck reports whether this role represents a timing-check arc
// (its edge belongs to the deferred check pass, spec.md §4.1).
func (r ArcRole) IsCheck() bool {
	switch r {
	case RoleSetup, RoleHold, RoleRecovery, RoleRemoval, RoleSkew, RoleWidth, RolePeriod:
		return true
	}
	return false
}

// GateModelKind selects which family of analog model a TimingArc's
// gate model uses; the calculator dispatches on this alongside its own
// configured family (spec.md §3, §6).
type GateModelKind int

const (
	GateModelNLDM GateModelKind = iota
	GateModelCCS
	GateModelScalar
)

// TimingArc is a single rise/fall -> rise/fall transition between two
// cell ports, owning one gate model.
type TimingArc struct {
	Index     int // position within its TimingArcSet
	FromRF    RiseFall
	ToRF      RiseFall
	Role      ArcRole
	ModelKind GateModelKind

	// GateModel is the arc's analog model, opaque to package graph so
	// this package never imports package nldm: a *nldm.ArcModel (delay
	// and slew tables) for an NLDM combinational/clock arc, a bare
	// *nldm.Table for a timing-check arc, a *nldm.CCSWaveformSet for
	// ModelKind CCS, or left nil with ScalarDelay used directly for
	// ModelKind Scalar. Callers type-
	// assert against the concrete type their configured calculator
	// expects.
	GateModel interface{}

	// ScalarDelay is used when ModelKind is GateModelScalar (e.g.
	// SDF-only arcs); the deferred check pass in package sched also
	// takes it as a check arc's margin when GateModel is not a
	// *nldm.Table. The unit calculator does not read it.
	ScalarDelay float64
}

// TimingArcSet is a library-defined group of TimingArcs between two
// cell ports.
type TimingArcSet struct {
	FromPort string
	ToPort   string
	Arcs     []TimingArc
}

// ArcSlotIndex computes the dense index of (arc, ap) into an edge's
// per-arc delay slot array, sized numArcs * apCount * rise_fall... no
// rise/fall fold: an arc's direction is already fixed by FromRF/ToRF,
// so only (arc index, ap) varies.
func ArcSlotIndex(arcIdx, ap, apCount int) int { return arcIdx*apCount + ap }

package dcalc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/parasitic"
	"gonum.org/v1/gonum/floats"
)

// ErrDriverVertex is returned when DispatchDriver is called on a
// vertex that is not a driver vertex.
var ErrDriverVertex = errors.New("dcalc: vertex is not a driver vertex")

// FailureRecord is one logged calculator failure, kept so a caller can
// report which drivers fell back to the default calculator (spec.md
// §4.2 "Failure policy").
type FailureRecord struct {
	Driver graph.VertexID
	RF     graph.RiseFall
	AP     int
	Err    error
}

// NetCapsFunc resolves the pin/wire/fanout loading for a driver pin at
// a given rise/fall and analysis point; supplied by the caller because
// it depends on external parasitic/library data the graph itself does
// not own (spec.md §6 "external collaborators").
type NetCapsFunc func(pin graph.PinID, rf graph.RiseFall, ap int) NetCaps

// ParasiticFunc resolves a driver pin's stored parasitic handle at a
// given rise/fall and analysis point, in whatever native form the
// parasitic reader produced it (a *parasitic.Network for the
// transient calculators, a *parasitic.Reduced for the effective-
// capacitance one). Mirrors NetCapsFunc's wiring: supplied by the
// caller, since the graph itself does not own parasitic data.
type ParasiticFunc func(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error)

// ParasiticSource is implemented by calculators whose FindParasitic
// consults a per-(pin,rf,ap) parasitic store rather than a no-op
// (spec.md §4.2 step 1). Calculators with no parasitic concept (unit,
// lumped-cap) don't implement it.
type ParasiticSource interface {
	SetParasitics(ParasiticFunc)
}

// Dispatcher runs the per-driver delay-calc procedure of spec.md §4.2
// against a graph.Graph, using a configured primary Calculator with a
// lumped-cap fallback on failure.
type Dispatcher struct {
	Primary Calculator
	Default Calculator

	// Tolerance bounds incremental change detection: a new gate delay
	// within this relative tolerance of the previous one is treated as
	// unchanged (spec.md §4.2 "Incremental change detection"). Zero
	// means exact-match-only (always propagate any change).
	Tolerance float64

	// Observer, when non-nil, is invoked for every computed wire-edge
	// delay regardless of incremental-change suppression (spec.md
	// §4.2 "skip propagation ... when observer is absent").
	Observer func(edge graph.EdgeID, rf graph.RiseFall, ap int, delay float64)

	NetCaps NetCapsFunc

	failures []FailureRecord
}

// NewDispatcher returns a dispatcher using calc as the primary
// calculator and a lumped-cap calculator as the failure fallback.
func NewDispatcher(calc Calculator, netCaps NetCapsFunc) *Dispatcher {
	return &Dispatcher{
		Primary:   calc,
		Default:   NewLumpedCapCalculator(),
		Tolerance: 0,
		NetCaps:   netCaps,
	}
}

// Failures returns every recorded calculator failure since the last
// Clear.
func (d *Dispatcher) Failures() []FailureRecord { return d.failures }

// Clear empties the failure log.
func (d *Dispatcher) Clear() { d.failures = nil }

// loadEdge is a load pin's wire edge leaving the driver vertex being
// dispatched.
type loadEdge struct {
	pin  graph.PinID
	edge graph.EdgeID
}

// DispatchDriver runs the 7-step procedure of spec.md §4.2 for every
// rise/fall and analysis point on driver vertex v, given the cell-arc
// (or, in the scheduler's deferred pass, latch D->Q) edges terminating
// at v (inEdges; the graph arena only tracks outgoing adjacency, so
// the scheduler supplies this from its own reverse index built during
// levelization). It annotates v's slew
// slot and every wire edge leaving v, returning the driver vertices of
// any bidirectional load pins that must be (re)enqueued (step 5).
func (d *Dispatcher) DispatchDriver(g *graph.Graph, v graph.VertexID, inEdges []graph.EdgeID, apCount int) ([]graph.VertexID, error) {
	return d.DispatchDriverWith(d.Primary, g, v, inEdges, apCount)
}

// DispatchDriverWith runs the same procedure as DispatchDriver but
// against an explicit calculator instead of d.Primary. The scheduler
// uses this to pass each worker's own calculator clone, so concurrent
// dispatches at the same level never share calculator scratch state
// (LU factor cache, table interpolation temporaries) through the
// Dispatcher's own field (spec.md §4.1 "per-thread copy of the active
// delay calculator").
func (d *Dispatcher) DispatchDriverWith(primary Calculator, g *graph.Graph, v graph.VertexID, inEdges []graph.EdgeID, apCount int) ([]graph.VertexID, error) {
	vert, err := g.Vertex(v)
	if err != nil {
		return nil, err
	}
	if !vert.IsDriver {
		return nil, ErrDriverVertex
	}

	loads := d.loadsOf(g, v)
	loadPins := make([]graph.PinID, len(loads))
	for i, l := range loads {
		loadPins[i] = l.pin
	}

	var rebroadcast []graph.VertexID

	for ap := 0; ap < apCount; ap++ {
		var present [2]bool

		for _, edgeID := range inEdges {
			edge, err := g.Edge(edgeID)
			if err != nil {
				return nil, err
			}
			// A latch's D->Q arc (graph.EdgeLatchDQ) is structurally a
			// cell arc that levelisation excluded as a cycle-breaker
			// (spec.md §9); the scheduler's deferred pass dispatches it
			// through this same procedure once the main BFS has settled.
			if (edge.Kind != graph.EdgeCellArc && edge.Kind != graph.EdgeLatchDQ) || edge.ArcSet == nil || edge.To != v {
				continue
			}
			from, err := g.Vertex(edge.From)
			if err != nil {
				return nil, err
			}

			for i := range edge.ArcSet.Arcs {
				arc := &edge.ArcSet.Arcs[i]
				rf := arc.ToRF
				present[rf] = true

				inSlew := d.inputSlew(from, arc, ap)
				netCaps := d.NetCaps(vert.PinID, rf, ap)

				calc := primary
				handle, ferr := calc.FindParasitic(vert.PinID, rf, ap)
				if ferr != nil {
					d.recordFailure(v, rf, ap, ferr)
					calc = d.Default
					handle = nil
				} else if handle != nil {
					reduced, rerr := calc.ReduceParasitic(handle, rf, ap)
					if rerr != nil {
						d.recordFailure(v, rf, ap, rerr)
						calc = d.Default
						handle = nil
					} else {
						handle = reduced
					}
				}

				in := DriverInput{
					Arc: arc, InSlew: inSlew, Caps: netCaps,
					Parasitic: handle, Loads: loadPins, RF: rf, AP: ap,
				}
				out, gerr := calc.GateDelay(in)
				if gerr != nil {
					d.recordFailure(v, rf, ap, gerr)
					out, gerr = d.Default.GateDelay(DriverInput{
						Arc: arc, InSlew: inSlew, Caps: netCaps,
						Parasitic: nil, Loads: loadPins, RF: rf, AP: ap,
					})
					if gerr != nil {
						return nil, fmt.Errorf("dcalc: default calculator also failed: %w", gerr)
					}
				}

				vert.Slews.Merge(rf, ap, out.DriverSlew)

				next, aerr := d.applyLoads(g, loads, out, rf, ap)
				if aerr != nil {
					return nil, aerr
				}
				rebroadcast = append(rebroadcast, next...)
			}
		}

		for _, rf := range []graph.RiseFall{graph.Rise, graph.Fall} {
			if present[rf] {
				continue
			}
			vert.Slews.Reset(rf, ap)
			for _, l := range loads {
				wire, err := g.Edge(l.edge)
				if err != nil {
					continue
				}
				wire.ResetWireDelay(rf, ap)
			}
		}
	}

	primary.FinishDriverPin()

	sort.Slice(rebroadcast, func(i, j int) bool { return rebroadcast[i] < rebroadcast[j] })
	return dedupVertices(rebroadcast), nil
}

// applyLoads writes out's per-load wire delay and slew onto the
// driver's wire edges and downstream load vertices, and reports any
// bidirectional load that must be rebroadcast (spec.md §4.2 steps
// 4-5). Shared by DispatchDriverWith and DispatchDriverGroupWith,
// since only the difference between a single driver and a parallel-
// drive group's primary is which DriverOutput feeds it.
func (d *Dispatcher) applyLoads(g *graph.Graph, loads []loadEdge, out DriverOutput, rf graph.RiseFall, ap int) ([]graph.VertexID, error) {
	var rebroadcast []graph.VertexID
	for _, lr := range out.Loads {
		le := edgeForPin(loads, lr.Pin)
		if le == graph.InvalidID {
			continue
		}
		wire, err := g.Edge(le)
		if err != nil {
			return nil, err
		}
		prevDelay := wire.WireDelay(rf, ap)
		hadPrev := wire.HasWireDelay(rf, ap)
		newDelay := out.GateDelay + lr.WireDelay

		wire.SetWireDelay(rf, ap, newDelay)
		wire.MergeLoadSlew(rf, ap, lr.Slew)
		// The edge's own loadSlew is a per-load cache; the load
		// vertex's Slews slot is what downstream cell arcs actually
		// read as their from-vertex slew (spec.md §4.2 step 4 "the
		// load vertex's slew", graph.Vertex.Slews doc "merged ... of
		// all non-disabled incoming arc-produced slews"; spec.md §3
		// "Disabled edges do not contribute to slew merging at their
		// to-vertex").
		if !wire.Disabled {
			if loadVert, lerr := g.Vertex(wire.To); lerr == nil {
				loadVert.Slews.Merge(rf, ap, lr.Slew)
			}
		}
		if d.Observer != nil {
			d.Observer(le, rf, ap, newDelay)
		}

		unchanged := hadPrev && d.withinTolerance(prevDelay, newDelay)
		if unchanged && d.Observer == nil {
			continue
		}

		loadPin, err := g.Pin(lr.Pin)
		if err == nil && loadPin.Dir == graph.DirBidirect && loadPin.DriverVertex != graph.VertexID(graph.InvalidID) {
			// A driver side carrying an explicit input delay is not
			// rebroadcast (graph.Vertex.HasInputDelay).
			if dv, derr := g.Vertex(loadPin.DriverVertex); derr == nil && !dv.HasInputDelay {
				rebroadcast = append(rebroadcast, loadPin.DriverVertex)
			}
		}
	}
	return rebroadcast, nil
}

// scaleParasitic scales the capacitance carried by a driver's
// parasitic handle by factor, in whatever native form the calculator
// produced it; handle forms this package doesn't recognize (nil, or a
// calculator-private type) pass through unscaled.
func scaleParasitic(handle interface{}, factor float64) interface{} {
	switch h := handle.(type) {
	case *parasitic.Reduced:
		return parasitic.ScaleReduced(h, factor)
	case *parasitic.Network:
		return parasitic.ScaleNetwork(h, factor)
	default:
		return handle
	}
}

// groupDriverInput resolves one parallel-drive group member's
// DriverInput for the given rise/fall and analysis point, scaling its
// share of the net's loading by capFactor (spec.md §4.7 "each driver's
// effective output resistance is the parallel combination",
// approximated here by splitting the shared load capacitance evenly
// across the group). ok is false when dv has no arc for this rf.
func (d *Dispatcher) groupDriverInput(g *graph.Graph, calc Calculator, vert *graph.Vertex, inEdges []graph.EdgeID, rf graph.RiseFall, ap int, loadPins []graph.PinID, capFactor float64) (in DriverInput, ok bool, err error) {
	for _, edgeID := range inEdges {
		edge, eerr := g.Edge(edgeID)
		if eerr != nil {
			return DriverInput{}, false, eerr
		}
		if (edge.Kind != graph.EdgeCellArc && edge.Kind != graph.EdgeLatchDQ) || edge.ArcSet == nil || edge.To != vert.ID {
			continue
		}
		from, ferr := g.Vertex(edge.From)
		if ferr != nil {
			return DriverInput{}, false, ferr
		}
		for i := range edge.ArcSet.Arcs {
			arc := &edge.ArcSet.Arcs[i]
			if arc.ToRF != rf {
				continue
			}
			inSlew := d.inputSlew(from, arc, ap)
			netCaps := d.NetCaps(vert.PinID, rf, ap)
			netCaps.PinCap *= capFactor
			netCaps.WireCap *= capFactor

			handle, ferr := calc.FindParasitic(vert.PinID, rf, ap)
			if ferr != nil {
				d.recordFailure(vert.ID, rf, ap, ferr)
				handle = nil
			} else if handle != nil {
				reduced, rerr := calc.ReduceParasitic(handle, rf, ap)
				if rerr != nil {
					d.recordFailure(vert.ID, rf, ap, rerr)
					handle = nil
				} else {
					handle = reduced
				}
			}
			handle = scaleParasitic(handle, capFactor)

			return DriverInput{
				Arc: arc, InSlew: inSlew, Caps: netCaps,
				Parasitic: handle, Loads: loadPins, RF: rf, AP: ap,
			}, true, nil
		}
	}
	return DriverInput{}, false, nil
}

// DispatchDriverGroupWith runs the batched procedure of spec.md §4.2
// step 2 for a parallel-drive multi-driver group (spec.md §4.7): gates
// driving the same net's output in the same direction. For every
// rise/fall and analysis point it gathers every group member's own
// DriverInput (each scaled to 1/len(rec.Drivers) of the shared net's
// loading, so two identical parallel drivers solve as the single-
// driver case with capacitance halved, spec.md §8 seed scenario 5)
// and passes them to the primary calculator's GateDelays in one call.
// Every member's own DriverOutput.DriverSlew lands on its own vertex,
// but only the primary's DriverOutput.Loads recomputes the net's
// wire-edge delays and load slews (spec.md §3 "only the primary
// driver's dispatch recomputes the shared parasitic loading"; §8 "a
// non-primary driver's dispatch leaves the shared annotations
// unchanged"). rec must be a record with ParallelDrive set; a non-
// parallel multi-driver group is dispatched independently per driver
// through DispatchDriverWith instead.
func (d *Dispatcher) DispatchDriverGroupWith(primary Calculator, g *graph.Graph, rec *graph.MultiDriverRecord, driverInEdges map[graph.VertexID][]graph.EdgeID, apCount int) ([]graph.VertexID, error) {
	if rec == nil || len(rec.Drivers) == 0 {
		return nil, nil
	}

	verts := make([]*graph.Vertex, len(rec.Drivers))
	primaryIdx := -1
	for i, dv := range rec.Drivers {
		v, err := g.Vertex(dv)
		if err != nil {
			return nil, err
		}
		if !v.IsDriver {
			return nil, ErrDriverVertex
		}
		verts[i] = v
		if dv == rec.Primary {
			primaryIdx = i
		}
	}
	if primaryIdx < 0 {
		return nil, ErrDriverVertex
	}

	loads := d.loadsOf(g, rec.Primary)
	loadPins := make([]graph.PinID, len(loads))
	for i, l := range loads {
		loadPins[i] = l.pin
	}

	capFactor := 1.0 / float64(len(rec.Drivers))
	var rebroadcast []graph.VertexID

	for ap := 0; ap < apCount; ap++ {
		for _, rf := range []graph.RiseFall{graph.Rise, graph.Fall} {
			ins := make([]DriverInput, 0, len(rec.Drivers))
			memberIdx := make([]int, 0, len(rec.Drivers))

			for i, dv := range rec.Drivers {
				in, ok, err := d.groupDriverInput(g, primary, verts[i], driverInEdges[dv], rf, ap, loadPins, capFactor)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				ins = append(ins, in)
				memberIdx = append(memberIdx, i)
			}

			if len(ins) == 0 {
				for _, v := range verts {
					v.Slews.Reset(rf, ap)
				}
				for _, l := range loads {
					if wire, werr := g.Edge(l.edge); werr == nil {
						wire.ResetWireDelay(rf, ap)
					}
				}
				continue
			}

			outs, gerr := primary.GateDelays(ins)
			if gerr != nil {
				d.recordFailure(rec.Primary, rf, ap, gerr)
				outs, gerr = d.Default.GateDelays(ins)
				if gerr != nil {
					return nil, fmt.Errorf("dcalc: default calculator also failed: %w", gerr)
				}
			}

			for k, out := range outs {
				i := memberIdx[k]
				verts[i].Slews.Merge(rf, ap, out.DriverSlew)
				if i != primaryIdx {
					continue
				}
				next, aerr := d.applyLoads(g, loads, out, rf, ap)
				if aerr != nil {
					return nil, aerr
				}
				rebroadcast = append(rebroadcast, next...)
			}
		}
	}

	primary.FinishDriverPin()

	sort.Slice(rebroadcast, func(i, j int) bool { return rebroadcast[i] < rebroadcast[j] })
	return dedupVertices(rebroadcast), nil
}

// inputSlew resolves the slew feeding arc from its from-vertex,
// substituting the ideal clock's slew for register clk->Q and check-
// clock arcs when the from-vertex carries one (spec.md §4.2 "Input
// slew selection").
func (d *Dispatcher) inputSlew(from *graph.Vertex, arc *graph.TimingArc, ap int) float64 {
	if from.IdealClock != nil && (arc.Role == graph.RoleRegClkToQ || arc.Role == graph.RoleCheckClock) {
		return from.IdealClock.Slew.Get(arc.FromRF, ap)
	}
	return from.Slews.Get(arc.FromRF, ap)
}

// withinTolerance reports whether new is within d.Tolerance relative
// distance of old (spec.md §4.2 "Incremental change detection").
func (d *Dispatcher) withinTolerance(old, updated float64) bool {
	if d.Tolerance <= 0 {
		return old == updated
	}
	return floats.EqualWithinRel(old, updated, d.Tolerance)
}

func (d *Dispatcher) recordFailure(v graph.VertexID, rf graph.RiseFall, ap int, err error) {
	d.failures = append(d.failures, FailureRecord{Driver: v, RF: rf, AP: ap, Err: err})
}

// loadsOf returns every wire edge leaving driver vertex v, paired with
// the load pin it carries (spec.md §3: a driver vertex's only outgoing
// edges are the wire edges to its net's loads).
func (d *Dispatcher) loadsOf(g *graph.Graph, v graph.VertexID) []loadEdge {
	var out []loadEdge
	for _, e := range g.OutEdges(v) {
		edge, err := g.Edge(e)
		if err != nil || edge.Kind != graph.EdgeWire {
			continue
		}
		toVert, err := g.Vertex(edge.To)
		if err != nil {
			continue
		}
		out = append(out, loadEdge{pin: toVert.PinID, edge: e})
	}
	return out
}

func edgeForPin(loads []loadEdge, pin graph.PinID) graph.EdgeID {
	for _, l := range loads {
		if l.pin == pin {
			return l.edge
		}
	}
	return graph.InvalidID
}

func dedupVertices(vs []graph.VertexID) []graph.VertexID {
	out := vs[:0]
	for i, v := range vs {
		if i > 0 && v == vs[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

package graph

import (
	"fmt"
	"sync"

	"github.com/c2h5oh/datasize"
)

// Graph is the timing graph store: arenas of pins, nets, vertices and
// edges, indexed by integer id (spec.md §9 "implement with arena +
// integer indices, not by owning pointers between vertices").
//
// Structural mutation (adding pins/nets/vertices/edges, building
// adjacency) is guarded by muStruct, grounded on lvlath/core's split
// of a structural lock from the hot read/write path. Per-vertex slew
// and per-edge delay slots are NOT guarded here: spec.md §5 guarantees
// each slot is written only by the owner of its driver vertex within a
// level, so the scheduler's level barrier is the only synchronization
// those need.
type Graph struct {
	muStruct sync.RWMutex

	aps *APSet

	pins     []Pin
	nets     []Net
	vertices []Vertex
	edges    []Edge

	// adjOut[v] lists edges whose From is v, maintained by AddVertex
	// and AddEdge.
	adjOut [][]EdgeID

	multiDrivers map[NetID]*MultiDriverRecord
}

// NewGraph creates an empty graph carrying the given fixed analysis
// point set.
func NewGraph(aps *APSet) *Graph {
	return &Graph{
		aps:          aps,
		multiDrivers: make(map[NetID]*MultiDriverRecord),
	}
}

// APSet returns the graph's fixed analysis-point set.
func (g *Graph) APSet() *APSet { return g.aps }

// AddPin appends a new pin and returns its id.
func (g *Graph) AddPin(name, instName string, dir Direction) PinID {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	id := PinID(len(g.pins))
	g.pins = append(g.pins, Pin{ID: id, Name: name, InstName: instName, Dir: dir,
		NetID: InvalidID, DriverVertex: VertexID(InvalidID), LoadVertex: VertexID(InvalidID)})
	return id
}

// AddNet appends a new net and returns its id.
func (g *Graph) AddNet(name string) NetID {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	id := NetID(len(g.nets))
	g.nets = append(g.nets, Net{ID: id, Name: name})
	return id
}

// Connect attaches pin to net, recording it as a driver or load
// depending on its direction (or both, for a bidirectional pin).
func (g *Graph) Connect(pin PinID, net NetID) error {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	if int(pin) < 0 || int(pin) >= len(g.pins) {
		return ErrPinNotFound
	}
	if int(net) < 0 || int(net) >= len(g.nets) {
		return ErrNetNotFound
	}
	p := &g.pins[pin]
	n := &g.nets[net]
	p.NetID = net
	if p.IsDriver() {
		n.Drivers = append(n.Drivers, pin)
	}
	if p.IsLoad() {
		n.Loads = append(n.Loads, pin)
	}
	return nil
}

// AddVertex appends a new vertex for pin and returns its id.
func (g *Graph) AddVertex(pin PinID) VertexID {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, NewVertex(id, pin, g.aps))
	g.adjOut = append(g.adjOut, nil)
	return id
}

// AddEdge appends a new edge and returns its id, wiring it into the
// from-vertex's outgoing adjacency.
func (g *Graph) AddEdge(kind EdgeKind, from, to VertexID, net NetID, arcSet *TimingArcSet) (EdgeID, error) {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	if int(from) < 0 || int(from) >= len(g.vertices) || int(to) < 0 || int(to) >= len(g.vertices) {
		return InvalidID, ErrVertexNotFound
	}
	id := EdgeID(len(g.edges))
	e := NewEdge(id, kind, from, to, g.aps, arcSet)
	e.NetID = net
	g.edges = append(g.edges, e)
	g.adjOut[from] = append(g.adjOut[from], id)
	return id, nil
}

// Vertex returns a pointer to vertex v for in-place annotation.
func (g *Graph) Vertex(v VertexID) (*Vertex, error) {
	if int(v) < 0 || int(v) >= len(g.vertices) {
		return nil, ErrVertexNotFound
	}
	return &g.vertices[v], nil
}

// Edge returns a pointer to edge e for in-place annotation.
func (g *Graph) Edge(e EdgeID) (*Edge, error) {
	if int(e) < 0 || int(e) >= len(g.edges) {
		return nil, ErrEdgeNotFound
	}
	return &g.edges[e], nil
}

// Pin returns a pointer to pin p.
func (g *Graph) Pin(p PinID) (*Pin, error) {
	if int(p) < 0 || int(p) >= len(g.pins) {
		return nil, ErrPinNotFound
	}
	return &g.pins[p], nil
}

// Net returns a pointer to net n.
func (g *Graph) Net(n NetID) (*Net, error) {
	if int(n) < 0 || int(n) >= len(g.nets) {
		return nil, ErrNetNotFound
	}
	return &g.nets[n], nil
}

// NumVertices returns the number of vertices in the arena.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the number of edges in the arena.
func (g *Graph) NumEdges() int { return len(g.edges) }

// OutEdges returns the edges leaving vertex v.
func (g *Graph) OutEdges(v VertexID) []EdgeID {
	if int(v) < 0 || int(v) >= len(g.adjOut) {
		return nil
	}
	return g.adjOut[v]
}

// Roots returns every vertex flagged IsRoot.
func (g *Graph) Roots() []VertexID {
	var roots []VertexID
	for i := range g.vertices {
		if g.vertices[i].IsRoot {
			roots = append(roots, VertexID(i))
		}
	}
	return roots
}

// MultiDriver returns the MultiDriverRecord for net, building it
// lazily from the net's current driver list if it has more than one
// driver pin and none has been built yet. Grounded on
// NetworkStru.LayerByName's "create the map if nil or stale" guard.
func (g *Graph) MultiDriver(net NetID) *MultiDriverRecord {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	if rec, ok := g.multiDrivers[net]; ok {
		return rec
	}
	n := &g.nets[net]
	if !n.IsMultiDriver() {
		return nil
	}
	drivers := make([]VertexID, 0, len(n.Drivers))
	primary := VertexID(InvalidID)
	primaryLevel := -1
	for _, pid := range n.Drivers {
		p := &g.pins[pid]
		drivers = append(drivers, p.DriverVertex)
		lvl := g.vertices[p.DriverVertex].Level
		if lvl > primaryLevel {
			primaryLevel = lvl
			primary = p.DriverVertex
		}
	}
	rec := &MultiDriverRecord{NetID: net, Drivers: drivers, Primary: primary}
	g.multiDrivers[net] = rec
	return rec
}

// InvalidateMultiDriver returns the primary driver vertex of net's
// multi-driver group (spec.md §4.10), or InvalidID if net is not a
// multi-driver net. It marks nothing dirty itself: the graph holds no
// dirty set, and nothing in this module calls it.
func (g *Graph) InvalidateMultiDriver(net NetID) VertexID {
	rec := g.MultiDriver(net)
	if rec == nil {
		return InvalidID
	}
	return rec.Primary
}

// ClearMultiDrivers drops every cached MultiDriverRecord, so the next
// MultiDriver call rebuilds it from the net's current driver list and
// levels (spec.md §4.1 "clear()": "drop all annotations, dirty set,
// and multi-driver records").
func (g *Graph) ClearMultiDrivers() {
	g.muStruct.Lock()
	defer g.muStruct.Unlock()
	g.multiDrivers = make(map[NetID]*MultiDriverRecord)
}

// MemoryFootprint reports the arena's approximate in-memory size,
// using the same human-readable byte-size formatting a weights-file
// size report would: github.com/c2h5oh/datasize.
func (g *Graph) MemoryFootprint() datasize.ByteSize {
	const (
		pinSize    = 64
		netSize    = 48
		vertexSize = 96
		edgeSize   = 96
	)
	apCount := 1
	if g.aps != nil {
		apCount = g.aps.Count()
	}
	slotBytes := uint64(slotCount(apCount)) * 16 // value + annotated flag, rounded up
	total := uint64(len(g.pins))*pinSize +
		uint64(len(g.nets))*netSize +
		uint64(len(g.vertices))*(vertexSize+slotBytes) +
		uint64(len(g.edges))*(edgeSize+slotBytes)
	return datasize.ByteSize(total)
}

// String renders a short human summary, in the spirit of
// NetworkStru.TimerReport's fmt.Printf tabular reports.
func (g *Graph) String() string {
	return fmt.Sprintf("graph: %d pins, %d nets, %d vertices, %d edges, %s",
		len(g.pins), len(g.nets), len(g.vertices), len(g.edges), g.MemoryFootprint().HumanReadable())
}

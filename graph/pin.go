package graph

// PinID indexes into Graph.pins.
type PinID int

// NetID indexes into Graph.nets.
type NetID int

// VertexID indexes into Graph.vertices.
type VertexID int

// EdgeID indexes into Graph.edges.
type EdgeID int

// InvalidID marks an unset reference in any of the ID types above.
const InvalidID = -1

// Pin is an input, output, bidirectional, or tristate-enable terminal
// of an instance or of the top design. Identity is by PinID, not by
// name: names live only for external collaborators (spec.md §6).
type Pin struct {
	ID       PinID
	Name     string
	InstName string
	Dir      Direction
	NetID    NetID

	// DriverVertex is the driver-side vertex for this pin (valid when
	// Dir is Output, Bidirect, or TristateEnable).
	DriverVertex VertexID
	// LoadVertex is the load-side vertex for this pin (valid when Dir
	// is Input or Bidirect: a bidirectional pin produces both, per
	// spec.md §3 "Vertex").
	LoadVertex VertexID

	// Hierarchical marks a pin at a hierarchical module boundary;
	// invalidating it fans out to every edge crossing that boundary.
	Hierarchical bool
}

// IsDriver reports whether this pin can source a net (output,
// bidirectional, or tristate-enable).
func (p *Pin) IsDriver() bool {
	return p.Dir == DirOutput || p.Dir == DirBidirect || p.Dir == DirTristateEnable
}

// IsLoad reports whether this pin can sink a net (input or
// bidirectional).
func (p *Pin) IsLoad() bool {
	return p.Dir == DirInput || p.Dir == DirBidirect
}

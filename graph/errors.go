package graph

import "errors"

// Structural inconsistencies (spec.md §7 class 3) propagate to the
// caller and abort the traversal that triggered them.
var (
	// ErrVertexNotFound indicates an operation referenced a vertex
	// index outside the arena.
	ErrVertexNotFound = errors.New("graph: vertex not found")

	// ErrEdgeNotFound indicates an operation referenced an edge index
	// outside the arena.
	ErrEdgeNotFound = errors.New("graph: edge not found")

	// ErrPinNotFound indicates an operation referenced a pin index
	// outside the arena.
	ErrPinNotFound = errors.New("graph: pin not found")

	// ErrNetNotFound indicates an operation referenced a net index
	// outside the arena.
	ErrNetNotFound = errors.New("graph: net not found")

	// ErrHierPinNotFound indicates a hierarchical pin invalidation could
	// not resolve to any boundary-crossing edge.
	ErrHierPinNotFound = errors.New("graph: hierarchical pin not found")

	// ErrNoLoadsOnNet indicates a multi-driver net has no load pins,
	// which leaves the dispatcher nothing to annotate.
	ErrNoLoadsOnNet = errors.New("graph: multi-driver net has no loads")
)

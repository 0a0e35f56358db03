package graph

// Net is an equipotential wire group: zero or more driver pins and
// zero or more load pins. A net with more than one leaf driver is
// resolved by a MultiDriverRecord (spec.md §3, §4.7).
type Net struct {
	ID      NetID
	Name    string
	Drivers []PinID
	Loads   []PinID
}

// IsMultiDriver reports whether this net has more than one leaf
// driver pin.
func (n *Net) IsMultiDriver() bool { return len(n.Drivers) > 1 }

// MultiDriverRecord is the shared bookkeeping for a net with n>1 leaf
// drivers: an ordered vector of driver vertices, a designated primary
// driver, and a per-(rise/fall, ap) cache of the shared parasitic
// loading (spec.md §3 "Multi-driver net record").
type MultiDriverRecord struct {
	NetID   NetID
	Drivers []VertexID

	// Primary is the driver vertex with the highest levelized rank;
	// only its dispatch recomputes the shared loading (spec.md §3, §8).
	Primary VertexID

	// ParallelDrive marks that the drivers are parallel gates driving
	// the same output in the same direction (spec.md §4.7), versus
	// independent drivers with a shared-but-possibly-disabled output.
	ParallelDrive bool

	// loadCache holds the per-(rf,ap) pin/wire/fanout tuples stored by
	// SetLoad. The dcalc dispatch paths neither fill nor read it, so
	// secondary drivers do not reuse a cached loading from it.
	loadCache map[int]LoadCacheEntry
}

// LoadCacheEntry is the shared-loading tuple a MultiDriverRecord
// caches per (rise/fall, ap) through SetLoad.
type LoadCacheEntry struct {
	PinCap  float64
	WireCap float64
	Fanout  float64
}

// Load returns the cached loading tuple for (rf, ap), if SetLoad has
// stored one.
func (m *MultiDriverRecord) Load(rf RiseFall, ap int) (LoadCacheEntry, bool) {
	if m.loadCache == nil {
		return LoadCacheEntry{}, false
	}
	e, ok := m.loadCache[SlotIndex(rf, ap)]
	return e, ok
}

// SetLoad caches the loading tuple for (rf, ap). Nothing in this
// module calls it.
func (m *MultiDriverRecord) SetLoad(rf RiseFall, ap int, e LoadCacheEntry) {
	if m.loadCache == nil {
		m.loadCache = make(map[int]LoadCacheEntry)
	}
	m.loadCache[SlotIndex(rf, ap)] = e
}

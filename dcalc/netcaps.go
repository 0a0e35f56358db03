package dcalc

// NetCaps is a driver pin's net-loading summary for one rise/fall and
// analysis point: pin capacitance, wire capacitance, fanout count, and
// whether an explicit set_load overrides the extracted value
// (spec.md §4.2 step 1; grounded verbatim on
// original_source/dcalc/NetCaps.hh's field shape).
type NetCaps struct {
	PinCap     float64
	WireCap    float64
	Fanout     float64
	HasNetLoad bool // true when an explicit set_load constraint applies
}

// TotalCap returns the scalar total capacitance an NLDM table lookup
// uses (spec.md §4.3 "Total capacitance = pin-cap + wire-cap").
func (c NetCaps) TotalCap() float64 { return c.PinCap + c.WireCap }

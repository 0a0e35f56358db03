package dcalc

import "github.com/opentiming/stacore/graph"

// UnitCalculator is the degenerate calculator: every arc delay is one
// time unit, every slew is zero, wire delay is zero. Grounded verbatim
// on original_source/dcalc/UnitDelayCalc.cc's unitDelayResult: no
// parasitic lookup, no reduction, a constant result regardless of
// input slew or load.
type UnitCalculator struct{}

// NewUnitCalculator returns a UnitCalculator; it is stateless.
func NewUnitCalculator() *UnitCalculator { return &UnitCalculator{} }

func (c *UnitCalculator) Name() string { return "unit" }

func (c *UnitCalculator) GateDelay(in DriverInput) (DriverOutput, error) {
	return c.unitResult(in.Loads), nil
}

func (c *UnitCalculator) GateDelays(ins []DriverInput) ([]DriverOutput, error) {
	out := make([]DriverOutput, len(ins))
	for i, in := range ins {
		out[i] = c.unitResult(in.Loads)
	}
	return out, nil
}

func (c *UnitCalculator) unitResult(loads []graph.PinID) DriverOutput {
	res := DriverOutput{GateDelay: 1.0, DriverSlew: 0.0, Loads: make([]LoadResult, len(loads))}
	for i, pin := range loads {
		res.Loads[i] = LoadResult{Pin: pin, WireDelay: 0, Slew: 0}
	}
	return res
}

func (c *UnitCalculator) FindParasitic(graph.PinID, graph.RiseFall, int) (interface{}, error) {
	return nil, nil
}

func (c *UnitCalculator) ReduceParasitic(interface{}, graph.RiseFall, int) (interface{}, error) {
	return nil, nil
}

func (c *UnitCalculator) FinishDriverPin() {}

func (c *UnitCalculator) Clone() Calculator { return &UnitCalculator{} }

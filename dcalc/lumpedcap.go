package dcalc

import (
	"errors"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
)

// ErrNoGateModel is returned when an arc's GateModel isn't the
// *nldm.ArcModel this calculator expects.
var ErrNoGateModel = errors.New("dcalc: arc has no NLDM gate model")

// LumpedCapCalculator bilinearly interpolates delay and slew from an
// arc's NLDM table over (in-slew, total-output-capacitance), with wire
// delay always zero and load slew equal to driver slew (spec.md §4.3).
//
// It is also the configured default calculator any other calculator
// falls back to on failure (spec.md §4.2 "Failure policy").
type LumpedCapCalculator struct {
	// DriverThresholds / LoadThresholds are the (low, high) logic/slew
	// measurement fractions, used to rescale slew when a load's
	// library disagrees with its driver's (spec.md §4.3 "Threshold
	// adjustment"). Zero-value (0,0) disables rescaling.
	DriverLow, DriverHigh float32
	LoadLow, LoadHigh     float32
}

// NewLumpedCapCalculator returns a calculator with no threshold
// rescaling configured (driver and load share thresholds).
func NewLumpedCapCalculator() *LumpedCapCalculator {
	return &LumpedCapCalculator{DriverLow: 0.2, DriverHigh: 0.8, LoadLow: 0.2, LoadHigh: 0.8}
}

func (c *LumpedCapCalculator) Name() string { return "lumped-cap" }

func (c *LumpedCapCalculator) GateDelay(in DriverInput) (DriverOutput, error) {
	model, ok := in.Arc.GateModel.(*nldm.ArcModel)
	if !ok || model == nil {
		return DriverOutput{}, ErrNoGateModel
	}
	totalCap := float32(in.Caps.TotalCap())
	inSlew := float32(in.InSlew)

	delay := model.GateDelay(inSlew, totalCap)
	slew := model.OutSlew(inSlew, totalCap)
	loadSlew := nldm.RescaleThreshold(slew, c.DriverLow, c.DriverHigh, c.LoadLow, c.LoadHigh)

	res := DriverOutput{
		GateDelay:  float64(delay),
		DriverSlew: float64(slew),
		Loads:      make([]LoadResult, len(in.Loads)),
	}
	for i, pin := range in.Loads {
		res.Loads[i] = LoadResult{Pin: pin, WireDelay: 0, Slew: float64(loadSlew)}
	}
	return res, nil
}

func (c *LumpedCapCalculator) GateDelays(ins []DriverInput) ([]DriverOutput, error) {
	out := make([]DriverOutput, len(ins))
	for i, in := range ins {
		res, err := c.GateDelay(in)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// FindParasitic is a no-op: this calculator does not consume a
// parasitic model at all, only NetCaps's scalar total capacitance.
func (c *LumpedCapCalculator) FindParasitic(graph.PinID, graph.RiseFall, int) (interface{}, error) {
	return nil, nil
}

func (c *LumpedCapCalculator) ReduceParasitic(h interface{}, _ graph.RiseFall, _ int) (interface{}, error) {
	return h, nil
}

func (c *LumpedCapCalculator) FinishDriverPin() {}

func (c *LumpedCapCalculator) Clone() Calculator {
	cp := *c
	return &cp
}

package dcalc

import (
	"sort"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/mna"
	"github.com/opentiming/stacore/nldm"
	"github.com/opentiming/stacore/parasitic"
	"github.com/opentiming/stacore/prima"
)

// PrimaCalculator builds the full MNA system like CCSCalculator, then
// projects it to a q-th order Krylov subspace before simulating, per
// spec.md §4.6. Measurement is identical to the CCS calculator's.
type PrimaCalculator struct {
	CCS   CCSCalculator
	Order int

	// Parasitics resolves FindParasitic's lookup, when configured. Left
	// nil, FindParasitic reports no parasitic found.
	Parasitics ParasiticFunc
}

// NewPrimaCalculator returns a calculator at the given reduction order
// (spec.md §6 "For PRIMA: reduction order q").
func NewPrimaCalculator(order int) *PrimaCalculator {
	return &PrimaCalculator{CCS: *NewCCSCalculator(), Order: order}
}

func (c *PrimaCalculator) Name() string { return "prima" }

func (c *PrimaCalculator) GateDelay(in DriverInput) (DriverOutput, error) {
	net, ok := in.Parasitic.(*parasitic.Network)
	if !ok || net == nil {
		return DriverOutput{}, ErrNoParasitic
	}
	waveforms, ok := in.Arc.GateModel.(*nldm.CCSWaveformSet)
	if !ok || waveforms == nil {
		return DriverOutput{}, ErrNoGateModel
	}

	full, err := mna.Build(net, c.CCS.CouplingMultiplier)
	if err != nil {
		return DriverOutput{}, err
	}
	red, err := prima.Reduce(full, c.Order)
	if err != nil {
		return DriverOutput{}, err
	}
	wave := waveforms.Nearest(float32(in.InSlew), float32(in.Caps.TotalCap()))

	sources := make([]mna.CurrentSource, red.Sys.P)
	sources[0] = func(t float64) float64 { return wave.CurrentAt(t) }
	for i := 1; i < red.Sys.P; i++ {
		sources[i] = func(float64) float64 { return 0 }
	}

	st := mna.NewStepper(red.Sys, sources)
	rising := in.RF == graph.Rise
	trackers := make([]*mna.ThresholdTracker, full.P)
	for i := range trackers {
		trackers[i] = mna.NewThresholdTracker(c.CCS.Thresholds[:], rising, c.CCS.Swing)
	}

	dt := full.SuggestedStep(c.CCS.StepFraction)
	for step := 0; step < c.CCS.MaxSteps; step++ {
		if err := st.Step(dt); err != nil {
			return DriverOutput{}, err
		}
		for i := range trackers {
			trackers[i].Observe(st.Time(), red.PortVoltage(st.State(), i))
		}
		if allDone(trackers) {
			break
		}
	}

	driverMid := trackers[0].Crossings()[1].Time
	driverSlew := mna.Slew(trackers[0].Crossings()[0], trackers[0].Crossings()[2], c.CCS.Thresholds[0], c.CCS.Thresholds[2])

	loads := make([]LoadResult, 0, len(in.Loads))
	for _, pin := range in.Loads {
		portIdx := portIndexForPin(full, pin)
		if portIdx < 0 {
			return DriverOutput{}, ErrCCSDisconnected
		}
		crossings := trackers[portIdx].Crossings()
		loads = append(loads, LoadResult{
			Pin:       pin,
			WireDelay: crossings[1].Time - driverMid,
			Slew:      mna.Slew(crossings[0], crossings[2], c.CCS.Thresholds[0], c.CCS.Thresholds[2]),
		})
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].Pin < loads[j].Pin })

	return DriverOutput{GateDelay: driverMid, DriverSlew: driverSlew, Loads: loads}, nil
}

func (c *PrimaCalculator) GateDelays(ins []DriverInput) ([]DriverOutput, error) {
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

func (c *PrimaCalculator) FindParasitic(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
	if c.Parasitics == nil {
		return nil, nil
	}
	return c.Parasitics(pin, rf, ap)
}

// SetParasitics wires a per-(pin,rf,ap) parasitic store into
// FindParasitic (dcalc.ParasiticSource).
func (c *PrimaCalculator) SetParasitics(p ParasiticFunc) { c.Parasitics = p }

func (c *PrimaCalculator) ReduceParasitic(handle interface{}, _ graph.RiseFall, _ int) (interface{}, error) {
	return handle, nil
}

func (c *PrimaCalculator) FinishDriverPin() {}

func (c *PrimaCalculator) Clone() Calculator {
	cp := *c
	return &cp
}

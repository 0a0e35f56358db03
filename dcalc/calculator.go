package dcalc

import (
	"github.com/opentiming/stacore/graph"
)

// LoadResult is the wire delay and load-side slew computed for one
// load pin of a driver's net (spec.md §4.2 step 4).
type LoadResult struct {
	Pin       graph.PinID
	WireDelay float64
	Slew      float64
}

// DriverInput is everything one calculator invocation needs to compute
// a driver's gate delay and every load's wire delay/slew (spec.md
// §4.2 "per-driver procedure" steps 1-2).
type DriverInput struct {
	Arc    *graph.TimingArc
	InSlew float64
	Caps   NetCaps
	// Parasitic is the driver pin's parasitic handle for this rise/fall
	// and analysis point, opaque to this package: a *parasitic.PiModel,
	// a *parasitic.Reduced, a *parasitic.Network, or nil for calculators
	// that don't consume one (unit, lumped-cap). Mirrors
	// graph.TimingArc.GateModel's opaque-field pattern.
	Parasitic interface{}
	Loads     []graph.PinID
	RF        graph.RiseFall
	AP        int
}

// DriverOutput is one calculator invocation's result.
type DriverOutput struct {
	GateDelay  float64
	DriverSlew float64
	Loads      []LoadResult
}

// Calculator is the pluggable per-driver delay-calc strategy (spec.md
// §4.2-§4.7), Go-ified from original_source/dcalc/UnitDelayCalc.hh's
// ArcDelayCalc abstract interface.
type Calculator interface {
	// Name identifies the calculator for configuration and error
	// reporting (spec.md §6 calculator names).
	Name() string

	// GateDelay computes one driver's scalar-interface result
	// (spec.md §4.2 step 2, "otherwise invoke the scalar interface").
	GateDelay(in DriverInput) (DriverOutput, error)

	// GateDelays computes a parallel multi-driver group's batch result,
	// one DriverOutput per input, in the same order (spec.md §4.2 step
	// 2, "invoke the batch interface").
	GateDelays(ins []DriverInput) ([]DriverOutput, error)

	// FindParasitic returns the stored parasitic handle for a driver
	// pin/rise-fall/analysis-point, in whatever form this calculator's
	// native parasitic reader produced it.
	FindParasitic(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error)

	// ReduceParasitic converts handle to this calculator's native form
	// if it is not already in it (spec.md §4.8). Calculators whose
	// native form accepts any stored form return handle unchanged.
	ReduceParasitic(handle interface{}, rf graph.RiseFall, ap int) (interface{}, error)

	// FinishDriverPin releases any per-pin scratch state (e.g. a
	// self-reduced parasitic) after a driver's dispatch completes
	// (spec.md §4.2 step 7).
	FinishDriverPin()

	// Clone returns an independent copy for a new worker thread to own
	// (spec.md §4.1 "private per-thread copy", §5 "clones the active
	// calculator on entry to a level").
	Clone() Calculator
}

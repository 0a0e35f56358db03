// Package config defines the engine configuration surface settable by
// a caller (spec.md §6 "Core configuration surface"): calculator
// selection, incremental-change tolerance, worker thread count, PRIMA
// reduction order, and parasitic-reader flags.
package config

import (
	"errors"
	"fmt"

	"github.com/opentiming/stacore/dcalc"
)

var (
	// ErrUnknownCalculator is returned by Validate and NewCalculator
	// when Calculator does not name a known calculator (spec.md §7
	// class 4, "Configuration error ... unknown calculator name").
	ErrUnknownCalculator = errors.New("config: unknown calculator name")

	// ErrBadTolerance is returned when IncrementalDelayTolerance falls
	// outside [0, 1).
	ErrBadTolerance = errors.New("config: incremental delay tolerance out of range")

	// ErrBadWorkerThreads is returned when WorkerThreads is less than 1.
	ErrBadWorkerThreads = errors.New("config: worker thread count must be >= 1")

	// ErrBadPrimaOrder is returned when PrimaOrder is not positive.
	ErrBadPrimaOrder = errors.New("config: PRIMA reduction order must be >= 1")

	// ErrBadAPSelection is returned when APSelection does not name a
	// known per-AP selection mode.
	ErrBadAPSelection = errors.New("config: unknown per-AP selection mode")
)

// Calculator names the calculator family to dispatch gate-delay and
// slew computation to (spec.md §6 enum {unit, lumped-cap, π-Elmore,
// π-two-pole, Arnoldi, CCS, PRIMA}).
type Calculator string

const (
	CalcUnit      Calculator = "unit"
	CalcLumpedCap Calculator = "lumped-cap"
	CalcPiElmore  Calculator = "pi-elmore"
	CalcPiTwoPole Calculator = "pi-two-pole"
	// CalcArnoldi and CalcPrima both name the block-Arnoldi Krylov
	// reducer of spec.md §4.6; "Arnoldi" is the projection method,
	// "PRIMA" the algorithm name, and both are accepted as selectable
	// names for the same calculator.
	CalcArnoldi Calculator = "arnoldi"
	CalcPrima   Calculator = "prima"
	CalcCCS     Calculator = "ccs"
)

// APSelection names which analysis points a calculator evaluates when
// a pin's library data is characterized at multiple corners (spec.md
// §6 "per-ap min/max selection").
type APSelection string

const (
	APSelectionMin  APSelection = "min"
	APSelectionMax  APSelection = "max"
	APSelectionBoth APSelection = "both"
)

// Config is the engine's full configuration surface. Fields are
// grouped the way spec.md §6 groups them: calculator selection and
// scheduling first, then parasitic-reader flags.
type Config struct {
	// Calculator selects the gate-delay/slew calculator family.
	Calculator Calculator `def:"lumped-cap" desc:"selected calculator: unit, lumped-cap, pi-elmore, pi-two-pole, arnoldi/prima, or ccs"`

	// IncrementalDelayTolerance bounds incremental change detection: a
	// new gate delay within this relative tolerance of the previous
	// one is treated as unchanged (spec.md §4.2). Zero means exact-
	// match-only.
	IncrementalDelayTolerance float64 `def:"0" desc:"relative tolerance for incremental delay change detection, in [0, 1)"`

	// WorkerThreads sets the scheduler's per-level worker pool size
	// (spec.md §4.1, §5).
	WorkerThreads int `def:"1" desc:"scheduler worker thread count"`

	// PrimaOrder is the PRIMA/Arnoldi reduction order q (spec.md §4.6,
	// "default 3-6"). Unused by calculators other than arnoldi/prima.
	PrimaOrder int `def:"4" desc:"PRIMA/Arnoldi Krylov reduction order"`

	// CouplingCapMultiplier scales coupling (cross-net) capacitance
	// before it is stamped into a parasitic network (spec.md §6).
	CouplingCapMultiplier float64 `def:"1" desc:"multiplier applied to coupling capacitance when reading parasitics"`

	// KeepCouplingCaps, when false, folds coupling caps to ground
	// instead of keeping them as cross-net elements (spec.md §6).
	KeepCouplingCaps bool `def:"true" desc:"keep coupling capacitances as cross-net elements rather than grounding them"`

	// PinCapIncludedInWireCap, when true, treats a load pin's own
	// input capacitance as already folded into the parasitic reader's
	// reported wire capacitance (spec.md §6).
	PinCapIncludedInWireCap bool `def:"false" desc:"pin capacitance is already included in the parasitic reader's reported wire capacitance"`

	// APSelection chooses which per-corner parasitic variant a
	// calculator uses when a net has min/max characterizations
	// (spec.md §6 "per-ap min/max selection").
	APSelection APSelection `def:"both" desc:"per-analysis-point parasitic selection: min, max, or both"`
}

// Defaults resets c to the engine's default configuration.
func (c *Config) Defaults() {
	c.Calculator = CalcLumpedCap
	c.IncrementalDelayTolerance = 0
	c.WorkerThreads = 1
	c.PrimaOrder = 4
	c.CouplingCapMultiplier = 1
	c.KeepCouplingCaps = true
	c.PinCapIncludedInWireCap = false
	c.APSelection = APSelectionBoth
}

// Validate reports the first configuration error found, classified as
// spec.md §7 class 4 ("configuration error ... surfaced to caller at
// construction").
func (c *Config) Validate() error {
	switch c.Calculator {
	case CalcUnit, CalcLumpedCap, CalcPiElmore, CalcPiTwoPole, CalcArnoldi, CalcPrima, CalcCCS:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCalculator, c.Calculator)
	}
	if c.IncrementalDelayTolerance < 0 || c.IncrementalDelayTolerance >= 1 {
		return fmt.Errorf("%w: %v", ErrBadTolerance, c.IncrementalDelayTolerance)
	}
	if c.WorkerThreads < 1 {
		return fmt.Errorf("%w: %d", ErrBadWorkerThreads, c.WorkerThreads)
	}
	needsPrima := c.Calculator == CalcArnoldi || c.Calculator == CalcPrima
	if needsPrima && c.PrimaOrder < 1 {
		return fmt.Errorf("%w: %d", ErrBadPrimaOrder, c.PrimaOrder)
	}
	switch c.APSelection {
	case APSelectionMin, APSelectionMax, APSelectionBoth:
	default:
		return fmt.Errorf("%w: %q", ErrBadAPSelection, c.APSelection)
	}
	return nil
}

// NewCalculator constructs the dcalc.Calculator named by c.Calculator.
// Callers typically call this once per Validate-ed Config to build the
// dcalc.Dispatcher's primary calculator. parasitics, when non-nil, is
// wired into the calculator's per-(pin,rf,ap) parasitic lookup
// (dcalc.ParasiticSource) the same way a NetCapsFunc is wired into
// dcalc.NewDispatcher; calculators with no parasitic concept (unit,
// lumped-cap) silently ignore it.
func (c *Config) NewCalculator(parasitics dcalc.ParasiticFunc) (dcalc.Calculator, error) {
	calc, err := c.newCalculator()
	if err != nil {
		return nil, err
	}
	if parasitics != nil {
		if src, ok := calc.(dcalc.ParasiticSource); ok {
			src.SetParasitics(parasitics)
		}
	}
	return calc, nil
}

func (c *Config) newCalculator() (dcalc.Calculator, error) {
	switch c.Calculator {
	case CalcUnit:
		return dcalc.NewUnitCalculator(), nil
	case CalcLumpedCap:
		return dcalc.NewLumpedCapCalculator(), nil
	case CalcPiElmore:
		return dcalc.NewEffCapCalculator(false), nil
	case CalcPiTwoPole:
		return dcalc.NewEffCapCalculator(true), nil
	case CalcArnoldi, CalcPrima:
		return dcalc.NewPrimaCalculator(c.PrimaOrder), nil
	case CalcCCS:
		return dcalc.NewCCSCalculator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalculator, c.Calculator)
	}
}

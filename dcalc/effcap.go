package dcalc

import (
	"errors"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
	"github.com/opentiming/stacore/parasitic"
	"github.com/opentiming/stacore/rootfind"
)

// ErrNoParasitic is returned when a driver's parasitic handle isn't a
// form the calculator can work with: a *parasitic.Reduced (or, for
// ReduceParasitic, a *parasitic.Network) for the effective-capacitance
// calculator, a *parasitic.Network for the CCS and PRIMA calculators.
var ErrNoParasitic = errors.New("dcalc: driver has no pi-model parasitic")

// EffCapCalculator implements the effective-capacitance calculator:
// an NLDM table lookup at a fixed-point effective capacitance derived
// from the driver's π model, plus per-load Elmore or two-pole wire
// response (spec.md §4.4).
type EffCapCalculator struct {
	// TwoPole selects two-pole mode over single-pole Elmore for the
	// per-load wire response (spec.md §4.4 "Two-pole mode replaces the
	// single-pole wire response").
	TwoPole bool
	// Tol and MaxIter bound the C_eff fixed-point iteration.
	Tol     float64
	MaxIter int

	// Parasitics resolves FindParasitic's lookup, when configured
	// (spec.md §6 "external collaborators"). Left nil, FindParasitic
	// reports no parasitic found, the dispatch pattern unit tests rely
	// on when they hand-construct a DriverInput directly.
	Parasitics ParasiticFunc
}

// NewEffCapCalculator returns an effective-capacitance calculator in
// two-pole mode when twoPole is set and Elmore mode otherwise, with
// reasonable fixed-point defaults.
func NewEffCapCalculator(twoPole bool) *EffCapCalculator {
	return &EffCapCalculator{TwoPole: twoPole, Tol: 1e-18, MaxIter: 20}
}

func (c *EffCapCalculator) Name() string {
	if c.TwoPole {
		return "pi-two-pole"
	}
	return "pi-elmore"
}

func (c *EffCapCalculator) GateDelay(in DriverInput) (DriverOutput, error) {
	red, ok := in.Parasitic.(*parasitic.Reduced)
	if !ok || red == nil {
		return DriverOutput{}, ErrNoParasitic
	}
	model, ok := in.Arc.GateModel.(*nldm.ArcModel)
	if !ok || model == nil {
		return DriverOutput{}, ErrNoGateModel
	}

	_, gateDelay, driverSlew, err := c.solveEffectiveCap(model, red.Pi, float32(in.InSlew))
	if err != nil {
		return DriverOutput{}, err
	}

	driverTau := red.Pi.R * red.Pi.C1
	loads := make([]LoadResult, len(in.Loads))
	for i, pin := range in.Loads {
		resp, ok := red.Loads[pin]
		if !ok {
			loads[i] = LoadResult{Pin: pin}
			continue
		}
		if c.TwoPole {
			wireDelay := c.twoPoleDelay(resp.TwoPole)
			loads[i] = LoadResult{Pin: pin, WireDelay: wireDelay, Slew: resp.Elmore.Slew(driverSlew, driverTau)}
		} else {
			loads[i] = LoadResult{
				Pin:       pin,
				WireDelay: resp.Elmore.Delay50(),
				Slew:      resp.Elmore.Slew(driverSlew, driverTau),
			}
		}
	}
	return DriverOutput{GateDelay: gateDelay, DriverSlew: driverSlew, Loads: loads}, nil
}

// twoPoleDelay finds the time the two-pole step response reaches 50%,
// by bisection-with-Newton on g(t) = response(t) - 0.5, using package
// rootfind (spec.md §4.9).
func (c *EffCapCalculator) twoPoleDelay(tp parasitic.TwoPole) float64 {
	dominant := tp.Tau1
	if dominant <= 0 {
		return 0
	}
	hi := dominant * 20
	f := func(t float64) (float64, float64) {
		return tp.StepResponse(t) - 0.5, numericDerivative(tp, t)
	}
	t, err := rootfind.Find(f, 0, hi, 1e-15, c.MaxIter)
	if err != nil {
		return dominant * 0.693 // Elmore-equivalent fallback
	}
	return t
}

func numericDerivative(tp parasitic.TwoPole, t float64) float64 {
	const h = 1e-15
	return (tp.StepResponse(t+h) - tp.StepResponse(t-h)) / (2 * h)
}

// solveEffectiveCap iterates gate-delay <- table(in_slew, C_eff);
// C_eff <- pi.EffectiveCap(gate-delay); halt when |delta C_eff| < tol
// (spec.md §4.4 "scalar fixed-point").
func (c *EffCapCalculator) solveEffectiveCap(model *nldm.ArcModel, pi parasitic.PiModel, inSlew float32) (ceff, gateDelay, driverSlew float64, err error) {
	ceff = pi.TotalCap()
	for i := 0; i < c.MaxIter; i++ {
		delay := model.GateDelay(inSlew, float32(ceff))
		next := pi.EffectiveCap(float64(delay))
		if abs64(next-ceff) < c.Tol {
			ceff = next
			gateDelay = float64(delay)
			break
		}
		ceff = next
		gateDelay = float64(delay)
	}
	driverSlew = float64(model.OutSlew(inSlew, float32(ceff)))
	return ceff, gateDelay, driverSlew, nil
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (c *EffCapCalculator) GateDelays(ins []DriverInput) ([]DriverOutput, error) {
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

func (c *EffCapCalculator) FindParasitic(pin graph.PinID, rf graph.RiseFall, ap int) (interface{}, error) {
	if c.Parasitics == nil {
		return nil, nil
	}
	return c.Parasitics(pin, rf, ap)
}

// SetParasitics wires a per-(pin,rf,ap) parasitic store into
// FindParasitic (dcalc.ParasiticSource).
func (c *EffCapCalculator) SetParasitics(p ParasiticFunc) { c.Parasitics = p }

// ReduceParasitic reduces a full RC network to a π+Elmore model if
// handle isn't already one (spec.md §4.8).
func (c *EffCapCalculator) ReduceParasitic(handle interface{}, _ graph.RiseFall, _ int) (interface{}, error) {
	switch h := handle.(type) {
	case *parasitic.Reduced:
		return h, nil
	case *parasitic.Network:
		return parasitic.Reduce(h, parasitic.DefaultOptions())
	default:
		return nil, ErrNoParasitic
	}
}

func (c *EffCapCalculator) FinishDriverPin() {}

func (c *EffCapCalculator) Clone() Calculator {
	cp := *c
	return &cp
}

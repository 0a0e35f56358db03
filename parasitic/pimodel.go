package parasitic

import "math"

// PiModel is the reduced-order driver-side view of a net: a
// capacitance C2 the driver sees directly, a single resistance R, and
// a far-side capacitance C1 behind it (spec.md §3 "π + Elmore").
type PiModel struct {
	C2 float64 // near-driver capacitance, farads
	R  float64 // ohms
	C1 float64 // far-side capacitance, farads
}

// TotalCap returns C2+C1, the net's total lumped capacitance as seen
// by the π model.
func (m PiModel) TotalCap() float64 { return m.C2 + m.C1 }

// EffectiveCap returns the scalar capacitance that, charged directly
// by the driver, would deliver the same charge by time gateDelay as
// the π model does (spec.md §4.4 "charge-equivalence formula").
//
// This is the O'Brien-Savarino closed form: the near cap is seen in
// full immediately, and the far cap is seen in proportion to how much
// of it has charged through R by gateDelay.
func (m PiModel) EffectiveCap(gateDelay float64) float64 {
	if m.R <= 0 || m.C1 <= 0 {
		return m.C2 + m.C1
	}
	tau := m.R * m.C1
	return m.C2 + m.C1*(1-math.Exp(-gateDelay/tau))
}

// ElmoreTau is one load pin's first-moment (Elmore) time constant, the
// path integral of R*C from the driver down to that pin (spec.md §4.8).
type ElmoreTau struct {
	Tau float64 // seconds
}

// Delay50 returns the Elmore-mode wire delay to the pin's 50% point:
// τ·ln2 (spec.md §4.4).
func (e ElmoreTau) Delay50() float64 { return e.Tau * math.Ln2 }

// Slew scales a driver output slew by this load's Elmore time constant
// relative to the driver's own dominant time constant (spec.md §4.4
// "slew is scaled from driver slew by (1 + τ/τ_drvr)").
func (e ElmoreTau) Slew(driverSlew, driverTau float64) float64 {
	if driverTau <= 0 {
		return driverSlew
	}
	return driverSlew * (1 + e.Tau/driverTau)
}

// TwoPole is a per-load reduced pole/residue pair matching the first
// two moments of the voltage transfer function from driver to load,
// used in two-pole mode in place of a single Elmore time constant
// (spec.md §4.4 "two-pole fit derived from reduced moments").
//
// Its step response is v(t) = 1 + (τ2·e^(-t/τ2) - τ1·e^(-t/τ1))/(τ1-τ2)
// for τ1 != τ2, and the single-exponential form 1 - e^(-t/τ1) when the
// moments degenerate to one pole (the common case for a short, nearly
// single-stage RC path).
type TwoPole struct {
	Tau1, Tau2 float64 // seconds; Tau2 == 0 means single-pole
}

// StepResponse evaluates the normalized (0->1) step response at time t.
func (p TwoPole) StepResponse(t float64) float64 {
	if p.Tau1 <= 0 {
		return 1
	}
	if p.Tau2 <= 0 || math.Abs(p.Tau1-p.Tau2) < 1e-18 {
		return 1 - math.Exp(-t/p.Tau1)
	}
	d := p.Tau1 - p.Tau2
	return 1 + (p.Tau2*math.Exp(-t/p.Tau2)-p.Tau1*math.Exp(-t/p.Tau1))/d
}

// twoPoleFromMoments fits a TwoPole from the first two voltage-transfer
// moments m1, m2 (m1 = -Elmore delay, as produced by the RICE moment
// recursion in reduce.go) by matching the Taylor series of
// 1/(1 - m1*s + (m1^2-m2)*s^2) term by term; the poles are the roots
// of the quadratic solved below. Falls back to a single pole with time
// constant -m1 (the Elmore delay) when the quadratic degenerates or
// yields a non-physical (non-real, non-negative) root.
func twoPoleFromMoments(m1, m2 float64) TwoPole {
	if m1 >= 0 {
		return TwoPole{}
	}
	b2 := m1*m1 - m2
	const eps = 1e-30
	if math.Abs(b2) < eps {
		return TwoPole{Tau1: -m1}
	}
	// b2*s^2 - m1*s + 1 = 0
	disc := m1*m1 - 4*b2
	if disc < 0 {
		return TwoPole{Tau1: -m1}
	}
	sq := math.Sqrt(disc)
	s1 := (m1 + sq) / (2 * b2)
	s2 := (m1 - sq) / (2 * b2)
	if s1 >= 0 || s2 >= 0 {
		// Non-physical root (right-half-plane or marginal pole): the
		// quadratic fit is ill-conditioned for this path, fall back.
		return TwoPole{Tau1: -m1}
	}
	tau1, tau2 := -1/s1, -1/s2
	if tau1 < tau2 {
		tau1, tau2 = tau2, tau1
	}
	return TwoPole{Tau1: tau1, Tau2: tau2}
}

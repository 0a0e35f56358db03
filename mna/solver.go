package mna

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularSystem is returned when the backward-Euler iteration
// matrix cannot be factored (a disconnected or degenerate network).
var ErrSingularSystem = errors.New("mna: iteration matrix is singular")

// CurrentSource evaluates a port's injected current at time t
// (spec.md §4.5 "i(t) holds driver output currents ... and zero
// elsewhere"). Ports with no active source should return 0.
type CurrentSource func(t float64) float64

// Stepper runs backward-Euler time integration of a System, refactoring
// its iteration matrix only when Δt changes (spec.md §4.5 "The matrix
// is factored once per Δt").
type Stepper struct {
	sys     *System
	sources []CurrentSource

	v        *mat.VecDense // current state
	t        float64
	dt       float64
	iterLU   mat.LU
	haveIter bool
}

// NewStepper returns a Stepper at t=0, v=0 for the given system, with
// one CurrentSource per port (sources[0] drives the output pin).
func NewStepper(sys *System, sources []CurrentSource) *Stepper {
	return &Stepper{
		sys:     sys,
		sources: sources,
		v:       mat.NewVecDense(sys.N, nil),
	}
}

// Time returns the stepper's current simulated time.
func (st *Stepper) Time() float64 { return st.t }

// Voltage returns the current voltage at node index i. For a reduced
// (PRIMA) system this is a reduced-coordinate value, not a physical
// node voltage; package prima reconstructs port voltages from State.
func (st *Stepper) Voltage(i int) float64 { return st.v.AtVec(i) }

// State returns the stepper's full internal state vector.
func (st *Stepper) State() *mat.VecDense { return st.v }

// Step advances the simulation by dt, solving
// (G + C/dt) v_{k+1} = C/dt v_k + B u(t_{k+1}).
// Reuses the factored iteration matrix across calls with the same dt.
func (st *Stepper) Step(dt float64) error {
	if dt != st.dt || !st.haveIter {
		iter := mat.NewDense(st.sys.N, st.sys.N, nil)
		iter.Add(st.sys.G, scaleDiag(st.sys.C, 1/dt))
		var lu mat.LU
		lu.Factorize(iter)
		st.iterLU = lu
		st.dt = dt
		st.haveIter = true
	}

	rhs := mat.NewVecDense(st.sys.N, nil)
	cOverDt := scaleDiag(st.sys.C, 1/dt)
	rhs.MulVec(cOverDt, st.v)

	u := mat.NewVecDense(st.sys.P, nil)
	for i := 0; i < st.sys.P; i++ {
		u.SetVec(i, st.sources[i](st.t+dt))
	}
	bu := mat.NewVecDense(st.sys.N, nil)
	bu.MulVec(st.sys.B, u)
	rhs.AddVec(rhs, bu)

	next := mat.NewVecDense(st.sys.N, nil)
	if err := st.iterLU.SolveVecTo(next, false, rhs); err != nil {
		return ErrSingularSystem
	}
	st.v = next
	st.t += dt
	return nil
}

// scaleDiag returns a new matrix equal to m scaled by k, used here
// only for the diagonal capacitance matrix C/dt.
func scaleDiag(m *mat.Dense, k float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(k, m)
	return out
}

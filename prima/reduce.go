package prima

import (
	"errors"

	"github.com/opentiming/stacore/mna"
	"gonum.org/v1/gonum/mat"
)

// ErrOrderTooLarge is returned when the requested reduction order
// would need more Krylov vectors than the system has states.
var ErrOrderTooLarge = errors.New("prima: reduction order exceeds system size")

// Reduced is a PRIMA-reduced system plus the projection basis needed
// to recover physical port voltages from its reduced-coordinate state
// (spec.md §4.6 "reconstruct port voltages via x ~= V_q * x_q").
type Reduced struct {
	Sys *mna.System // reduced system: N=q*P reduced states, P physical ports
	V   *mat.Dense  // NxqP projection basis (N is the ORIGINAL system's size)
}

// Reduce builds a PRIMA model of order q from sys via block-Arnoldi
// (spec.md §4.6): A = -M^-1 C, r0 = M^-1 B, orthonormalized block by
// block, then G/C/B projected through the resulting basis.
//
// M = G + shift*C rather than G alone: these parasitic networks model
// each node's capacitance only to ground (a diagonal addition to C)
// and never stamp any branch conductance to ground, so G is exactly
// the node-admittance Laplacian of a floating network and is always
// singular (its rows sum to zero). Expanding the Krylov recursion
// about a nonzero frequency shift instead of DC sidesteps that
// singularity; naturalShift derives shift from the system's own G/C
// scale so the expansion point tracks the network's own time
// constant rather than an arbitrary fixed frequency.
func Reduce(sys *mna.System, q int) (*Reduced, error) {
	if q < 1 || q*sys.P > sys.N {
		return nil, ErrOrderTooLarge
	}

	shift := naturalShift(sys)
	m := mat.NewDense(sys.N, sys.N, nil)
	m.Add(sys.G, scaled(sys.C, shift))

	var mLU mat.LU
	mLU.Factorize(m)

	r0 := mat.NewDense(sys.N, sys.P, nil)
	if err := mLU.SolveTo(r0, false, sys.B); err != nil {
		return nil, err
	}

	blocks := make([]*mat.Dense, 0, q)
	blocks = append(blocks, orthonormalize(r0))

	for k := 1; k < q; k++ {
		cv := mat.NewDense(sys.N, sys.P, nil)
		cv.Mul(sys.C, blocks[k-1])
		x := mat.NewDense(sys.N, sys.P, nil)
		// A * V_{k-1} = -M^-1 C V_{k-1}
		if err := mLU.SolveTo(x, false, cv); err != nil {
			return nil, err
		}
		x.Scale(-1, x)

		for _, prev := range blocks {
			proj := mat.NewDense(sys.P, sys.P, nil)
			proj.Mul(prev.T(), x)
			correction := mat.NewDense(sys.N, sys.P, nil)
			correction.Mul(prev, proj)
			x.Sub(x, correction)
		}
		blocks = append(blocks, orthonormalize(x))
	}

	cols := q * sys.P
	v := mat.NewDense(sys.N, cols, nil)
	for k, blk := range blocks {
		for row := 0; row < sys.N; row++ {
			for c := 0; c < sys.P; c++ {
				v.Set(row, k*sys.P+c, blk.At(row, c))
			}
		}
	}

	gr := project(v, sys.G)
	cr := project(v, sys.C)
	br := mat.NewDense(cols, sys.P, nil)
	br.Mul(v.T(), sys.B)

	reducedSys := &mna.System{N: cols, P: sys.P, G: gr, C: cr, B: br}
	return &Reduced{Sys: reducedSys, V: v}, nil
}

// naturalShift derives a frequency (1/seconds) scale from sys's own
// conductance and capacitance diagonals, sum(G_ii)/sum(C_ii), so the
// Krylov expansion point sits at the network's own characteristic
// frequency rather than an arbitrary constant. Falls back to 1 when
// the system carries no capacitance at all (degenerate input).
func naturalShift(sys *mna.System) float64 {
	var gSum, cSum float64
	for i := 0; i < sys.N; i++ {
		gSum += sys.G.At(i, i)
		cSum += sys.C.At(i, i)
	}
	if cSum <= 0 {
		return 1
	}
	return gSum / cSum
}

// scaled returns a copy of m scaled by k.
func scaled(m *mat.Dense, k float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(k, m)
	return out
}

// project returns V^T M V.
func project(v *mat.Dense, m *mat.Dense) *mat.Dense {
	_, cols := v.Dims()
	n, _ := m.Dims()
	mv := mat.NewDense(n, cols, nil)
	mv.Mul(m, v)
	out := mat.NewDense(cols, cols, nil)
	out.Mul(v.T(), mv)
	return out
}

// orthonormalize returns an orthonormal basis for block's column
// space via modified Gram-Schmidt, column by column.
func orthonormalize(block *mat.Dense) *mat.Dense {
	rows, cols := block.Dims()
	q := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		v := mat.NewVecDense(rows, nil)
		v.CopyVec(block.ColView(c))
		for p := 0; p < c; p++ {
			prev := q.ColView(p)
			proj := mat.Dot(prev, v)
			v.AddScaledVec(v, -proj, prev)
		}
		norm := mat.Norm(v, 2)
		if norm < 1e-300 {
			norm = 1
		}
		v.ScaleVec(1/norm, v)
		q.SetCol(c, v.RawVector().Data)
	}
	return q
}

// PortVoltage reconstructs the voltage at physical port index i from a
// reduced-system stepper's current state: x_i ~= V[i,:] . x_q
// (spec.md §4.6).
func (r *Reduced) PortVoltage(state *mat.VecDense, port int) float64 {
	row := r.V.RowView(port)
	var sum float64
	n := row.Len()
	for k := 0; k < n; k++ {
		sum += row.AtVec(k) * state.AtVec(k)
	}
	return sum
}

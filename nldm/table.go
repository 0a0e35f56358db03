package nldm

import (
	"errors"

	"github.com/chewxy/math32"
)

// ErrEmptyAxis is returned when a Table is built with fewer than two
// points on either axis, which makes interpolation meaningless.
var ErrEmptyAxis = errors.New("nldm: table axis needs at least two points")

// Table is a 2-D lookup over (input-slew, total-output-capacitance),
// bilinearly interpolated (spec.md §4.3).
type Table struct {
	inSlew  []float32
	loadCap []float32
	// values[i][j] is the table entry at (inSlew[i], loadCap[j]).
	values [][]float32
}

// NewTable builds a table from sorted axis points and a
// len(inSlew) x len(loadCap) value grid.
func NewTable(inSlew, loadCap []float32, values [][]float32) (*Table, error) {
	if len(inSlew) < 2 || len(loadCap) < 2 {
		return nil, ErrEmptyAxis
	}
	return &Table{inSlew: inSlew, loadCap: loadCap, values: values}, nil
}

// Lookup bilinearly interpolates the table at (inSlew, loadCap),
// clamping to the table's edge when either axis value falls outside
// its range.
func (t *Table) Lookup(inSlew, loadCap float32) float32 {
	i0, i1, fi := bracket(t.inSlew, inSlew)
	j0, j1, fj := bracket(t.loadCap, loadCap)

	v00 := t.values[i0][j0]
	v01 := t.values[i0][j1]
	v10 := t.values[i1][j0]
	v11 := t.values[i1][j1]

	v0 := v00 + fi*(v10-v00)
	v1 := v01 + fi*(v11-v01)
	return v0 + fj*(v1-v0)
}

// bracket finds the two axis indices surrounding x and the fractional
// position between them, clamping x to [axis[0], axis[len-1]].
func bracket(axis []float32, x float32) (lo, hi int, frac float32) {
	n := len(axis)
	if x <= axis[0] {
		return 0, 0, 0
	}
	if x >= axis[n-1] {
		return n - 1, n - 1, 0
	}
	for k := 0; k < n-1; k++ {
		if x >= axis[k] && x <= axis[k+1] {
			span := axis[k+1] - axis[k]
			if span == 0 {
				return k, k + 1, 0
			}
			return k, k + 1, (x - axis[k]) / span
		}
	}
	return n - 1, n - 1, 0
}

// ArcModel is the pair of tables a combinational/clock timing arc
// owns under the NLDM gate model (spec.md §3 "Timing arc set").
type ArcModel struct {
	Delay *Table
	Slew  *Table
}

// GateDelay returns the interpolated gate delay for this arc.
func (m *ArcModel) GateDelay(inSlew, loadCap float32) float32 { return m.Delay.Lookup(inSlew, loadCap) }

// OutSlew returns the interpolated output slew for this arc.
func (m *ArcModel) OutSlew(inSlew, loadCap float32) float32 { return m.Slew.Lookup(inSlew, loadCap) }

// RescaleThreshold linearly rescales a slew or delay value computed
// under the driver's logic/slew thresholds to the load's thresholds
// (spec.md §4.3 "Threshold adjustment").
//
// thresholds are expressed as the low/high fractions of Vdd the slew
// measurement uses (e.g. 0.2/0.8 for Nangate-style 20-80% slew).
func RescaleThreshold(value float32, drvrLow, drvrHigh, loadLow, loadHigh float32) float32 {
	drvrSpan := drvrHigh - drvrLow
	loadSpan := loadHigh - loadLow
	if math32.Abs(drvrSpan) < 1e-6 {
		return value
	}
	return value * (loadSpan / drvrSpan)
}

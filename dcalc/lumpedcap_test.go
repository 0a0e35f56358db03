package dcalc

import (
	"testing"

	"github.com/opentiming/stacore/graph"
	"github.com/opentiming/stacore/nldm"
	"github.com/stretchr/testify/require"
)

func sampleArcModel(t *testing.T) *nldm.ArcModel {
	t.Helper()
	inSlew := []float32{0.01, 1.0}
	loadCap := []float32{0.01, 1.0}
	delay, err := nldm.NewTable(inSlew, loadCap, [][]float32{{10, 20}, {20, 40}})
	require.NoError(t, err)
	slew, err := nldm.NewTable(inSlew, loadCap, [][]float32{{5, 10}, {10, 20}})
	require.NoError(t, err)
	return &nldm.ArcModel{Delay: delay, Slew: slew}
}

func TestLumpedCapGateDelayInterpolatesFromTable(t *testing.T) {
	c := NewLumpedCapCalculator()
	arc := &graph.TimingArc{GateModel: sampleArcModel(t)}
	out, err := c.GateDelay(DriverInput{
		Arc:    arc,
		InSlew: 0.01,
		Caps:   NetCaps{PinCap: 0.005, WireCap: 0.005},
		Loads:  []graph.PinID{1},
	})
	require.NoError(t, err)
	require.InDelta(t, 10.0, out.GateDelay, 1e-6)
	require.InDelta(t, 5.0, out.DriverSlew, 1e-6)
	require.Len(t, out.Loads, 1)
	require.Equal(t, 0.0, out.Loads[0].WireDelay)
	require.InDelta(t, 5.0, out.Loads[0].Slew, 1e-6)
}

func TestLumpedCapRejectsWrongGateModelType(t *testing.T) {
	c := NewLumpedCapCalculator()
	arc := &graph.TimingArc{GateModel: nil}
	_, err := c.GateDelay(DriverInput{Arc: arc})
	require.ErrorIs(t, err, ErrNoGateModel)
}

func TestLumpedCapGateDelaysBatchMatchesScalar(t *testing.T) {
	c := NewLumpedCapCalculator()
	arc := &graph.TimingArc{GateModel: sampleArcModel(t)}
	in := DriverInput{Arc: arc, InSlew: 0.01, Caps: NetCaps{PinCap: 0.01}, Loads: []graph.PinID{1}}
	batch, err := c.GateDelays([]DriverInput{in, in})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, batch[0].GateDelay, batch[1].GateDelay)
}

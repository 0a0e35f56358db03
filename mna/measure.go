package mna

// Crossing records the time a port's voltage first crosses a
// threshold fraction of the supply swing, found by linear
// interpolation between the two bracketing simulation steps
// (spec.md §4.5 "Measurement").
type Crossing struct {
	Threshold float64
	Time      float64
	Found     bool
}

// ThresholdTracker watches one port across a simulation run and
// records the first-crossing time for each of a set of thresholds,
// in either rising or falling direction.
type ThresholdTracker struct {
	thresholds []float64
	rising     bool
	swing      float64 // full logic swing, e.g. Vdd

	prevT, prevV float64
	haveReading  bool
	crossings    []Crossing
}

// NewThresholdTracker returns a tracker for the given thresholds
// (fractions of swing, e.g. 0.1/0.5/0.9), watching for a rising or
// falling transition.
func NewThresholdTracker(thresholds []float64, rising bool, swing float64) *ThresholdTracker {
	cs := make([]Crossing, len(thresholds))
	for i, th := range thresholds {
		cs[i] = Crossing{Threshold: th}
	}
	return &ThresholdTracker{thresholds: thresholds, rising: rising, swing: swing, crossings: cs}
}

// Observe feeds one more (time, voltage) sample and records any
// threshold crossed since the previous sample.
func (tt *ThresholdTracker) Observe(t, v float64) {
	if !tt.haveReading {
		tt.prevT, tt.prevV = t, v
		tt.haveReading = true
		return
	}
	for i := range tt.crossings {
		c := &tt.crossings[i]
		if c.Found {
			continue
		}
		level := c.Threshold * tt.swing
		crossed := (tt.rising && tt.prevV < level && v >= level) ||
			(!tt.rising && tt.prevV > level && v <= level)
		if crossed {
			span := v - tt.prevV
			frac := 0.0
			if span != 0 {
				frac = (level - tt.prevV) / span
			}
			c.Time = tt.prevT + frac*(t-tt.prevT)
			c.Found = true
		}
	}
	tt.prevT, tt.prevV = t, v
}

// Done reports whether every threshold has been crossed.
func (tt *ThresholdTracker) Done() bool {
	for _, c := range tt.crossings {
		if !c.Found {
			return false
		}
	}
	return true
}

// Crossings returns the recorded crossing times, one per threshold in
// the order passed to NewThresholdTracker.
func (tt *ThresholdTracker) Crossings() []Crossing { return tt.crossings }

// Slew computes the slew between a low and high threshold crossing:
// the time between them normalized to a full 0%-100% transition
// (spec.md §4.5 "load slew = (high - low) / (thr_hi - thr_lo) x Δv",
// sign-adjusted so a falling transition's negative time delta still
// yields a positive slew).
func Slew(low, high Crossing, thrLo, thrHi float64) float64 {
	if !low.Found || !high.Found || thrHi == thrLo {
		return 0
	}
	dt := high.Time - low.Time
	if dt < 0 {
		dt = -dt
	}
	return dt / (thrHi - thrLo)
}

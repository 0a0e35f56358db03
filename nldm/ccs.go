package nldm

// CCSWaveform is a single piecewise-linear driver output current
// waveform parameterized by one (input-slew, output-load) sample
// point (spec.md §4.5 "Inputs").
type CCSWaveform struct {
	InSlew  float32
	LoadCap float32
	Time    []float64 // seconds, strictly increasing
	Current []float64 // amps, same length as Time
}

// CCSWaveformSet is the library model data for one output arc: a
// small grid of CCSWaveform samples over (input-slew, output-load).
// The CCS and PRIMA calculators use the single Nearest waveform; no
// blending across neighboring samples is done.
type CCSWaveformSet struct {
	Waveforms []CCSWaveform
}

// CurrentAt returns this waveform's output current at time t, linearly
// interpolating between its Time samples (clamped at the ends).
func (w *CCSWaveform) CurrentAt(t float64) float64 {
	n := len(w.Time)
	if n == 0 {
		return 0
	}
	if t <= w.Time[0] {
		return w.Current[0]
	}
	if t >= w.Time[n-1] {
		return w.Current[n-1]
	}
	for k := 0; k < n-1; k++ {
		if t >= w.Time[k] && t <= w.Time[k+1] {
			span := w.Time[k+1] - w.Time[k]
			if span == 0 {
				return w.Current[k]
			}
			frac := (t - w.Time[k]) / span
			return w.Current[k] + frac*(w.Current[k+1]-w.Current[k])
		}
	}
	return w.Current[n-1]
}

// Nearest returns the waveform whose (InSlew, LoadCap) sample point is
// closest to the requested operating point, by Euclidean distance over
// the raw (slew, cap) values; the axes are not normalized.
func (s *CCSWaveformSet) Nearest(inSlew, loadCap float32) *CCSWaveform {
	if len(s.Waveforms) == 0 {
		return nil
	}
	best := &s.Waveforms[0]
	bestD := distance2(best, inSlew, loadCap)
	for i := 1; i < len(s.Waveforms); i++ {
		d := distance2(&s.Waveforms[i], inSlew, loadCap)
		if d < bestD {
			bestD = d
			best = &s.Waveforms[i]
		}
	}
	return best
}

func distance2(w *CCSWaveform, inSlew, loadCap float32) float32 {
	ds := w.InSlew - inSlew
	dc := w.LoadCap - loadCap
	return ds*ds + dc*dc
}

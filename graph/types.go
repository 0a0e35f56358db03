package graph

// Direction is the terminal direction of a Pin.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
	DirBidirect
	DirTristateEnable
)

// RiseFall distinguishes a rising from a falling transition. There are
// always exactly two, so slots are indexed densely rather than keyed
// by this type.
type RiseFall int

const (
	Rise RiseFall = iota
	Fall
	riseFallCount = 2
)

// Other returns the opposite transition.
func (rf RiseFall) Other() RiseFall {
	if rf == Rise {
		return Fall
	}
	return Rise
}

func (rf RiseFall) String() string {
	if rf == Rise {
		return "rise"
	}
	return "fall"
}

// MinMax is the polarity an AnalysisPoint merges slews and delays
// toward: MinMax selects whether "worse" means larger or smaller.
type MinMax int

const (
	Min MinMax = iota
	Max
)

// Worse reports whether candidate is worse than current under this
// polarity: for Max, larger is worse; for Min, smaller is worse.
func (mm MinMax) Worse(candidate, current float64) bool {
	if mm == Max {
		return candidate > current
	}
	return candidate < current
}

// InitialValue is the slot value assigned to a slew or delay that has
// no real arc driving it in this direction, so it can never spuriously
// propagate (spec.md §4.2 step 6, §8 quantified invariants).
func (mm MinMax) InitialValue() float64 {
	if mm == Max {
		return 0
	}
	return posInf
}

const posInf = 1e300 // effectively +Inf while staying a safely comparable float64 literal.

// AnalysisPoint is a (process/voltage/temperature corner, min/max)
// context. The engine carries a fixed, dense set of these; all delays
// and slews are parameterized by AnalysisPoint index, never by a
// nested map (spec.md §9 "Analysis-point indexing").
type AnalysisPoint struct {
	Corner string
	Polarity MinMax
}

// APSet is the fixed set of AnalysisPoints an engine instance carries.
type APSet struct {
	points []AnalysisPoint
}

// NewAPSet builds a fixed analysis-point set. Order determines index
// assignment used everywhere else in the engine.
func NewAPSet(points []AnalysisPoint) *APSet {
	cp := make([]AnalysisPoint, len(points))
	copy(cp, points)
	return &APSet{points: cp}
}

// Count returns the number of analysis points.
func (s *APSet) Count() int { return len(s.points) }

// At returns the analysis point at index ap.
func (s *APSet) At(ap int) AnalysisPoint { return s.points[ap] }

// SlotIndex computes the dense index of (rf, ap) into a
// rise_fall_count * ap_count slot array.
func SlotIndex(rf RiseFall, ap int) int { return ap*riseFallCount + int(rf) }

// slotCount returns the slot array length needed for a given AP count.
func slotCount(apCount int) int { return riseFallCount * apCount }

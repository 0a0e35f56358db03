package graph

// Slots is a dense (rise/fall, analysis-point) array of values plus a
// parallel annotated-flag array, used for both vertex slews and edge
// delays. Grounded on spec.md §9's "avoid nested dictionaries on hot
// paths" and a flat-slice-of-variables convention in the style of a
// per-neuron variable array, rather than a per-(rf,ap) map.
type Slots struct {
	values    []float64
	annotated []bool
	polarity  []MinMax // per-ap polarity, shared reference into the APSet
}

// NewSlots allocates a slot array for apCount analysis points, each
// initialized to its polarity's InitialValue.
func NewSlots(aps *APSet) Slots {
	n := slotCount(aps.Count())
	s := Slots{
		values:    make([]float64, n),
		annotated: make([]bool, n),
		polarity:  make([]MinMax, aps.Count()),
	}
	for ap := 0; ap < aps.Count(); ap++ {
		s.polarity[ap] = aps.At(ap).Polarity
		for _, rf := range []RiseFall{Rise, Fall} {
			s.values[SlotIndex(rf, ap)] = aps.At(ap).Polarity.InitialValue()
		}
	}
	return s
}

// Get returns the current value at (rf, ap).
func (s *Slots) Get(rf RiseFall, ap int) float64 { return s.values[SlotIndex(rf, ap)] }

// IsAnnotated reports whether (rf, ap) holds a fixed (SDF-style)
// annotation rather than a derived value.
func (s *Slots) IsAnnotated(rf RiseFall, ap int) bool { return s.annotated[SlotIndex(rf, ap)] }

// SetAnnotated fixes the value at (rf, ap) and marks it annotated;
// subsequent Merge calls at that slot are no-ops.
func (s *Slots) SetAnnotated(rf RiseFall, ap int, v float64) {
	i := SlotIndex(rf, ap)
	s.values[i] = v
	s.annotated[i] = true
}

// Reset returns a slot to its AP polarity's initial value and clears
// the annotated flag, e.g. for the absent-direction case (spec.md
// §4.2 step 6).
func (s *Slots) Reset(rf RiseFall, ap int) {
	i := SlotIndex(rf, ap)
	s.values[i] = s.polarity[ap].InitialValue()
	s.annotated[i] = false
}

// Merge writes candidate into (rf, ap) only if the slot is not
// annotated and candidate is "worse" per the AP's polarity than the
// value already present (spec.md §3 invariants, §4.2 step 3-4); the
// slot's initial value guarantees the first real candidate is always
// accepted. It reports whether the stored value changed.
func (s *Slots) Merge(rf RiseFall, ap int, candidate float64) bool {
	i := SlotIndex(rf, ap)
	if s.annotated[i] {
		return false
	}
	if s.polarity[ap].Worse(candidate, s.values[i]) {
		s.values[i] = candidate
		return true
	}
	return false
}

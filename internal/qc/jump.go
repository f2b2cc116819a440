package qc

import (
	"math"

	"github.com/weatherxm-network/qod/internal/models"
)

// JumpCheck parameterizes one run of the jump detector. The detector
// is shared between the raw scale (SPIKE_INST / UNIDENTIFIED_SPIKE)
// and the minute scale (ANOMALOUS_INCREASE /
// UNIDENTIFIED_ANOMALOUS_INCREASE).
type JumpCheck struct {
	// Threshold is the largest plausible change between consecutive
	// slots. NaN disables the detector.
	Threshold float64
	// WindowSlots is the trailing rolling-median window, in slots.
	WindowSlots int
	// MedianAvailability is the fraction of the window that must hold
	// values for the median to be trusted.
	MedianAvailability float64
	// Identified and Unidentified are the codes for a resolved and an
	// unresolved jump.
	Identified   models.Code
	Unidentified models.Code
	// Propagate extends an identified mark across consecutive equal
	// values: a spike that repeats verbatim is the same spike.
	Propagate bool
}

// Run annotates implausible step changes in the series. Each pair of
// consecutive values differing by more than the threshold is a jump;
// the offender is whichever of the two sits further from its own
// trailing rolling median, and gets the identified code. When the
// distances tie, or when either median rests on too little data to
// trust, both slots get the unidentified code.
func (jc JumpCheck) Run(values []float64, ann Annotations) {
	if math.IsNaN(jc.Threshold) {
		return
	}
	med := rollingMedians(values, jc.WindowSlots, jc.MedianAvailability)

	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		diff := math.Abs(cur - prev)
		if diff == 0 {
			if jc.Propagate && ann.Has(i-1, jc.Identified) {
				ann.Add(i, jc.Identified)
			}
			continue
		}
		if diff <= jc.Threshold {
			continue
		}
		if math.IsNaN(med[i-1]) || math.IsNaN(med[i]) {
			ann.Add(i-1, jc.Unidentified)
			ann.Add(i, jc.Unidentified)
			continue
		}
		devPrev := math.Abs(prev - med[i-1])
		devCur := math.Abs(cur - med[i])
		switch {
		case devCur > devPrev:
			ann.Add(i, jc.Identified)
		case devPrev > devCur:
			ann.Add(i-1, jc.Identified)
		default:
			ann.Add(i-1, jc.Unidentified)
			ann.Add(i, jc.Unidentified)
		}
	}
}

// rollingMedians computes the trailing median of the window slots
// ending at each index, inclusive. A median is NaN until the window
// holds at least minAvail of its capacity in values.
func rollingMedians(values []float64, window int, minAvail float64) []float64 {
	med := make([]float64, len(values))
	need := int(math.Ceil(minAvail * float64(window)))
	if need < 1 {
		need = 1
	}
	scratch := make([]float64, 0, window)
	for i := range values {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		scratch = scratch[:0]
		for j := from; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				scratch = append(scratch, values[j])
			}
		}
		if len(scratch) < need {
			med[i] = math.NaN()
			continue
		}
		med[i] = median(scratch)
	}
	return med
}

// Package qc implements the quality-annotation engine: fixed-grid
// resampling, gap filling, out-of-bounds checks, self-quality checks
// (constancy, availability, jumps) and minute/hourly aggregation.
// Every check annotates grid slots with codes; the engine never
// mutates or rejects the readings themselves.
package qc

import (
	"math"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// TiePolicy decides which of several readings that land equally close
// to the same grid slot wins.
type TiePolicy int

const (
	// TieFirst keeps the earliest of the tied readings.
	TieFirst TiePolicy = iota
	// TieLast keeps the latest.
	TieLast
	// TieMean averages the tied readings.
	TieMean
)

// Series is a fixed-step grid of values for one variable. Missing
// slots hold NaN.
type Series struct {
	Start  time.Time
	Step   time.Duration
	Values []float64
}

func (s Series) Len() int { return len(s.Values) }

// SlotTime returns the timestamp of slot i.
func (s Series) SlotTime(i int) time.Time {
	return s.Start.Add(time.Duration(i) * s.Step)
}

// SlotAt returns the slot index whose timestamp is nearest to t, or
// -1 when t falls outside the grid or outside the half-step tolerance
// of every slot.
func (s Series) SlotAt(t time.Time) int {
	off := t.Sub(s.Start)
	if off < -s.Step/2 {
		return -1
	}
	i := int((off + s.Step/2) / s.Step)
	if i >= s.Len() {
		return -1
	}
	dist := off - time.Duration(i)*s.Step
	if dist < 0 {
		dist = -dist
	}
	if dist > s.Step/2 {
		return -1
	}
	return i
}

// Resample projects irregular readings of one variable onto a fixed
// grid of n slots. A reading lands in the slot whose timestamp is
// nearest, within half a step; among several candidates for the same
// slot the closest wins, and exact distance ties are resolved by the
// tie policy. Readings with a missing value never claim a slot.
func Resample(readings []models.RawReading, v models.Variable, start time.Time, step time.Duration, n int, tie TiePolicy) Series {
	s := Series{Start: start, Step: step, Values: make([]float64, n)}
	for i := range s.Values {
		s.Values[i] = math.NaN()
	}

	dist := make([]time.Duration, n)
	tieCount := make([]int, n)

	for _, r := range readings {
		val := r.Values[v]
		if math.IsNaN(val) {
			continue
		}
		i := s.SlotAt(r.Timestamp)
		if i < 0 {
			continue
		}
		d := r.Timestamp.Sub(s.SlotTime(i))
		if d < 0 {
			d = -d
		}
		switch {
		case math.IsNaN(s.Values[i]) || d < dist[i]:
			s.Values[i] = val
			dist[i] = d
			tieCount[i] = 1
		case d == dist[i]:
			switch tie {
			case TieLast:
				s.Values[i] = val
			case TieMean:
				// Running mean keeps TieMean O(1) per reading.
				tieCount[i]++
				s.Values[i] += (val - s.Values[i]) / float64(tieCount[i])
			}
		}
	}
	return s
}

// FilledSeries is a Series after ignoring-period gap fill. Filled
// marks slots holding a copied value rather than a real reading.
type FilledSeries struct {
	Series
	Filled []bool
}

// Fill copies the last valid value forward into at most maxSlots
// consecutive missing slots. Longer gaps keep their tail missing, and
// a gap at the start of the series is never filled because there is
// nothing to copy.
func Fill(s Series, maxSlots int) FilledSeries {
	fs := FilledSeries{
		Series: Series{Start: s.Start, Step: s.Step, Values: make([]float64, s.Len())},
		Filled: make([]bool, s.Len()),
	}
	copy(fs.Values, s.Values)

	last := math.NaN()
	run := 0
	for i, v := range fs.Values {
		if !math.IsNaN(v) {
			last = v
			run = 0
			continue
		}
		run++
		if !math.IsNaN(last) && run <= maxSlots {
			fs.Values[i] = last
			fs.Filled[i] = true
		}
	}
	return fs
}

// Missing reports whether slot i holds no value even after filling.
func (fs FilledSeries) Missing(i int) bool {
	return math.IsNaN(fs.Values[i])
}

// Real reports whether slot i holds an actual reading, not a filled
// copy or a gap.
func (fs FilledSeries) Real(i int) bool {
	return !math.IsNaN(fs.Values[i]) && !fs.Filled[i]
}

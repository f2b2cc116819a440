package qc

import (
	"math"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// MinuteSeries is the averaged check scale of a high-rate station:
// raw slots grouped into fixed averaging periods, one value and one
// annotation set per period.
type MinuteSeries struct {
	Start  time.Time
	Period time.Duration
	Values []float64
	Ann    Annotations
}

func (ms MinuteSeries) Len() int { return len(ms.Values) }

// BucketOf returns the minute bucket holding raw slot i of fs.
func (ms MinuteSeries) BucketOf(fs FilledSeries, i int) int {
	return int(fs.SlotTime(i).Sub(ms.Start) / ms.Period)
}

// minuteBuckets lays out the bucket grid over the span of fs. The
// series start is period-aligned, so buckets never straddle one.
func minuteBuckets(fs FilledSeries, period time.Duration) MinuteSeries {
	span := time.Duration(fs.Len()) * fs.Step
	n := int(span / period)
	ms := MinuteSeries{
		Start:  fs.Start,
		Period: period,
		Values: make([]float64, n),
		Ann:    NewAnnotations(n),
	}
	for i := range ms.Values {
		ms.Values[i] = math.NaN()
	}
	return ms
}

// usable reports whether raw slot i contributes to an average: a real
// reading that no check has annotated. Filled copies are excluded so
// a gap cannot masquerade as measured data at the minute scale.
func usable(fs FilledSeries, ann Annotations, i int) bool {
	return fs.Real(i) && ann[i].Empty()
}

// markAvailability walks the raw slots of one variable, counts the
// usable fraction per bucket, and flags NO_DATA_MIN where it falls
// under minAvail. It returns, per bucket, the usable raw slots.
func markAvailability(ms *MinuteSeries, fs FilledSeries, ann Annotations, minAvail float64) [][]int {
	slots := make([][]int, ms.Len())
	total := make([]int, ms.Len())
	for i := 0; i < fs.Len(); i++ {
		b := ms.BucketOf(fs, i)
		if b < 0 || b >= ms.Len() {
			continue
		}
		total[b]++
		if usable(fs, ann, i) {
			slots[b] = append(slots[b], i)
		}
	}
	for b := range slots {
		if total[b] == 0 || float64(len(slots[b]))/float64(total[b]) < minAvail {
			ms.Ann.Add(b, models.CodeNoDataMin)
			slots[b] = nil
		}
	}
	return slots
}

// AverageScalar reduces one variable to its minute scale: the mean
// (or, for accumulating gauges, the sum) of the usable raw readings
// in each averaging period. Periods with too few usable readings are
// flagged NO_DATA_MIN and hold no value.
func AverageScalar(fs FilledSeries, ann Annotations, period time.Duration, minAvail float64, sum bool) MinuteSeries {
	ms := minuteBuckets(fs, period)
	slots := markAvailability(&ms, fs, ann, minAvail)
	for b, idx := range slots {
		if len(idx) == 0 {
			continue
		}
		acc := 0.0
		for _, i := range idx {
			acc += fs.Values[i]
		}
		if sum {
			ms.Values[b] = acc
		} else {
			ms.Values[b] = acc / float64(len(idx))
		}
	}
	return ms
}

// AverageWind reduces wind speed and direction jointly. Scalar means
// mishandle direction wrap-around (359° and 1° average to 180°), so
// each usable pair becomes a wind vector; the bucket's speed and
// direction come from the mean vector. Availability is still tracked
// per variable, but the vector mean uses only slots where both are
// usable.
func AverageWind(spd, dir FilledSeries, spdAnn, dirAnn Annotations, period time.Duration, minAvail float64) (MinuteSeries, MinuteSeries) {
	msSpd := minuteBuckets(spd, period)
	msDir := minuteBuckets(dir, period)
	spdSlots := markAvailability(&msSpd, spd, spdAnn, minAvail)
	markAvailability(&msDir, dir, dirAnn, minAvail)

	for b, idx := range spdSlots {
		var u, v float64
		n := 0
		for _, i := range idx {
			if !usable(dir, dirAnn, i) {
				continue
			}
			rad := dir.Values[i] * math.Pi / 180
			u -= spd.Values[i] * math.Sin(rad)
			v -= spd.Values[i] * math.Cos(rad)
			n++
		}
		if n == 0 {
			continue
		}
		u /= float64(n)
		v /= float64(n)
		msSpd.Values[b] = math.Hypot(u, v)
		if !msDir.Ann.Has(b, models.CodeNoDataMin) {
			d := math.Atan2(u, v)*180/math.Pi + 180
			if d >= 360 {
				d -= 360
			}
			msDir.Values[b] = d
		}
	}
	return msSpd, msDir
}

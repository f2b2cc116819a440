package qc

import (
	"math"

	"github.com/weatherxm-network/qod/internal/models"
)

// CheckBounds annotates every slot whose value lies outside the
// manufacturer's operating range. Values exactly on a boundary pass.
// Runs on the resampled series: filled copies restate a value the
// check already saw.
func CheckBounds(s Series, lower, upper float64, ann Annotations) {
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		if v < lower || v > upper {
			ann.Add(i, models.CodeOBC)
		}
	}
}

// CheckPrecipitationRate annotates implausible accumulated-rain
// increments. The gauge reports a running total, so the check runs on
// the increase between consecutive real readings: the allowed
// increase grows with the number of grid intervals elapsed, at
// ratePerSlot per interval. A negative increment beyond lower (the
// counter must not run backwards) is flagged as well. Filled slots
// are skipped on both ends of a pair since they repeat an old total.
func CheckPrecipitationRate(fs FilledSeries, lower, ratePerSlot float64, ann Annotations) {
	prev := -1
	for i := range fs.Values {
		if !fs.Real(i) {
			continue
		}
		if prev >= 0 {
			diff := fs.Values[i] - fs.Values[prev]
			elapsed := float64(i - prev)
			if diff > ratePerSlot*elapsed || diff < lower {
				ann.Add(i, models.CodeOBC)
			}
		}
		prev = i
	}
}

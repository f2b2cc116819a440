package qc

import (
	"math"
	"sort"

	"github.com/weatherxm-network/qod/internal/catalog"
	"github.com/weatherxm-network/qod/internal/models"
)

// rhCalmCeiling is the humidity median at or above which a constant
// calm wind or steady direction is plausible (fog, drizzle) and not
// flagged.
const rhCalmCeiling = 85

// constancyCodes masks the codes the constancy check can emit.
var constancyCodes = func() models.CodeSet {
	var s models.CodeSet
	s.Add(models.CodeShortConst)
	s.Add(models.CodeLongConst)
	s.Add(models.CodeFrozenSensor)
	return s
}()

// CheckConstancy annotates slots whose value has been identical for
// at least the variable's constancy window. A slot is flagged when
// the run of identical values ending at it reaches the window; runs
// reaching the long window (where one exists) are judged by the long
// tier instead, so the tiers never stack on one slot. Filled slots
// extend runs — a copied value is by construction identical to its
// source — while gaps break them.
//
// Whether a constant stretch is suspicious depends on the weather, so
// the rules consult medians of correlated variables over the same
// trailing window. The correlated series must share the grid of the
// series under test.
func CheckConstancy(fs *[models.NumVariables]FilledSeries, spec catalog.Spec, ann *[models.NumVariables]Annotations) {
	for _, v := range models.Variables() {
		window := spec.ConstancyWindow[v]
		if window == 0 {
			continue
		}
		wShort := spec.Slots(window)
		wMax := 0
		if spec.ConstancyWindowMax[v] > 0 {
			wMax = spec.Slots(spec.ConstancyWindowMax[v])
		}

		run := 0
		for i, val := range fs[v].Values {
			if i == 0 || math.IsNaN(val) || val != fs[v].Values[i-1] {
				if math.IsNaN(val) {
					run = 0
				} else {
					run = 1
				}
				continue
			}
			run++
			if run < wShort {
				continue
			}
			if wMax > 0 && run >= wMax {
				if longConstant(v, fs, i, wMax) {
					ann[v].Add(i, models.CodeLongConst)
					continue
				}
				// The long tier declined (freezing conditions); the
				// short rules still apply and may emit FROZEN_SENSOR.
			}
			if c, ok := shortConstant(v, val, fs, i, wShort, spec.RHConstancyCeiling); ok {
				ann[v].Add(i, c)
			}
		}
	}
}

// longConstant decides whether a run spanning the long window is
// reported as LONG_CONST at slot i.
func longConstant(v models.Variable, fs *[models.NumVariables]FilledSeries, i, w int) bool {
	switch v {
	case models.Temperature:
		return true
	case models.WindSpeed, models.WindDirection:
		// A day of identical wind is only suspicious when nothing
		// could have iced the sensor over.
		return trailingMedian(fs[models.Temperature], i, w) > 0
	}
	return false
}

// shortConstant decides the code, if any, for a short-window constant
// run ending at slot i with value val.
func shortConstant(v models.Variable, val float64, fs *[models.NumVariables]FilledSeries, i, w int, rhCeiling float64) (models.Code, bool) {
	switch v {
	case models.Temperature:
		// Saturated air pins the temperature to the dew point.
		if trailingMedian(fs[models.Humidity], i, w) < rhCeiling {
			return models.CodeShortConst, true
		}
	case models.Humidity:
		// Humidity legitimately sits at saturation for hours.
		if trailingMedian(fs[models.Humidity], i, w) < rhCeiling {
			return models.CodeShortConst, true
		}
	case models.WindSpeed:
		if val != 0 {
			return models.CodeShortConst, true
		}
		if trailingMedian(fs[models.Temperature], i, w) <= 0 {
			return models.CodeFrozenSensor, true
		}
		if trailingMedian(fs[models.Humidity], i, w) >= rhCalmCeiling {
			break // plausible calm under fog or drizzle
		}
		return models.CodeShortConst, true
	case models.WindDirection:
		if trailingMedian(fs[models.Temperature], i, w) <= 0 ||
			trailingMedian(fs[models.Humidity], i, w) >= rhCalmCeiling {
			break
		}
		return models.CodeShortConst, true
	case models.Pressure:
		return models.CodeShortConst, true
	case models.Illuminance:
		if val != 0 {
			return models.CodeShortConst, true
		}
	}
	return 0, false
}

// SuppressCalmWind clears wind-speed constancy codes at slots where
// wind direction carries no constancy code of its own. On low-rate
// stations the anemometer and the vane disagree often enough that a
// lone wind-speed constancy flag is noise; a real stuck or frozen
// sensor pins both.
func SuppressCalmWind(spd, dir Annotations) {
	for i := range spd {
		if dir[i]&constancyCodes == 0 {
			spd[i] &^= constancyCodes
		}
	}
}

// trailingMedian returns the median of the non-missing values in the
// w slots ending at i, truncated at the series start. NaN when the
// window holds no values; comparisons against it are then false and
// the caller's exclusion rule does not fire.
func trailingMedian(fs FilledSeries, i, w int) float64 {
	from := i - w + 1
	if from < 0 {
		from = 0
	}
	vals := make([]float64, 0, i-from+1)
	for j := from; j <= i; j++ {
		if !math.IsNaN(fs.Values[j]) {
			vals = append(vals, fs.Values[j])
		}
	}
	return median(vals)
}

// median returns the median of vals, destructively sorting them. NaN
// for an empty slice.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	m := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[m]
	}
	return (vals[m-1] + vals[m]) / 2
}

package qc

import (
	"math"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// minuteFaultyCodes marks a minute bucket invalid for hourly
// availability purposes.
var minuteFaultyCodes = func() models.CodeSet {
	var s models.CodeSet
	s.Add(models.CodeNoDataMin)
	s.Add(models.CodeAnomalousIncrease)
	s.Add(models.CodeUnidentifiedAnomalousIncrease)
	return s
}()

// Summarize reduces one variable to its 24 hourly summaries for the
// target date. Validity is judged at the variable's finest check
// scale: the minute scale where one exists, the raw scale otherwise.
// The code set and per-code shares cover both scales, each code's
// share taken over the slots of the scale it was emitted at.
func Summarize(v models.Variable, date time.Time, fs FilledSeries, rawAnn Annotations, minute *MinuteSeries, hourlyAvail float64, precision int) []models.HourlySummary {
	rawPerHour := int(time.Hour / fs.Step)
	out := make([]models.HourlySummary, 0, 24)

	for h := 0; h < 24; h++ {
		hourStart := date.Add(time.Duration(h) * time.Hour)
		rawFrom := int(hourStart.Sub(fs.Start) / fs.Step)
		rawTo := rawFrom + rawPerHour

		var total, faulty, minFrom, minTo int
		if minute != nil {
			perHour := int(time.Hour / minute.Period)
			minFrom = int(hourStart.Sub(minute.Start) / minute.Period)
			minTo = minFrom + perHour
			total = perHour
			for b := minFrom; b < minTo; b++ {
				if minute.Ann[b]&minuteFaultyCodes != 0 {
					faulty++
				}
			}
		} else {
			total = rawPerHour
			for i := rawFrom; i < rawTo; i++ {
				if !rawAnn[i].Empty() || fs.Missing(i) {
					faulty++
				}
			}
		}

		validFraction := float64(total-faulty) / float64(total)
		codes := rawAnn.Union(rawFrom, rawTo)
		if minute != nil {
			codes = codes.Union(minute.Ann.Union(minFrom, minTo))
		}

		var share map[models.Code]float64
		if !codes.Empty() {
			share = make(map[models.Code]float64)
			for _, c := range codes.Codes() {
				if n := rawAnn.Count(rawFrom, rawTo, c); n > 0 {
					share[c] = roundTo(100*float64(n)/float64(rawPerHour), precision)
				} else if minute != nil {
					n := minute.Ann.Count(minFrom, minTo, c)
					share[c] = roundTo(100*float64(n)/float64(minTo-minFrom), precision)
				}
			}
		}

		out = append(out, models.HourlySummary{
			Variable:          v,
			Hour:              hourStart,
			PercentValid:      roundTo(100*validFraction, precision),
			Codes:             codes,
			CodeShare:         share,
			BelowAvailability: validFraction < hourlyAvail,
		})
	}
	return out
}

// roundTo rounds half away from zero at the given decimal precision.
func roundTo(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(x*p) / p
}

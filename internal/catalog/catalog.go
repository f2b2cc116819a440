// Package catalog holds the per-station-model parameter tables the
// annotation engine runs against: manufacturer bounds, jump
// thresholds, constancy windows and availability thresholds. The
// tables are data, not code, so new models are added by declaring a
// new Spec.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// ErrUnknownModel is returned by Lookup for a model id with no spec.
var ErrUnknownModel = errors.New("unknown station model")

// Class is the temporal resolution class of a station model.
type Class int

const (
	// HTRT stations record faster than every 30 seconds and get an
	// extra minute-averaged check scale.
	HTRT Class = iota
	// LTRT stations record at 30s or slower; their raw cadence plays
	// the role of the minute scale.
	LTRT
)

func (c Class) String() string {
	if c == HTRT {
		return "HTRT"
	}
	return "LTRT"
}

// Spec is the full parameterization of one station model. Per-variable
// arrays are indexed by models.Variable; NaN means "no threshold" and
// a zero duration means "no window" for the check in question.
type Spec struct {
	Model              string
	RecordingFrequency time.Duration
	// IgnoringPeriod is how long a data gap may be backfilled with
	// the last valid value before it counts as a real gap.
	IgnoringPeriod time.Duration
	// MedianWindow is the trailing window for the jump-check rolling
	// median.
	MedianWindow time.Duration
	// Lookback is how much of the previous day is kept as context
	// for windows that straddle midnight.
	Lookback time.Duration
	// RainGaugeResolution is the gauge tick in mm; the per-slot
	// precipitation rate bound derives from it.
	RainGaugeResolution float64
	// RHConstancyCeiling suppresses temperature/humidity constancy
	// flags when the concurrent humidity median reaches it.
	RHConstancyCeiling float64

	LowerBound          [models.NumVariables]float64
	UpperBound          [models.NumVariables]float64
	RawJumpThreshold    [models.NumVariables]float64
	MinuteJumpThreshold [models.NumVariables]float64
	MedianAvailability  [models.NumVariables]float64
	MinuteAvailability  [models.NumVariables]float64
	HourlyAvailability  [models.NumVariables]float64
	ConstancyWindow     [models.NumVariables]time.Duration
	ConstancyWindowMax  [models.NumVariables]time.Duration
	AveragingPeriod     [models.NumVariables]time.Duration
}

// Class derives the resolution class from the recording frequency.
func (s Spec) Class() Class {
	if s.RecordingFrequency < 30*time.Second {
		return HTRT
	}
	return LTRT
}

// Slots converts a duration into a count of recording slots.
func (s Spec) Slots(d time.Duration) int {
	return int(d / s.RecordingFrequency)
}

const (
	rainGaugeTick = 0.254 // mm per gauge tick
	rhCeiling     = 95
	lookback      = 6 * time.Hour
)

func nan() float64 { return math.NaN() }

// scaledJump stretches a per-minute jump threshold to the station's
// cadence, capped at the published upper limit. NaN in either operand
// disables the threshold.
func scaledJump(perMinute, limit float64, freq, initialPeriod time.Duration) float64 {
	scaled := perMinute * freq.Minutes() / initialPeriod.Minutes()
	return math.Min(limit, scaled)
}

var ws1000 = Spec{
	Model:               "WS1000",
	RecordingFrequency:  16 * time.Second,
	IgnoringPeriod:      60 * time.Second,
	MedianWindow:        10 * time.Minute,
	Lookback:            lookback,
	RainGaugeResolution: rainGaugeTick,
	RHConstancyCeiling:  rhCeiling,

	// temperature, humidity, wind_speed, wind_direction, pressure,
	// illuminance, precipitation_accumulated
	LowerBound:          [models.NumVariables]float64{-40, 10, 0, 0, 300, 0, 0},
	UpperBound:          [models.NumVariables]float64{60, 99, 50, 359, 1100, 400000, rainGaugeTick * 16},
	RawJumpThreshold:    [models.NumVariables]float64{2, 5, 20, nan(), 0.3, 97600, nan()},
	MinuteJumpThreshold: [models.NumVariables]float64{3, 10, 10, nan(), 0.5, 97600, nan()},
	MedianAvailability:  [models.NumVariables]float64{0.67, 0.67, 0.75, 0.75, 0.67, 0.67, nan()},
	MinuteAvailability:  [models.NumVariables]float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25},
	HourlyAvailability:  [models.NumVariables]float64{0.67, 0.67, 0.75, 0.75, 0.67, 0.67, 0.85},
	ConstancyWindow: [models.NumVariables]time.Duration{
		240 * time.Minute, 360 * time.Minute, 360 * time.Minute, 360 * time.Minute,
		120 * time.Minute, 120 * time.Minute, 0,
	},
	ConstancyWindowMax: [models.NumVariables]time.Duration{
		1440 * time.Minute, 0, 1440 * time.Minute, 1440 * time.Minute, 0, 0, 0,
	},
	AveragingPeriod: [models.NumVariables]time.Duration{
		time.Minute, time.Minute, 2 * time.Minute, 2 * time.Minute,
		time.Minute, time.Minute, time.Minute,
	},
}

var ws2000 = func() Spec {
	const freq = 180 * time.Second

	s := Spec{
		Model:               "WS2000",
		RecordingFrequency:  freq,
		IgnoringPeriod:      180 * time.Second,
		MedianWindow:        60 * time.Minute,
		Lookback:            lookback,
		RainGaugeResolution: rainGaugeTick,
		RHConstancyCeiling:  rhCeiling,

		LowerBound:         [models.NumVariables]float64{-40, 1, 0, 0, 540, 0, 0},
		UpperBound:         [models.NumVariables]float64{80, 99, 50, 359, 1100, 200000, rainGaugeTick * 180},
		MedianAvailability: [models.NumVariables]float64{0.67, 0.67, 0.75, 0.75, 0.67, 0.67, nan()},
		MinuteAvailability: [models.NumVariables]float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25},
		HourlyAvailability: [models.NumVariables]float64{0.67, 0.67, 0.75, 0.75, 0.67, 0.67, 0.85},
		ConstancyWindow: [models.NumVariables]time.Duration{
			240 * time.Minute, 360 * time.Minute, 360 * time.Minute, 360 * time.Minute,
			120 * time.Minute, 120 * time.Minute, 0,
		},
		ConstancyWindowMax: [models.NumVariables]time.Duration{
			1440 * time.Minute, 0, 1440 * time.Minute, 1440 * time.Minute, 0, 0, 0,
		},
		AveragingPeriod: [models.NumVariables]time.Duration{
			60 * time.Minute, 60 * time.Minute, 60 * time.Minute, 60 * time.Minute,
			60 * time.Minute, 60 * time.Minute, 60 * time.Minute,
		},
	}

	// Published per-minute thresholds and their hard caps; at a 3-min
	// cadence a plausible change is proportionally larger, so the raw
	// thresholds stretch with the cadence up to the cap.
	perMinute := [models.NumVariables]float64{3, 10, 10, 10, 0.5, 97600, nan()}
	caps := [models.NumVariables]float64{15, 80, 15, nan(), 15, 146400, nan()}
	initial := [models.NumVariables]time.Duration{
		time.Minute, time.Minute, 2 * time.Minute, 2 * time.Minute,
		time.Minute, time.Minute, time.Minute,
	}
	for i := range s.RawJumpThreshold {
		s.RawJumpThreshold[i] = scaledJump(perMinute[i], caps[i], freq, initial[i])
		s.MinuteJumpThreshold[i] = nan() // no minute scale at this cadence
	}

	return s
}()

var specs = map[string]Spec{
	ws1000.Model: ws1000,
	ws2000.Model: ws2000,
}

// Lookup returns the spec for a station model id.
func Lookup(model string) (Spec, error) {
	s, ok := specs[model]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return s, nil
}

// Models lists the known station model ids.
func Models() []string {
	out := make([]string, 0, len(specs))
	for m := range specs {
		out = append(out, m)
	}
	return out
}

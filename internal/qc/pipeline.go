package qc

import (
	"errors"
	"sync"
	"time"

	"github.com/weatherxm-network/qod/internal/catalog"
	"github.com/weatherxm-network/qod/internal/models"
)

// ErrUnsortedReadings reports an input batch that is not in ascending
// timestamp order.
var ErrUnsortedReadings = errors.New("readings not sorted by timestamp")

// Options tunes engine behavior left open by the check definitions.
type Options struct {
	// TiePolicy resolves readings equally close to one grid slot.
	TiePolicy TiePolicy
	// Precision is the decimal precision of reported percentages.
	Precision int
}

// DefaultOptions returns the options production runs use.
func DefaultOptions() Options {
	return Options{TiePolicy: TieFirst, Precision: 2}
}

// Result carries everything one run produced: the hourly summaries in
// (variable, hour) order plus the per-slot annotations, which callers
// use for metrics and debugging.
type Result struct {
	Summaries []models.HourlySummary
	Raw       [models.NumVariables]Annotations
	Minute    [models.NumVariables]*MinuteSeries
}

// Run executes the full annotation pipeline for one device-day: the
// readings (previous day's tail plus the target date) are resampled
// onto the model's recording grid, gap-filled, passed through the
// out-of-bounds and self-quality checks at every scale the model has,
// and reduced to 24 hourly summaries per variable.
func Run(readings []models.RawReading, spec catalog.Spec, date time.Time, opts Options) (*Result, error) {
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.Before(readings[i-1].Timestamp) {
			return nil, ErrUnsortedReadings
		}
	}

	y, m, d := date.UTC().Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := date.Add(-spec.Lookback)
	n := spec.Slots(spec.Lookback + 24*time.Hour)
	fillSlots := spec.Slots(spec.IgnoringPeriod)

	var (
		raw [models.NumVariables]Series
		fs  [models.NumVariables]FilledSeries
		res Result
	)
	for _, v := range models.Variables() {
		raw[v] = Resample(readings, v, start, spec.RecordingFrequency, n, opts.TiePolicy)
		fs[v] = Fill(raw[v], fillSlots)
		res.Raw[v] = NewAnnotations(n)
		res.Raw[v].MarkMissing(raw[v])
	}

	// Constancy reads correlated series, so it runs before the
	// per-variable chains fan out.
	CheckConstancy(&fs, spec, &res.Raw)
	if spec.Class() == catalog.LTRT {
		SuppressCalmWind(res.Raw[models.WindSpeed], res.Raw[models.WindDirection])
	}

	var wg sync.WaitGroup
	for _, v := range models.Variables() {
		wg.Add(1)
		go func(v models.Variable) {
			defer wg.Done()
			if v == models.PrecipitationAccumulated {
				CheckPrecipitationRate(fs[v], spec.LowerBound[v], spec.UpperBound[v], res.Raw[v])
			} else {
				CheckBounds(raw[v], spec.LowerBound[v], spec.UpperBound[v], res.Raw[v])
			}
			JumpCheck{
				Threshold:          spec.RawJumpThreshold[v],
				WindowSlots:        spec.Slots(spec.MedianWindow),
				MedianAvailability: spec.MedianAvailability[v],
				Identified:         models.CodeSpikeInst,
				Unidentified:       models.CodeUnidentifiedSpike,
				Propagate:          true,
			}.Run(raw[v].Values, res.Raw[v])
		}(v)
	}
	wg.Wait()

	if spec.Class() == catalog.HTRT {
		// Wind speed and direction average jointly; the scalars run
		// independently.
		wg.Add(1)
		go func() {
			defer wg.Done()
			spd, dir := AverageWind(
				fs[models.WindSpeed], fs[models.WindDirection],
				res.Raw[models.WindSpeed], res.Raw[models.WindDirection],
				spec.AveragingPeriod[models.WindSpeed],
				spec.MinuteAvailability[models.WindSpeed],
			)
			res.Minute[models.WindSpeed] = &spd
			res.Minute[models.WindDirection] = &dir
		}()
		for _, v := range models.Variables() {
			if v == models.WindSpeed || v == models.WindDirection {
				continue
			}
			wg.Add(1)
			go func(v models.Variable) {
				defer wg.Done()
				sum := v == models.PrecipitationAccumulated
				ms := AverageScalar(fs[v], res.Raw[v], spec.AveragingPeriod[v], spec.MinuteAvailability[v], sum)
				res.Minute[v] = &ms
			}(v)
		}
		wg.Wait()

		for _, v := range models.Variables() {
			wg.Add(1)
			go func(v models.Variable) {
				defer wg.Done()
				ms := res.Minute[v]
				JumpCheck{
					Threshold:          spec.MinuteJumpThreshold[v],
					WindowSlots:        int(spec.MedianWindow / ms.Period),
					MedianAvailability: spec.MedianAvailability[v],
					Identified:         models.CodeAnomalousIncrease,
					Unidentified:       models.CodeUnidentifiedAnomalousIncrease,
					Propagate:          true,
				}.Run(ms.Values, ms.Ann)
			}(v)
		}
		wg.Wait()
	}

	summaries := make([][]models.HourlySummary, models.NumVariables)
	for _, v := range models.Variables() {
		wg.Add(1)
		go func(v models.Variable) {
			defer wg.Done()
			summaries[v] = Summarize(v, date, fs[v], res.Raw[v], res.Minute[v], spec.HourlyAvailability[v], opts.Precision)
		}(v)
	}
	wg.Wait()

	for _, s := range summaries {
		res.Summaries = append(res.Summaries, s...)
	}
	return &res, nil
}

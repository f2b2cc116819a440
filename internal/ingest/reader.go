// Package ingest loads the two day-keyed reading batches the engine
// consumes: CSV decoding, device filtering, and validation of the
// input contract the upstream exporter promises.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/weatherxm-network/qod/internal/models"
)

// ContractError reports a batch that violates the input contract:
// unsorted timestamps, missing or inconsistent model, or day batches
// that are not consecutive. It is a programming or upstream error,
// never a data-quality outcome.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return "input contract violation: " + e.Reason
}

func contractErrf(format string, args ...any) error {
	return &ContractError{Reason: fmt.Sprintf(format, args...)}
}

// csvFloat decodes an empty cell as a missing value rather than zero.
type csvFloat float64

func (f *csvFloat) UnmarshalCSV(s string) error {
	if strings.TrimSpace(s) == "" {
		*f = csvFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = csvFloat(v)
	return nil
}

// csvReading is the row shape of an exported day batch.
type csvReading struct {
	DeviceID      string   `csv:"device_id"`
	UTCDatetime   string   `csv:"utc_datetime"`
	Temperature   csvFloat `csv:"temperature"`
	Humidity      csvFloat `csv:"humidity"`
	WindSpeed     csvFloat `csv:"wind_speed"`
	WindDirection csvFloat `csv:"wind_direction"`
	Pressure      csvFloat `csv:"pressure"`
	Illuminance   csvFloat `csv:"illuminance"`
	Precipitation csvFloat `csv:"precipitation_accumulated"`
	Model         string   `csv:"model"`
}

// requiredColumns is the header the exporter promises per batch.
var requiredColumns = []string{
	"device_id", "utc_datetime",
	"temperature", "humidity", "wind_speed", "wind_direction",
	"pressure", "illuminance", "precipitation_accumulated",
	"model",
}

// checkHeader verifies the batch carries every promised column. gocsv
// leaves unmatched struct fields at their zero value, which would turn
// an absent column into a day of zeros.
func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return contractErrf("batch has no header: %v", err)
	}
	have := make(map[string]bool, len(header))
	for _, col := range header {
		have[strings.TrimSpace(col)] = true
	}
	for _, col := range requiredColumns {
		if !have[col] {
			return contractErrf("batch header missing column %q", col)
		}
	}
	return nil
}

// timeLayouts are the timestamp formats exporters have been seen to
// produce.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// ReadBatch decodes one day batch, keeping only rows for deviceID.
// Row order is preserved; sortedness is checked later in Load where
// the batches meet.
func ReadBatch(r io.Reader, deviceID string) ([]models.RawReading, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}
	var rows []*csvReading
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	out := make([]models.RawReading, 0, len(rows))
	for i, row := range rows {
		if row.DeviceID != deviceID {
			continue
		}
		ts, err := parseTime(row.UTCDatetime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rd := models.NewRawReading(ts, row.Model)
		rd.Values[models.Temperature] = float64(row.Temperature)
		rd.Values[models.Humidity] = float64(row.Humidity)
		rd.Values[models.WindSpeed] = float64(row.WindSpeed)
		rd.Values[models.WindDirection] = float64(row.WindDirection)
		rd.Values[models.Pressure] = float64(row.Pressure)
		rd.Values[models.Illuminance] = float64(row.Illuminance)
		rd.Values[models.PrecipitationAccumulated] = float64(row.Precipitation)
		out = append(out, rd)
	}
	return out, nil
}

// Input is a validated, merged pair of day batches ready for the
// engine.
type Input struct {
	Readings []models.RawReading
	Model    string
}

// Load validates the contract across the two batches and merges them:
// each batch sorted by timestamp, day1 the calendar day before date,
// day2 the date itself, one consistent non-empty model throughout.
// Readings outside [date−lookback, date+24h) are discarded.
func Load(day1, day2 []models.RawReading, date time.Time, lookback time.Duration) (*Input, error) {
	y, m, d := date.UTC().Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if err := checkBatch(day1, "day1", date.AddDate(0, 0, -1)); err != nil {
		return nil, err
	}
	if err := checkBatch(day2, "day2", date); err != nil {
		return nil, err
	}

	merged := make([]models.RawReading, 0, len(day1)+len(day2))
	merged = append(merged, day1...)
	merged = append(merged, day2...)

	model := ""
	from, to := date.Add(-lookback), date.Add(24*time.Hour)
	kept := merged[:0]
	for _, r := range merged {
		if r.Model == "" {
			return nil, contractErrf("reading at %s has no model", r.Timestamp)
		}
		if model == "" {
			model = r.Model
		} else if r.Model != model {
			return nil, contractErrf("mixed models %q and %q", model, r.Model)
		}
		if r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
			continue
		}
		kept = append(kept, r)
	}
	if model == "" {
		return nil, contractErrf("no readings for the device")
	}
	return &Input{Readings: kept, Model: model}, nil
}

// checkBatch verifies one batch is sorted and belongs to its day.
func checkBatch(batch []models.RawReading, name string, day time.Time) error {
	next := day.AddDate(0, 0, 1)
	for i, r := range batch {
		if i > 0 && r.Timestamp.Before(batch[i-1].Timestamp) {
			return contractErrf("%s not sorted at row %d", name, i+1)
		}
		if r.Timestamp.Before(day) || !r.Timestamp.Before(next) {
			return contractErrf("%s contains %s outside %s", name, r.Timestamp, day.Format("2006-01-02"))
		}
	}
	return nil
}

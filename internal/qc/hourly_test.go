package qc

import (
	"math"
	"testing"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// dayOfSlots builds a full-day filled series starting at date with a
// constant value, the shape Summarize expects.
func dayOfSlots(date time.Time, step time.Duration, val float64) FilledSeries {
	n := int(24 * time.Hour / step)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = val
	}
	fs := filledSeries(vals, nil)
	fs.Start = date
	fs.Step = step
	return fs
}

func TestSummarizeRawScale(t *testing.T) {
	date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	fs := dayOfSlots(date, 3*time.Minute, 1000) // 20 slots per hour
	ann := NewAnnotations(fs.Len())

	// Hour 0: two OBC slots and one gap.
	ann.Add(0, models.CodeOBC)
	ann.Add(1, models.CodeOBC)
	fs.Values[2] = math.NaN()
	ann.Add(2, models.CodeNoData)

	sums := Summarize(models.Pressure, date, fs, ann, nil, 0.9, 2)
	if len(sums) != 24 {
		t.Fatalf("summaries = %d, want 24", len(sums))
	}

	h0 := sums[0]
	if h0.Variable != models.Pressure || !h0.Hour.Equal(date) {
		t.Fatalf("hour 0 labeled %v %v", h0.Variable, h0.Hour)
	}
	if h0.PercentValid != 85 {
		t.Errorf("hour 0 percent valid = %v, want 85", h0.PercentValid)
	}
	if !h0.Codes.Has(models.CodeOBC) || !h0.Codes.Has(models.CodeNoData) {
		t.Errorf("hour 0 codes = %v", h0.Codes.Codes())
	}
	if h0.CodeShare[models.CodeOBC] != 10 {
		t.Errorf("OBC share = %v, want 10", h0.CodeShare[models.CodeOBC])
	}
	if h0.CodeShare[models.CodeNoData] != 5 {
		t.Errorf("NO_DATA share = %v, want 5", h0.CodeShare[models.CodeNoData])
	}
	if !h0.BelowAvailability {
		t.Errorf("hour 0: 0.85 valid under a 0.9 threshold must be below availability")
	}

	h1 := sums[1]
	if h1.PercentValid != 100 || !h1.Codes.Empty() || h1.BelowAvailability {
		t.Errorf("hour 1 = %+v, want clean", h1)
	}
	if h1.CodeShare != nil {
		t.Errorf("hour 1 code share = %v, want nil", h1.CodeShare)
	}
}

func TestSummarizeMinuteScale(t *testing.T) {
	date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	fs := dayOfSlots(date, 3*time.Minute, 10)
	rawAnn := NewAnnotations(fs.Len())

	period := 2 * time.Minute
	nMin := int(24 * time.Hour / period)
	minute := &MinuteSeries{
		Start:  date,
		Period: period,
		Values: make([]float64, nMin),
		Ann:    NewAnnotations(nMin),
	}

	// Hour 5 spans minute buckets 150..179 and raw slots 100..119.
	minute.Ann.Add(150, models.CodeNoDataMin)
	minute.Ann.Add(151, models.CodeNoDataMin)
	minute.Ann.Add(152, models.CodeAnomalousIncrease)
	rawAnn.Add(100, models.CodeSpikeInst)
	rawAnn.Add(101, models.CodeSpikeInst)

	sums := Summarize(models.Temperature, date, fs, rawAnn, minute, 0.67, 2)
	h5 := sums[5]

	// Validity is judged at the minute scale: 3 of 30 buckets faulty.
	if h5.PercentValid != 90 {
		t.Errorf("hour 5 percent valid = %v, want 90", h5.PercentValid)
	}
	for _, c := range []models.Code{models.CodeSpikeInst, models.CodeNoDataMin, models.CodeAnomalousIncrease} {
		if !h5.Codes.Has(c) {
			t.Errorf("hour 5 missing code %v", c)
		}
	}
	// Shares are taken over the scale each code was emitted at.
	if got := h5.CodeShare[models.CodeSpikeInst]; got != 10 { // 2 of 20 raw slots
		t.Errorf("SPIKE_INST share = %v, want 10", got)
	}
	if got := h5.CodeShare[models.CodeNoDataMin]; got != 6.67 { // 2 of 30 buckets
		t.Errorf("NO_DATA_MIN share = %v, want 6.67", got)
	}
	if h5.BelowAvailability {
		t.Errorf("hour 5: 0.9 valid over a 0.67 threshold is available")
	}

	// Raw spike codes do not count against minute-scale validity.
	h0 := sums[0]
	if h0.PercentValid != 100 {
		t.Errorf("hour 0 percent valid = %v, want 100", h0.PercentValid)
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		x         float64
		precision int
		want      float64
	}{
		{2.2222, 2, 2.22},
		{2.225, 2, 2.23},
		{99.999, 2, 100},
		{85.4, 0, 85},
	}
	for _, tt := range tests {
		if got := roundTo(tt.x, tt.precision); got != tt.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", tt.x, tt.precision, got, tt.want)
		}
	}
}

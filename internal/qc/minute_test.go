package qc

import (
	"math"
	"testing"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

// 20 s slots, three per minute bucket.
func minuteTestSeries(values []float64, filled []bool) FilledSeries {
	fs := filledSeries(values, filled)
	fs.Step = 20 * time.Second
	return fs
}

func TestAverageScalar(t *testing.T) {
	nan := math.NaN()
	fs := minuteTestSeries([]float64{1, 2, 3, nan, nan, 6}, nil)
	ann := NewAnnotations(6)

	ms := AverageScalar(fs, ann, time.Minute, 0.25, false)

	if ms.Len() != 2 {
		t.Fatalf("buckets = %d, want 2", ms.Len())
	}
	if ms.Values[0] != 2 {
		t.Errorf("bucket 0 = %v, want 2", ms.Values[0])
	}
	// One of three slots is enough at 0.25 availability.
	if ms.Values[1] != 6 {
		t.Errorf("bucket 1 = %v, want 6", ms.Values[1])
	}
	if ms.Ann.Has(0, models.CodeNoDataMin) || ms.Ann.Has(1, models.CodeNoDataMin) {
		t.Errorf("unexpected NO_DATA_MIN")
	}
}

func TestAverageScalarBelowAvailability(t *testing.T) {
	nan := math.NaN()
	fs := minuteTestSeries([]float64{nan, nan, 6}, nil)
	ann := NewAnnotations(3)

	ms := AverageScalar(fs, ann, time.Minute, 0.5, false)

	if !ms.Ann.Has(0, models.CodeNoDataMin) {
		t.Errorf("want NO_DATA_MIN under one half availability")
	}
	if !math.IsNaN(ms.Values[0]) {
		t.Errorf("bucket 0 = %v, want NaN", ms.Values[0])
	}
}

func TestAverageScalarExcludesAnnotatedAndFilledSlots(t *testing.T) {
	fs := minuteTestSeries([]float64{1, 100, 3}, []bool{false, false, true})
	ann := NewAnnotations(3)
	ann.Add(1, models.CodeOBC)

	ms := AverageScalar(fs, ann, time.Minute, 0.25, false)

	// Only slot 0 is a clean real reading.
	if ms.Values[0] != 1 {
		t.Errorf("bucket 0 = %v, want 1", ms.Values[0])
	}
}

func TestAverageScalarSum(t *testing.T) {
	fs := minuteTestSeries([]float64{0.1, 0.2, 0.3}, nil)
	ann := NewAnnotations(3)
	ms := AverageScalar(fs, ann, time.Minute, 0.25, true)
	if got := ms.Values[0]; math.Abs(got-0.6) > 1e-12 {
		t.Errorf("bucket 0 = %v, want 0.6", got)
	}
}

func TestAverageWindWrapAround(t *testing.T) {
	// 350° and 10° must average to north, not to 180°.
	spd := minuteTestSeries([]float64{1, 1, 1}, nil)
	dir := minuteTestSeries([]float64{350, 10, 350}, nil)
	spdAnn := NewAnnotations(3)
	dirAnn := NewAnnotations(3)

	msSpd, msDir := AverageWind(spd, dir, spdAnn, dirAnn, time.Minute, 0.25)

	d := msDir.Values[0]
	if d > 10 && d < 350 {
		t.Errorf("direction = %v, want near north", d)
	}
	if msSpd.Values[0] <= 0 || msSpd.Values[0] > 1 {
		t.Errorf("speed = %v, want in (0, 1]", msSpd.Values[0])
	}
}

func TestAverageWindSteady(t *testing.T) {
	spd := minuteTestSeries([]float64{2, 2, 2}, nil)
	dir := minuteTestSeries([]float64{90, 90, 90}, nil)
	msSpd, msDir := AverageWind(spd, dir, NewAnnotations(3), NewAnnotations(3), time.Minute, 0.25)

	if math.Abs(msSpd.Values[0]-2) > 1e-9 {
		t.Errorf("speed = %v, want 2", msSpd.Values[0])
	}
	if math.Abs(msDir.Values[0]-90) > 1e-9 {
		t.Errorf("direction = %v, want 90", msDir.Values[0])
	}
}

func TestAverageWindOpposingVectorsCancel(t *testing.T) {
	spd := minuteTestSeries([]float64{3, 3, math.NaN()}, nil)
	dir := minuteTestSeries([]float64{0, 180, math.NaN()}, nil)
	msSpd, _ := AverageWind(spd, dir, NewAnnotations(3), NewAnnotations(3), time.Minute, 0.25)

	if math.Abs(msSpd.Values[0]) > 1e-9 {
		t.Errorf("speed = %v, want 0 for opposing winds", msSpd.Values[0])
	}
}

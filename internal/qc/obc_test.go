package qc

import (
	"math"
	"testing"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

func filledSeries(values []float64, filled []bool) FilledSeries {
	if filled == nil {
		filled = make([]bool, len(values))
	}
	return FilledSeries{
		Series: Series{Start: testStart, Step: 16 * time.Second, Values: values},
		Filled: filled,
	}
}

func TestCheckBounds(t *testing.T) {
	s := filledSeries([]float64{-40, -40.1, 60, 60.1, 25, math.NaN()}, nil).Series
	ann := NewAnnotations(s.Len())
	CheckBounds(s, -40, 60, ann)

	want := []bool{false, true, false, true, false, false}
	for i, w := range want {
		if got := ann.Has(i, models.CodeOBC); got != w {
			t.Errorf("slot %d OBC = %v, want %v (value %v)", i, got, w, s.Values[i])
		}
	}
}

func TestCheckPrecipitationRate(t *testing.T) {
	// WS1000: at most 4.064 mm of accumulated rain per 16 s slot.
	const rate = 4.064

	tests := []struct {
		name   string
		values []float64
		filled []bool
		want   map[int]bool
	}{
		{
			name:   "single slot over the rate",
			values: []float64{0, 5.0},
			want:   map[int]bool{1: true},
		},
		{
			name:   "single slot at the rate",
			values: []float64{0, rate},
			want:   map[int]bool{},
		},
		{
			name:   "large increase over a long gap is allowed",
			values: []float64{0, math.NaN(), math.NaN(), 10},
			want:   map[int]bool{},
		},
		{
			name:   "counter running backwards",
			values: []float64{3, 2},
			want:   map[int]bool{1: true},
		},
		{
			name:   "filled copies never form a pair",
			values: []float64{0, 0, 5.0},
			filled: []bool{false, true, false},
			// diff taken from slot 0 over two intervals: 5.0 <= 8.128
			want: map[int]bool{},
		},
	}

	for _, tt := range tests {
		fs := filledSeries(tt.values, tt.filled)
		ann := NewAnnotations(fs.Len())
		CheckPrecipitationRate(fs, 0, rate, ann)
		for i := range tt.values {
			if got := ann.Has(i, models.CodeOBC); got != tt.want[i] {
				t.Errorf("%s: slot %d OBC = %v, want %v", tt.name, i, got, tt.want[i])
			}
		}
	}
}

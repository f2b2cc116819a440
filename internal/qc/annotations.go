package qc

import (
	"math"

	"github.com/weatherxm-network/qod/internal/models"
)

// Annotations holds the accumulated code set of every grid slot of
// one variable at one scale.
type Annotations []models.CodeSet

func NewAnnotations(n int) Annotations {
	return make(Annotations, n)
}

func (a Annotations) Add(i int, c models.Code) {
	a[i].Add(c)
}

func (a Annotations) Has(i int, c models.Code) bool {
	return a[i].Has(c)
}

// MarkMissing adds NO_DATA to every slot the resampling left empty.
// It runs on the unfilled series: a slot backfilled over the ignoring
// period still never saw a reading and keeps the code.
func (a Annotations) MarkMissing(s Series) {
	for i := range a {
		if math.IsNaN(s.Values[i]) {
			a[i].Add(models.CodeNoData)
		}
	}
}

// Count returns how many slots in [from, to) carry code c.
func (a Annotations) Count(from, to int, c models.Code) int {
	n := 0
	for i := from; i < to; i++ {
		if a[i].Has(c) {
			n++
		}
	}
	return n
}

// Union returns the distinct codes present in [from, to).
func (a Annotations) Union(from, to int) models.CodeSet {
	var s models.CodeSet
	for i := from; i < to; i++ {
		s = s.Union(a[i])
	}
	return s
}

package models

import (
	"fmt"
	"math"
	"time"
)

// Variable identifies one of the seven meteorological variables a
// station reports. The order is fixed and used to index the catalog
// parameter tables.
type Variable int

const (
	Temperature Variable = iota
	Humidity
	WindSpeed
	WindDirection
	Pressure
	Illuminance
	PrecipitationAccumulated

	NumVariables int = iota
)

var variableNames = [NumVariables]string{
	"temperature",
	"humidity",
	"wind_speed",
	"wind_direction",
	"pressure",
	"illuminance",
	"precipitation_accumulated",
}

func (v Variable) String() string {
	if v < 0 || int(v) >= NumVariables {
		return "unknown"
	}
	return variableNames[v]
}

// Variables returns all seven variables in table order.
func Variables() []Variable {
	vs := make([]Variable, NumVariables)
	for i := range vs {
		vs[i] = Variable(i)
	}
	return vs
}

// Code is a quality-annotation code. The set is closed; a CodeSet
// bitmask holds any combination for a single slot.
type Code int

const (
	CodeOBC Code = iota
	CodeNoData
	CodeShortConst
	CodeLongConst
	CodeFrozenSensor
	CodeSpikeInst
	CodeUnidentifiedSpike
	CodeAnomalousIncrease
	CodeUnidentifiedAnomalousIncrease
	CodeNoDataMin

	NumCodes int = iota
)

var codeNames = [NumCodes]string{
	"OBC",
	"NO_DATA",
	"SHORT_CONST",
	"LONG_CONST",
	"FROZEN_SENSOR",
	"SPIKE_INST",
	"UNIDENTIFIED_SPIKE",
	"ANOMALOUS_INCREASE",
	"UNIDENTIFIED_ANOMALOUS_INCREASE",
	"NO_DATA_MIN",
}

func (c Code) String() string {
	if c < 0 || int(c) >= NumCodes {
		return "unknown"
	}
	return codeNames[c]
}

// ParseCode maps a code name back to its value.
func ParseCode(name string) (Code, error) {
	for c, n := range codeNames {
		if n == name {
			return Code(c), nil
		}
	}
	return 0, fmt.Errorf("unknown annotation code %q", name)
}

// CodeSet is a bitmask over Code values.
type CodeSet uint16

func (s CodeSet) Has(c Code) bool         { return s&(1<<uint(c)) != 0 }
func (s *CodeSet) Add(c Code)             { *s |= 1 << uint(c) }
func (s *CodeSet) Remove(c Code)          { *s &^= 1 << uint(c) }
func (s CodeSet) Empty() bool             { return s == 0 }
func (s CodeSet) Union(o CodeSet) CodeSet { return s | o }

// Names returns the members of the set as code names, in declaration
// order. Never nil, so it serializes as [] rather than null.
func (s CodeSet) Names() []string {
	out := []string{}
	for _, c := range s.Codes() {
		out = append(out, c.String())
	}
	return out
}

// Codes returns the members of the set in declaration order.
func (s CodeSet) Codes() []Code {
	var out []Code
	for c := Code(0); int(c) < NumCodes; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// RawReading is one decoded uplink from a device. Missing variables
// are NaN. Readings are immutable once ingested.
type RawReading struct {
	Timestamp time.Time
	Values    [NumVariables]float64
	Model     string
}

// NewRawReading returns a reading with every variable missing.
func NewRawReading(ts time.Time, model string) RawReading {
	r := RawReading{Timestamp: ts, Model: model}
	for i := range r.Values {
		r.Values[i] = math.NaN()
	}
	return r
}

// HourlySummary is the terminal output of the annotation engine: one
// record per (variable, hour) of the target date.
type HourlySummary struct {
	Variable Variable
	Hour     time.Time // start of the hour, UTC
	// PercentValid is 100 × valid sub-slots / expected sub-slots at
	// the variable's finest reporting scale for this station class.
	PercentValid float64
	// Codes is the distinct set of annotation codes observed in the
	// hour across the raw and (HTRT) minute scales.
	Codes CodeSet
	// CodeShare maps each observed code to the percentage of
	// sub-slots within the hour that carried it.
	CodeShare map[Code]float64
	// BelowAvailability reports that the valid fraction fell under
	// the model's hourly availability threshold.
	BelowAvailability bool
}

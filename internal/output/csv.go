// Package output exports hourly summaries as CSV, one row per
// (variable, hour), codes serialized as a JSON array so the file
// stays one flat table.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/weatherxm-network/qod/internal/models"
)

type summaryRow struct {
	DeviceID          string  `csv:"device_id"`
	Date              string  `csv:"date"`
	Hour              string  `csv:"hour"`
	Variable          string  `csv:"variable"`
	PercentValid      float64 `csv:"percentage_valid"`
	Codes             string  `csv:"annotation_codes"`
	CodeShare         string  `csv:"annotation_share"`
	BelowAvailability bool    `csv:"below_availability"`
}

// WriteCSV renders one device-day of summaries.
func WriteCSV(w io.Writer, deviceID string, date time.Time, sums []models.HourlySummary) error {
	day := date.UTC().Format("2006-01-02")
	rows := make([]*summaryRow, 0, len(sums))
	for _, sum := range sums {
		codes, err := json.Marshal(sum.Codes.Names())
		if err != nil {
			return err
		}
		shares := map[string]float64{}
		for c, pct := range sum.CodeShare {
			shares[c.String()] = pct
		}
		share, err := json.Marshal(shares)
		if err != nil {
			return err
		}
		rows = append(rows, &summaryRow{
			DeviceID:          deviceID,
			Date:              day,
			Hour:              sum.Hour.UTC().Format(time.RFC3339),
			Variable:          sum.Variable.String(),
			PercentValid:      sum.PercentValid,
			Codes:             string(codes),
			CodeShare:         string(share),
			BelowAvailability: sum.BelowAvailability,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

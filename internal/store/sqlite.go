// Package store persists runs and hourly summaries to SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/weatherxm-network/qod/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Run records one completed engine invocation.
type Run struct {
	DeviceID   string
	Date       time.Time
	Model      string
	Readings   int
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s *Store) InsertRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (device_id, date, model, readings, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.DeviceID, r.Date.Format("2006-01-02"), r.Model, r.Readings, r.StartedAt, r.FinishedAt)
	return err
}

// UpsertSummaries writes the hourly summaries of one device-day,
// replacing any earlier run's rows for the same hours.
func (s *Store) UpsertSummaries(deviceID string, date time.Time, sums []models.HourlySummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO hourly_summaries (device_id, date, hour, variable, percent_valid, codes, code_share, below_availability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, date, hour, variable) DO UPDATE SET
			percent_valid = excluded.percent_valid,
			codes = excluded.codes,
			code_share = excluded.code_share,
			below_availability = excluded.below_availability,
			created_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	day := date.Format("2006-01-02")
	for _, sum := range sums {
		codes, share, err := encodeCodes(sum)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			deviceID, day, sum.Hour.UTC().Format(time.RFC3339), sum.Variable.String(),
			sum.PercentValid, codes, share, sum.BelowAvailability,
		); err != nil {
			return fmt.Errorf("upsert %s %s: %w", sum.Variable, sum.Hour, err)
		}
	}
	return tx.Commit()
}

// GetSummaries reads back one device-day in (variable, hour) order.
func (s *Store) GetSummaries(deviceID string, date time.Time) ([]models.HourlySummary, error) {
	rows, err := s.db.Query(`
		SELECT hour, variable, percent_valid, codes, code_share, below_availability
		FROM hourly_summaries
		WHERE device_id = ? AND date = ?
		ORDER BY variable, hour
	`, deviceID, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HourlySummary
	for rows.Next() {
		var (
			sum          models.HourlySummary
			hour         string
			variable     string
			codes, share string
		)
		if err := rows.Scan(&hour, &variable, &sum.PercentValid, &codes, &share, &sum.BelowAvailability); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, hour)
		if err != nil {
			return nil, fmt.Errorf("parse hour %q: %w", hour, err)
		}
		sum.Hour = ts
		v, err := parseVariable(variable)
		if err != nil {
			return nil, err
		}
		sum.Variable = v
		if err := decodeCodes(codes, share, &sum); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func parseVariable(name string) (models.Variable, error) {
	for _, v := range models.Variables() {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown variable %q", name)
}

func encodeCodes(sum models.HourlySummary) (codes, share string, err error) {
	b, err := json.Marshal(sum.Codes.Names())
	if err != nil {
		return "", "", err
	}
	shares := map[string]float64{}
	for c, pct := range sum.CodeShare {
		shares[c.String()] = pct
	}
	sb, err := json.Marshal(shares)
	if err != nil {
		return "", "", err
	}
	return string(b), string(sb), nil
}

func decodeCodes(codes, share string, sum *models.HourlySummary) error {
	var names []string
	if err := json.Unmarshal([]byte(codes), &names); err != nil {
		return fmt.Errorf("decode codes: %w", err)
	}
	for _, n := range names {
		c, err := models.ParseCode(n)
		if err != nil {
			return err
		}
		sum.Codes.Add(c)
	}
	var shares map[string]float64
	if err := json.Unmarshal([]byte(share), &shares); err != nil {
		return fmt.Errorf("decode code share: %w", err)
	}
	if len(shares) > 0 {
		sum.CodeShare = make(map[models.Code]float64, len(shares))
		for n, pct := range shares {
			c, err := models.ParseCode(n)
			if err != nil {
				return err
			}
			sum.CodeShare[c] = pct
		}
	}
	return nil
}

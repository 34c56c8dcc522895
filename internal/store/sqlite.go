// Package store persists ground-truth measurements, calibration outcomes
// and forecast run summaries in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atmoscast/atmoscast/internal/loader"
	"github.com/atmoscast/atmoscast/internal/physics"
	"github.com/atmoscast/atmoscast/internal/validate"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertGroundMeasurements writes a batch inside one transaction. Duplicate
// station/parameter/hour rows are ignored so re-imports are safe.
func (s *Store) InsertGroundMeasurements(ms []loader.GroundMeasurement) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO ground_measurements (latitude, longitude, parameter, value, unit, measured_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(latitude, longitude, parameter, measured_at) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range ms {
		if _, err := stmt.Exec(m.Latitude, m.Longitude, m.Parameter, m.Value, m.Unit, m.Timestamp.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert measurement: %w", err)
		}
	}
	return tx.Commit()
}

// GetGroundMeasurements returns rows for parameter within [start, end),
// chronologically ordered for the calibration split.
func (s *Store) GetGroundMeasurements(parameter string, start, end time.Time) ([]loader.GroundMeasurement, error) {
	rows, err := s.db.Query(`
		SELECT latitude, longitude, parameter, value, unit, measured_at
		FROM ground_measurements
		WHERE parameter = ? AND measured_at >= ? AND measured_at < ?
		ORDER BY measured_at ASC
	`, parameter, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loader.GroundMeasurement
	for rows.Next() {
		var m loader.GroundMeasurement
		if err := rows.Scan(&m.Latitude, &m.Longitude, &m.Parameter, &m.Value, &m.Unit, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveCalibration records a calibration outcome and returns its row id.
func (s *Store) SaveCalibration(c *validate.Calibration, runAt time.Time) (int64, error) {
	factors, err := json.Marshal(c.Factors)
	if err != nil {
		return 0, fmt.Errorf("marshal factors: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO calibration_runs (run_at, factors_json, train_mae, train_r2, train_count, test_mae, test_rmse, test_r2, test_bias, test_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runAt.UTC(), string(factors),
		c.Train.MAE, c.Train.R2, c.Train.Count,
		c.Test.MAE, c.Test.RMSE, c.Test.R2, c.Test.Bias, c.Test.Count)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestCalibration returns the most recent calibration, or nil when none
// has been saved.
func (s *Store) LatestCalibration() (*validate.Calibration, error) {
	row := s.db.QueryRow(`
		SELECT factors_json, train_mae, train_r2, train_count, test_mae, test_rmse, test_r2, test_bias, test_count
		FROM calibration_runs
		ORDER BY run_at DESC, id DESC
		LIMIT 1
	`)

	var c validate.Calibration
	var factorsJSON string
	err := row.Scan(&factorsJSON,
		&c.Train.MAE, &c.Train.R2, &c.Train.Count,
		&c.Test.MAE, &c.Test.RMSE, &c.Test.R2, &c.Test.Bias, &c.Test.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(factorsJSON), &c.Factors); err != nil {
		return nil, fmt.Errorf("unmarshal factors: %w", err)
	}
	return &c, nil
}

// ActiveFactors returns the latest calibrated factor set, falling back to
// the defaults when nothing has been calibrated yet.
func (s *Store) ActiveFactors() (physics.Factors, error) {
	c, err := s.LatestCalibration()
	if err != nil {
		return physics.Factors{}, err
	}
	if c == nil {
		return physics.DefaultFactors(), nil
	}
	return c.Factors, nil
}

// ForecastRun summarizes one horizon of a forecast invocation.
type ForecastRun struct {
	ID            int64
	RunAt         time.Time
	HoursAhead    int
	Confidence    float64
	MeanSurface   float64
	CellCount     int
	CalibrationID sql.NullInt64
}

// SaveForecastRun records one horizon summary. Re-running the same horizon
// for the same run time replaces the previous row.
func (s *Store) SaveForecastRun(r ForecastRun) error {
	_, err := s.db.Exec(`
		INSERT INTO forecast_runs (run_at, hours_ahead, confidence, mean_surface, cell_count, calibration_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_at, hours_ahead) DO UPDATE SET
			confidence = excluded.confidence,
			mean_surface = excluded.mean_surface,
			cell_count = excluded.cell_count,
			calibration_id = excluded.calibration_id
	`, r.RunAt.UTC(), r.HoursAhead, r.Confidence, r.MeanSurface, r.CellCount, r.CalibrationID)
	return err
}

// RecentForecastRuns returns the latest n run summaries, newest first.
func (s *Store) RecentForecastRuns(n int) ([]ForecastRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_at, hours_ahead, confidence, mean_surface, cell_count, calibration_id
		FROM forecast_runs
		ORDER BY run_at DESC, hours_ahead ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForecastRun
	for rows.Next() {
		var r ForecastRun
		if err := rows.Scan(&r.ID, &r.RunAt, &r.HoursAhead, &r.Confidence, &r.MeanSurface, &r.CellCount, &r.CalibrationID); err != nil {
			return nil, err
		}
		r.RunAt = r.RunAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

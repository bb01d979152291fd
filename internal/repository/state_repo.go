package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"digital_microscope/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	deviceStateRowID = 1

	upsertStateSQL = `
		INSERT INTO device_state (id, mode, illumination, illumination_actual, illumination_configured,
			tube_state, tube_height, objective, history_0, history_1, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			illumination=excluded.illumination,
			illumination_actual=excluded.illumination_actual,
			illumination_configured=excluded.illumination_configured,
			tube_state=excluded.tube_state,
			tube_height=excluded.tube_height,
			objective=excluded.objective,
			history_0=excluded.history_0,
			history_1=excluded.history_1,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT mode, illumination, illumination_actual, illumination_configured,
			tube_state, tube_height, objective, history_0, history_1, updated_at
		FROM device_state WHERE id=?
	`
)

// Save upserts the single device_state row. A zero UpdatedAt is set to now.
func (r *StateSQLite) Save(ctx context.Context, s models.DeviceSnapshot) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertStateSQL,
		deviceStateRowID,
		s.Mode,
		s.Illumination,
		s.IlluminationActual,
		s.IlluminationConfigured,
		s.TubeState,
		s.TubeHeight,
		s.Objective,
		s.ObjectiveHistory[0],
		s.ObjectiveHistory[1],
		formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("save device state: %w", err)
	}
	return nil
}

// Load fetches the device_state row. A zero snapshot and nil error mean
// nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.DeviceSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, deviceStateRowID)

	var (
		s  models.DeviceSnapshot
		ts string
	)
	if err := row.Scan(
		&s.Mode,
		&s.Illumination,
		&s.IlluminationActual,
		&s.IlluminationConfigured,
		&s.TubeState,
		&s.TubeHeight,
		&s.Objective,
		&s.ObjectiveHistory[0],
		&s.ObjectiveHistory[1],
		&ts,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeviceSnapshot{}, nil
		}
		return models.DeviceSnapshot{}, fmt.Errorf("load device state: %w", err)
	}

	updated, err := parseTime(ts)
	if err != nil {
		return models.DeviceSnapshot{}, fmt.Errorf("load device state: bad updated_at %q: %w", ts, err)
	}
	s.UpdatedAt = updated
	return s, nil
}

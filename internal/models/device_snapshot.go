package models

import (
	"fmt"
	"time"

	"digital_microscope/internal/device"
)

// DeviceSnapshot is the serialized form of the microscope state. Enum fields
// carry their command-line names.
type DeviceSnapshot struct {
	Mode                   string    `json:"mode"`         // normal | homing | sample_prep | capture | tube_moving
	Illumination           string    `json:"illumination"` // unknown | on | off
	IlluminationActual     int       `json:"illumination_actual"`
	IlluminationConfigured int       `json:"illumination_configured"`
	TubeState              string    `json:"tube_state"` // hold | moving_up | moving_down
	TubeHeight             int       `json:"tube_height"`
	Objective              int       `json:"objective"`
	ObjectiveHistory       [2]int    `json:"objective_history"` // most recent first, -1 = none
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewDeviceSnapshot converts a device state taken at the given time.
func NewDeviceSnapshot(s device.State, at time.Time) DeviceSnapshot {
	return DeviceSnapshot{
		Mode:                   s.Mode.String(),
		Illumination:           s.Illumination.String(),
		IlluminationActual:     s.IlluminationActual,
		IlluminationConfigured: s.IlluminationConfigured,
		TubeState:              s.TubeState.String(),
		TubeHeight:             s.TubeHeight,
		Objective:              s.Objective,
		ObjectiveHistory:       s.ObjectiveHistory,
		UpdatedAt:              at.UTC(),
	}
}

// IsZero reports whether the snapshot was never written.
func (d DeviceSnapshot) IsZero() bool {
	return d.Mode == "" && d.UpdatedAt.IsZero()
}

// State converts the snapshot back to a device state.
func (d DeviceSnapshot) State() (device.State, error) {
	mode, ok := device.ParseMode(d.Mode)
	if !ok {
		return device.State{}, fmt.Errorf("snapshot: unknown mode %q", d.Mode)
	}
	ill, ok := device.ParseIllumination(d.Illumination)
	if !ok {
		return device.State{}, fmt.Errorf("snapshot: unknown illumination %q", d.Illumination)
	}
	tube, ok := device.ParseTubeState(d.TubeState)
	if !ok {
		return device.State{}, fmt.Errorf("snapshot: unknown tube state %q", d.TubeState)
	}
	return device.State{
		Mode:                   mode,
		Illumination:           ill,
		TubeState:              tube,
		IlluminationActual:     d.IlluminationActual,
		IlluminationConfigured: d.IlluminationConfigured,
		TubeHeight:             d.TubeHeight,
		Objective:              d.Objective,
		ObjectiveHistory:       d.ObjectiveHistory,
	}, nil
}

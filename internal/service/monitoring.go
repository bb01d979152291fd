package service

import (
	"context"
	"time"

	"digital_microscope/internal/device"
	"digital_microscope/internal/models"
)

type MonitoringService struct {
	machine *device.Machine
	now     func() time.Time
}

func NewMonitoringService(m *device.Machine) *MonitoringService {
	return &MonitoringService{machine: m, now: time.Now}
}

// GetState returns a snapshot of the live machine stamped with the current
// time. The machine is the source of truth; the stored snapshot is only read
// on restore.
func (s *MonitoringService) GetState(ctx context.Context) (models.DeviceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.DeviceSnapshot{}, err
	}
	return models.NewDeviceSnapshot(s.machine.Snapshot(), s.now()), nil
}

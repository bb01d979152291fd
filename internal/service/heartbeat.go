package service

import (
	"context"
	"time"

	"digital_microscope/internal/device"
	"digital_microscope/internal/logger"
	"digital_microscope/internal/models"
	"digital_microscope/internal/telemetry"
)

// HeartbeatService republishes the live state so late subscribers and
// scrapers see it even when no command arrives.
type HeartbeatService struct {
	machine   *device.Machine
	publisher telemetry.Publisher
	metrics   *telemetry.Metrics
	log       *logger.Logger
}

func NewHeartbeatService(m *device.Machine, p telemetry.Publisher, metrics *telemetry.Metrics, log *logger.Logger) *HeartbeatService {
	return &HeartbeatService{machine: m, publisher: p, metrics: metrics, log: log}
}

// Run ticks at the given interval until ctx is canceled. A non-positive tick
// disables the heartbeat.
func (s *HeartbeatService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		return
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	var last device.State
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			st := s.machine.Snapshot()
			snap := models.NewDeviceSnapshot(st, now)
			if st != last {
				s.metrics.ObserveState(snap)
				last = st
			}
			// log once per outage, not on every tick
			if err := s.publisher.PublishState(snap); err != nil {
				if !failing {
					s.log.Warnw("heartbeat_publish_failed", "err", err)
				}
				failing = true
				continue
			}
			if failing {
				s.log.Infow("heartbeat_publish_recovered")
			}
			failing = false
		}
	}
}

package service

import (
	"context"
	"time"

	"digital_microscope/internal/device"
	"digital_microscope/internal/logger"
	"digital_microscope/internal/models"
	"digital_microscope/internal/repository"
	"digital_microscope/internal/shell"
	"digital_microscope/internal/telemetry"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	Operators(ctx context.Context) (int, error)
}

// Console runs shell command lines against the microscope.
type Console interface {
	Exec(ctx context.Context, source, line string) (shell.Result, error)
	Restore(ctx context.Context) (bool, error)
	Commands() []string
}

// Monitoring exposes the live device state.
type Monitoring interface {
	GetState(ctx context.Context) (models.DeviceSnapshot, error)
}

// EventLog exposes the command journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CommandEvent, error)
}

// Heartbeat republishes the device state at a fixed interval.
// Stop via context cancellation.
type Heartbeat interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	Console
	Monitoring
	EventLog
	Heartbeat
	Authorization
}

// NewService wires the repositories and the machine into concrete services.
func NewService(repos *repository.Repository, m *device.Machine, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		Console:       NewConsoleService(m, repos.StateRepo, repos.EventRepo, opts),
		Monitoring:    NewMonitoringService(m),
		EventLog:      NewEventLogService(repos.EventRepo),
		Heartbeat:     NewHeartbeatService(m, opts.Publisher, opts.Metrics, opts.Logger),
		Authorization: NewAuthService(repos.Auth, opts.Auth),
	}
}

// Options carries the infrastructure shared by the services.
type Options struct {
	Publisher telemetry.Publisher
	Metrics   *telemetry.Metrics
	Logger    *logger.Logger
	Auth      AuthConfig
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = telemetry.NopPublisher{}
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewMetrics()
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

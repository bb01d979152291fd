package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"digital_microscope/internal/device"
	"digital_microscope/internal/logger"
	"digital_microscope/internal/models"
	"digital_microscope/internal/repository"
	"digital_microscope/internal/shell"
	"digital_microscope/internal/telemetry"

	"github.com/google/uuid"
)

// Sources of command lines, recorded in the journal.
const (
	SourceConsole   = "console"
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
	SourceExec      = "exec"
	SourceStartup   = "startup"
)

// ConsoleService executes command lines one at a time. After each command it
// journals the line, saves the resulting snapshot, publishes both and updates
// the metrics.
type ConsoleService struct {
	mu sync.Mutex

	machine   *device.Machine
	shell     *shell.Shell
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	publisher telemetry.Publisher
	metrics   *telemetry.Metrics
	log       *logger.Logger

	now func() time.Time
}

func NewConsoleService(m *device.Machine, stateRepo repository.StateRepo, eventRepo repository.EventRepo, opts Options) *ConsoleService {
	opts = opts.withDefaults()
	return &ConsoleService{
		machine:   m,
		shell:     shell.NewMicroscope(m),
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
	}
}

// Commands returns the top-level command names.
func (s *ConsoleService) Commands() []string {
	return s.shell.Names()
}

// Exec runs one line. The returned Result is valid even when err is not nil:
// err only reports journal, storage or publishing failures that happened
// after the command was applied. Blank lines do nothing.
func (s *ConsoleService) Exec(ctx context.Context, source, line string) (shell.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.shell.Exec(line)
	if isBlank(res) {
		return res, nil
	}

	now := s.now().UTC()
	snap := models.NewDeviceSnapshot(s.machine.Snapshot(), now)
	ev := models.CommandEvent{
		EventID:    uuid.NewString(),
		OccurredAt: now,
		Kind:       eventKind(res),
		Source:     source,
		Line:       strings.TrimSpace(line),
		Code:       res.Code,
		Output:     res.Output,
	}

	err := s.record(ctx, ev, snap)
	s.metrics.ObserveCommand(res.Command, ev.Kind)
	s.metrics.ObserveState(snap)
	return res, err
}

// Restore loads the last saved snapshot into the machine. It reports false
// when nothing was saved yet.
func (s *ConsoleService) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.stateRepo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("restore: %w", err)
	}
	if snap.IsZero() {
		return false, nil
	}
	st, err := snap.State()
	if err != nil {
		return false, fmt.Errorf("restore: %w", err)
	}
	if err := s.machine.Restore(st); err != nil {
		return false, fmt.Errorf("restore: %w", err)
	}

	now := s.now().UTC()
	ev := models.CommandEvent{
		EventID:    uuid.NewString(),
		OccurredAt: now,
		Kind:       models.EventRestore,
		Source:     SourceStartup,
		Output:     []string{fmt.Sprintf("State restored from %s", snap.UpdatedAt.Format(time.RFC3339))},
	}
	current := models.NewDeviceSnapshot(st, now)
	s.metrics.ObserveState(current)
	return true, s.record(ctx, ev, current)
}

// record journals, saves and publishes. Every step is attempted; failures
// are logged and joined.
func (s *ConsoleService) record(ctx context.Context, ev models.CommandEvent, snap models.DeviceSnapshot) error {
	var errs []error

	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.log.Errorw("console_journal_failed", "err", err, "event_id", ev.EventID, "line", ev.Line)
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	if err := s.stateRepo.Save(ctx, snap); err != nil {
		s.log.Errorw("console_snapshot_failed", "err", err, "event_id", ev.EventID)
		errs = append(errs, fmt.Errorf("snapshot: %w", err))
	}
	if err := s.publisher.PublishEvent(ev); err != nil {
		s.log.Warnw("console_publish_event_failed", "err", err, "event_id", ev.EventID)
		errs = append(errs, fmt.Errorf("publish event: %w", err))
	}
	if err := s.publisher.PublishState(snap); err != nil {
		s.log.Warnw("console_publish_state_failed", "err", err)
		errs = append(errs, fmt.Errorf("publish state: %w", err))
	}
	return errors.Join(errs...)
}

func isBlank(res shell.Result) bool {
	return res.Command == "" && res.OK() && len(res.Output) == 0
}

func eventKind(res shell.Result) string {
	switch {
	case res.OK():
		return models.EventCommand
	case res.IsDenied():
		return models.EventDenied
	default:
		return models.EventInvalid
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"digital_microscope/internal/models"
	"digital_microscope/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errUnknownKind      = errors.New("unknown event kind")
)

var eventKinds = map[string]struct{}{
	models.EventCommand: {},
	models.EventInvalid: {},
	models.EventDenied:  {},
	models.EventRestore: {},
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventKind trims spaces and uppercases the kind filter.
func normalizeEventKind(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates them.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	kind := normalizeEventKind(f.Kind)
	if _, ok := eventKinds[kind]; kind != "" && !ok {
		return time.Time{}, time.Time{}, "", errUnknownKind
	}
	return from, to, kind, nil
}

// IsFilterError reports whether err comes from an invalid LogFilter.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errUnknownKind)
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.CommandEvent, error) {
	from, to, kind, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, kind)
}

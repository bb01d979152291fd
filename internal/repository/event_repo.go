package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"digital_microscope/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const insertEventSQL = `
		INSERT INTO command_events (id, occurred_at, kind, source, line, code, output)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

const selectEventsSQL = `SELECT id, occurred_at, kind, source, line, code, output FROM command_events`

// Append inserts a journal entry. A missing EventID or OccurredAt is filled in.
func (r *EventSQLite) Append(ctx context.Context, e models.CommandEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var output *string
	if len(e.Output) > 0 {
		b, err := json.Marshal(e.Output)
		if err != nil {
			return fmt.Errorf("marshal event output: %w", err)
		}
		s := string(b)
		output = &s
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		formatTime(e.OccurredAt),
		strings.ToUpper(strings.TrimSpace(e.Kind)),
		e.Source,
		e.Line,
		e.Code,
		output,
	)
	if err != nil {
		return fmt.Errorf("append command event: %w", err)
	}
	return nil
}

// List returns entries within [from, to] (zero bounds are open) and of the
// given kind (empty for all), oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, kind string) ([]models.CommandEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(to))
	}
	if kind = strings.ToUpper(strings.TrimSpace(kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list command events: %w", err)
	}
	defer rows.Close()

	out := make([]models.CommandEvent, 0, 64)
	for rows.Next() {
		var (
			ev     models.CommandEvent
			ts     string
			output sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ts, &ev.Kind, &ev.Source, &ev.Line, &ev.Code, &output); err != nil {
			return nil, fmt.Errorf("scan command event: %w", err)
		}
		if ev.OccurredAt, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("scan command event %s: bad occurred_at %q: %w", ev.EventID, ts, err)
		}
		if output.Valid && output.String != "" {
			if err := json.Unmarshal([]byte(output.String), &ev.Output); err != nil {
				// keep the raw text rather than dropping the entry
				ev.Output = []string{output.String}
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package models

import "time"

// Journal entry kinds.
const (
	EventCommand = "COMMAND" // command succeeded
	EventInvalid = "INVALID" // rejected with an invalid argument
	EventDenied  = "DENIED"  // refused by the device state
	EventRestore = "RESTORE" // state restored from a snapshot at startup
)

// CommandEvent is a single journal entry.
type CommandEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"` // console | http | ws | exec | startup
	Line       string    `json:"line"`
	Code       int       `json:"code"`
	Output     []string  `json:"output,omitempty"`
}

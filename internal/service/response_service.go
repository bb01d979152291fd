package service

import "time"

// LogFilter supports journal filtering by time range and kind.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Kind string    // "", "COMMAND", "INVALID", "DENIED", "RESTORE"
}

// AuthConfig holds the token settings.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

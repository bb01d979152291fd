package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Options select the level and the output stream of the process logger.
type Options struct {
	Level string
	// Stderr routes log lines to stderr, keeping stdout for command output.
	Stderr bool
}

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns the singleton logger writing to stdout at the given level.
// The first call initializes the logger; later calls ignore their arguments.
func Get(level string) *Logger {
	return GetWith(Options{Level: level})
}

// GetWith is Get with full options.
func GetWith(opts Options) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(opts)
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Meant for tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

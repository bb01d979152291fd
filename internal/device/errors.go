package device

import "errors"

var (
	// ErrInvalidArgument reports an unrecognized or missing argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPermissionDenied reports an operation refused in the current state.
	ErrPermissionDenied = errors.New("permission denied")
)

// Status codes returned to the shell, negated errno values as on the
// firmware target.
const (
	StatusOK               = 0
	StatusInvalidArgument  = -22 // EINVAL
	StatusPermissionDenied = -13 // EACCES
)

// StatusCode maps an error returned by this package to a shell status code.
// Errors that are neither sentinel are reported as invalid arguments.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrPermissionDenied):
		return StatusPermissionDenied
	default:
		return StatusInvalidArgument
	}
}

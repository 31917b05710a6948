package capability

import (
	"errors"
	"fmt"
)

// Failure kinds classified at the port boundary. A stage that receives one
// of these aborts the current turn only; the session surfaces a generic
// fallback answer and logs the cause.
var (
	// ErrTimeout means a port call exceeded its deadline.
	ErrTimeout = errors.New("capability call timed out")

	// ErrMalformed means a model response failed the port's result schema
	// (label outside the enumerated set, unparseable JSON). Distinct from a
	// normal negative judgment.
	ErrMalformed = errors.New("capability response malformed")

	// ErrUnavailable means a transport-level failure reaching the port.
	ErrUnavailable = errors.New("capability unavailable")
)

// Error wraps a port failure with the port name for central logging.
type Error struct {
	// Port is the capability name, e.g. "support_judge".
	Port string
	// Kind is one of ErrTimeout, ErrMalformed, ErrUnavailable.
	Kind error
	// Cause is the underlying error.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Port, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Port, e.Kind)
}

// Unwrap exposes the failure kind so errors.Is(err, ErrTimeout) works.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds a port failure.
func NewError(port string, kind, cause error) *Error {
	return &Error{Port: port, Kind: kind, Cause: cause}
}

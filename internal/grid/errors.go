package grid

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

var (
	// ErrAlreadyTracked means a relay was about to join a network while
	// still belonging to another one.
	ErrAlreadyTracked = errors.New("relay already in a network")
	// ErrSignMismatch means the sources returned power of the opposite sign
	// to the amount requested.
	ErrSignMismatch = errors.New("drawn amount and requested amount differ in sign")
)

// InvariantError reports corrupted bookkeeping. It is never recovered
// locally; callers must surface it.
type InvariantError struct {
	Op      string
	Relay   relay.ID
	Network NetworkID
	Detail  string
	Err     error
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("grid %s %s", e.Op, e.Relay)
	if e.Network != 0 {
		msg += fmt.Sprintf(" (network %d)", e.Network)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvariantError) Unwrap() error { return e.Err }

// IsInvariant reports whether err is, or wraps, an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
